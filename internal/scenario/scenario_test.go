package scenario

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/imgport"
)

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestRunDefault(t *testing.T) {
	rep, err := Run(Default())
	require.NoError(t, err)

	require.Len(t, rep.Steps, 3)
	assert.Equal(t, imgport.Size{Width: 256, Height: 256}, rep.Steps[0].ProducerSize)
	assert.Equal(t, imgport.Size{Width: 512, Height: 256}, rep.Steps[1].ProducerSize)
	assert.Equal(t, imgport.Size{Width: 512, Height: 512}, rep.Steps[2].ProducerSize)

	require.Len(t, rep.Views, 2)
	assert.Equal(t, "A", rep.Views[0].Consumer)
	assert.Equal(t, imgport.Size{Width: 512, Height: 256}, rep.Views[0].Image.Size())
	assert.Equal(t, imgport.Size{Width: 256, Height: 512}, rep.Views[1].Image.Size())
	assert.False(t, rep.Views[0].Canonical)

	// Two producer resizes plus one resample per consumer; the second pass
	// is served from the cache.
	assert.Equal(t, int64(4), rep.Resamples)
	assert.Equal(t, uint64(2), rep.Cache.Hits)
	assert.Equal(t, uint64(2), rep.Cache.Misses)
	assert.Equal(t, 2, rep.Producer.Connections)
}

func TestRunConsumerOwnsSize(t *testing.T) {
	cfg := Default()
	cfg.Producer.Authority = "consumer"

	rep, err := Run(cfg)
	require.NoError(t, err)
	for _, v := range rep.Views {
		assert.True(t, v.Canonical, "consumer %s", v.Consumer)
		assert.Equal(t, imgport.Size{Width: 512, Height: 512}, v.Image.Size())
	}
	assert.Equal(t, uint64(0), rep.Cache.Misses)
}

func TestRunDisconnect(t *testing.T) {
	off := false
	cfg := &Config{
		Producer: ProducerConfig{Size: "64x64", HandleResize: &off, Depth: true},
		Consumers: []ConsumerConfig{
			{Name: "keep", Size: "32x32"},
			{Name: "drop", Size: "16x16", Disconnect: true},
		},
	}
	rep, err := Run(cfg)
	require.NoError(t, err)

	last := rep.Steps[len(rep.Steps)-1]
	assert.Equal(t, "disconnect drop", last.Action)
	assert.Equal(t, imgport.Size{Width: 64, Height: 64}, last.ProducerSize)
	assert.Equal(t, 1, rep.Producer.Connections)
	assert.Equal(t, 1, rep.Producer.Cache.Len, "view of the dropped consumer pruned")
	assert.Equal(t, 0, rep.Consumers[1].Connections)
	require.NotNil(t, rep.Views[0].Image.DepthLayer())
}

func TestLoad(t *testing.T) {
	path := writeScenario(t, `
[producer]
size = "640x480"
authority = "producer"
handle_resize = false
resampler = "lanczos3"
cache_limit = 4

[[consumers]]
name = "thumb"
size = "320x240"

[[consumers]]
name = "viewer"
outport_determines_size = true
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "640x480", cfg.Producer.Size)
	assert.Equal(t, "lanczos3", cfg.Producer.Resampler)
	assert.Equal(t, 4, cfg.Producer.CacheLimit)
	require.NotNil(t, cfg.Producer.HandleResize)
	assert.False(t, *cfg.Producer.HandleResize)
	require.Len(t, cfg.Consumers, 2)
	assert.Equal(t, "thumb", cfg.Consumers[0].Name)
	assert.True(t, cfg.Consumers[1].OutportDeterminesSize)

	rep, err := Run(cfg)
	require.NoError(t, err)
	assert.Equal(t, imgport.Size{Width: 320, Height: 240}, rep.Views[0].Image.Size())
	assert.True(t, rep.Views[1].Canonical)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad size", "[producer]\nsize = \"big\"\n[[consumers]]\nname = \"a\"\n"},
		{"zero producer", "[producer]\nsize = \"0x0\"\n[[consumers]]\nname = \"a\"\n"},
		{"no consumers", "[producer]\nsize = \"8x8\"\n"},
		{"unnamed", "[producer]\nsize = \"8x8\"\n[[consumers]]\nsize = \"4x4\"\n"},
		{"duplicate", "[producer]\nsize = \"8x8\"\n[[consumers]]\nname = \"a\"\n[[consumers]]\nname = \"a\"\n"},
		{"authority", "[producer]\nsize = \"8x8\"\nauthority = \"viewer\"\n[[consumers]]\nname = \"a\"\n"},
		{"resampler", "[producer]\nsize = \"8x8\"\nresampler = \"sinc\"\n[[consumers]]\nname = \"a\"\n"},
		{"toml", "[producer\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeScenario(t, tt.body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
