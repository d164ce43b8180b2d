package scenario

import (
	"errors"
	"fmt"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/gogpu/imgport"
)

// Config describes one producer and the consumers connected to it.
//
// Example:
//
//	[producer]
//	size = "256x256"
//	authority = "producer"  # or "consumer"
//	handle_resize = true
//	resampler = "bilinear"
//
//	[[consumers]]
//	name = "A"
//	size = "512x256"
type Config struct {
	Producer  ProducerConfig   `koanf:"producer"`
	Consumers []ConsumerConfig `koanf:"consumers"`
}

// ProducerConfig configures the producer outport and its canonical image.
type ProducerConfig struct {
	Size         string `koanf:"size"`          // canonical size, "WxH"
	Authority    string `koanf:"authority"`     // "producer" (default) or "consumer"
	HandleResize *bool  `koanf:"handle_resize"` // default: true
	Owning       *bool  `koanf:"owning"`        // default: true
	Resampler    string `koanf:"resampler"`     // see imgport.ResamplerNames
	CacheLimit   int    `koanf:"cache_limit"`   // 0 = unlimited
	ColorLayers  int    `koanf:"color_layers"`  // default: 1
	Depth        bool   `koanf:"depth"`
	Picking      bool   `koanf:"picking"`
}

// ConsumerConfig configures one consumer inport. Consumers connect in the
// order they are listed.
type ConsumerConfig struct {
	Name                  string `koanf:"name"`
	Size                  string `koanf:"size"` // requested size, "WxH"; empty = no request
	OutportDeterminesSize bool   `koanf:"outport_determines_size"`
	Disconnect            bool   `koanf:"disconnect"` // disconnect after the first read
}

var errNoConsumers = errors.New("no consumers")

// Default returns the scenario run when no file is given: a 256x256
// producer negotiating with a wide and a tall consumer.
func Default() *Config {
	return &Config{
		Producer: ProducerConfig{Size: "256x256"},
		Consumers: []ConsumerConfig{
			{Name: "A", Size: "512x256"},
			{Name: "B", Size: "256x512"},
		},
	}
}

// Load reads a scenario from a TOML file.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		return nil, fmt.Errorf("scenario: load %s: %w", path, err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("scenario: decode %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("scenario: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks sizes, names and enumerations.
func (c *Config) Validate() error {
	if _, err := c.Producer.size(); err != nil {
		return err
	}
	if _, err := imgport.ParseSizingAuthority(c.Producer.Authority); err != nil {
		return err
	}
	if _, err := imgport.ResamplerByName(c.Producer.Resampler); err != nil {
		return err
	}
	if len(c.Consumers) == 0 {
		return errNoConsumers
	}

	seen := make(map[string]bool, len(c.Consumers))
	for i, cc := range c.Consumers {
		if cc.Name == "" {
			return fmt.Errorf("consumer %d: missing name", i)
		}
		if seen[cc.Name] {
			return fmt.Errorf("consumer %q: duplicate name", cc.Name)
		}
		seen[cc.Name] = true
		if _, err := cc.size(); err != nil {
			return fmt.Errorf("consumer %q: %w", cc.Name, err)
		}
	}
	return nil
}

func (p ProducerConfig) size() (imgport.Size, error) {
	s, err := imgport.ParseSize(p.Size)
	if err != nil {
		return imgport.Size{}, fmt.Errorf("producer: %w", err)
	}
	if !s.IsValid() {
		return imgport.Size{}, fmt.Errorf("producer: %w: %s", imgport.ErrInvalidSize, s)
	}
	return s, nil
}

func (p ProducerConfig) handleResize() bool {
	return p.HandleResize == nil || *p.HandleResize
}

func (p ProducerConfig) owning() bool {
	return p.Owning == nil || *p.Owning
}

func (c ConsumerConfig) size() (imgport.Size, error) {
	if c.Size == "" {
		return imgport.Size{}, nil
	}
	return imgport.ParseSize(c.Size)
}
