// Command portnego runs an image-port size negotiation scenario and prints
// what the producer and every consumer ended up with.
//
// Without --config it runs the built-in scenario: a 256x256 producer with a
// 512x256 and a 256x512 consumer.
package main

import (
	"errors"
	"fmt"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/gogpu/imgport"
	"github.com/gogpu/imgport/internal/scenario"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	var (
		configPath string
		outDir     string
		verbose    bool
	)
	flagSet := pflag.NewFlagSet("portnego", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", "", "scenario TOML file (default: built-in scenario)")
	flagSet.StringVarP(&outDir, "out", "o", "", "write each consumer's view as PNG into this directory")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "log negotiation details to stderr")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	imgport.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg := scenario.Default()
	if configPath != "" {
		var err error
		if cfg, err = scenario.Load(configPath); err != nil {
			return err
		}
	}

	rep, err := scenario.Run(cfg)
	if err != nil {
		return err
	}
	printReport(stdout, rep)

	if outDir != "" {
		return writeViews(outDir, rep.Views)
	}
	return nil
}

func printReport(w io.Writer, rep *scenario.Report) {
	fmt.Fprintln(w, "steps:")
	for _, s := range rep.Steps {
		fmt.Fprintf(w, "  %-24s producer %s\n", s.Action, s.ProducerSize)
	}
	fmt.Fprintln(w, "views:")
	for _, v := range rep.Views {
		how := "resized view"
		if v.Canonical {
			how = "canonical"
		}
		fmt.Fprintf(w, "  %-12s requested %-10s reads %-10s (%s)\n", v.Consumer, v.Request, v.Image.Size(), how)
	}
	fmt.Fprintf(w, "resamples: %d\n", rep.Resamples)
	fmt.Fprintf(w, "cache: %d entries, %d hits, %d misses (%.0f%% hit rate)\n",
		rep.Cache.Len, rep.Cache.Hits, rep.Cache.Misses, rep.Cache.HitRate*100)
}

func writeViews(dir string, views []scenario.View) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, v := range views {
		path := filepath.Join(dir, fmt.Sprintf("%s_%s.png", v.Consumer, v.Image.Size()))
		if err := savePNG(path, v.Image); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		imgport.Logger().Info("portnego: wrote view", "path", path)
	}
	return nil
}

func savePNG(path string, img *imgport.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img.ColorLayer(0).Pixels()); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
