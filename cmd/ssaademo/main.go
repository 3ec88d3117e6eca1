// Command ssaademo renders a scene headlessly with the supersampling
// forward renderer and writes each frame to disk.
//
//	ssaademo -config scene.yaml -out frames -scale 4 -reference
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/gogpu/ssaa"
	"github.com/gogpu/ssaa/config"
)

type flags struct {
	config    string
	backend   string
	out       string
	format    string
	frames    int
	scale     int
	width     int
	height    int
	dumpScene bool
	reference bool
	watch     bool
	quiet     bool
	verbose   bool
}

func parseFlags() flags {
	var f flags
	flag.StringVar(&f.config, "config", "", "run config (.yaml, .yml or .toml); built-in scene when empty")
	flag.StringVar(&f.backend, "backend", "vulkan", "GPU backend: vulkan or noop")
	flag.StringVar(&f.out, "out", "frames", "output directory")
	flag.StringVar(&f.format, "format", "png", "image format: png, bmp or tiff")
	flag.IntVar(&f.frames, "frames", 0, "frames to render around the orbit (overrides config)")
	flag.IntVar(&f.scale, "scale", 0, "supersampling scale (overrides config)")
	flag.IntVar(&f.width, "width", 0, "output width (overrides config)")
	flag.IntVar(&f.height, "height", 0, "output height (overrides config)")
	flag.BoolVar(&f.dumpScene, "dump-scene", false, "also write the supersampled scene target")
	flag.BoolVar(&f.reference, "reference", false, "also write a CPU-downsampled reference of the scene target")
	flag.BoolVar(&f.watch, "watch", false, "re-render when the config or shader files change")
	flag.BoolVar(&f.quiet, "quiet", false, "no progress bar")
	flag.BoolVar(&f.verbose, "v", false, "debug logging")
	flag.Parse()
	return f
}

func main() {
	f := parseFlags()

	level := slog.LevelInfo
	if f.verbose {
		level = slog.LevelDebug
	}
	ssaa.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if _, err := parseFormat(f.format); err != nil {
		log.Fatal(err)
	}

	ctx, err := openContext(f.backend)
	if err != nil {
		log.Fatalf("Failed to open GPU: %v", err)
	}
	defer ctx.Release()

	run := func() error {
		cfg, base, err := loadConfig(f)
		if err != nil {
			return err
		}
		stats, err := renderRun(ctx, cfg, base, f)
		if err != nil {
			return err
		}
		printSummary(os.Stdout, stats)
		return nil
	}

	if err := run(); err != nil {
		if !f.watch {
			log.Fatal(err)
		}
		log.Print(err)
	}
	if !f.watch {
		return
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := watch(sigCtx, f, run); err != nil {
		log.Fatal(err)
	}
}

// loadConfig reads the config named by the flags and applies overrides.
// base is the directory relative shader paths resolve against.
func loadConfig(f flags) (*config.Config, string, error) {
	cfg := config.Default()
	base := "."
	if f.config != "" {
		var err error
		if cfg, err = config.Load(f.config); err != nil {
			return nil, "", err
		}
		base = filepath.Dir(f.config)
	}
	if f.frames > 0 {
		cfg.Frames = f.frames
	}
	if f.scale > 0 {
		cfg.Scale = f.scale
	}
	if f.width > 0 {
		cfg.Width = uint32(f.width)
	}
	if f.height > 0 {
		cfg.Height = uint32(f.height)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("after flag overrides: %w", err)
	}
	return cfg, base, nil
}
