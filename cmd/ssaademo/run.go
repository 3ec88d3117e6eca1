package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/ssaa/config"
	"github.com/gogpu/ssaa/render"
)

// runStats summarizes one run for printSummary.
type runStats struct {
	frames         int
	width, height  uint32
	scale          int
	requestedScale int
	lights         int
	droppedLights  int
	sceneLinked    bool
	compositeOK    bool
	files          []string
	elapsed        time.Duration
}

// renderRun draws cfg.Frames frames around the camera orbit and writes
// them to the output directory.
func renderRun(ctx *render.Context, cfg *config.Config, base string, f flags) (runStats, error) {
	var stats runStats
	format, err := parseFormat(f.format)
	if err != nil {
		return stats, err
	}
	scene, err := cfg.Scene()
	if err != nil {
		return stats, err
	}
	opts, err := cfg.Options(base)
	if err != nil {
		return stats, err
	}
	if err := os.MkdirAll(f.out, 0o755); err != nil {
		return stats, err
	}

	r, err := render.NewRenderer(ctx, cfg.TechniqueValue(), cfg.Width, cfg.Height, scene, opts...)
	if err != nil {
		return stats, err
	}
	defer r.Release()
	fr := r.Forward()

	stats = runStats{
		frames:         cfg.Frames,
		width:          cfg.Width,
		height:         cfg.Height,
		scale:          fr.Scale(),
		requestedScale: fr.RequestedScale(),
		lights:         fr.Lights().Len(),
		droppedLights:  fr.DroppedLights(),
		sceneLinked:    fr.SceneProgram().Linked(),
		compositeOK:    fr.CompositeProgram().Linked(),
	}

	var bar *progressbar.ProgressBar
	if !f.quiet {
		bar = progressbar.Default(int64(cfg.Frames), "rendering")
	}
	start := time.Now()
	for i := 0; i < cfg.Frames; i++ {
		if err := r.Draw(cfg.OrbitCamera(i, cfg.Frames)); err != nil {
			return stats, fmt.Errorf("frame %d: %w", i, err)
		}
		files, err := writeFrame(fr, i, f, format)
		stats.files = append(stats.files, files...)
		if err != nil {
			return stats, fmt.Errorf("frame %d: %w", i, err)
		}
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}
	stats.elapsed = time.Since(start)
	return stats, nil
}

// writeFrame reads back the frame and any extra targets the flags ask for.
func writeFrame(fr *render.ForwardRenderer, i int, f flags, format imageFormat) ([]string, error) {
	var files []string
	frame, err := fr.ReadFrame()
	if err != nil {
		return nil, err
	}
	path, err := writeImage(f.out, fmt.Sprintf("frame_%04d", i), format, frame)
	if err != nil {
		return files, err
	}
	files = append(files, path)

	if !f.dumpScene && !f.reference {
		return files, nil
	}
	sceneImg, err := fr.ReadScene()
	if err != nil {
		return files, err
	}
	if f.dumpScene {
		if path, err = writeImage(f.out, fmt.Sprintf("scene_%04d", i), format, sceneImg); err != nil {
			return files, err
		}
		files = append(files, path)
	}
	if f.reference {
		ref := render.Downsample(sceneImg, fr.Scale())
		if path, err = writeImage(f.out, fmt.Sprintf("reference_%04d", i), format, ref); err != nil {
			return files, err
		}
		files = append(files, path)
	}
	return files, nil
}

func printSummary(w io.Writer, s runStats) {
	p := message.NewPrinter(language.English)
	p.Fprintf(w, "rendered %d frames at %dx%d (scale %d", s.frames, s.width, s.height, s.scale)
	if s.scale != s.requestedScale {
		p.Fprintf(w, ", reduced from %d", s.requestedScale)
	}
	p.Fprintf(w, ", %d supersampled pixels per frame)\n", uint64(s.width)*uint64(s.height)*uint64(s.scale*s.scale))
	p.Fprintf(w, "lights: %d", s.lights)
	if s.droppedLights > 0 {
		p.Fprintf(w, " (%d dropped)", s.droppedLights)
	}
	p.Fprintln(w)
	if !s.sceneLinked || !s.compositeOK {
		p.Fprintf(w, "warning: shader programs failed (scene linked: %v, composite linked: %v); see log\n",
			s.sceneLinked, s.compositeOK)
	}
	if s.frames > 0 && s.elapsed > 0 {
		p.Fprintf(w, "%d files written in %v (%.1f ms/frame)\n",
			len(s.files), s.elapsed.Round(time.Millisecond), float64(s.elapsed.Microseconds())/1000/float64(s.frames))
	}
}
