package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"videocompress/internal/compress"
	"videocompress/internal/logging"
	"videocompress/internal/progress"
)

// progressRenderer displays job progress. On a terminal it keeps a single
// status line rewritten in place; otherwise progress goes to the logger in
// 10% steps.
type progressRenderer struct {
	out         io.Writer
	interactive bool
	logger      *slog.Logger
	sampler     *logging.ProgressSampler
	title       cases.Caser

	stage     compress.Stage
	lineWidth int
}

func newProgressRenderer(out io.Writer, logger *slog.Logger) *progressRenderer {
	return newProgressRendererMode(out, logger, shouldColorize(out))
}

func newProgressRendererMode(out io.Writer, logger *slog.Logger, interactive bool) *progressRenderer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &progressRenderer{
		out:         out,
		interactive: interactive,
		logger:      logging.NewComponentLogger(logger, "progress"),
		sampler:     logging.NewProgressSampler(10),
		title:       cases.Title(language.English),
		stage:       compress.StageIdle,
	}
}

func (r *progressRenderer) StageChanged(stage compress.Stage) {
	if stage == r.stage {
		return
	}
	r.stage = stage
	r.endLine()
	r.sampler.Reset()
}

func (r *progressRenderer) Progress(phase string, stats progress.Stats) {
	if !r.interactive {
		if !r.sampler.ShouldLog(stats.Percent, phase) {
			return
		}
		r.logger.Info("encode progress",
			logging.String("phase", phase),
			logging.Float64("percent", roundTenth(stats.Percent)),
			logging.Float64("fps", roundTenth(stats.FPS)),
			logging.Duration("eta", stats.ETA),
			logging.String(logging.FieldEventType, "progress"),
		)
		return
	}
	line := r.formatLine(phase, stats)
	pad := ""
	if n := r.lineWidth - len(line); n > 0 {
		pad = strings.Repeat(" ", n)
	}
	fmt.Fprintf(r.out, "\r%s%s", line, pad)
	r.lineWidth = len(line)
}

func (r *progressRenderer) formatLine(phase string, stats progress.Stats) string {
	return fmt.Sprintf("%s (%s): %5.1f%%  %6.1f fps  ETA %s",
		r.stageLabel(r.stage), phase, stats.Percent, stats.FPS, formatETA(stats.ETA))
}

func (r *progressRenderer) stageLabel(stage compress.Stage) string {
	return r.title.String(strings.ReplaceAll(string(stage), "_", " "))
}

func (r *progressRenderer) finish() {
	r.endLine()
}

func (r *progressRenderer) endLine() {
	if r.interactive && r.lineWidth > 0 {
		fmt.Fprintln(r.out)
	}
	r.lineWidth = 0
}

func formatETA(d time.Duration) string {
	if d <= 0 {
		return "--:--"
	}
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

func roundTenth(v float64) float64 {
	return float64(int64(v*10+0.5)) / 10
}
