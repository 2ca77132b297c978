package main

import (
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"videocompress/internal/bitrate"
	"videocompress/internal/compress"
	"videocompress/internal/encoder"
	"videocompress/internal/media/probe"
	"videocompress/internal/split"
)

func newProbeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "probe <input>",
		Short: "Show the source metadata used for budgeting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger(cmd)
			if err != nil {
				return err
			}
			prober := probe.NewProber(cfg.Binaries.FFprobe, cfg.Compress.FallbackAudioKbps, logger)
			info, err := prober.Probe(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			audio := fmt.Sprintf("%d kbps", info.AudioBitrateKbps)
			if info.AudioFallback {
				audio += " (fallback)"
			}
			rows := [][]string{
				{"Size", humanize.IBytes(uint64(info.SizeBytes))},
				{"Duration", formatSeconds(info.DurationSeconds)},
				{"Frame rate", strconv.FormatFloat(info.FrameRate, 'f', 3, 64) + " fps"},
				{"Video", fmt.Sprintf("%s %dx%d", info.VideoCodec, info.Width, info.Height)},
				{"Audio", audio},
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTable([]string{"Property", "Value"}, rows, nil))
			return nil
		},
	}
}

func newEncodersCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "encoders",
		Short: "Probe hardware encoders in priority order",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger(cmd)
			if err != nil {
				return err
			}
			candidates := cfg.Encoder.Candidates
			if len(candidates) == 0 {
				candidates = encoder.Candidates(runtime.GOOS)
			}
			detector := encoder.NewDetector(cfg.Binaries.FFmpeg, cfg.ProbeTimeout(), cfg.Encoder.Software, logger)
			selection := detector.Select(cmd.Context(), candidates)

			rows := make([][]string, 0, len(selection.Probes))
			for _, p := range selection.Probes {
				mode := ""
				if backend, ok := encoder.Lookup(p.Name); ok {
					mode = string(compress.ModeFor(backend))
				}
				rows = append(rows, []string{p.Name, yesNo(p.Available), mode, p.Elapsed.Round(time.Millisecond).String(), p.Reason})
			}
			out := cmd.OutOrStdout()
			if len(rows) > 0 {
				fmt.Fprint(out, renderTable(
					[]string{"Encoder", "Available", "Mode", "Probe", "Detail"},
					rows,
					[]columnAlignment{alignLeft, alignCenter, alignLeft, alignRight, alignLeft},
				))
			}
			suffix := ""
			if selection.Fallback {
				suffix = " (software fallback)"
			}
			fmt.Fprintf(out, "Selected: %s, %s%s\n", selection.Backend.Name, compress.ModeFor(selection.Backend), suffix)
			return nil
		},
	}
}

func newSplitCommand(ctx *commandContext) *cobra.Command {
	var targetMB float64

	cmd := &cobra.Command{
		Use:   "split <input>",
		Short: "Show the split point and per-segment bitrates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger(cmd)
			if err != nil {
				return err
			}
			if targetMB <= 0 {
				targetMB = cfg.Compress.DefaultTargetMB
			}

			prober := probe.NewProber(cfg.Binaries.FFprobe, cfg.Compress.FallbackAudioKbps, logger)
			info, err := prober.Probe(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			plan, err := split.NewPlanner(cfg.Binaries.FFprobe, logger).Plan(cmd.Context(), args[0], info.DurationSeconds)
			if err != nil {
				return err
			}
			budget := bitrate.Budget{SafetyFactor: cfg.Compress.SafetyFactor, MinSegmentMB: cfg.Compress.MinSegmentMB}
			alloc, err := budget.Split(targetMB, plan, info.AudioBitrateKbps)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			method := "keyframe"
			if !plan.Smart {
				method = "midpoint"
			}
			fmt.Fprintf(out, "Split at %s (%s) for a %s MB target\n",
				formatSeconds(plan.SplitSeconds), method, strconv.FormatFloat(targetMB, 'f', -1, 64))
			rows := [][]string{
				{"A", formatSeconds(plan.SegmentA), strconv.Itoa(alloc.SegmentA) + " kbps"},
				{"B", formatSeconds(plan.SegmentB), strconv.Itoa(alloc.SegmentB) + " kbps"},
			}
			fmt.Fprint(out, renderTable(
				[]string{"Segment", "Duration", "Video bitrate"},
				rows,
				[]columnAlignment{alignCenter, alignRight, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().Float64VarP(&targetMB, "target", "t", 0, "Target size in MB (default from config)")
	return cmd
}

func formatSeconds(seconds float64) string {
	return (time.Duration(seconds * float64(time.Second))).Round(10 * time.Millisecond).String()
}
