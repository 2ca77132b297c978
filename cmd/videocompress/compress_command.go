package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"videocompress/internal/compress"
	"videocompress/internal/history"
	"videocompress/internal/logging"
	"videocompress/internal/services"
)

type compressOptions struct {
	targetMB  float64
	output    string
	encoder   string
	noHistory bool
}

func runCompress(cmd *cobra.Command, ctx *commandContext, opts compressOptions, args []string) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	req, err := parseCompressArgs(args, opts, cmd.Flags().Changed("target"), cmd.Flags().Changed("output"))
	if err != nil {
		return err
	}
	logger, err := ctx.ensureLogger(cmd)
	if err != nil {
		return err
	}

	renderer := newProgressRenderer(cmd.ErrOrStderr(), logger)
	compressor := compress.New(compress.SettingsFromConfig(cfg), logger, compress.WithObserver(renderer))
	result, jobErr := compressor.Compress(cmd.Context(), req)
	renderer.finish()

	if cfg.History.Enabled && !opts.noHistory {
		recordHistory(context.WithoutCancel(cmd.Context()), ctx, result, logger)
	}

	printResult(cmd.OutOrStdout(), result)
	if errors.Is(jobErr, services.ErrAlreadySmaller) {
		return nil
	}
	return jobErr
}

// parseCompressArgs maps <input> [output] [size] onto a request. The second
// and third positionals may come in either order; a purely numeric one is
// the size.
func parseCompressArgs(args []string, opts compressOptions, targetSet, outputSet bool) (compress.Request, error) {
	req := compress.Request{
		Input:   strings.TrimSpace(args[0]),
		Output:  opts.output,
		Encoder: opts.encoder,
	}
	if targetSet {
		req.TargetMB = opts.targetMB
	}

	var sizeSeen, outputSeen bool
	for _, arg := range args[1:] {
		if isSizeArg(arg) {
			if sizeSeen || targetSet {
				return req, services.Wrap(services.ErrValidation, "", "parse arguments", "target size given more than once", nil)
			}
			size, err := strconv.ParseFloat(arg, 64)
			if err != nil {
				return req, services.Wrap(services.ErrValidation, "", "parse arguments", "invalid target size "+arg, err)
			}
			req.TargetMB = size
			sizeSeen = true
			continue
		}
		if outputSeen || outputSet {
			return req, services.Wrap(services.ErrValidation, "", "parse arguments", "output path given more than once", nil)
		}
		req.Output = arg
		outputSeen = true
	}
	if targetSet && req.TargetMB <= 0 {
		return req, services.Wrap(services.ErrValidation, "", "parse arguments",
			fmt.Sprintf("--target must be positive, got %v", opts.targetMB), nil)
	}
	return req, nil
}

func isSizeArg(arg string) bool {
	if arg == "" {
		return false
	}
	dots := 0
	for _, r := range arg {
		switch {
		case r == '.':
			dots++
		case r < '0' || r > '9':
			return false
		}
	}
	return dots <= 1 && arg != "."
}

func recordHistory(ctx context.Context, cmdCtx *commandContext, result compress.Result, logger *slog.Logger) {
	err := cmdCtx.withHistory(func(store *history.Store) error {
		_, err := store.Record(ctx, historyEntry(result))
		return err
	})
	if err != nil {
		logging.WarnWithContext(logger, "failed to record job history", "history_record_failed",
			logging.String(logging.FieldJobID, result.JobID),
			logging.Error(err),
			logging.String(logging.FieldImpact, "job missing from history"),
			logging.String(logging.FieldErrorHint, "check paths.history_db or pass --no-history"),
		)
	}
}

func historyEntry(result compress.Result) history.Entry {
	entry := history.Entry{
		JobID:       result.JobID,
		Input:       result.Input,
		Output:      result.Output,
		Encoder:     result.Encoder,
		Mode:        string(result.Mode),
		Outcome:     string(result.Outcome),
		Message:     result.Message,
		TargetMB:    result.TargetMB,
		InputBytes:  result.InputBytes,
		OutputBytes: result.OutputBytes,
		Bitrates:    result.Bitrates,
		Elapsed:     result.Elapsed,
	}
	if result.Split != nil {
		entry.SplitSeconds = result.Split.SplitSeconds
	}
	return entry
}

func printResult(out io.Writer, result compress.Result) {
	switch result.Outcome {
	case compress.OutcomeSuccess:
		fmt.Fprintf(out, "Output:   %s\n", result.Output)
		fmt.Fprintf(out, "Size:     %s (%.1f%% smaller than %s)\n",
			humanize.IBytes(uint64(result.OutputBytes)), result.ReductionPercent(), humanize.IBytes(uint64(result.InputBytes)))
		fmt.Fprintf(out, "Encoder:  %s (%s)\n", result.Encoder, result.Mode)
		fmt.Fprintf(out, "Elapsed:  %s\n", result.Elapsed.Round(time.Second))
	case compress.OutcomeAlreadySmaller:
		fmt.Fprintln(out, result.Message)
	}
}
