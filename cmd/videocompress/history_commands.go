package main

import (
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"videocompress/internal/history"
)

const defaultHistoryLimit = 20

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recent compression jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				limit = defaultHistoryLimit
			}
			return ctx.withHistory(func(store *history.Store) error {
				entries, err := store.Recent(cmd.Context(), limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "No jobs recorded")
					return nil
				}

				rows := make([][]string, 0, len(entries))
				for _, e := range entries {
					rows = append(rows, []string{
						shortJobID(e.JobID),
						e.CreatedAt.Local().Format("2006-01-02 15:04"),
						filepath.Base(e.Input),
						e.Outcome,
						dashIfEmpty(e.Encoder),
						formatEntrySize(e),
						e.Elapsed.Round(time.Second).String(),
					})
				}
				fmt.Fprint(out, renderTable(
					[]string{"Job", "Started", "Input", "Outcome", "Encoder", "Output", "Elapsed"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
				))

				counts, err := store.OutcomeCounts(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "\nTotals: %s\n", formatCounts(counts))
				return nil
			})
		},
	}
	historyCmd.Flags().IntVarP(&limit, "limit", "n", defaultHistoryLimit, "Number of jobs to show")

	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	return historyCmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show one recorded job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				entry, err := store.Get(cmd.Context(), strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				if entry == nil {
					return fmt.Errorf("job %s not found in history", args[0])
				}

				bitrates := make([]string, 0, len(entry.Bitrates))
				for _, kbps := range entry.Bitrates {
					bitrates = append(bitrates, strconv.Itoa(kbps))
				}
				rows := [][]string{
					{"Job", entry.JobID},
					{"Started", entry.CreatedAt.Local().Format(time.RFC3339)},
					{"Outcome", entry.Outcome},
					{"Message", dashIfEmpty(entry.Message)},
					{"Input", entry.Input},
					{"Output", dashIfEmpty(entry.Output)},
					{"Encoder", dashIfEmpty(entry.Encoder)},
					{"Mode", dashIfEmpty(entry.Mode)},
					{"Target", strconv.FormatFloat(entry.TargetMB, 'f', -1, 64) + " MB"},
					{"Size", formatEntrySize(*entry)},
					{"Bitrates", dashIfEmpty(strings.Join(bitrates, ", "))},
					{"Elapsed", entry.Elapsed.Round(time.Millisecond).String()},
				}
				if entry.SplitSeconds > 0 {
					rows = append(rows, []string{"Split", formatSeconds(entry.SplitSeconds)})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows, nil))
				return nil
			})
		},
	}
}

func shortJobID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func dashIfEmpty(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func formatEntrySize(e history.Entry) string {
	if e.OutputBytes <= 0 {
		return "-"
	}
	size := humanize.IBytes(uint64(e.OutputBytes))
	if e.InputBytes > 0 {
		size += fmt.Sprintf(" (-%.0f%%)", (1-float64(e.OutputBytes)/float64(e.InputBytes))*100)
	}
	return size
}

func formatCounts(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s %d", k, counts[k]))
	}
	return strings.Join(parts, ", ")
}
