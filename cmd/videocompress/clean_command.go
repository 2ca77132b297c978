package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"videocompress/internal/workspace"
)

func newCleanCommand(ctx *commandContext) *cobra.Command {
	var maxAge time.Duration
	var listOnly bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove workspaces left behind by interrupted jobs",
		Long: `Remove job workspaces under paths.work_dir that are older than --max-age.

Workspaces whose lock is held by a running job are never removed. Use
--list to show the workspaces without removing anything.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			root := cfg.Paths.WorkDir

			if listOnly {
				dirs, err := workspace.List(root)
				if err != nil {
					return fmt.Errorf("list workspaces: %w", err)
				}
				if len(dirs) == 0 {
					fmt.Fprintln(out, "No workspaces found")
					return nil
				}
				var total int64
				rows := make([][]string, 0, len(dirs))
				for _, dir := range dirs {
					total += dir.Size
					state := "idle"
					if dir.Locked {
						state = "running"
					}
					rows = append(rows, []string{dir.Name, state, formatAge(time.Since(dir.ModTime)), humanize.IBytes(uint64(dir.Size))})
				}
				fmt.Fprintf(out, "Work directory: %s\n", root)
				fmt.Fprint(out, renderTable(
					[]string{"Workspace", "State", "Age", "Size"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight},
				))
				fmt.Fprintf(out, "Total: %d workspaces, %s\n", len(dirs), humanize.IBytes(uint64(total)))
				return nil
			}

			if !cmd.Flags().Changed("max-age") {
				maxAge = cfg.StaleWorkspaceAge()
			}
			logger, err := ctx.ensureLogger(cmd)
			if err != nil {
				return err
			}
			result := workspace.CleanStale(cmd.Context(), root, maxAge, logger)
			return printCleanResult(cmd, result)
		},
	}

	cmd.Flags().DurationVar(&maxAge, "max-age", 24*time.Hour, "Only remove workspaces older than this")
	cmd.Flags().BoolVar(&listOnly, "list", false, "List workspaces instead of removing them")
	return cmd
}

func printCleanResult(cmd *cobra.Command, result workspace.CleanStaleResult) error {
	out := cmd.OutOrStdout()
	if len(result.Removed) == 0 && len(result.Errors) == 0 {
		fmt.Fprintln(out, "No stale workspaces to clean")
	} else {
		fmt.Fprintf(out, "Removed %d stale workspaces\n", len(result.Removed))
	}
	if len(result.Skipped) > 0 {
		fmt.Fprintf(out, "Skipped %d workspaces still in use\n", len(result.Skipped))
	}
	for _, e := range result.Errors {
		fmt.Fprintf(out, "  Error: %s: %v\n", e.Path, e.Error)
	}
	if len(result.Errors) > 0 {
		return fmt.Errorf("%d workspaces could not be removed", len(result.Errors))
	}
	return nil
}

func formatAge(d time.Duration) string {
	switch {
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
