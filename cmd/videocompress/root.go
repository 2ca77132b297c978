package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var opts compressOptions

	ctx := newCommandContext(&configFlag)

	rootCmd := &cobra.Command{
		Use:   "videocompress [flags] <input> [output] [target_size_MB]",
		Short: "Compress a video to fit a target file size",
		Long: `Compress a video so the output fits under a target size.

A purely numeric positional argument is the target size in MB; any other
second argument is the output path. Without an output path the result is
written next to the input as <name>_<size>MB<ext>.`,
		Args:          cobra.MaximumNArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return runCompress(cmd, ctx, opts, args)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.Flags().Float64VarP(&opts.targetMB, "target", "t", 0, "Target size in MB (default from config)")
	rootCmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output file path")
	rootCmd.Flags().StringVar(&opts.encoder, "encoder", "", "Force an encoder and skip capability detection")
	rootCmd.Flags().BoolVar(&opts.noHistory, "no-history", false, "Do not record the job in the history database")

	rootCmd.AddCommand(newProbeCommand(ctx))
	rootCmd.AddCommand(newEncodersCommand(ctx))
	rootCmd.AddCommand(newSplitCommand(ctx))
	rootCmd.AddCommand(newDoctorCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newCleanCommand(ctx))
	rootCmd.AddCommand(newLogsCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
