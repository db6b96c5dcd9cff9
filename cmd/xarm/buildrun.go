package main

import (
	"github.com/spf13/cobra"
)

var (
	buildRunOpts     compileFlags
	buildRunLinkOpts linkFlags
	buildRunEmuOpts  emulatorFlags

	buildAndRunCmd = &cobra.Command{
		Use:   "build-and-run [flags] <sources...> [-- args...]",
		Short: "Compile, verify and run in one step",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			sources, programArgs := splitDash(cmd, args)

			b, err := newBuilder()
			if err != nil {
				return err
			}

			build := buildRunOpts.config(sources)
			build.Target = b.Target()
			build.Linking = buildRunLinkOpts.mode()

			run := buildRunEmuOpts.config(programArgs)
			passthrough(&run)

			outcome, err := b.BuildAndRun(ctx, build, run)
			logger.Debug("emulated program exited", "code", outcome.ExitCode, "libPath", outcome.LibPath)
			return err
		},
	}
)

func init() {
	buildAndRunCmd.Flags().AddFlagSet(buildRunOpts.flagSet())
	buildAndRunCmd.Flags().AddFlagSet(buildRunEmuOpts.flagSet())
	buildRunLinkOpts.register(buildAndRunCmd)
}
