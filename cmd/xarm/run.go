package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/shreethaar/rev-arm/builder"
)

var (
	runOpts     emulatorFlags
	runLinkOpts linkFlags

	runCmd = &cobra.Command{
		Use:   "run [flags] <binary> [-- args...]",
		Short: "Run a target binary under the emulator",
		Long: `Run a target binary under the user-mode emulator.

A dynamically linked binary without --lib-path is first run as if the host had
multiarch support. If the emulator cannot find the dynamic linker, a sysroot is
looked up ($QEMU_LD_PREFIX, the compiler's sysroot, well-known locations) and
the run is retried once with it.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			b, err := newBuilder()
			if err != nil {
				return err
			}

			config := runOpts.config(args[1:])
			config.Binary = args[0]
			config.Target = b.Target()
			config.Linking = runLinkOpts.mode()
			passthrough(&config)

			outcome, err := b.Run(ctx, config)
			logger.Debug("emulated program exited", "code", outcome.ExitCode, "libPath", outcome.LibPath)
			return err
		},
	}
)

func init() {
	runCmd.Flags().AddFlagSet(runOpts.flagSet())
	runLinkOpts.register(runCmd)
}

func passthrough(config *builder.RunConfig) {
	config.Stdin = os.Stdin
	config.Stdout = os.Stdout
	config.Stderr = os.Stderr
}
