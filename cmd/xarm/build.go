package main

import (
	"github.com/spf13/cobra"
)

var (
	buildOpts     compileFlags
	buildLinkOpts linkFlags
	buildArchive  string

	buildCmd = &cobra.Command{
		Use:   "build [flags] <sources...>",
		Short: "Cross-compile C/C++ sources for the target",
		Long: `Cross-compile C/C++ sources for the target and check that the result
reports the target's machine type.

With --archive, the inputs are object files packed into a static library.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			b, err := newBuilder()
			if err != nil {
				return err
			}

			if len(buildArchive) > 0 {
				return b.Archive(ctx, buildArchive, args)
			}

			config := buildOpts.config(args)
			config.Target = b.Target()
			config.Linking = buildLinkOpts.mode()

			binary, err := b.Compile(ctx, config)
			if err != nil {
				return err
			}
			if err := b.VerifyArchitecture(ctx, binary, binary.Target.Machine); err != nil {
				return err
			}

			logger.Info("built", "output", binary.Path, "target", binary.Target.Triple, "linking", binary.Linking.String())
			return nil
		},
	}
)

func init() {
	buildCmd.Flags().AddFlagSet(buildOpts.flagSet())
	buildLinkOpts.register(buildCmd)
	buildCmd.Flags().StringVar(&buildArchive, "archive", "", "pack the given object files into this static library instead of compiling")
}
