package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/shreethaar/rev-arm/builder"
	"github.com/shreethaar/rev-arm/targets"
)

var (
	rootOpts = struct {
		target  string
		config  string
		verbose bool
		timeout time.Duration
	}{}

	// Resolved once in setup and passed down by value.
	env    builder.Env
	logger *slog.Logger

	rootCmd = &cobra.Command{
		Use:   "xarm",
		Short: "Cross-compile C/C++ for ARM64 and run it under QEMU",
		Long: `xarm drives a cross toolchain and a user-mode emulator so that programs for
ARM64 Linux can be built and tested on an x86 host.

Toolchain programs can be overridden with CC, CXX, AR, STRIP, READELF and QEMU.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&rootOpts.target, "target", "", "target triple or alias (default: $XARM_TARGET or "+targets.Default+")")
	rootCmd.PersistentFlags().StringVar(&rootOpts.config, "config", "", "profile file (default: $XARM_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&rootOpts.verbose, "verbose", "v", false, "log every command that is executed")
	rootCmd.PersistentFlags().DurationVar(&rootOpts.timeout, "timeout", 0, "abort after this long (0 disables)")

	rootCmd.AddCommand(buildCmd, runCmd, buildAndRunCmd, envCmd, targetsCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	logger = newLogger(rootOpts.verbose)

	env = builder.Environment()

	path := rootOpts.config
	required := cmd.Flags().Changed("config")
	if !required {
		path = env.Value("XARM_CONFIG")
	}
	profile, err := builder.LoadProfile(path, required)
	if err != nil {
		return err
	}
	env = env.Merge(profile.Env()).With("XARM_TARGET", rootOpts.target)
	return nil
}

func newLogger(verbose bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if verbose {
		opts.Level = slog.LevelDebug
	}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

// newBuilder resolves the target and toolchain for the selected target. It
// only searches PATH; no tool is started until a command has validated its
// configuration.
func newBuilder() (*builder.Builder, error) {
	target, err := targets.Lookup(env.TargetName())
	if err != nil {
		return nil, errors.Join(builder.ErrConfiguration, err)
	}

	return builder.New(env, target,
		builder.WithLogger(logger),
		builder.WithToolOutput(os.Stderr),
		builder.WithVersionCheck(),
	)
}

// commandContext applies --timeout to the command's context.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if rootOpts.timeout > 0 {
		return context.WithTimeout(ctx, rootOpts.timeout)
	}
	return context.WithCancel(ctx)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "xarm:", describe(err))
	}
	os.Exit(exitCode(err))
}
