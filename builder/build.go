package builder

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/shreethaar/rev-arm/targets"
)

// Builder drives the cross toolchain and the emulator for one target. The
// environment and toolchain are fixed when it is created.
type Builder struct {
	env       Env
	target    targets.TargetInfo
	toolchain Toolchain
	exec      Executor
	inspector Inspector
	log       *slog.Logger

	// toolOutput receives compiler, strip, archiver and readelf diagnostics
	// as they are produced, in addition to them being captured.
	toolOutput io.Writer

	checkVersion bool
	versionOnce  sync.Once
}

type Option func(*Builder)

func WithExecutor(e Executor) Option {
	return func(b *Builder) { b.exec = e }
}

func WithInspector(i Inspector) Option {
	return func(b *Builder) { b.inspector = i }
}

func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) { b.log = l }
}

// WithToolOutput streams toolchain diagnostics to w while they are captured.
func WithToolOutput(w io.Writer) Option {
	return func(b *Builder) { b.toolOutput = w }
}

// WithVersionCheck makes the first Compile warn when the compiler is older
// than the target's minimum. The check runs after the build configuration has
// been validated.
func WithVersionCheck() Option {
	return func(b *Builder) { b.checkVersion = true }
}

// WithToolchain skips discovery and uses tc as is.
func WithToolchain(tc Toolchain) Option {
	return func(b *Builder) { b.toolchain = tc }
}

func New(env Env, target targets.TargetInfo, opts ...Option) (*Builder, error) {
	if target.IsZero() {
		return nil, configError("no target selected")
	}

	b := &Builder{
		env:    env.Clone(),
		target: target,
		exec:   LocalExecutor(),
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(b)
	}

	if len(b.toolchain.CC) == 0 {
		tc, err := FindToolchain(b.env, target)
		if err != nil {
			return nil, err
		}
		b.toolchain = tc
	}

	if b.inspector == nil {
		if len(b.toolchain.ReadElf) > 0 {
			b.inspector = readelfInspector{readelf: b.toolchain.ReadElf, exec: b.exec, output: b.toolOutput}
		} else {
			b.log.Debug("readelf not found, reading ELF headers in-process")
			b.inspector = elfInspector{}
		}
	}
	return b, nil
}

func (b *Builder) Toolchain() Toolchain {
	return b.toolchain
}

func (b *Builder) Target() targets.TargetInfo {
	return b.target
}

// Compile runs the cross compiler once. The compiler overwrites an existing
// output file; nothing else on disk is modified apart from creating the
// output's directory.
func (b *Builder) Compile(ctx context.Context, config BuildConfig) (Binary, error) {
	if err := config.Validate(); err != nil {
		return Binary{}, err
	}

	compiler, err := b.toolchain.CompilerFor(config)
	if err != nil {
		return Binary{}, err
	}

	if config.Strip && len(b.toolchain.Strip) == 0 {
		return Binary{}, configError("stripping requested but no strip tool found: set STRIP")
	}

	if err := ensureDir(filepath.Dir(config.Output)); err != nil {
		return Binary{}, configError("output directory: %v", err)
	}

	if b.checkVersion {
		b.versionOnce.Do(func() {
			b.toolchain.CheckVersion(ctx, b.exec, config.Target, b.log)
		})
	}

	args := b.compileArgs(config)
	if err := b.runTool(ctx, ErrToolchainFailure, compiler, args); err != nil {
		return Binary{}, err
	}

	binary := Binary{
		Path:    config.Output,
		Target:  config.Target,
		Linking: config.Linking,
	}

	if config.Strip {
		if err := b.Strip(ctx, binary); err != nil {
			return Binary{}, err
		}
	}
	return binary, nil
}

// compileArgs orders the flags the same way every time: target, arch, opt,
// debug, linking, extra flags, sources, output.
func (b *Builder) compileArgs(config BuildConfig) []string {
	var args []string
	if b.toolchain.Clang {
		args = append(args, "--target="+clangTriple(config.Target))
	}
	if len(config.Arch) > 0 {
		args = append(args, "-march="+config.Arch)
	}
	args = append(args, config.Optimization.Flag())
	if config.Debug {
		args = append(args, "-g")
	}
	if config.Linking == LinkStatic {
		args = append(args, "-static")
	}
	args = append(args, config.ExtraFlags...)
	args = append(args, config.Sources...)
	return append(args, "-o", config.Output)
}

func (b *Builder) Strip(ctx context.Context, binary Binary) error {
	if len(b.toolchain.Strip) == 0 {
		return configError("no strip tool found: set STRIP")
	}
	return b.runTool(ctx, ErrToolchainFailure, b.toolchain.Strip, []string{binary.Path})
}

// Archive packs object files into a static library with `ar rcs`.
func (b *Builder) Archive(ctx context.Context, output string, objects []string) error {
	if len(b.toolchain.AR) == 0 {
		return configError("no archiver found: set AR")
	}
	if len(output) == 0 {
		return configError("no archive path given")
	}
	if len(objects) == 0 {
		return configError("no object files given")
	}
	if err := ensureDir(filepath.Dir(output)); err != nil {
		return configError("output directory: %v", err)
	}
	args := append([]string{"rcs", output}, objects...)
	return b.runTool(ctx, ErrToolchainFailure, b.toolchain.AR, args)
}

// BuildAndRun compiles, verifies and runs in that order, stopping at the
// first failure. Binary, Target and Linking of run are taken from the build.
// The architecture check is the one Run performs before emulating.
func (b *Builder) BuildAndRun(ctx context.Context, build BuildConfig, run RunConfig) (ProcessOutcome, error) {
	binary, err := b.Compile(ctx, build)
	if err != nil {
		return ProcessOutcome{}, err
	}

	run.Binary = binary.Path
	run.Target = binary.Target
	run.Linking = binary.Linking
	return b.Run(ctx, run)
}

// runTool runs a toolchain program and turns a non-zero exit into a
// ToolError of the given kind.
func (b *Builder) runTool(ctx context.Context, kind error, tool string, args []string) error {
	b.log.Debug("exec", "tool", tool, "args", args)
	result, err := b.exec.Run(ctx, Command{Path: tool, Args: args, Stdout: b.toolOutput, Stderr: b.toolOutput})
	if err != nil {
		return errors.Join(kind, err)
	}
	if result.ExitCode != 0 {
		return &ToolError{
			Kind:     kind,
			Tool:     tool,
			Args:     args,
			ExitCode: result.ExitCode,
			Output:   result.Output(),
			Streamed: b.toolOutput != nil,
		}
	}
	return nil
}

func clangTriple(target targets.TargetInfo) string {
	if len(target.ClangTriple) > 0 {
		return target.ClangTriple
	}
	return target.Triple
}

func ensureDir(dir string) error {
	if len(dir) == 0 || dir == "." {
		return nil
	}
	if stat, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return os.MkdirAll(dir, 0750)
	} else if err != nil {
		return err
	} else if !stat.IsDir() {
		return os.ErrInvalid
	}
	return nil
}
