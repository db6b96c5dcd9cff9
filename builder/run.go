package builder

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
)

// Run executes the binary under the emulator. The binary must report the
// target's machine before the emulator is started.
//
// A dynamically linked binary without a library path is first run as if the
// host had multiarch support. If the emulator then cannot find the dynamic
// linker, a library path is discovered and the run is retried exactly once.
// Statically linked binaries never get a library path.
func (b *Builder) Run(ctx context.Context, config RunConfig) (ProcessOutcome, error) {
	if err := config.Validate(); err != nil {
		return ProcessOutcome{}, err
	}
	if len(b.toolchain.Emulator) == 0 {
		return ProcessOutcome{}, configError("no emulator found: set QEMU")
	}

	binary := Binary{Path: config.Binary, Target: config.Target, Linking: config.Linking}
	if err := b.VerifyArchitecture(ctx, binary, config.Target.Machine); err != nil {
		return ProcessOutcome{}, err
	}

	if host := HostMachine(); host == normalizedMachine(config.Target.Machine) {
		b.log.Debug("host runs the target natively, emulating anyway", "machine", host)
	}

	libPath := ""
	if config.Linking == LinkDynamic {
		libPath = config.LibPath
	}

	outcome, result, err := b.emulate(ctx, config, libPath, 1)
	if err != nil {
		return outcome, err
	}
	if result.ExitCode == 0 {
		return outcome, nil
	}

	if b.interpreterMissing(config, result) {
		if config.Linking != LinkDynamic || len(libPath) > 0 {
			return outcome, b.interpreterError(config, libPath, result)
		}

		libPath = b.DiscoverLibPath(ctx, config.Target)
		if len(libPath) == 0 {
			b.log.Debug("no library path could be discovered", "interpreter", config.Target.Interpreter)
			return outcome, b.interpreterError(config, "", result)
		}

		outcome, result, err = b.emulate(ctx, config, libPath, 2)
		if err != nil {
			return outcome, err
		}
		if result.ExitCode == 0 {
			return outcome, nil
		}
		if b.interpreterMissing(config, result) {
			return outcome, b.interpreterError(config, libPath, result)
		}
	}

	return outcome, &ToolError{
		Kind:     ErrEmulationFailure,
		Tool:     b.toolchain.Emulator,
		Args:     b.emulatorArgs(config, libPath),
		ExitCode: result.ExitCode,
		Output:   string(result.Stderr),
		Streamed: config.Stderr != nil,
	}
}

func (b *Builder) emulate(ctx context.Context, config RunConfig, libPath string, attempt int) (ProcessOutcome, Result, error) {
	args := b.emulatorArgs(config, libPath)
	b.log.Debug("exec", "tool", b.toolchain.Emulator, "args", args, "attempt", attempt)

	result, err := b.exec.Run(ctx, Command{
		Path:   b.toolchain.Emulator,
		Args:   args,
		Stdin:  config.Stdin,
		Stdout: config.Stdout,
		Stderr: config.Stderr,
	})
	outcome := ProcessOutcome{
		ExitCode: result.ExitCode,
		Stdout:   string(result.Stdout),
		Stderr:   string(result.Stderr),
		LibPath:  libPath,
	}
	if err != nil {
		return outcome, result, errors.Join(ErrEmulationFailure, err)
	}
	return outcome, result, nil
}

// emulatorArgs orders the emulator flags: library path, cpu, environment,
// binary, program arguments.
func (b *Builder) emulatorArgs(config RunConfig, libPath string) []string {
	var args []string
	if len(libPath) > 0 {
		args = append(args, "-L", libPath)
	}
	if len(config.CPU) > 0 {
		args = append(args, "-cpu", config.CPU)
	}
	for _, kv := range config.Env {
		args = append(args, "-E", kv)
	}
	args = append(args, config.Binary)
	return append(args, config.Args...)
}

// interpreterMissing recognizes the emulator failing to open the dynamic
// linker:
//
//	qemu-aarch64: Could not open '/lib/ld-linux-aarch64.so.1': No such file or directory
//
// Only a line the emulator prefixed with its own name counts, and it must name
// the target's interpreter. The program's own stderr shares the stream, so an
// unprefixed line never triggers the fallback.
func (b *Builder) interpreterMissing(config RunConfig, result Result) bool {
	interpreter := config.Target.Interpreter
	if len(interpreter) == 0 {
		return false
	}
	for _, line := range strings.Split(string(result.Stderr), "\n") {
		name, msg, ok := strings.Cut(line, ": ")
		if !ok || !b.isEmulatorName(name) {
			continue
		}
		if !strings.Contains(msg, interpreter) {
			continue
		}
		if strings.HasPrefix(msg, "Could not open '") || strings.Contains(msg, "No such file or directory") {
			return true
		}
	}
	return false
}

// isEmulatorName matches the program name qemu puts in front of its own
// messages, which is the basename it was started as.
func (b *Builder) isEmulatorName(name string) bool {
	base := filepath.Base(b.toolchain.Emulator)
	return name == base || name == strings.TrimSuffix(base, filepath.Ext(base))
}

func (b *Builder) interpreterError(config RunConfig, libPath string, result Result) error {
	return &ToolError{
		Kind:     ErrInterpreterNotFound,
		Tool:     b.toolchain.Emulator,
		Args:     b.emulatorArgs(config, libPath),
		ExitCode: result.ExitCode,
		Output:   string(result.Stderr),
		Streamed: config.Stderr != nil,
	}
}
