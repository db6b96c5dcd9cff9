package builder

import (
	"bufio"
	"context"
	"debug/elf"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Inspector reports the machine type declared in a binary's header.
type Inspector interface {
	Machine(ctx context.Context, path string) (string, error)
}

// readelfInspector runs `readelf -h` and reads the Machine line. The header
// dump on stdout is only parsed; diagnostics on stderr go to output.
type readelfInspector struct {
	readelf string
	exec    Executor
	output  io.Writer
}

func (r readelfInspector) Machine(ctx context.Context, path string) (string, error) {
	args := []string{"-h", path}
	result, err := r.exec.Run(ctx, Command{Path: r.readelf, Args: args, Stderr: r.output})
	if err != nil {
		return "", err
	}
	if result.ExitCode != 0 {
		return "", &ToolError{
			Kind:     ErrToolchainFailure,
			Tool:     r.readelf,
			Args:     args,
			ExitCode: result.ExitCode,
			Output:   string(result.Stderr),
			Streamed: r.output != nil,
		}
	}
	return parseReadelfMachine(string(result.Stdout))
}

func parseReadelfMachine(out string) (string, error) {
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ":")
		if ok && strings.TrimSpace(key) == "Machine" {
			return strings.TrimSpace(value), nil
		}
	}
	return "", errors.New("readelf output has no Machine field")
}

// elfInspector reads the header in-process. It is used when no readelf is
// installed.
type elfInspector struct{}

func (elfInspector) Machine(_ context.Context, path string) (string, error) {
	f, err := elf.Open(path)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	defer f.Close()
	return f.Machine.String(), nil
}

// VerifyArchitecture checks that the binary declares the expected machine. It
// only reads the file.
func (b *Builder) VerifyArchitecture(ctx context.Context, binary Binary, expected string) error {
	if len(binary.Path) == 0 {
		return configError("no binary to verify")
	}
	info, err := os.Stat(binary.Path)
	if err != nil {
		return configError("target binary: %v", err)
	}
	if info.IsDir() {
		return configError("target binary %s is a directory", binary.Path)
	}

	machine, err := b.inspector.Machine(ctx, binary.Path)
	if err != nil {
		return &InspectError{Path: binary.Path, Err: err}
	}

	actual := normalizedMachine(machine)
	want := normalizedMachine(expected)
	b.log.Debug("inspected binary", "path", binary.Path, "machine", machine, "expected", want)
	if actual != want {
		return &MismatchError{Path: binary.Path, Expected: want, Actual: actual}
	}
	return nil
}
