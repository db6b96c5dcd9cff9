package builder

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"time"
)

// Command is one subprocess invocation.
type Command struct {
	Path string
	Args []string
	Dir  string

	Stdin io.Reader
	// Stdout and Stderr, when set, receive the output while it is also
	// captured into the Result.
	Stdout io.Writer
	Stderr io.Writer
}

type Result struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// Output returns stdout followed by stderr, unmodified.
func (r Result) Output() string {
	return string(r.Stdout) + string(r.Stderr)
}

// Executor spawns subprocesses. A non-zero exit is not an error; the error
// return is reserved for processes that could not be started or waited on.
type Executor interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// waitDelay bounds how long Run waits for output pipes after the process has
// been killed.
const waitDelay = 5 * time.Second

type localExecutor struct{}

// LocalExecutor runs commands on the host.
func LocalExecutor() Executor {
	return localExecutor{}
}

func (localExecutor) Run(ctx context.Context, c Command) (Result, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Dir = c.Dir
	cmd.Stdin = c.Stdin
	cmd.Stdout = tee(&stdout, c.Stdout)
	cmd.Stderr = tee(&stderr, c.Stderr)
	cmd.WaitDelay = waitDelay
	configureProcessGroup(cmd)

	err := cmd.Run()
	result := Result{
		Stdout: stdout.Bytes(),
		Stderr: stderr.Bytes(),
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return result, nil
	case ctx.Err() != nil:
		result.ExitCode = -1
		return result, ctx.Err()
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	default:
		result.ExitCode = -1
		return result, err
	}
}

func tee(buf *bytes.Buffer, w io.Writer) io.Writer {
	if w == nil {
		return buf
	}
	return io.MultiWriter(buf, w)
}
