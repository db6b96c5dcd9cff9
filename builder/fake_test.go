package builder

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/shreethaar/rev-arm/targets"
)

// fakeExecutor records every command and answers through run. Like the local
// executor, it copies the answer to the command's writers.
type fakeExecutor struct {
	mu    sync.Mutex
	calls []Command
	run   func(c Command) Result
}

func (f *fakeExecutor) Run(_ context.Context, c Command) (Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()
	if f.run == nil {
		return Result{}, nil
	}
	result := f.run(c)
	if c.Stdout != nil {
		c.Stdout.Write(result.Stdout)
	}
	if c.Stderr != nil {
		c.Stderr.Write(result.Stderr)
	}
	return result, nil
}

// callsTo returns the recorded commands whose executable has the given base
// name.
func (f *fakeExecutor) callsTo(tool string) []Command {
	var result []Command
	for _, c := range f.calls {
		if filepath.Base(c.Path) == tool {
			result = append(result, c)
		}
	}
	return result
}

type fakeInspector struct {
	machine string
	calls   int
}

func (f *fakeInspector) Machine(context.Context, string) (string, error) {
	f.calls++
	return f.machine, nil
}

var gnuToolchain = Toolchain{
	CC:       "/usr/bin/aarch64-linux-gnu-gcc",
	CXX:      "/usr/bin/aarch64-linux-gnu-g++",
	AR:       "/usr/bin/aarch64-linux-gnu-ar",
	Strip:    "/usr/bin/aarch64-linux-gnu-strip",
	ReadElf:  "/usr/bin/aarch64-linux-gnu-readelf",
	Emulator: "/usr/bin/qemu-aarch64",
}

// testTarget is the aarch64 target with sysroots that cannot exist on the
// machine running the tests.
func testTarget(t *testing.T) targets.TargetInfo {
	t.Helper()
	target, err := targets.Lookup("aarch64-linux-gnu")
	if err != nil {
		t.Fatal(err)
	}
	target.Sysroots = []string{filepath.Join(t.TempDir(), "missing-sysroot")}
	return target
}

func newTestBuilder(t *testing.T, env Env, tc Toolchain, exec Executor, inspector Inspector) *Builder {
	t.Helper()
	b, err := New(env, testTarget(t), WithToolchain(tc), WithExecutor(exec), WithInspector(inspector))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return b
}
