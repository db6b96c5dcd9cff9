package builder

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// compilerWrites simulates a compiler that creates its -o output on success.
func compilerWrites(exitCode int, stderr string) func(c Command) Result {
	return func(c Command) Result {
		if exitCode == 0 {
			for i, arg := range c.Args {
				if arg == "-o" && i+1 < len(c.Args) {
					os.WriteFile(c.Args[i+1], []byte("\x7fELF"), 0755)
				}
			}
		}
		return Result{ExitCode: exitCode, Stderr: []byte(stderr)}
	}
}

func TestCompileArgs(t *testing.T) {
	clang := gnuToolchain
	clang.CC = "/usr/bin/clang"
	clang.Clang = true

	tests := []struct {
		name   string
		tc     Toolchain
		config func(b *Builder) BuildConfig
		want   []string
	}{
		{
			"static", gnuToolchain,
			func(b *Builder) BuildConfig {
				return BuildConfig{Target: b.Target(), Optimization: OptStandard, Linking: LinkStatic, Sources: []string{"hello.c"}, Output: "hello"}
			},
			[]string{"-O2", "-static", "hello.c", "-o", "hello"},
		},
		{
			"dynamic debug", gnuToolchain,
			func(b *Builder) BuildConfig {
				return BuildConfig{Target: b.Target(), Linking: LinkDynamic, Debug: true, Sources: []string{"a.c", "b.c"}, Output: "out/app"}
			},
			[]string{"-O0", "-g", "a.c", "b.c", "-o", "out/app"},
		},
		{
			"all flags", gnuToolchain,
			func(b *Builder) BuildConfig {
				return BuildConfig{
					Target:       b.Target(),
					Arch:         "armv8-a",
					Optimization: OptAggressive,
					Debug:        true,
					Linking:      LinkStatic,
					ExtraFlags:   []string{"-Wall"},
					Sources:      []string{"main.c"},
					Output:       "main",
				}
			},
			[]string{"-march=armv8-a", "-O3", "-g", "-static", "-Wall", "main.c", "-o", "main"},
		},
		{
			"clang", clang,
			func(b *Builder) BuildConfig {
				return BuildConfig{Target: b.Target(), Optimization: OptBasic, Arch: "armv8.2-a", Sources: []string{"hello.c"}, Output: "hello"}
			},
			[]string{"--target=aarch64-linux-gnu", "-march=armv8.2-a", "-O1", "-static", "hello.c", "-o", "hello"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := newTestBuilder(t, Env{}, tc.tc, &fakeExecutor{}, &fakeInspector{})
			config := tc.config(b)
			got := b.compileArgs(config)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("args = %q, want %q", got, tc.want)
			}
			if again := b.compileArgs(config); !reflect.DeepEqual(got, again) {
				t.Errorf("args are not deterministic: %q vs %q", got, again)
			}
		})
	}
}

func TestCompileSuccess(t *testing.T) {
	exec := &fakeExecutor{run: compilerWrites(0, "")}
	b := newTestBuilder(t, Env{}, gnuToolchain, exec, &fakeInspector{})

	output := filepath.Join(t.TempDir(), "bin", "hello")
	binary, err := b.Compile(context.Background(), BuildConfig{
		Target:       b.Target(),
		Optimization: OptStandard,
		Sources:      []string{"hello.c"},
		Output:       output,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if binary.Path != output || binary.Linking != LinkStatic || binary.Target.Machine != "aarch64" {
		t.Errorf("unexpected binary %+v", binary)
	}
	if _, err := os.Stat(output); err != nil {
		t.Errorf("expected output file: %v", err)
	}
	if len(exec.calls) != 1 {
		t.Fatalf("expected exactly one subprocess, got %d", len(exec.calls))
	}
	if exec.calls[0].Path != gnuToolchain.CC {
		t.Errorf("compiler = %s", exec.calls[0].Path)
	}
}

func TestCompileEmptySources(t *testing.T) {
	exec := &fakeExecutor{}
	b := newTestBuilder(t, Env{}, gnuToolchain, exec, &fakeInspector{})

	_, err := b.Compile(context.Background(), BuildConfig{Target: b.Target(), Output: "hello"})
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
	if len(exec.calls) != 0 {
		t.Errorf("expected no subprocess, got %d", len(exec.calls))
	}
}

func TestCompileToolchainFailure(t *testing.T) {
	const diagnostics = "hello.c:1:1: error: unknown type name 'itn'\n    1 | itn main() {}\n"
	exec := &fakeExecutor{run: compilerWrites(1, diagnostics)}
	b := newTestBuilder(t, Env{}, gnuToolchain, exec, &fakeInspector{})

	output := filepath.Join(t.TempDir(), "hello")
	if err := os.WriteFile(output, []byte("previous"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := b.Compile(context.Background(), BuildConfig{Target: b.Target(), Sources: []string{"hello.c"}, Output: output})
	if !errors.Is(err, ErrToolchainFailure) {
		t.Fatalf("expected ErrToolchainFailure, got %v", err)
	}
	if !IsBuildError(err) || IsRunError(err) {
		t.Errorf("wrong category for %v", err)
	}

	var toolErr *ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("expected *ToolError, got %T", err)
	}
	if toolErr.Output != diagnostics {
		t.Errorf("diagnostics were rewritten: %q", toolErr.Output)
	}
	if toolErr.ExitCode != 1 {
		t.Errorf("exit code = %d", toolErr.ExitCode)
	}

	if b, _ := os.ReadFile(output); string(b) != "previous" {
		t.Errorf("prior output was modified: %q", b)
	}
}

func TestCompileCXX(t *testing.T) {
	exec := &fakeExecutor{run: compilerWrites(0, "")}
	b := newTestBuilder(t, Env{}, gnuToolchain, exec, &fakeInspector{})

	_, err := b.Compile(context.Background(), BuildConfig{
		Target:  b.Target(),
		Sources: []string{"main.cpp", "util.c"},
		Output:  filepath.Join(t.TempDir(), "app"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := exec.calls[0].Path; got != gnuToolchain.CXX {
		t.Errorf("driver = %s, want %s", got, gnuToolchain.CXX)
	}

	noCXX := gnuToolchain
	noCXX.CXX = ""
	b = newTestBuilder(t, Env{}, noCXX, &fakeExecutor{}, &fakeInspector{})
	_, err = b.Compile(context.Background(), BuildConfig{Target: b.Target(), Sources: []string{"main.cc"}, Output: "app"})
	if !errors.Is(err, ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}

func TestCompileStrip(t *testing.T) {
	exec := &fakeExecutor{run: compilerWrites(0, "")}
	b := newTestBuilder(t, Env{}, gnuToolchain, exec, &fakeInspector{})

	output := filepath.Join(t.TempDir(), "hello")
	if _, err := b.Compile(context.Background(), BuildConfig{Target: b.Target(), Sources: []string{"hello.c"}, Output: output, Strip: true}); err != nil {
		t.Fatal(err)
	}
	strips := exec.callsTo("aarch64-linux-gnu-strip")
	if len(strips) != 1 || !reflect.DeepEqual(strips[0].Args, []string{output}) {
		t.Errorf("unexpected strip calls %+v", strips)
	}
}

func TestArchive(t *testing.T) {
	exec := &fakeExecutor{}
	b := newTestBuilder(t, Env{}, gnuToolchain, exec, &fakeInspector{})

	if err := b.Archive(context.Background(), "libfoo.a", nil); !errors.Is(err, ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}

	if err := b.Archive(context.Background(), "libfoo.a", []string{"a.o", "b.o"}); err != nil {
		t.Fatal(err)
	}
	calls := exec.callsTo("aarch64-linux-gnu-ar")
	want := []string{"rcs", "libfoo.a", "a.o", "b.o"}
	if len(calls) != 1 || !reflect.DeepEqual(calls[0].Args, want) {
		t.Errorf("unexpected ar calls %+v", calls)
	}

	exec.run = func(Command) Result { return Result{ExitCode: 1, Stderr: []byte("ar: a.o: No such file or directory\n")} }
	if err := b.Archive(context.Background(), "libfoo.a", []string{"a.o"}); !errors.Is(err, ErrToolchainFailure) {
		t.Errorf("expected ErrToolchainFailure, got %v", err)
	}
}

func TestCompileVersionCheck(t *testing.T) {
	exec := &fakeExecutor{run: func(c Command) Result {
		if len(c.Args) == 1 && c.Args[0] == "-dumpversion" {
			return Result{Stdout: []byte("13.2.0\n")}
		}
		return compilerWrites(0, "")(c)
	}}
	b, err := New(Env{}, testTarget(t), WithToolchain(gnuToolchain), WithExecutor(exec), WithInspector(&fakeInspector{}), WithVersionCheck())
	if err != nil {
		t.Fatal(err)
	}
	if len(exec.calls) != 0 {
		t.Fatalf("New started %d subprocesses", len(exec.calls))
	}

	_, err = b.Compile(context.Background(), BuildConfig{Target: b.Target(), Output: "hello"})
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
	if len(exec.calls) != 0 {
		t.Errorf("invalid configuration started %+v", exec.calls)
	}

	output := filepath.Join(t.TempDir(), "hello")
	for i := 0; i < 2; i++ {
		if _, err := b.Compile(context.Background(), BuildConfig{Target: b.Target(), Sources: []string{"hello.c"}, Output: output}); err != nil {
			t.Fatal(err)
		}
	}
	var args [][]string
	for _, c := range exec.calls {
		args = append(args, c.Args)
	}
	if len(args) != 3 || !reflect.DeepEqual(args[0], []string{"-dumpversion"}) {
		t.Errorf("expected one version query before the first compile, got %q", args)
	}
}
