package builder

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

// placeInterpreter creates root/dir/interp and returns root.
func placeInterpreter(t *testing.T, dir, interp string) string {
	t.Helper()
	root := t.TempDir()
	full := filepath.Join(root, dir)
	if err := os.MkdirAll(full, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(full, interp), nil, 0755); err != nil {
		t.Fatal(err)
	}
	return root
}

func TestHasInterpreter(t *testing.T) {
	const interp = "ld-linux-aarch64.so.1"

	linked := t.TempDir()
	if err := os.MkdirAll(filepath.Join(linked, "lib"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink("aarch64-linux-gnu/"+interp, filepath.Join(linked, "lib", interp)); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		root string
		want bool
	}{
		{"lib", makeSysroot(t, interp), true},
		{"lib64", placeInterpreter(t, "lib64", interp), true},
		{"dangling symlink", linked, true},
		{"multiarch", placeInterpreter(t, filepath.Join("usr", "lib", "aarch64-linux-gnu"), interp), false},
		{"usr lib", placeInterpreter(t, filepath.Join("usr", "lib"), interp), false},
		{"below lib", placeInterpreter(t, filepath.Join("lib", "aarch64-linux-gnu"), interp), false},
		{"empty", t.TempDir(), false},
		{"missing", filepath.Join(t.TempDir(), "nope"), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := hasInterpreter(tc.root, interp); got != tc.want {
				t.Errorf("hasInterpreter = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDiscoverLibPathSkipsUnresolvableRoot(t *testing.T) {
	const interp = "ld-linux-aarch64.so.1"
	shadow := placeInterpreter(t, filepath.Join("usr", "lib", "aarch64-linux-gnu"), interp)
	good := makeSysroot(t, interp)

	exec := &fakeExecutor{run: func(Command) Result { return Result{ExitCode: 1} }}
	b := newTestBuilder(t, Env{}, gnuToolchain, exec, &fakeInspector{})
	target := b.Target()
	target.Sysroots = []string{shadow, good}

	got := b.DiscoverLibPath(context.Background(), target)
	if got != good {
		t.Fatalf("got %q, want %q", got, good)
	}
	if _, err := os.Lstat(filepath.Join(got, "lib", interp)); err != nil {
		t.Errorf("chosen root does not resolve the interpreter: %v", err)
	}
}

func TestDiscoverLibPathOrder(t *testing.T) {
	first := makeSysroot(t, "ld-linux-aarch64.so.1")
	second := makeSysroot(t, "ld-linux-aarch64.so.1")

	exec := &fakeExecutor{run: func(c Command) Result {
		return Result{Stdout: []byte(second + "\n")}
	}}
	b := newTestBuilder(t, Env{"QEMU_LD_PREFIX": first}, gnuToolchain, exec, &fakeInspector{})
	if got := b.DiscoverLibPath(context.Background(), b.Target()); got != first {
		t.Errorf("got %q, want QEMU_LD_PREFIX %q", got, first)
	}

	b = newTestBuilder(t, Env{}, gnuToolchain, exec, &fakeInspector{})
	if got := b.DiscoverLibPath(context.Background(), b.Target()); got != second {
		t.Errorf("got %q, want compiler sysroot %q", got, second)
	}

	target := b.Target()
	target.Sysroots = []string{t.TempDir(), first}
	exec.run = func(Command) Result { return Result{ExitCode: 1} }
	if got := b.DiscoverLibPath(context.Background(), target); got != first {
		t.Errorf("got %q, want table sysroot %q", got, first)
	}
}

func TestDiscoverLibPathClang(t *testing.T) {
	exec := &fakeExecutor{}
	clang := gnuToolchain
	clang.CC = "/usr/bin/clang"
	clang.Clang = true
	b := newTestBuilder(t, Env{}, clang, exec, &fakeInspector{})

	if got := b.DiscoverLibPath(context.Background(), b.Target()); got != "" {
		t.Errorf("expected nothing, got %q", got)
	}
	calls := exec.callsTo("clang")
	if len(calls) != 1 || calls[0].Args[0] != "--target=aarch64-linux-gnu" || calls[0].Args[1] != "-print-sysroot" {
		t.Errorf("unexpected clang calls %+v", calls)
	}
}
