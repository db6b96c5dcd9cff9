package builder

import (
	"context"
	"log/slog"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/shreethaar/rev-arm/targets"
)

type Toolchain struct {
	CC       string
	CXX      string
	AR       string
	Strip    string
	ReadElf  string
	Emulator string

	// Clang is set when CC is a clang driver, which needs an explicit
	// --target instead of a prefixed executable name.
	Clang bool
}

// lookPath is replaced in tests.
var lookPath = exec.LookPath

func FindToolchain(env Env, target targets.TargetInfo) (Toolchain, error) {
	var tc Toolchain
	var err error

	if tc.CC, err = findTool(env, "CC", target.Tool("gcc"), "clang"); err != nil {
		return Toolchain{}, configError("no C compiler for %s: set CC or install %s: %v", target, target.Tool("gcc"), err)
	}
	tc.Clang = isClang(tc.CC)

	if tc.Clang {
		tc.CXX, _ = findTool(env, "CXX", "clang++")
	} else {
		tc.CXX, _ = findTool(env, "CXX", target.Tool("g++"), "clang++")
	}
	tc.AR, _ = findTool(env, "AR", target.Tool("ar"), "llvm-ar")
	tc.Strip, _ = findTool(env, "STRIP", target.Tool("strip"), "llvm-strip")
	tc.ReadElf, _ = findTool(env, "READELF", target.Tool("readelf"), "readelf", "llvm-readelf")

	if tc.Emulator, err = findTool(env, "QEMU", target.Emulator, target.Emulator+"-static"); err != nil {
		return Toolchain{}, configError("no emulator for %s: set QEMU or install %s: %v", target, target.Emulator, err)
	}

	return tc, nil
}

// findTool returns the override from env if set, otherwise the first
// candidate found on PATH.
func findTool(env Env, key string, candidates ...string) (string, error) {
	if v := env.Value(key); len(v) > 0 {
		return v, nil
	}

	var err error
	for _, candidate := range candidates {
		var fname string
		if fname, err = findExecutable(candidate); err == nil {
			return fname, nil
		}
	}
	return "", err
}

func findExecutable(cmd string) (string, error) {
	fname, err := lookPath(cmd)
	if err == nil {
		fname, err = filepath.Abs(fname)
	}
	return fname, err
}

func isClang(cc string) bool {
	return strings.HasPrefix(filepath.Base(cc), "clang")
}

// CompilerFor returns the driver for a build: CXX for C++ sources.
func (t Toolchain) CompilerFor(config BuildConfig) (string, error) {
	if !config.IsCXX() {
		return t.CC, nil
	}
	if len(t.CXX) == 0 {
		return "", configError("C++ sources given but no C++ compiler found: set CXX")
	}
	return t.CXX, nil
}

// Version asks the C compiler for its version via -dumpversion.
func (t Toolchain) Version(ctx context.Context, executor Executor) (string, error) {
	result, err := executor.Run(ctx, Command{Path: t.CC, Args: []string{"-dumpversion"}})
	if err != nil {
		return "", err
	}
	if result.ExitCode != 0 {
		return "", &ToolError{
			Kind:     ErrToolchainFailure,
			Tool:     t.CC,
			Args:     []string{"-dumpversion"},
			ExitCode: result.ExitCode,
			Output:   result.Output(),
		}
	}
	return strings.TrimSpace(string(result.Stdout)), nil
}

// CheckVersion warns when the compiler is older than the target requires.
// It returns false only when the version is known to be too old.
func (t Toolchain) CheckVersion(ctx context.Context, executor Executor, target targets.TargetInfo, log *slog.Logger) bool {
	if len(target.MinCompilerVersion) == 0 {
		return true
	}

	version, err := t.Version(ctx, executor)
	if err != nil {
		log.Debug("could not determine compiler version", "cc", t.CC, "error", err)
		return true
	}

	have := canonicalVersion(version)
	want := canonicalVersion(target.MinCompilerVersion)
	if !semver.IsValid(have) || !semver.IsValid(want) {
		log.Debug("unparsable compiler version", "cc", t.CC, "version", version)
		return true
	}

	if semver.Compare(have, want) < 0 {
		log.Warn("compiler is older than recommended", "cc", t.CC, "version", version, "minimum", target.MinCompilerVersion)
		return false
	}
	return true
}

// canonicalVersion turns "13.2.0" or "13" into a semver string.
func canonicalVersion(v string) string {
	v = strings.TrimSpace(v)
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return semver.Canonical(v)
}

func hostMachineFallback() string {
	return normalizedMachine(runtime.GOARCH)
}

func normalizedMachine(m string) string {
	return targets.NormalizeMachine(m)
}
