package builder

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/shreethaar/rev-arm/targets"
)

// DiscoverLibPath returns the first candidate root that holds the target's
// dynamic linker. Candidates are QEMU_LD_PREFIX, the compiler's
// -print-sysroot and the target's known sysroots, in that order. It returns ""
// if none qualifies.
func (b *Builder) DiscoverLibPath(ctx context.Context, target targets.TargetInfo) string {
	for _, root := range b.sysrootCandidates(ctx, target) {
		if hasInterpreter(root, target.Interpreter) {
			b.log.Debug("found dynamic linker", "root", root, "interpreter", target.Interpreter)
			return root
		}
		b.log.Debug("no dynamic linker in sysroot", "root", root, "interpreter", target.Interpreter)
	}
	return ""
}

func (b *Builder) sysrootCandidates(ctx context.Context, target targets.TargetInfo) []string {
	var candidates []string
	if prefix := b.env.Value("QEMU_LD_PREFIX"); len(prefix) > 0 {
		candidates = append(candidates, prefix)
	}

	if len(b.toolchain.CC) > 0 {
		args := []string{"-print-sysroot"}
		if b.toolchain.Clang {
			args = append([]string{"--target=" + clangTriple(target)}, args...)
		}
		result, err := b.exec.Run(ctx, Command{Path: b.toolchain.CC, Args: args})
		if err == nil && result.ExitCode == 0 {
			if sysroot := strings.TrimSpace(string(result.Stdout)); len(sysroot) > 0 {
				candidates = append(candidates, sysroot)
			}
		}
	}

	return append(candidates, target.Sysroots...)
}

// hasInterpreter reports whether `qemu -L root` would resolve the
// interpreter, i.e. whether it sits directly in root/lib or root/lib64.
// Copies elsewhere in the tree (usr/lib, multiarch subdirectories) are not
// looked up by the emulator and do not count.
func hasInterpreter(root, interpreter string) bool {
	if len(interpreter) == 0 {
		return false
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return false
	}
	for _, dir := range []string{"lib", "lib64"} {
		if _, err := os.Lstat(filepath.Join(root, dir, interpreter)); err == nil {
			return true
		}
	}
	return false
}
