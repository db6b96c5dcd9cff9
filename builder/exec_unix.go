//go:build unix

package builder

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// configureProcessGroup puts the child in its own process group so that a
// cancelled context takes down anything the tool itself spawned.
func configureProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		if err := unix.Kill(-cmd.Process.Pid, unix.SIGKILL); err != nil {
			return cmd.Process.Kill()
		}
		return nil
	}
}

// HostMachine returns the normalized machine name reported by uname.
func HostMachine() string {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return hostMachineFallback()
	}
	return normalizedMachine(unix.ByteSliceToString(uts.Machine[:]))
}
