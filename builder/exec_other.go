//go:build !unix

package builder

import "os/exec"

func configureProcessGroup(cmd *exec.Cmd) {}

func HostMachine() string {
	return hostMachineFallback()
}
