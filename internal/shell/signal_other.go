//go:build !unix

package shell

import "os/exec"

func signalExitCode(*exec.ExitError) int {
	return 1
}
