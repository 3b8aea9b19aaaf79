//go:build !unix

package process

import "os/exec"

func configureCmdSysProcAttr(*exec.Cmd) {}
