//go:build !unix

package launch

import (
	"strconv"
	"syscall"
)

func errnoName(errno syscall.Errno) string {
	return "errno " + strconv.FormatUint(uint64(errno), 10)
}
