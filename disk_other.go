//go:build !linux && !darwin && !freebsd

package logpp

import (
	"runtime"
)

func diskFreeSpace(dir string) (int64, error) {
	return 0, fmtErrorf("free disk space of '%s' is not available on %s", dir, runtime.GOOS)
}
