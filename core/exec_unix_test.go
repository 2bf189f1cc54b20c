//go:build !windows
// +build !windows

package core

import (
	"os"
	"syscall"
	"testing"
)

func currentUmask(t *testing.T) os.FileMode {
	t.Helper()

	mask := syscall.Umask(0)
	syscall.Umask(mask)
	return os.FileMode(mask)
}
