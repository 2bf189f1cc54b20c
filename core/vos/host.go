package vos

import "os"

// hostOS forwards to the real operating system. The working directory is
// the process wide one so children inherit it without help.
type hostOS struct {
	hostEnv
	VIO
}

var _ VOS = (*hostOS)(nil)

// NewHostOS creates a VOS for the running process that uses vio for its
// standard streams.
func NewHostOS(vio VIO) VOS {
	return &hostOS{VIO: vio}
}

func (*hostOS) Getwd() (string, error) {
	return os.Getwd()
}

func (*hostOS) Chdir(dir string) error {
	return os.Chdir(dir)
}
