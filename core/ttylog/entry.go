// Package ttylog records terminal sessions and converts them between the
// user-mode-linux and asciicast formats.
package ttylog

import "fmt"

// FD identifies the stream an event happened on.
type FD int

const (
	FDStdin FD = iota
	FDStdout
	FDStderr
)

func (fd FD) String() string {
	switch fd {
	case FDStdin:
		return "stdin"
	case FDStdout:
		return "stdout"
	case FDStderr:
		return "stderr"
	default:
		return fmt.Sprintf("FD(%d)", int(fd))
	}
}

// Op is the operation recorded by an Entry.
type Op int

const (
	// OpIO means Data was read from or written to FD.
	OpIO Op = iota
	// OpClose means FD was closed.
	OpClose
)

// Entry is a single recorded terminal event.
type Entry struct {
	TimestampMicros int64
	Op              Op
	FD              FD
	Data            []byte
}
