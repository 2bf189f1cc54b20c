package ttylog

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"time"
)

type umlOp int32

const (
	opOpen  umlOp = 1
	opClose umlOp = 2
	opWrite umlOp = 3
	opExec  umlOp = 4
)

type umlDir int32

const (
	dirRead  umlDir = 1
	dirWrite umlDir = 2
)

// UMLFileExt holds the suggested file extension for user-mode-linux files.
const UMLFileExt = "log"

type umlEvent struct {
	Operation    int32  // Operation, maps into umlOp.
	Tty          uint32 // Should always be 0.
	Size         int32  // Number of bytes following this event that represent the data.
	Direction    int32  // Data direction, maps into umlDir.
	Seconds      uint32 // UNIX timestamp of the event.
	Microseconds uint32 // Microseconds after the timestamp of the event.
}

func writeUMLEvent(out io.Writer, timestampMicros int64, fd FD, op umlOp, data []byte) error {
	direction := dirWrite
	if fd == FDStdin {
		direction = dirRead
	}

	header := umlEvent{
		Operation:    int32(op),
		Size:         int32(len(data)),
		Direction:    int32(direction),
		Seconds:      uint32(timestampMicros / int64(time.Second/time.Microsecond)),
		Microseconds: uint32(timestampMicros % int64(time.Second/time.Microsecond)),
	}
	if err := binary.Write(out, binary.LittleEndian, &header); err != nil {
		return err
	}

	if len(data) > 0 {
		if _, err := out.Write(data); err != nil {
			return err
		}
	}

	return nil
}

// NewUMLLogSink creates a LogSink compatible with the user-mode-linux TTY
// recording format, the same one Kippo uses.
func NewUMLLogSink(w io.Writer) LogSink {
	return func(e *Entry) error {
		switch e.Op {
		case OpIO:
			return writeUMLEvent(w, e.TimestampMicros, e.FD, opWrite, e.Data)
		case OpClose:
			return writeUMLEvent(w, e.TimestampMicros, e.FD, opClose, nil)
		default:
			return fmt.Errorf("unknown op: %d", e.Op)
		}
	}
}

// UMLLogSource parses log events from a user-mode-linux/Kippo formatted file.
type UMLLogSource struct {
	r io.Reader
}

var _ LogSource = (*UMLLogSource)(nil)

// NewUMLLogSource reads log events from a user-mode-linux/Kippo formatted file.
func NewUMLLogSource(r io.Reader) *UMLLogSource {
	return &UMLLogSource{r: r}
}

// Next gets the next log entry, it returns io.EOF if there are no more.
func (log *UMLLogSource) Next() (*Entry, error) {
	var header umlEvent
	buf := &bytes.Buffer{}

	for {
		switch err := binary.Read(log.r, binary.LittleEndian, &header); err {
		case nil:
		case io.ErrUnexpectedEOF:
			return nil, fmt.Errorf("truncated event header: %w", err)
		default:
			return nil, err
		}

		buf.Reset()
		if _, err := io.CopyN(buf, log.r, int64(header.Size)); err != nil {
			return nil, fmt.Errorf("truncated event data: %w", err)
		}

		timestampMicros := int64(header.Seconds)*int64(time.Second/time.Microsecond) + int64(header.Microseconds)

		// UML doesn't distinguish between stdout and stderr so everything
		// written is reported as stdout.
		fd := FDStdout
		if umlDir(header.Direction) == dirRead {
			fd = FDStdin
		}

		switch umlOp(header.Operation) {
		case opClose:
			return &Entry{TimestampMicros: timestampMicros, Op: OpClose, FD: fd}, nil
		case opWrite:
			return &Entry{TimestampMicros: timestampMicros, Op: OpIO, FD: fd, Data: buf.Bytes()}, nil
		default:
			// Skip unknown or non-I/O operations
			continue
		}
	}
}
