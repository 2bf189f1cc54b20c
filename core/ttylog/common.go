package ttylog

import (
	"io"
	"log"
	"regexp"
	"sync"
	"time"

	"github.com/josephlewis42/cshell/core/vos"
)

var (
	crlf = regexp.MustCompile(`\r?\n`)
)

// LogSink receives log events.
type LogSink func(e *Entry) error

// LogSource adapts log readers.
type LogSource interface {
	// Next fetches the next available log entry. It returns io.EOF if the
	// source has no more log entries.
	Next() (*Entry, error)
}

// NewRealTimePlayback plays back the results in real-time.
// If maxSleep > 0, it's used as the maximum duration to pause.
func NewRealTimePlayback(maxSleep time.Duration, next LogSink) LogSink {
	var once sync.Once
	var prevTimeMicros int64

	return func(e *Entry) error {
		once.Do(func() {
			prevTimeMicros = e.TimestampMicros
		})

		delta := e.TimestampMicros - prevTimeMicros
		prevTimeMicros = e.TimestampMicros

		if maxSleep > 0 && delta > 0 {
			sleepDuration := time.Duration(delta) * time.Microsecond
			if sleepDuration > maxSleep {
				sleepDuration = maxSleep
			}
			time.Sleep(sleepDuration)
		}

		return next(e)
	}
}

// NewCRLFAdapter rewrites bare newlines to CRLF so playback in a raw
// terminal returns the cursor to the start of the line.
func NewCRLFAdapter(next LogSink) LogSink {
	return func(e *Entry) error {
		if e.Op == OpIO {
			e.Data = crlf.ReplaceAll(e.Data, []byte("\r\n"))
		}

		return next(e)
	}
}

// NewClientOutput writes stdout and stderr to the given writer.
func NewClientOutput(w io.Writer) LogSink {
	return func(e *Entry) error {
		if e.Op == OpIO && e.FD != FDStdin {
			if _, err := w.Write(e.Data); err != nil {
				return err
			}
		}
		return nil
	}
}

// Replay reads a stream of events to a callback.
func Replay(recording LogSource, callback LogSink) error {
	for {
		e, err := recording.Next()
		switch {
		case err == io.EOF:
			return nil
		case err != nil:
			return err
		}

		if err := callback(e); err != nil {
			return err
		}
	}
}

// Recorder is a VIO that copies all traffic on the wrapped streams to a
// LogSink.
type Recorder struct {
	*vos.VIOAdapter
	mutex  sync.Mutex
	output LogSink
	logger *log.Logger
}

func (r *Recorder) record(fd FD, op Op, data []byte) {
	e := &Entry{
		TimestampMicros: time.Now().UnixMicro(),
		Op:              op,
		FD:              fd,
		Data:            append([]byte(nil), data...),
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()
	if err := r.output(e); err != nil {
		r.logger.Print(err)
	}
}

var _ vos.VIO = (*Recorder)(nil)

type recorderReadCloser struct {
	r       *Recorder
	fd      FD
	wrapped io.ReadCloser
}

var _ io.ReadCloser = (*recorderReadCloser)(nil)
var _ vos.ReadUnwrapper = (*recorderReadCloser)(nil)

func (rc *recorderReadCloser) Read(p []byte) (int, error) {
	amount, err := rc.wrapped.Read(p)
	if amount > 0 {
		rc.r.record(rc.fd, OpIO, p[:amount])
	}
	return amount, err
}

func (rc *recorderReadCloser) Close() error {
	rc.r.record(rc.fd, OpClose, nil)
	return rc.wrapped.Close()
}

// Unwrap returns the recorded reader so child processes can use the
// terminal directly.
func (rc *recorderReadCloser) Unwrap() io.ReadCloser {
	return rc.wrapped
}

type recorderWriteCloser struct {
	r       *Recorder
	fd      FD
	wrapped io.WriteCloser
}

var _ io.WriteCloser = (*recorderWriteCloser)(nil)

func (rc *recorderWriteCloser) Write(p []byte) (int, error) {
	amount, err := rc.wrapped.Write(p)
	if amount > 0 {
		rc.r.record(rc.fd, OpIO, p[:amount])
	}
	return amount, err
}

func (rc *recorderWriteCloser) Close() error {
	rc.r.record(rc.fd, OpClose, nil)
	return rc.wrapped.Close()
}

// NewRecorder creates a VIO that forwards all events to output. Errors
// from output are reported to logger and don't interrupt the session.
func NewRecorder(toWrap vos.VIO, output LogSink, logger *log.Logger) *Recorder {
	recorder := &Recorder{
		output: output,
		logger: logger,
	}

	recorder.VIOAdapter = &vos.VIOAdapter{
		IStdin:  &recorderReadCloser{fd: FDStdin, r: recorder, wrapped: toWrap.Stdin()},
		IStdout: &recorderWriteCloser{fd: FDStdout, r: recorder, wrapped: toWrap.Stdout()},
		IStderr: &recorderWriteCloser{fd: FDStderr, r: recorder, wrapped: toWrap.Stderr()},
	}

	return recorder
}
