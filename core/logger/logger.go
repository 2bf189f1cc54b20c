package logger

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Event names recorded by the shell.
const (
	EventSessionStart   = "session_start"
	EventSessionEnd     = "session_end"
	EventRunCommand     = "run_command"
	EventUnknownCommand = "unknown_command"
	EventBuiltin        = "builtin"
	EventParseError     = "parse_error"
	EventOpenTTYLog     = "open_tty_log"
)

// LogEntry is a single event.
type LogEntry struct {
	TimestampMicros int64
	SessionID       string
	Event           string
	Fields          map[string]interface{}
}

// GetString returns the named field if it's a string.
func (le *LogEntry) GetString(name string) string {
	s, _ := le.Fields[name].(string)
	return s
}

// GetNumber returns the named field if it's numeric.
func (le *LogEntry) GetNumber(name string) float64 {
	switch v := le.Fields[name].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

// GetStrings returns the named field if it's a list, non-string elements are
// formatted.
func (le *LogEntry) GetStrings(name string) []string {
	var out []string
	switch v := le.Fields[name].(type) {
	case []string:
		return v
	case []interface{}:
		for _, elem := range v {
			if s, ok := elem.(string); ok {
				out = append(out, s)
			} else {
				out = append(out, fmt.Sprint(elem))
			}
		}
	}
	return out
}

func (le *LogEntry) toStruct() (*structpb.Struct, error) {
	fields := make(map[string]interface{}, len(le.Fields))
	for k, v := range le.Fields {
		// structpb only understands generic lists.
		if strs, ok := v.([]string); ok {
			generic := make([]interface{}, len(strs))
			for i, s := range strs {
				generic[i] = s
			}
			v = generic
		}
		fields[k] = v
	}

	return structpb.NewStruct(map[string]interface{}{
		"timestamp_micros": le.TimestampMicros,
		"session_id":       le.SessionID,
		"event":            le.Event,
		"fields":           fields,
	})
}

func fromStruct(s *structpb.Struct) *LogEntry {
	raw := s.AsMap()
	le := &LogEntry{}
	if ts, ok := raw["timestamp_micros"].(float64); ok {
		le.TimestampMicros = int64(ts)
	}
	le.SessionID, _ = raw["session_id"].(string)
	le.Event, _ = raw["event"].(string)
	le.Fields, _ = raw["fields"].(map[string]interface{})
	if le.Fields == nil {
		le.Fields = make(map[string]interface{})
	}
	return le
}

// LogRecorder is a callback that stores events in an external datastore.
type LogRecorder func(le *LogEntry) error

// Logger captures interaction event logs for the shell.
type Logger struct {
	Record LogRecorder
}

// NewJSONLinesLogRecorder creates a Logger that exports logs in newline
// delimited JSON object format.
func NewJSONLinesLogRecorder(w io.Writer) *Logger {
	var mu sync.Mutex
	return &Logger{
		Record: func(le *LogEntry) error {
			st, err := le.toStruct()
			if err != nil {
				return err
			}
			entry, err := protojson.Marshal(st)
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			_, err = fmt.Fprintln(w, string(entry))
			return err
		},
	}
}

// NewNopLogger creates a Logger that discards all events.
func NewNopLogger() *Logger {
	return &Logger{
		Record: func(*LogEntry) error { return nil },
	}
}

func (l *Logger) record(sessionID, event string, fields map[string]interface{}) error {
	le := &LogEntry{}
	le.TimestampMicros = time.Now().UnixNano() / int64(time.Microsecond)
	le.SessionID = sessionID
	le.Event = event
	le.Fields = fields

	return l.Record(le)
}

// NewSession creates a logger with attached session ID.
func (l *Logger) NewSession() *SessionLogger {
	return &SessionLogger{Logger: l, sessionID: uuid.NewString()}
}

// Sessionless creates a logger without a session ID.
func (l *Logger) Sessionless() *SessionLogger {
	return &SessionLogger{Logger: l, sessionID: ""}
}

// SessionLogger logs messages with a shared session ID.
type SessionLogger struct {
	*Logger
	sessionID string
}

// SessionID returns the ID attached to every event.
func (l *SessionLogger) SessionID() string {
	return l.sessionID
}

// Record logs a custom event.
func (l *SessionLogger) Record(event string, fields map[string]interface{}) error {
	return l.record(l.sessionID, event, fields)
}

func (l *SessionLogger) LogSessionStart(wd string) error {
	return l.Record(EventSessionStart, map[string]interface{}{"wd": wd})
}

func (l *SessionLogger) LogSessionEnd(reason string) error {
	return l.Record(EventSessionEnd, map[string]interface{}{"reason": reason})
}

func (l *SessionLogger) LogRunCommand(argv []string, directive string, status int) error {
	return l.Record(EventRunCommand, map[string]interface{}{
		"command":   argv,
		"directive": directive,
		"status":    status,
	})
}

func (l *SessionLogger) LogUnknownCommand(argv []string, err error) error {
	return l.Record(EventUnknownCommand, map[string]interface{}{
		"command": argv,
		"error":   err.Error(),
	})
}

func (l *SessionLogger) LogBuiltin(argv []string, status int) error {
	return l.Record(EventBuiltin, map[string]interface{}{
		"command": argv,
		"status":  status,
	})
}

func (l *SessionLogger) LogParseError(line string, err error) error {
	return l.Record(EventParseError, map[string]interface{}{
		"line":  line,
		"error": err.Error(),
	})
}

func (l *SessionLogger) LogOpenTTYLog(name string) error {
	return l.Record(EventOpenTTYLog, map[string]interface{}{"name": name})
}
