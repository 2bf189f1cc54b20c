package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// ReadJSONLinesLog parses a newline delimited JSON log.
func ReadJSONLinesLog(r io.Reader, handler func(le *LogEntry)) error {
	decoder := json.NewDecoder(r)
	for decoder.More() {
		var rawEntry json.RawMessage
		if err := decoder.Decode(&rawEntry); err != nil {
			return err
		}

		var st structpb.Struct
		if err := protojson.Unmarshal(rawEntry, &st); err != nil {
			return err
		}

		handler(fromStruct(&st))
	}
	return nil
}

// Report holds statistics about the logged events.
type Report struct {
	LogEntries     int        `json:"log_entries"`
	Sessions       int        `json:"sessions"`
	InvalidEntries StrCounter `json:"unknown_log_entries,omitempty"`

	RunCommand     RunCommandReport     `json:"run_command_report"`
	UnknownCommand UnknownCommandReport `json:"unknown_command_report"`
	Builtin        BuiltinReport        `json:"builtin_report"`
	ParseError     ParseErrorReport     `json:"parse_error_report"`
}

func NewReport() *Report {
	return &Report{
		UnknownCommand: UnknownCommandReport{
			Errors: NewPathCounter("command", "error"),
		},
	}
}

func (r *Report) Update(le *LogEntry) {
	r.LogEntries++

	switch le.Event {
	case EventSessionStart:
		r.Sessions++
	case EventRunCommand:
		r.RunCommand.update(le)
	case EventUnknownCommand:
		r.UnknownCommand.update(le)
	case EventBuiltin:
		r.Builtin.update(le)
	case EventParseError:
		r.ParseError.update(le)
	case EventSessionEnd, EventOpenTTYLog:
		// Ignore
	default:
		r.InvalidEntries.Increment(le.Event)
	}
}

type RunCommandReport struct {
	// Name of the command
	CommandNames StrCounter `json:"command_names"`
	// How frames were chained together
	Directives StrCounter `json:"directives"`
	// Exit statuses of the commands
	Statuses StrCounter `json:"statuses"`
}

func (r *RunCommandReport) update(le *LogEntry) {
	if argv := le.GetStrings("command"); len(argv) > 0 {
		r.CommandNames.Increment(argv[0])
	}
	r.Directives.Increment(le.GetString("directive"))
	r.Statuses.Increment(fmt.Sprint(int(le.GetNumber("status"))))
}

type UnknownCommandReport struct {
	Errors *PathCounter `json:"errors"`
}

func (r *UnknownCommandReport) update(le *LogEntry) {
	if r.Errors == nil {
		r.Errors = NewPathCounter("command", "error")
	}
	name := ""
	if argv := le.GetStrings("command"); len(argv) > 0 {
		name = argv[0]
	}
	r.Errors.Increment(name, le.GetString("error"))
}

type BuiltinReport struct {
	CommandNames StrCounter `json:"command_names"`
	Failures     StrCounter `json:"failures"`
}

func (r *BuiltinReport) update(le *LogEntry) {
	name := ""
	if argv := le.GetStrings("command"); len(argv) > 0 {
		name = argv[0]
	}
	r.CommandNames.Increment(name)
	if le.GetNumber("status") != 0 {
		r.Failures.Increment(name)
	}
}

type ParseErrorReport struct {
	Errors StrCounter `json:"errors"`
}

func (r *ParseErrorReport) update(le *LogEntry) {
	r.Errors.Increment(le.GetString("error"))
}

// InteractionReport groups commands by the session that ran them.
type InteractionReport struct {
	// Map of sessionID -> interactions
	interactions map[string]*InteractiveSession
}

type InteractiveSession struct {
	WorkingDir string   `json:"working_dir"`
	TTYLog     string   `json:"tty_log,omitempty"`
	LogEntries int      `json:"log_entries"`
	Commands   []string `json:"commands"`
	EndReason  string   `json:"end_reason,omitempty"`
}

func (i *InteractiveSession) Update(le *LogEntry) {
	i.LogEntries++

	switch le.Event {
	case EventSessionStart:
		i.WorkingDir = le.GetString("wd")
	case EventRunCommand, EventUnknownCommand, EventBuiltin:
		i.Commands = append(i.Commands, strings.Join(le.GetStrings("command"), " "))
	case EventOpenTTYLog:
		i.TTYLog = le.GetString("name")
	case EventSessionEnd:
		i.EndReason = le.GetString("reason")
	}
}

func (i *InteractionReport) init() {
	if i.interactions == nil {
		i.interactions = make(map[string]*InteractiveSession)
	}
}

// MarshalJSON implements a custom JSON marshaler.
func (i *InteractionReport) MarshalJSON() ([]byte, error) {
	i.init()

	return json.Marshal(i.interactions)
}

func (i *InteractionReport) Update(le *LogEntry) {
	i.init()

	if le.SessionID == "" {
		return
	}
	report, ok := i.interactions[le.SessionID]
	if !ok {
		report = &InteractiveSession{}
		i.interactions[le.SessionID] = report
	}

	report.Update(le)
}

// StrCounter counts the number of strings seen.
type StrCounter struct {
	internal map[string]int
}

// Increment adds one to the given key.
func (s *StrCounter) Increment(toAdd string) {
	if s.internal == nil {
		s.internal = make(map[string]int)
	}

	s.internal[toAdd]++
}

// Count returns the number of times the key was seen.
func (s *StrCounter) Count(key string) int {
	return s.internal[key]
}

// MarshalJSON implements a custom JSON marshaler.
func (s StrCounter) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.internal)
}

func NewPathCounter(cols ...string) *PathCounter {
	return &PathCounter{
		cols:     cols,
		internal: make(map[string]int),
	}
}

// PathCounter counts the number of string tuples seen.
type PathCounter struct {
	cols     []string
	internal map[string]int
}

// Increment adds one to the given key.
func (ctr *PathCounter) Increment(toAdd ...string) {
	if len(toAdd) != len(ctr.cols) {
		panic("wrong number of columns to add")
	}

	ctr.internal[toKey(toAdd...)]++
}

// MarshalJSON implements a custom JSON marshaler.
func (ctr *PathCounter) MarshalJSON() ([]byte, error) {
	type Count struct {
		Count  int               `json:"count"`
		Fields map[string]string `json:"event"`
		Path   string            `json:"-"`
	}

	var out []Count
	for k, v := range ctr.internal {
		count := Count{
			Count:  v,
			Path:   k,
			Fields: make(map[string]string),
		}

		splitPath := fromKey(k)
		for colNum, colVal := range ctr.cols {
			count.Fields[colVal] = splitPath[colNum]
		}

		out = append(out, count)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Path < out[j].Path
		}
		return out[i].Count > out[j].Count
	})

	return json.Marshal(out)
}

func toKey(vals ...string) string {
	key, _ := json.Marshal(vals)
	return string(key)
}

func fromKey(key string) (out []string) {
	json.Unmarshal([]byte(key), &out)
	return
}
