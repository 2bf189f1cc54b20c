package ttylog

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeConversions(t *testing.T) {
	cases := map[string]struct {
		microseconds int64
		seconds      float64
	}{
		"precision": {
			microseconds: 1,
			seconds:      1e-6,
		},
		"negative": {
			microseconds: -631119539e6,
			seconds:      -631119539,
		},
		"positive": {
			microseconds: 631119539e6,
			seconds:      631119539,
		},
		"bigprecise": {
			microseconds: 123456789987654,
			seconds:      123456789.987654,
		},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			s2m := secondsToMicroseconds(tc.seconds)
			m2s := microsecondsToSeconds(tc.microseconds)

			// Only allow delta to be to the NS
			assert.InDelta(t, m2s, tc.seconds, float64(time.Nanosecond)/float64(time.Second))
			assert.Equal(t, s2m, tc.microseconds)
		})
	}
}

func TestAsciicastRoundTrip(t *testing.T) {
	entries := []*Entry{
		{TimestampMicros: 1000000, Op: OpIO, FD: FDStdout, Data: []byte("/tmp$ ")},
		{TimestampMicros: 1500000, Op: OpIO, FD: FDStdin, Data: []byte("ls\n")},
		{TimestampMicros: 1750000, Op: OpIO, FD: FDStderr, Data: []byte("oops\n")},
		{TimestampMicros: 2000000, Op: OpClose, FD: FDStdout},
	}

	var buf bytes.Buffer
	sink := NewAsciicastLogSink(&buf)
	for _, e := range entries {
		assert.Nil(t, sink(e))
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 4, "header plus one line per I/O event")
	assert.Equal(t, `[0,"o","/tmp$ "]`, lines[1])
	assert.Equal(t, `[0.5,"i","ls\n"]`, lines[2])

	var got []*Entry
	assert.Nil(t, Replay(NewAsciicastLogSource(&buf), func(e *Entry) error {
		got = append(got, e)
		return nil
	}))

	assert.Equal(t, []*Entry{
		{TimestampMicros: 0, Op: OpIO, FD: FDStdout, Data: []byte("/tmp$ ")},
		{TimestampMicros: 500000, Op: OpIO, FD: FDStdin, Data: []byte("ls\n")},
		{TimestampMicros: 750000, Op: OpIO, FD: FDStdout, Data: []byte("oops\n")},
	}, got)
}

func TestAsciicastLogSource_noTrailingNewline(t *testing.T) {
	src := NewAsciicastLogSource(strings.NewReader("{}\n\n[1.5, \"o\", \"hi\"]"))

	e, err := src.Next()
	assert.Nil(t, err)
	assert.Equal(t, []byte("hi"), e.Data)

	_, err = src.Next()
	assert.Equal(t, io.EOF, err)
}

func TestAsciicastLogLine_malformed(t *testing.T) {
	var line asciicastLogLine
	assert.Error(t, json.Unmarshal([]byte(`[1, "o"]`), &line))
	assert.Error(t, json.Unmarshal([]byte(`["1", "o", "x"]`), &line))
}
