package shell

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTooManyArguments is returned when a frame exceeds Parser.MaxArguments.
	ErrTooManyArguments = errors.New("too many arguments")
	// ErrTooManyOptions is returned when a frame exceeds Parser.MaxOptions.
	ErrTooManyOptions = errors.New("too many options")
)

// Cursor walks the tokens of a line without modifying it.
type Cursor struct {
	line string
	pos  int
}

// NewCursor creates a cursor at the start of line.
func NewCursor(line string) *Cursor {
	return &Cursor{line: line}
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t'
}

// Next returns the next whitespace separated token. ok is false once the line
// is exhausted.
func (c *Cursor) Next() (token string, ok bool) {
	for c.pos < len(c.line) && isSpace(c.line[c.pos]) {
		c.pos++
	}
	if c.pos >= len(c.line) {
		return "", false
	}

	start := c.pos
	for c.pos < len(c.line) && !isSpace(c.line[c.pos]) {
		c.pos++
	}
	return c.line[start:c.pos], true
}

// Remaining returns the text that hasn't been consumed yet.
func (c *Cursor) Remaining() string {
	return strings.TrimLeft(c.line[c.pos:], " \t")
}

// Done reports whether every token has been consumed.
func (c *Cursor) Done() bool {
	return c.Remaining() == ""
}

// Parser turns lines into command frames. The zero value has no limits.
type Parser struct {
	// MaxArguments caps the positional arguments per frame, 0 is unlimited.
	MaxArguments int
	// MaxOptions caps the options per frame, 0 is unlimited.
	MaxOptions int
}

// Parse consumes tokens from c until a directive token or the end of the
// line and returns the frame along with the directive that ended it.
//
// If the line has no more tokens the frame is empty and the directive is
// Exception. Limit violations also produce Exception, an empty frame and
// the error describing the violation.
func (p *Parser) Parse(c *Cursor) (*CommandFrame, Directive, error) {
	frame := &CommandFrame{}

	command, ok := c.Next()
	if !ok {
		return frame, Exception, nil
	}
	frame.Command = command

	directive := Terminated
tokens:
	for {
		token, ok := c.Next()
		if !ok {
			break
		}

		switch {
		case token == ParallelToken:
			directive = Parallel
			break tokens
		case token == SequentialToken:
			directive = Sequential
			break tokens
		case token == PipeToken:
			directive = Pipeline
			break tokens
		case token == RedirectionToken:
			if err := p.addArgument(frame, token); err != nil {
				return p.abandon(frame, err)
			}
			// A trailing ">" clears the target rather than failing.
			frame.RedirectTarget, _ = c.Next()
		case strings.HasPrefix(token, "-"):
			if p.MaxOptions > 0 && len(frame.Options) >= p.MaxOptions {
				return p.abandon(frame, ErrTooManyOptions)
			}
			frame.Options = append(frame.Options, token)
		default:
			if err := p.addArgument(frame, token); err != nil {
				return p.abandon(frame, err)
			}
		}
	}

	splitCommandRedirect(frame)
	return frame, directive, nil
}

func (p *Parser) addArgument(frame *CommandFrame, arg string) error {
	if p.MaxArguments > 0 && len(frame.Arguments) >= p.MaxArguments {
		return ErrTooManyArguments
	}
	frame.Arguments = append(frame.Arguments, arg)
	return nil
}

func (p *Parser) abandon(frame *CommandFrame, err error) (*CommandFrame, Directive, error) {
	command := frame.Command
	frame.Release()
	return frame, Exception, fmt.Errorf("%s: %w", command, err)
}

// splitCommandRedirect handles redirection written without spaces in the
// command token, e.g. "ls>out.txt". Only the command token is checked.
func splitCommandRedirect(frame *CommandFrame) {
	idx := strings.Index(frame.Command, RedirectionToken)
	if idx < 0 {
		return
	}

	if target := frame.Command[idx+1:]; target != "" {
		frame.RedirectTarget = target
	}
	frame.Command = frame.Command[:idx]
}

// ParseLine parses every frame on line. Parsing stops at the first frame
// that doesn't continue the line.
func (p *Parser) ParseLine(line string) ([]*CommandFrame, []Directive, error) {
	var (
		frames     []*CommandFrame
		directives []Directive
	)

	cursor := NewCursor(line)
	for {
		frame, directive, err := p.Parse(cursor)
		frames = append(frames, frame)
		directives = append(directives, directive)
		if err != nil {
			return frames, directives, err
		}
		if !directive.Continues() {
			return frames, directives, nil
		}
	}
}
