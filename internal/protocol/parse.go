package protocol

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Separator splits the fields of a line.
const Separator = ":"

var (
	// ErrUnknownTopic is returned for well-formed lines on a topic this
	// bridge does not handle. The peer may add topics at any time.
	ErrUnknownTopic = errors.New("unknown topic")

	// ErrMalformed is returned for lines that do not follow the grammar of
	// a known topic, or have no separator at all.
	ErrMalformed = errors.New("malformed message")
)

// ParseError reports a line that could not be turned into a Message.
type ParseError struct {
	Line string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %q: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parse converts one line (without its newline) into a Message.
//
//	onebtn:pr
//	onebtn:dn:<seconds>
//	onebtn:rl:<seconds>
//	intlk:<channel>:op
//	intlk:<channel>:cl
func Parse(line string) (Message, error) {
	trimmed := strings.TrimSpace(line)
	fields := strings.Split(trimmed, Separator)
	if len(fields) < 2 {
		return Message{}, fail(line, ErrMalformed, "missing separator")
	}

	switch Topic(fields[0]) {
	case TopicOneButton:
		return parseOneButton(line, fields[1:])
	case TopicInterlock:
		return parseInterlock(line, fields[1:])
	default:
		return Message{}, fail(line, ErrUnknownTopic, "topic %q", fields[0])
	}
}

func parseOneButton(line string, fields []string) (Message, error) {
	msg := Message{Topic: TopicOneButton, Subtype: Subtype(fields[0])}

	switch msg.Subtype {
	case SubtypePress:
		if len(fields) != 1 {
			return Message{}, fail(line, ErrMalformed, "press takes no value")
		}
		return msg, nil
	case SubtypeDown, SubtypeRelease:
		if len(fields) != 2 {
			return Message{}, fail(line, ErrMalformed, "%s needs exactly one value", msg.Subtype)
		}
		v, err := strconv.ParseFloat(fields[1], 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return Message{}, fail(line, ErrMalformed, "bad duration %q", fields[1])
		}
		msg.Value = v
		msg.HasValue = true
		return msg, nil
	default:
		return Message{}, fail(line, ErrMalformed, "unknown button subtype %q", fields[0])
	}
}

func parseInterlock(line string, fields []string) (Message, error) {
	if len(fields) != 2 {
		return Message{}, fail(line, ErrMalformed, "interlock needs channel and state")
	}
	ch, err := strconv.Atoi(fields[0])
	if err != nil || ch < 0 {
		return Message{}, fail(line, ErrMalformed, "bad channel %q", fields[0])
	}

	msg := Message{Topic: TopicInterlock, Channel: ch, Subtype: Subtype(fields[1])}
	if msg.Subtype != SubtypeOpen && msg.Subtype != SubtypeClose {
		return Message{}, fail(line, ErrMalformed, "unknown interlock state %q", fields[1])
	}
	return msg, nil
}

func fail(line string, kind error, format string, args ...any) *ParseError {
	return &ParseError{
		Line: line,
		Err:  fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...)),
	}
}
