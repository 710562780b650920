package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/desertthunder/ytplay/internal/shared"
)

// Verb is the single-letter console command at the start of a line.
type Verb string

const (
	LoadVerb     Verb = "l"
	PlayVerb     Verb = "p"
	SeekVerb     Verb = "s"
	NextVerb     Verb = "n"
	PreviousVerb Verb = "b"
	AppendVerb   Verb = "a"
	QuitVerb     Verb = "q"
)

// Line is one parsed console line.
type Line struct {
	Verb    Verb
	Query   string  // search words for l, p and a
	Seconds float64 // target position for s
}

// Toggle reports whether the line flips play/pause of the loaded song instead of searching.
func (l Line) Toggle() bool {
	return l.Verb == PlayVerb && l.Query == ""
}

var usage = []string{
	"l <words>  search and load the first result",
	"p          toggle play/pause",
	"p <words>  search and play the first result",
	"s <sec>    seek to a position",
	"n / b      next / previous queue entry",
	"a <words>  search and queue the first result",
	"q          quit the server",
}

// ParseLine splits text into a verb and its arguments.
func ParseLine(text string) (Line, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return Line{}, fmt.Errorf("%w: empty line", shared.ErrMissingArgument)
	}

	line := Line{Verb: Verb(fields[0])}
	rest := strings.Join(fields[1:], " ")

	switch line.Verb {
	case LoadVerb, AppendVerb:
		if rest == "" {
			return Line{}, fmt.Errorf("%w: %s needs search words", shared.ErrMissingArgument, line.Verb)
		}
		line.Query = rest
	case PlayVerb:
		line.Query = rest
	case SeekVerb:
		if len(fields) != 2 {
			return Line{}, fmt.Errorf("%w: s takes one position in seconds", shared.ErrMissingArgument)
		}
		seconds, err := strconv.ParseFloat(fields[1], 64)
		if err != nil || seconds < 0 {
			return Line{}, fmt.Errorf("%w: invalid position %q", shared.ErrInvalidArgument, fields[1])
		}
		line.Seconds = seconds
	case NextVerb, PreviousVerb, QuitVerb:
		if rest != "" {
			return Line{}, fmt.Errorf("%w: %s takes no arguments", shared.ErrInvalidArgument, line.Verb)
		}
	default:
		return Line{}, fmt.Errorf("%w: invalid command %s", shared.ErrInvalidInput, fields[0])
	}

	return line, nil
}
