package ui

import (
	"github.com/charmbracelet/lipgloss"
)

const (
	colorAccent = lipgloss.Color("#7D56F4")
	colorOK     = lipgloss.Color("#04B575")
	colorError  = lipgloss.Color("#FF0000")
	colorWarn   = lipgloss.Color("#FFA500")
	colorMuted  = lipgloss.Color("#626262")
)

var styles = newPalette()

// palette names the console's output styles: replies in ok, protocol errors in err, notices in warn and the
// user's own lines in echo.
type palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
	echo  lipgloss.Style
}

func newPalette() palette {
	fg := func(c lipgloss.Color) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(c)
	}

	return palette{
		title: fg(colorAccent).Bold(true).MarginBottom(1),
		ok:    fg(colorOK).Bold(true),
		err:   fg(colorError).Bold(true),
		warn:  fg(colorWarn),
		help:  fg(colorMuted).Italic(true),
		echo:  fg(colorMuted),
	}
}
