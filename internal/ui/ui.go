package ui

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/ytplay/internal/commands"
	"github.com/desertthunder/ytplay/internal/formatter"
	"github.com/desertthunder/ytplay/internal/playback"
	"github.com/desertthunder/ytplay/internal/protocol"
)

// maxLines bounds the scrollback kept in the output pane.
const maxLines = 500

// Model represents the console state.
type Model struct {
	ctx      context.Context
	console  *Console
	initial  string
	input    textinput.Model
	output   viewport.Model
	help     help.Model
	keys     keyMap
	lines    []string
	history  []string
	cursor   int
	width    int
	height   int
	pending  int
	quitting bool
}

// NewModel creates a console model. initial, when non-empty, runs as the first line.
func NewModel(ctx context.Context, console *Console, initial string) *Model {
	input := textinput.New()
	input.Prompt = "> "
	input.Placeholder = "l <words>, p, s <sec>, n, b, a <words>, q"
	input.Focus()

	return &Model{
		ctx:     ctx,
		console: console,
		initial: strings.TrimSpace(initial),
		input:   input,
		output:  viewport.New(80, 20),
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Init starts listening for console events and runs the initial line.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.console.Wait()}
	if m.initial != "" {
		cmds = append(cmds, m.submit(m.initial))
	}
	return tea.Batch(cmds...)
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case Msg:
		switch msg.kind {
		case MsgEnvelope:
			m.appendLines(renderEnvelope(msg.data.(protocol.Envelope))...)
			return m, m.console.Wait()
		case MsgNote:
			m.appendLines(msg.data.(string))
			return m, m.console.Wait()
		case MsgLineDone:
			m.pending--
			if err, _ := msg.data.(error); err != nil {
				m.appendLines(styles.err.Render(err.Error()))
			}
			return m, nil
		case MsgClosed:
			m.quitting = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the output pane, the prompt and the key help.
func (m *Model) View() string {
	if m.quitting {
		return styles.warn.Render("Goodbye") + "\n"
	}

	var helpView string
	if m.help.ShowAll {
		helpView = m.help.FullHelpView(m.keys.FullHelp()) + "\n" + styles.help.Render(strings.Join(usage, "\n"))
	} else {
		helpView = m.help.ShortHelpView(m.keys.ShortHelp())
	}

	title := styles.title.Render("ytplay")
	if m.pending > 0 {
		title += " " + styles.help.Render("working...")
	}
	return fmt.Sprintf("%s\n%s\n\n%s\n%s", title, m.output.View(), m.input.View(), helpView)
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.help):
		m.help.ShowAll = !m.help.ShowAll
		m.resize()
		return m, nil
	case key.Matches(msg, m.keys.enter):
		text := strings.TrimSpace(m.input.Value())
		m.input.SetValue("")
		if text == "" {
			return m, nil
		}
		return m, m.submit(text)
	case key.Matches(msg, m.keys.previous):
		m.recall(-1)
		return m, nil
	case key.Matches(msg, m.keys.next):
		m.recall(1)
		return m, nil
	case key.Matches(msg, m.keys.pageUp, m.keys.pageDown):
		var cmd tea.Cmd
		m.output, cmd = m.output.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit echoes text, records it in the history and runs it in the background.
func (m *Model) submit(text string) tea.Cmd {
	m.history = append(m.history, text)
	m.cursor = len(m.history)
	m.appendLines(styles.echo.Render("> " + text))

	line, err := ParseLine(text)
	if err != nil {
		m.appendLines(styles.err.Render(err.Error()))
		return nil
	}

	m.pending++
	ctx := m.ctx
	return func() tea.Msg {
		return lineDoneMsg(m.console.Run(ctx, line))
	}
}

func (m *Model) recall(step int) {
	if len(m.history) == 0 {
		return
	}
	m.cursor = max(0, min(len(m.history), m.cursor+step))
	if m.cursor == len(m.history) {
		m.input.SetValue("")
		return
	}
	m.input.SetValue(m.history[m.cursor])
	m.input.CursorEnd()
}

func (m *Model) appendLines(lines ...string) {
	m.lines = append(m.lines, lines...)
	if over := len(m.lines) - maxLines; over > 0 {
		m.lines = m.lines[over:]
	}
	m.output.SetContent(strings.Join(m.lines, "\n"))
	m.output.GotoBottom()
}

func (m *Model) resize() {
	if m.width == 0 {
		return
	}
	reserved := 6
	if m.help.ShowAll {
		reserved += len(usage) + 3
	}
	m.output.Width = m.width
	m.output.Height = max(1, m.height-reserved)
	m.input.Width = max(10, m.width-4)
	m.help.Width = m.width
}

// renderEnvelope turns one protocol message into console lines.
func renderEnvelope(env protocol.Envelope) []string {
	if env.IsError() {
		return []string{styles.err.Render(fmt.Sprintf("%s: %s", env.Err.Code, env.Err.Text))}
	}

	switch env.Command {
	case commands.QuitCommand:
		return []string{styles.warn.Render("Server is shutting down")}
	case commands.SearchCommand:
		tracks, err := commands.Tracks(env.Results)
		if err != nil {
			return []string{styles.err.Render(err.Error())}
		}
		if len(tracks) == 0 {
			return []string{styles.warn.Render("No results")}
		}
		data, _ := formatter.TracksToText(tracks)
		return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	}

	if msg, ok := env.Results["success"].(string); ok {
		return []string{styles.ok.Render(msg)}
	}
	if st, ok := decodeState(env.Results["state"]); ok {
		return []string{styles.ok.Render(fmt.Sprintf("%s: %s", env.Command, describeState(st)))}
	}
	return []string{env.Command}
}

func describeState(st playback.State) string {
	if st.Idle() {
		return fmt.Sprintf("nothing loaded, %d queued", len(st.Queue))
	}
	return fmt.Sprintf("%s (%s) %d/%d", st.Song, st.Status(), st.Position+1, len(st.Queue))
}

// decodeState accepts the typed state as well as its JSON-decoded form.
func decodeState(v any) (playback.State, bool) {
	switch s := v.(type) {
	case nil:
		return playback.State{}, false
	case playback.State:
		return s, true
	default:
		data, err := json.Marshal(s)
		if err != nil {
			return playback.State{}, false
		}
		var st playback.State
		if err := json.Unmarshal(data, &st); err != nil {
			return playback.State{}, false
		}
		return st, true
	}
}
