package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/ytplay/internal/protocol"
)

// MsgKind enumerates all message types in the console.
type MsgKind int

// Msg represents all possible messages in the console (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgEnvelope MsgKind = iota
	MsgNote
	MsgLineDone
	MsgClosed
)

// Kind reports which constructor built the message.
func (m Msg) Kind() MsgKind {
	return m.kind
}

// envelopeMsg is the constructor for [MsgEnvelope]
func envelopeMsg(env protocol.Envelope) Msg {
	return Msg{kind: MsgEnvelope, data: env}
}

// noteMsg is the constructor for [MsgNote]
func noteMsg(text string) Msg {
	return Msg{kind: MsgNote, data: text}
}

// lineDoneMsg is the constructor for [MsgLineDone]
func lineDoneMsg(err error) Msg {
	return Msg{kind: MsgLineDone, data: err}
}

// closedMsg is the constructor for [MsgClosed]
func closedMsg() Msg {
	return Msg{kind: MsgClosed}
}
