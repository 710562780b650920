package protocol

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Arguments is the command-specific argument bag of a request.
type Arguments map[string]any

// Results is the command-specific payload of a success envelope.
type Results map[string]any

// Request is a decoded client envelope.
//
// Arguments is nil when the client omitted the field, which keeps the echo in the reply verbatim.
type Request struct {
	Command   string
	Arguments Arguments
}

// Envelope is one protocol message. Exactly one of the success fields or Err is meaningful.
type Envelope struct {
	Command   string
	Arguments Arguments
	Results   Results
	Err       *Error
}

type successWire struct {
	Command   string     `json:"command"`
	Arguments *Arguments `json:"arguments,omitempty"`
	Results   Results    `json:"results,omitempty"`
}

type failureWire struct {
	Error   bool   `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type anyWire struct {
	Command   string          `json:"command"`
	Arguments json.RawMessage `json:"arguments"`
	Results   Results         `json:"results"`
	Error     bool            `json:"error"`
	Code      string          `json:"code"`
	Message   string          `json:"message"`
}

// Reply builds a success envelope echoing command and arguments.
func Reply(command string, args Arguments, results Results) Envelope {
	return Envelope{Command: command, Arguments: args, Results: results}
}

// Failure builds an error envelope.
func Failure(err *Error) Envelope {
	return Envelope{Err: err}
}

// Notice builds a server-initiated envelope with no arguments or results, such as the quit notice.
func Notice(command string) Envelope {
	return Envelope{Command: command}
}

// IsError reports whether the envelope is a failure.
func (e Envelope) IsError() bool {
	return e.Err != nil
}

// MarshalJSON implements [json.Marshaler] producing the canonical success or failure shape.
func (e Envelope) MarshalJSON() ([]byte, error) {
	if e.Err != nil {
		return json.Marshal(failureWire{Error: true, Code: e.Err.Code, Message: e.Err.Text})
	}

	w := successWire{Command: e.Command, Results: e.Results}
	if e.Arguments != nil {
		args := e.Arguments
		w.Arguments = &args
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements [json.Unmarshaler] accepting any server envelope shape.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var w anyWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	if w.Error {
		*e = Envelope{Err: Lookup(w.Code, w.Message)}
		return nil
	}

	*e = Envelope{Command: w.Command, Results: w.Results}
	if len(w.Arguments) > 0 && !bytes.Equal(bytes.TrimSpace(w.Arguments), []byte("null")) {
		if err := json.Unmarshal(w.Arguments, &e.Arguments); err != nil {
			return err
		}
	}
	return nil
}

// Encode serializes an envelope for one websocket text frame.
func Encode(e Envelope) ([]byte, error) {
	return json.Marshal(e)
}

// DecodeRequest decodes one inbound frame.
//
// Malformed JSON yields [ErrUnknown], a value without a string command yields [ErrCommandNotFound],
// and a non-object arguments field yields [ErrInvalidArguments].
func DecodeRequest(data []byte) (Request, *Error) {
	if !json.Valid(data) {
		return Request{}, ErrUnknown
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Request{}, ErrCommandNotFound
	}

	var name string
	if raw, ok := fields["command"]; !ok || json.Unmarshal(raw, &name) != nil || name == "" {
		return Request{}, ErrCommandNotFound
	}

	req := Request{Command: name}
	if raw, ok := fields["arguments"]; ok && !bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		if err := json.Unmarshal(raw, &req.Arguments); err != nil {
			return Request{}, ErrInvalidArguments
		}
	}

	return req, nil
}

// Lookup returns the taxonomy entry for code, or a new entry carrying message when the code is not known locally.
func Lookup(code, message string) *Error {
	for _, e := range Taxonomy {
		if e.Code == code {
			return e
		}
	}
	return &Error{Code: code, Text: message}
}

// String returns the non-empty string stored under key.
func (a Arguments) String(key string) (string, bool) {
	s, ok := a[key].(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

// Number returns the numeric value stored under key, accepting JSON numbers and numeric strings.
func (a Arguments) Number(key string) (float64, bool) {
	switch v := a[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Has reports whether key is present, whatever its value.
func (a Arguments) Has(key string) bool {
	_, ok := a[key]
	return ok
}
