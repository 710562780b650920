package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"testing"
)

func TestDecodeRequest(t *testing.T) {
	tc := []struct {
		name    string
		frame   string
		want    Request
		wantErr *Error
	}{
		{
			name:  "command with arguments",
			frame: `{"command":"play","arguments":{"source":"abc","song":"Song"}}`,
			want:  Request{Command: "play", Arguments: Arguments{"source": "abc", "song": "Song"}},
		},
		{
			name:  "missing arguments stays nil",
			frame: `{"command":"next"}`,
			want:  Request{Command: "next"},
		},
		{
			name:  "null arguments stays nil",
			frame: `{"command":"next","arguments":null}`,
			want:  Request{Command: "next"},
		},
		{name: "malformed json", frame: `{"command":`, wantErr: ErrUnknown},
		{name: "not json at all", frame: `play please`, wantErr: ErrUnknown},
		{name: "array frame", frame: `["play"]`, wantErr: ErrCommandNotFound},
		{name: "missing command", frame: `{"arguments":{}}`, wantErr: ErrCommandNotFound},
		{name: "empty command", frame: `{"command":""}`, wantErr: ErrCommandNotFound},
		{name: "numeric command", frame: `{"command":7}`, wantErr: ErrCommandNotFound},
		{name: "arguments not an object", frame: `{"command":"seek","arguments":[30]}`, wantErr: ErrInvalidArguments},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeRequest([]byte(tt.frame))
			if tt.wantErr != nil {
				if err != tt.wantErr {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DecodeRequest() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestEnvelopeEncoding(t *testing.T) {
	t.Run("failure shape", func(t *testing.T) {
		data, err := Encode(Failure(ErrNoSongProvided))
		if err != nil {
			t.Fatalf("encode failed: %v", err)
		}
		want := `{"error":true,"code":"NO_SONG_PROVIDED","message":"No song was provided"}`
		if string(data) != want {
			t.Errorf("expected %s, got %s", want, data)
		}
	})

	t.Run("quit notice", func(t *testing.T) {
		data, err := Encode(Notice("quit"))
		if err != nil {
			t.Fatalf("encode failed: %v", err)
		}
		if string(data) != `{"command":"quit"}` {
			t.Errorf("unexpected notice: %s", data)
		}
	})

	t.Run("omits absent arguments but keeps empty ones", func(t *testing.T) {
		absent, _ := Encode(Reply("next", nil, Results{"ok": true}))
		if string(absent) != `{"command":"next","results":{"ok":true}}` {
			t.Errorf("unexpected encoding: %s", absent)
		}

		empty, _ := Encode(Reply("next", Arguments{}, Results{"ok": true}))
		if string(empty) != `{"command":"next","arguments":{},"results":{"ok":true}}` {
			t.Errorf("unexpected encoding: %s", empty)
		}
	})

	t.Run("round trip preserves command and arguments", func(t *testing.T) {
		frames := []string{
			`{"command":"play","arguments":{"song":"S","source":"A"},"results":{"success":"song S is now playing"}}`,
			`{"command":"seek","arguments":{"time":42.5},"results":{"state":{"playing":true}}}`,
			`{"command":"search","arguments":{},"results":{"tracks":[]}}`,
		}

		for _, frame := range frames {
			var env Envelope
			if err := json.Unmarshal([]byte(frame), &env); err != nil {
				t.Fatalf("decode %s: %v", frame, err)
			}

			data, err := Encode(env)
			if err != nil {
				t.Fatalf("encode failed: %v", err)
			}

			var before, after map[string]json.RawMessage
			_ = json.Unmarshal([]byte(frame), &before)
			_ = json.Unmarshal(data, &after)

			for _, key := range []string{"command", "arguments"} {
				if string(before[key]) != string(after[key]) {
					t.Errorf("%s changed: %s -> %s", key, before[key], after[key])
				}
			}
		}
	})

	t.Run("decodes failures into taxonomy entries", func(t *testing.T) {
		var env Envelope
		if err := json.Unmarshal([]byte(`{"error":true,"code":"TIMEOUT","message":"x"}`), &env); err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if env.Err != ErrTimeout {
			t.Errorf("expected ErrTimeout, got %v", env.Err)
		}

		if err := json.Unmarshal([]byte(`{"error":true,"code":"NEW_CODE","message":"later"}`), &env); err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if env.Err.Code != "NEW_CODE" || env.Err.Text != "later" {
			t.Errorf("unexpected unknown entry: %+v", env.Err)
		}
	})
}

func TestError(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", ErrNothingLoaded)
	if !errors.Is(wrapped, ErrNothingLoaded) {
		t.Error("expected wrapped error to match")
	}
	if errors.Is(wrapped, ErrTimeout) {
		t.Error("expected different codes not to match")
	}

	seen := map[string]bool{}
	for _, e := range Taxonomy {
		if seen[e.Code] {
			t.Errorf("duplicate code %s", e.Code)
		}
		seen[e.Code] = true
	}
}

func TestArguments(t *testing.T) {
	args := Arguments{
		"query": "hello",
		"blank": "   ",
		"time":  12.5,
		"text":  "30",
		"bad":   "soon",
		"flag":  true,
	}

	t.Run("String", func(t *testing.T) {
		if v, ok := args.String("query"); !ok || v != "hello" {
			t.Errorf("expected hello, got %q %v", v, ok)
		}
		for _, key := range []string{"blank", "time", "missing"} {
			if _, ok := args.String(key); ok {
				t.Errorf("expected %s to be rejected", key)
			}
		}
	})

	t.Run("Number", func(t *testing.T) {
		if v, ok := args.Number("time"); !ok || v != 12.5 {
			t.Errorf("expected 12.5, got %v %v", v, ok)
		}
		if v, ok := args.Number("text"); !ok || v != 30 {
			t.Errorf("expected 30, got %v %v", v, ok)
		}
		for _, key := range []string{"bad", "flag", "missing"} {
			if _, ok := args.Number(key); ok {
				t.Errorf("expected %s to be rejected", key)
			}
		}
	})

	t.Run("nil bag is safe", func(t *testing.T) {
		var empty Arguments
		if _, ok := empty.String("query"); ok {
			t.Error("expected missing key")
		}
		if empty.Has("query") {
			t.Error("expected missing key")
		}
	})
}
