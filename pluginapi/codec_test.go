package pluginapi

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestDecodeRequest(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		action  string
		wantErr bool
	}{
		{name: "minimal", line: `{"action":"get_info"}`, action: "get_info"},
		{name: "with config", line: `{"action":"initialize","config":{"a":1}}`, action: "initialize"},
		{name: "with request", line: `{"action":"execute_action","action_request":{"id":"t1"}}`, action: "execute_action"},
		{name: "unknown action passes codec", line: `{"action":"frobnicate"}`, action: "frobnicate"},
		{name: "not json", line: `{oops`, wantErr: true},
		{name: "json array", line: `[1,2]`, wantErr: true},
		{name: "json null", line: `null`, wantErr: true},
		{name: "missing action", line: `{"config":{}}`, wantErr: true},
		{name: "action not a string", line: `{"action":5}`, wantErr: true},
		{name: "trailing data", line: `{"action":"get_info"} {"x":1}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := DecodeRequest([]byte(tt.line))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !IsKind(err, ProtocolError) {
					t.Errorf("expected protocol error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if env.Action != tt.action {
				t.Errorf("expected action %q, got %q", tt.action, env.Action)
			}
		})
	}
}

func TestEncodeResponseSingleLine(t *testing.T) {
	resp, err := SuccessResponse(map[string]interface{}{
		"text": "line one\nline two",
		"nested": map[string]interface{}{
			"more": "data\r\nhere",
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, err := EncodeResponse(resp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bytes.ContainsAny(out, "\n\r") {
		t.Errorf("encoded response contains a line break: %q", out)
	}
}

func TestMarshalDataUnrepresentable(t *testing.T) {
	_, err := MarshalData(make(chan int))
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !IsKind(err, InternalError) {
		t.Errorf("expected internal error, got %v", err)
	}
}

func TestErrorResponseKinds(t *testing.T) {
	resp := ErrorResponse(errors.New("boom"))
	if resp.Success {
		t.Error("expected success=false")
	}
	if resp.Error == nil || resp.Error.Kind != InternalError {
		t.Errorf("expected internal error payload, got %+v", resp.Error)
	}

	resp = ErrorResponse(NewError(ValidationError, "bad parameter"))
	if resp.Error == nil || resp.Error.Kind != ValidationError {
		t.Errorf("expected validation error payload, got %+v", resp.Error)
	}
	if resp.Error.Message != "bad parameter" {
		t.Errorf("unexpected message %q", resp.Error.Message)
	}
}

func TestStreamDecoder(t *testing.T) {
	t.Run("reads lines until blank", func(t *testing.T) {
		dec := NewStreamDecoder(strings.NewReader("one\ntwo\n\nthree\n"))

		for _, want := range []string{"one", "two"} {
			line, err := dec.Next()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(line) != want {
				t.Errorf("expected %q, got %q", want, line)
			}
		}
		if _, err := dec.Next(); !errors.Is(err, io.EOF) {
			t.Errorf("expected EOF on blank line, got %v", err)
		}
	})

	t.Run("last line without newline", func(t *testing.T) {
		dec := NewStreamDecoder(strings.NewReader(`{"action":"stop"}`))
		line, err := dec.Next()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(line) != `{"action":"stop"}` {
			t.Errorf("unexpected line %q", line)
		}
		if _, err := dec.Next(); !errors.Is(err, io.EOF) {
			t.Errorf("expected EOF, got %v", err)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		dec := NewStreamDecoder(strings.NewReader(""))
		if _, err := dec.Next(); !errors.Is(err, io.EOF) {
			t.Errorf("expected EOF, got %v", err)
		}
	})
}
