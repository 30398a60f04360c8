package pluginapi

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

// MaxLineBytes caps the size of a single protocol line in either direction.
const MaxLineBytes = 1 << 20

// DecodeRequest parses one protocol line into a request envelope. Any
// malformed input is rejected with a ProtocolError; unknown but well-formed
// actions pass through for the dispatcher to reject.
func DecodeRequest(line []byte) (*RequestEnvelope, error) {
	var env RequestEnvelope
	dec := json.NewDecoder(bytes.NewReader(line))
	if err := dec.Decode(&env); err != nil {
		return nil, Errorf(ProtocolError, "malformed request: %v", err)
	}
	if dec.More() {
		return nil, NewError(ProtocolError, "trailing data after request object")
	}
	if env.Action == "" {
		return nil, NewError(ProtocolError, "request is missing the action field")
	}
	return &env, nil
}

// EncodeResponse renders a response envelope as exactly one line, without
// the trailing newline. Embedded payloads are compacted, so the result never
// contains a raw line break.
func EncodeResponse(resp *ResponseEnvelope) ([]byte, error) {
	out, err := json.Marshal(resp)
	if err != nil {
		return nil, Errorf(InternalError, "encode response: %v", err)
	}
	return out, nil
}

// EncodeRequest renders a request envelope as exactly one line, without the
// trailing newline.
func EncodeRequest(req *RequestEnvelope) ([]byte, error) {
	out, err := json.Marshal(req)
	if err != nil {
		return nil, Errorf(InternalError, "encode request: %v", err)
	}
	return out, nil
}

// DecodeResponse parses one protocol line into a response envelope. A
// response that reports failure without error detail gets one attached, so
// callers can rely on the success/error pairing.
func DecodeResponse(line []byte) (*ResponseEnvelope, error) {
	var env ResponseEnvelope
	if err := json.Unmarshal(line, &env); err != nil {
		return nil, Errorf(ProtocolError, "malformed response: %v", err)
	}
	if !env.Success && env.Error == nil {
		env.Error = &ErrorInfo{Kind: InternalError, Message: "plugin reported failure without error detail"}
	}
	return &env, nil
}

// MarshalData renders a payload for the data field of a response envelope.
// Non-representable payloads are rejected here rather than truncated later.
func MarshalData(v interface{}) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, Errorf(InternalError, "unrepresentable payload: %v", err)
	}
	return data, nil
}

// SuccessResponse builds a success envelope carrying v as its data payload.
func SuccessResponse(v interface{}) (*ResponseEnvelope, error) {
	data, err := MarshalData(v)
	if err != nil {
		return nil, err
	}
	return &ResponseEnvelope{Success: true, Data: data}, nil
}

// ErrorResponse builds a failure envelope from err. Errors without a kind
// are reported as InternalError.
func ErrorResponse(err error) *ResponseEnvelope {
	var pe *Error
	if !errors.As(err, &pe) {
		pe = &Error{Kind: InternalError, Message: err.Error()}
	}
	return &ResponseEnvelope{Success: false, Error: pe.Info()}
}

// StreamDecoder reads protocol lines from a stream. A blank line or the end
// of the stream terminates it; both are the documented shutdown signal.
type StreamDecoder struct {
	scanner *bufio.Scanner
}

// NewStreamDecoder wraps r with a line scanner bounded at MaxLineBytes.
func NewStreamDecoder(r io.Reader) *StreamDecoder {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), MaxLineBytes)
	return &StreamDecoder{scanner: s}
}

// Next returns the next non-empty line, or io.EOF once the stream is done.
func (d *StreamDecoder) Next() ([]byte, error) {
	if !d.scanner.Scan() {
		if err := d.scanner.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	line := bytes.TrimSpace(d.scanner.Bytes())
	if len(line) == 0 {
		return nil, io.EOF
	}
	return line, nil
}
