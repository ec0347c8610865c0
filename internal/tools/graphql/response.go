package graphql

import (
	"bytes"
	"encoding/json"
)

type Error struct {
	Message string `json:"message"`
	Path    []any  `json:"path,omitempty"`
}

// Response is the structured-error envelope: data, errors, or both.
type Response struct {
	StatusCode int             `json:"-"`
	Data       json.RawMessage `json:"data"`
	Errors     []Error         `json:"errors"`
}

func (r *Response) HasErrors() bool {
	return len(r.Errors) > 0
}

// FirstErrorMessage is the message surfaced to the user; empty when the service gave none.
func (r *Response) FirstErrorMessage() string {
	if !r.HasErrors() {
		return ""
	}
	return r.Errors[0].Message
}

// Field decodes data.<name> into destination. It reports false when data or the field is
// absent or null.
func (r *Response) Field(name string, destination any) (bool, error) {
	if isNull(r.Data) {
		return false, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(r.Data, &fields); err != nil {
		return false, err
	}

	raw, ok := fields[name]
	if !ok || isNull(raw) {
		return false, nil
	}

	if err := json.Unmarshal(raw, destination); err != nil {
		return false, err
	}

	return true, nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
