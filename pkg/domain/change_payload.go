package domain

import "encoding/json"

// ChangePayload wraps a JSON snapshot of a record before or after a change.
// Rules decode it with DecodeChangePayload.
type ChangePayload struct {
	defined bool
	raw     json.RawMessage
}

// NewChangePayload builds a payload from raw JSON. The bytes are cloned so the
// caller may reuse its buffer.
func NewChangePayload(raw json.RawMessage) ChangePayload {
	payload := ChangePayload{defined: true}
	if raw != nil {
		payload.raw = append(json.RawMessage(nil), raw...)
	}
	return payload
}

// NewChangePayloadFromValue marshals a typed value into a ChangePayload.
func NewChangePayloadFromValue[T any](value T) (ChangePayload, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return ChangePayload{}, err
	}
	return NewChangePayload(raw), nil
}

// UndefinedChangePayload marks the absent side of a create.
func UndefinedChangePayload() ChangePayload {
	return ChangePayload{}
}

// Defined reports whether the payload has been initialised.
func (p ChangePayload) Defined() bool {
	return p.defined
}

// IsEmpty reports whether the payload contains no bytes.
func (p ChangePayload) IsEmpty() bool {
	return !p.defined || len(p.raw) == 0
}

// Raw returns a copy of the underlying JSON bytes.
func (p ChangePayload) Raw() json.RawMessage {
	if p.IsEmpty() {
		return nil
	}
	return append(json.RawMessage(nil), p.raw...)
}

// DecodeChangePayload unmarshals p into T. The boolean is false when p is empty.
func DecodeChangePayload[T any](p ChangePayload) (T, bool, error) {
	var out T
	if p.IsEmpty() {
		return out, false, nil
	}
	if err := json.Unmarshal(p.raw, &out); err != nil {
		return out, false, err
	}
	return out, true, nil
}
