package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// AnswerSet maps question ids to the selected zero-based option index.
type AnswerSet map[int64]int

// Encode serializes the answer set as a JSON object keyed by question id, e.g. {"1":2,"2":1}.
func (a AnswerSet) Encode() (string, error) {
	if a == nil {
		a = AnswerSet{}
	}
	raw, err := json.Marshal(map[int64]int(a))
	if err != nil {
		return "", fmt.Errorf("%w: encode: %v", ErrCodec, err)
	}
	return string(raw), nil
}

// DecodeAnswerSet parses text produced by AnswerSet.Encode.
func DecodeAnswerSet(raw string) (AnswerSet, error) {
	trimmed := bytes.TrimSpace([]byte(raw))
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: decode: not a JSON object", ErrCodec)
	}
	var decoded map[int64]*int
	if err := json.Unmarshal(trimmed, &decoded); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrCodec, err)
	}
	out := make(AnswerSet, len(decoded))
	for questionID, option := range decoded {
		if option == nil {
			return nil, fmt.Errorf("%w: decode: null answer for question %d", ErrCodec, questionID)
		}
		out[questionID] = *option
	}
	return out, nil
}

// Clone returns an independent copy of a.
func (a AnswerSet) Clone() AnswerSet {
	out := make(AnswerSet, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}
