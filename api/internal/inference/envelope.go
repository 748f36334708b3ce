package inference

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Shape records which wire form an Envelope was decoded from.
type Shape int

const (
	// ShapeFlat: {"explanation": ..., "problem": ..., "ocr_result": ...}
	ShapeFlat Shape = iota
	// ShapeNested: {"body": "<the flat object, JSON-encoded as a string>"}
	ShapeNested
	// ShapeRaw: {"body": "<not JSON>"}; the string itself is the explanation.
	ShapeRaw
)

func (s Shape) String() string {
	switch s {
	case ShapeNested:
		return "nested"
	case ShapeRaw:
		return "raw"
	default:
		return "flat"
	}
}

// Envelope is the canonical reply, whatever shape it arrived in.
type Envelope struct {
	Explanation string `json:"explanation"`
	Problem     string `json:"problem,omitempty"`
	OCRResult   string `json:"ocr_result,omitempty"`

	Shape Shape `json:"-"`
}

// OK reports whether the reply carries an explanation.
func (e Envelope) OK() bool { return strings.TrimSpace(e.Explanation) != "" }

// DisplayProblem is the problem text as the service understood it.
func (e Envelope) DisplayProblem() string {
	if e.Problem != "" {
		return e.Problem
	}
	return e.OCRResult
}

// Unwrap decodes a reply body. A string-valued "body" field is parsed as the
// real envelope; if it does not hold a JSON object the string is taken as the explanation.
func Unwrap(body []byte) (Envelope, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return Envelope{}, fmt.Errorf("inference: decode envelope: %w", err)
	}

	if raw, ok := top["body"]; ok {
		var inner string
		if err := json.Unmarshal(raw, &inner); err == nil {
			if env, ok := decodeObject(inner); ok {
				env.Shape = ShapeNested
				return env, nil
			}
			return Envelope{Explanation: inner, Shape: ShapeRaw}, nil
		}
	}

	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Envelope{}, fmt.Errorf("inference: decode envelope: %w", err)
	}
	env.Shape = ShapeFlat
	return env, nil
}

// decodeObject parses s as an envelope only when s is a JSON object;
// "null", numbers and arrays do not count.
func decodeObject(s string) (Envelope, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &obj); err != nil || obj == nil {
		return Envelope{}, false
	}
	var env Envelope
	if err := json.Unmarshal([]byte(s), &env); err != nil {
		return Envelope{}, false
	}
	return env, true
}
