// Package inference talks to the homework-solving service: it builds the
// request payload, sends it, and normalizes the reply envelope.
package inference

import (
	"errors"
	"strings"

	"pipartner/api/internal/conversation"
)

const (
	InputText  = "text"
	InputImage = "image"
)

var ErrEmptyProblem = errors.New("inference: empty problem and no image")

// Payload is the wire request. Exactly one of Problem / ImageData is set.
type Payload struct {
	InputType string    `json:"input_type"`
	Problem   string    `json:"problem,omitempty"`
	ImageData string    `json:"image_data,omitempty"` // base64
	Context   *FollowUp `json:"context,omitempty"`
}

// FollowUp is attached when a conversation is in progress.
type FollowUp struct {
	conversation.Context
	IsFollowUp bool `json:"isFollowUp"`
}

// BuildRequest picks the input kind (image wins over text) and attaches held
// as follow-up context when it is non-nil.
func BuildRequest(problem, image string, held *conversation.Context) (Payload, error) {
	var p Payload
	switch {
	case image != "":
		p = Payload{InputType: InputImage, ImageData: image}
	case strings.TrimSpace(problem) != "":
		p = Payload{InputType: InputText, Problem: problem}
	default:
		return Payload{}, ErrEmptyProblem
	}
	if held != nil {
		p.Context = &FollowUp{Context: *held, IsFollowUp: true}
	}
	return p, nil
}

func (p Payload) IsFollowUp() bool { return p.Context != nil }
