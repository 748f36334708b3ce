// Package conversation holds the single "current conversation" record that
// turns the next submission into a follow-up.
package conversation

import (
	"context"
	"errors"
	"fmt"

	"pipartner/api/internal/kv"
)

const Key = "conversationContext"

// Problem is the first problem of a conversation thread.
type Problem struct {
	Text  string `json:"text"`
	Image string `json:"image,omitempty"` // base64
}

type Context struct {
	OriginalProblem  Problem `json:"originalProblem"`
	PreviousResponse string  `json:"previousResponse"`
}

// Holder is the in-memory copy of the stored Context plus its storage slot.
// It is empty or populated; callers drive every transition.
type Holder struct {
	store kv.Store
	cur   *Context
}

func NewHolder(store kv.Store) *Holder {
	return &Holder{store: store}
}

// Current returns a copy of the held context, nil when empty.
func (h *Holder) Current() *Context {
	if h.cur == nil {
		return nil
	}
	c := *h.cur
	return &c
}

// Load reads the stored record. A missing record is not an error; a read or
// decode failure leaves the holder empty and is returned as a warning.
func (h *Holder) Load(ctx context.Context) error {
	h.cur = nil
	var c Context
	err := kv.GetJSON(ctx, h.store, Key, &c)
	if errors.Is(err, kv.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load conversation context: %w", err)
	}
	h.cur = &c
	return nil
}

// Save writes c and keeps it in memory even if the write fails.
func (h *Holder) Save(ctx context.Context, c Context) error {
	h.cur = &c
	if err := kv.SetJSON(ctx, h.store, Key, c); err != nil {
		return fmt.Errorf("save conversation context: %w", err)
	}
	return nil
}

// Clear empties the holder first, then removes the stored record.
func (h *Holder) Clear(ctx context.Context) error {
	h.cur = nil
	if err := h.store.Delete(ctx, Key); err != nil {
		return fmt.Errorf("clear conversation context: %w", err)
	}
	return nil
}

// Establish starts a new thread from a fresh exchange, replacing whatever was held.
func (h *Holder) Establish(ctx context.Context, text, image, response string) error {
	return h.Save(ctx, Context{
		OriginalProblem:  Problem{Text: text, Image: image},
		PreviousResponse: response,
	})
}

// Advance records the latest answer of a follow-up. OriginalProblem is kept.
// On an empty holder it does nothing.
func (h *Holder) Advance(ctx context.Context, response string) error {
	if h.cur == nil {
		return nil
	}
	c := *h.cur
	c.PreviousResponse = response
	return h.Save(ctx, c)
}
