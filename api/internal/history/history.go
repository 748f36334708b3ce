// Package history is the most-recent-first log of solved problems.
package history

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"pipartner/api/internal/kv"
)

const Key = "chatHistory"

type Item struct {
	ID            string `json:"id"`
	Problem       string `json:"problem"`
	Explanation   string `json:"explanation"`
	ExtractedText string `json:"extractedText,omitempty"`
	Image         string `json:"image,omitempty"` // base64
	Timestamp     int64  `json:"timestamp"`       // unix ms
	IsFollowUp    bool   `json:"isFollowUp"`
}

// Log keeps the list in memory and mirrors every change to the store.
// Memory is updated first; a failed write is reported but never rolled back,
// and the next successful write persists the whole list again.
//
// The list is never written until the stored one has been read once, so a
// transient read failure cannot replace saved history with a shorter list.
type Log struct {
	store  kv.Store
	items  []Item
	loaded bool
	now    func() time.Time
}

func NewLog(store kv.Store) *Log {
	return &Log{store: store, now: time.Now}
}

// Load replaces the in-memory list with the stored one. Missing data yields an
// empty list; corrupt data yields an empty list and an error. Any other read
// failure also leaves the list empty, and Loaded stays false.
func (l *Log) Load(ctx context.Context) error {
	l.items = nil
	items, err := l.read(ctx)
	if err != nil {
		return err
	}
	l.items = items
	return nil
}

// Loaded reports whether the stored list has been read, so writes are safe.
func (l *Log) Loaded() bool { return l.loaded }

func (l *Log) read(ctx context.Context) ([]Item, error) {
	var items []Item
	err := kv.GetJSON(ctx, l.store, Key, &items)
	switch {
	case err == nil:
		l.loaded = true
		return items, nil
	case errors.Is(err, kv.ErrNotFound):
		l.loaded = true
		return nil, nil
	case errors.Is(err, kv.ErrCorrupt):
		// unreadable data is dropped on the next write
		l.loaded = true
		return nil, fmt.Errorf("load chat history: %w", err)
	default:
		return nil, fmt.Errorf("load chat history: %w", err)
	}
}

// Append stamps item with an id and timestamp, puts it at index 0 and persists
// the list. The stamped item is returned even when persisting fails.
//
// If the stored list was never read, Append reads it first and keeps items
// added in the meantime on top of it; while it stays unreadable nothing is written.
func (l *Log) Append(ctx context.Context, item Item) (Item, error) {
	var readErr error
	if !l.loaded {
		stored, err := l.read(ctx)
		if l.loaded {
			l.items = append(l.items, stored...)
		} else {
			readErr = err
		}
	}

	ts := l.now().UnixMilli()
	if len(l.items) > 0 && ts <= l.items[0].Timestamp {
		ts = l.items[0].Timestamp + 1
	}
	item.ID = strconv.FormatInt(ts, 10)
	item.Timestamp = ts

	updated := make([]Item, 0, len(l.items)+1)
	updated = append(updated, item)
	updated = append(updated, l.items...)
	l.items = updated

	if readErr != nil {
		return item, fmt.Errorf("save chat history: not written, %w", readErr)
	}
	if err := kv.SetJSON(ctx, l.store, Key, l.items); err != nil {
		return item, fmt.Errorf("save chat history: %w", err)
	}
	return item, nil
}

// Clear empties the list and removes the stored record.
func (l *Log) Clear(ctx context.Context) error {
	l.items = nil
	l.loaded = true
	if err := l.store.Delete(ctx, Key); err != nil {
		return fmt.Errorf("clear chat history: %w", err)
	}
	return nil
}

// Items returns a copy of the list, newest first.
func (l *Log) Items() []Item {
	return append([]Item(nil), l.items...)
}

func (l *Log) Len() int { return len(l.items) }

func (l *Log) Find(id string) (Item, bool) {
	for _, it := range l.items {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}
