package telegram

import (
	"sync"
	"time"
)

const (
	debounce  = 1200 * time.Millisecond
	maxPixels = 18_000_000
)

// photoBatch collects the pages of one album (or consecutive single photos
// in one chat) until no new page arrived for debounce.
type photoBatch struct {
	ChatID       int64
	Key          string // "grp:<mediaGroupID>" | "chat:<chatID>"
	MediaGroupID string

	mu      sync.Mutex
	images  [][]byte
	caption string
	timer   *time.Timer
	closed  bool // drained; pages must go to a new batch
}

// add appends a page and restarts the debounce timer with fire. It reports
// false once the batch has been drained.
func (b *photoBatch) add(img []byte, caption string, fire func()) (int, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return 0, false
	}
	b.images = append(b.images, img)
	if b.caption == "" {
		b.caption = caption
	}
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(debounce, fire)
	return len(b.images), true
}

// drain hands over everything collected so far and closes the batch.
func (b *photoBatch) drain() ([][]byte, string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	images := b.images
	b.images = nil
	b.closed = true
	return images, b.caption
}
