package notify

import (
	"sync"
	"time"
)

// DefaultTTL is how long a buffered message stays visible.
const DefaultTTL = 5 * time.Second

const maxBuffered = 20

// Buffer keeps recent messages for a UI to pick up. Messages auto-dismiss
// once read or once their TTL elapses; the oldest are dropped when full.
type Buffer struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	items []Message
}

// NewBuffer creates a buffer whose messages expire after ttl.
func NewBuffer(ttl time.Duration) *Buffer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Buffer{ttl: ttl, now: time.Now}
}

func (b *Buffer) Info(msg string)    { b.Notify(Message{Level: LevelInfo, Text: msg}) }
func (b *Buffer) Success(msg string) { b.Notify(Message{Level: LevelSuccess, Text: msg}) }
func (b *Buffer) Error(msg string)   { b.Notify(Message{Level: LevelError, Text: msg}) }

func (b *Buffer) Notify(m Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items = append(b.items, normalize(m, b.now()))
	if over := len(b.items) - maxBuffered; over > 0 {
		b.items = b.items[over:]
	}
}

// Pending returns the unexpired messages without dismissing them.
func (b *Buffer) Pending() []Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.expireLocked()
	out := make([]Message, len(b.items))
	copy(out, b.items)
	return out
}

// Drain returns the unexpired messages and dismisses all of them.
func (b *Buffer) Drain() []Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.expireLocked()
	out := b.items
	b.items = nil
	return out
}

func (b *Buffer) expireLocked() {
	cutoff := b.now().Add(-b.ttl)
	kept := b.items[:0]
	for _, m := range b.items {
		if m.At.After(cutoff) {
			kept = append(kept, m)
		}
	}
	b.items = kept
}
