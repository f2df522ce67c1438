package notify

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	DefaultDuration = 4 * time.Second
	DefaultHistory  = 20
)

// Item is one message shown by the snackbar
type Item struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	ShownAt   time.Time `json:"shown_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Snackbar keeps the most recent message visible for a fixed duration and a
// bounded history of past messages.
type Snackbar struct {
	mu       sync.Mutex
	duration time.Duration
	limit    int
	items    []Item
	now      func() time.Time
}

// NewSnackbar creates a snackbar. Non-positive arguments fall back to defaults.
func NewSnackbar(duration time.Duration, history int) *Snackbar {
	if duration <= 0 {
		duration = DefaultDuration
	}
	if history <= 0 {
		history = DefaultHistory
	}
	return &Snackbar{
		duration: duration,
		limit:    history,
		now:      time.Now,
	}
}

// Show replaces the visible message
func (s *Snackbar) Show(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.items = append(s.items, Item{
		ID:        ulid.Make().String(),
		Message:   message,
		ShownAt:   now,
		ExpiresAt: now.Add(s.duration),
	})
	if len(s.items) > s.limit {
		s.items = s.items[len(s.items)-s.limit:]
	}
}

// Current returns the visible message, if it has not expired yet
func (s *Snackbar) Current() (Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.items) == 0 {
		return Item{}, false
	}
	last := s.items[len(s.items)-1]
	if !s.now().Before(last.ExpiresAt) {
		return Item{}, false
	}
	return last, true
}

// Recent returns the history, newest first
func (s *Snackbar) Recent() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Item, 0, len(s.items))
	for i := len(s.items) - 1; i >= 0; i-- {
		out = append(out, s.items[i])
	}
	return out
}

// Dismiss hides the visible message early
func (s *Snackbar) Dismiss() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.items) > 0 {
		s.items[len(s.items)-1].ExpiresAt = s.now()
	}
}
