// Package queue holds the single prepared item awaiting publication.
package queue

import (
	"sync"

	"github.com/jonesrussell/gomeme/internal/domain"
)

// Slot is a capacity-one holding area for the next item to publish. It is
// safe for concurrent use by the pipeline, the scheduler and the admin
// API.
type Slot struct {
	mu   sync.Mutex
	item *domain.QueueItem
}

// NewSlot creates an empty Slot.
func NewSlot() *Slot {
	return &Slot{}
}

// TryPut stores item if the slot is empty and reports whether it did.
func (s *Slot) TryPut(item *domain.QueueItem) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.item != nil {
		return false
	}
	s.item = item
	return true
}

// Take removes and returns the held item, if any.
func (s *Slot) Take() (*domain.QueueItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.item
	s.item = nil
	return item, item != nil
}

// Peek returns the held item without removing it.
func (s *Slot) Peek() (*domain.QueueItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.item, s.item != nil
}

// Clear empties the slot and returns what it held so the caller can
// release the item's media.
func (s *Slot) Clear() (*domain.QueueItem, bool) {
	return s.Take()
}

// Occupied reports whether the slot holds an item.
func (s *Slot) Occupied() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.item != nil
}
