package queue

import (
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/jonesrussell/gomeme/internal/domain"
)

func itemWithID(id string) *domain.QueueItem {
	return &domain.QueueItem{Candidate: domain.Candidate{ID: id}}
}

func TestSlotLifecycle(t *testing.T) {
	slot := NewSlot()

	if slot.Occupied() {
		t.Error("new slot reports occupied")
	}
	if _, ok := slot.Take(); ok {
		t.Error("Take() on empty slot returned an item")
	}
	if _, ok := slot.Peek(); ok {
		t.Error("Peek() on empty slot returned an item")
	}

	if !slot.TryPut(itemWithID("a")) {
		t.Fatal("TryPut() into empty slot failed")
	}
	if !slot.Occupied() {
		t.Error("slot not occupied after TryPut")
	}
	if slot.TryPut(itemWithID("b")) {
		t.Error("TryPut() into occupied slot succeeded")
	}

	peeked, ok := slot.Peek()
	if !ok || peeked.Candidate.ID != "a" {
		t.Errorf("Peek() = (%v, %v), want item a", peeked, ok)
	}
	if !slot.Occupied() {
		t.Error("Peek() emptied the slot")
	}

	taken, ok := slot.Take()
	if !ok || taken.Candidate.ID != "a" {
		t.Errorf("Take() = (%v, %v), want item a", taken, ok)
	}
	if slot.Occupied() {
		t.Error("slot occupied after Take")
	}
}

func TestSlotClearReturnsItem(t *testing.T) {
	slot := NewSlot()
	slot.TryPut(itemWithID("a"))

	cleared, ok := slot.Clear()
	if !ok || cleared.Candidate.ID != "a" {
		t.Errorf("Clear() = (%v, %v), want item a", cleared, ok)
	}
	if _, ok := slot.Clear(); ok {
		t.Error("Clear() on empty slot returned an item")
	}
}

func TestSlotSingleWinnerUnderContention(t *testing.T) {
	slot := NewSlot()

	const writers = 16
	var wins atomic.Int64
	var wg sync.WaitGroup

	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if slot.TryPut(itemWithID(strconv.Itoa(i))) {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Errorf("%d writers succeeded, want exactly 1", wins.Load())
	}
	if !slot.Occupied() {
		t.Error("slot empty after contention")
	}
}
