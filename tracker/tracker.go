package tracker

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrUnknownPosition is returned by Resolve for a position that was
	// never registered or already left the window. It indicates a bug in
	// the dispatch layer and callers should treat it as fatal rather than
	// risk committing past unprocessed records.
	ErrUnknownPosition = errors.New("tracker: unknown position")

	// ErrPositionOrder is returned by Register when positions arrive out
	// of order. Records from one partition arrive with monotonically
	// increasing offsets; anything else indicates a bug in the read path.
	ErrPositionOrder = errors.New("tracker: position regression")
)

// State is the completion state of one window entry. Transitions are
// monotonic: StatePending moves to exactly one of the resolved states and
// never back.
type State uint8

const (
	StatePending State = iota
	// StateCompleted marks the task as done; its position may be committed
	// once everything before it is resolved.
	StateCompleted
	// StateDiscarded marks a deliberate give-up. For commit purposes it is
	// equivalent to StateCompleted; it is kept distinct for accounting.
	StateDiscarded
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateCompleted:
		return "completed"
	case StateDiscarded:
		return "discarded"
	default:
		return "unknown"
	}
}

type entry struct {
	offset int64
	state  State
}

// PartitionWindow tracks the completion state of every outstanding task in
// one partition, in arrival order, and derives the highest offset that is
// safe to commit: one past the longest contiguous prefix of resolved
// entries. Entries leave the window only as part of that prefix, so a single
// pending task caps the committable position no matter how many later tasks
// have finished.
//
// The prefix is advanced incrementally on Resolve, so CommittablePosition is
// O(1) and the total advancing work is linear in the number of entries.
type PartitionWindow struct {
	mu sync.Mutex

	entries []*entry
	head    int
	index   map[int64]*entry

	lastRegistered int64
	committable    int64 // offset one past the resolved prefix; -1 until first advance
}

func NewPartitionWindow() *PartitionWindow {
	return &PartitionWindow{
		index:          make(map[int64]*entry),
		lastRegistered: -1,
		committable:    -1,
	}
}

// Register inserts a pending entry for the given offset. It must be called
// at dispatch time, before any user logic runs for the position.
func (w *PartitionWindow) Register(offset int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if offset <= w.lastRegistered {
		return fmt.Errorf("%w: offset %d after %d", ErrPositionOrder, offset, w.lastRegistered)
	}

	e := &entry{offset: offset, state: StatePending}
	w.entries = append(w.entries, e)
	w.index[offset] = e
	w.lastRegistered = offset

	return nil
}

// Resolve moves the entry at offset to a resolved state. Resolving an entry
// twice with any resolved state is a no-op; resolving an unknown offset
// returns ErrUnknownPosition.
func (w *PartitionWindow) Resolve(offset int64, state State) error {
	if state == StatePending {
		return fmt.Errorf("tracker: cannot resolve offset %d back to pending", offset)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	e, ok := w.index[offset]
	if !ok {
		return fmt.Errorf("%w: offset %d", ErrUnknownPosition, offset)
	}

	if e.state != StatePending {
		return nil
	}
	e.state = state

	w.advancePrefix()

	return nil
}

// advancePrefix pops resolved entries from the head of the window and moves
// the committable position past them. Caller holds w.mu.
func (w *PartitionWindow) advancePrefix() {
	for w.head < len(w.entries) && w.entries[w.head].state != StatePending {
		e := w.entries[w.head]
		w.committable = e.offset + 1
		delete(w.index, e.offset)
		w.entries[w.head] = nil
		w.head++
	}

	// reclaim the consumed prefix once it dominates the slice
	if w.head > 64 && w.head*2 >= len(w.entries) {
		w.entries = append(w.entries[:0:0], w.entries[w.head:]...)
		w.head = 0
	}
}

// CommittablePosition returns the offset one past the longest contiguous
// resolved prefix, or false if nothing has become committable yet (including
// when the oldest entry is still pending).
func (w *PartitionWindow) CommittablePosition() (int64, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.committable < 0 {
		return 0, false
	}
	return w.committable, true
}

// Outstanding returns the number of entries still inside the window,
// including resolved entries stuck behind a pending one.
func (w *PartitionWindow) Outstanding() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	return len(w.entries) - w.head
}

// PendingCount returns the number of unresolved entries.
func (w *PartitionWindow) PendingCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	n := 0
	for i := w.head; i < len(w.entries); i++ {
		if w.entries[i].state == StatePending {
			n++
		}
	}
	return n
}
