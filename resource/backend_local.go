package resource

import (
	"errors"
	"io"
	"sync"
)

var (
	ErrClosed            = errors.New("resource backend closed")
	ErrInvalidHandle     = errors.New("invalid resource handle")
	ErrOutstandingBorrow = errors.New("cannot drop resource with outstanding borrows")
)

// LocalBackend is an in-memory resource backend with borrow tracking.
// Implements both Backend and BorrowBackend interfaces.
type LocalBackend struct {
	entries  []entry
	freeList []uint32
	mu       sync.RWMutex
	closed   bool
}

type entry struct {
	value       any
	typeID      uint32
	generation  uint32
	borrowCount uint32
	valid       bool
}

// NewLocalBackend creates a new in-memory backend.
func NewLocalBackend() *LocalBackend {
	return &LocalBackend{
		entries:  make([]entry, 0, 16),
		freeList: make([]uint32, 0, 4),
	}
}

// Create stores a value and returns a handle.
func (b *LocalBackend) Create(typeID uint32, value any) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrClosed
	}

	if len(b.freeList) > 0 {
		slot := b.freeList[len(b.freeList)-1]
		b.freeList = b.freeList[:len(b.freeList)-1]
		e := &b.entries[slot-1]
		e.typeID = typeID
		e.value = value
		e.valid = true
		return makeHandle(slot, e.generation), nil
	}

	b.entries = append(b.entries, entry{
		typeID:     typeID,
		value:      value,
		generation: 1,
		valid:      true,
	})
	return makeHandle(uint32(len(b.entries)), 1), nil
}

// lookup returns the live entry for handle. Caller holds b.mu.
func (b *LocalBackend) lookup(handle Handle) *entry {
	if handle == 0 {
		return nil
	}
	slot := handle.Slot()
	if slot == 0 || int(slot) > len(b.entries) {
		return nil
	}
	e := &b.entries[slot-1]
	if !e.valid || e.generation != handle.Generation() {
		return nil
	}
	return e
}

// Get retrieves a value by handle.
func (b *LocalBackend) Get(handle Handle) (any, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e := b.lookup(handle)
	if e == nil {
		return nil, false
	}
	return e.value, true
}

// Drop removes a resource and returns its value.
// The slot generation advances so the dropped handle never resolves again.
func (b *LocalBackend) Drop(handle Handle) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e := b.lookup(handle)
	if e == nil {
		return nil, ErrInvalidHandle
	}

	if e.borrowCount > 0 {
		return nil, ErrOutstandingBorrow
	}

	value := e.value
	e.valid = false
	e.value = nil
	e.borrowCount = 0
	e.generation++
	if e.generation == 0 {
		e.generation = 1
	}
	b.freeList = append(b.freeList, handle.Slot())

	return value, nil
}

// Close releases all resources. Values implementing io.Closer are closed.
func (b *LocalBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	var errs []error
	for i := range b.entries {
		if b.entries[i].valid {
			if c, ok := b.entries[i].value.(io.Closer); ok {
				if err := c.Close(); err != nil {
					errs = append(errs, err)
				}
			}
			b.entries[i].valid = false
			b.entries[i].value = nil
		}
	}

	b.entries = nil
	b.freeList = nil
	return errors.Join(errs...)
}

// Borrow increments the borrow count for a handle and returns its value.
func (b *LocalBackend) Borrow(handle Handle) (any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e := b.lookup(handle)
	if e == nil {
		return nil, false
	}

	e.borrowCount++
	return e.value, true
}

// ReturnBorrow decrements the borrow count for a handle.
func (b *LocalBackend) ReturnBorrow(handle Handle) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	e := b.lookup(handle)
	if e == nil || e.borrowCount == 0 {
		return false
	}

	e.borrowCount--
	return true
}

// TypeID returns the type ID for a handle.
func (b *LocalBackend) TypeID(handle Handle) (uint32, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e := b.lookup(handle)
	if e == nil {
		return 0, false
	}
	return e.typeID, true
}

// Len returns the number of active resources.
func (b *LocalBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := 0
	for _, e := range b.entries {
		if e.valid {
			count++
		}
	}
	return count
}

// Each iterates over all active resources.
func (b *LocalBackend) Each(fn func(Handle, uint32, any) bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for i, e := range b.entries {
		if e.valid {
			if !fn(makeHandle(uint32(i+1), e.generation), e.typeID, e.value) {
				break
			}
		}
	}
}

var _ BorrowBackend = (*LocalBackend)(nil)
