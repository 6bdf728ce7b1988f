package resource

import (
	"io"
	"sync"
)

// HandleTable implements the Table interface using a LocalBackend for storage.
type HandleTable struct {
	backend   *LocalBackend
	observers []Observer
	obsMu     sync.RWMutex
	closed    bool
	closeMu   sync.RWMutex
}

// NewTable creates a new handle table with a LocalBackend.
func NewTable() *HandleTable {
	return &HandleTable{
		backend: NewLocalBackend(),
	}
}

// Insert adds a value and returns its handle.
func (t *HandleTable) Insert(typeID uint32, value any) Handle {
	t.closeMu.RLock()
	if t.closed {
		t.closeMu.RUnlock()
		return 0
	}
	t.closeMu.RUnlock()

	handle, err := t.backend.Create(typeID, value)
	if err != nil {
		return 0
	}

	t.notify(Event{
		Type:   EventCreated,
		Handle: handle,
		TypeID: typeID,
		Value:  value,
	})

	return handle
}

// Get retrieves a value by handle.
func (t *HandleTable) Get(handle Handle) (any, bool) {
	return t.backend.Get(handle)
}

// GetTyped retrieves a value only if it matches the expected type.
func (t *HandleTable) GetTyped(handle Handle, typeID uint32) (any, bool) {
	actualTypeID, ok := t.backend.TypeID(handle)
	if !ok || actualTypeID != typeID {
		return nil, false
	}
	return t.backend.Get(handle)
}

// Borrow pins a value of the expected type until ReturnBorrow is called.
func (t *HandleTable) Borrow(handle Handle, typeID uint32) (any, bool) {
	actualTypeID, ok := t.backend.TypeID(handle)
	if !ok || actualTypeID != typeID {
		return nil, false
	}
	value, ok := t.backend.Borrow(handle)
	if !ok {
		return nil, false
	}

	t.notify(Event{
		Type:   EventBorrowed,
		Handle: handle,
		TypeID: typeID,
		Value:  value,
	})

	return value, true
}

// ReturnBorrow releases a pin taken by Borrow.
func (t *HandleTable) ReturnBorrow(handle Handle) bool {
	typeID, _ := t.backend.TypeID(handle)
	if !t.backend.ReturnBorrow(handle) {
		return false
	}

	t.notify(Event{
		Type:   EventBorrowReturned,
		Handle: handle,
		TypeID: typeID,
	})

	return true
}

// Remove drops a resource and returns its value. Values implementing
// io.Closer are closed; a close failure is returned after the handle is gone.
func (t *HandleTable) Remove(handle Handle) (any, error) {
	typeID, _ := t.backend.TypeID(handle)
	value, err := t.backend.Drop(handle)
	if err != nil {
		return nil, err
	}

	var closeErr error
	if c, ok := value.(io.Closer); ok {
		closeErr = c.Close()
	}

	t.notify(Event{
		Type:   EventDropped,
		Handle: handle,
		TypeID: typeID,
		Value:  value,
	})

	return value, closeErr
}

// Subscribe adds an observer for lifecycle events.
func (t *HandleTable) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Unsubscribe removes an observer.
func (t *HandleTable) Unsubscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	for i, obs := range t.observers {
		if obs == o {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			return
		}
	}
}

// Len returns the number of active resources.
func (t *HandleTable) Len() int {
	return t.backend.Len()
}

// Clear drops all resources that are not borrowed.
func (t *HandleTable) Clear() {
	// Collect handles first to avoid holding lock during Remove
	var handles []Handle
	t.backend.Each(func(h Handle, typeID uint32, value any) bool {
		handles = append(handles, h)
		return true
	})
	for _, h := range handles {
		_, _ = t.Remove(h)
	}
}

// Close releases all resources and stops accepting operations.
func (t *HandleTable) Close() error {
	t.closeMu.Lock()
	t.closed = true
	t.closeMu.Unlock()

	return t.backend.Close()
}

func (t *HandleTable) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnResourceEvent(e)
	}
}

var _ Table = (*HandleTable)(nil)
