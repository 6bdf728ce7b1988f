package resource

// Typed is a TypedTable view over a HandleTable for a single type ID.
type Typed[T any] struct {
	table  *HandleTable
	typeID uint32
}

// NewTyped returns a typed view of table for values stored under typeID.
func NewTyped[T any](table *HandleTable, typeID uint32) *Typed[T] {
	return &Typed[T]{table: table, typeID: typeID}
}

// Insert adds a value and returns its handle, or 0 if the table is closed.
func (t *Typed[T]) Insert(value T) Handle {
	return t.table.Insert(t.typeID, value)
}

// Get retrieves a value by handle.
func (t *Typed[T]) Get(handle Handle) (T, bool) {
	var zero T
	v, ok := t.table.GetTyped(handle, t.typeID)
	if !ok {
		return zero, false
	}
	tv, ok := v.(T)
	if !ok {
		return zero, false
	}
	return tv, true
}

// Borrow retrieves a value and pins it until ReturnBorrow.
func (t *Typed[T]) Borrow(handle Handle) (T, bool) {
	var zero T
	v, ok := t.table.Borrow(handle, t.typeID)
	if !ok {
		return zero, false
	}
	tv, ok := v.(T)
	if !ok {
		t.table.ReturnBorrow(handle)
		return zero, false
	}
	return tv, true
}

// ReturnBorrow releases a pin taken by Borrow.
func (t *Typed[T]) ReturnBorrow(handle Handle) bool {
	return t.table.ReturnBorrow(handle)
}

// Remove drops a resource of this type and returns its value.
func (t *Typed[T]) Remove(handle Handle) (T, error) {
	var zero T
	if _, ok := t.table.GetTyped(handle, t.typeID); !ok {
		return zero, ErrInvalidHandle
	}
	v, err := t.table.Remove(handle)
	tv, _ := v.(T)
	return tv, err
}

// Len returns the number of active resources of this type.
func (t *Typed[T]) Len() int {
	count := 0
	t.Each(func(Handle, T) bool {
		count++
		return true
	})
	return count
}

// Each iterates over all active resources of this type.
func (t *Typed[T]) Each(fn func(Handle, T) bool) {
	t.table.backend.Each(func(h Handle, typeID uint32, value any) bool {
		if typeID != t.typeID {
			return true
		}
		tv, ok := value.(T)
		if !ok {
			return true
		}
		return fn(h, tv)
	})
}

var _ TypedTable[any] = (*Typed[any])(nil)
