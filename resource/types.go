package resource

// Handle is an opaque reference to a resource in a table.
// The low 32 bits hold a 1-based slot, the high 32 bits the slot generation.
// Handle 0 is reserved and always invalid.
type Handle uint64

func makeHandle(slot, gen uint32) Handle {
	return Handle(uint64(gen)<<32 | uint64(slot))
}

// Slot returns the 1-based table slot encoded in the handle.
func (h Handle) Slot() uint32 { return uint32(h) }

// Generation returns the slot generation encoded in the handle.
func (h Handle) Generation() uint32 { return uint32(h >> 32) }

// Event types for resource lifecycle notifications.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDropped
	EventBorrowed
	EventBorrowReturned
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventDropped:
		return "dropped"
	case EventBorrowed:
		return "borrowed"
	case EventBorrowReturned:
		return "borrow_returned"
	default:
		return "unknown"
	}
}

// Event represents a resource lifecycle event.
type Event struct {
	Value  any
	Handle Handle
	TypeID uint32
	Type   EventType
}

// Observer receives notifications about resource lifecycle events.
type Observer interface {
	OnResourceEvent(Event)
}

// Backend provides the underlying storage mechanism for resources.
type Backend interface {
	// Create stores a value and returns a handle.
	Create(typeID uint32, value any) (Handle, error)

	// Get retrieves a value by handle.
	Get(handle Handle) (any, bool)

	// Drop removes a resource and returns its value.
	// Fails with ErrInvalidHandle or ErrOutstandingBorrow.
	Drop(handle Handle) (any, error)

	// Close releases all resources held by the backend.
	Close() error
}

// BorrowBackend extends Backend with borrow tracking.
// A borrowed resource cannot be dropped until every borrow is returned.
type BorrowBackend interface {
	Backend

	// Borrow increments the borrow count for a handle and returns its value.
	Borrow(handle Handle) (any, bool)

	// ReturnBorrow decrements the borrow count for a handle.
	ReturnBorrow(handle Handle) bool

	// TypeID returns the type ID for a handle.
	TypeID(handle Handle) (uint32, bool)
}

// Table manages resources with type information and observer support.
type Table interface {
	// Insert adds a value and returns its handle, or 0 if the table is closed.
	Insert(typeID uint32, value any) Handle

	// Get retrieves a value by handle.
	Get(handle Handle) (any, bool)

	// GetTyped retrieves a value only if it matches the expected type.
	GetTyped(handle Handle, typeID uint32) (any, bool)

	// Borrow retrieves a value of the expected type and pins it until ReturnBorrow.
	Borrow(handle Handle, typeID uint32) (any, bool)

	// ReturnBorrow releases a pin taken by Borrow.
	ReturnBorrow(handle Handle) bool

	// Remove drops a resource and returns its value.
	Remove(handle Handle) (any, error)

	// Subscribe adds an observer for lifecycle events.
	Subscribe(Observer)

	// Unsubscribe removes an observer.
	Unsubscribe(Observer)

	// Len returns the number of active resources.
	Len() int

	// Clear drops all resources.
	Clear()

	// Close releases all resources and stops accepting operations.
	Close() error
}

// TypedTable provides type-safe access to resources of a specific type.
type TypedTable[T any] interface {
	// Insert adds a value and returns its handle.
	Insert(value T) Handle

	// Get retrieves a value by handle.
	Get(handle Handle) (T, bool)

	// Borrow retrieves a value and pins it until ReturnBorrow.
	Borrow(handle Handle) (T, bool)

	// ReturnBorrow releases a pin taken by Borrow.
	ReturnBorrow(handle Handle) bool

	// Remove drops a resource and returns its value.
	Remove(handle Handle) (T, error)

	// Len returns the number of active resources.
	Len() int

	// Each iterates over all active resources.
	Each(func(Handle, T) bool)
}
