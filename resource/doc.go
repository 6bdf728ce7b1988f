// Package resource provides opaque handle management for bridge resources.
//
// Resources are host-side values, such as loaded models, that foreign callers
// hold only as integer handles. This package implements the handle table that
// maps those integers back to Go values without ever exposing an address.
//
// # Handles
//
// A Handle is a uint64. The low 32 bits select a table slot (1-based) and the
// high 32 bits carry the slot's generation. Dropping a resource advances the
// generation, so a released handle never resolves again even after its slot
// is reused:
//
//	h := table.Insert(typeID, value)
//	table.Remove(h)
//	_, ok := table.Get(h) // false, even if a later Insert reuses the slot
//
// Handle 0 is reserved and always invalid.
//
// # Handle Table
//
// The HandleTable maps handles to Go values:
//
//	table := resource.NewTable()
//
//	// Insert a value, get a handle
//	handle := table.Insert(typeID, myValue)
//
//	// Retrieve value by handle
//	value, ok := table.Get(handle)
//
//	// Remove and get value
//	value, err := table.Remove(handle)
//
// # Borrows
//
// A caller that uses a value for the length of an operation borrows it. A
// borrowed value cannot be removed until every borrow is returned; Remove
// fails with ErrOutstandingBorrow instead of freeing a value in use.
//
//	v, ok := table.Borrow(handle, typeID)
//	defer table.ReturnBorrow(handle)
//
// # Type Safety
//
// Handles are typed - each resource type gets a unique type ID, and Typed
// wraps a table for one Go type:
//
//	models := resource.NewTyped[embedding.Model](table, ModelTypeID)
//	h := models.Insert(m)
//	m, ok := models.Get(h)
//
// # Observers
//
// Register observers to track resource lifecycle events:
//
//	table.Subscribe(observer) // OnResourceEvent(resource.Event)
//
// # Memory Management
//
// Resources are not garbage collected. The owner must call Remove when the
// foreign caller releases a handle. Values implementing io.Closer are closed
// on Remove and on table Close.
package resource
