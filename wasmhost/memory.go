package wasmhost

import (
	"context"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/fasttext-bridge/errors"
	"github.com/wippyai/fasttext-bridge/wire"
)

// CabiRealloc is the guest export used to allocate result buffers.
const CabiRealloc = "cabi_realloc"

// guestMemory is the calling module's linear memory.
type guestMemory struct {
	mem api.Memory
	op  string
}

func memoryOf(mod api.Module, op string) (*guestMemory, error) {
	if mod == nil || mod.Memory() == nil {
		return nil, errors.New(errors.PhaseBoundary, errors.KindUnsupported).
			Op(op).Detail("guest exports no memory").Build()
	}
	return &guestMemory{mem: mod.Memory(), op: op}, nil
}

// view returns the guest bytes at [ptr, ptr+n) without copying. The slice
// aliases linear memory and is valid until the guest runs again.
func (m *guestMemory) view(ptr, n uint32) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	data, ok := m.mem.Read(ptr, n)
	if !ok {
		return nil, errors.OutOfBounds(m.op, ptr, n)
	}
	return data, nil
}

// str copies a guest string into Go memory.
func (m *guestMemory) str(ptr, n uint32) (string, error) {
	data, err := m.view(ptr, n)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// guestAllocator calls the guest's cabi_realloc(0, 0, align, size).
type guestAllocator struct {
	fn    api.Function
	op    string
	stack [4]uint64
}

func allocatorOf(mod api.Module, op string) (*guestAllocator, error) {
	fn := mod.ExportedFunction(CabiRealloc)
	if fn == nil {
		return nil, errors.New(errors.PhaseBoundary, errors.KindUnsupported).
			Op(op).Detail("guest exports no %s", CabiRealloc).Build()
	}
	return &guestAllocator{fn: fn, op: op}, nil
}

func (a *guestAllocator) alloc(ctx context.Context, size, align uint32) (uint32, error) {
	a.stack[0] = 0
	a.stack[1] = 0
	a.stack[2] = uint64(align)
	a.stack[3] = uint64(size)
	if err := a.fn.CallWithStack(ctx, a.stack[:]); err != nil {
		return 0, errors.AllocationFailed(a.op, size, err)
	}
	ptr := uint32(a.stack[0])
	if ptr == 0 {
		return 0, errors.AllocationFailed(a.op, size, nil)
	}
	return ptr, nil
}

// writeResult copies payload into a fresh guest buffer followed by a NUL
// byte and returns its address.
func writeResult(ctx context.Context, mod api.Module, op string, payload []byte) (uint32, error) {
	mem, err := memoryOf(mod, op)
	if err != nil {
		return 0, err
	}
	a, err := allocatorOf(mod, op)
	if err != nil {
		return 0, err
	}

	buf := wire.Terminated(payload)
	size := uint32(len(buf))
	ptr, err := a.alloc(ctx, size, 1)
	if err != nil {
		return 0, err
	}
	if !mem.mem.Write(ptr, buf) {
		return 0, errors.OutOfBounds(op, ptr, size)
	}
	return ptr, nil
}
