// Command libfasttext builds the bridge as a C shared library:
//
//	go build -buildmode=c-shared -o libfasttext.so ./cmd/libfasttext
//
// Every char* returned by the library is owned by the caller and must be
// released with FreeResult. Handles are opaque 64-bit values; 0 is never a
// valid handle.
package main

/*
#include <stdint.h>
#include <stdlib.h>

typedef uint64_t FastTextHandle;
*/
import "C"

import (
	"unsafe"

	"github.com/wippyai/fasttext-bridge/bridge"
	"github.com/wippyai/fasttext-bridge/errors"
	"github.com/wippyai/fasttext-bridge/internal/view"
	"github.com/wippyai/fasttext-bridge/resource"
)

// FastTextHandle must carry a resource.Handle without loss.
var _ = [1]struct{}{}[unsafe.Sizeof(C.FastTextHandle(0))-unsafe.Sizeof(resource.Handle(0))]

func main() {}

func init() {
	configureLogging()
}

// cResult copies payload into a malloc'ed NUL-terminated buffer.
func cResult(payload []byte) *C.char {
	p := C.malloc(C.size_t(len(payload) + 1))
	if p == nil {
		return nil
	}
	buf := unsafe.Slice((*byte)(p), len(payload)+1)
	copy(buf, payload)
	buf[len(payload)] = 0
	return (*C.char)(p)
}

func goString(p *C.char) string {
	return view.CopyString(unsafe.Pointer(p))
}

// cString returns a malloc'ed copy of s, released with FreeResult.
func cString(s string) *C.char {
	return C.CString(s)
}

type (
	cHandle = C.FastTextHandle
	cStr    = *C.char
)

//export NewHandle
func NewHandle(path *C.char) C.FastTextHandle {
	h, err := bridge.Default().Load(goString(path))
	if err != nil {
		logFailure("NewHandle", err)
		return 0
	}
	return C.FastTextHandle(h)
}

//export DeleteHandle
func DeleteHandle(h C.FastTextHandle) {
	if err := bridge.Default().Release(resource.Handle(h)); err != nil {
		logFailure("DeleteHandle", err)
	}
}

//export Predict
func Predict(h C.FastTextHandle, query *C.char) *C.char {
	payload, err := predict(h, query)
	return cResult(legacy("Predict", payload, err))
}

//export Analogy
func Analogy(h C.FastTextHandle, a, b, c *C.char, k C.int32_t) *C.char {
	payload, err := analogy(h, a, b, c, k)
	return cResult(legacy("Analogy", payload, err))
}

//export Neighbor
func Neighbor(h C.FastTextHandle, query *C.char, k C.int32_t) *C.char {
	payload, err := neighbor(h, query, k)
	return cResult(legacy("Neighbor", payload, err))
}

//export Wordvec
func Wordvec(h C.FastTextHandle, query *C.char) *C.char {
	payload, err := wordvec(h, query)
	return cResult(legacy("Wordvec", payload, err))
}

//export Dimension
func Dimension(h C.FastTextHandle) C.int32_t {
	d, err := bridge.Default().Dimension(resource.Handle(h))
	if err != nil {
		logFailure("Dimension", err)
		return -1
	}
	return C.int32_t(d)
}

//export FreeResult
func FreeResult(p *C.char) {
	if p != nil {
		C.free(unsafe.Pointer(p))
	}
}

//export TryNewHandle
func TryNewHandle(path *C.char, out *C.FastTextHandle, errOut **C.char) C.int32_t {
	if out == nil {
		return C.int32_t(errors.CodeNilPointer)
	}
	*out = 0
	if errOut != nil {
		*errOut = nil
	}
	if path == nil {
		return tryFail("TryNewHandle", errors.NilPointer("load", "path"), errOut)
	}
	h, err := bridge.Default().Load(goString(path))
	if err != nil {
		return tryFail("TryNewHandle", err, errOut)
	}
	*out = C.FastTextHandle(h)
	return C.int32_t(errors.CodeOK)
}

//export TryPredict
func TryPredict(h C.FastTextHandle, query *C.char, out **C.char) C.int32_t {
	payload, err := predict(h, query)
	return tryResult("TryPredict", payload, err, out)
}

//export TryAnalogy
func TryAnalogy(h C.FastTextHandle, a, b, c *C.char, k C.int32_t, out **C.char) C.int32_t {
	if a == nil || b == nil || c == nil {
		return tryResult("TryAnalogy", nil, errors.NilPointer("analogy", "word"), out)
	}
	payload, err := analogy(h, a, b, c, k)
	return tryResult("TryAnalogy", payload, err, out)
}

//export TryNeighbor
func TryNeighbor(h C.FastTextHandle, query *C.char, k C.int32_t, out **C.char) C.int32_t {
	if query == nil {
		return tryResult("TryNeighbor", nil, errors.NilPointer("neighbor", "query"), out)
	}
	payload, err := neighbor(h, query, k)
	return tryResult("TryNeighbor", payload, err, out)
}

//export TryWordvec
func TryWordvec(h C.FastTextHandle, query *C.char, out **C.char) C.int32_t {
	if query == nil {
		return tryResult("TryWordvec", nil, errors.NilPointer("wordvec", "query"), out)
	}
	payload, err := wordvec(h, query)
	return tryResult("TryWordvec", payload, err, out)
}

func tryResult(fn string, payload []byte, err error, out **C.char) C.int32_t {
	if out == nil {
		return C.int32_t(errors.CodeNilPointer)
	}
	*out = nil
	if err != nil {
		return tryFail(fn, err, out)
	}
	*out = cResult(payload)
	if *out == nil {
		return C.int32_t(errors.CodeAllocation)
	}
	return C.int32_t(errors.CodeOK)
}

func tryFail(fn string, err error, msgOut **C.char) C.int32_t {
	logFailure(fn, err)
	if msgOut != nil {
		*msgOut = cResult([]byte(err.Error()))
	}
	return C.int32_t(errors.Code(err))
}

// The query text is read in place; it is only borrowed for the call.
func predict(h C.FastTextHandle, query *C.char) ([]byte, error) {
	r := view.FromCString(unsafe.Pointer(query))
	defer r.Release()
	return bridge.Default().Predict(resource.Handle(h), r)
}

func analogy(h C.FastTextHandle, a, b, c *C.char, k C.int32_t) ([]byte, error) {
	return bridge.Default().Analogy(resource.Handle(h), goString(a), goString(b), goString(c), int32(k))
}

func neighbor(h C.FastTextHandle, query *C.char, k C.int32_t) ([]byte, error) {
	return bridge.Default().Neighbor(resource.Handle(h), goString(query), int32(k))
}

func wordvec(h C.FastTextHandle, query *C.char) ([]byte, error) {
	return bridge.Default().Wordvec(resource.Handle(h), goString(query))
}
