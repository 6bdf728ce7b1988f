// Package view exposes caller-owned memory as an io.Reader without copying.
//
// A Reader is valid only while the memory it points at is; callers release
// it before returning control to the owner of that memory.
package view

import (
	"io"
	"unsafe"
)

// Reader reads from a borrowed byte region.
type Reader struct {
	buf []byte
	pos int
}

// New returns a Reader over b. b is not copied.
func New(b []byte) *Reader {
	return &Reader{buf: b}
}

// FromCString returns a Reader over the NUL-terminated string at p,
// excluding the terminator. A nil p yields an empty Reader.
func FromCString(p unsafe.Pointer) *Reader {
	n := Strlen(p)
	if n == 0 {
		return &Reader{}
	}
	return &Reader{buf: unsafe.Slice((*byte)(p), n)}
}

// Strlen returns the number of bytes before the NUL terminator at p.
func Strlen(p unsafe.Pointer) int {
	if p == nil {
		return 0
	}
	n := 0
	for *(*byte)(unsafe.Add(p, n)) != 0 {
		n++
	}
	return n
}

// CopyString returns a Go-owned copy of the NUL-terminated string at p.
func CopyString(p unsafe.Pointer) string {
	n := Strlen(p)
	if n == 0 {
		return ""
	}
	return string(unsafe.Slice((*byte)(p), n))
}

// Read implements io.Reader.
func (r *Reader) Read(p []byte) (int, error) {
	if r.pos >= len(r.buf) {
		return 0, io.EOF
	}
	n := copy(p, r.buf[r.pos:])
	r.pos += n
	return n, nil
}

// ReadByte implements io.ByteReader.
func (r *Reader) ReadByte() (byte, error) {
	if r.pos >= len(r.buf) {
		return 0, io.EOF
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

// WriteTo implements io.WriterTo.
func (r *Reader) WriteTo(w io.Writer) (int64, error) {
	if r.pos >= len(r.buf) {
		return 0, nil
	}
	n, err := w.Write(r.buf[r.pos:])
	r.pos += n
	if err == nil && r.pos < len(r.buf) {
		err = io.ErrShortWrite
	}
	return int64(n), err
}

// Len returns the number of unread bytes.
func (r *Reader) Len() int {
	if r.pos >= len(r.buf) {
		return 0
	}
	return len(r.buf) - r.pos
}

// Pos returns the number of bytes consumed so far.
func (r *Reader) Pos() int { return r.pos }

// Release detaches the Reader from the borrowed memory. Later reads return
// io.EOF.
func (r *Reader) Release() {
	r.buf = nil
	r.pos = 0
}

var (
	_ io.Reader     = (*Reader)(nil)
	_ io.ByteReader = (*Reader)(nil)
	_ io.WriterTo   = (*Reader)(nil)
)
