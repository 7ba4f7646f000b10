// Package kurosabi implements the connection lifecycle engine for an
// HTTP/1.1 server: zero-copy request parsing, a typestate response
// builder, range-aware file streaming, chunked transfer encoding, and a
// two-timeout keep-alive routing loop.
package kurosabi

import (
	"github.com/valyala/bytebufferpool"
)

// MaxHeaderBytes is the maximum number of bytes a ByteBuffer may grow to
// while accumulating a single request's header block.
const MaxHeaderBytes = 32 * 1024

// MaxHeaders is the maximum number of header lines accepted in one
// request or response.
const MaxHeaders = 128

const (
	requestBufferInitCap  = 64
	responseBufferInitCap = 1024
)

// Range is a half-open [Start, End) view into a ByteBuffer. A Range is
// only valid until the buffer it was taken from is reset; callers must
// not retain a Range across a Request/Response lifecycle boundary.
type Range struct {
	Start int
	End   int
}

// Len returns the number of bytes the range spans.
func (r Range) Len() int { return r.End - r.Start }

// Empty reports whether the range spans zero bytes.
func (r Range) Empty() bool { return r.Start >= r.End }

// ByteBuffer is a growable, append-only (within one request/response
// cycle) byte store. Headers and other structured views reference this
// buffer by Range rather than copying substrings out of it.
type ByteBuffer struct {
	buf *bytebufferpool.ByteBuffer
}

// NewByteBuffer returns an empty buffer pre-sized for the given initial
// capacity hint (64 bytes for requests, 1 KiB for responses, per the
// data model).
func NewByteBuffer(initialCap int) *ByteBuffer {
	bb := bytebufferpool.Get()
	if cap(bb.B) < initialCap {
		bb.B = make([]byte, 0, initialCap)
	}
	return &ByteBuffer{buf: bb}
}

// Release returns the underlying storage to the pool. The ByteBuffer
// must not be used afterward.
func (b *ByteBuffer) Release() {
	if b.buf != nil {
		bytebufferpool.Put(b.buf)
		b.buf = nil
	}
}

// Reset empties the buffer in place, keeping its allocated capacity.
func (b *ByteBuffer) Reset() {
	b.buf.Reset()
}

// Len returns the current number of bytes stored.
func (b *ByteBuffer) Len() int { return b.buf.Len() }

// Bytes returns the full backing slice. Callers must not retain it
// across a Reset.
func (b *ByteBuffer) Bytes() []byte { return b.buf.Bytes() }

// Append writes p to the end of the buffer and returns the Range it now
// occupies.
func (b *ByteBuffer) Append(p []byte) Range {
	start := b.buf.Len()
	_, _ = b.buf.Write(p)
	return Range{Start: start, End: b.buf.Len()}
}

// AppendByte writes a single byte and returns its one-byte Range.
func (b *ByteBuffer) AppendByte(c byte) Range {
	start := b.buf.Len()
	_ = b.buf.WriteByte(c)
	return Range{Start: start, End: b.buf.Len()}
}

// AppendString writes s to the end of the buffer and returns the Range
// it now occupies.
func (b *ByteBuffer) AppendString(s string) Range {
	start := b.buf.Len()
	_, _ = b.buf.WriteString(s)
	return Range{Start: start, End: b.buf.Len()}
}

// Slice returns the bytes addressed by r. The slice aliases the buffer's
// backing array and is invalidated by the next Reset.
func (b *ByteBuffer) Slice(r Range) []byte {
	buf := b.buf.Bytes()
	if r.Start < 0 || r.End > len(buf) || r.Start > r.End {
		return nil
	}
	return buf[r.Start:r.End]
}

// RemoveRange deletes the bytes in r, shifting every later byte left by
// r.Len(). It returns the number of bytes removed. Callers holding
// Ranges into positions at or after r.End must rebase them by the
// returned amount before using them again; see HeaderList.Remove for
// the canonical multi-entry rebase loop.
func (b *ByteBuffer) RemoveRange(r Range) int {
	buf := b.buf.Bytes()
	n := len(buf)
	if r.Start < 0 || r.End > n || r.Start >= r.End {
		return 0
	}
	removed := r.End - r.Start
	copy(buf[r.Start:], buf[r.End:])
	b.buf.B = buf[:n-removed]
	return removed
}

// TrimASCII narrows r by stripping leading and trailing ASCII whitespace
// (space, horizontal tab, CR and LF), which covers the OWS (optional
// whitespace) trimming HTTP header values require.
func (b *ByteBuffer) TrimASCII(r Range) Range {
	buf := b.buf.Bytes()
	start, end := r.Start, r.End
	for start < end && isOWS(buf[start]) {
		start++
	}
	for start < end && isOWS(buf[end-1]) {
		end--
	}
	return Range{Start: start, End: end}
}

func isOWS(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}
