package kurosabi

import "bytes"

// HeaderEntry is a triple of Ranges into one ByteBuffer: the header
// name, the header value, and the full physical line (including its
// trailing line terminator). Line ranges are disjoint, non-overlapping,
// and ordered by ascending Start within one HeaderList — that ordering
// is what lets Remove shift the buffer in a single pass.
type HeaderEntry struct {
	Key   Range
	Value Range
	Line  Range
}

// HeaderList is an ordered sequence of HeaderEntry values, capped at
// MaxHeaders. Lookup is a case-insensitive linear scan: at this size it
// consistently beats a map in both allocations and wall time, since no
// entry has to be copied out as a heap-allocated string key.
type HeaderList struct {
	entries []HeaderEntry
}

// NewHeaderList returns an empty list with room for MaxHeaders entries
// without reallocating.
func NewHeaderList() *HeaderList {
	return &HeaderList{entries: make([]HeaderEntry, 0, MaxHeaders)}
}

// Reset empties the list, keeping its backing array.
func (h *HeaderList) Reset() {
	h.entries = h.entries[:0]
}

// Len returns the number of header entries.
func (h *HeaderList) Len() int { return len(h.entries) }

// Entries exposes the underlying slice for iteration. Callers must not
// retain it across a Reset.
func (h *HeaderList) Entries() []HeaderEntry { return h.entries }

// Insert appends a new "key: value\r\n" line to buf and records its
// three ranges. It does not check for an existing entry with the same
// key — callers that want replace semantics should Remove first.
func (h *HeaderList) Insert(buf *ByteBuffer, key, value string) {
	lineStart := buf.Len()
	keyRange := buf.AppendString(key)
	buf.AppendByte(':')
	buf.AppendByte(' ')
	valueStart := buf.Len()
	buf.AppendString(value)
	valueRange := Range{Start: valueStart, End: buf.Len()}
	buf.AppendString("\r\n")
	lineRange := Range{Start: lineStart, End: buf.Len()}

	h.entries = append(h.entries, HeaderEntry{Key: keyRange, Value: valueRange, Line: lineRange})
}

// Get returns the value bytes for the first case-insensitive match of
// key, or nil if absent. The returned slice aliases buf and is
// invalidated by the next Reset.
func (h *HeaderList) Get(buf *ByteBuffer, key string) []byte {
	keyBytes := []byte(key)
	for _, e := range h.entries {
		if bytes.EqualFold(buf.Slice(e.Key), keyBytes) {
			return buf.Slice(e.Value)
		}
	}
	return nil
}

// GetString is a convenience wrapper around Get that allocates a string
// only at the point the caller actually needs one.
func (h *HeaderList) GetString(buf *ByteBuffer, key string) (string, bool) {
	v := h.Get(buf, key)
	if v == nil {
		return "", false
	}
	return string(v), true
}

// Remove deletes every entry whose key case-insensitively matches key,
// in a single pass over both the entry list and the backing buffer.
//
// Entries are processed in buffer order. Each entry's ranges are
// rebased by the cumulative number of bytes already deleted before it
// is compared or retained, so a single forward pass suffices: once an
// entry's Line range is deleted from buf via RemoveRange, every
// subsequent entry's ranges shift left by exactly that many bytes.
func (h *HeaderList) Remove(buf *ByteBuffer, key string) {
	keyBytes := []byte(key)
	deletedTotal := 0
	writeIdx := 0

	for readIdx := 0; readIdx < len(h.entries); readIdx++ {
		e := h.entries[readIdx]
		e.Key.Start -= deletedTotal
		e.Key.End -= deletedTotal
		e.Value.Start -= deletedTotal
		e.Value.End -= deletedTotal
		e.Line.Start -= deletedTotal
		e.Line.End -= deletedTotal

		if bytes.EqualFold(buf.Slice(e.Key), keyBytes) {
			deletedTotal += buf.RemoveRange(e.Line)
			continue
		}

		h.entries[writeIdx] = e
		writeIdx++
	}

	h.entries = h.entries[:writeIdx]
}

// findHeaderEnd scans buf[start:] for the first "\r\n\r\n" terminator,
// falling back to a CR-less "\n\n" so lenient clients are still
// accepted. A bare "\r\n" (or "\n") right at start is the empty header
// block. It returns the offset just past the terminator, or -1 if
// neither is present yet.
func findHeaderEnd(buf []byte, start int) int {
	if start+1 < len(buf) && buf[start] == '\r' && buf[start+1] == '\n' {
		return start + 2
	}
	if start < len(buf) && buf[start] == '\n' {
		return start + 1
	}
	for i := start; i+3 < len(buf); i++ {
		if buf[i] == '\r' && buf[i+1] == '\n' && buf[i+2] == '\r' && buf[i+3] == '\n' {
			return i + 4
		}
	}
	for j := start; j+1 < len(buf); j++ {
		if buf[j] == '\n' && buf[j+1] == '\n' {
			return j + 2
		}
	}
	return -1
}

// parseHeaderBlock parses buf[start:headerEnd] — a header block that
// findHeaderEnd has already located — into dst, one header per
// physical line. It returns an error if any line lacks a ':' or if more
// than MaxHeaders lines are present.
func parseHeaderBlock(dst *HeaderList, buf []byte, start, headerEnd int) error {
	dst.Reset()
	cursor := start
	lines := 0

	for cursor < headerEnd {
		lineStart := cursor
		lineEnd := cursor
		for lineEnd < headerEnd && buf[lineEnd] != '\n' {
			lineEnd++
		}
		if lineEnd >= headerEnd {
			return ErrInvalidHeader
		}
		lineEnd++ // include '\n'
		cursor = lineEnd

		line := buf[lineStart:lineEnd]
		if bytesEqual(line, []byte("\n")) || bytesEqual(line, []byte("\r\n")) {
			break
		}

		lines++
		if lines > MaxHeaders {
			return ErrTooManyHeaders
		}

		contentEnd := lineEnd - 1 // exclude '\n'
		if contentEnd > lineStart && buf[contentEnd-1] == '\r' {
			contentEnd--
		}

		colon := lineStart
		for colon < contentEnd && buf[colon] != ':' {
			colon++
		}
		if colon == contentEnd {
			return ErrInvalidHeader
		}
		if colon > lineStart && isOWS(buf[colon-1]) {
			// Whitespace immediately before the colon ("X-Foo : v") is
			// rejected rather than trimmed — an obs-fold/smuggling guard,
			// not a formatting nicety.
			return ErrInvalidHeader
		}

		keyRange := trimASCIIRange(buf, Range{Start: lineStart, End: colon})
		valueRange := trimASCIIRange(buf, Range{Start: colon + 1, End: contentEnd})

		if keyRange.Empty() {
			return ErrInvalidHeader
		}

		dst.entries = append(dst.entries, HeaderEntry{
			Key:   keyRange,
			Value: valueRange,
			Line:  Range{Start: lineStart, End: lineEnd},
		})
	}

	return nil
}

func trimASCIIRange(buf []byte, r Range) Range {
	for r.Start < r.End && isOWS(buf[r.Start]) {
		r.Start++
	}
	for r.Start < r.End && isOWS(buf[r.End-1]) {
		r.End--
	}
	return r
}

func bytesEqual(a, b []byte) bool {
	return bytes.Equal(a, b)
}
