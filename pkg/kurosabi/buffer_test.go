package kurosabi

import "testing"

func TestByteBufferAppendAndSlice(t *testing.T) {
	b := NewByteBuffer(requestBufferInitCap)
	defer b.Release()

	r1 := b.Append([]byte("hello"))
	r2 := b.AppendString(" world")

	if got := string(b.Slice(r1)); got != "hello" {
		t.Fatalf("r1 = %q, want %q", got, "hello")
	}
	if got := string(b.Slice(r2)); got != " world" {
		t.Fatalf("r2 = %q, want %q", got, " world")
	}
	if b.Len() != len("hello world") {
		t.Fatalf("Len() = %d, want %d", b.Len(), len("hello world"))
	}
}

func TestByteBufferRemoveRangeShiftsSuffix(t *testing.T) {
	b := NewByteBuffer(requestBufferInitCap)
	defer b.Release()

	b.AppendString("AAABBBCCC")
	removed := b.RemoveRange(Range{Start: 3, End: 6})
	if removed != 3 {
		t.Fatalf("removed = %d, want 3", removed)
	}
	if got := string(b.Bytes()); got != "AAACCC" {
		t.Fatalf("Bytes() = %q, want %q", got, "AAACCC")
	}
}

func TestByteBufferRemoveRangeInvalidIsNoop(t *testing.T) {
	b := NewByteBuffer(requestBufferInitCap)
	defer b.Release()

	b.AppendString("hello")
	if n := b.RemoveRange(Range{Start: 3, End: 3}); n != 0 {
		t.Fatalf("empty range removed %d bytes, want 0", n)
	}
	if n := b.RemoveRange(Range{Start: 0, End: 100}); n != 0 {
		t.Fatalf("out-of-bounds range removed %d bytes, want 0", n)
	}
}

func TestByteBufferTrimASCII(t *testing.T) {
	b := NewByteBuffer(requestBufferInitCap)
	defer b.Release()

	r := b.AppendString("  \t value \t ")
	trimmed := b.TrimASCII(r)
	if got := string(b.Slice(trimmed)); got != "value" {
		t.Fatalf("TrimASCII = %q, want %q", got, "value")
	}
}

func TestByteBufferResetKeepsCapacity(t *testing.T) {
	b := NewByteBuffer(requestBufferInitCap)
	defer b.Release()

	b.AppendString("some bytes")
	b.Reset()
	if b.Len() != 0 {
		t.Fatalf("Len() after Reset = %d, want 0", b.Len())
	}
}

func TestRangeLenAndEmpty(t *testing.T) {
	r := Range{Start: 5, End: 9}
	if r.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", r.Len())
	}
	if r.Empty() {
		t.Fatalf("Empty() = true, want false")
	}
	if z := (Range{Start: 3, End: 3}); !z.Empty() {
		t.Fatalf("zero-length range Empty() = false, want true")
	}
}
