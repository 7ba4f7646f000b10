package kurosabi

import "testing"

func TestHeaderListInsertAndGet(t *testing.T) {
	buf := NewByteBuffer(requestBufferInitCap)
	defer buf.Release()
	h := NewHeaderList()

	h.Insert(buf, "Content-Type", "text/plain")
	h.Insert(buf, "X-Request-Id", "abc123")

	if got := string(h.Get(buf, "content-type")); got != "text/plain" {
		t.Fatalf("Get(content-type) = %q, want %q", got, "text/plain")
	}
	if got, ok := h.GetString(buf, "X-Request-ID"); !ok || got != "abc123" {
		t.Fatalf("GetString(X-Request-ID) = (%q, %v), want (%q, true)", got, ok, "abc123")
	}
	if h.Get(buf, "Missing") != nil {
		t.Fatalf("Get(Missing) should be nil")
	}
}

func TestHeaderListRemoveRebasesRemainingEntries(t *testing.T) {
	buf := NewByteBuffer(requestBufferInitCap)
	defer buf.Release()
	h := NewHeaderList()

	h.Insert(buf, "A", "1")
	h.Insert(buf, "B", "2")
	h.Insert(buf, "C", "3")

	h.Remove(buf, "B")

	if h.Len() != 2 {
		t.Fatalf("Len() after Remove = %d, want 2", h.Len())
	}
	if got := string(h.Get(buf, "A")); got != "1" {
		t.Fatalf("Get(A) = %q, want %q", got, "1")
	}
	if got := string(h.Get(buf, "C")); got != "3" {
		t.Fatalf("Get(C) = %q, want %q", got, "3")
	}
	if h.Get(buf, "B") != nil {
		t.Fatalf("Get(B) should be nil after Remove")
	}
}

func TestHeaderListRemoveAllMatches(t *testing.T) {
	buf := NewByteBuffer(requestBufferInitCap)
	defer buf.Release()
	h := NewHeaderList()

	h.Insert(buf, "Set-Cookie", "a=1")
	h.Insert(buf, "Set-Cookie", "b=2")
	h.Insert(buf, "Other", "x")

	h.Remove(buf, "set-cookie")

	if h.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", h.Len())
	}
	if got := string(h.Get(buf, "Other")); got != "x" {
		t.Fatalf("Get(Other) = %q, want %q", got, "x")
	}
}

func TestParseHeaderBlockRequiresColon(t *testing.T) {
	buf := NewByteBuffer(requestBufferInitCap)
	defer buf.Release()
	h := NewHeaderList()

	start := buf.Len()
	buf.AppendString("NoColonHere\r\n\r\n")
	end := findHeaderEnd(buf.Bytes(), start)
	if end < 0 {
		t.Fatalf("findHeaderEnd did not find terminator")
	}
	if err := parseHeaderBlock(h, buf.Bytes(), start, end); err != ErrInvalidHeader {
		t.Fatalf("parseHeaderBlock err = %v, want ErrInvalidHeader", err)
	}
}

func TestParseHeaderBlockRejectsWhitespaceBeforeColon(t *testing.T) {
	buf := NewByteBuffer(requestBufferInitCap)
	defer buf.Release()
	h := NewHeaderList()

	start := buf.Len()
	buf.AppendString("X-Foo : evil\r\n\r\n")
	end := findHeaderEnd(buf.Bytes(), start)
	if err := parseHeaderBlock(h, buf.Bytes(), start, end); err != ErrInvalidHeader {
		t.Fatalf("parseHeaderBlock err = %v, want ErrInvalidHeader", err)
	}
}

func TestParseHeaderBlockTrimsWhitespace(t *testing.T) {
	buf := NewByteBuffer(requestBufferInitCap)
	defer buf.Release()
	h := NewHeaderList()

	start := buf.Len()
	buf.AppendString("Host:  example.com  \r\n\r\n")
	end := findHeaderEnd(buf.Bytes(), start)
	if err := parseHeaderBlock(h, buf.Bytes(), start, end); err != nil {
		t.Fatalf("parseHeaderBlock err = %v", err)
	}
	if got := string(h.Get(buf, "Host")); got != "example.com" {
		t.Fatalf("Get(Host) = %q, want %q", got, "example.com")
	}
}

func TestFindHeaderEndFallsBackToLFLF(t *testing.T) {
	buf := []byte("Host: example.com\n\n")
	if end := findHeaderEnd(buf, 0); end != len(buf) {
		t.Fatalf("findHeaderEnd = %d, want %d", end, len(buf))
	}
}
