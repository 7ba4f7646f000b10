package kurosabi

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestChunkedReaderDecodesMultipleChunks(t *testing.T) {
	raw := "5\r\nhello\r\n6\r\n world\r\n0\r\n\r\n"
	cr := NewChunkedReader(bufio.NewReader(strings.NewReader(raw)))
	got, err := io.ReadAll(cr)
	if err != nil {
		t.Fatalf("ReadAll() err = %v", err)
	}
	if string(got) != "hello world" {
		t.Fatalf("got = %q, want %q", got, "hello world")
	}
	if cr.TotalRead() != 11 {
		t.Fatalf("TotalRead() = %d, want 11", cr.TotalRead())
	}
}

func TestChunkedReaderIgnoresChunkExtensions(t *testing.T) {
	raw := "3;ext=foo\r\nabc\r\n0\r\n\r\n"
	cr := NewChunkedReader(bufio.NewReader(strings.NewReader(raw)))
	got, err := io.ReadAll(cr)
	if err != nil {
		t.Fatalf("ReadAll() err = %v", err)
	}
	if string(got) != "abc" {
		t.Fatalf("got = %q, want %q", got, "abc")
	}
}

func TestChunkedReaderSkipsTrailers(t *testing.T) {
	raw := "3\r\nabc\r\n0\r\nX-Trailer: ignored\r\n\r\n"
	cr := NewChunkedReader(bufio.NewReader(strings.NewReader(raw)))
	got, err := io.ReadAll(cr)
	if err != nil {
		t.Fatalf("ReadAll() err = %v", err)
	}
	if string(got) != "abc" {
		t.Fatalf("got = %q, want %q", got, "abc")
	}
}

func TestChunkedReaderRejectsBadHexSize(t *testing.T) {
	raw := "zz\r\nabc\r\n0\r\n\r\n"
	cr := NewChunkedReader(bufio.NewReader(strings.NewReader(raw)))
	_, err := io.ReadAll(cr)
	if !errors.Is(err, ErrChunkedEncoding) {
		t.Fatalf("err = %v, want ErrChunkedEncoding", err)
	}
}

func TestChunkedReaderRejectsOversizedChunk(t *testing.T) {
	raw := "10\r\nabc\r\n0\r\n\r\n" // declares 16 bytes, only 3 supplied
	cr := NewChunkedReaderWithLimits(bufio.NewReader(strings.NewReader(raw)), 8, 0)
	_, err := io.ReadAll(cr)
	if !errors.Is(err, ErrChunkedEncoding) {
		t.Fatalf("err = %v, want ErrChunkedEncoding", err)
	}
}

func TestChunkedReaderRejectsOverTotalBodyLimit(t *testing.T) {
	raw := "5\r\nhello\r\n5\r\nworld\r\n0\r\n\r\n"
	cr := NewChunkedReaderWithLimits(bufio.NewReader(strings.NewReader(raw)), 0, 6)
	_, err := io.ReadAll(cr)
	if !errors.Is(err, ErrChunkedEncoding) {
		t.Fatalf("err = %v, want ErrChunkedEncoding", err)
	}
}

func TestChunkedReaderRejectsTruncatedStream(t *testing.T) {
	raw := "5\r\nhel"
	cr := NewChunkedReader(bufio.NewReader(strings.NewReader(raw)))
	_, err := io.ReadAll(cr)
	if err == nil {
		t.Fatalf("expected an error on truncated chunked body")
	}
}

func TestChunkedReaderMissingTrailingCRLFIsRejected(t *testing.T) {
	raw := "3\r\nabcXX0\r\n\r\n"
	cr := NewChunkedReader(bufio.NewReader(strings.NewReader(raw)))
	_, err := io.ReadAll(cr)
	if !errors.Is(err, ErrChunkedEncoding) {
		t.Fatalf("err = %v, want ErrChunkedEncoding", err)
	}
}

func TestChunkedReaderCloseIsNoop(t *testing.T) {
	cr := NewChunkedReader(bufio.NewReader(bytes.NewReader(nil)))
	if err := cr.Close(); err != nil {
		t.Fatalf("Close() err = %v", err)
	}
}
