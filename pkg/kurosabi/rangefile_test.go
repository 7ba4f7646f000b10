package kurosabi

import (
	"bufio"
	"bytes"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTempFile(t *testing.T, name, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile() err = %v", err)
	}
	return path
}

func newFileBodyConn(t *testing.T, rangeHeader string) (NoneBodyConn[int], *bytes.Buffer) {
	t.Helper()
	raw := "GET /f HTTP/1.1\r\n"
	if rangeHeader != "" {
		raw += "Range: " + rangeHeader + "\r\n"
	}
	raw += "\r\n"
	return newTestConn(t, raw)
}

func TestFileBodyServesWholeFileWithNoRangeHeader(t *testing.T) {
	path := writeTempFile(t, "a.txt", "0123456789")
	fc, err := NewFileContentBuilder(path).Build()
	if err != nil {
		t.Fatalf("Build() err = %v", err)
	}
	conn, out := newFileBodyConn(t, "")
	ready, err := conn.FileBody(fc)
	if err != nil {
		t.Fatalf("FileBody() err = %v", err)
	}
	if _, err := ready.Flush(); err != nil {
		t.Fatalf("Flush() err = %v", err)
	}
	got := out.String()
	if !strings.HasPrefix(got, "HTTP/1.1 200\r\n") {
		t.Fatalf("status line = %q", got[:20])
	}
	if !strings.HasSuffix(got, "0123456789") {
		t.Fatalf("missing body: %q", got)
	}
	if strings.Contains(got, "Content-Range") {
		t.Fatalf("unexpected Content-Range on full response: %q", got)
	}
}

func TestFileBodyServesPartialRangeFromTo(t *testing.T) {
	path := writeTempFile(t, "b.txt", "0123456789")
	fc, err := NewFileContentBuilder(path).Build()
	if err != nil {
		t.Fatalf("Build() err = %v", err)
	}
	conn, out := newFileBodyConn(t, "bytes=2-4")
	ready, err := conn.FileBody(fc)
	if err != nil {
		t.Fatalf("FileBody() err = %v", err)
	}
	if _, err := ready.Flush(); err != nil {
		t.Fatalf("Flush() err = %v", err)
	}
	got := out.String()
	if !strings.HasPrefix(got, "HTTP/1.1 206\r\n") {
		t.Fatalf("status line = %q", got[:20])
	}
	if !strings.Contains(got, "Content-Range: bytes 2-4/10\r\n") {
		t.Fatalf("missing content-range: %q", got)
	}
	if !strings.HasSuffix(got, "234") {
		t.Fatalf("body = %q, want suffix %q", got, "234")
	}
}

func TestFileBodyServesFromOffsetToEnd(t *testing.T) {
	path := writeTempFile(t, "c.txt", "0123456789")
	fc, err := NewFileContentBuilder(path).Build()
	if err != nil {
		t.Fatalf("Build() err = %v", err)
	}
	conn, out := newFileBodyConn(t, "bytes=7-")
	ready, err := conn.FileBody(fc)
	if err != nil {
		t.Fatalf("FileBody() err = %v", err)
	}
	if _, err := ready.Flush(); err != nil {
		t.Fatalf("Flush() err = %v", err)
	}
	got := out.String()
	if !strings.HasSuffix(got, "789") {
		t.Fatalf("body = %q, want suffix %q", got, "789")
	}
}

func TestFileBodyServesSuffixRange(t *testing.T) {
	path := writeTempFile(t, "d.txt", "0123456789")
	fc, err := NewFileContentBuilder(path).Build()
	if err != nil {
		t.Fatalf("Build() err = %v", err)
	}
	conn, out := newFileBodyConn(t, "bytes=-3")
	ready, err := conn.FileBody(fc)
	if err != nil {
		t.Fatalf("FileBody() err = %v", err)
	}
	if _, err := ready.Flush(); err != nil {
		t.Fatalf("Flush() err = %v", err)
	}
	got := out.String()
	if !strings.HasSuffix(got, "789") {
		t.Fatalf("body = %q, want suffix %q", got, "789")
	}
}

func TestFileBodyMalformedRangeFallsBackToDefault(t *testing.T) {
	path := writeTempFile(t, "e.txt", "0123456789")
	fc, err := NewFileContentBuilder(path).Build()
	if err != nil {
		t.Fatalf("Build() err = %v", err)
	}
	conn, out := newFileBodyConn(t, "bytes=banana")
	ready, err := conn.FileBody(fc)
	if err != nil {
		t.Fatalf("FileBody() err = %v", err)
	}
	if _, err := ready.Flush(); err != nil {
		t.Fatalf("Flush() err = %v", err)
	}
	got := out.String()
	if !strings.HasPrefix(got, "HTTP/1.1 200\r\n") {
		t.Fatalf("malformed range should fall back to full-file 200: %q", got[:20])
	}
}

func TestFileBodyMultiRangeIsTreatedAsMalformedFallback(t *testing.T) {
	path := writeTempFile(t, "f.txt", "0123456789")
	fc, err := NewFileContentBuilder(path).Build()
	if err != nil {
		t.Fatalf("Build() err = %v", err)
	}
	conn, out := newFileBodyConn(t, "bytes=0-1,3-4")
	ready, err := conn.FileBody(fc)
	if err != nil {
		t.Fatalf("FileBody() err = %v", err)
	}
	if _, err := ready.Flush(); err != nil {
		t.Fatalf("Flush() err = %v", err)
	}
	if !strings.HasPrefix(out.String(), "HTTP/1.1 200\r\n") {
		t.Fatalf("multi-range should fall back to full-file 200: %q", out.String()[:20])
	}
}

func TestFileBodyUnsatisfiableRangeProduces416(t *testing.T) {
	path := writeTempFile(t, "g.txt", "0123456789")
	fc, err := NewFileContentBuilder(path).Build()
	if err != nil {
		t.Fatalf("Build() err = %v", err)
	}
	conn, out := newFileBodyConn(t, "bytes=100-200")
	ready, err := conn.FileBody(fc)
	if err != nil {
		t.Fatalf("FileBody() err = %v", err)
	}
	if _, err := ready.Flush(); err != nil {
		t.Fatalf("Flush() err = %v", err)
	}
	if !strings.HasPrefix(out.String(), "HTTP/1.1 416\r\n") {
		t.Fatalf("status line = %q", out.String()[:20])
	}
}

func TestFileBodyFixedRangeIgnoresRangeHeaderAndOmitsAcceptRanges(t *testing.T) {
	path := writeTempFile(t, "h.txt", "0123456789")
	fc, err := NewFileContentBuilder(path).WithRange(FixedRange(2, 6)).Build()
	if err != nil {
		t.Fatalf("Build() err = %v", err)
	}
	conn, out := newFileBodyConn(t, "bytes=0-1")
	ready, err := conn.FileBody(fc)
	if err != nil {
		t.Fatalf("FileBody() err = %v", err)
	}
	if _, err := ready.Flush(); err != nil {
		t.Fatalf("Flush() err = %v", err)
	}
	got := out.String()
	if strings.Contains(got, "Accept-Ranges") {
		t.Fatalf("forced range should omit Accept-Ranges: %q", got)
	}
	if !strings.HasSuffix(got, "2345") {
		t.Fatalf("body = %q, want suffix %q", got, "2345")
	}
}

func TestFileBodyCustomContentTypeAndDisposition(t *testing.T) {
	path := writeTempFile(t, "i.bin", "data")
	fc, err := NewFileContentBuilder(path).
		WithContentType(CustomContentType("application/x-custom")).
		Name("report.bin").
		Build()
	if err != nil {
		t.Fatalf("Build() err = %v", err)
	}
	conn, out := newFileBodyConn(t, "")
	ready, err := conn.FileBody(fc)
	if err != nil {
		t.Fatalf("FileBody() err = %v", err)
	}
	if _, err := ready.Flush(); err != nil {
		t.Fatalf("Flush() err = %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "Content-Type: application/x-custom\r\n") {
		t.Fatalf("missing custom content-type: %q", got)
	}
	if !strings.Contains(got, `Content-Disposition: attachment; filename="report.bin"`) {
		t.Fatalf("missing disposition: %q", got)
	}
}

func TestFileBodyMissingFileReturnsErrFileNotFound(t *testing.T) {
	_, err := NewFileContentBuilder("/nonexistent/path/does-not-exist").Build()
	if err != ErrFileNotFound {
		t.Fatalf("err = %v, want ErrFileNotFound", err)
	}
}

// TestFileBodyUsesSendfileOverRealTCPConnection exercises FileBody's
// socket.SendFileRange fast path, which only engages when the response
// is backed by a real *net.TCPConn rather than the bytes.Buffer-backed
// bufio.Writer every other FileBody test uses.
func TestFileBodyUsesSendfileOverRealTCPConnection(t *testing.T) {
	content := strings.Repeat("0123456789", 200)
	path := writeTempFile(t, "sendfile.bin", content)
	fc, err := NewFileContentBuilder(path).Build()
	if err != nil {
		t.Fatalf("Build() err = %v", err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() err = %v", err)
	}
	defer ln.Close()

	serverDone := make(chan error, 1)
	go func() {
		nc, err := ln.Accept()
		if err != nil {
			serverDone <- err
			return
		}
		defer nc.Close()

		br := bufio.NewReader(nc)
		bw := bufio.NewWriter(nc)
		req := NewRequest(br)
		if err := req.ParseRequestLine(); err != nil {
			serverDone <- err
			return
		}
		if err := req.ParseHeaders(); err != nil {
			serverDone <- err
			return
		}

		conn := NewConnection(0, req, bw)
		conn.c.res.rawConn = nc
		ready, err := conn.FileBody(fc)
		if err != nil {
			serverDone <- err
			return
		}
		if _, pair := ready.Flush(); pair != nil {
			serverDone <- pair
			return
		}
		serverDone <- nil
	}()

	clientConn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("Dial() err = %v", err)
	}
	defer clientConn.Close()

	if _, err := clientConn.Write([]byte("GET /f HTTP/1.1\r\n\r\n")); err != nil {
		t.Fatalf("Write() err = %v", err)
	}

	resp, err := io.ReadAll(clientConn)
	if err != nil {
		t.Fatalf("ReadAll() err = %v", err)
	}
	if err := <-serverDone; err != nil {
		t.Fatalf("server goroutine err = %v", err)
	}

	got := string(resp)
	if !strings.HasPrefix(got, "HTTP/1.1 200\r\n") {
		t.Fatalf("status line = %q", got[:20])
	}
	if !strings.HasSuffix(got, content) {
		t.Fatalf("sendfile body mismatch: got %d bytes, want suffix of length %d", len(got), len(content))
	}
}

func TestParseRangeHeaderValueVariants(t *testing.T) {
	cases := []struct {
		in    string
		valid bool
		kind  rangeSpecKind
	}{
		{"bytes=0-10", true, rangeSpecFromTo},
		{"bytes=10-", true, rangeSpecFrom},
		{"bytes=-10", true, rangeSpecSuffix},
		{"bytes=", false, 0},
		{"bytes=10-5", false, 0},
		{"bytes=abc-10", false, 0},
		{"bytes=0-10,20-30", false, 0},
		{"items=0-10", false, 0},
	}
	for _, tc := range cases {
		spec, ok := parseRangeHeaderValue([]byte(tc.in))
		if ok != tc.valid {
			t.Fatalf("parseRangeHeaderValue(%q) ok = %v, want %v", tc.in, ok, tc.valid)
		}
		if ok && spec.kind != tc.kind {
			t.Fatalf("parseRangeHeaderValue(%q) kind = %v, want %v", tc.in, spec.kind, tc.kind)
		}
	}
}
