package kurosabi

import (
	"bufio"
	"encoding/json"
	"io"
	"net"
	"strconv"
)

// Content-Type values for the body-form convenience methods. Kept as
// pre-declared constants rather than built per call, matching the
// pre-compiled byte-table convention this codebase's lineage uses for
// its status-line and content-type tables.
const (
	contentTypeText   = "text/plain; charset=utf-8"
	contentTypeHTML   = "text/html; charset=utf-8"
	contentTypeJSON   = "application/json"
	contentTypeBinary = "application/octet-stream"
	contentTypeXML    = "application/xml"
	contentTypeCSS    = "text/css; charset=utf-8"
	contentTypeJS     = "application/javascript; charset=utf-8"
	contentTypeCSV    = "text/csv; charset=utf-8"
	contentTypePNG    = "image/png"
	contentTypeJPG    = "image/jpeg"
	contentTypeGIF    = "image/gif"
	contentTypeSVG    = "image/svg+xml"
	contentTypePDF    = "application/pdf"
)

// response is the shared mutable state behind every typestate wrapper
// in one connection's response-building lifecycle. It is never
// exported; callers only ever see the NoneBodyConn/StatusSetNoneBodyConn/
// ChunkedResponseConn/ResponseReadyConn wrappers defined in
// connection.go.
type response struct {
	buf     *ByteBuffer
	hdrs    *HeaderList
	status  StatusCode
	version Version
	w       *bufio.Writer
	// bodyDone is true once the "\r\n" header terminator has been
	// emitted into buf (bounded body) or written to the wire
	// (streaming/chunked). No header may be added afterward — enforced
	// by the absence of AddHeader on any state reached after this
	// point, not by checking this flag.
	bodyDone bool
	// flushed is true once the response bytes already reached the wire
	// (streaming and chunked paths write incrementally); Flush then
	// only needs to drain the writer and reset.
	flushed bool
	// rawConn is the net.Conn underlying w, when known. It is nil for
	// connections built directly in tests against a bare io.Writer.
	// FileBody uses it to try socket.SendFile before falling back to
	// the buffered io.Copy path in Streaming.
	rawConn net.Conn
}

func newResponse(w *bufio.Writer) *response {
	res := &response{
		buf:     NewByteBuffer(responseBufferInitCap),
		hdrs:    NewHeaderList(),
		status:  StatusOK,
		version: VersionHTTP11,
		w:       w,
	}
	res.reserveStatusLinePrefix()
	return res
}

func (res *response) reserveStatusLinePrefix() {
	var zero [14]byte
	res.buf.Append(zero[:])
}

func (res *response) resetForReuse(w *bufio.Writer) {
	res.buf.Reset()
	res.reserveStatusLinePrefix()
	res.hdrs.Reset()
	res.status = StatusOK
	res.version = VersionHTTP11
	res.w = w
	res.bodyDone = false
	res.flushed = false
}

// writeStatusLine writes the exactly-14-byte status line into the
// buffer's reserved prefix: "HTTP/x.y SSS\r\n".
func (res *response) writeStatusLine() {
	prefix := res.buf.Bytes()[0:14]
	v := res.version.String() // e.g. "HTTP/1.1", always 8 bytes
	copy(prefix[0:8], v)
	prefix[8] = ' '
	code := int(res.status)
	prefix[9] = byte('0' + (code/100)%10)
	prefix[10] = byte('0' + (code/10)%10)
	prefix[11] = byte('0' + code%10)
	prefix[12] = '\r'
	prefix[13] = '\n'
}

func (res *response) finishHeaderBlock() {
	res.buf.AppendString("\r\n")
	res.bodyDone = true
}

// --- body-form operations, defined once on a core[C] and forwarded by
// each typestate wrapper's public method so the implementation is not
// duplicated per state. ---

func setBoundedBody[C any](c core[C], contentType string, body []byte) ResponseReadyConn[C] {
	c.res.hdrs.Insert(c.res.buf, "Content-Length", strconv.Itoa(len(body)))
	c.res.hdrs.Insert(c.res.buf, "Content-Type", contentType)
	c.res.finishHeaderBlock()
	c.res.buf.Append(body)
	return ResponseReadyConn[C]{c: c}
}

func setNoBody[C any](c core[C]) ResponseReadyConn[C] {
	c.res.finishHeaderBlock()
	return ResponseReadyConn[C]{c: c}
}

func setJSONBodySerialized[C any](c core[C], v any) (ResponseReadyConn[C], *ErrorPair[core[C]]) {
	body, err := json.Marshal(v)
	if err != nil {
		return ResponseReadyConn[C]{}, &ErrorPair[core[C]]{Err: err, Connection: c}
	}
	return setBoundedBody(c, contentTypeJSON, body), nil
}

const streamingChunkSize = 4096

func setStreaming[C any](c core[C], r io.Reader, size int64) (ResponseReadyConn[C], error) {
	c.res.hdrs.Insert(c.res.buf, "Content-Length", strconv.FormatInt(size, 10))
	c.res.finishHeaderBlock()
	c.res.writeStatusLine()
	if _, err := c.res.w.Write(c.res.buf.Bytes()); err != nil {
		return ResponseReadyConn[C]{}, err
	}
	// The header block is already on the wire; the buffer is no longer
	// needed for this response cycle.
	c.res.buf.Reset()

	var buf [streamingChunkSize]byte
	remaining := size
	for remaining > 0 {
		want := int64(len(buf))
		if remaining < want {
			want = remaining
		}
		n, err := r.Read(buf[:want])
		if n > 0 {
			if _, werr := c.res.w.Write(buf[:n]); werr != nil {
				return ResponseReadyConn[C]{}, werr
			}
			remaining -= int64(n)
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return ResponseReadyConn[C]{}, err
		}
	}

	c.res.flushed = true
	return ResponseReadyConn[C]{c: c}, nil
}

func setReadyChunked[C any](c core[C]) (ChunkedResponseConn[C], error) {
	c.res.hdrs.Insert(c.res.buf, "Transfer-Encoding", "chunked")
	c.res.finishHeaderBlock()
	c.res.writeStatusLine()
	if _, err := c.res.w.Write(c.res.buf.Bytes()); err != nil {
		return ChunkedResponseConn[C]{}, err
	}
	if err := c.res.w.Flush(); err != nil {
		return ChunkedResponseConn[C]{}, err
	}
	c.res.buf.Reset()
	return ChunkedResponseConn[C]{c: c}, nil
}

// --- NoneBodyConn body forms ---

func (n NoneBodyConn[C]) NoBody() ResponseReadyConn[C]         { return setNoBody(n.c) }
func (n NoneBodyConn[C]) TextBody(s string) ResponseReadyConn[C] {
	return setBoundedBody(n.c, contentTypeText, []byte(s))
}
func (n NoneBodyConn[C]) HTMLBody(s string) ResponseReadyConn[C] {
	return setBoundedBody(n.c, contentTypeHTML, []byte(s))
}
func (n NoneBodyConn[C]) BinaryBody(b []byte) ResponseReadyConn[C] {
	return setBoundedBody(n.c, contentTypeBinary, b)
}
func (n NoneBodyConn[C]) JSONBody(b []byte) ResponseReadyConn[C] {
	return setBoundedBody(n.c, contentTypeJSON, b)
}
func (n NoneBodyConn[C]) JSONBodySerialized(v any) (ResponseReadyConn[C], *ErrorPair[core[C]]) {
	return setJSONBodySerialized(n.c, v)
}
func (n NoneBodyConn[C]) XMLBody(b []byte) ResponseReadyConn[C] {
	return setBoundedBody(n.c, contentTypeXML, b)
}
func (n NoneBodyConn[C]) CSSBody(s string) ResponseReadyConn[C] {
	return setBoundedBody(n.c, contentTypeCSS, []byte(s))
}
func (n NoneBodyConn[C]) JSBody(s string) ResponseReadyConn[C] {
	return setBoundedBody(n.c, contentTypeJS, []byte(s))
}
func (n NoneBodyConn[C]) CSVBody(s string) ResponseReadyConn[C] {
	return setBoundedBody(n.c, contentTypeCSV, []byte(s))
}
func (n NoneBodyConn[C]) PNGBody(b []byte) ResponseReadyConn[C] {
	return setBoundedBody(n.c, contentTypePNG, b)
}
func (n NoneBodyConn[C]) JPGBody(b []byte) ResponseReadyConn[C] {
	return setBoundedBody(n.c, contentTypeJPG, b)
}
func (n NoneBodyConn[C]) GIFBody(b []byte) ResponseReadyConn[C] {
	return setBoundedBody(n.c, contentTypeGIF, b)
}
func (n NoneBodyConn[C]) SVGBody(b []byte) ResponseReadyConn[C] {
	return setBoundedBody(n.c, contentTypeSVG, b)
}
func (n NoneBodyConn[C]) PDFBody(b []byte) ResponseReadyConn[C] {
	return setBoundedBody(n.c, contentTypePDF, b)
}
func (n NoneBodyConn[C]) Streaming(r io.Reader, size int64) (ResponseReadyConn[C], error) {
	return setStreaming(n.c, r, size)
}
func (n NoneBodyConn[C]) ReadyChunked() (ChunkedResponseConn[C], error) {
	return setReadyChunked(n.c)
}

// --- StatusSetNoneBodyConn body forms (identical set, different receiver state) ---

func (s StatusSetNoneBodyConn[C]) NoBody() ResponseReadyConn[C] { return setNoBody(s.c) }
func (s StatusSetNoneBodyConn[C]) TextBody(t string) ResponseReadyConn[C] {
	return setBoundedBody(s.c, contentTypeText, []byte(t))
}
func (s StatusSetNoneBodyConn[C]) HTMLBody(t string) ResponseReadyConn[C] {
	return setBoundedBody(s.c, contentTypeHTML, []byte(t))
}
func (s StatusSetNoneBodyConn[C]) BinaryBody(b []byte) ResponseReadyConn[C] {
	return setBoundedBody(s.c, contentTypeBinary, b)
}
func (s StatusSetNoneBodyConn[C]) JSONBody(b []byte) ResponseReadyConn[C] {
	return setBoundedBody(s.c, contentTypeJSON, b)
}
func (s StatusSetNoneBodyConn[C]) JSONBodySerialized(v any) (ResponseReadyConn[C], *ErrorPair[core[C]]) {
	return setJSONBodySerialized(s.c, v)
}
func (s StatusSetNoneBodyConn[C]) XMLBody(b []byte) ResponseReadyConn[C] {
	return setBoundedBody(s.c, contentTypeXML, b)
}
func (s StatusSetNoneBodyConn[C]) CSSBody(t string) ResponseReadyConn[C] {
	return setBoundedBody(s.c, contentTypeCSS, []byte(t))
}
func (s StatusSetNoneBodyConn[C]) JSBody(t string) ResponseReadyConn[C] {
	return setBoundedBody(s.c, contentTypeJS, []byte(t))
}
func (s StatusSetNoneBodyConn[C]) CSVBody(t string) ResponseReadyConn[C] {
	return setBoundedBody(s.c, contentTypeCSV, []byte(t))
}
func (s StatusSetNoneBodyConn[C]) PNGBody(b []byte) ResponseReadyConn[C] {
	return setBoundedBody(s.c, contentTypePNG, b)
}
func (s StatusSetNoneBodyConn[C]) JPGBody(b []byte) ResponseReadyConn[C] {
	return setBoundedBody(s.c, contentTypeJPG, b)
}
func (s StatusSetNoneBodyConn[C]) GIFBody(b []byte) ResponseReadyConn[C] {
	return setBoundedBody(s.c, contentTypeGIF, b)
}
func (s StatusSetNoneBodyConn[C]) SVGBody(b []byte) ResponseReadyConn[C] {
	return setBoundedBody(s.c, contentTypeSVG, b)
}
func (s StatusSetNoneBodyConn[C]) PDFBody(b []byte) ResponseReadyConn[C] {
	return setBoundedBody(s.c, contentTypePDF, b)
}
func (s StatusSetNoneBodyConn[C]) Streaming(r io.Reader, size int64) (ResponseReadyConn[C], error) {
	return setStreaming(s.c, r, size)
}
func (s StatusSetNoneBodyConn[C]) ReadyChunked() (ChunkedResponseConn[C], error) {
	return setReadyChunked(s.c)
}

// --- ChunkedResponseConn ---

// SendChunk emits "hex(len)\r\n" + b + "\r\n" and flushes the
// underlying writer immediately, favoring low-latency delivery of each
// chunk over batching several chunks into one syscall. See the Design
// Note on chunk flushing.
func (cc ChunkedResponseConn[C]) SendChunk(b []byte) (ChunkedResponseConn[C], error) {
	if len(b) == 0 {
		return cc, nil
	}
	header := strconv.FormatInt(int64(len(b)), 16)
	if _, err := cc.c.res.w.WriteString(header); err != nil {
		return cc, err
	}
	if _, err := cc.c.res.w.WriteString("\r\n"); err != nil {
		return cc, err
	}
	if _, err := cc.c.res.w.Write(b); err != nil {
		return cc, err
	}
	if _, err := cc.c.res.w.WriteString("\r\n"); err != nil {
		return cc, err
	}
	if err := cc.c.res.w.Flush(); err != nil {
		return cc, err
	}
	return cc, nil
}

// SendLastChunk emits the terminating "0\r\n\r\n" zero-length chunk but
// does not itself transition state; call CloseChunked afterward.
func (cc ChunkedResponseConn[C]) SendLastChunk() (ChunkedResponseConn[C], error) {
	if _, err := cc.c.res.w.WriteString("0\r\n\r\n"); err != nil {
		return cc, err
	}
	if err := cc.c.res.w.Flush(); err != nil {
		return cc, err
	}
	return cc, nil
}

// CloseChunked transitions to ResponseReadyConn. The chunked bytes
// already reached the wire via SendChunk/SendLastChunk, so the returned
// state is marked already-flushed.
func (cc ChunkedResponseConn[C]) CloseChunked() ResponseReadyConn[C] {
	cc.c.res.flushed = true
	return ResponseReadyConn[C]{c: cc.c}
}
