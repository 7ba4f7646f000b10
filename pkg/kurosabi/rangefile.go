package kurosabi

import (
	"bytes"
	"io"
	"net"
	"os"
	"strconv"

	"github.com/watt-toolkit/kurosabi/pkg/kurosabi/mime"
	"github.com/watt-toolkit/kurosabi/pkg/kurosabi/socket"
)

// ContentType selects how a FileContentBuilder determines the
// Content-Type header for a served file.
type ContentType struct {
	guess  bool
	custom string
}

// GuessContentType derives Content-Type from the file's extension via
// the mime package at build time.
func GuessContentType() ContentType { return ContentType{guess: true} }

// CustomContentType pins Content-Type to a fixed value.
func CustomContentType(ct string) ContentType { return ContentType{custom: ct} }

// ContentRange configures how a FileContentBuilder bounds the default
// (no Range header) and maximum servable range of a file.
type ContentRange struct {
	kind  contentRangeKind
	limit uint64
	start uint64
	end   uint64
}

type contentRangeKind int

const (
	contentRangeAuto contentRangeKind = iota
	contentRangeAutoWithLimit
	contentRangeStartEnd
)

// AutoRange serves the whole file by default and honors any Range
// header against the whole file.
func AutoRange() ContentRange { return ContentRange{kind: contentRangeAuto} }

// AutoRangeWithLimit is like AutoRange but caps any single response to
// at most limit bytes, regardless of what a Range header requests.
func AutoRangeWithLimit(limit uint64) ContentRange {
	return ContentRange{kind: contentRangeAutoWithLimit, limit: limit}
}

// FixedRange pins the servable window to [start, end) and ignores the
// request's Range header entirely — ForceRange is set on the resulting
// FileContent.
func FixedRange(start, end uint64) ContentRange {
	if start > end {
		start, end = end, start
	}
	return ContentRange{kind: contentRangeStartEnd, start: start, end: end}
}

// ContentDisposition selects the Content-Disposition header, if any,
// sent alongside a file body.
type ContentDisposition struct {
	kind     dispositionKind
	filename string
}

type dispositionKind int

const (
	dispositionAttachment dispositionKind = iota
	dispositionInline
	dispositionAttachmentNamed
)

// Inline sets Content-Disposition: inline.
func Inline() ContentDisposition { return ContentDisposition{kind: dispositionInline} }

// Attachment sets Content-Disposition: attachment, with no filename
// parameter.
func Attachment() ContentDisposition { return ContentDisposition{kind: dispositionAttachment} }

// AttachmentNamed sets Content-Disposition: attachment; filename="name".
func AttachmentNamed(name string) ContentDisposition {
	return ContentDisposition{kind: dispositionAttachmentNamed, filename: name}
}

// FileContentBuilder configures how a file is opened and served by
// NoneBodyConn.FileBody. The zero-value-free construction via
// NewFileContentBuilder mirrors the teacher's builder-then-build
// pattern for multi-option request construction.
type FileContentBuilder struct {
	path        string
	contentType ContentType
	rangeCfg    ContentRange
	disposition ContentDisposition
}

// NewFileContentBuilder starts a builder for the file at path. The
// default disposition is an attachment named after the file's base
// name; override with Inline or Name.
func NewFileContentBuilder(path string) *FileContentBuilder {
	base := path
	if idx := lastIndexByte(path, '/'); idx >= 0 {
		base = path[idx+1:]
	}
	disp := Attachment()
	if base != "" {
		disp = AttachmentNamed(base)
	}
	return &FileContentBuilder{
		path:        path,
		contentType: GuessContentType(),
		rangeCfg:    AutoRange(),
		disposition: disp,
	}
}

func lastIndexByte(s string, b byte) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == b {
			return i
		}
	}
	return -1
}

// Name overrides the attachment filename.
func (b *FileContentBuilder) Name(name string) *FileContentBuilder {
	b.disposition = AttachmentNamed(name)
	return b
}

// Inline switches disposition to inline.
func (b *FileContentBuilder) Inline() *FileContentBuilder {
	b.disposition = Inline()
	return b
}

// WithContentType overrides content-type detection.
func (b *FileContentBuilder) WithContentType(ct ContentType) *FileContentBuilder {
	b.contentType = ct
	return b
}

// WithRange overrides the default/maximum servable range.
func (b *FileContentBuilder) WithRange(cr ContentRange) *FileContentBuilder {
	b.rangeCfg = cr
	return b
}

// FileContent is the opened, range-resolved form of a
// FileContentBuilder, ready to be streamed by NoneBodyConn.FileBody or
// StatusSetNoneBodyConn.FileBody.
type FileContent struct {
	file         *os.File
	mimeType     string
	fullSize     uint64
	defaultRange [2]uint64 // [start, end)
	maxSize      uint64
	disposition  ContentDisposition
	forceRange   bool
}

// Build opens the file and resolves its size, MIME type, and default
// range window, or returns ErrFileNotFound on failure.
func (b *FileContentBuilder) Build() (*FileContent, error) {
	f, err := os.Open(b.path)
	if err != nil {
		return nil, ErrFileNotFound
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, ErrFileNotFound
	}

	mimeType := b.contentType.custom
	if b.contentType.guess {
		mimeType = mime.Guess(b.path)
	}

	fullSize := uint64(stat.Size())
	fc := &FileContent{
		file:         f,
		mimeType:     mimeType,
		fullSize:     fullSize,
		defaultRange: [2]uint64{0, fullSize},
		maxSize:      fullSize,
		disposition:  b.disposition,
	}

	switch b.rangeCfg.kind {
	case contentRangeAuto:
		// defaults already cover the whole file
	case contentRangeAutoWithLimit:
		limit := b.rangeCfg.limit
		if limit < fullSize {
			fc.maxSize = limit
		}
	case contentRangeStartEnd:
		start := b.rangeCfg.start
		if start > fullSize {
			start = fullSize
		}
		end := b.rangeCfg.end
		if end > fullSize {
			end = fullSize
		}
		fc.defaultRange = [2]uint64{start, end}
		fc.forceRange = true
	}

	return fc, nil
}

// Close releases the underlying file handle. FileBody calls this once
// streaming completes or fails.
func (fc *FileContent) Close() error { return fc.file.Close() }

// resolveRange applies the request's Range header (if any, and if not
// overridden by ForceRange) against fc, returning the resolved
// half-open byte window and whether the response is a partial (206)
// response, i.e. whether the window is smaller than the whole file. A malformed Range header falls back to fc.defaultRange
// rather than failing the request. An empty or inverted resolved
// window is reported via ok=false so the caller can respond 416.
func (fc *FileContent) resolveRange(rangeHeader []byte) (start, end uint64, partial bool, ok bool) {
	if fc.forceRange || len(rangeHeader) == 0 {
		start, end = fc.defaultRange[0], fc.defaultRange[1]
		return start, end, end-start != fc.fullSize, true
	}

	spec, valid := parseRangeHeaderValue(rangeHeader)
	if !valid {
		start, end = fc.defaultRange[0], fc.defaultRange[1]
		return start, end, end-start != fc.fullSize, true
	}

	def := fc.defaultRange
	switch spec.kind {
	case rangeSpecFromTo:
		s := maxU64(spec.start, def[0])
		e := minU64(spec.end+1, def[1])
		e = minU64(e, s+fc.maxSize)
		if s >= e {
			return 0, 0, false, false
		}
		return s, e, e-s != fc.fullSize, true
	case rangeSpecFrom:
		s := maxU64(spec.start, def[0])
		e := minU64(def[1], s+fc.maxSize)
		if s >= e {
			return 0, 0, false, false
		}
		return s, e, e-s != fc.fullSize, true
	case rangeSpecSuffix:
		e := def[1]
		length := spec.length
		if length > fc.maxSize {
			length = fc.maxSize
		}
		s := subU64(e, length)
		if s < def[0] {
			s = def[0]
		}
		if s >= e {
			return 0, 0, false, false
		}
		return s, e, e-s != fc.fullSize, true
	}
	return 0, 0, false, false
}

func maxU64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

func minU64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

func subU64(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}

type rangeSpecKind int

const (
	rangeSpecFromTo rangeSpecKind = iota
	rangeSpecFrom
	rangeSpecSuffix
)

type rangeSpec struct {
	kind   rangeSpecKind
	start  uint64
	end    uint64
	length uint64
}

// parseRangeHeaderValue parses a single-range "bytes=S-E", "bytes=S-",
// or "bytes=-L" Range header value. Multi-range requests
// ("bytes=0-10,20-30") are treated as invalid — this engine serves at
// most one byte range per response (Non-goals).
func parseRangeHeaderValue(v []byte) (rangeSpec, bool) {
	const prefix = "bytes="
	if !bytes.HasPrefix(v, []byte(prefix)) {
		return rangeSpec{}, false
	}
	v = v[len(prefix):]
	if bytes.IndexByte(v, ',') >= 0 {
		return rangeSpec{}, false
	}
	dash := bytes.IndexByte(v, '-')
	if dash < 0 {
		return rangeSpec{}, false
	}
	startBytes := v[:dash]
	endBytes := v[dash+1:]

	if len(startBytes) == 0 {
		if len(endBytes) == 0 {
			return rangeSpec{}, false
		}
		length, err := strconv.ParseUint(string(endBytes), 10, 64)
		if err != nil {
			return rangeSpec{}, false
		}
		return rangeSpec{kind: rangeSpecSuffix, length: length}, true
	}

	start, err := strconv.ParseUint(string(startBytes), 10, 64)
	if err != nil {
		return rangeSpec{}, false
	}
	if len(endBytes) == 0 {
		return rangeSpec{kind: rangeSpecFrom, start: start}, true
	}
	end, err := strconv.ParseUint(string(endBytes), 10, 64)
	if err != nil || end < start {
		return rangeSpec{}, false
	}
	return rangeSpec{kind: rangeSpecFromTo, start: start, end: end}, true
}

func (d ContentDisposition) headerValue() string {
	switch d.kind {
	case dispositionInline:
		return "inline"
	case dispositionAttachmentNamed:
		return "attachment; filename=\"" + d.filename + "\""
	default:
		return "attachment"
	}
}

// setFileStreaming writes the header block, then streams [start,
// start+size) of file to the wire. When the response's underlying
// connection is a *net.TCPConn, it does so via socket.SendFileRange —
// a zero-copy kernel-side transfer that never stages the file's bytes
// through a Go-owned buffer — instead of the generic io.Reader copy
// loop setStreaming otherwise uses. Connections built directly against
// a bare io.Writer (as in tests) have no rawConn and always take the
// io.Reader path.
func setFileStreaming[C any](c core[C], file *os.File, start, size int64) (ResponseReadyConn[C], error) {
	tcpConn, ok := c.res.rawConn.(*net.TCPConn)
	if !ok || !socket.CanUseSendFile(tcpConn) {
		return setStreaming(c, io.NewSectionReader(file, start, size), size)
	}

	c.res.hdrs.Insert(c.res.buf, "Content-Length", strconv.FormatInt(size, 10))
	c.res.finishHeaderBlock()
	c.res.writeStatusLine()
	if _, err := c.res.w.Write(c.res.buf.Bytes()); err != nil {
		return ResponseReadyConn[C]{}, err
	}
	c.res.buf.Reset()
	if err := c.res.w.Flush(); err != nil {
		return ResponseReadyConn[C]{}, err
	}

	if _, err := socket.SendFileRange(tcpConn, file, start, start+size-1); err != nil {
		return ResponseReadyConn[C]{}, err
	}

	c.res.flushed = true
	return ResponseReadyConn[C]{c: c}, nil
}

func (n NoneBodyConn[C]) streamFile(file *os.File, start, size int64) (ResponseReadyConn[C], error) {
	return setFileStreaming(n.c, file, start, size)
}

func (s StatusSetNoneBodyConn[C]) streamFile(file *os.File, start, size int64) (ResponseReadyConn[C], error) {
	return setFileStreaming(s.c, file, start, size)
}

// FileBody serves fc as the response body, resolving the request's
// Range header against it and streaming the resolved window. It closes
// fc regardless of outcome. A resolved-but-unsatisfiable range produces
// 416 with no body rather than an error.
func (n NoneBodyConn[C]) FileBody(fc *FileContent) (ResponseReadyConn[C], error) {
	defer fc.Close()

	rangeHeader := n.c.req.Header("Range")
	start, end, partial, ok := fc.resolveRange(rangeHeader)
	if !ok {
		return n.SetStatusCode(StatusRangeNotSatisfiable).NoBody(), nil
	}

	n.c.res.hdrs.Insert(n.c.res.buf, "Content-Type", fc.mimeType)
	n.c.res.hdrs.Insert(n.c.res.buf, "Content-Disposition", fc.disposition.headerValue())
	if !fc.forceRange {
		n.c.res.hdrs.Insert(n.c.res.buf, "Accept-Ranges", "bytes")
	}

	size := int64(end - start)

	if partial {
		n.c.res.hdrs.Insert(n.c.res.buf, "Content-Range",
			"bytes "+strconv.FormatUint(start, 10)+"-"+strconv.FormatUint(end-1, 10)+"/"+strconv.FormatUint(fc.fullSize, 10))
		return n.SetStatusCode(StatusPartialContent).streamFile(fc.file, int64(start), size)
	}
	return n.SetStatusCode(StatusOK).streamFile(fc.file, int64(start), size)
}

// FileBody is the StatusSetNoneBodyConn counterpart of
// NoneBodyConn.FileBody, for handlers that already set a status before
// discovering the response is a file.
func (s StatusSetNoneBodyConn[C]) FileBody(fc *FileContent) (ResponseReadyConn[C], error) {
	defer fc.Close()

	rangeHeader := s.c.req.Header("Range")
	start, end, partial, ok := fc.resolveRange(rangeHeader)
	if !ok {
		return s.SetStatusCode(StatusRangeNotSatisfiable).NoBody(), nil
	}

	s.c.res.hdrs.Insert(s.c.res.buf, "Content-Type", fc.mimeType)
	s.c.res.hdrs.Insert(s.c.res.buf, "Content-Disposition", fc.disposition.headerValue())
	if !fc.forceRange {
		s.c.res.hdrs.Insert(s.c.res.buf, "Accept-Ranges", "bytes")
	}

	size := int64(end - start)

	if partial {
		s.c.res.hdrs.Insert(s.c.res.buf, "Content-Range",
			"bytes "+strconv.FormatUint(start, 10)+"-"+strconv.FormatUint(end-1, 10)+"/"+strconv.FormatUint(fc.fullSize, 10))
		return s.SetStatusCode(StatusPartialContent).streamFile(fc.file, int64(start), size)
	}
	return s.SetStatusCode(StatusOK).streamFile(fc.file, int64(start), size)
}
