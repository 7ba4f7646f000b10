package kurosabi

import (
	"io"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Encoding names a content-coding token as it appears in
// Accept-Encoding / Content-Encoding.
type Encoding string

const (
	EncodingIdentity Encoding = "identity"
	EncodingGzip     Encoding = "gzip"
	EncodingBrotli   Encoding = "br"
	EncodingZstd     Encoding = "zstd"
)

// CompressWriter wraps an io.Writer with a content-coding. Close must
// be called to flush any trailing frame the codec buffers internally
// (gzip and zstd both do); it does not close the underlying writer.
type CompressWriter interface {
	io.WriteCloser
}

// NewCompressWriter wraps w with the stream transform for enc. Core
// response bodies stay uncompressed (Non-goals); this exists so a
// handler that wants compression for a large streamed or chunked body
// can opt in explicitly per request, rather than the engine guessing
// from Accept-Encoding.
func NewCompressWriter(w io.Writer, enc Encoding) (CompressWriter, error) {
	switch enc {
	case EncodingGzip:
		return gzip.NewWriter(w), nil
	case EncodingBrotli:
		return brotli.NewWriter(w), nil
	case EncodingZstd:
		return zstd.NewWriter(w)
	case EncodingIdentity, "":
		return nopWriteCloser{w}, nil
	default:
		return nil, ErrInvalidHeader
	}
}

// NewDecompressReader wraps r with the inverse stream transform for
// enc, for reading a compressed request body. Chunked transfer
// encoding and content-coding are independent axes (RFC 7230 §3.3.1);
// a chunked body may also be gzip/br/zstd-encoded, in which case the
// caller first drains ChunkedReader and wraps the result here.
func NewDecompressReader(r io.Reader, enc Encoding) (io.ReadCloser, error) {
	switch enc {
	case EncodingGzip:
		return gzip.NewReader(r)
	case EncodingBrotli:
		return io.NopCloser(brotli.NewReader(r)), nil
	case EncodingZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return zstdReaderCloser{zr}, nil
	case EncodingIdentity, "":
		return io.NopCloser(r), nil
	default:
		return nil, ErrInvalidHeader
	}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// zstdReaderCloser adapts *zstd.Decoder's Close (no error return) to
// io.ReadCloser.
type zstdReaderCloser struct{ d *zstd.Decoder }

func (z zstdReaderCloser) Read(p []byte) (int, error) { return z.d.Read(p) }
func (z zstdReaderCloser) Close() error                { z.d.Close(); return nil }

// StreamingCompressed is the compressed-body counterpart of
// NoneBodyConn.Streaming: it wraps r with enc's write-side transform,
// writes through a pipe so the compressed byte count doesn't need to
// be known up front, and sends Transfer-Encoding: chunked framing
// around the compressed stream.
func (n NoneBodyConn[C]) StreamingCompressed(r io.Reader, enc Encoding) (ResponseReadyConn[C], error) {
	cc, err := n.AddHeader("Content-Encoding", string(enc)).ReadyChunked()
	if err != nil {
		return ResponseReadyConn[C]{}, err
	}

	pr, pw := io.Pipe()
	cw, err := NewCompressWriter(pw, enc)
	if err != nil {
		pw.Close()
		return ResponseReadyConn[C]{}, err
	}

	go func() {
		_, copyErr := io.Copy(cw, r)
		closeErr := cw.Close()
		if copyErr == nil {
			copyErr = closeErr
		}
		pw.CloseWithError(copyErr)
	}()

	buf := make([]byte, streamingChunkSize)
	for {
		n, readErr := pr.Read(buf)
		if n > 0 {
			if cc, err = cc.SendChunk(buf[:n]); err != nil {
				return ResponseReadyConn[C]{}, err
			}
		}
		if readErr != nil {
			if readErr == io.EOF {
				break
			}
			return ResponseReadyConn[C]{}, readErr
		}
	}
	if cc, err = cc.SendLastChunk(); err != nil {
		return ResponseReadyConn[C]{}, err
	}
	return cc.CloseChunked(), nil
}
