//go:build !linux && !darwin
// +build !linux,!darwin

package socket

import (
	"io"
	"net"
	"os"
)

// SendFile falls back to io.Copy outside Linux, where there is no
// zero-copy sendfile(2) to reach for. FileBody calls this through the
// same CanUseSendFile/SendFileRange pair on every platform so the
// range-aware file streaming path never needs a build tag of its own.
func SendFile(conn net.Conn, file *os.File, offset int64, count int64) (written int64, err error) {
	return io.Copy(conn, io.NewSectionReader(file, offset, count))
}

// SendFileAll sends an entire file.
func SendFileAll(conn net.Conn, file *os.File) (written int64, err error) {
	stat, err := file.Stat()
	if err != nil {
		return 0, err
	}

	return SendFile(conn, file, 0, stat.Size())
}

// SendFileRange sends the inclusive byte range [start, end] of a file.
func SendFileRange(conn net.Conn, file *os.File, start, end int64) (written int64, err error) {
	if end < start {
		return 0, io.EOF
	}

	count := end - start + 1
	return SendFile(conn, file, start, count)
}

// CanUseSendFile always returns false here, steering FileBody toward
// its buffered io.Copy fallback instead of a sendfile syscall this
// platform doesn't have.
func CanUseSendFile(conn net.Conn) bool {
	return false
}
