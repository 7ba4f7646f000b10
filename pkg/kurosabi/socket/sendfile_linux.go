//go:build linux
// +build linux

package socket

import (
	"io"
	"net"
	"os"
	"syscall"
)

// SendFile transmits [offset, offset+count) of file to conn using the
// sendfile(2) syscall, bypassing a userspace copy of the file's bytes
// entirely. This is the fast path FileBody reaches for when serving a
// whole or partial file over a *net.TCPConn; it falls back to io.Copy
// whenever sendfile isn't available or fails outright, so callers never
// need their own fallback.
func SendFile(conn net.Conn, file *os.File, offset int64, count int64) (written int64, err error) {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return io.Copy(conn, io.NewSectionReader(file, offset, count))
	}

	rawConn, err := tcpConn.SyscallConn()
	if err != nil {
		return io.Copy(conn, io.NewSectionReader(file, offset, count))
	}

	srcFd := int(file.Fd())

	var totalWritten int64
	var sendfileErr error

	ctrlErr := rawConn.Write(func(dstFd uintptr) bool {
		currentOffset := offset
		remaining := count

		for remaining > 0 {
			// sendfile(2) caps a single call's transfer size; chunk
			// large transfers rather than relying on the kernel to do
			// it for us.
			chunkSize := remaining
			if chunkSize > 1<<30 {
				chunkSize = 1 << 30
			}

			n, err := syscall.Sendfile(int(dstFd), srcFd, &currentOffset, int(chunkSize))
			if err != nil {
				if err == syscall.EAGAIN || err == syscall.EINTR {
					continue
				}
				sendfileErr = err
				return false
			}
			if n == 0 {
				break
			}

			totalWritten += int64(n)
			remaining -= int64(n)
		}

		return true
	})

	if ctrlErr != nil {
		return io.Copy(conn, io.NewSectionReader(file, offset, count))
	}

	if sendfileErr != nil {
		if totalWritten > 0 {
			remaining := count - totalWritten
			if remaining > 0 {
				n, err := io.Copy(conn, io.NewSectionReader(file, offset+totalWritten, remaining))
				totalWritten += n
				if err != nil {
					return totalWritten, err
				}
			}
			return totalWritten, nil
		}
		return io.Copy(conn, io.NewSectionReader(file, offset, count))
	}

	return totalWritten, nil
}

// SendFileAll sends an entire file using sendfile.
func SendFileAll(conn net.Conn, file *os.File) (written int64, err error) {
	stat, err := file.Stat()
	if err != nil {
		return 0, err
	}

	return SendFile(conn, file, 0, stat.Size())
}

// SendFileRange sends the inclusive byte range [start, end] of a file
// using sendfile — the primitive FileBody's partial-content (206)
// responses are built on.
func SendFileRange(conn net.Conn, file *os.File, start, end int64) (written int64, err error) {
	if end < start {
		return 0, io.EOF
	}

	count := end - start + 1
	return SendFile(conn, file, start, count)
}

// CanUseSendFile reports whether conn is a TCP connection sendfile can
// target. FileBody checks this before attempting the zero-copy path.
func CanUseSendFile(conn net.Conn) bool {
	_, ok := conn.(*net.TCPConn)
	return ok
}
