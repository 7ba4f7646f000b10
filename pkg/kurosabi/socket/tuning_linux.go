//go:build linux
// +build linux

package socket

import (
	"golang.org/x/sys/unix"
)

// applyPlatformOptions applies Linux-specific socket options.
// Called from Apply() in tuning.go.
func applyPlatformOptions(fd int, cfg *Config) {
	// TCP_QUICKACK is not persistent; the kernel clears it after the next
	// ACK. Setting it once here is a best-effort optimization for the
	// first few round trips of a keep-alive connection.
	if cfg.QuickAck {
		_ = unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_QUICKACK, 1)
	}

	// Detect dead peers faster than the kernel default so a connection
	// stuck mid keep_alive_timeout wait gets reclaimed promptly.
	_ = unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_USER_TIMEOUT, 10000)

	if cfg.KeepAlive {
		_ = unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_KEEPIDLE, 60)
		_ = unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_KEEPINTVL, 10)
		_ = unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_KEEPCNT, 3)
	}
}

// applyListenerOptions applies Linux-specific listener options.
// Called from ApplyListener() in tuning.go.
func applyListenerOptions(fd int, cfg *Config) error {
	var lastErr error

	// TCP_DEFER_ACCEPT: don't wake the accept loop until the peer has
	// actually sent bytes. Pairs well with READ_LINE being the first
	// thing the routing loop does after accept.
	if cfg.DeferAccept {
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_DEFER_ACCEPT, 5); err != nil {
			lastErr = err
		}
	}

	if cfg.FastOpen {
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_FASTOPEN, 256); err != nil {
			lastErr = err
		}
	}

	return lastErr
}

// SetQuickAck sets TCP_QUICKACK on a file descriptor. Callers that want
// persistent QuickACK behavior must call this again after each read,
// since the kernel clears the flag once an ACK is sent.
func SetQuickAck(fd int) error {
	return unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_QUICKACK, 1)
}
