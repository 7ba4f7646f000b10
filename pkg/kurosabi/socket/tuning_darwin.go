//go:build darwin
// +build darwin

package socket

import (
	"golang.org/x/sys/unix"
)

// TCP_FASTOPEN is not exposed as a named constant by golang.org/x/sys/unix
// on darwin; the raw option value (server-side enable) is used directly,
// matching the numeric constant the stdlib syscall package would otherwise
// require callers to hardcode themselves.
const tcpFastOpenDarwin = 0x105

// applyPlatformOptions applies Darwin-specific socket options.
// Called from Apply() in tuning.go.
func applyPlatformOptions(fd int, cfg *Config) {
	// SO_NOSIGPIPE - writing to a socket the peer already closed raises
	// SIGPIPE on Darwin instead of just returning EPIPE; Linux's
	// MSG_NOSIGNAL has no Darwin equivalent, so this is set per-socket
	// instead.
	_ = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_NOSIGPIPE, 1)

	if cfg.KeepAlive {
		// TCP_KEEPALIVE is Darwin's equivalent of Linux's TCP_KEEPIDLE:
		// seconds of idle time before the first keepalive probe.
		_ = unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_KEEPALIVE, 60)
	}
}

// applyListenerOptions applies Darwin-specific listener options.
// Called from ApplyListener() in tuning.go.
func applyListenerOptions(fd int, cfg *Config) error {
	if !cfg.FastOpen {
		return nil
	}
	// The option value is the maximum number of pending TFO connections,
	// not a boolean enable flag.
	return unix.SetsockoptInt(fd, unix.IPPROTO_TCP, tcpFastOpenDarwin, 256)
}

// SetQuickAck is a no-op on Darwin: there is no TCP_QUICKACK equivalent.
// It exists so callers that loop over connections after every read don't
// need a build-tagged call site of their own.
func SetQuickAck(fd int) error {
	return nil
}
