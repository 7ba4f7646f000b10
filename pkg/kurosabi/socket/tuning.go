// Package socket tunes the raw TCP socket underneath a kurosabi
// Connection: Nagle/buffer/keepalive options applied once at accept
// time, plus the sendfile fast path FileBody reaches for when the
// connection is a *net.TCPConn. Platform-specific option sets are in
// tuning_linux.go, tuning_darwin.go, and tuning_other.go.
package socket

import (
	"net"
	"syscall"
	"time"
)

// Config is a socket tuning profile. Zero values mean "use system
// defaults" — the zero Config is valid, just inert.
type Config struct {
	// NoDelay sets TCP_NODELAY, disabling Nagle's algorithm. The
	// routing loop writes a full response in one or two syscalls
	// already, so batching small writes buys nothing and only adds
	// latency to the first byte of every response.
	NoDelay bool

	// RecvBuffer sets SO_RCVBUF in bytes. 0 leaves the system default.
	RecvBuffer int

	// SendBuffer sets SO_SNDBUF in bytes. 0 leaves the system default.
	SendBuffer int

	// QuickAck sets TCP_QUICKACK where supported (Linux only; see
	// SetQuickAck for the per-read variant, since the kernel clears
	// this flag after the next ACK).
	QuickAck bool

	// DeferAccept sets TCP_DEFER_ACCEPT (Linux) so the accept loop
	// isn't woken until the peer has actually sent request bytes.
	// Only worth enabling when a follow-up request is likely to
	// arrive promptly — see ConfigForConnection.
	DeferAccept bool

	// FastOpen enables TCP Fast Open where supported, shaving one RTT
	// off connection establishment for repeat clients.
	FastOpen bool

	// KeepAlive sets SO_KEEPALIVE. This is independent of and
	// complementary to the routing loop's own KeepAliveTimeout: SO_KEEPALIVE
	// detects a peer that vanished without closing the TCP connection
	// at all (a dead link, a crashed client); KeepAliveTimeout bounds
	// how long an otherwise-healthy idle connection is held open.
	KeepAlive bool
}

// DefaultConfig is the baseline profile applied to every accepted
// connection unless the caller overrides it.
func DefaultConfig() *Config {
	return &Config{
		NoDelay:     true,
		RecvBuffer:  256 * 1024,
		SendBuffer:  256 * 1024,
		QuickAck:    true,
		DeferAccept: true,
		FastOpen:    true,
		KeepAlive:   true,
	}
}

// HighThroughputConfig favors larger buffers and delayed ACKs over
// minimal per-request latency. Suited to bulk file transfer via
// FileBody's sendfile path, where round-trip latency per byte matters
// less than sustained throughput.
func HighThroughputConfig() *Config {
	return &Config{
		NoDelay:     true,
		RecvBuffer:  1024 * 1024,
		SendBuffer:  1024 * 1024,
		QuickAck:    false,
		DeferAccept: true,
		FastOpen:    true,
		KeepAlive:   true,
	}
}

// LowLatencyConfig favors small buffers and immediate ACKs over
// throughput. Suited to short JSON/text responses where time to first
// byte dominates.
func LowLatencyConfig() *Config {
	return &Config{
		NoDelay:     true,
		RecvBuffer:  128 * 1024,
		SendBuffer:  128 * 1024,
		QuickAck:    true,
		DeferAccept: false,
		FastOpen:    true,
		KeepAlive:   true,
	}
}

// ConfigForConnection derives a tuning profile from the routing loop's
// keep-alive timeout. DeferAccept only pays off when a follow-up
// request is likely to land quickly after accept; once the keep-alive
// window is wide enough that connections are expected to sit open
// waiting rather than pipelining immediately, deferring the accept
// wakeup just adds latency to the first request for no benefit.
func ConfigForConnection(keepAliveTimeout time.Duration) *Config {
	cfg := DefaultConfig()
	cfg.DeferAccept = keepAliveTimeout > 0 && keepAliveTimeout <= 5*time.Second
	return cfg
}

// Apply applies socket tuning options to a connection.
// Returns error if any critical option fails (TCP_NODELAY).
// Failures of non-critical options (platform-specific) are ignored.
//
// This should be called immediately after accepting a connection.
func Apply(conn net.Conn, cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		// Not a TCP connection, can't tune
		return nil
	}

	rawConn, err := tcpConn.SyscallConn()
	if err != nil {
		return err
	}

	var lastErr error

	// Apply cross-platform options first
	err = rawConn.Control(func(fd uintptr) {
		// TCP_NODELAY - Critical for HTTP performance
		if cfg.NoDelay {
			if err := syscall.SetsockoptInt(int(fd), syscall.IPPROTO_TCP, syscall.TCP_NODELAY, 1); err != nil {
				lastErr = err
				return
			}
		}

		// SO_RCVBUF - Receive buffer size
		if cfg.RecvBuffer > 0 {
			if err := syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_RCVBUF, cfg.RecvBuffer); err != nil {
				// Non-critical, continue
				_ = err
			}
		}

		// SO_SNDBUF - Send buffer size
		if cfg.SendBuffer > 0 {
			if err := syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_SNDBUF, cfg.SendBuffer); err != nil {
				// Non-critical, continue
				_ = err
			}
		}

		// SO_KEEPALIVE
		if cfg.KeepAlive {
			if err := syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_KEEPALIVE, 1); err != nil {
				// Non-critical, continue
				_ = err
			}
		}

		// Apply platform-specific options
		applyPlatformOptions(int(fd), cfg)
	})

	if err != nil {
		return err
	}

	return lastErr
}

// ApplyListener applies socket tuning options to a listening socket.
// This sets options like TCP_DEFER_ACCEPT and TCP_FASTOPEN that must be
// set on the listener before accepting connections.
func ApplyListener(listener net.Listener, cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	tcpListener, ok := listener.(*net.TCPListener)
	if !ok {
		return nil
	}

	// Get raw file descriptor
	file, err := tcpListener.File()
	if err != nil {
		return err
	}
	defer file.Close()

	fd := int(file.Fd())

	// Apply platform-specific listener options
	return applyListenerOptions(fd, cfg)
}
