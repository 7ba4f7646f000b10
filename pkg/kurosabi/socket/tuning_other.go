//go:build !linux && !darwin
// +build !linux,!darwin

package socket

// applyPlatformOptions is a no-op outside Linux and Darwin: neither
// TCP_QUICKACK nor TCP_DEFER_ACCEPT nor a TCP_FASTOPEN option value have
// a portable equivalent worth guessing at here.
func applyPlatformOptions(fd int, cfg *Config) {}

// applyListenerOptions is a no-op outside Linux and Darwin.
func applyListenerOptions(fd int, cfg *Config) error { return nil }

// SetQuickAck is a no-op on platforms without TCP_QUICKACK.
func SetQuickAck(fd int) error { return nil }
