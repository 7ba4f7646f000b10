package kurosabi

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NewConnectionID generates a per-connection correlation ID so every
// log line emitted while routing one keep-alive connection can be
// joined back together, independent of which goroutine is handling it.
func NewConnectionID() string {
	return uuid.New().String()
}

// NewProductionLogger builds the default structured logger: JSON
// encoding, epoch timestamps, level enabled at Info and above. The
// routing loop never calls it itself: a RouterConfig whose Logger is nil
// routes without logging.
func NewProductionLogger() (*zap.Logger, error) {
	return zap.NewProduction()
}

// connLogger returns a child logger with the connection ID and remote
// address attached as structured fields, so every subsequent log call
// for this connection carries them without repeating the call site.
func connLogger(base *zap.Logger, connID, remoteAddr string) *zap.Logger {
	return base.With(
		zap.String("conn_id", connID),
		zap.String("remote_addr", remoteAddr),
	)
}
