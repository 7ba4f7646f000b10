package kurosabi

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/watt-toolkit/kurosabi/pkg/kurosabi/socket"
)

// DefaultKeepAliveTimeout bounds how long a connection may sit idle
// waiting for the next request line before it is closed.
const DefaultKeepAliveTimeout = 10 * time.Second

// DefaultHeaderReadTimeout bounds how long headers may take to arrive
// once a request line has been read.
const DefaultHeaderReadTimeout = 5 * time.Second

// Router dispatches a parsed request to application code and returns
// the response it produced. Implementations normally switch on
// conn.Request().Method() and conn.PathSegments().
type Router[C any] interface {
	Route(conn NoneBodyConn[C]) ResponseReadyConn[C]
}

// InvalidHTTPRouter is an optional extension a Router may implement to
// customize the response sent for a request that failed to parse. If a
// Router does not implement it, defaultInvalidHTTP is used.
type InvalidHTTPRouter[C any] interface {
	InvalidHTTP(conn NoneBodyConn[C]) ResponseReadyConn[C]
}

func defaultInvalidHTTP[C any](conn NoneBodyConn[C]) ResponseReadyConn[C] {
	return conn.SetStatusCode(StatusBadRequest).TextBody("Invalid HTTP request")
}

func invalidHTTP[C any](router Router[C], conn NoneBodyConn[C]) ResponseReadyConn[C] {
	if ir, ok := router.(InvalidHTTPRouter[C]); ok {
		return ir.InvalidHTTP(conn)
	}
	return defaultInvalidHTTP(conn)
}

// ConnectionConfig holds the two independent timeouts that bound one
// keep-alive connection's idle and in-flight-request windows.
type ConnectionConfig struct {
	// KeepAliveTimeout bounds waiting for the next request line on an
	// otherwise idle connection.
	KeepAliveTimeout time.Duration
	// HeaderReadTimeout bounds completing the header block once a
	// request line has arrived.
	HeaderReadTimeout time.Duration
}

// DefaultConnectionConfig returns the spec defaults: 10s keep-alive,
// 5s header read.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		KeepAliveTimeout:  DefaultKeepAliveTimeout,
		HeaderReadTimeout: DefaultHeaderReadTimeout,
	}
}

// RouterConfig bundles everything ServeConnection and Serve need: the
// per-connection user context factory, the Router, the two timeouts,
// and an optional logger.
type RouterConfig[C any] struct {
	Router     Router[C]
	Connection ConnectionConfig
	Logger     *zap.Logger
	// NewContext builds the per-connection user context value. If nil,
	// the zero value of C is used for every connection.
	NewContext func() C
}

// DefaultRouterConfig returns a RouterConfig with default timeouts, no
// logger, and a NewContext that always returns the zero value of C.
func DefaultRouterConfig[C any](router Router[C]) RouterConfig[C] {
	return RouterConfig[C]{
		Router:     router,
		Connection: DefaultConnectionConfig(),
	}
}

func (cfg RouterConfig[C]) newContext() C {
	if cfg.NewContext != nil {
		return cfg.NewContext()
	}
	var zero C
	return zero
}

// routeOnce drives exactly one request/response cycle on an existing
// NoneBodyConn: parse the request line under KeepAliveTimeout, parse
// headers under HeaderReadTimeout, dispatch to cfg.Router (or its
// InvalidHTTP fallback on a parse failure), and flush the response. It
// returns the NoneBodyConn ready for the next request, or a non-nil
// *ErrorPair wrapping whatever Connection state existed at the point of
// failure if the connection should be closed — so the caller can still
// log that state before dropping it.
func routeOnce[C any](nc net.Conn, req *Request, bw *bufio.Writer, ctx C, cfg RouterConfig[C]) (NoneBodyConn[C], *ErrorPair[core[C]]) {
	if err := nc.SetReadDeadline(time.Now().Add(cfg.Connection.KeepAliveTimeout)); err != nil {
		return NoneBodyConn[C]{}, &ErrorPair[core[C]]{Err: err, Connection: core[C]{ctx: ctx, req: req}}
	}
	lineErr := req.ParseRequestLine()
	if lineErr != nil {
		if isTimeout(lineErr) {
			return NoneBodyConn[C]{}, &ErrorPair[core[C]]{Err: ErrKeepAliveTimeout, Connection: core[C]{ctx: ctx, req: req}}
		}
		if errors.Is(lineErr, io.EOF) {
			// No bytes arrived before the peer closed an otherwise idle
			// connection — an ordinary disconnect, not a malformed
			// request, so there is nothing to send a 400 for.
			return NoneBodyConn[C]{}, &ErrorPair[core[C]]{Err: ErrConnectionClosed, Connection: core[C]{ctx: ctx, req: req}}
		}
		// Consume the malformed request's header block so the next
		// keep-alive iteration starts at the following request instead of
		// re-reading these lines as request lines.
		if err := nc.SetReadDeadline(time.Now().Add(cfg.Connection.HeaderReadTimeout)); err == nil {
			_ = req.ParseHeaders()
		}
		return respondInvalid(nc, req, bw, ctx, cfg)
	}

	if err := nc.SetReadDeadline(time.Now().Add(cfg.Connection.HeaderReadTimeout)); err != nil {
		return NoneBodyConn[C]{}, &ErrorPair[core[C]]{Err: err, Connection: core[C]{ctx: ctx, req: req}}
	}
	if err := req.ParseHeaders(); err != nil {
		if isTimeout(err) {
			return NoneBodyConn[C]{}, &ErrorPair[core[C]]{Err: ErrHeaderReadTimeout, Connection: core[C]{ctx: ctx, req: req}}
		}
		return respondInvalid(nc, req, bw, ctx, cfg)
	}

	conn := NewConnection(ctx, req, bw)
	conn.c.res.rawConn = nc
	ready := cfg.Router.Route(conn)
	return ready.Flush()
}

func respondInvalid[C any](nc net.Conn, req *Request, bw *bufio.Writer, ctx C, cfg RouterConfig[C]) (NoneBodyConn[C], *ErrorPair[core[C]]) {
	conn := NewConnection(ctx, req, bw)
	ready := invalidHTTP(cfg.Router, conn)
	return ready.Flush()
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// ServeConnection drives the keep-alive routing loop for one accepted
// net.Conn until a timeout, I/O error, or peer close ends it, then
// closes nc. It is normally called in its own goroutine by Serve, but
// a caller with its own accept loop may call it directly.
func ServeConnection[C any](nc net.Conn, cfg RouterConfig[C]) {
	defer nc.Close()
	defer func() {
		if r := recover(); r != nil && cfg.Logger != nil {
			cfg.Logger.Error("handler panic recovered", zap.Any("panic", r))
		}
	}()

	if err := socket.Apply(nc, socket.ConfigForConnection(cfg.Connection.KeepAliveTimeout)); err != nil && cfg.Logger != nil {
		cfg.Logger.Debug("socket tuning failed", zap.Error(err))
	}

	br := acquireBufioReader(nc)
	bw := acquireBufioWriter(nc)
	req := acquireRequest(br)
	defer func() {
		releaseRequest(req)
		releaseBufioReader(br)
		releaseBufioWriter(bw)
	}()

	ctx := cfg.newContext()
	connID := NewConnectionID()
	var logger *zap.Logger
	if cfg.Logger != nil {
		logger = connLogger(cfg.Logger, connID, nc.RemoteAddr().String())
	}

	for {
		_, pair := routeOnce(nc, req, bw, ctx, cfg)
		if pair != nil {
			if logger != nil && !errors.Is(pair, ErrConnectionClosed) {
				logger.Debug("connection closed",
					zap.Error(pair.Err),
					zap.String("path", pair.Connection.req.PathString()),
				)
			}
			return
		}
		req.resetForReuse(br)
	}
}

// Serve accepts connections from ln until ctx is canceled or Accept
// returns an error, dispatching each to ServeConnection in
// its own goroutine via an errgroup so a panic or fatal accept error
// from one connection does not take down the others.
func Serve[C any](ctx context.Context, ln Listener, cfg RouterConfig[C]) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-ctx.Done()
		return ln.Close()
	})

	for {
		nc, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return g.Wait()
			default:
				return err
			}
		}
		g.Go(func() error {
			ServeConnection(nc, cfg)
			return nil
		})
	}
}
