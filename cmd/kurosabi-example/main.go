// Command kurosabi-example is a small demonstration server exercising
// every piece of the kurosabi connection lifecycle engine: static file
// serving with range support, a chunked streaming endpoint, and a
// WebSocket upgrade demo.
package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/watt-toolkit/kurosabi/pkg/kurosabi"
	"github.com/watt-toolkit/kurosabi/pkg/kurosabi/socket"
)

// appContext is the per-connection user context threaded through every
// Connection in this demo; a real application would carry request-scoped
// dependencies (DB handles, auth info) here.
type appContext struct {
	startedAt time.Time
}

type demoRouter struct{}

func (demoRouter) Route(conn kurosabi.NoneBodyConn[appContext]) kurosabi.ResponseReadyConn[appContext] {
	req := conn.Request()
	segs := conn.PathSegments()

	switch {
	case req.Method() == kurosabi.MethodGET && len(segs) == 1 && string(segs[0]) == "healthz":
		return conn.TextBody("ok")

	case req.Method() == kurosabi.MethodGET && len(segs) == 1 && string(segs[0]) == "time":
		body := conn.Context().startedAt.UTC().Format(time.RFC3339)
		return conn.AddHeader("X-Uptime-Since", body).TextBody(body)

	case req.Method() == kurosabi.MethodGET && len(segs) == 2 && string(segs[0]) == "static":
		fc, err := kurosabi.NewFileContentBuilder("static/" + string(segs[1])).Build()
		if err != nil {
			return conn.SetStatusCode(kurosabi.StatusNotFound).NoBody()
		}
		ready, err := conn.FileBody(fc)
		if err != nil {
			return conn.SetStatusCode(kurosabi.StatusInternalServerError).NoBody()
		}
		return ready

	case req.Method() == kurosabi.MethodGET && len(segs) == 1 && string(segs[0]) == "stream":
		return streamCountdown(conn)

	default:
		return conn.SetStatusCode(kurosabi.StatusNotFound).TextBody("not found")
	}
}

// streamCountdown demonstrates the chunked response path: ten chunks,
// one per second, each announcing a decreasing counter.
func streamCountdown(conn kurosabi.NoneBodyConn[appContext]) kurosabi.ResponseReadyConn[appContext] {
	cc, err := conn.AddHeader("Content-Type", "text/plain; charset=utf-8").ReadyChunked()
	if err != nil {
		return conn.SetStatusCode(kurosabi.StatusInternalServerError).NoBody()
	}
	for i := 10; i > 0; i-- {
		chunk := []byte(itoa(i) + "\n")
		cc, err = cc.SendChunk(chunk)
		if err != nil {
			break
		}
		time.Sleep(time.Second)
	}
	cc, _ = cc.SendLastChunk()
	return cc.CloseChunked()
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// upgrader handles the /ws WebSocket demo endpoint. This runs outside
// the kurosabi typestate routing loop: an Upgrade is fundamentally a
// protocol switch, not an HTTP response, so it is served from a plain
// net/http handler on a second listener rather than threaded through
// Connection's typestate graph.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func wsEcho(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	for {
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if err := conn.WriteMessage(mt, msg); err != nil {
			return
		}
	}
}

func main() {
	logger, err := kurosabi.NewProductionLogger()
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer logger.Sync()

	connCfg := kurosabi.DefaultConnectionConfig()

	ln, err := net.Listen("tcp", ":8080")
	if err != nil {
		logger.Fatal("listen", zap.Error(err))
	}
	if err := socket.ApplyListener(ln, socket.ConfigForConnection(connCfg.KeepAliveTimeout)); err != nil {
		logger.Warn("socket tuning failed", zap.Error(err))
	}

	cfg := kurosabi.RouterConfig[appContext]{
		Router:     demoRouter{},
		Connection: connCfg,
		Logger:     logger,
		NewContext: func() appContext { return appContext{startedAt: time.Now()} },
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/ws", wsEcho)
		wsSrv := &http.Server{Addr: ":8081", Handler: mux}
		go func() {
			<-ctx.Done()
			wsSrv.Close()
		}()
		if err := wsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("ws server", zap.Error(err))
		}
	}()

	logger.Info("serving", zap.String("http_addr", ln.Addr().String()), zap.String("ws_addr", ":8081"))
	if err := kurosabi.Serve(ctx, ln, cfg); err != nil {
		logger.Error("serve", zap.Error(err))
	}
}
