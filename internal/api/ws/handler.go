package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"vetml/internal/api/envelope"
	"vetml/internal/metrics"
	"vetml/pkg/errors"
	"vetml/pkg/logger"
)

const (
	defaultReadLimit    = 1 << 20
	defaultWriteTimeout = 10 * time.Second
	closeGracePeriod    = time.Second
)

// Config controls per-connection limits
type Config struct {
	ReadLimit    int64
	MessageRate  float64 // messages per second, 0 disables limiting
	MessageBurst int
	PingInterval time.Duration // 0 disables keepalive
	WriteTimeout time.Duration
}

// Handler upgrades HTTP requests and serves prediction requests over the
// socket. Messages on one connection are handled in order, one at a time.
type Handler struct {
	dispatcher *envelope.Dispatcher
	cfg        Config
	upgrader   websocket.Upgrader
	log        *logger.Logger

	mu      sync.Mutex
	conns   map[*websocket.Conn]struct{}
	closing bool
	wg      sync.WaitGroup
}

// NewHandler creates a websocket handler
func NewHandler(dispatcher *envelope.Dispatcher, cfg Config, log *logger.Logger) *Handler {
	if cfg.ReadLimit <= 0 {
		cfg.ReadLimit = defaultReadLimit
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.MessageBurst <= 0 {
		cfg.MessageBurst = 1
	}

	return &Handler{
		dispatcher: dispatcher,
		cfg:        cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Clinic front-ends are served from other origins
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log:   log.Component("ws"),
		conns: make(map[*websocket.Conn]struct{}),
	}
}

// ServeHTTP upgrades the request and blocks until the connection closes
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an HTTP error
		h.log.Debugw("Upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	if !h.track(conn) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(closeGracePeriod))
		_ = conn.Close()
		return
	}
	defer h.untrack(conn)

	metrics.WebSocketConnections.Inc()
	defer metrics.WebSocketConnections.Dec()

	h.log.Infow("Client connected", "remote", r.RemoteAddr)
	h.serve(r.Context(), conn)
	h.log.Infow("Client disconnected", "remote", r.RemoteAddr)
}

func (h *Handler) serve(ctx context.Context, conn *websocket.Conn) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	conn.SetReadLimit(h.cfg.ReadLimit)

	if h.cfg.PingInterval > 0 {
		pongWait := 2 * h.cfg.PingInterval
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		go h.keepalive(ctx, conn)
	}

	var limiter *rate.Limiter
	if h.cfg.MessageRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(h.cfg.MessageRate), h.cfg.MessageBurst)
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				h.log.Warnw("Connection read failed", "error", err)
			}
			return
		}

		reqCtx := errors.WithRequestID(ctx, uuid.New().String())

		var reply envelope.Reply
		if limiter != nil && !limiter.Allow() {
			reply = envelope.Reply{
				Type: "unknown",
				Body: envelope.ErrorResponse{Error: "Rate limit exceeded"},
			}
			metrics.RecordWebSocketMessage(reply.Type, "rate_limited")
		} else {
			reply = h.dispatcher.Dispatch(reqCtx, raw)
			metrics.RecordWebSocketMessage(reply.Type, outcome(reply))
		}

		if err := h.write(conn, reply.Body); err != nil {
			h.log.WithContext(reqCtx).Warnw("Reply write failed", "type", reply.Type, "error", err)
			return
		}
	}
}

func (h *Handler) write(conn *websocket.Conn, body interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "encode reply")
	}
	if err := conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

// keepalive pings the client until the connection context ends.
// WriteControl is safe to call alongside the serve loop's writes.
func (h *Handler) keepalive(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.cfg.WriteTimeout)); err != nil {
				h.log.Debugw("Ping failed", "error", err)
				_ = conn.Close()
				return
			}
		}
	}
}

func (h *Handler) track(conn *websocket.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closing {
		return false
	}
	h.conns[conn] = struct{}{}
	h.wg.Add(1)
	return true
}

func (h *Handler) untrack(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
	_ = conn.Close()
	h.wg.Done()
}

// ActiveConnections reports the number of open connections
func (h *Handler) ActiveConnections() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Shutdown sends a close frame to every client and waits for their loops
// to exit. Hijacked connections are not covered by http.Server.Shutdown.
func (h *Handler) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closing = true
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	h.log.Infow("Closing websocket connections", "count", len(conns))
	for _, c := range conns {
		_ = c.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(closeGracePeriod))
		_ = c.Close()
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Wrap(errors.ErrTimeout, "websocket connections did not close")
	}
}

func outcome(r envelope.Reply) string {
	if r.Err == nil {
		return "ok"
	}
	var de *errors.DomainError
	if errors.As(r.Err, &de) {
		return de.Code
	}
	return "error"
}
