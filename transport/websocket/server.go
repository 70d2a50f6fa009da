package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rocketscienceinc/morpion-backend/internal/apperror"
	"github.com/rocketscienceinc/morpion-backend/internal/usecase"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 4096

	// DisconnectReason is reported for connections that went away.
	DisconnectReason = "connection closed"

	shutdownTimeout = 5 * time.Second
)

type dispatcher interface {
	Dispatch(ctx context.Context, connID string, command usecase.Command) error
	Reject(connID string, err error)
	Disconnect(ctx context.Context, connID, reason string)
}

type Server struct {
	logger     *slog.Logger
	hub        *Hub
	dispatcher dispatcher
	upgrader   websocket.Upgrader

	ratePerSecond rate.Limit
	burst         int
}

func New(logger *slog.Logger, hub *Hub, dispatcher dispatcher, ratePerSecond float64, burst int) *Server {
	if burst <= 0 {
		burst = 1
	}

	return &Server{
		logger:     logger.With("component", "websocket"),
		hub:        hub,
		dispatcher: dispatcher,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(*http.Request) bool {
				return true
			},
		},

		ratePerSecond: rate.Limit(ratePerSecond),
		burst:         burst,
	}
}

// Start - starts WebSocket server and stops it when ctx is done.
func (that *Server) Start(ctx context.Context, port string) error {
	mux := http.NewServeMux()
	mux.Handle("/ws", that.Handler(ctx))

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		that.hub.Close()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shutdown server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Handler upgrades requests to websocket connections. Commands run with ctx.
func (that *Server) Handler(ctx context.Context) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, req *http.Request) {
		that.upgradeToWebSocket(ctx, writer, req)
	})
}

// upgradeToWebSocket - upgrades the connection and serves it until it closes.
func (that *Server) upgradeToWebSocket(ctx context.Context, writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "upgradeToWebSocket")

	conn, err := that.upgrader.Upgrade(writer, req, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	c := &client{
		id:      uuid.NewString(),
		conn:    conn,
		send:    make(chan []byte, sendBufferSize),
		limiter: rate.NewLimiter(that.ratePerSecond, that.burst),
	}

	that.hub.register(c)
	log.Info("WebSocket connection established", "playerID", c.id)

	go that.writePump(c)
	that.readPump(ctx, c)
}

// readPump - reads commands until the connection fails, then reports the disconnect.
func (that *Server) readPump(ctx context.Context, c *client) {
	log := that.logger.With("method", "readPump", "playerID", c.id)

	defer func() {
		that.hub.unregister(c)
		_ = c.conn.Close()
		// the cleanup must still reach storage while the server shuts down
		that.dispatcher.Disconnect(context.WithoutCancel(ctx), c.id, DisconnectReason)
		log.Info("WebSocket connection closed")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.Error("failed to set read deadline", "error", err)
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error("error reading message", "error", err)
			}
			return
		}

		if messageType != websocket.TextMessage {
			continue
		}

		if !c.limiter.Allow() {
			that.dispatcher.Reject(c.id, apperror.ErrTooManyRequests)
			continue
		}

		var command usecase.Command
		if err = json.Unmarshal(data, &command); err != nil {
			log.Debug("failed to unmarshal message", "error", err)
			that.dispatcher.Reject(c.id, apperror.ErrInvalidInput)
			continue
		}

		// rejections are already reported to the client by the dispatcher
		_ = that.dispatcher.Dispatch(ctx, c.id, command)
	}
}

// writePump - drains the send buffer and keeps the connection alive with pings.
func (that *Server) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				that.logger.Debug("failed to write message", "playerID", c.id, "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
