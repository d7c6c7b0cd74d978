package events

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const readLimit = 4096

// Server upgrades HTTP requests to event streams.
type Server struct {
	hub          *Hub
	logger       *zap.Logger
	pingInterval time.Duration
	writeTimeout time.Duration
	upgrader     websocket.Upgrader
}

// NewServer builds ws server.
func NewServer(hub *Hub, pingInterval, writeTimeout time.Duration, logger *zap.Logger) *Server {
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	return &Server{
		hub:          hub,
		logger:       logger,
		pingInterval: pingInterval,
		writeTimeout: writeTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Serve streams tenantID events over the upgraded connection until either side closes.
func (s *Server) Serve(w http.ResponseWriter, r *http.Request, tenantID int64) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	conn := &connection{
		ws:           ws,
		sub:          s.hub.Subscribe(tenantID),
		hub:          s.hub,
		logger:       s.logger,
		pingInterval: s.pingInterval,
		writeTimeout: s.writeTimeout,
		done:         make(chan struct{}),
	}
	s.logger.Info("event subscriber connected", zap.Int64("tenant_id", tenantID))
	go conn.writePump()
	go conn.readPump()
}

type connection struct {
	ws           *websocket.Conn
	sub          *Subscriber
	hub          *Hub
	logger       *zap.Logger
	pingInterval time.Duration
	writeTimeout time.Duration
	done         chan struct{}
}

// readPump only services control frames; client payloads are ignored.
func (c *connection) readPump() {
	defer func() {
		close(c.done)
		c.hub.Unsubscribe(c.sub)
	}()
	wait := 2 * c.pingInterval
	c.ws.SetReadLimit(readLimit)
	_ = c.ws.SetReadDeadline(time.Now().Add(wait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(wait))
	})
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			c.logger.Info("event subscriber disconnected", zap.Int64("tenant_id", c.sub.TenantID()), zap.Error(err))
			return
		}
	}
}

func (c *connection) writePump() {
	ticker := time.NewTicker(c.pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case msg, ok := <-c.sub.Messages():
			if !ok {
				_ = c.write(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.write(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *connection) write(messageType int, data []byte) error {
	_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.ws.WriteMessage(messageType, data)
}
