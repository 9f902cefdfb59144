package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"web/arkmap/logger"
	"web/arkmap/mapview"
	"web/arkmap/metrics"
	"web/arkmap/runner"
	"web/arkmap/viewport"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	callTimeout    = 5 * time.Second

	// defaultViewCheckPeriod bounds how long a socket outlives its view.
	defaultViewCheckPeriod = 2 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// clientMessage is one frame from the browser. Type is "event",
// "command", "hover" or "snapshot".
type clientMessage struct {
	Type       string          `json:"type"`
	Event      *viewport.Event `json:"event,omitempty"`
	Command    string          `json:"command,omitempty"`
	LocationID string          `json:"locationId,omitempty"`
}

type serverMessage struct {
	Type     string            `json:"type"`
	Snapshot *mapview.Snapshot `json:"snapshot,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// wsClient relays frames between one WebSocket and one mounted view.
type wsClient struct {
	svc        runner.Service
	conn       *websocket.Conn
	viewID     string
	checkEvery time.Duration
	send       chan serverMessage
	done       chan struct{}
}

func (s *Server) serveWs(c *gin.Context) {
	viewID := c.Param("id")
	if _, err := s.svc.View(c.Request.Context(), viewID); err != nil {
		writeError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	client := &wsClient{
		svc:        s.svc,
		conn:       conn,
		viewID:     viewID,
		checkEvery: s.viewCheckPeriod,
		send:       make(chan serverMessage, 64),
		done:       make(chan struct{}),
	}
	metrics.ActiveWebSockets.Inc()
	logger.Log.WithField("view", viewID).Info("websocket connected")

	go client.writePump()
	go client.readPump()
}

func (c *wsClient) call(fn func(ctx context.Context) (mapview.Snapshot, error)) serverMessage {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	snap, err := fn(ctx)
	if err != nil {
		return serverMessage{Type: "error", Error: err.Error()}
	}
	return serverMessage{Type: "snapshot", Snapshot: &snap}
}

func (c *wsClient) handle(msg clientMessage) serverMessage {
	switch msg.Type {
	case "event":
		if msg.Event == nil {
			return serverMessage{Type: "error", Error: "event frame without event"}
		}
		return c.call(func(ctx context.Context) (mapview.Snapshot, error) {
			return c.svc.Dispatch(ctx, c.viewID, *msg.Event)
		})
	case "command":
		cmd, err := mapview.ParseCommand(msg.Command)
		if err != nil {
			return serverMessage{Type: "error", Error: err.Error()}
		}
		return c.call(func(ctx context.Context) (mapview.Snapshot, error) {
			return c.svc.Exec(ctx, c.viewID, cmd)
		})
	case "hover":
		return c.call(func(ctx context.Context) (mapview.Snapshot, error) {
			return c.svc.Hover(ctx, c.viewID, msg.LocationID)
		})
	case "snapshot":
		return c.call(func(ctx context.Context) (mapview.Snapshot, error) {
			return c.svc.Snapshot(ctx, c.viewID)
		})
	}
	return serverMessage{Type: "error", Error: "unknown frame type " + msg.Type}
}

func (c *wsClient) enqueue(msg serverMessage) bool {
	select {
	case c.send <- msg:
		return true
	case <-c.done:
		return false
	}
}

// readPump handles frames until the socket fails or the view is gone.
func (c *wsClient) readPump() {
	defer close(c.send)

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logger.Log.WithError(err).Warn("failed to set read deadline")
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	if !c.enqueue(c.handle(clientMessage{Type: "snapshot"})) {
		return
	}

	for {
		var msg clientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Log.WithError(err).WithField("view", c.viewID).Warn("websocket read failed")
			}
			return
		}

		reply := c.handle(msg)
		if !c.enqueue(reply) {
			return
		}
		if reply.Type == "error" && c.viewGone() {
			return
		}
	}
}

func (c *wsClient) viewGone() bool {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	_, err := c.svc.View(ctx, c.viewID)
	return errors.Is(err, runner.ErrViewNotFound)
}

// writePump writes replies and keeps the connection alive with pings. It
// also closes the socket once the view has been unmounted.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	check := time.NewTicker(c.checkEvery)
	defer func() {
		ticker.Stop()
		check.Stop()
		close(c.done)
		c.conn.Close()
		metrics.ActiveWebSockets.Dec()
		logger.Log.WithFields(logrus.Fields{"view": c.viewID}).Info("websocket disconnected")
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.writeClose()
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-check.C:
			if c.viewGone() {
				c.writeClose()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *wsClient) writeClose() {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "view closed"))
}
