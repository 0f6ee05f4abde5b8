package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"mobiremote/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
	maxMsgSize       = 1 << 12
	defaultInterval  = 1 * time.Second
	maxInterval      = 10 * time.Second
	maxIntervalMilli = 10_000
)

// wsEnvelope is every frame sent on /ws.
type wsEnvelope struct {
	Type  string      `json:"type"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

// LAN-facing controller; any origin may subscribe.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsStream pushes snapshots on a ticker. With changesOnly set a tick whose
// snapshot equals the previous one is skipped.
type wsStream struct {
	h           *Handler
	conn        *websocket.Conn
	changesOnly bool
	last        *models.Snapshot
}

// @Summary      Snapshot stream
// @Description  WebSocket. Query: interval (Go duration, max 10s) or interval_ms; changes=1 to send only when the snapshot changes.
// @Tags         appliance
// @Router       /ws [get]
func (h *Handler) wsConnect(c *gin.Context) {
	interval := h.parseInterval(c)
	changesOnly := c.Query("changes") == "1"

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_upgrade_failed", "err", err)
		}
		return
	}
	defer func() { _ = conn.Close() }()

	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	go h.startReader(conn, done)

	s := &wsStream{h: h, conn: conn, changesOnly: changesOnly}
	s.run(c.Request.Context(), interval, done)
}

func (s *wsStream) run(ctx context.Context, interval time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(interval)
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ping.Stop()
	}()

	if err := s.send(ctx); err != nil {
		s.h.logInfo("ws_write_failed_initial", err)
		return
	}

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ping.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.h.logInfo("ws_ping_failed", err)
				return
			}
		case <-ticker.C:
			if err := s.send(ctx); err != nil {
				s.h.logInfo("ws_write_failed", err)
				return
			}
		}
	}
}

func (s *wsStream) send(ctx context.Context) error {
	snap, err := s.h.services.Monitoring.GetStatus(ctx)
	if err != nil {
		if s.h.log != nil {
			s.h.log.Errorw("ws_get_status_failed", "err", err)
		}
		return err
	}
	if s.changesOnly && s.last != nil && *s.last == snap {
		return nil
	}
	s.last = &snap

	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(wsEnvelope{Type: "snapshot", Data: snap})
}

func (h *Handler) logInfo(event string, err error) {
	if h.log != nil {
		h.log.Infow(event, "err", err)
	}
}

// parseInterval reads ?interval=2s or ?interval_ms=2000, bounded to 10s.
func (h *Handler) parseInterval(c *gin.Context) time.Duration {
	if s := c.Query("interval"); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 && d <= maxInterval {
			return d
		}
	}
	if ms := c.Query("interval_ms"); ms != "" {
		if v, err := strconv.Atoi(ms); err == nil && v > 0 && v <= maxIntervalMilli {
			return time.Duration(v) * time.Millisecond
		}
	}
	return defaultInterval
}

// startReader drains control frames and closes done on disconnect.
func (h *Handler) startReader(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.logInfo("ws_read_closed", err)
			return
		}
	}
}
