package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/tbourn/go-codeshare-backend/internal/events"
	"github.com/tbourn/go-codeshare-backend/internal/http/middleware"
	"github.com/tbourn/go-codeshare-backend/internal/metrics"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

// Browsers cannot send Authorization on a WebSocket handshake, so the stream
// authenticates with ?token= and origin checks add nothing.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Events godoc
// @ID          eventStream
// @Summary     Event stream (WebSocket)
// @Description Upgrades to a WebSocket that pushes JSON events: code_list_changed, user_points_changed, session_changed, operation_succeeded, operation_failed. Pass ?token= to receive the caller's own events. The first frame is the current session state. A token-bound stream is closed after the user signs out or the session expires.
// @Tags        Events
// @Param       token  query  string  false  "Bearer token"
// @Success     101
// @Failure     503  {object}  handlers.ErrorResponse
// @Router      /events [get]
func (h *Handlers) Events(c *gin.Context) {
	if h.events == nil {
		fail(c, http.StatusServiceUnavailable, ErrCodeUnavailable, "event stream disabled")
		return
	}
	lg := middleware.LoggerFrom(c)
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		lg.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	uid := middleware.UserID(c)
	sub := h.events.Subscribe(uid, events.DefaultBuffer)
	metrics.StreamOpened()
	defer metrics.StreamClosed()

	b := binding{userID: uid}
	if sess := middleware.SessionFrom(c); sess != nil && !sess.ExpiresAt.IsZero() {
		t := time.NewTimer(sess.ExpiresAt.Sub(h.now()))
		defer t.Stop()
		b.expired = t.C
	}

	hello := events.SessionState(uid, uid != "", middleware.IsAdmin(c))
	go writePump(conn, sub, hello, b)
	readPump(conn)
	sub.Close()
}

// binding ties a stream to the session that opened it. The zero value is an
// anonymous stream that never ends on its own.
type binding struct {
	userID  string
	expired <-chan time.Time
}

// ends reports whether e signs the bound user out.
func (b binding) ends(e events.Event) bool {
	return b.userID != "" &&
		e.Type == events.SessionChanged &&
		e.UserID == b.userID &&
		e.Authenticated != nil && !*e.Authenticated
}

// readPump discards client frames and returns once the peer goes away.
func readPump(conn *websocket.Conn) {
	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}

// writePump forwards events and keeps the connection alive until the
// subscription closes, a write fails, or the bound session ends.
func writePump(conn *websocket.Conn, sub *events.Subscription, first events.Event, b binding) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := conn.WriteJSON(first); err != nil {
		return
	}
	for {
		select {
		case e, open := <-sub.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !open {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(e); err != nil {
				return
			}
			if b.ends(e) {
				closeSession(conn)
				return
			}
		case <-b.expired:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(events.SessionState(b.userID, false, false)); err != nil {
				return
			}
			closeSession(conn)
			return
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func closeSession(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "session ended")
	_ = conn.WriteMessage(websocket.CloseMessage, msg)
}
