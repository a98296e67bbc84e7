package agent

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// EventBridge is the websocket endpoint the exam page connects to. Inbound
// frames are BrowserEvents handed to the guard rails; outbound frames are
// Commands. One page connection at a time; a new connection replaces the
// old one.
type EventBridge struct {
	upgrader websocket.Upgrader
	log      zerolog.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	handler func(ctx context.Context, ev BrowserEvent)
}

func NewEventBridge(log zerolog.Logger) *EventBridge {
	return &EventBridge{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The bridge listens on loopback only; the exam page is the
			// sole expected origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: log.With().Str("component", "event_bridge").Logger(),
	}
}

// OnEvent registers the browser-event handler. Must be set before serving.
func (b *EventBridge) OnEvent(handler func(ctx context.Context, ev BrowserEvent)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handler = handler
}

// Send delivers a command to the connected page.
func (b *EventBridge) Send(cmd Command) error {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	if conn == nil {
		return errors.New("no page connected")
	}
	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return conn.WriteJSON(cmd)
}

// ServeHTTP upgrades the connection and pumps events until the page
// disconnects.
func (b *EventBridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.log.Error().Err(err).Msg("Websocket upgrade failed")
		return
	}

	b.mu.Lock()
	if b.conn != nil {
		b.conn.Close()
	}
	b.conn = conn
	handler := b.handler
	b.mu.Unlock()

	b.log.Info().Str("remote", conn.RemoteAddr().String()).Msg("Exam page connected")

	defer func() {
		b.mu.Lock()
		if b.conn == conn {
			b.conn = nil
		}
		b.mu.Unlock()
		conn.Close()
	}()

	for {
		conn.SetReadDeadline(time.Now().Add(5 * time.Minute))
		var ev BrowserEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				b.log.Warn().Err(err).Msg("Websocket read error")
			}
			return
		}
		if handler != nil {
			handler(r.Context(), ev)
		}
	}
}
