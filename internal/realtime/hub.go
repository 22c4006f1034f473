package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"fundbridge/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browsing and donating are open to everyone; so is watching progress.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// event is the envelope pushed to every connected viewer. Clients filter by
// payload campaign id themselves; the hub does no per-campaign routing.
type event struct {
	Type    string                `json:"type"`
	Payload domain.CampaignUpdate `json:"payload"`
}

type session struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub keeps an explicit registry of connected viewer sessions and relays
// every campaign update to all of them. There is no replay: a session that
// connects after an event was published fetches current totals through the
// ordinary read path instead.
type Hub struct {
	register   chan *session
	unregister chan *session
	broadcast  chan []byte
	sessions   map[*session]struct{}
	// done is closed when Run exits so session goroutines stop sending into
	// a registry nobody drains anymore.
	done chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		register:   make(chan *session),
		unregister: make(chan *session),
		broadcast:  make(chan []byte, 64),
		sessions:   make(map[*session]struct{}),
		done:       make(chan struct{}),
	}
}

// Run owns the session registry; it is the only goroutine that touches it.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for s := range h.sessions {
				close(s.send)
				delete(h.sessions, s)
			}
			close(h.done)
			return
		case s := <-h.register:
			h.sessions[s] = struct{}{}
		case s := <-h.unregister:
			if _, ok := h.sessions[s]; ok {
				delete(h.sessions, s)
				close(s.send)
			}
		case msg := <-h.broadcast:
			for s := range h.sessions {
				select {
				case s.send <- msg:
				default:
					// Slow consumer: drop it rather than stall the fan-out.
					delete(h.sessions, s)
					close(s.send)
				}
			}
		}
	}
}

// BroadcastCampaignUpdate pushes one campaign_update event to every
// connected session.
func (h *Hub) BroadcastCampaignUpdate(update domain.CampaignUpdate) {
	msg, err := json.Marshal(event{Type: "campaign_update", Payload: update})
	if err != nil {
		log.WithError(err).Error("encode campaign update")
		return
	}
	h.broadcast <- msg
}

// ServeHTTP upgrades the connection and runs the session pumps.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	s := &session{conn: conn, send: make(chan []byte, sendBufferSize)}
	select {
	case h.register <- s:
	case <-h.done:
		conn.Close()
		return
	}

	go s.writePump()
	go s.readPump(h)
}

func (s *session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound frames; viewers only listen. It exists to notice
// disconnects and to answer pings.
func (s *session) readPump(h *Hub) {
	defer func() {
		select {
		case h.unregister <- s:
		case <-h.done:
		}
		s.conn.Close()
	}()

	s.conn.SetReadLimit(512)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}
