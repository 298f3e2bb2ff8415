// Package feed streams shooter events to websocket clients
package feed

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"umbra/internal/platform/logger"
	dom "umbra/internal/services/shooter/domain"

	"github.com/gorilla/websocket"
)

const (
	writeTimeout = 5 * time.Second
	pingPeriod   = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(strings.TrimSpace(u.Host), strings.TrimSpace(r.Host))
	},
}

type client struct {
	send chan dom.Event
}

// Hub fans events out to connected clients. Observe is called from the shot loop and
// never blocks: a client that cannot keep up is disconnected.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	buffer  int
	last    *dom.Event
}

var _ dom.Observer = (*Hub)(nil)

// NewHub creates a hub, buffer is the per client queue length
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{clients: map[*client]struct{}{}, buffer: buffer}
}

// Observe implements dom.Observer
func (h *Hub) Observe(ev dom.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = &ev
	for c := range h.clients {
		select {
		case c.send <- ev:
		default:
			delete(h.clients, c)
			close(c.send)
		}
	}
}

// Clients is the number of connected clients
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) join() (*client, *dom.Event) {
	c := &client{send: make(chan dom.Event, h.buffer)}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	return c, h.last
}

func (h *Hub) leave(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// ServeHTTP upgrades the request and streams events as JSON text frames, starting
// with the most recent event so a late client sees where the run is
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an http error
		return
	}
	log := logger.C(r.Context())
	c, last := h.join()
	log.Debug().Int("clients", h.Clients()).Msg("feed: client joined")
	defer func() {
		h.leave(c)
		_ = conn.Close()
		log.Debug().Msg("feed: client left")
	}()

	// the reader only notices the peer going away
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if last != nil {
		if err := write(conn, *last); err != nil {
			return
		}
	}

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case ev, ok := <-c.send:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "slow consumer"),
					time.Now().Add(writeTimeout))
				return
			}
			if err := write(conn, ev); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func write(conn *websocket.Conn, ev dom.Event) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(ev)
}
