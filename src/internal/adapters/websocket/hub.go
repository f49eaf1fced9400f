// Package websocket pushes profile snapshots to connected browsers.
//
// Every snapshot published by the synchronizer is broadcast as
//
//	{"type":"state","data":{...profile view...}}
//
// and a newly connected client gets the latest snapshot right away.
package websocket

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jcline/jcline/src/internal/domain"
	"github.com/jcline/jcline/src/internal/logging"
	"github.com/jcline/jcline/src/internal/metrics"
)

const MessageTypeState = "state"

type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub fans snapshots out to clients. Run it with Serve.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	log        zerolog.Logger
	stopped    chan struct{}
	stopOnce   sync.Once

	mu     sync.RWMutex
	latest *Message
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stopped:    make(chan struct{}),
		log:        logging.Component("websocket"),
	}
}

// Publish implements ports.Publisher. It never blocks: when the broadcast
// queue is full the snapshot is dropped, the next one supersedes it.
func (h *Hub) Publish(view domain.ProfileView) {
	msg := Message{Type: MessageTypeState, Data: view}

	h.mu.Lock()
	h.latest = &msg
	h.mu.Unlock()

	select {
	case h.broadcast <- msg:
	default:
		h.log.Warn().Msg("broadcast queue full, dropping snapshot")
	}
}

// Serve runs the hub until ctx is done, then closes every client.
func (h *Hub) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			h.stopOnce.Do(func() { close(h.stopped) })
			return ctx.Err()

		case c := <-h.register:
			h.clients[c] = true
			metrics.WebSocketClients.Set(float64(len(h.clients)))
			h.log.Debug().Int("clients", len(h.clients)).Msg("client connected")
			if latest := h.Latest(); latest != nil {
				h.send(c, *latest)
			}

		case c := <-h.unregister:
			if h.clients[c] {
				delete(h.clients, c)
				close(c.send)
			}
			metrics.WebSocketClients.Set(float64(len(h.clients)))
			h.log.Debug().Int("clients", len(h.clients)).Msg("client disconnected")

		case msg := <-h.broadcast:
			for c := range h.clients {
				h.send(c, msg)
			}
		}
	}
}

func (h *Hub) String() string {
	return "websocket-hub"
}

// Latest returns the most recent snapshot message, nil before the first one.
func (h *Hub) Latest() *Message {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest
}

// send drops a client whose buffer is full.
func (h *Hub) send(c *Client, msg Message) {
	select {
	case c.send <- msg:
	default:
		delete(h.clients, c)
		close(c.send)
		metrics.WebSocketClients.Set(float64(len(h.clients)))
		h.log.Warn().Uint64("client", c.id).Msg("slow client dropped")
	}
}

func (h *Hub) closeAll() {
	n := len(h.clients)
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	metrics.WebSocketClients.Set(0)
	h.log.Info().Int("clients_closed", n).Msg("websocket hub stopped")
}
