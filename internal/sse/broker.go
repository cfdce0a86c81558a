// Package sse streams document changes to clients as Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/starford/mockbox/internal/models"
)

// Event types published for document changes.
const (
	EventEntityCreated    = "entity.created"
	EventEntityUpdated    = "entity.updated"
	EventEntityDeleted    = "entity.deleted"
	EventDocumentReloaded = "document.reloaded"
)

var pingFrame = []byte(": ping\n\n")

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// EntityEventData is the payload of entity.* events.
type EntityEventData struct {
	Type   string         `json:"type"`
	ID     string         `json:"id"`
	Entity *models.Entity `json:"entity,omitempty"`
	At     string         `json:"at"`
}

// Broker manages SSE client connections and broadcasts events.
//
// A single internal event loop owns the client set; public methods talk to
// it over channels, so no mutexes are required.
type Broker struct {
	heartbeat time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker that pings idle clients every heartbeat.
func NewBroker(heartbeat time.Duration) *Broker {
	if heartbeat <= 0 {
		heartbeat = 15 * time.Second
	}

	b := &Broker{
		heartbeat:     heartbeat,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	ticker := time.NewTicker(b.heartbeat)
	defer ticker.Stop()

	send := func(raw []byte) {
		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// Client buffer full; drop rather than block the loop.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			payload, err := json.Marshal(event.Data)
			if err != nil {
				continue
			}
			send([]byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload)))

		case <-ticker.C:
			send(pingFrame)

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close gracefully stops the broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// clientCount returns the number of connected clients.
func (b *Broker) clientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// publish queues an event for all connected clients. It never blocks: when
// the queue is full the event is dropped.
func (b *Broker) publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	default:
	}
}

// Observe turns a document change into an event.
func (b *Broker) Observe(c models.Change) {
	b.publish(eventFor(c))
}

func eventFor(c models.Change) Event {
	if c.Op == models.OpReloaded {
		return Event{Type: EventDocumentReloaded, Data: map[string]string{"at": models.FormatTime(c.At)}}
	}
	var typ string
	switch c.Op {
	case models.OpCreated:
		typ = EventEntityCreated
	case models.OpUpdated:
		typ = EventEntityUpdated
	default:
		typ = EventEntityDeleted
	}
	return Event{Type: typ, Data: EntityEventData{
		Type:   c.Type,
		ID:     c.ID,
		Entity: c.Entity,
		At:     models.FormatTime(c.At),
	}}
}

// ServeHTTP is the SSE endpoint handler (GET /events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer func() {
		b.Unsubscribe(ch)
		slog.Debug("sse: client disconnected", slog.Int("clients", b.clientCount()))
	}()
	slog.Debug("sse: client connected",
		slog.String("remote", r.RemoteAddr),
		slog.Int("clients", b.clientCount()))

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
