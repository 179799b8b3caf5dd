// Package events streams workflow events to HTTP clients as Server-Sent Events.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/jsamuelsen/esoteric-daily/internal/ports"
)

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("event broker closed")

const (
	publishBuffer = 256
	clientBuffer  = 64

	defaultKeepAlive = 15 * time.Second
)

// Broker fans published events out to connected SSE clients. It implements
// ports.EventPublisher.
//
// A single goroutine owns the client set; public methods talk to it over
// channels. A client whose buffer is full misses the event instead of
// stalling the others.
type Broker struct {
	keepAlive time.Duration
	logger    *slog.Logger

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan []byte
	countReqCh    chan chan int

	seq     atomic.Uint64
	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker starts a broker. keepAlive is the interval between comment
// pings on idle streams; zero means 15s.
func NewBroker(keepAlive time.Duration, logger *slog.Logger) *Broker {
	if keepAlive <= 0 {
		keepAlive = defaultKeepAlive
	}

	if logger == nil {
		logger = slog.Default()
	}

	b := &Broker{
		keepAlive:     keepAlive,
		logger:        logger.With(slog.String("component", "events.Broker")),
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan []byte, publishBuffer),
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

		case msg := <-b.publishCh:
			for ch := range clients {
				select {
				case ch <- msg:
				default:
				}
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Publish implements ports.EventPublisher. It only blocks when the publish
// buffer is full, and then no longer than ctx allows.
func (b *Broker) Publish(ctx context.Context, event ports.Event) error {
	if b.closed.Load() {
		return ErrClosed
	}

	msg, err := b.encode(event)
	if err != nil {
		return err
	}

	select {
	case b.publishCh <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-b.stopped:
		return ErrClosed
	}
}

// encode renders one SSE frame: id, event and a single-line JSON data field.
func (b *Broker) encode(event ports.Event) ([]byte, error) {
	payload, err := json.Marshal(event.Payload())
	if err != nil {
		return nil, fmt.Errorf("encoding %s event: %w", event.EventType(), err)
	}

	id := b.seq.Add(1)

	return fmt.Appendf(nil, "id: %d\nevent: %s\ndata: %s\n\n", id, event.EventType(), payload), nil
}

// Subscribe registers a client. The channel is closed on Unsubscribe or Close.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, clientBuffer)
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

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
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

// Close stops the loop and ends every open stream. Safe to call twice.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}

	<-b.stopped
}

// ServeHTTP streams events until the client goes away or the broker closes.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	// Streams outlive the server's WriteTimeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.logger.DebugContext(r.Context(), "event stream opened", slog.String("remote", r.RemoteAddr))

	ticker := time.NewTicker(b.keepAlive)
	defer ticker.Stop()

	ctx := r.Context()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.Write([]byte(": ping\n\n")); err != nil {
				return
			}

			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}

			if _, err := w.Write(msg); err != nil {
				return
			}

			flusher.Flush()
		}
	}
}
