// Package gateway exposes the scanner over HTTP and streams decisions to
// WebSocket clients. Decisions arrive over Redis pub/sub so multiple
// gateway instances see the same feed.
package gateway

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"sync"
	"time"

	"swing-scannerv1/internal/metrics"

	goredis "github.com/go-redis/redis/v8"
)

const decisionChannel = "pub:decision:all"

// Hub fans decisions out to connected WebSocket clients and remembers the
// latest decision per instrument for late joiners.
type Hub struct {
	rdb     *goredis.Client
	metrics *metrics.Metrics

	mu      sync.RWMutex
	clients map[*Client]bool
	latest  map[string]latestEntry
	seq     int64
}

type latestEntry struct {
	Data json.RawMessage
	TS   time.Time
}

// NewHub creates a hub. rdb may be nil when running without Redis; the
// HTTP API still works, only the live feed stays quiet.
func NewHub(rdb *goredis.Client, m *metrics.Metrics) *Hub {
	return &Hub{
		rdb:     rdb,
		metrics: m,
		clients: make(map[*Client]bool),
		latest:  make(map[string]latestEntry),
	}
}

// Run subscribes to the decision firehose and broadcasts every message.
// Reconnects with backoff on subscription errors. Blocks until ctx ends.
func (h *Hub) Run(ctx context.Context) {
	if h.rdb == nil {
		<-ctx.Done()
		return
	}
	for {
		if err := h.subscribe(ctx); err != nil {
			log.Printf("[gateway] pubsub error: %v, reconnecting in 2s", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
	}
}

func (h *Hub) subscribe(ctx context.Context) error {
	sub := h.rdb.Subscribe(ctx, decisionChannel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	log.Printf("[gateway] subscribed to %s", decisionChannel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			h.Broadcast([]byte(msg.Payload))
		}
	}
}

// Broadcast sends a decision payload to every connected client. Clients
// whose send buffer is full miss the message; the latest-state replay on
// the next decision covers them.
func (h *Hub) Broadcast(data []byte) {
	instrument := extractInstrument(data)
	now := time.Now().UTC()

	h.mu.Lock()
	if instrument != "" {
		h.latest[instrument] = latestEntry{Data: data, TS: now}
	}
	h.seq++
	seq := h.seq
	h.mu.Unlock()

	buf := envelope(data, now, seq)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.send <- buf:
		default:
		}
	}
}

// envelope hand-crafts the wire JSON, avoiding a marshal on the fan-out path.
func envelope(data []byte, now time.Time, seq int64) []byte {
	buf := make([]byte, 0, len(data)+96)
	buf = append(buf, `{"type":"decision","data":`...)
	buf = append(buf, data...)
	buf = append(buf, `,"ts":"`...)
	buf = now.AppendFormat(buf, time.RFC3339Nano)
	buf = append(buf, `","seq":`...)
	buf = strconv.AppendInt(buf, seq, 10)
	buf = append(buf, '}')
	return buf
}

func extractInstrument(data []byte) string {
	var partial struct {
		Instrument string `json:"instrument"`
	}
	if err := json.Unmarshal(data, &partial); err != nil {
		return ""
	}
	return partial.Instrument
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	count := len(h.clients)
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.WSClients.Set(float64(count))
	}
	log.Printf("[gateway] ws client connected (%d total)", count)
}

// RemoveClient unregisters a client and closes its send channel.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	if !h.clients[c] {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	count := len(h.clients)
	h.mu.Unlock()

	close(c.send)
	if h.metrics != nil {
		h.metrics.WSClients.Set(float64(count))
	}
	log.Printf("[gateway] ws client disconnected (%d total)", count)
}

// ClientCount reports connected WebSocket clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// LatestDecisions returns the newest decision payload per instrument.
func (h *Hub) LatestDecisions() map[string]json.RawMessage {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[string]json.RawMessage, len(h.latest))
	for k, v := range h.latest {
		out[k] = v.Data
	}
	return out
}
