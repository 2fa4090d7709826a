// Package redis persists engine snapshots and fans decisions out to
// pub/sub subscribers. Publishes run through a circuit breaker so a Redis
// outage degrades the live feed instead of stalling scans.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"swing-scannerv1/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

const (
	snapshotKey      = "scanner:snapshot:latest"
	decisionFirehose = "pub:decision:all"

	breakerMaxFailures  = 5
	breakerResetTimeout = 10 * time.Second

	// maxPending caps buffered publishes during an outage; beyond it the
	// oldest decision is dropped, the feed is advisory not durable.
	maxPending = 1000
)

// Config configures the Redis store.
type Config struct {
	Addr     string // e.g. "localhost:6379"
	Password string
	DB       int
}

// Store wraps the Redis client used for snapshots and decision pub/sub.
// Decisions published while the breaker is open are held in a bounded
// in-memory buffer and replayed when the breaker closes again.
type Store struct {
	client  *goredis.Client
	breaker *Breaker

	mu      sync.Mutex
	pending []pendingDecision
}

// pendingDecision is a publish that was buffered during circuit-open state.
type pendingDecision struct {
	instrument string
	payload    []byte
}

// Client returns the underlying Redis client for health checks.
func (s *Store) Client() *goredis.Client { return s.client }

// New connects and pings the server.
func New(cfg Config) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	breaker := NewBreaker(breakerMaxFailures, breakerResetTimeout)
	s := &Store{client: client, breaker: breaker}
	breaker.OnStateChange = func(from, to State) {
		log.Printf("[redis] circuit breaker %s -> %s", from, to)
		if to == StateClosed {
			go s.flushPending()
		}
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return s, nil
}

// SaveSnapshotJSON stores the latest engine snapshot. The previous value
// is overwritten; restore only ever wants the newest state.
func (s *Store) SaveSnapshotJSON(ctx context.Context, data []byte) error {
	if err := s.client.Set(ctx, snapshotKey, data, 0).Err(); err != nil {
		return fmt.Errorf("redis save snapshot: %w", err)
	}
	return nil
}

// ReadLatestSnapshotJSON returns the stored snapshot, or (nil, nil) when
// none exists.
func (s *Store) ReadLatestSnapshotJSON(ctx context.Context) ([]byte, error) {
	data, err := s.client.Get(ctx, snapshotKey).Bytes()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis read snapshot: %w", err)
	}
	return data, nil
}

// PublishDecision publishes a decision on the per-instrument channel and
// the firehose. Both publishes share one pipeline round trip.
func (s *Store) PublishDecision(ctx context.Context, d model.Decision) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal decision: %w", err)
	}

	err = s.breaker.Execute(func() error {
		return s.publish(ctx, d.Instrument, payload)
	})
	if err == ErrCircuitOpen {
		s.bufferPending(d.Instrument, payload)
		return nil
	}
	return err
}

func (s *Store) publish(ctx context.Context, instrument string, payload []byte) error {
	pipe := s.client.Pipeline()
	pipe.Publish(ctx, "pub:decision:"+instrument, payload)
	pipe.Publish(ctx, decisionFirehose, payload)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Store) bufferPending(instrument string, payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) >= maxPending {
		s.pending = s.pending[1:]
	}
	s.pending = append(s.pending, pendingDecision{instrument: instrument, payload: payload})
}

// flushPending replays buffered publishes after the breaker closes.
func (s *Store) flushPending() {
	s.mu.Lock()
	toFlush := s.pending
	s.pending = nil
	s.mu.Unlock()
	if len(toFlush) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	flushed := 0
	for _, p := range toFlush {
		if err := s.publish(ctx, p.instrument, p.payload); err != nil {
			log.Printf("[redis] flush publish failed: %v", err)
			break
		}
		flushed++
	}
	log.Printf("[redis] flushed %d buffered decisions", flushed)
}

// PendingCount reports buffered publishes waiting for the breaker to close.
func (s *Store) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}
