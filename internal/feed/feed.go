// ABOUTME: Cancellable polling subscriptions that push full snapshots on change
// ABOUTME: A Hub tracks live subscriptions so local writes can trigger a refresh

package feed

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harper/eureka/internal/models"
)

// DefaultInterval is used when a Hub is created with a zero interval.
const DefaultInterval = 30 * time.Second

// FetchFunc loads the current full snapshot.
type FetchFunc func(ctx context.Context) ([]models.Document, error)

// EmitFunc receives a snapshot. It is called from the subscription goroutine,
// never concurrently with itself.
type EmitFunc func([]models.Document)

// Hub owns the subscriptions of one store.
type Hub struct {
	interval time.Duration
	logger   *log.Logger

	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

// Option configures a Hub.
type Option func(*Hub)

// WithInterval sets the polling interval.
func WithInterval(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.interval = d
		}
	}
}

// WithLogger sets the logger for fetch failures.
func WithLogger(l *log.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}

// NewHub creates a hub with no subscriptions.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		interval: DefaultInterval,
		logger:   log.New(io.Discard),
		subs:     make(map[*Subscription]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscription is a running poll loop. Stop it to release it.
type Subscription struct {
	hub    *Hub
	cancel context.CancelFunc
	done   chan struct{}
	kick   chan struct{}
	once   sync.Once
}

// Subscribe starts a poll loop that fetches immediately, then on every tick or
// Notify, and emits whenever the snapshot content changes.
func (h *Hub) Subscribe(ctx context.Context, fetch FetchFunc, emit EmitFunc) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	s := &Subscription{
		hub:    h,
		cancel: cancel,
		done:   make(chan struct{}),
		kick:   make(chan struct{}, 1),
	}

	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()

	go s.run(ctx, fetch, emit)
	return s
}

// NotifyAll asks every live subscription to refresh now.
func (h *Hub) NotifyAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		s.Notify()
	}
}

// Len returns the number of live subscriptions.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Notify requests a refresh without blocking.
func (s *Subscription) Notify() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// Stop cancels the loop and waits for it to exit. No emit happens after Stop
// returns. Safe to call more than once.
func (s *Subscription) Stop() {
	s.once.Do(func() {
		s.cancel()
		<-s.done
		s.hub.mu.Lock()
		delete(s.hub.subs, s)
		s.hub.mu.Unlock()
	})
}

// Done is closed when the loop has exited.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

func (s *Subscription) run(ctx context.Context, fetch FetchFunc, emit EmitFunc) {
	defer close(s.done)

	ticker := time.NewTicker(s.hub.interval)
	defer ticker.Stop()

	var (
		last    uint64
		emitted bool
	)
	poll := func() {
		docs, err := fetch(ctx)
		if err != nil {
			if ctx.Err() == nil {
				s.hub.logger.Warn("snapshot fetch failed", "err", err)
			}
			return
		}
		sum := fingerprint(docs)
		if emitted && sum == last {
			return
		}
		if ctx.Err() != nil {
			return
		}
		last, emitted = sum, true
		emit(docs)
	}

	poll()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			poll()
		case <-s.kick:
			poll()
		}
	}
}

func fingerprint(docs []models.Document) uint64 {
	h := fnv.New64a()
	enc := json.NewEncoder(h)
	for _, d := range docs {
		_ = enc.Encode(d)
	}
	return h.Sum64()
}

// Stopper is the handle adapters return for a running subscription.
type Stopper interface {
	Stop()
}
