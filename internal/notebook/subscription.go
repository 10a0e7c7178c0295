// ABOUTME: Subscription handle, pending delete handle and per-id locking.
// ABOUTME: Lists are delivered latest-wins so slow readers never see stale data.

package notebook

import (
	"context"
	"sync"

	"github.com/harper/eureka/internal/feed"
	"github.com/harper/eureka/internal/models"
)

// Subscription delivers materialized note lists until stopped.
type Subscription struct {
	store *Store
	ch    chan []models.Note

	mu     sync.Mutex
	remote feed.Stopper
	closed bool
	once   sync.Once
}

// C delivers the newest list. An undelivered list is replaced when a newer
// one arrives. C is closed by Stop.
func (sub *Subscription) C() <-chan []models.Note {
	return sub.ch
}

// Stop releases the remote subscription and closes C.
func (sub *Subscription) Stop() {
	sub.once.Do(func() {
		sub.mu.Lock()
		remote := sub.remote
		sub.mu.Unlock()
		if remote != nil {
			remote.Stop()
		}
		sub.store.unsubscribe(sub)
		sub.close()
	})
}

// Next waits for the next list or until ctx is done.
func (sub *Subscription) Next(ctx context.Context) ([]models.Note, error) {
	select {
	case list, ok := <-sub.ch:
		if !ok {
			return nil, context.Canceled
		}
		return list, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (sub *Subscription) setRemote(r feed.Stopper) {
	sub.mu.Lock()
	sub.remote = r
	sub.mu.Unlock()
}

func (sub *Subscription) offer(list []models.Note) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.closed {
		return
	}
	select {
	case <-sub.ch:
	default:
	}
	sub.ch <- list
}

func (sub *Subscription) close() {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if !sub.closed {
		sub.closed = true
		close(sub.ch)
	}
}

// Pending tracks a remote delete running in the background.
type Pending struct {
	done chan struct{}
	err  error
}

func newPending() *Pending {
	return &Pending{done: make(chan struct{})}
}

func (p *Pending) finish(err error) {
	p.err = err
	close(p.done)
}

// Done is closed once the remote delete has settled.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Err returns the delete's failure, or nil while still running or on success.
func (p *Pending) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

// Wait blocks until the delete settles or ctx is done.
func (p *Pending) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// keyedMutex hands out one mutex per key and forgets keys nobody holds.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

// Lock acquires the mutex for key and returns its unlock function.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyedEntry)
	}
	e, ok := k.locks[key]
	if !ok {
		e = &keyedEntry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
