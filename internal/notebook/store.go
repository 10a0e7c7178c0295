// ABOUTME: Note store that reconciles remote snapshots with local mutations.
// ABOUTME: Owns the display-ready list, optimistic deletes and per-note serialization.

package notebook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harper/eureka/internal/feed"
	"github.com/harper/eureka/internal/models"
)

// DefaultTimeout bounds each remote mutation.
const DefaultTimeout = 15 * time.Second

// Remote is the document store the notebook persists to.
type Remote interface {
	SubscribeNotes(ctx context.Context, userID string, onSnapshot func([]models.Document)) (feed.Stopper, error)
	CreateNote(ctx context.Context, doc models.Document) (string, error)
	UpdateNote(ctx context.Context, id string, doc models.Document) error
	DeleteNote(ctx context.Context, id string) error
}

// Session identifies the signed-in user.
type Session struct {
	UserID string
}

// Store holds the materialized note list for one session.
type Store struct {
	remote  Remote
	session Session
	logger  *log.Logger
	now     func() time.Time
	timeout time.Duration
	locks   keyedMutex

	mu         sync.Mutex
	snapshot   []models.Note
	list       []models.Note
	version    uint64
	pending    map[string]struct{}
	tombstones map[string]struct{}
	written    map[string]models.Note
	subs       map[*Subscription]struct{}
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithTimeout bounds each remote create, update and delete call.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// New creates a store for session backed by remote.
func New(remote Remote, session Session, opts ...Option) *Store {
	s := &Store{
		remote:     remote,
		session:    session,
		logger:     log.New(io.Discard),
		now:        time.Now,
		timeout:    DefaultTimeout,
		pending:    make(map[string]struct{}),
		tombstones: make(map[string]struct{}),
		written:    make(map[string]models.Note),
		subs:       make(map[*Subscription]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Session returns the session the store was created with.
func (s *Store) Session() Session {
	return s.session
}

// Subscribe starts a live subscription for userID (the session user when
// empty). Every remote snapshot replaces the working set and a fresh list is
// delivered on the subscription's channel.
func (s *Store) Subscribe(ctx context.Context, userID string) (*Subscription, error) {
	if userID == "" {
		userID = s.session.UserID
	}

	sub := &Subscription{
		store: s,
		ch:    make(chan []models.Note, 1),
	}
	s.mu.Lock()
	s.subs[sub] = struct{}{}
	s.mu.Unlock()

	remote, err := s.remote.SubscribeNotes(ctx, userID, func(docs []models.Document) {
		s.applySnapshot(userID, docs)
	})
	if err != nil {
		s.mu.Lock()
		delete(s.subs, sub)
		s.mu.Unlock()
		sub.close()
		return nil, &models.RemoteUnavailableError{Op: "subscribe", Err: err}
	}
	sub.setRemote(remote)
	return sub, nil
}

// Notes returns a copy of the current materialized list.
func (s *Store) Notes() []models.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneNotes(s.list)
}

// Get returns the note with id from the materialized list.
func (s *Store) Get(id string) (models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.lookup(id)
	if !ok {
		return models.Note{}, &models.NotFoundError{ID: id}
	}
	return n.Clone(), nil
}

// Find resolves an id prefix of at least 6 characters.
func (s *Store) Find(prefix string) (models.Note, error) {
	if len(prefix) < 6 {
		return models.Note{}, models.ErrPrefixTooShort
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var matches []models.Note
	for _, n := range s.list {
		if n.ID == prefix {
			return n.Clone(), nil
		}
		if strings.HasPrefix(n.ID, prefix) {
			matches = append(matches, n)
		}
	}
	switch len(matches) {
	case 0:
		return models.Note{}, &models.NotFoundError{ID: prefix}
	case 1:
		return matches[0].Clone(), nil
	default:
		return models.Note{}, fmt.Errorf("%w: %d matches", models.ErrAmbiguousPrefix, len(matches))
	}
}

// Create validates draft, stamps it and stores it remotely. Nothing is added
// to the local list: the next snapshot carries the new note.
func (s *Store) Create(ctx context.Context, draft models.Draft) (models.Note, error) {
	if err := draft.Validate(); err != nil {
		return models.Note{}, err
	}

	note := models.NewNote(draft, s.session.UserID, s.now())
	doc := models.DocumentFromNote(note)

	var id string
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		id, err = s.remote.CreateNote(ctx, doc)
		return err
	})
	if err != nil {
		return models.Note{}, &models.RemoteUnavailableError{Op: "create", Err: err}
	}
	note.ID = id
	return note, nil
}

// Update merges patch into the note with id, refreshes its update time and
// stores it remotely. Calls for the same id run one at a time.
func (s *Store) Update(ctx context.Context, id string, patch models.Patch) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	s.mu.Lock()
	base, ok := s.lookup(id)
	if ok {
		if w, seen := s.written[id]; seen && w.UpdatedAt.After(base.UpdatedAt) {
			base = w
		}
	}
	s.mu.Unlock()
	if !ok {
		return &models.NotFoundError{ID: id}
	}

	merged := patch.Apply(base)
	if err := merged.Draft().Validate(); err != nil {
		return err
	}
	merged.DisplayID = 0
	merged.UpdatedAt = s.nextUpdate(base)

	err := s.call(ctx, func(ctx context.Context) error {
		return s.remote.UpdateNote(ctx, id, models.DocumentFromNote(merged))
	})
	if errors.Is(err, models.ErrNoteNotFound) {
		return &models.NotFoundError{ID: id}
	}
	if err != nil {
		return &models.RemoteUnavailableError{Op: "update", Err: err}
	}

	s.mu.Lock()
	s.written[id] = merged
	s.mu.Unlock()
	return nil
}

// nextUpdate returns an update time that is never before creation and always
// after the previous update.
func (s *Store) nextUpdate(base models.Note) time.Time {
	now := s.now()
	if now.Before(base.CreatedAt) {
		now = base.CreatedAt
	}
	if !now.After(base.UpdatedAt) {
		now = base.UpdatedAt.Add(time.Millisecond)
	}
	return now
}

// Delete removes the note from the local list at once and deletes it
// remotely in the background. If the remote delete fails the previous list
// comes back: exactly as it was when nothing changed meanwhile, otherwise
// rebuilt from the newest snapshot.
func (s *Store) Delete(ctx context.Context, id string) (*Pending, error) {
	s.mu.Lock()
	if _, ok := s.lookup(id); !ok {
		s.mu.Unlock()
		return nil, &models.NotFoundError{ID: id}
	}
	prev := s.list
	s.pending[id] = struct{}{}
	s.replace(s.materialize())
	removedAt := s.version
	s.mu.Unlock()

	p := newPending()
	bg := context.WithoutCancel(ctx)
	go func() {
		unlock := s.locks.Lock(id)
		defer unlock()

		err := s.call(bg, func(ctx context.Context) error {
			return s.remote.DeleteNote(ctx, id)
		})
		if errors.Is(err, models.ErrNoteNotFound) {
			err = nil
		}

		s.mu.Lock()
		delete(s.pending, id)
		switch {
		case err == nil:
			s.tombstones[id] = struct{}{}
			delete(s.written, id)
		case s.version == removedAt:
			s.replace(prev)
		default:
			s.replace(s.materialize())
		}
		s.mu.Unlock()

		if err != nil {
			s.logger.Warn("delete failed, note restored", "id", id, "err", err)
			err = &models.RemoteUnavailableError{Op: "delete", Err: err}
		}
		p.finish(err)
	}()
	return p, nil
}

// call runs fn with the remote timeout and gives up waiting when it expires.
func (s *Store) call(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	errc := make(chan error, 1)
	go func() { errc <- fn(ctx) }()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) applySnapshot(userID string, docs []models.Document) {
	notes := make([]models.Note, 0, len(docs))
	for _, d := range docs {
		n, err := d.Normalize()
		if err != nil {
			s.logger.Warn("dropping malformed note", "id", d.ID, "err", err)
			continue
		}
		if n.UserID != userID {
			continue
		}
		notes = append(notes, n)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot = notes
	for id, w := range s.written {
		n, ok := findNote(notes, id)
		if !ok || !n.UpdatedAt.Before(w.UpdatedAt) {
			delete(s.written, id)
		}
	}
	s.replace(s.materialize())
}

// materialize builds the display list from the last snapshot: hidden ids
// removed, stable-sorted by creation time, display ids 1..N. Callers hold mu.
func (s *Store) materialize() []models.Note {
	out := make([]models.Note, 0, len(s.snapshot))
	for _, n := range s.snapshot {
		if _, ok := s.pending[n.ID]; ok {
			continue
		}
		if _, ok := s.tombstones[n.ID]; ok {
			continue
		}
		out = append(out, n.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	for i := range out {
		out[i].DisplayID = i + 1
	}
	return out
}

// replace swaps in a new list and delivers it. Callers hold mu.
func (s *Store) replace(list []models.Note) {
	s.list = list
	s.version++
	for sub := range s.subs {
		sub.offer(cloneNotes(list))
	}
}

func (s *Store) lookup(id string) (models.Note, bool) {
	return findNote(s.list, id)
}

func (s *Store) unsubscribe(sub *Subscription) {
	s.mu.Lock()
	delete(s.subs, sub)
	s.mu.Unlock()
}

func findNote(notes []models.Note, id string) (models.Note, bool) {
	for _, n := range notes {
		if n.ID == id {
			return n, true
		}
	}
	return models.Note{}, false
}

func cloneNotes(notes []models.Note) []models.Note {
	out := make([]models.Note, len(notes))
	for i, n := range notes {
		out[i] = n.Clone()
	}
	return out
}
