// ABOUTME: Local note document store on SQLite.
// ABOUTME: Same create/update/delete/subscribe surface as the charm backend.

package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/harper/eureka/internal/feed"
	"github.com/harper/eureka/internal/models"
)

// Store keeps note documents in one sqlite table.
type Store struct {
	db     *sql.DB
	hub    *feed.Hub
	logger *log.Logger
}

// Option configures a Store.
type Option func(*storeOptions)

type storeOptions struct {
	interval time.Duration
	logger   *log.Logger
}

// WithPollInterval sets how often subscriptions re-read the table.
func WithPollInterval(d time.Duration) Option {
	return func(o *storeOptions) { o.interval = d }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(o *storeOptions) { o.logger = l }
}

// NewStore wraps an open database.
func NewStore(db *sql.DB, opts ...Option) *Store {
	o := storeOptions{interval: 2 * time.Second, logger: log.New(io.Discard)}
	for _, opt := range opts {
		opt(&o)
	}
	return &Store{
		db:     db,
		hub:    feed.NewHub(feed.WithInterval(o.interval), feed.WithLogger(o.logger)),
		logger: o.logger,
	}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ListDocuments returns userID's documents in insertion order. Rows whose
// JSON cannot be decoded are skipped with a warning.
func (s *Store) ListDocuments(ctx context.Context, userID string) ([]models.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, doc FROM notes WHERE user_id = ? ORDER BY seq`, userID)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	docs := []models.Document{}
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		var doc models.Document
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			s.logger.Warn("skipping undecodable note", "id", id, "err", err)
			continue
		}
		doc.ID = id
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// SubscribeNotes pushes userID's full note set now and on every change.
func (s *Store) SubscribeNotes(ctx context.Context, userID string, onSnapshot func([]models.Document)) (feed.Stopper, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fetch := func(ctx context.Context) ([]models.Document, error) {
		return s.ListDocuments(ctx, userID)
	}
	return s.hub.Subscribe(ctx, fetch, onSnapshot), nil
}

// CreateNote inserts doc under a fresh id.
func (s *Store) CreateNote(ctx context.Context, doc models.Document) (string, error) {
	doc.ID = uuid.New().String()
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal note: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO notes (id, user_id, doc, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		doc.ID, doc.UserID, string(raw), doc.CreatedAt.UnixMilli(), doc.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return "", fmt.Errorf("insert note: %w", err)
	}
	s.hub.NotifyAll()
	return doc.ID, nil
}

// UpdateNote replaces the stored document, keeping id, owner and creation time.
func (s *Store) UpdateNote(ctx context.Context, id string, doc models.Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var raw string
	err = tx.QueryRowContext(ctx, `SELECT doc FROM notes WHERE id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ErrNoteNotFound
	}
	if err != nil {
		return err
	}
	var existing models.Document
	if err := json.Unmarshal([]byte(raw), &existing); err != nil {
		return fmt.Errorf("unmarshal note: %w", err)
	}

	doc.ID = id
	doc.UserID = existing.UserID
	if !existing.CreatedAt.IsZero() {
		doc.CreatedAt = existing.CreatedAt
	}
	encoded, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal note: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE notes SET doc = ?, updated_at = ? WHERE id = ?`,
		string(encoded), doc.UpdatedAt.UnixMilli(), id,
	); err != nil {
		return fmt.Errorf("update note: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.hub.NotifyAll()
	return nil
}

// DeleteNote removes the note stored under id.
func (s *Store) DeleteNote(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrNoteNotFound
	}
	s.hub.NotifyAll()
	return nil
}
