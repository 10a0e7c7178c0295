// ABOUTME: Note document operations using Charm KV storage
// ABOUTME: Uses type-prefixed keys (note:uuid) and polling snapshot subscriptions

package charm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/charmbracelet/charm/kv"
	"github.com/dgraph-io/badger/v3"
	"github.com/google/uuid"
	"github.com/harper/eureka/internal/feed"
	"github.com/harper/eureka/internal/models"
)

const (
	// NotePrefix is the key prefix for notes.
	NotePrefix = "note:"
)

func noteKey(id string) []byte {
	return []byte(NotePrefix + id)
}

// ListDocuments returns every stored note owned by userID in key order.
// Values that are not valid JSON are skipped with a warning.
func (c *Client) ListDocuments(userID string) ([]models.Document, error) {
	var docs []models.Document
	prefix := []byte(NotePrefix)

	err := c.doReadOnly(func(k *kv.KV) error {
		return k.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.PrefetchValues = true
			it := txn.NewIterator(opts)
			defer it.Close()

			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				item := it.Item()
				key := string(item.Key())
				err := item.Value(func(val []byte) error {
					var doc models.Document
					if err := json.Unmarshal(val, &doc); err != nil {
						c.logger.Warn("skipping undecodable note", "key", key, "err", err)
						return nil
					}
					if doc.UserID == userID {
						docs = append(docs, doc)
					}
					return nil
				})
				if err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return docs, nil
}

// SubscribeNotes pushes the full set of userID's notes now and whenever it
// changes, until the returned subscription is stopped.
func (c *Client) SubscribeNotes(ctx context.Context, userID string, onSnapshot func([]models.Document)) (feed.Stopper, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fetch := func(context.Context) ([]models.Document, error) {
		return c.ListDocuments(userID)
	}
	return c.hub.Subscribe(ctx, fetch, onSnapshot), nil
}

// CreateNote stores doc under a fresh id and returns it.
func (c *Client) CreateNote(ctx context.Context, doc models.Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	doc.ID = uuid.New().String()
	encoded, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal note: %w", err)
	}
	if err := c.do(func(k *kv.KV) error {
		return k.Set(noteKey(doc.ID), encoded)
	}); err != nil {
		return "", err
	}
	c.hub.NotifyAll()
	return doc.ID, nil
}

// UpdateNote replaces the stored document for id. The stored id, owner and
// creation time are kept.
func (c *Client) UpdateNote(ctx context.Context, id string, doc models.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := c.do(func(k *kv.KV) error {
		raw, err := k.Get(noteKey(id))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return models.ErrNoteNotFound
			}
			return err
		}
		var existing models.Document
		if err := json.Unmarshal(raw, &existing); err != nil {
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
		return k.Set(noteKey(id), encoded)
	})
	if err != nil {
		return err
	}
	c.hub.NotifyAll()
	return nil
}

// DeleteNote removes the note stored under id.
func (c *Client) DeleteNote(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := c.do(func(k *kv.KV) error {
		if _, err := k.Get(noteKey(id)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return models.ErrNoteNotFound
			}
			return err
		}
		return k.Delete(noteKey(id))
	})
	if err != nil {
		return err
	}
	c.hub.NotifyAll()
	return nil
}

// CountNotes returns the number of notes owned by userID.
func (c *Client) CountNotes(userID string) (int, error) {
	docs, err := c.ListDocuments(userID)
	return len(docs), err
}
