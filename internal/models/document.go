// ABOUTME: Stored document shape for notes and its normalization into Note.
// ABOUTME: Accepts historical field names and timestamp encodings in one place.

package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Document is a note as it is stored by a remote adapter.
// Title, Content and Mistakes are read for older documents and never written.
type Document struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	Subject       string    `json:"subject,omitempty"`
	Difficulty    string    `json:"difficulty,omitempty"`
	Lesson        string    `json:"lesson,omitempty"`
	Title         string    `json:"title,omitempty"`
	Source        string    `json:"source,omitempty"`
	Mistake       string    `json:"mistake,omitempty"`
	Content       string    `json:"content,omitempty"`
	Correction    string    `json:"correction,omitempty"`
	FutureNote    string    `json:"futureNote,omitempty"`
	ReferenceLink string    `json:"referenceLink,omitempty"`
	ImageURLs     []string  `json:"imageUrls,omitempty"`
	Errors        ItemList  `json:"errors,omitempty"`
	Mistakes      ItemList  `json:"mistakes,omitempty"`
	CreatedAt     Timestamp `json:"createdAt"`
	UpdatedAt     Timestamp `json:"updatedAt"`
}

// DocumentFromNote converts a note to its canonical stored shape.
// The display id is not part of the document.
func DocumentFromNote(n Note) Document {
	return Document{
		ID:            n.ID,
		UserID:        n.UserID,
		Subject:       string(n.Subject),
		Difficulty:    string(n.Difficulty),
		Lesson:        n.Lesson,
		Source:        n.Source,
		Mistake:       n.Mistake,
		Correction:    n.Correction,
		FutureNote:    n.FutureNote,
		ReferenceLink: n.ReferenceLink,
		ImageURLs:     cloneStrings(n.ImageURLs),
		Errors:        ItemList(cloneStrings(n.Errors)),
		CreatedAt:     Timestamp{n.CreatedAt},
		UpdatedAt:     Timestamp{n.UpdatedAt},
	}
}

// Normalize converts a stored document into the canonical Note.
// It fails when the id, both timestamps or a required field cannot be
// recovered.
func (d Document) Normalize() (Note, error) {
	if strings.TrimSpace(d.ID) == "" {
		return Note{}, fmt.Errorf("document has no id")
	}
	if d.CreatedAt.IsZero() && d.UpdatedAt.IsZero() {
		return Note{}, fmt.Errorf("document %s has no timestamps", d.ID)
	}

	items := []string(d.Errors)
	if len(items) == 0 {
		items = []string(d.Mistakes)
	}

	n := Note{
		ID:            d.ID,
		UserID:        d.UserID,
		Subject:       ParseSubject(d.Subject),
		Difficulty:    ParseDifficulty(d.Difficulty),
		Lesson:        firstNonEmpty(d.Lesson, d.Title),
		Source:        d.Source,
		Mistake:       firstNonEmpty(d.Mistake, d.Content, strings.Join(items, "\n")),
		Correction:    d.Correction,
		FutureNote:    d.FutureNote,
		ReferenceLink: d.ReferenceLink,
		ImageURLs:     cloneStrings(d.ImageURLs),
		Errors:        cloneStrings(items),
		CreatedAt:     d.CreatedAt.Time,
		UpdatedAt:     d.UpdatedAt.Time,
	}

	if n.CreatedAt.IsZero() {
		n.CreatedAt = n.UpdatedAt
	}
	if n.UpdatedAt.Before(n.CreatedAt) {
		n.UpdatedAt = n.CreatedAt
	}

	if err := n.Draft().Validate(); err != nil {
		return Note{}, fmt.Errorf("document %s: %w", d.ID, err)
	}
	return n, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// ItemList decodes a list of mistake items. Older documents stored objects
// with a text field instead of plain strings.
type ItemList []string

func (l *ItemList) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*l = nil
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("item list: %w", err)
	}
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		var s string
		if err := json.Unmarshal(r, &s); err == nil {
			if strings.TrimSpace(s) != "" {
				out = append(out, s)
			}
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal(r, &obj); err != nil {
			return fmt.Errorf("item list entry: %w", err)
		}
		for _, key := range []string{"text", "content", "mistake", "description"} {
			if s, ok := obj[key].(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, s)
				break
			}
		}
	}
	*l = out
	return nil
}

// Timestamp accepts RFC 3339 strings, epoch seconds, epoch milliseconds and
// {"seconds": n} objects. It always marshals as RFC 3339.
type Timestamp struct {
	time.Time
}

// epochMillisCutoff separates second and millisecond epoch values.
const epochMillisCutoff = 1e11

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		return t.parseString(s)
	case '{':
		var obj struct {
			Seconds     int64 `json:"seconds"`
			Nanoseconds int64 `json:"nanoseconds"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return fmt.Errorf("timestamp object: %w", err)
		}
		t.Time = time.Unix(obj.Seconds, obj.Nanoseconds).UTC()
		return nil
	default:
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("timestamp: %w", err)
		}
		t.Time = fromEpoch(f)
		return nil
	}
}

func (t *Timestamp) parseString(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		t.Time = fromEpoch(f)
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("timestamp: unrecognized format %q", s)
}

func fromEpoch(f float64) time.Time {
	if f >= epochMillisCutoff {
		return time.UnixMilli(int64(f)).UTC()
	}
	return time.Unix(int64(f), 0).UTC()
}
