// ABOUTME: Note model representing one recorded study mistake and its correction.
// ABOUTME: Provides the canonical shape, drafts for creation and partial patches.

package models

import (
	"strings"
	"time"
)

// Note is the canonical, normalized form of a stored note.
// DisplayID is transient: it is assigned when a list is materialized and is
// never persisted or used to look a note up.
type Note struct {
	ID            string
	UserID        string
	Subject       Subject
	Difficulty    Difficulty
	Lesson        string
	Source        string
	Mistake       string
	Correction    string
	FutureNote    string
	ReferenceLink string
	ImageURLs     []string
	Errors        []string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DisplayID     int
}

// Draft holds the user-editable fields of a note before it is persisted.
type Draft struct {
	Subject       Subject
	Difficulty    Difficulty
	Lesson        string
	Source        string
	Mistake       string
	Correction    string
	FutureNote    string
	ReferenceLink string
	ImageURLs     []string
	Errors        []string
}

// Validate checks the required fields in form order.
func (d Draft) Validate() error {
	switch {
	case strings.TrimSpace(d.Lesson) == "":
		return &ValidationError{Field: "lesson"}
	case strings.TrimSpace(d.Mistake) == "":
		return &ValidationError{Field: "mistake"}
	case strings.TrimSpace(d.Correction) == "":
		return &ValidationError{Field: "correction"}
	}
	return nil
}

// Draft copies the note's content into a new draft, dropping identity,
// ownership and timestamps.
func (n Note) Draft() Draft {
	return Draft{
		Subject:       n.Subject,
		Difficulty:    n.Difficulty,
		Lesson:        n.Lesson,
		Source:        n.Source,
		Mistake:       n.Mistake,
		Correction:    n.Correction,
		FutureNote:    n.FutureNote,
		ReferenceLink: n.ReferenceLink,
		ImageURLs:     cloneStrings(n.ImageURLs),
		Errors:        cloneStrings(n.Errors),
	}
}

// Clone returns a deep copy of the note.
func (n Note) Clone() Note {
	n.ImageURLs = cloneStrings(n.ImageURLs)
	n.Errors = cloneStrings(n.Errors)
	return n
}

// ErrorItems returns the itemized mistakes selected by indexes.
// A nil selection means all items; out-of-range indexes are ignored.
func (n Note) ErrorItems(selected []int) []string {
	if selected == nil {
		return cloneStrings(n.Errors)
	}
	var items []string
	for _, i := range selected {
		if i >= 0 && i < len(n.Errors) {
			items = append(items, n.Errors[i])
		}
	}
	return items
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Subject       *Subject
	Difficulty    *Difficulty
	Lesson        *string
	Source        *string
	Mistake       *string
	Correction    *string
	FutureNote    *string
	ReferenceLink *string
	ImageURLs     *[]string
	Errors        *[]string
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p == Patch{}
}

// Apply returns a copy of n with the patch's fields merged in.
func (p Patch) Apply(n Note) Note {
	out := n.Clone()
	if p.Subject != nil {
		out.Subject = *p.Subject
	}
	if p.Difficulty != nil {
		out.Difficulty = *p.Difficulty
	}
	if p.Lesson != nil {
		out.Lesson = *p.Lesson
	}
	if p.Source != nil {
		out.Source = *p.Source
	}
	if p.Mistake != nil {
		out.Mistake = *p.Mistake
	}
	if p.Correction != nil {
		out.Correction = *p.Correction
	}
	if p.FutureNote != nil {
		out.FutureNote = *p.FutureNote
	}
	if p.ReferenceLink != nil {
		out.ReferenceLink = *p.ReferenceLink
	}
	if p.ImageURLs != nil {
		out.ImageURLs = cloneStrings(*p.ImageURLs)
	}
	if p.Errors != nil {
		out.Errors = cloneStrings(*p.Errors)
	}
	return out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

// NewNote builds a note from a validated draft, owned by userID and stamped
// with now as both creation and update time.
func NewNote(d Draft, userID string, now time.Time) Note {
	return Note{
		UserID:        userID,
		Subject:       d.Subject,
		Difficulty:    d.Difficulty,
		Lesson:        d.Lesson,
		Source:        d.Source,
		Mistake:       d.Mistake,
		Correction:    d.Correction,
		FutureNote:    d.FutureNote,
		ReferenceLink: d.ReferenceLink,
		ImageURLs:     cloneStrings(d.ImageURLs),
		Errors:        cloneStrings(d.Errors),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
