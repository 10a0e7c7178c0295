// ABOUTME: List filtering and ordering for note views.
// ABOUTME: Filters by subject, difficulty and text; sorts by update, creation or difficulty.

package notebook

import (
	"sort"
	"strings"

	"github.com/harper/eureka/internal/models"
)

// SortOrder selects how a filtered list is ordered.
type SortOrder string

const (
	SortUpdated    SortOrder = "updated"
	SortCreated    SortOrder = "created"
	SortDifficulty SortOrder = "difficulty"
)

// ParseSortOrder maps a flag value to a SortOrder, defaulting to SortUpdated.
func ParseSortOrder(s string) SortOrder {
	switch SortOrder(strings.ToLower(strings.TrimSpace(s))) {
	case SortCreated:
		return SortCreated
	case SortDifficulty:
		return SortDifficulty
	default:
		return SortUpdated
	}
}

// Filter narrows and orders a note list. Zero values match everything.
type Filter struct {
	Subject    models.Subject
	Difficulty models.Difficulty
	Query      string
	Sort       SortOrder
	Limit      int
}

// Apply returns the matching notes in the requested order. Display ids are
// left as materialized.
func (f Filter) Apply(notes []models.Note) []models.Note {
	query := strings.ToLower(strings.TrimSpace(f.Query))

	out := make([]models.Note, 0, len(notes))
	for _, n := range notes {
		if f.Subject != "" && n.Subject != f.Subject {
			continue
		}
		if f.Difficulty != "" && n.Difficulty != f.Difficulty {
			continue
		}
		if query != "" && !matches(n, query) {
			continue
		}
		out = append(out, n.Clone())
	}

	switch f.Sort {
	case SortCreated:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		})
	case SortDifficulty:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Difficulty.Rank() > out[j].Difficulty.Rank()
		})
	default:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		})
	}

	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

func matches(n models.Note, query string) bool {
	for _, field := range []string{n.Lesson, n.Mistake, n.Correction, n.Source, n.FutureNote} {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	for _, item := range n.Errors {
		if strings.Contains(strings.ToLower(item), query) {
			return true
		}
	}
	return false
}
