// ABOUTME: Property tests for display id assignment.
// ABOUTME: Random snapshots must always materialize to a dense 1..N ordering.

package notebook

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"pgregory.net/rapid"
)

func TestDisplayIDsAreDenseAndChronological(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 40).Draw(t, "n")
		offsets := rapid.Permutation(rangeInts(n)).Draw(t, "offsets")

		remote := &fakeRemote{}
		for i, off := range offsets {
			remote.seed(mkDoc(fmt.Sprintf("n%02d", i), off))
		}
		s := New(remote, Session{UserID: user})
		sub, err := s.Subscribe(context.Background(), user)
		if err != nil {
			t.Fatalf("subscribe: %v", err)
		}
		defer sub.Stop()

		list := s.Notes()
		if len(list) != n {
			t.Fatalf("got %d notes, want %d", len(list), n)
		}
		for i, note := range list {
			if note.DisplayID != i+1 {
				t.Fatalf("position %d has display id %d", i, note.DisplayID)
			}
		}
		if !sort.SliceIsSorted(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) }) {
			t.Fatalf("list not in creation order")
		}
	})
}

func TestDeleteRecomputesDisplayIDs(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 20).Draw(t, "n")
		victim := rapid.IntRange(0, n-1).Draw(t, "victim")

		remote := &fakeRemote{}
		for i := 0; i < n; i++ {
			remote.seed(mkDoc(fmt.Sprintf("n%02d", i), i))
		}
		s := New(remote, Session{UserID: user}, WithTimeout(time.Second))
		sub, err := s.Subscribe(context.Background(), user)
		if err != nil {
			t.Fatalf("subscribe: %v", err)
		}
		defer sub.Stop()

		p, err := s.Delete(context.Background(), fmt.Sprintf("n%02d", victim))
		if err != nil {
			t.Fatalf("delete: %v", err)
		}
		list := s.Notes()
		if len(list) != n-1 {
			t.Fatalf("got %d notes after delete, want %d", len(list), n-1)
		}
		for i, note := range list {
			if note.DisplayID != i+1 {
				t.Fatalf("position %d has display id %d", i, note.DisplayID)
			}
		}
		if err := p.Wait(context.Background()); err != nil {
			t.Fatalf("remote delete: %v", err)
		}
	})
}

func rangeInts(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
