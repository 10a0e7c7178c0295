// ABOUTME: Tests for snapshot reconciliation, mutations and optimistic deletes.
// ABOUTME: Uses an in-memory remote whose snapshots are pushed by the test.

package notebook

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/harper/eureka/internal/feed"
	"github.com/harper/eureka/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const user = "user-1"

var base = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeStopper struct {
	remote *fakeRemote
}

func (s fakeStopper) Stop() {
	s.remote.mu.Lock()
	defer s.remote.mu.Unlock()
	s.remote.onSnapshot = nil
	s.remote.stopped++
}

type fakeRemote struct {
	mu         sync.Mutex
	docs       []models.Document
	nextID     int
	onSnapshot func([]models.Document)
	stopped    int

	createErr  error
	updateErr  error
	deleteErr  error
	deleteGate chan struct{}
	creates    int
	updates    []models.Document
}

var _ Remote = (*fakeRemote)(nil)

func (f *fakeRemote) SubscribeNotes(ctx context.Context, userID string, fn func([]models.Document)) (feed.Stopper, error) {
	f.mu.Lock()
	f.onSnapshot = fn
	f.mu.Unlock()
	f.push()
	return fakeStopper{f}, nil
}

// push delivers the current documents synchronously.
func (f *fakeRemote) push() {
	f.mu.Lock()
	fn := f.onSnapshot
	docs := append([]models.Document(nil), f.docs...)
	f.mu.Unlock()
	if fn != nil {
		fn(docs)
	}
}

func (f *fakeRemote) CreateNote(ctx context.Context, doc models.Document) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.createErr != nil {
		return "", f.createErr
	}
	f.nextID++
	doc.ID = fmt.Sprintf("note-%03d", f.nextID)
	f.docs = append(f.docs, doc)
	return doc.ID, nil
}

func (f *fakeRemote) UpdateNote(ctx context.Context, id string, doc models.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	for i := range f.docs {
		if f.docs[i].ID == id {
			doc.ID = id
			f.docs[i] = doc
			f.updates = append(f.updates, doc)
			return nil
		}
	}
	return models.ErrNoteNotFound
}

func (f *fakeRemote) DeleteNote(ctx context.Context, id string) error {
	f.mu.Lock()
	gate := f.deleteGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for i := range f.docs {
		if f.docs[i].ID == id {
			f.docs = append(f.docs[:i], f.docs[i+1:]...)
			return nil
		}
	}
	return models.ErrNoteNotFound
}

func (f *fakeRemote) seed(docs ...models.Document) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs = append(f.docs, docs...)
}

func (f *fakeRemote) set(fn func(f *fakeRemote)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func mkDoc(id string, minutes int) models.Document {
	at := base.Add(time.Duration(minutes) * time.Minute)
	return models.Document{
		ID: id, UserID: user, Lesson: "lesson " + id, Mistake: "m", Correction: "c",
		CreatedAt: models.Timestamp{Time: at}, UpdatedAt: models.Timestamp{Time: at},
	}
}

func newStore(t *testing.T, remote *fakeRemote) (*Store, *Subscription) {
	t.Helper()
	clock := base.Add(24 * time.Hour)
	s := New(remote, Session{UserID: user}, WithClock(func() time.Time { return clock }), WithTimeout(time.Second))
	sub, err := s.Subscribe(context.Background(), user)
	require.NoError(t, err)
	t.Cleanup(sub.Stop)
	return s, sub
}

func ids(notes []models.Note) []string {
	out := make([]string, len(notes))
	for i, n := range notes {
		out[i] = n.ID
	}
	return out
}

func displayIDs(notes []models.Note) []int {
	out := make([]int, len(notes))
	for i, n := range notes {
		out[i] = n.DisplayID
	}
	return out
}

func latest(t *testing.T, sub *Subscription) []models.Note {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	list, err := sub.Next(ctx)
	require.NoError(t, err)
	return list
}

func TestSubscribeMaterializesSnapshot(t *testing.T) {
	remote := &fakeRemote{}
	other := mkDoc("theirs", 1)
	other.UserID = "someone-else"
	malformed := mkDoc("broken", 2)
	malformed.Correction = ""
	remote.seed(mkDoc("c", 30), mkDoc("a", 10), other, malformed, mkDoc("b", 20))

	_, sub := newStore(t, remote)
	list := latest(t, sub)

	assert.Equal(t, []string{"a", "b", "c"}, ids(list))
	assert.Equal(t, []int{1, 2, 3}, displayIDs(list))
}

func TestEqualCreationTimesKeepRemoteOrder(t *testing.T) {
	remote := &fakeRemote{}
	remote.seed(mkDoc("z", 5), mkDoc("y", 5), mkDoc("x", 1), mkDoc("w", 5))

	s, _ := newStore(t, remote)
	assert.Equal(t, []string{"x", "z", "y", "w"}, ids(s.Notes()))
}

func TestReapplyingSnapshotIsIdempotent(t *testing.T) {
	remote := &fakeRemote{}
	remote.seed(mkDoc("b", 2), mkDoc("a", 1))

	s, _ := newStore(t, remote)
	first := s.Notes()
	remote.push()
	second := s.Notes()

	assert.Equal(t, first, second)
}

func TestCreateValidatesBeforeRemote(t *testing.T) {
	remote := &fakeRemote{}
	s, _ := newStore(t, remote)

	_, err := s.Create(context.Background(), models.Draft{Lesson: "l", Correction: "c"})
	var ve *models.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "mistake", ve.Field)
	assert.Equal(t, 0, remote.creates)
}

func TestCreateThenSnapshot(t *testing.T) {
	remote := &fakeRemote{}
	remote.seed(mkDoc("old", 1))
	s, sub := newStore(t, remote)

	note, err := s.Create(context.Background(), models.Draft{Lesson: "new", Mistake: "m", Correction: "c"})
	require.NoError(t, err)
	assert.NotEmpty(t, note.ID)
	assert.Equal(t, user, note.UserID)
	assert.Len(t, s.Notes(), 1, "create must not add an optimistic record")

	remote.push()
	list := latest(t, sub)
	require.Len(t, list, 2)
	got := list[1]
	assert.Equal(t, note.ID, got.ID)
	assert.True(t, got.CreatedAt.Equal(got.UpdatedAt))
	assert.Equal(t, 2, got.DisplayID)
}

func TestCreateRemoteFailure(t *testing.T) {
	remote := &fakeRemote{createErr: errors.New("offline")}
	s, _ := newStore(t, remote)

	_, err := s.Create(context.Background(), models.Draft{Lesson: "l", Mistake: "m", Correction: "c"})
	var ru *models.RemoteUnavailableError
	require.ErrorAs(t, err, &ru)
	assert.Equal(t, "create", ru.Op)
	assert.Empty(t, s.Notes())
}

func TestUpdateUnknownID(t *testing.T) {
	s, _ := newStore(t, &fakeRemote{})

	err := s.Update(context.Background(), "nope", models.Patch{})
	assert.ErrorIs(t, err, models.ErrNoteNotFound)
	var nf *models.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestUpdateMergesAndRefreshes(t *testing.T) {
	remote := &fakeRemote{}
	remote.seed(mkDoc("a", 1))
	s, _ := newStore(t, remote)

	lesson := "renamed"
	require.NoError(t, s.Update(context.Background(), "a", models.Patch{Lesson: &lesson}))

	require.Len(t, remote.updates, 1)
	doc := remote.updates[0]
	assert.Equal(t, "renamed", doc.Lesson)
	assert.Equal(t, "m", doc.Mistake)
	assert.True(t, doc.CreatedAt.Equal(base.Add(time.Minute)))
	assert.True(t, doc.UpdatedAt.After(doc.CreatedAt.Time))
}

func TestUpdateRejectsEmptyRequiredField(t *testing.T) {
	remote := &fakeRemote{}
	remote.seed(mkDoc("a", 1))
	s, _ := newStore(t, remote)

	empty := ""
	err := s.Update(context.Background(), "a", models.Patch{Correction: &empty})
	var ve *models.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Empty(t, remote.updates)
}

func TestSequentialUpdatesDoNotLoseFields(t *testing.T) {
	remote := &fakeRemote{}
	remote.seed(mkDoc("a", 1))
	s, _ := newStore(t, remote)
	ctx := context.Background()

	lesson := "L2"
	source := "textbook"
	require.NoError(t, s.Update(ctx, "a", models.Patch{Lesson: &lesson}))
	require.NoError(t, s.Update(ctx, "a", models.Patch{Source: &source}))

	last := remote.updates[len(remote.updates)-1]
	assert.Equal(t, "L2", last.Lesson)
	assert.Equal(t, "textbook", last.Source)
}

func TestConcurrentUpdatesAreSerialized(t *testing.T) {
	remote := &fakeRemote{}
	remote.seed(mkDoc("a", 1))
	s, _ := newStore(t, remote)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		items := []string{strconv.Itoa(i)}
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Update(ctx, "a", models.Patch{Errors: &items}))
		}()
	}
	wg.Wait()

	require.Len(t, remote.updates, 10)
	for i := 1; i < len(remote.updates); i++ {
		assert.True(t, remote.updates[i].UpdatedAt.After(remote.updates[i-1].UpdatedAt.Time))
	}
}

func TestDeleteIsOptimistic(t *testing.T) {
	remote := &fakeRemote{deleteGate: make(chan struct{})}
	remote.seed(mkDoc("a", 1), mkDoc("b", 2), mkDoc("c", 3))
	s, sub := newStore(t, remote)
	latest(t, sub)

	p, err := s.Delete(context.Background(), "b")
	require.NoError(t, err)

	list := latest(t, sub)
	assert.Equal(t, []string{"a", "c"}, ids(list))
	assert.Equal(t, []int{1, 2}, displayIDs(list))
	assert.Nil(t, p.Err())

	close(remote.deleteGate)
	require.NoError(t, p.Wait(context.Background()))
	assert.Equal(t, []string{"a", "c"}, ids(s.Notes()))
}

func TestDeleteFailureRestoresExactList(t *testing.T) {
	remote := &fakeRemote{deleteErr: errors.New("permission denied")}
	remote.seed(mkDoc("a", 1), mkDoc("b", 2), mkDoc("c", 3))
	s, _ := newStore(t, remote)
	before := s.Notes()

	p, err := s.Delete(context.Background(), "a")
	require.NoError(t, err)

	err = p.Wait(context.Background())
	var ru *models.RemoteUnavailableError
	require.ErrorAs(t, err, &ru)
	assert.Equal(t, "delete", ru.Op)
	assert.Equal(t, before, s.Notes())
}

func TestDeleteFailureAfterSnapshotTrustsSnapshot(t *testing.T) {
	remote := &fakeRemote{deleteGate: make(chan struct{}), deleteErr: errors.New("timeout")}
	remote.seed(mkDoc("a", 1), mkDoc("b", 2))
	s, _ := newStore(t, remote)

	p, err := s.Delete(context.Background(), "a")
	require.NoError(t, err)

	remote.set(func(f *fakeRemote) { f.docs = append(f.docs, mkDoc("c", 3)) })
	remote.push()
	assert.Equal(t, []string{"b", "c"}, ids(s.Notes()), "pending delete stays hidden")

	close(remote.deleteGate)
	require.Error(t, p.Wait(context.Background()))

	list := s.Notes()
	assert.Equal(t, []string{"a", "b", "c"}, ids(list))
	assert.Equal(t, []int{1, 2, 3}, displayIDs(list))
}

func TestDeletedNoteStaysHiddenFromStaleSnapshot(t *testing.T) {
	remote := &fakeRemote{}
	remote.seed(mkDoc("a", 1), mkDoc("b", 2))
	s, _ := newStore(t, remote)

	p, err := s.Delete(context.Background(), "a")
	require.NoError(t, err)
	require.NoError(t, p.Wait(context.Background()))

	s.applySnapshot(user, []models.Document{mkDoc("a", 1), mkDoc("b", 2)})
	assert.Equal(t, []string{"b"}, ids(s.Notes()))
}

func TestSnapshotDropsUndatedDocuments(t *testing.T) {
	s, _ := newStore(t, &fakeRemote{})
	undated := mkDoc("x", 0)
	undated.CreatedAt = models.Timestamp{}
	undated.UpdatedAt = models.Timestamp{}

	s.applySnapshot(user, []models.Document{mkDoc("a", 1), undated, mkDoc("b", 2)})
	assert.Equal(t, []string{"a", "b"}, ids(s.Notes()))
}

func TestDeleteUnknownID(t *testing.T) {
	s, _ := newStore(t, &fakeRemote{})
	_, err := s.Delete(context.Background(), "ghost")
	assert.ErrorIs(t, err, models.ErrNoteNotFound)
}

func TestStopReleasesRemoteSubscription(t *testing.T) {
	remote := &fakeRemote{}
	s := New(remote, Session{UserID: user})
	sub, err := s.Subscribe(context.Background(), "")
	require.NoError(t, err)

	sub.Stop()
	sub.Stop()
	assert.Equal(t, 1, remote.stopped)

	_, open := <-sub.C()
	for open {
		_, open = <-sub.C()
	}
	remote.push()
	assert.Empty(t, s.subs)
}

func TestFind(t *testing.T) {
	remote := &fakeRemote{}
	remote.seed(mkDoc("abcdef-1", 1), mkDoc("abcdef-2", 2), mkDoc("zzzzzz-3", 3))
	s, _ := newStore(t, remote)

	_, err := s.Find("abc")
	assert.ErrorIs(t, err, models.ErrPrefixTooShort)

	_, err = s.Find("abcdef")
	assert.ErrorIs(t, err, models.ErrAmbiguousPrefix)

	n, err := s.Find("zzzzzz")
	require.NoError(t, err)
	assert.Equal(t, "zzzzzz-3", n.ID)

	n, err = s.Find("abcdef-2")
	require.NoError(t, err)
	assert.Equal(t, 2, n.DisplayID)

	_, err = s.Find("qqqqqq")
	assert.ErrorIs(t, err, models.ErrNoteNotFound)
}
