package store

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"gramaalert-be/models"
	"gramaalert-be/session"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

type fakeBlobs struct {
	mu      sync.Mutex
	keys    []string
	failing bool
}

func (f *fakeBlobs) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	if f.failing {
		return "", errors.New("bucket unavailable")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, key)
	return key, nil
}

func (f *fakeBlobs) URL(ctx context.Context, ref string) (string, error) {
	return "https://cdn.example.com/" + ref, nil
}

type statusChange struct {
	email    string
	id       string
	old, new models.IssueStatus
}

type fakeNotifier struct {
	mu          sync.Mutex
	submissions []string
	changes     []statusChange
}

func (f *fakeNotifier) NotifySubmission(email string, issue models.Issue, id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submissions = append(f.submissions, id)
}

func (f *fakeNotifier) NotifyStatusChange(email string, issue models.Issue, id string, oldStatus, newStatus models.IssueStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changes = append(f.changes, statusChange{email: email, id: id, old: oldStatus, new: newStatus})
}

func (f *fakeNotifier) changeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.changes)
}

var (
	verified   = session.Session{State: session.SignedInVerified, UID: "u1", Email: "ravi@example.com", Role: models.RoleCitizen}
	unverified = session.Session{State: session.SignedInUnverified, UID: "u2", Email: "new@example.com"}
)

func newTestStore(t *testing.T) (*IssueStore, *MemoryBackend, *fakeBlobs, *fakeNotifier) {
	t.Helper()
	backend := NewMemoryBackend()
	blobs := &fakeBlobs{}
	notifier := &fakeNotifier{}
	s := NewIssueStore(backend, blobs, notifier, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, s.Start(ctx))
	return s, backend, blobs, notifier
}

func waitForIssue(t *testing.T, s *IssueStore, id string, cond func(models.Issue) bool) models.Issue {
	t.Helper()
	var got models.Issue
	require.Eventually(t, func() bool {
		is, ok := s.Get(id)
		if !ok || !cond(is) {
			return false
		}
		got = is
		return true
	}, time.Second, 5*time.Millisecond)
	return got
}

func TestSubmit_UnverifiedWritesNothing(t *testing.T) {
	s, backend, blobs, notifier := newTestStore(t)

	img := &Image{Filename: "a.jpg", Size: 3, Body: strings.NewReader("abc")}
	_, err := s.Submit(context.Background(), unverified, models.IssueDraft{Title: "t", Description: "d"}, img)
	require.ErrorIs(t, err, ErrUnverified)

	_, err = s.Submit(context.Background(), session.Session{}, models.IssueDraft{Title: "t", Description: "d"}, nil)
	require.ErrorIs(t, err, ErrNotSignedIn)

	require.Empty(t, blobs.keys)
	require.Empty(t, backend.issues)
	require.Empty(t, notifier.submissions)
	require.Zero(t, s.Stats().Total)
}

func TestSubmit_ClassifiesAndNotifies(t *testing.T) {
	s, _, _, notifier := newTestStore(t)
	fixed := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	id, err := s.Submit(context.Background(), verified, models.IssueDraft{
		Title:       "Street light out",
		Description: "the light near temple has no electricity for 3 days",
		Location:    "Temple Street, Near Hanuman Temple",
	}, nil)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	is := waitForIssue(t, s, id, func(models.Issue) bool { return true })
	require.Equal(t, models.Electricity, is.Category)
	require.Equal(t, "Electrical infrastructure issue affecting community services", is.AISummary)
	require.Equal(t, models.Pending, is.Status)
	require.Equal(t, "ravi@example.com", is.ReportedBy)
	require.Equal(t, "u1", is.ReportedByUID)
	require.Equal(t, fixed, is.ReportedAt)
	require.Equal(t, fixed, is.UpdatedAt)
	require.Nil(t, is.ImageURL)
	require.Equal(t, []string{id}, notifier.submissions)
}

func TestSubmit_ExplicitCategoryKept(t *testing.T) {
	s, _, _, _ := newTestStore(t)

	id, err := s.Submit(context.Background(), verified, models.IssueDraft{
		Title: "Pipe", Description: "water pipe burst", Category: models.Other,
	}, nil)
	require.NoError(t, err)
	is := waitForIssue(t, s, id, func(models.Issue) bool { return true })
	require.Equal(t, models.Other, is.Category)
	require.Equal(t, "Water supply disruption reported affecting local infrastructure", is.AISummary)

	_, err = s.Submit(context.Background(), verified, models.IssueDraft{Title: "x", Description: "y", Category: "parks"}, nil)
	require.ErrorIs(t, err, ErrInvalidDraft)
}

func TestSubmit_ImageUploadedFirst(t *testing.T) {
	s, backend, blobs, _ := newTestStore(t)
	s.now = func() time.Time { return time.UnixMilli(1700000000000) }

	id, err := s.Submit(context.Background(), verified, models.IssueDraft{Title: "Dump", Description: "garbage pile"},
		&Image{Filename: "pile photo.jpg", ContentType: "image/jpeg", Size: 4, Body: bytes.NewReader([]byte("jpeg"))})
	require.NoError(t, err)
	require.Equal(t, []string{"issues/1700000000000_pile_photo.jpg"}, blobs.keys)

	is := waitForIssue(t, s, id, func(models.Issue) bool { return true })
	require.NotNil(t, is.ImageURL)
	require.Equal(t, "https://cdn.example.com/issues/1700000000000_pile_photo.jpg", *is.ImageURL)

	blobs.failing = true
	_, err = s.Submit(context.Background(), verified, models.IssueDraft{Title: "Dump", Description: "garbage"},
		&Image{Filename: "b.jpg", Size: 1, Body: strings.NewReader("x")})
	require.ErrorIs(t, err, ErrUploadFailed)
	require.Len(t, backend.issues, 1)
}

func TestUpdateStatus_NotifiesOnlyOnChange(t *testing.T) {
	s, _, _, notifier := newTestStore(t)
	ctx := context.Background()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return t0 }

	id, err := s.Submit(ctx, verified, models.IssueDraft{Title: "Pothole", Description: "pothole on main road"}, nil)
	require.NoError(t, err)
	waitForIssue(t, s, id, func(models.Issue) bool { return true })

	t1 := t0.Add(time.Hour)
	s.now = func() time.Time { return t1 }
	require.NoError(t, s.UpdateStatus(ctx, verified, id, models.Pending, "checked"))
	is := waitForIssue(t, s, id, func(is models.Issue) bool { return is.UpdatedAt.Equal(t1) })
	require.Equal(t, models.Pending, is.Status)
	require.Equal(t, "checked", *is.ResolutionNote)
	require.Zero(t, notifier.changeCount())

	t2 := t1.Add(time.Hour)
	s.now = func() time.Time { return t2 }
	require.NoError(t, s.UpdateStatus(ctx, verified, id, models.Resolved, "filled"))
	waitForIssue(t, s, id, func(is models.Issue) bool { return is.Status == models.Resolved })
	require.Equal(t, 1, notifier.changeCount())
	require.Equal(t, statusChange{email: "ravi@example.com", id: id, old: models.Pending, new: models.Resolved}, notifier.changes[0])

	// Resolved back to pending is allowed.
	require.NoError(t, s.UpdateStatus(ctx, verified, id, models.Pending, ""))
	waitForIssue(t, s, id, func(is models.Issue) bool { return is.Status == models.Pending })
	require.Equal(t, 2, notifier.changeCount())
}

func TestUpdateStatus_Rejections(t *testing.T) {
	s, _, _, _ := newTestStore(t)
	ctx := context.Background()

	require.ErrorIs(t, s.UpdateStatus(ctx, unverified, "x", models.Resolved, ""), ErrUnverified)
	require.ErrorIs(t, s.UpdateStatus(ctx, verified, "x", "closed", ""), ErrInvalidStatus)
	require.ErrorIs(t, s.UpdateStatus(ctx, verified, "missing", models.Resolved, ""), ErrNotFound)
}

func seedIssues(t *testing.T, backend *MemoryBackend) {
	t.Helper()
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	for i, is := range []models.Issue{
		{Title: "a", Category: models.Water, Status: models.Pending, ReportedAt: base},
		{Title: "b", Category: models.Road, Status: models.Resolved, ReportedAt: base.Add(2 * time.Hour)},
		{Title: "c", Category: models.Water, Status: models.Resolved, ReportedAt: base.Add(time.Hour)},
		{Title: "d", Category: models.Garbage, Status: models.InProgress, ReportedAt: base.Add(3 * time.Hour)},
	} {
		_, err := backend.Insert(context.Background(), is)
		require.NoError(t, err, "seed %d", i)
	}
}

func titles(issues []models.Issue) []string {
	out := make([]string, 0, len(issues))
	for _, is := range issues {
		out = append(out, is.Title)
	}
	return out
}

func TestFilteredSorted(t *testing.T) {
	backend := NewMemoryBackend()
	seedIssues(t, backend)
	s := NewIssueStore(backend, nil, &fakeNotifier{}, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Start(ctx))

	all, err := s.FilteredSorted(models.MatchAll, models.MatchAll)
	require.NoError(t, err)
	require.Equal(t, []string{"d", "b", "c", "a"}, titles(all))

	resolved, err := s.FilteredSorted("resolved", "")
	require.NoError(t, err)
	require.Equal(t, []string{"b", "c"}, titles(resolved))

	water, err := s.FilteredSorted("all", "water")
	require.NoError(t, err)
	require.Equal(t, []string{"c", "a"}, titles(water))

	both, err := s.FilteredSorted("resolved", "water")
	require.NoError(t, err)
	require.Equal(t, []string{"c"}, titles(both))

	none, err := s.FilteredSorted("pending", "road")
	require.NoError(t, err)
	require.Empty(t, none)

	_, err = s.FilteredSorted("closed", "all")
	require.ErrorIs(t, err, ErrInvalidFilter)

	// Callers get their own slice.
	all[0].Title = "mutated"
	again, _ := s.FilteredSorted("", "")
	require.Equal(t, "d", again[0].Title)

	st := s.Stats()
	require.Equal(t, 4, st.Total)
	require.Equal(t, 2, st.ByStatus[models.Resolved])
	require.Equal(t, 0, st.ByCategory[models.Electricity])
	require.Equal(t, 2, st.ByCategory[models.Water])
}

func TestWatch_SignalsOnChange(t *testing.T) {
	s, _, _, _ := newTestStore(t)
	ch, cancel := s.Watch()
	defer cancel()

	_, err := s.Submit(context.Background(), verified, models.IssueDraft{Title: "Tap", Description: "tap leaking"}, nil)
	require.NoError(t, err)

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("no change signal")
	}
}

func TestExportXLSX(t *testing.T) {
	note := "fixed"
	data, err := ExportXLSX([]models.Issue{
		{ID: "1", Title: "Pothole", Category: models.Road, Status: models.Resolved, ResolutionNote: &note},
	})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(exportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "Title", rows[0][1])
	require.Equal(t, "Pothole", rows[1][1])
	require.Equal(t, "resolved", rows[1][3])
	require.Equal(t, "fixed", rows[1][9])
}
