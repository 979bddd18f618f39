// Package store keeps the live issue mapping and exposes the issue
// lifecycle operations: submission, status updates and filtered views.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"gramaalert-be/classifier"
	"gramaalert-be/metrics"
	"gramaalert-be/models"
	"gramaalert-be/session"
	"gramaalert-be/storage"

	"go.uber.org/zap"
)

var (
	ErrNotSignedIn   = errors.New("please login to report an issue")
	ErrUnverified    = errors.New("please verify your email address before reporting issues")
	ErrInvalidDraft  = errors.New("title and description are required")
	ErrInvalidStatus = errors.New("invalid status")
	ErrInvalidFilter = errors.New("invalid filter")
	ErrUploadFailed  = errors.New("image upload failed")
	ErrNotStarted    = errors.New("issue store is not running")
)

// Notifier is the best-effort email side of the lifecycle.
type Notifier interface {
	NotifySubmission(email string, issue models.Issue, id string)
	NotifyStatusChange(email string, issue models.Issue, id string, oldStatus, newStatus models.IssueStatus)
}

// Image is an optional photo attached to a submission.
type Image struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Stats summarizes the mapping for the dashboard.
type Stats struct {
	Total      int                          `json:"total"`
	ByStatus   map[models.IssueStatus]int   `json:"byStatus"`
	ByCategory map[models.IssueCategory]int `json:"byCategory"`
}

type IssueStore struct {
	backend  Backend
	blobs    storage.BlobStore
	notifier Notifier
	log      *zap.Logger
	now      func() time.Time

	mu      sync.RWMutex
	issues  map[string]models.Issue
	started bool

	watchMu  sync.Mutex
	watchers map[chan struct{}]struct{}
}

func NewIssueStore(backend Backend, blobs storage.BlobStore, notifier Notifier, log *zap.Logger) *IssueStore {
	return &IssueStore{
		backend:  backend,
		blobs:    blobs,
		notifier: notifier,
		log:      log,
		now:      time.Now,
		issues:   make(map[string]models.Issue),
		watchers: make(map[chan struct{}]struct{}),
	}
}

// Start opens the standing subscription. The first snapshot is applied
// before Start returns; later pushes are applied by a background goroutine
// until ctx is done.
func (s *IssueStore) Start(ctx context.Context) error {
	events, err := s.backend.Subscribe(ctx)
	if err != nil {
		return err
	}
	select {
	case ev, ok := <-events:
		if !ok {
			return ErrNotStarted
		}
		s.apply(ev)
	case <-ctx.Done():
		return ctx.Err()
	}

	s.mu.Lock()
	s.started = true
	s.mu.Unlock()

	go func() {
		for ev := range events {
			s.apply(ev)
		}
		s.mu.Lock()
		s.started = false
		s.mu.Unlock()
		s.log.Info("issue subscription closed")
	}()
	return nil
}

// apply is the only writer of the mapping.
func (s *IssueStore) apply(ev Event) {
	s.mu.Lock()
	if ev.Reset {
		s.issues = make(map[string]models.Issue, len(ev.Issues))
	}
	for _, is := range ev.Issues {
		s.issues[is.ID] = is
	}
	s.mu.Unlock()
	s.broadcast()
}

// Submit writes a new issue on behalf of a verified session. An attached
// image is uploaded first; if that fails nothing is written.
func (s *IssueStore) Submit(ctx context.Context, sess session.Session, draft models.IssueDraft, img *Image) (string, error) {
	if !sess.SignedIn() {
		return "", ErrNotSignedIn
	}
	if !sess.Verified() {
		return "", ErrUnverified
	}
	if draft.Title == "" || draft.Description == "" {
		return "", ErrInvalidDraft
	}
	if draft.Category != "" && !draft.Category.Valid() {
		return "", fmt.Errorf("%w: unknown category %q", ErrInvalidDraft, draft.Category)
	}

	var imageURL *string
	if img != nil && img.Size > 0 {
		u, err := s.upload(ctx, img)
		if err != nil {
			s.log.Error("Error uploading issue image", zap.String("uid", sess.UID), zap.Error(err))
			return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
		}
		imageURL = &u
	}

	category := draft.Category
	if category == "" {
		category = classifier.Category(draft.Description)
	}
	now := s.now().UTC()
	issue := models.Issue{
		Title:         draft.Title,
		Description:   draft.Description,
		Category:      category,
		Location:      draft.Location,
		Status:        models.Pending,
		ReportedBy:    sess.Email,
		ReportedByUID: sess.UID,
		ReportedAt:    now,
		UpdatedAt:     now,
		ImageURL:      imageURL,
		AISummary:     classifier.Summary(draft.Description),
	}

	id, err := s.backend.Insert(ctx, issue)
	if err != nil {
		s.log.Error("Error submitting issue", zap.String("uid", sess.UID), zap.Error(err))
		return "", err
	}
	issue.ID = id
	metrics.IssuesSubmitted.WithLabelValues(string(category)).Inc()
	s.log.Info("issue submitted", zap.String("issue_id", id), zap.String("category", string(category)))

	s.notifier.NotifySubmission(sess.Email, issue, id)
	return id, nil
}

func (s *IssueStore) upload(ctx context.Context, img *Image) (string, error) {
	if s.blobs == nil {
		return "", errors.New("image storage is not configured")
	}
	ref, err := s.blobs.Upload(ctx, storage.IssueImageKey(s.now(), img.Filename), img.Body, img.Size, img.ContentType)
	if err != nil {
		return "", err
	}
	return s.blobs.URL(ctx, ref)
}

// UpdateStatus rewrites status, note and updatedAt even when the status is
// unchanged; the reporter is emailed only when it actually changed. Any
// status may follow any other.
func (s *IssueStore) UpdateStatus(ctx context.Context, sess session.Session, id string, status models.IssueStatus, note string) error {
	if !sess.Verified() {
		return ErrUnverified
	}
	if !status.Valid() {
		return ErrInvalidStatus
	}
	current, ok := s.Get(id)
	if !ok {
		return ErrNotFound
	}
	oldStatus := current.Status

	upd := models.StatusUpdate{Status: status, ResolutionNote: note, UpdatedAt: s.now().UTC()}
	if err := s.backend.UpdateStatus(ctx, id, upd); err != nil {
		s.log.Error("Error updating issue", zap.String("issue_id", id), zap.Error(err))
		return err
	}

	changed := oldStatus != status
	metrics.StatusUpdates.WithLabelValues(fmt.Sprint(changed)).Inc()
	if changed {
		current.Status = status
		current.ResolutionNote = &note
		current.UpdatedAt = upd.UpdatedAt
		s.notifier.NotifyStatusChange(current.ReportedBy, current, id, oldStatus, status)
	}
	return nil
}

// Get reads one issue from the live mapping.
func (s *IssueStore) Get(id string) (models.Issue, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	is, ok := s.issues[id]
	return is, ok
}

// FilteredSorted returns the issues matching both filters, most recently
// reported first. Either filter may be models.MatchAll or empty.
func (s *IssueStore) FilteredSorted(statusFilter, categoryFilter string) ([]models.Issue, error) {
	if !matchAllFilter(statusFilter) && !models.IssueStatus(statusFilter).Valid() {
		return nil, fmt.Errorf("%w: status %q", ErrInvalidFilter, statusFilter)
	}
	if !matchAllFilter(categoryFilter) && !models.IssueCategory(categoryFilter).Valid() {
		return nil, fmt.Errorf("%w: category %q", ErrInvalidFilter, categoryFilter)
	}

	s.mu.RLock()
	out := make([]models.Issue, 0, len(s.issues))
	for _, is := range s.issues {
		if !matchAllFilter(statusFilter) && string(is.Status) != statusFilter {
			continue
		}
		if !matchAllFilter(categoryFilter) && string(is.Category) != categoryFilter {
			continue
		}
		out = append(out, is)
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].ReportedAt.Equal(out[j].ReportedAt) {
			return out[i].ReportedAt.After(out[j].ReportedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *IssueStore) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Stats{
		Total:      len(s.issues),
		ByStatus:   make(map[models.IssueStatus]int, len(models.Statuses)),
		ByCategory: make(map[models.IssueCategory]int, len(models.Categories)),
	}
	for _, v := range models.Statuses {
		st.ByStatus[v] = 0
	}
	for _, v := range models.Categories {
		st.ByCategory[v] = 0
	}
	for _, is := range s.issues {
		st.ByStatus[is.Status]++
		st.ByCategory[is.Category]++
	}
	return st
}

// Running reports whether the subscription is live.
func (s *IssueStore) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// Watch returns a channel signalled after every applied change. Signals
// coalesce: a slow reader sees one pending signal, not a backlog.
func (s *IssueStore) Watch() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	s.watchMu.Lock()
	s.watchers[ch] = struct{}{}
	s.watchMu.Unlock()
	return ch, func() {
		s.watchMu.Lock()
		delete(s.watchers, ch)
		s.watchMu.Unlock()
	}
}

func (s *IssueStore) broadcast() {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	for ch := range s.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func matchAllFilter(f string) bool {
	return f == "" || f == models.MatchAll
}
