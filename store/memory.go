package store

import (
	"context"
	"sync"

	"gramaalert-be/models"

	"github.com/google/uuid"
)

// MemoryBackend keeps issues in process and pushes changes to subscribers.
type MemoryBackend struct {
	mu     sync.Mutex
	issues map[string]models.Issue
	subs   map[chan Event]context.Context
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		issues: make(map[string]models.Issue),
		subs:   make(map[chan Event]context.Context),
	}
}

func (m *MemoryBackend) Insert(ctx context.Context, issue models.Issue) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	issue.ID = uuid.NewString()
	m.issues[issue.ID] = issue
	m.publish(Event{Issues: []models.Issue{issue}})
	return issue.ID, nil
}

func (m *MemoryBackend) UpdateStatus(ctx context.Context, id string, upd models.StatusUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	issue, ok := m.issues[id]
	if !ok {
		return ErrNotFound
	}
	note := upd.ResolutionNote
	issue.Status = upd.Status
	issue.ResolutionNote = &note
	issue.UpdatedAt = upd.UpdatedAt
	m.issues[id] = issue
	m.publish(Event{Issues: []models.Issue{issue}})
	return nil
}

func (m *MemoryBackend) Subscribe(ctx context.Context) (<-chan Event, error) {
	ch := make(chan Event, 16)

	m.mu.Lock()
	snapshot := make([]models.Issue, 0, len(m.issues))
	for _, is := range m.issues {
		snapshot = append(snapshot, is)
	}
	ch <- Event{Reset: true, Issues: snapshot}
	m.subs[ch] = ctx
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		delete(m.subs, ch)
		close(ch)
		m.mu.Unlock()
	}()
	return ch, nil
}

// publish must be called with m.mu held.
func (m *MemoryBackend) publish(ev Event) {
	for ch, ctx := range m.subs {
		select {
		case ch <- ev:
		case <-ctx.Done():
		}
	}
}
