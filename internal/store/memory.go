package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chadiek/interview-demo/internal/interview"
)

// Store is the full session persistence surface: the orchestrator-facing
// interview.SessionStore plus the lookups the HTTP layer needs.
type Store interface {
	interview.SessionStore
	Get(ctx context.Context, id string) (SessionRow, error)
	Update(ctx context.Context, id string, patch map[string]any) error
}

// MemoryStore keeps sessions in process. Used when Supabase is not
// configured and in tests.
type MemoryStore struct {
	mu   sync.Mutex
	rows map[string]SessionRow
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string]SessionRow)}
}

func (m *MemoryStore) CreateSession(ctx context.Context, roomURL, transcript string) (string, error) {
	now := time.Now().UTC()
	row := SessionRow{
		ID:         uuid.NewString(),
		RoomURL:    roomURL,
		Status:     StatusActive,
		Transcript: transcript,
		Responses:  []interview.ResponseRecord{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	m.mu.Lock()
	m.rows[row.ID] = row
	m.mu.Unlock()
	return row.ID, nil
}

func (m *MemoryStore) AppendResponse(ctx context.Context, id string, rec interview.ResponseRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return ErrNotFound
	}
	row.Responses = append(row.Responses, rec)
	row.UpdatedAt = time.Now().UTC()
	m.rows[id] = row
	return nil
}

func (m *MemoryStore) Finalize(ctx context.Context, id, transcript string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return ErrNotFound
	}
	row.Status = StatusCompleted
	row.Transcript = transcript
	row.UpdatedAt = time.Now().UTC()
	m.rows[id] = row
	return nil
}

func (m *MemoryStore) SaveScoring(ctx context.Context, id string, result interview.ScoringResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return ErrNotFound
	}
	row.Status = StatusScored
	row.Scoring = &result
	row.UpdatedAt = time.Now().UTC()
	m.rows[id] = row
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (SessionRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return SessionRow{}, ErrNotFound
	}
	return row, nil
}

func (m *MemoryStore) Update(ctx context.Context, id string, patch map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return ErrNotFound
	}
	if v, ok := patch["status"].(string); ok {
		row.Status = v
	}
	if v, ok := patch["transcript"].(string); ok {
		row.Transcript = v
	}
	if v, ok := patch["room_url"].(string); ok {
		row.RoomURL = v
	}
	row.UpdatedAt = time.Now().UTC()
	m.rows[id] = row
	return nil
}
