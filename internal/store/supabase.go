package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/supabase-community/supabase-go"

	"github.com/chadiek/interview-demo/internal/interview"
)

const sessionsTable = "interview_sessions"

// ErrNotFound is returned for lookups of unknown session ids.
var ErrNotFound = errors.New("session not found")

// Session lifecycle statuses.
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusScored    = "scored"
)

// SessionRow is the persisted shape of one interview session.
type SessionRow struct {
	ID         string                     `json:"id"`
	RoomURL    string                     `json:"room_url,omitempty"`
	Status     string                     `json:"status"`
	Transcript string                     `json:"transcript"`
	Responses  []interview.ResponseRecord `json:"responses"`
	Scoring    *interview.ScoringResult   `json:"scoring,omitempty"`
	CreatedAt  time.Time                  `json:"created_at"`
	UpdatedAt  time.Time                  `json:"updated_at"`
}

// SupabaseStore persists sessions through PostgREST. It implements
// interview.SessionStore; every method failure is tolerable to the caller,
// so errors are wrapped with enough context to log and move on.
type SupabaseStore struct {
	client *supabase.Client
	// appendMu serializes the read-modify-write on the responses array so
	// concurrent appends cannot overwrite each other.
	appendMu sync.Mutex
}

func NewSupabaseStore(url, key string) (*SupabaseStore, error) {
	client, err := supabase.NewClient(url, key, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("supabase client: %w", err)
	}
	return &SupabaseStore{client: client}, nil
}

// CreateSession inserts a fresh active session and returns its id. Ids are
// generated client side so a slow insert cannot hold up the interview loop.
func (s *SupabaseStore) CreateSession(ctx context.Context, roomURL, transcript string) (string, error) {
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
	_, _, err := s.client.From(sessionsTable).Insert(row, false, "", "representation", "").Execute()
	if err != nil {
		return "", fmt.Errorf("insert session: %w", err)
	}
	return row.ID, nil
}

// AppendResponse adds one response to the session's response list.
func (s *SupabaseStore) AppendResponse(ctx context.Context, id string, rec interview.ResponseRecord) error {
	s.appendMu.Lock()
	defer s.appendMu.Unlock()
	row, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	patch := map[string]any{
		"responses":  append(row.Responses, rec),
		"updated_at": time.Now().UTC(),
	}
	return s.update(id, patch)
}

// Finalize marks the session completed with its full transcript.
func (s *SupabaseStore) Finalize(ctx context.Context, id, transcript string) error {
	return s.update(id, map[string]any{
		"status":     StatusCompleted,
		"transcript": transcript,
		"updated_at": time.Now().UTC(),
	})
}

// SaveScoring attaches the terminal scoring result and marks the session
// scored.
func (s *SupabaseStore) SaveScoring(ctx context.Context, id string, result interview.ScoringResult) error {
	return s.update(id, map[string]any{
		"status":     StatusScored,
		"scoring":    result,
		"updated_at": time.Now().UTC(),
	})
}

// Get fetches one session row.
func (s *SupabaseStore) Get(ctx context.Context, id string) (SessionRow, error) {
	data, _, err := s.client.From(sessionsTable).Select("*", "exact", false).Eq("id", id).Execute()
	if err != nil {
		return SessionRow{}, fmt.Errorf("select session %s: %w", id, err)
	}
	var rows []SessionRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return SessionRow{}, fmt.Errorf("decode session %s: %w", id, err)
	}
	if len(rows) == 0 {
		return SessionRow{}, ErrNotFound
	}
	return rows[0], nil
}

// Update applies an arbitrary field patch, for the session PATCH endpoint.
func (s *SupabaseStore) Update(ctx context.Context, id string, patch map[string]any) error {
	if len(patch) == 0 {
		return nil
	}
	patch["updated_at"] = time.Now().UTC()
	return s.update(id, patch)
}

func (s *SupabaseStore) update(id string, patch map[string]any) error {
	_, _, err := s.client.From(sessionsTable).Update(patch, "representation", "").Eq("id", id).Execute()
	if err != nil {
		return fmt.Errorf("update session %s: %w", id, err)
	}
	return nil
}
