package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hivekeeper/core/internal/domain/entities"
	"github.com/hivekeeper/core/internal/ports"
)

// SessionRepository implements ports.SessionRepository. The mock auth session
// lives under its own key, separate from the journal state blob.
type SessionRepository struct {
	kv  ports.KeyValueRepository
	key string
}

// NewSessionRepository creates a session repository storing under the given key.
func NewSessionRepository(kv ports.KeyValueRepository, key string) *SessionRepository {
	return &SessionRepository{kv: kv, key: key}
}

// LoadSession returns the stored session or entities.ErrSessionNotFound.
func (r *SessionRepository) LoadSession(ctx context.Context) (*entities.Session, error) {
	raw, err := r.kv.Get(ctx, r.key)
	if errors.Is(err, ErrKeyNotFound) {
		return nil, entities.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var session entities.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &session, nil
}

// SaveSession stores the session, replacing any previous one.
func (r *SessionRepository) SaveSession(ctx context.Context, session *entities.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := r.kv.Set(ctx, r.key, raw); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// ClearSession removes the stored session. Clearing an absent session is fine.
func (r *SessionRepository) ClearSession(ctx context.Context) error {
	return r.kv.Delete(ctx, r.key)
}
