package ports

import (
	"context"

	"github.com/hivekeeper/core/internal/domain/entities"
)

// KeyValueRepository defines the interface for the local key-value storage
// facility the journal persists into. Get returns entities.ErrStateNotFound
// semantics via the typed repositories built on top of it.
type KeyValueRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// StateRepository defines the interface for loading and storing the aggregate
// journal state as a single blob.
type StateRepository interface {
	// Load returns entities.ErrStateNotFound when no state has been persisted
	// yet (first run).
	Load(ctx context.Context) (*entities.AppState, error)
	// Save persists the entire aggregate state, replacing any previous blob.
	Save(ctx context.Context, state *entities.AppState) error
}

// SessionRepository defines the interface for the mock auth module's
// local-only session storage. It is deliberately separate from the journal
// state blob.
type SessionRepository interface {
	// LoadSession returns entities.ErrSessionNotFound when signed out.
	LoadSession(ctx context.Context) (*entities.Session, error)
	SaveSession(ctx context.Context, session *entities.Session) error
	ClearSession(ctx context.Context) error
}
