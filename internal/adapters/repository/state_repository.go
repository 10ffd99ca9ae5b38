package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hivekeeper/core/internal/domain/entities"
	"github.com/hivekeeper/core/internal/ports"
)

// StateRepository implements ports.StateRepository on top of any key-value
// repository: the whole aggregate state is one JSON blob under a single key.
type StateRepository struct {
	kv  ports.KeyValueRepository
	key string
}

// NewStateRepository creates a state repository storing under the given key.
func NewStateRepository(kv ports.KeyValueRepository, key string) *StateRepository {
	return &StateRepository{kv: kv, key: key}
}

// Load reads and deserializes the state blob. Returns
// entities.ErrStateNotFound on first run.
func (r *StateRepository) Load(ctx context.Context) (*entities.AppState, error) {
	raw, err := r.kv.Get(ctx, r.key)
	if errors.Is(err, ErrKeyNotFound) {
		return nil, entities.ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}

	var state entities.AppState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("failed to decode state: %w", err)
	}
	return &state, nil
}

// Save serializes and stores the entire state, replacing the previous blob.
func (r *StateRepository) Save(ctx context.Context, state *entities.AppState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	if err := r.kv.Set(ctx, r.key, raw); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}
