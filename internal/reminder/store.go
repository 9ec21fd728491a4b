package reminder

import (
	"context"
	"errors"

	"github.com/sandeepkv93/streakly/internal/storage"
)

// StateStore is the durable flat key/value map holding schedule flags.
type StateStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
}

type repoState struct {
	repo storage.StateStore
}

// NewRepositoryState adapts the SQLite schedule_state table.
func NewRepositoryState(repo storage.StateStore) StateStore {
	return repoState{repo: repo}
}

func (s repoState) Get(ctx context.Context, key string) (string, bool, error) {
	entry, err := s.repo.GetState(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return entry.Value, true, nil
}

func (s repoState) Set(ctx context.Context, key, value string) error {
	return s.repo.SetState(ctx, key, value)
}

func (s repoState) Remove(ctx context.Context, key string) error {
	return s.repo.DeleteState(ctx, key)
}

func (s repoState) Keys(ctx context.Context, prefix string) ([]string, error) {
	return s.repo.ListStateKeys(ctx, prefix)
}
