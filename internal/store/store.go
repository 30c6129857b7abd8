package store

import (
	"context"

	"github.com/nulzo/vision-grader/internal/store/model"
)

// Repository is the main contract for the data layer.
type Repository interface {
	Calls() CallRepository

	// transaction support
	WithTx(ctx context.Context, fn func(repo Repository) error) error

	Close() error
}

type CallRepository interface {
	// Log stores a finished engine call.
	Log(ctx context.Context, log *model.CallLog) error
	GetByID(ctx context.Context, id string) (*model.CallLog, error)
	// GetRecent returns the last N calls, optionally for one slot only.
	GetRecent(ctx context.Context, slot string, limit int) ([]model.CallLog, error)
	// GetStats aggregates the last N days per slot and provider.
	GetStats(ctx context.Context, days int) ([]model.SlotStats, error)
}
