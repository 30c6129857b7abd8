package analytics

import (
	"context"

	"github.com/nulzo/vision-grader/internal/store"
	"github.com/nulzo/vision-grader/internal/store/model"
)

const (
	defaultRecentLimit = 50
	maxRecentLimit     = 500
	defaultStatsDays   = 7
)

type Service interface {
	RecentCalls(ctx context.Context, slot string, limit int) ([]model.CallLog, error)
	SlotStats(ctx context.Context, days int) ([]model.SlotStats, error)
}

type service struct {
	repo store.Repository
}

func NewService(repo store.Repository) Service {
	return &service{
		repo: repo,
	}
}

func (s *service) RecentCalls(ctx context.Context, slot string, limit int) ([]model.CallLog, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}
	return s.repo.Calls().GetRecent(ctx, slot, limit)
}

func (s *service) SlotStats(ctx context.Context, days int) ([]model.SlotStats, error) {
	if days <= 0 {
		days = defaultStatsDays // default to last week
	}
	return s.repo.Calls().GetStats(ctx, days)
}
