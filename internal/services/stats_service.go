package services

import (
	"context"
	"database/sql"

	"github.com/isdelr/pollboard/internal/models"
)

// StatsServiceProvider defines the interface for store-wide statistics.
type StatsServiceProvider interface {
	GetTotals(ctx context.Context) (models.Totals, error)
}

// StatsService computes aggregate counts over the store.
type StatsService struct {
	db *sql.DB
}

// NewStatsService creates a new StatsService.
func NewStatsService(db *sql.DB) *StatsService {
	return &StatsService{db: db}
}

// GetTotals counts users, polls, options and votes.
func (s *StatsService) GetTotals(ctx context.Context) (models.Totals, error) {
	const query = `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM polls),
			(SELECT COUNT(*) FROM poll_options),
			(SELECT COALESCE(SUM(votes), 0) FROM poll_options)`
	var t models.Totals
	err := s.db.QueryRowContext(ctx, query).Scan(&t.Users, &t.Polls, &t.Options, &t.Votes)
	return t, err
}
