package monitoring

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/isdelr/pollboard/internal/services"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Scheduler runs the periodic maintenance jobs: vote tally snapshots written
// to the event log, and pruning of events past the retention window.
type Scheduler struct {
	cron      *cron.Cron
	statsSvc  services.StatsServiceProvider
	eventSvc  services.EventServiceProvider
	retention time.Duration

	mu        sync.Mutex
	lastVotes int64
	hasLast   bool
}

// NewScheduler creates a scheduler. Both specs accept standard cron syntax and
// descriptors such as "@every 5m" or "@daily".
func NewScheduler(tallySpec, pruneSpec string, retention time.Duration, statsSvc services.StatsServiceProvider, eventSvc services.EventServiceProvider) (*Scheduler, error) {
	s := &Scheduler{
		cron:      cron.New(),
		statsSvc:  statsSvc,
		eventSvc:  eventSvc,
		retention: retention,
	}

	if _, err := s.cron.AddFunc(tallySpec, s.snapshotTally); err != nil {
		return nil, fmt.Errorf("invalid tally schedule %q: %w", tallySpec, err)
	}
	if _, err := s.cron.AddFunc(pruneSpec, s.pruneEvents); err != nil {
		return nil, fmt.Errorf("invalid event prune schedule %q: %w", pruneSpec, err)
	}
	return s, nil
}

// Run starts the scheduler in the background.
func (s *Scheduler) Run() {
	log.Info().Int("jobs", len(s.cron.Entries())).Msg("Starting background scheduler...")
	s.cron.Start()
}

// Stop halts the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Info().Msg("Stopped background scheduler.")
}

// snapshotTally records the current vote totals when they changed since the last snapshot.
func (s *Scheduler) snapshotTally() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	totals, err := s.statsSvc.GetTotals(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Scheduler: Failed to compute totals")
		return
	}

	s.mu.Lock()
	unchanged := s.hasLast && s.lastVotes == totals.Votes
	s.lastVotes, s.hasLast = totals.Votes, true
	s.mu.Unlock()
	if unchanged {
		return
	}

	msg := fmt.Sprintf("%d votes across %d options in %d polls.", totals.Votes, totals.Options, totals.Polls)
	if err := s.eventSvc.CreateEvent(ctx, services.EventPollTally, "info", msg, nil); err != nil {
		log.Error().Err(err).Msg("Scheduler: Failed to record tally snapshot")
	}
}

// pruneEvents removes events older than the retention window.
func (s *Scheduler) pruneEvents() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	removed, err := s.eventSvc.PruneEvents(ctx, time.Now().Add(-s.retention))
	if err != nil {
		log.Error().Err(err).Msg("Scheduler: Failed to prune events")
		return
	}
	if removed > 0 {
		log.Info().Int64("removed", removed).Msg("Scheduler: Pruned old events")
	}
}
