package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/isdelr/pollboard/internal/models"
	"github.com/rs/zerolog/log"
)

// PollServiceProvider defines the interface for poll services.
type PollServiceProvider interface {
	GetAllPolls(ctx context.Context) ([]models.PollSummary, error)
	GetPollByID(ctx context.Context, id int64) (models.Poll, error)
	CreatePoll(ctx context.Context, question string, options []string) (models.Poll, error)
	UpdatePoll(ctx context.Context, id int64, question *string) (models.Poll, error)
	DeletePoll(ctx context.Context, id int64) error
	GetOptionByID(ctx context.Context, optionID int64) (models.PollOption, error)
	UpdateOption(ctx context.Context, optionID int64, optionText *string) (models.PollOption, error)
	DeleteOption(ctx context.Context, optionID int64) error
	Vote(ctx context.Context, pollID, optionID int64) (models.PollOption, error)
}

// TallyPublisher is notified with the current state of a poll after each vote.
type TallyPublisher interface {
	PublishTally(poll models.Poll)
}

// PollService provides business logic for polls and their options.
type PollService struct {
	db           *sql.DB
	eventService EventServiceProvider
	publisher    TallyPublisher
}

// NewPollService creates a new PollService. publisher may be nil.
func NewPollService(db *sql.DB, eventService EventServiceProvider, publisher TallyPublisher) *PollService {
	return &PollService{db: db, eventService: eventService, publisher: publisher}
}

// GetAllPolls retrieves every poll without its options.
func (s *PollService) GetAllPolls(ctx context.Context) ([]models.PollSummary, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, question FROM polls ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	polls := []models.PollSummary{}
	for rows.Next() {
		var p models.PollSummary
		if err := rows.Scan(&p.ID, &p.Question); err != nil {
			return nil, err
		}
		polls = append(polls, p)
	}
	return polls, rows.Err()
}

// GetPollByID retrieves a poll together with its options.
func (s *PollService) GetPollByID(ctx context.Context, id int64) (models.Poll, error) {
	var poll models.Poll
	err := s.db.QueryRowContext(ctx, "SELECT id, question FROM polls WHERE id = ?", id).Scan(&poll.ID, &poll.Question)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Poll{}, fmt.Errorf("poll %d: %w", id, ErrNotFound)
		}
		return models.Poll{}, err
	}

	rows, err := s.db.QueryContext(ctx, "SELECT id, poll_id, option_text, votes FROM poll_options WHERE poll_id = ? ORDER BY id", id)
	if err != nil {
		return models.Poll{}, err
	}
	defer rows.Close()

	poll.Options = []models.PollOption{}
	for rows.Next() {
		var opt models.PollOption
		if err := rows.Scan(&opt.ID, &opt.PollID, &opt.OptionText, &opt.Votes); err != nil {
			return models.Poll{}, err
		}
		poll.Options = append(poll.Options, opt)
	}
	return poll, rows.Err()
}

// CreatePoll inserts a poll and one zero-vote option per entry in a single transaction.
func (s *PollService) CreatePoll(ctx context.Context, question string, options []string) (models.Poll, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Poll{}, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "INSERT INTO polls (question) VALUES (?)", question)
	if err != nil {
		return models.Poll{}, fmt.Errorf("failed to insert poll: %w", err)
	}
	pollID, err := res.LastInsertId()
	if err != nil {
		return models.Poll{}, err
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO poll_options (poll_id, option_text, votes) VALUES (?, ?, 0)")
	if err != nil {
		return models.Poll{}, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, text := range options {
		if _, err := stmt.ExecContext(ctx, pollID, text); err != nil {
			return models.Poll{}, fmt.Errorf("failed to insert option: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return models.Poll{}, err
	}

	s.recordEvent(ctx, EventPollCreate, fmt.Sprintf("Poll '%s' created with %d options.", question, len(options)), pollID)
	return s.GetPollByID(ctx, pollID)
}

// UpdatePoll overwrites the question when one is given.
func (s *PollService) UpdatePoll(ctx context.Context, id int64, question *string) (models.Poll, error) {
	if question != nil {
		res, err := s.db.ExecContext(ctx, "UPDATE polls SET question = ? WHERE id = ?", *question, id)
		if err != nil {
			return models.Poll{}, err
		}
		if err := expectAffected(res, fmt.Sprintf("poll %d", id)); err != nil {
			return models.Poll{}, err
		}
	}
	return s.GetPollByID(ctx, id)
}

// DeletePoll removes a poll. Its options are removed by the foreign key cascade.
func (s *PollService) DeletePoll(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM polls WHERE id = ?", id)
	if err != nil {
		return err
	}
	if err := expectAffected(res, fmt.Sprintf("poll %d", id)); err != nil {
		return err
	}

	s.recordEvent(ctx, EventPollDelete, fmt.Sprintf("Poll %d deleted.", id), id)
	return nil
}

// GetOptionByID retrieves a single poll option.
func (s *PollService) GetOptionByID(ctx context.Context, optionID int64) (models.PollOption, error) {
	var opt models.PollOption
	err := s.db.QueryRowContext(ctx, "SELECT id, poll_id, option_text, votes FROM poll_options WHERE id = ?", optionID).
		Scan(&opt.ID, &opt.PollID, &opt.OptionText, &opt.Votes)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.PollOption{}, fmt.Errorf("poll option %d: %w", optionID, ErrNotFound)
		}
		return models.PollOption{}, err
	}
	return opt, nil
}

// UpdateOption overwrites an option's text when one is given.
func (s *PollService) UpdateOption(ctx context.Context, optionID int64, optionText *string) (models.PollOption, error) {
	if optionText != nil {
		res, err := s.db.ExecContext(ctx, "UPDATE poll_options SET option_text = ? WHERE id = ?", *optionText, optionID)
		if err != nil {
			return models.PollOption{}, err
		}
		if err := expectAffected(res, fmt.Sprintf("poll option %d", optionID)); err != nil {
			return models.PollOption{}, err
		}
	}
	return s.GetOptionByID(ctx, optionID)
}

// DeleteOption removes a single option.
func (s *PollService) DeleteOption(ctx context.Context, optionID int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM poll_options WHERE id = ?", optionID)
	if err != nil {
		return err
	}
	return expectAffected(res, fmt.Sprintf("poll option %d", optionID))
}

// Vote adds one vote to the option. The option must belong to pollID.
func (s *PollService) Vote(ctx context.Context, pollID, optionID int64) (models.PollOption, error) {
	var opt models.PollOption
	err := s.db.QueryRowContext(ctx,
		"UPDATE poll_options SET votes = votes + 1 WHERE id = ? AND poll_id = ? RETURNING id, poll_id, option_text, votes",
		optionID, pollID).Scan(&opt.ID, &opt.PollID, &opt.OptionText, &opt.Votes)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.PollOption{}, fmt.Errorf("poll %d option %d: %w", pollID, optionID, ErrNotFound)
		}
		return models.PollOption{}, err
	}

	s.publishTally(ctx, pollID)
	return opt, nil
}

func (s *PollService) publishTally(ctx context.Context, pollID int64) {
	if s.publisher == nil {
		return
	}
	poll, err := s.GetPollByID(ctx, pollID)
	if err != nil {
		log.Warn().Err(err).Int64("poll_id", pollID).Msg("Failed to load poll for tally broadcast")
		return
	}
	s.publisher.PublishTally(poll)
}

func (s *PollService) recordEvent(ctx context.Context, eventType, msg string, pollID int64) {
	if s.eventService == nil {
		return
	}
	if err := s.eventService.CreateEvent(ctx, eventType, "info", msg, &pollID); err != nil {
		log.Warn().Err(err).Str("type", eventType).Int64("poll_id", pollID).Msg("Failed to record event")
	}
}

// expectAffected turns a write that touched no rows into ErrNotFound.
func expectAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}
