package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePoll(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	service := NewPollService(db, NewEventService(db), nil)

	poll, err := service.CreatePoll(ctx, "Favorite color?", []string{"Red", "Blue"})
	require.NoError(t, err)
	assert.Equal(t, "Favorite color?", poll.Question)
	require.Len(t, poll.Options, 2)
	for _, opt := range poll.Options {
		assert.Zero(t, opt.Votes)
		assert.Equal(t, poll.ID, opt.PollID)
	}
	assert.Equal(t, "Red", poll.Options[0].OptionText)
	assert.Equal(t, "Blue", poll.Options[1].OptionText)
	assert.Equal(t, 2, countRows(t, db, "poll_options"))

	polls, err := service.GetAllPolls(ctx)
	require.NoError(t, err)
	require.Len(t, polls, 1)
	assert.Equal(t, poll.ID, polls[0].ID)
	assert.Equal(t, "Favorite color?", polls[0].Question)
}

func TestCreatePollWithoutOptions(t *testing.T) {
	db := setupTestDB(t)
	service := NewPollService(db, nil, nil)

	poll, err := service.CreatePoll(context.Background(), "Anything?", nil)
	require.NoError(t, err)
	assert.NotNil(t, poll.Options)
	assert.Empty(t, poll.Options)
}

func TestGetPollNotFound(t *testing.T) {
	db := setupTestDB(t)
	service := NewPollService(db, nil, nil)

	_, err := service.GetPollByID(context.Background(), 7)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdatePoll(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	service := NewPollService(db, nil, nil)

	poll, err := service.CreatePoll(ctx, "Old?", []string{"A"})
	require.NoError(t, err)

	updated, err := service.UpdatePoll(ctx, poll.ID, strPtr("New?"))
	require.NoError(t, err)
	assert.Equal(t, "New?", updated.Question)

	// No fields is a no-op that still requires the poll to exist.
	unchanged, err := service.UpdatePoll(ctx, poll.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, "New?", unchanged.Question)

	_, err = service.UpdatePoll(ctx, poll.ID+1, strPtr("Nope"))
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = service.UpdatePoll(ctx, poll.ID+1, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeletePollCascades(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	service := NewPollService(db, NewEventService(db), nil)

	poll, err := service.CreatePoll(ctx, "Cascade?", []string{"Yes", "No"})
	require.NoError(t, err)
	other, err := service.CreatePoll(ctx, "Survivor?", []string{"Me"})
	require.NoError(t, err)

	require.NoError(t, service.DeletePoll(ctx, poll.ID))

	for _, opt := range poll.Options {
		_, err := service.UpdateOption(ctx, opt.ID, nil)
		assert.ErrorIs(t, err, ErrNotFound)
	}
	assert.Equal(t, 1, countRows(t, db, "poll_options"))

	_, err = service.GetPollByID(ctx, other.ID)
	assert.NoError(t, err)

	assert.ErrorIs(t, service.DeletePoll(ctx, poll.ID), ErrNotFound)
}

func TestUpdateAndDeleteOption(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	service := NewPollService(db, nil, nil)

	poll, err := service.CreatePoll(ctx, "Lunch?", []string{"Pizza", "Salad"})
	require.NoError(t, err)
	optID := poll.Options[0].ID

	opt, err := service.UpdateOption(ctx, optID, strPtr("Pasta"))
	require.NoError(t, err)
	assert.Equal(t, "Pasta", opt.OptionText)

	_, err = service.UpdateOption(ctx, 999, strPtr("Nothing"))
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, service.DeleteOption(ctx, optID))
	assert.ErrorIs(t, service.DeleteOption(ctx, optID), ErrNotFound)

	got, err := service.GetPollByID(ctx, poll.ID)
	require.NoError(t, err)
	require.Len(t, got.Options, 1)
	assert.Equal(t, "Salad", got.Options[0].OptionText)
}

func TestVoteIncrementsExactly(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	publisher := &recordingPublisher{}
	service := NewPollService(db, nil, publisher)

	poll, err := service.CreatePoll(ctx, "Favorite color?", []string{"Red", "Blue"})
	require.NoError(t, err)
	red := poll.Options[0]

	const n = 5
	for i := 1; i <= n; i++ {
		opt, err := service.Vote(ctx, poll.ID, red.ID)
		require.NoError(t, err)
		assert.EqualValues(t, i, opt.Votes)
	}

	got, err := service.GetPollByID(ctx, poll.ID)
	require.NoError(t, err)
	assert.EqualValues(t, n, got.Options[0].Votes)
	assert.Zero(t, got.Options[1].Votes)

	require.Len(t, publisher.polls, n)
	assert.EqualValues(t, n, publisher.polls[n-1].Options[0].Votes)
}

func TestVoteConcurrent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	publisher := &recordingPublisher{}
	service := NewPollService(db, nil, publisher)

	poll, err := service.CreatePoll(ctx, "Tabs or spaces?", []string{"Tabs", "Spaces"})
	require.NoError(t, err)
	tabs := poll.Options[0]

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.Vote(ctx, poll.ID, tabs.ID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}

	got, err := service.GetOptionByID(ctx, tabs.ID)
	require.NoError(t, err)
	assert.EqualValues(t, n, got.Votes)
	assert.Len(t, publisher.polls, n)
}

func TestGetOptionByID(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	service := NewPollService(db, nil, nil)

	poll, err := service.CreatePoll(ctx, "Lunch?", []string{"Soup"})
	require.NoError(t, err)

	opt, err := service.GetOptionByID(ctx, poll.Options[0].ID)
	require.NoError(t, err)
	assert.Equal(t, poll.ID, opt.PollID)
	assert.Equal(t, "Soup", opt.OptionText)

	_, err = service.GetOptionByID(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestVoteRejectsUnknownOrForeignOption(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	publisher := &recordingPublisher{}
	service := NewPollService(db, nil, publisher)

	first, err := service.CreatePoll(ctx, "First?", []string{"A"})
	require.NoError(t, err)
	second, err := service.CreatePoll(ctx, "Second?", []string{"B"})
	require.NoError(t, err)

	_, err = service.Vote(ctx, first.ID, 12345)
	assert.ErrorIs(t, err, ErrNotFound)

	// Option of the second poll addressed through the first.
	_, err = service.Vote(ctx, first.ID, second.Options[0].ID)
	assert.ErrorIs(t, err, ErrNotFound)

	var total int64
	require.NoError(t, db.QueryRow("SELECT COALESCE(SUM(votes), 0) FROM poll_options").Scan(&total))
	assert.Zero(t, total)
	assert.Empty(t, publisher.polls)
}
