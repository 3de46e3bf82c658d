package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/isdelr/pollboard/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestUserLifecycle(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	events := NewEventService(db)
	service := NewUserService(db, newTestHasher(), events)

	user, err := service.CreateUser(ctx, "alice", "alice@example.com", "s3cret")
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, "alice", user.Username)
	assert.Empty(t, user.PasswordHash)

	got, err := service.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got.Email)

	users, err := service.GetAllUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, user.ID, users[0].ID)

	var stored string
	require.NoError(t, db.QueryRow("SELECT password_hash FROM users WHERE id = ?", user.ID).Scan(&stored))
	assert.NotEqual(t, "s3cret", stored)

	require.NoError(t, service.DeleteUser(ctx, user.ID))
	_, err = service.GetUserByID(ctx, user.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	recent, err := events.GetRecentEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
}

func TestCreateUserDuplicate(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	service := NewUserService(db, newTestHasher(), nil)

	_, err := service.CreateUser(ctx, "bob", "bob@example.com", "pw")
	require.NoError(t, err)

	tests := []struct {
		name     string
		username string
		email    string
	}{
		{"same username", "bob", "other@example.com"},
		{"same email", "robert", "bob@example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.CreateUser(ctx, tt.username, tt.email, "pw")
			assert.ErrorIs(t, err, ErrConflict)
		})
	}
	assert.Equal(t, 1, countRows(t, db, "users"))
}

func TestAuthenticateUser(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	service := NewUserService(db, newTestHasher(), nil)

	_, err := service.CreateUser(ctx, "carol", "carol@example.com", "right")
	require.NoError(t, err)

	var before string
	require.NoError(t, db.QueryRow("SELECT password_hash FROM users WHERE username = 'carol'").Scan(&before))

	user, err := service.AuthenticateUser(ctx, "carol", "right")
	require.NoError(t, err)
	assert.Equal(t, "carol", user.Username)
	assert.Empty(t, user.PasswordHash)

	_, err = service.AuthenticateUser(ctx, "carol", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = service.AuthenticateUser(ctx, "nobody", "right")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	var after string
	require.NoError(t, db.QueryRow("SELECT password_hash FROM users WHERE username = 'carol'").Scan(&after))
	assert.Equal(t, before, after)
	assert.Equal(t, 1, countRows(t, db, "users"))
}

func TestUpdateUserPartialAndIdempotent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	service := NewUserService(db, newTestHasher(), nil)

	user, err := service.CreateUser(ctx, "dave", "dave@example.com", "old")
	require.NoError(t, err)

	update := models.UserUpdate{Email: strPtr("dave@new.example.com"), Password: strPtr("new")}

	first, err := service.UpdateUser(ctx, user.ID, update)
	require.NoError(t, err)
	assert.Equal(t, "dave", first.Username)
	assert.Equal(t, "dave@new.example.com", first.Email)

	var hashAfterFirst string
	require.NoError(t, db.QueryRow("SELECT password_hash FROM users WHERE id = ?", user.ID).Scan(&hashAfterFirst))

	second, err := service.UpdateUser(ctx, user.ID, update)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	var hashAfterSecond string
	require.NoError(t, db.QueryRow("SELECT password_hash FROM users WHERE id = ?", user.ID).Scan(&hashAfterSecond))
	assert.Equal(t, hashAfterFirst, hashAfterSecond)

	_, err = service.AuthenticateUser(ctx, "dave", "new")
	assert.NoError(t, err)
	_, err = service.AuthenticateUser(ctx, "dave", "old")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUpdateUserErrors(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	service := NewUserService(db, newTestHasher(), nil)

	_, err := service.UpdateUser(ctx, 42, models.UserUpdate{Username: strPtr("ghost")})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = service.CreateUser(ctx, "erin", "erin@example.com", "pw")
	require.NoError(t, err)
	frank, err := service.CreateUser(ctx, "frank", "frank@example.com", "pw")
	require.NoError(t, err)

	_, err = service.UpdateUser(ctx, frank.ID, models.UserUpdate{Username: strPtr("erin")})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestDeleteUserNotFoundIsStable(t *testing.T) {
	db := setupTestDB(t)
	service := NewUserService(db, newTestHasher(), nil)

	for i := 0; i < 3; i++ {
		err := service.DeleteUser(context.Background(), 99)
		assert.ErrorIs(t, err, ErrNotFound)
	}
}

func TestUpdateUserConcurrent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	service := NewUserService(db, newTestHasher(), NewEventService(db))

	const n = 8
	ids := make([]int64, n)
	for i := range ids {
		user, err := service.CreateUser(ctx, fmt.Sprintf("user%d", i), fmt.Sprintf("user%d@example.com", i), "pw")
		require.NoError(t, err)
		ids[i] = user.ID
	}

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id int64) {
			defer wg.Done()
			_, err := service.UpdateUser(ctx, id, models.UserUpdate{
				Email:    strPtr(fmt.Sprintf("renamed%d@example.com", i)),
				Password: strPtr("changed"),
			})
			errs <- err
		}(i, id)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}

	for i, id := range ids {
		user, err := service.GetUserByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("renamed%d@example.com", i), user.Email)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx, "INSERT INTO users (username, email, password_hash) VALUES ('a', 'a@example.com', 'x')")
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, "INSERT INTO users (username, email, password_hash) VALUES ('a', 'b@example.com', 'x')")
	require.Error(t, err)
	assert.True(t, isUniqueViolation(err))
	assert.True(t, isUniqueViolation(fmt.Errorf("wrapped: %w", err)))

	// NOT NULL is a constraint too, but not a uniqueness one.
	_, err = db.ExecContext(ctx, "INSERT INTO users (username, email, password_hash) VALUES ('c', NULL, 'x')")
	require.Error(t, err)
	assert.False(t, isUniqueViolation(err))

	assert.False(t, isUniqueViolation(errors.New("UNIQUE constraint failed: users.username")))
	assert.False(t, isUniqueViolation(nil))
}
