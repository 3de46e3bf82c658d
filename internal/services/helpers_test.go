package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"

	"github.com/isdelr/pollboard/internal/auth"
	"github.com/isdelr/pollboard/internal/database"
	"github.com/isdelr/pollboard/internal/models"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// setupTestDB opens a migrated database in a per-test temp dir.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func newTestHasher() *auth.Hasher {
	return auth.NewHasher(bcrypt.MinCost)
}

// recordingPublisher captures published tallies.
type recordingPublisher struct {
	mu    sync.Mutex
	polls []models.Poll
}

func (p *recordingPublisher) PublishTally(poll models.Poll) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.polls = append(p.polls, poll)
}

func countRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}
