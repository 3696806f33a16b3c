package storage

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnloop/mentor-be/internal/domain"
)

func newMockStorage(t *testing.T) (*Storage, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s := &Storage{
		db:     sqlx.NewDb(db, "sqlmock"),
		logger: slog.New(slog.DiscardHandler),
	}
	return s, mock
}

func TestCreateJob_TimestampsFromDatabase(t *testing.T) {
	s, mock := newMockStorage(t)

	// created_at and updated_at are NOW() in the statement itself; only the
	// seven job columns are bound, so a zero-valued struct never writes
	// year-one timestamps.
	mock.ExpectExec(`INSERT INTO jobs .+ NOW\(\), NOW\(\)`).
		WithArgs("j1", "u1", domain.JobKindOnboarding, "{}", domain.JobStatusQueued, 0, "").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.CreateJob(context.Background(), &domain.Job{
		JobID:   "j1",
		UserID:  "u1",
		Kind:    domain.JobKindOnboarding,
		Payload: "{}",
		Status:  domain.JobStatusQueued,
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListQuizAttempts_LimitKeepsMostRecent(t *testing.T) {
	s, mock := newMockStorage(t)

	older := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 8, 2, 10, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{
		"id", "user_id", "topic", "difficulty", "score",
		"total_questions", "percentage", "time_spent", "completed_at",
	}).
		AddRow("a1", "u1", "loops", "easy", 4, 5, 80.0, 120, older).
		AddRow("a2", "u1", "loops", "medium", 5, 5, 100.0, 90, newer)

	// A positive limit selects the newest attempts and re-sorts them into
	// chronological order for trend analysis.
	mock.ExpectQuery(`ORDER BY completed_at DESC LIMIT \$2 \) recent ORDER BY completed_at ASC`).
		WithArgs("u1", 2).
		WillReturnRows(rows)

	attempts, err := s.ListQuizAttempts(context.Background(), "u1", 2)

	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.True(t, attempts[0].CompletedAt.Before(attempts[1].CompletedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListQuizAttempts_NoLimit(t *testing.T) {
	s, mock := newMockStorage(t)

	rows := sqlmock.NewRows([]string{
		"id", "user_id", "topic", "difficulty", "score",
		"total_questions", "percentage", "time_spent", "completed_at",
	})

	mock.ExpectQuery(`FROM quiz_attempts WHERE user_id = \$1 ORDER BY completed_at ASC`).
		WithArgs("u1").
		WillReturnRows(rows)

	attempts, err := s.ListQuizAttempts(context.Background(), "u1", 0)

	require.NoError(t, err)
	assert.Empty(t, attempts)
	assert.NoError(t, mock.ExpectationsWereMet())
}
