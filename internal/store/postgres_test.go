package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/contract-cli/internal/model"
	"github.com/sells-group/contract-cli/internal/preference"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_GetWeights(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT area, weight FROM preferences WHERE user_id = \$1`).
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"area", "weight"}).
			AddRow("salary", 1.4).
			AddRow("termination", 0.95))

	weights, err := s.GetWeights(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"salary": 1.4, "termination": 0.95}, weights)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetWeights_Empty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT area, weight FROM preferences`).
		WithArgs("new-user").
		WillReturnRows(pgxmock.NewRows([]string{"area", "weight"}))

	weights, err := s.GetWeights(context.Background(), "new-user")
	require.NoError(t, err)
	assert.Empty(t, weights)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateWeights_Transactional(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	u := preference.DefaultWeightUpdate()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO preferences`).
		WithArgs("user-1", model.Areas, 1.0).
		WillReturnResult(pgxmock.NewResult("INSERT", int64(len(model.Areas))))
	mock.ExpectExec(`UPDATE preferences SET weight = LEAST`).
		WithArgs("user-1", []string{"salary"}, u.Increment, u.Max).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE preferences SET weight = GREATEST`).
		WithArgs("user-1", []string{"salary"}, u.Decrement, u.Min).
		WillReturnResult(pgxmock.NewResult("UPDATE", int64(len(model.Areas)-1)))
	mock.ExpectCommit()

	err := s.UpdateWeights(context.Background(), "user-1", []string{"salary"}, u)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateWeights_RollbackOnError(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	u := preference.DefaultWeightUpdate()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO preferences`).
		WithArgs("user-1", model.Areas, 1.0).
		WillReturnResult(pgxmock.NewResult("INSERT", int64(len(model.Areas))))
	mock.ExpectExec(`UPDATE preferences SET weight = LEAST`).
		WithArgs("user-1", []string{"salary"}, u.Increment, u.Max).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := s.UpdateWeights(context.Background(), "user-1", []string{"salary"}, u)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "raise weights")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateWeights_EmptyRelevantDecaysAll(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	u := preference.DefaultWeightUpdate()

	// No raise pass: every area decays toward the floor.
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO preferences`).
		WithArgs("user-1", model.Areas, 1.0).
		WillReturnResult(pgxmock.NewResult("INSERT", int64(len(model.Areas))))
	mock.ExpectExec(`UPDATE preferences SET weight = GREATEST`).
		WithArgs("user-1", []string{}, u.Decrement, u.Min).
		WillReturnResult(pgxmock.NewResult("UPDATE", int64(len(model.Areas))))
	mock.ExpectCommit()

	err := s.UpdateWeights(context.Background(), "user-1", nil, u)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetAnalysis_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, user_id, report, created_at FROM analyses WHERE id = \$1`).
		WithArgs("nonexistent").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetAnalysis(context.Background(), "nonexistent")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveAndGetAnalysis(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	report := &model.Report{
		Metadata: model.ReportMetadata{
			AnalysisID:   "analysis-1",
			UserID:       "user-1",
			ContractName: "contract.pdf",
			Language:     "en",
			GeneratedAt:  time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		},
	}

	mock.ExpectExec(`INSERT INTO analyses`).
		WithArgs("analysis-1", "user-1", pgxmock.AnyArg(), report.Metadata.GeneratedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.SaveAnalysis(context.Background(), report))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FrequentQuestions(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT question, max\(response\), count\(\*\) AS freq`).
		WithArgs("user-1", 5).
		WillReturnRows(pgxmock.NewRows([]string{"question", "response", "freq"}).
			AddRow("What is the notice period?", "The notice period is 30 days.", 3).
			AddRow("Is overtime paid?", "Overtime is compensated at 1.5x.", 1))

	qs, err := s.FrequentQuestions(context.Background(), "user-1", 5)
	require.NoError(t, err)
	require.Len(t, qs, 2)
	assert.Equal(t, "What is the notice period?", qs[0].Question)
	assert.Equal(t, 3, qs[0].Count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AppendChatHistory(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO chat_history`).
		WithArgs(pgxmock.AnyArg(), "user-1", "What about vacation?", "You have 25 days.", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.AppendChatHistory(context.Background(), "user-1", "What about vacation?", "You have 25 days.")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
