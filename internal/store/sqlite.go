package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/contract-cli/internal/model"
	"github.com/sells-group/contract-cli/internal/preference"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS preferences (
	user_id    TEXT NOT NULL,
	area       TEXT NOT NULL,
	weight     REAL NOT NULL DEFAULT 1.0,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (user_id, area)
);

CREATE TABLE IF NOT EXISTS analyses (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	report     TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS chat_history (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	question   TEXT NOT NULL,
	response   TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_analyses_user_id ON analyses(user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_chat_history_user_id ON chat_history(user_id);
CREATE INDEX IF NOT EXISTS idx_chat_history_question ON chat_history(user_id, question);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) GetWeights(ctx context.Context, userID string) (map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT area, weight FROM preferences WHERE user_id = ?`,
		userID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get weights for %s", userID)
	}
	defer rows.Close()

	weights := make(map[string]float64)
	for rows.Next() {
		var area string
		var weight float64
		if err := rows.Scan(&area, &weight); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan weight")
		}
		weights[area] = weight
	}
	return weights, eris.Wrap(rows.Err(), "sqlite: get weights iterate")
}

// UpdateWeights mirrors the postgres implementation: seed, raise, decay,
// all inside one transaction so a failure leaves the weights untouched.
// A question matching no area still decays every weight.
func (s *SQLiteStore) UpdateWeights(ctx context.Context, userID string, relevant []string, u preference.WeightUpdate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin update weights")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, area := range model.Areas {
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO preferences (user_id, area, weight) VALUES (?, ?, ?)`,
			userID, area, initialWeight,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: seed weight %s", area)
		}
	}

	if len(relevant) == 0 {
		_, err = tx.ExecContext(ctx,
			`UPDATE preferences SET weight = max(weight - ?, ?), updated_at = datetime('now')
			 WHERE user_id = ?`,
			u.Decrement, u.Min, userID,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: decay weights for %s", userID)
		}
		return eris.Wrap(tx.Commit(), "sqlite: commit update weights")
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(relevant)), ", ")
	args := make([]any, 0, len(relevant)+3)
	args = append(args, u.Increment, u.Max, userID)
	for _, area := range relevant {
		args = append(args, area)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE preferences SET weight = min(weight + ?, ?), updated_at = datetime('now')
		 WHERE user_id = ? AND area IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: raise weights for %s", userID)
	}

	args[0], args[1] = u.Decrement, u.Min
	_, err = tx.ExecContext(ctx,
		`UPDATE preferences SET weight = max(weight - ?, ?), updated_at = datetime('now')
		 WHERE user_id = ? AND area NOT IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: decay weights for %s", userID)
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit update weights")
}

func (s *SQLiteStore) SaveAnalysis(ctx context.Context, report *model.Report) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal report")
	}

	createdAt := report.Metadata.GeneratedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO analyses (id, user_id, report, created_at) VALUES (?, ?, ?, ?)`,
		report.Metadata.AnalysisID, report.Metadata.UserID, string(reportJSON), createdAt,
	)
	return eris.Wrapf(err, "sqlite: insert analysis %s", report.Metadata.AnalysisID)
}

func (s *SQLiteStore) GetAnalysis(ctx context.Context, analysisID string) (*AnalysisRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, report, created_at FROM analyses WHERE id = ?`,
		analysisID,
	)

	var rec AnalysisRecord
	var reportJSON string
	if err := row.Scan(&rec.ID, &rec.UserID, &reportJSON, &rec.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "sqlite: get analysis %s", analysisID)
	}
	if err := json.Unmarshal([]byte(reportJSON), &rec.Report); err != nil {
		return nil, eris.Wrapf(err, "sqlite: unmarshal analysis %s", analysisID)
	}
	return &rec, nil
}

func (s *SQLiteStore) ListAnalyses(ctx context.Context, userID string, limit int) ([]AnalysisRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, report, created_at FROM analyses WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list analyses for %s", userID)
	}
	defer rows.Close()

	var out []AnalysisRecord
	for rows.Next() {
		var rec AnalysisRecord
		var reportJSON string
		if err := rows.Scan(&rec.ID, &rec.UserID, &reportJSON, &rec.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan analysis")
		}
		if err := json.Unmarshal([]byte(reportJSON), &rec.Report); err != nil {
			return nil, eris.Wrapf(err, "sqlite: unmarshal analysis %s", rec.ID)
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list analyses iterate")
}

func (s *SQLiteStore) AppendChatHistory(ctx context.Context, userID, question, response string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_history (id, user_id, question, response, created_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), userID, question, response, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: insert chat turn for %s", userID)
}

func (s *SQLiteStore) FrequentQuestions(ctx context.Context, userID string, limit int) ([]preference.FrequentQuestion, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT question, max(response), count(*) AS freq
		 FROM chat_history WHERE user_id = ?
		 GROUP BY question ORDER BY freq DESC, question LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: frequent questions for %s", userID)
	}
	defer rows.Close()

	var out []preference.FrequentQuestion
	for rows.Next() {
		var q preference.FrequentQuestion
		if err := rows.Scan(&q.Question, &q.Response, &q.Count); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan frequent question")
		}
		out = append(out, q)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: frequent questions iterate")
}
