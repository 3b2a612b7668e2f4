package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/contract-cli/internal/model"
	"github.com/sells-group/contract-cli/internal/preference"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// Weights for areas the user has never asked about start here.
const initialWeight = 1.0

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"get_weights":     `SELECT area, weight FROM preferences WHERE user_id = $1`,
	"insert_analysis": `INSERT INTO analyses (id, user_id, report, created_at) VALUES ($1, $2, $3, $4)`,
	"get_analysis":    `SELECT id, user_id, report, created_at FROM analyses WHERE id = $1`,
	"insert_chat":     `INSERT INTO chat_history (id, user_id, question, response, created_at) VALUES ($1, $2, $3, $4, $5)`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS preferences (
	user_id    TEXT NOT NULL,
	area       TEXT NOT NULL,
	weight     DOUBLE PRECISION NOT NULL DEFAULT 1.0,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (user_id, area)
);

CREATE TABLE IF NOT EXISTS analyses (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	report     JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS chat_history (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	question   TEXT NOT NULL,
	response   TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_analyses_user_id ON analyses(user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_chat_history_user_id ON chat_history(user_id);
CREATE INDEX IF NOT EXISTS idx_chat_history_question ON chat_history(user_id, question);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) GetWeights(ctx context.Context, userID string) (map[string]float64, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT area, weight FROM preferences WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get weights for %s", userID)
	}
	defer rows.Close()

	weights := make(map[string]float64)
	for rows.Next() {
		var area string
		var weight float64
		if err := rows.Scan(&area, &weight); err != nil {
			return nil, eris.Wrap(err, "postgres: scan weight")
		}
		weights[area] = weight
	}
	return weights, eris.Wrap(rows.Err(), "postgres: get weights iterate")
}

// UpdateWeights adjusts all of a user's area weights in one transaction:
// missing rows are seeded at the initial weight, relevant areas grow toward
// the cap and every other area decays toward the floor. A question matching
// no area still decays every weight. On error nothing is applied.
func (s *PostgresStore) UpdateWeights(ctx context.Context, userID string, relevant []string, u preference.WeightUpdate) error {
	if relevant == nil {
		relevant = []string{}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin update weights")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx,
		`INSERT INTO preferences (user_id, area, weight)
		 SELECT $1, unnest($2::text[]), $3
		 ON CONFLICT (user_id, area) DO NOTHING`,
		userID, model.Areas, initialWeight,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: seed weights for %s", userID)
	}

	if len(relevant) > 0 {
		_, err = tx.Exec(ctx,
			`UPDATE preferences SET weight = LEAST(weight + $3, $4), updated_at = now()
			 WHERE user_id = $1 AND area = ANY($2)`,
			userID, relevant, u.Increment, u.Max,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: raise weights for %s", userID)
		}
	}

	_, err = tx.Exec(ctx,
		`UPDATE preferences SET weight = GREATEST(weight - $3, $4), updated_at = now()
		 WHERE user_id = $1 AND NOT (area = ANY($2))`,
		userID, relevant, u.Decrement, u.Min,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: decay weights for %s", userID)
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit update weights")
}

func (s *PostgresStore) SaveAnalysis(ctx context.Context, report *model.Report) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal report")
	}

	createdAt := report.Metadata.GeneratedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO analyses (id, user_id, report, created_at) VALUES ($1, $2, $3, $4)`,
		report.Metadata.AnalysisID, report.Metadata.UserID, reportJSON, createdAt,
	)
	return eris.Wrapf(err, "postgres: insert analysis %s", report.Metadata.AnalysisID)
}

func (s *PostgresStore) GetAnalysis(ctx context.Context, analysisID string) (*AnalysisRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, user_id, report, created_at FROM analyses WHERE id = $1`,
		analysisID,
	)

	var rec AnalysisRecord
	var reportJSON []byte
	if err := row.Scan(&rec.ID, &rec.UserID, &reportJSON, &rec.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "postgres: get analysis %s", analysisID)
	}
	if err := json.Unmarshal(reportJSON, &rec.Report); err != nil {
		return nil, eris.Wrapf(err, "postgres: unmarshal analysis %s", analysisID)
	}
	return &rec, nil
}

func (s *PostgresStore) ListAnalyses(ctx context.Context, userID string, limit int) ([]AnalysisRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, report, created_at FROM analyses WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list analyses for %s", userID)
	}
	defer rows.Close()

	var out []AnalysisRecord
	for rows.Next() {
		var rec AnalysisRecord
		var reportJSON []byte
		if err := rows.Scan(&rec.ID, &rec.UserID, &reportJSON, &rec.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan analysis")
		}
		if err := json.Unmarshal(reportJSON, &rec.Report); err != nil {
			return nil, eris.Wrapf(err, "postgres: unmarshal analysis %s", rec.ID)
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list analyses iterate")
}

func (s *PostgresStore) AppendChatHistory(ctx context.Context, userID, question, response string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO chat_history (id, user_id, question, response, created_at) VALUES ($1, $2, $3, $4, $5)`,
		uuid.NewString(), userID, question, response, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: insert chat turn for %s", userID)
}

func (s *PostgresStore) FrequentQuestions(ctx context.Context, userID string, limit int) ([]preference.FrequentQuestion, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.pool.Query(ctx,
		`SELECT question, max(response), count(*) AS freq
		 FROM chat_history WHERE user_id = $1
		 GROUP BY question ORDER BY freq DESC, question LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: frequent questions for %s", userID)
	}
	defer rows.Close()

	var out []preference.FrequentQuestion
	for rows.Next() {
		var q preference.FrequentQuestion
		if err := rows.Scan(&q.Question, &q.Response, &q.Count); err != nil {
			return nil, eris.Wrap(err, "postgres: scan frequent question")
		}
		out = append(out, q)
	}
	return out, eris.Wrap(rows.Err(), "postgres: frequent questions iterate")
}
