// Package store persists user preference weights, completed analyses and
// chat history behind a driver-agnostic interface.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/contract-cli/internal/model"
	"github.com/sells-group/contract-cli/internal/preference"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = eris.New("store: not found")

// AnalysisRecord is a persisted analysis report with its storage metadata.
type AnalysisRecord struct {
	ID        string       `json:"id"`
	UserID    string       `json:"user_id"`
	Report    model.Report `json:"report"`
	CreatedAt time.Time    `json:"created_at"`
}

// Store defines the persistence interface for the analysis pipeline.
type Store interface {
	// Preference weights
	GetWeights(ctx context.Context, userID string) (map[string]float64, error)
	UpdateWeights(ctx context.Context, userID string, relevant []string, u preference.WeightUpdate) error

	// Analyses
	SaveAnalysis(ctx context.Context, report *model.Report) error
	GetAnalysis(ctx context.Context, analysisID string) (*AnalysisRecord, error)
	ListAnalyses(ctx context.Context, userID string, limit int) ([]AnalysisRecord, error)

	// Chat history
	AppendChatHistory(ctx context.Context, userID, question, response string) error
	FrequentQuestions(ctx context.Context, userID string, limit int) ([]preference.FrequentQuestion, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open constructs a Store from the configured driver.
func Open(ctx context.Context, driver, databaseURL string, poolCfg *PoolConfig) (Store, error) {
	switch driver {
	case "postgres":
		return NewPostgres(ctx, databaseURL, poolCfg)
	case "sqlite", "":
		return NewSQLite(databaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}
