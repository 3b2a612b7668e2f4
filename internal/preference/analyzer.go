package preference

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/contract-cli/internal/llm"
	"github.com/sells-group/contract-cli/internal/model"
)

// WeightUpdate carries the weight-adjustment tunables into the store so
// the whole adjustment runs inside one transaction.
type WeightUpdate struct {
	Increment float64 // added to relevant areas
	Decrement float64 // subtracted from the rest
	Min       float64 // weight floor
	Max       float64 // weight cap
}

// DefaultWeightUpdate mirrors the long-standing empirical constants. They
// are configurable, not invariant.
func DefaultWeightUpdate() WeightUpdate {
	return WeightUpdate{Increment: 0.2, Decrement: 0.05, Min: 0.5, Max: 5.0}
}

// FrequentQuestion is one entry of the frequent-questions list.
type FrequentQuestion struct {
	Question string `json:"question"`
	Response string `json:"response"`
	Count    int    `json:"count"`
}

// WeightStore is the persistence consumed by the analyzer. Implementations
// must apply UpdateWeights atomically: initialize missing rows at 1.0,
// adjust every area, and roll back in full on failure.
type WeightStore interface {
	GetWeights(ctx context.Context, userID string) (map[string]float64, error)
	UpdateWeights(ctx context.Context, userID string, relevant []string, u WeightUpdate) error
	FrequentQuestions(ctx context.Context, userID string, limit int) ([]FrequentQuestion, error)
}

// Completer issues one completion against the prioritized backends.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// Config tunes the analyzer.
type Config struct {
	Update         WeightUpdate
	CoverThreshold float64       // focus-area cumulative weight share
	MaxFocusAreas  int           // focus areas per prompt
	MaxRelevant    int           // relevant areas parsed per question
	CacheTTL       time.Duration // frequent-questions cache lifetime
}

// DefaultConfig returns the standard analyzer configuration.
func DefaultConfig() Config {
	return Config{
		Update:         DefaultWeightUpdate(),
		CoverThreshold: 0.6,
		MaxFocusAreas:  5,
		MaxRelevant:    3,
		CacheTTL:       time.Hour,
	}
}

const analyzerSystemPrompt = `You are an expert in employment contracts. Given a user's question about a contract, identify which of the following areas are most relevant to the question:
%AREAS%
Return a list of up to 3 areas in order of relevance as a comma-separated string (e.g., "salary,benefits,work_hours"). If no areas are relevant, return an empty string. Only include areas from the provided list.`

const frequentQuestionsCacheKey = "frequent_questions"

// maxQuestionTokens bounds the relevance classification completion.
const maxQuestionTokens = 100

// areaPattern matches canonical area names anywhere in the model response,
// tolerating surrounding prose.
var areaPattern = regexp.MustCompile(`(?i)\b(` + strings.Join(model.Areas, "|") + `)\b`)

// Analyzer classifies user questions into relevant contract areas and
// keeps per-user preference weights current.
type Analyzer struct {
	router Completer
	store  WeightStore
	cfg    Config
	cache  *cache.Cache
}

// NewAnalyzer creates an analyzer over the given backends and store.
func NewAnalyzer(router Completer, store WeightStore, cfg Config) *Analyzer {
	if cfg.MaxRelevant <= 0 {
		cfg.MaxRelevant = 3
	}
	if cfg.MaxFocusAreas <= 0 {
		cfg.MaxFocusAreas = 5
	}
	if cfg.CoverThreshold <= 0 {
		cfg.CoverThreshold = 0.6
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}
	if cfg.Update == (WeightUpdate{}) {
		cfg.Update = DefaultWeightUpdate()
	}
	return &Analyzer{
		router: router,
		store:  store,
		cfg:    cfg,
		cache:  cache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
	}
}

// Analyze identifies up to MaxRelevant areas relevant to the question and
// applies the weight update for the user. Any failure, model or storage,
// yields an empty result and leaves the stored weights untouched.
func (a *Analyzer) Analyze(ctx context.Context, userID, question string) []string {
	system := strings.ReplaceAll(analyzerSystemPrompt, "%AREAS%", "- "+strings.Join(model.Areas, "\n- "))

	resp, err := a.router.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: "Question: " + question},
		},
		MaxTokens: maxQuestionTokens,
	})
	if err != nil {
		zap.L().Error("question analysis failed", zap.String("user_id", userID), zap.Error(err))
		return []string{}
	}

	relevant := ParseRelevantAreas(resp.Text, a.cfg.MaxRelevant)

	if err := a.store.UpdateWeights(ctx, userID, relevant, a.cfg.Update); err != nil {
		zap.L().Error("preference weight update failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return []string{}
	}

	zap.L().Debug("preferences updated",
		zap.String("user_id", userID),
		zap.Strings("relevant", relevant),
	)
	return relevant
}

// ParseRelevantAreas extracts up to max canonical area names from a model
// response, deduplicated in order of appearance. Unknown names are
// silently dropped.
func ParseRelevantAreas(text string, max int) []string {
	seen := make(map[string]bool)
	areas := []string{}
	for _, m := range areaPattern.FindAllString(text, -1) {
		name := strings.ToLower(m)
		if !model.KnownArea(name) || seen[name] {
			continue
		}
		seen[name] = true
		areas = append(areas, name)
		if len(areas) >= max {
			break
		}
	}
	return areas
}

// FocusAreas computes the user's current focus areas from stored weights.
// Storage failures and fresh users fall back to the first canonical areas.
func (a *Analyzer) FocusAreas(ctx context.Context, userID string) []string {
	weights, err := a.store.GetWeights(ctx, userID)
	if err != nil {
		zap.L().Error("fetching weights failed, using default areas",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		weights = nil
	}
	return FocusAreas(weights, model.Areas, a.cfg.CoverThreshold, a.cfg.MaxFocusAreas)
}

// defaultQuestions are shown before a user has any chat history.
var defaultQuestions = []FrequentQuestion{
	{Question: "What are the termination clauses in the contract?"},
	{Question: "Is the non-compete clause enforceable under Italian law?"},
	{Question: "What are the salary and benefits details?"},
	{Question: "How many vacation days are provided?"},
	{Question: "What are the overtime policies?"},
}

// FrequentQuestions returns the user's most asked questions, cached for
// CacheTTL. Missing history and storage failures yield the default list.
func (a *Analyzer) FrequentQuestions(ctx context.Context, userID string, limit int) []FrequentQuestion {
	if limit <= 0 {
		limit = 5
	}
	key := frequentQuestionsCacheKey + ":" + userID

	if cached, ok := a.cache.Get(key); ok {
		qs := cached.([]FrequentQuestion)
		if len(qs) > limit {
			qs = qs[:limit]
		}
		return qs
	}

	qs, err := a.store.FrequentQuestions(ctx, userID, limit)
	if err != nil {
		zap.L().Error("fetching frequent questions failed",
			zap.String("user_id", userID),
			zap.Error(eris.Wrap(err, "preference: frequent questions")),
		)
		return defaults(limit)
	}
	if len(qs) == 0 {
		qs = defaults(limit)
	}

	a.cache.SetDefault(key, qs)
	return qs
}

func defaults(limit int) []FrequentQuestion {
	qs := make([]FrequentQuestion, 0, limit)
	for _, q := range defaultQuestions {
		if len(qs) >= limit {
			break
		}
		q.Response = q.Question
		qs = append(qs, q)
	}
	return qs
}
