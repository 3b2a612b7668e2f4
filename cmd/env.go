package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/contract-cli/internal/analysis"
	"github.com/sells-group/contract-cli/internal/chat"
	"github.com/sells-group/contract-cli/internal/llm"
	"github.com/sells-group/contract-cli/internal/preference"
	"github.com/sells-group/contract-cli/internal/resilience"
	"github.com/sells-group/contract-cli/internal/session"
	"github.com/sells-group/contract-cli/internal/store"
	"github.com/sells-group/contract-cli/internal/translate"
	anthropicpkg "github.com/sells-group/contract-cli/pkg/anthropic"
	"github.com/sells-group/contract-cli/pkg/openrouter"
)

// appEnv holds the store, the backend router and all agents needed by the
// analyze/ask/serve commands.
type appEnv struct {
	Store      store.Store
	Router     *llm.Router
	Summary    *analysis.SummaryAgent
	Shadow     *analysis.ShadowAgent
	Analyzer   *preference.Analyzer
	Translator *translate.Translator
	Sessions   *session.MemoryStore
	Chat       *chat.Agent
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Sessions != nil {
		e.Sessions.Close()
	}
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	return st, nil
}

// retryFromConfig builds a retry budget from per-target settings, falling
// back to the analysis defaults.
func retryFromConfig(maxAttempts, backoffSecs int) resilience.RetryConfig {
	rc := resilience.DefaultRetryConfig()
	if maxAttempts > 0 {
		rc.MaxAttempts = maxAttempts
	}
	if backoffSecs > 0 {
		rc.InitialBackoff = time.Duration(backoffSecs) * time.Second
	}
	return rc
}

// buildRouter assembles the prioritized backend list. An explicit
// targets.yaml wins; otherwise OpenRouter is primary with Anthropic as
// fallback when a key is configured.
func buildRouter() (*llm.Router, error) {
	if cfg.Targets.Path != "" {
		tf, err := llm.LoadTargets(cfg.Targets.Path)
		if err != nil {
			return nil, err
		}
		entries := make([]llm.Entry, 0, len(tf.Targets))
		for _, spec := range tf.Targets {
			target, err := buildTarget(spec)
			if err != nil {
				return nil, err
			}
			entries = append(entries, llm.Entry{
				Target: target,
				Retry:  retryFromConfig(spec.MaxAttempts, spec.BackoffSecs),
			})
		}
		return llm.NewRouter(entries...), nil
	}

	if cfg.OpenRouter.Key == "" {
		return nil, eris.New("openrouter.key is not configured")
	}

	retry := retryFromConfig(cfg.Analysis.MaxAttempts, cfg.Analysis.BackoffSecs)
	entries := []llm.Entry{
		{Target: newOpenRouterTarget(cfg.OpenRouter.Model), Retry: retry},
	}
	if cfg.Anthropic.Key != "" {
		entries = append(entries, llm.Entry{
			Target: llm.NewAnthropicTarget(anthropicpkg.NewClient(cfg.Anthropic.Key), cfg.Anthropic.Model),
			Retry:  retry,
		})
	}
	return llm.NewRouter(entries...), nil
}

func buildTarget(spec llm.TargetSpec) (llm.Target, error) {
	switch spec.Backend {
	case "openrouter":
		if cfg.OpenRouter.Key == "" {
			return nil, eris.New("openrouter.key is not configured")
		}
		return newOpenRouterTarget(spec.Model), nil
	case "anthropic":
		if cfg.Anthropic.Key == "" {
			return nil, eris.New("anthropic.key is not configured")
		}
		return llm.NewAnthropicTarget(anthropicpkg.NewClient(cfg.Anthropic.Key), spec.Model), nil
	default:
		return nil, eris.Errorf("unknown target backend %q", spec.Backend)
	}
}

func newOpenRouterTarget(model string) *llm.OpenRouterTarget {
	client := openrouter.NewClient(cfg.OpenRouter.Key,
		openrouter.WithBaseURL(cfg.OpenRouter.BaseURL),
		openrouter.WithRateLimit(cfg.OpenRouter.RequestsPerSec),
		openrouter.WithTimeout(time.Duration(cfg.OpenRouter.TimeoutSecs)*time.Second),
	)
	return llm.NewOpenRouterTarget(client, model)
}

func preferenceConfig() preference.Config {
	pc := preference.DefaultConfig()
	pc.Update = preference.WeightUpdate{
		Increment: cfg.Preference.Increment,
		Decrement: cfg.Preference.Decrement,
		Min:       cfg.Preference.MinWeight,
		Max:       cfg.Preference.MaxWeight,
	}
	pc.CoverThreshold = cfg.Preference.CoverThreshold
	pc.MaxFocusAreas = cfg.Preference.MaxFocusAreas
	pc.MaxRelevant = cfg.Preference.MaxRelevant
	if cfg.Preference.QuestionCacheTTL > 0 {
		pc.CacheTTL = cfg.Preference.QuestionCacheTTL
	}
	return pc
}

// initEnv sets up the store, the backend router and every agent. Callers
// should defer env.Close().
func initEnv(ctx context.Context) (*appEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	router, err := buildRouter()
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	translator := translate.New(router, translate.Config{
		MaxBatchTokens: cfg.Translate.MaxBatchTokens,
		ExcludedKeys:   cfg.Translate.ExcludedKeys,
		Concurrency:    cfg.Translate.MaxConcurrent,
	})
	analyzer := preference.NewAnalyzer(router, st, preferenceConfig())
	sessions := session.NewMemoryStore(time.Duration(cfg.Session.TTLMinutes) * time.Minute)

	return &appEnv{
		Store:      st,
		Router:     router,
		Summary:    analysis.NewSummaryAgent(router),
		Shadow:     analysis.NewShadowAgent(router),
		Analyzer:   analyzer,
		Translator: translator,
		Sessions:   sessions,
		Chat:       chat.NewAgent(router, sessions, translator, analyzer, st),
	}, nil
}
