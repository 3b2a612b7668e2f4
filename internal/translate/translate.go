package translate

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/sells-group/contract-cli/internal/llm"
)

// Completer issues one completion against the prioritized backends.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// Config tunes the translator.
type Config struct {
	MaxBatchTokens int      // approximate token budget per batch
	ExcludedKeys   []string // keys whose subtrees are never translated
	Concurrency    int      // concurrent batch calls
}

// DefaultConfig returns the standard translator configuration.
func DefaultConfig() Config {
	return Config{
		MaxBatchTokens: 1000,
		ExcludedKeys:   []string{"status", "error"},
		Concurrency:    4,
	}
}

// Result is the outcome of one translation operation. TranslatedContent is
// always present and shape-identical to the input; Status is "error" when
// any batch failed and its units kept their original text.
type Result struct {
	Status            string `json:"status"`
	TranslatedContent any    `json:"translated_content"`
	Err               string `json:"error,omitempty"`
}

const batchSystemPrompt = "You are a professional translator. Return only the requested lines, nothing else."

const batchPromptFormat = `Translate the following numbered texts to %s. Return exactly one line per text in the format "index: translation", keeping the same index. Do not merge, reorder or skip indices, and do not add explanations.

%s`

// translationTemperature keeps batch output close to literal.
const translationTemperature = 0.3

// maxBatchTokensOut bounds one batch completion.
const maxBatchTokensOut = 4000

var indexLineRe = regexp.MustCompile(`^\s*(\d+)\s*:\s*(.*)$`)

// Translator translates structures leaf by leaf through the backends.
type Translator struct {
	router Completer
	cfg    Config
}

// New creates a translator over the given backend router.
func New(router Completer, cfg Config) *Translator {
	if cfg.MaxBatchTokens <= 0 {
		cfg.MaxBatchTokens = 1000
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &Translator{router: router, cfg: cfg}
}

// Translate rewrites every eligible string leaf of content into
// targetLang. Batches run concurrently; a failing batch only keeps its own
// units' original text. The returned structure is always complete.
func (t *Translator) Translate(ctx context.Context, content any, targetLang string) *Result {
	excluded := make(map[string]bool, len(t.cfg.ExcludedKeys))
	for _, k := range t.cfg.ExcludedKeys {
		excluded[k] = true
	}

	units := Collect(content, excluded)
	if len(units) == 0 {
		return &Result{Status: "success", TranslatedContent: content}
	}

	batches := PackBatches(units, t.cfg.MaxBatchTokens)
	langName := LanguageName(targetLang)

	var (
		mu           sync.Mutex
		translations = make(map[string]string, len(units))
		failures     int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.cfg.Concurrency)
	for _, batch := range batches {
		g.Go(func() error {
			got, err := t.translateBatch(gctx, batch, langName)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// The batch's units keep their original text.
				zap.L().Warn("translation batch failed",
					zap.Int("units", len(batch)),
					zap.Error(err),
				)
				failures++
				return nil
			}
			for k, v := range got {
				translations[k] = v
			}
			return nil
		})
	}
	// Reconstruction waits for every batch. Errors are absorbed above, so
	// Wait only reflects context cancellation through gctx in the calls.
	_ = g.Wait()

	res := &Result{
		Status:            "success",
		TranslatedContent: Reconstruct(content, translations, excluded),
	}
	if failures > 0 {
		res.Status = "error"
		res.Err = fmt.Sprintf("translation failed for %d of %d batches", failures, len(batches))
	}
	return res
}

// translateBatch issues one completion for a batch and parses the
// "index: translation" lines. Lines that do not parse, or whose index is
// out of range, are dropped with a warning; missing indices are simply
// absent from the result and keep their original text downstream.
func (t *Translator) translateBatch(ctx context.Context, batch []Unit, langName string) (map[string]string, error) {
	var lines strings.Builder
	for i, u := range batch {
		fmt.Fprintf(&lines, "%d: %s\n", i, strings.ReplaceAll(u.Text, "\n", " "))
	}

	resp, err := t.router.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: batchSystemPrompt},
			{Role: "user", Content: fmt.Sprintf(batchPromptFormat, langName, lines.String())},
		},
		MaxTokens:   maxBatchTokensOut,
		Temperature: llm.Temp(translationTemperature),
	})
	if err != nil {
		return nil, err
	}

	out := make(map[string]string, len(batch))
	for _, line := range strings.Split(resp.Text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		m := indexLineRe.FindStringSubmatch(line)
		if m == nil {
			zap.L().Warn("unparseable translation line dropped", zap.String("line", line))
			continue
		}
		idx, _ := strconv.Atoi(m[1])
		if idx < 0 || idx >= len(batch) {
			zap.L().Warn("translation index out of range", zap.Int("index", idx), zap.Int("batch_size", len(batch)))
			continue
		}
		out[batch[idx].Key()] = strings.TrimSpace(m[2])
	}
	return out, nil
}

// TranslateText translates a single plain-text string. Failures fall back
// to the original text.
func (t *Translator) TranslateText(ctx context.Context, text, targetLang string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}

	resp, err := t.router.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: "Return plain text translation."},
			{Role: "user", Content: fmt.Sprintf(
				"Translate the following text to %s. Return the translated text as plain text, without JSON or code markers. Do not modify the meaning or add explanations.\n\nText:\n%s",
				LanguageName(targetLang), text)},
		},
		MaxTokens:   maxBatchTokensOut,
		Temperature: llm.Temp(translationTemperature),
	})
	if err != nil {
		zap.L().Warn("text translation failed, keeping original", zap.Error(err))
		return text
	}
	return strings.TrimSpace(resp.Text)
}

// LanguageName resolves a BCP 47 code like "it" to its English display
// name. Unparseable codes are returned as is.
func LanguageName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	return display.English.Languages().Name(tag)
}
