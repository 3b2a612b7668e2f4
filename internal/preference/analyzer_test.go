package preference

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/contract-cli/internal/llm"
	"github.com/sells-group/contract-cli/internal/model"
)

type fakeRouter struct {
	text string
	err  error
}

func (f *fakeRouter) Complete(_ context.Context, _ llm.Request) (*llm.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Response{Text: f.text}, nil
}

// memStore applies the documented weight semantics in memory.
type memStore struct {
	weights    map[string]map[string]float64
	updateErr  error
	weightsErr error
	questions  []FrequentQuestion
	calls      int
}

func newMemStore() *memStore {
	return &memStore{weights: map[string]map[string]float64{}}
}

func (s *memStore) GetWeights(_ context.Context, userID string) (map[string]float64, error) {
	if s.weightsErr != nil {
		return nil, s.weightsErr
	}
	out := map[string]float64{}
	for a, w := range s.weights[userID] {
		out[a] = w
	}
	return out, nil
}

func (s *memStore) UpdateWeights(_ context.Context, userID string, relevant []string, u WeightUpdate) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	rel := map[string]bool{}
	for _, a := range relevant {
		rel[a] = true
	}
	if s.weights[userID] == nil {
		s.weights[userID] = map[string]float64{}
	}
	for _, area := range model.Areas {
		w, ok := s.weights[userID][area]
		if !ok {
			w = 1.0
		}
		if rel[area] {
			w += u.Increment
			if w > u.Max {
				w = u.Max
			}
		} else {
			w -= u.Decrement
			if w < u.Min {
				w = u.Min
			}
		}
		s.weights[userID][area] = w
	}
	return nil
}

func (s *memStore) FrequentQuestions(_ context.Context, _ string, limit int) ([]FrequentQuestion, error) {
	s.calls++
	if len(s.questions) > limit {
		return s.questions[:limit], nil
	}
	return s.questions, nil
}

func TestAnalyzeUpdatesFreshWeights(t *testing.T) {
	store := newMemStore()
	a := NewAnalyzer(&fakeRouter{text: "salary"}, store, DefaultConfig())

	relevant := a.Analyze(context.Background(), "user-1", "How much will I earn?")
	assert.Equal(t, []string{"salary"}, relevant)

	weights, err := store.GetWeights(context.Background(), "user-1")
	require.NoError(t, err)
	assert.InDelta(t, 1.2, weights["salary"], 1e-9)
	for _, area := range model.Areas {
		if area == "salary" {
			continue
		}
		assert.InDelta(t, 0.95, weights[area], 1e-9, area)
	}
}

func TestAnalyzeModelFailureLeavesWeightsUntouched(t *testing.T) {
	store := newMemStore()
	a := NewAnalyzer(&fakeRouter{err: eris.New("down")}, store, DefaultConfig())

	relevant := a.Analyze(context.Background(), "user-1", "anything")
	assert.Empty(t, relevant)
	assert.Empty(t, store.weights["user-1"])
}

func TestAnalyzeStoreFailureReturnsEmpty(t *testing.T) {
	store := newMemStore()
	store.updateErr = eris.New("db down")
	a := NewAnalyzer(&fakeRouter{text: "salary, benefits"}, store, DefaultConfig())

	relevant := a.Analyze(context.Background(), "user-1", "pay and perks?")
	assert.Empty(t, relevant)
}

func TestParseRelevantAreas(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"salary,benefits,work_hours", []string{"salary", "benefits", "work_hours"}},
		{"The most relevant areas are Salary and BENEFITS.", []string{"salary", "benefits"}},
		{"salary, salary, benefits", []string{"salary", "benefits"}},
		{"salary, benefits, work_hours, vacation", []string{"salary", "benefits", "work_hours"}},
		{"astrology, numerology", []string{}},
		{"", []string{}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ParseRelevantAreas(tc.in, 3), "input %q", tc.in)
	}
}

func TestFocusAreasFreshUserGetsCanonicalDefaults(t *testing.T) {
	a := NewAnalyzer(&fakeRouter{}, newMemStore(), DefaultConfig())
	got := a.FocusAreas(context.Background(), "nobody")
	assert.Equal(t, append([]string{}, model.Areas[:5]...), got)
}

func TestFocusAreasStoreFailureFallsBack(t *testing.T) {
	store := newMemStore()
	store.weightsErr = eris.New("db down")
	a := NewAnalyzer(&fakeRouter{}, store, DefaultConfig())

	got := a.FocusAreas(context.Background(), "user-1")
	assert.Equal(t, append([]string{}, model.Areas[:5]...), got)
}

func TestFrequentQuestionsCachesAndDefaults(t *testing.T) {
	store := newMemStore()
	a := NewAnalyzer(&fakeRouter{}, store, DefaultConfig())

	// No history: canned defaults.
	qs := a.FrequentQuestions(context.Background(), "user-1", 5)
	require.Len(t, qs, 5)
	assert.Contains(t, qs[0].Question, "termination")

	// With history: served from the store, then cached.
	store.questions = []FrequentQuestion{{Question: "custom?", Response: "custom?", Count: 3}}
	qs = a.FrequentQuestions(context.Background(), "user-2", 5)
	require.Len(t, qs, 1)
	before := store.calls
	_ = a.FrequentQuestions(context.Background(), "user-2", 5)
	assert.Equal(t, before, store.calls, "second call should hit the cache")
}
