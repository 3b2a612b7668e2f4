package llm

import (
	"context"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/contract-cli/internal/resilience"
	"github.com/sells-group/contract-cli/pkg/anthropic"
	"github.com/sells-group/contract-cli/pkg/openrouter"
)

// OpenRouterTarget adapts an openrouter.Client to the Target interface.
type OpenRouterTarget struct {
	client openrouter.Client
	model  string
}

// NewOpenRouterTarget creates a target calling the given OpenRouter model.
func NewOpenRouterTarget(client openrouter.Client, model string) *OpenRouterTarget {
	return &OpenRouterTarget{client: client, model: model}
}

func (t *OpenRouterTarget) Name() string {
	return "openrouter/" + t.model
}

func (t *OpenRouterTarget) Complete(ctx context.Context, req Request) (*Response, error) {
	orReq := openrouter.ChatCompletionRequest{
		Model:       t.model,
		Temperature: req.Temperature,
	}
	if req.MaxTokens > 0 {
		mt := req.MaxTokens
		orReq.MaxTokens = &mt
	}
	for _, m := range req.Messages {
		orReq.Messages = append(orReq.Messages, openrouter.Message{Role: m.Role, Content: m.Content})
	}

	resp, err := t.client.ChatCompletion(ctx, orReq)
	if err != nil {
		return nil, classifyError(err)
	}
	if len(resp.Choices) == 0 {
		// An empty payload is treated like a transient server fault.
		return nil, resilience.NewTransientError(eris.New("openrouter: no choices in response"), 0)
	}

	return &Response{
		Text:         strings.TrimSpace(resp.Choices[0].Message.Content),
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}

// classifyError maps an openrouter.APIError onto the retry taxonomy:
// 408/429/5xx retryable, other 4xx terminal.
func classifyError(err error) error {
	var apiErr *openrouter.APIError
	if !eris.As(err, &apiErr) {
		return err
	}
	if resilience.IsTransientHTTPStatus(apiErr.StatusCode) {
		return resilience.NewTransientError(apiErr, apiErr.StatusCode)
	}
	if apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
		return resilience.NewStatusError(apiErr.StatusCode, apiErr.Body)
	}
	return err
}

// classifyAnthropicError maps an anthropic.APIError onto the same retry
// taxonomy as classifyError so the fallback backend retries 429s and 5xx.
func classifyAnthropicError(err error) error {
	var apiErr *anthropic.APIError
	if !eris.As(err, &apiErr) {
		return err
	}
	if resilience.IsTransientHTTPStatus(apiErr.StatusCode) {
		return resilience.NewTransientError(apiErr, apiErr.StatusCode)
	}
	if apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
		return resilience.NewStatusError(apiErr.StatusCode, apiErr.Body)
	}
	return err
}

// AnthropicTarget adapts an anthropic.Client to the Target interface.
type AnthropicTarget struct {
	client anthropic.Client
	model  string
}

// NewAnthropicTarget creates a target calling the given Claude model.
func NewAnthropicTarget(client anthropic.Client, model string) *AnthropicTarget {
	return &AnthropicTarget{client: client, model: model}
}

func (t *AnthropicTarget) Name() string {
	return "anthropic/" + t.model
}

func (t *AnthropicTarget) Complete(ctx context.Context, req Request) (*Response, error) {
	aReq := anthropic.MessageRequest{
		Model:       t.model,
		MaxTokens:   int64(req.MaxTokens),
		Temperature: req.Temperature,
	}
	if aReq.MaxTokens <= 0 {
		aReq.MaxTokens = 1024
	}

	// The SDK takes the system prompt out of band.
	for _, m := range req.Messages {
		if m.Role == "system" {
			if aReq.System != "" {
				aReq.System += "\n\n"
			}
			aReq.System += m.Content
			continue
		}
		aReq.Messages = append(aReq.Messages, anthropic.Message{Role: m.Role, Content: m.Content})
	}

	resp, err := t.client.CreateMessage(ctx, aReq)
	if err != nil {
		return nil, classifyAnthropicError(err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, resilience.NewTransientError(eris.New("anthropic: empty completion"), 0)
	}

	return &Response{
		Text:         text,
		InputTokens:  int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
	}, nil
}

// TargetSpec is one entry of a targets.yaml file.
type TargetSpec struct {
	Backend     string `yaml:"backend"` // "openrouter" or "anthropic"
	Model       string `yaml:"model"`
	MaxAttempts int    `yaml:"max_attempts"`
	BackoffSecs int    `yaml:"backoff_secs"`
}

// TargetsFile is the top-level structure of a targets.yaml file.
type TargetsFile struct {
	Targets []TargetSpec `yaml:"targets"`
}

// LoadTargets reads a prioritized backend target list from a YAML file.
func LoadTargets(path string) (*TargetsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "llm: read targets %s", path)
	}

	var tf TargetsFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, eris.Wrap(err, "llm: parse targets")
	}
	if len(tf.Targets) == 0 {
		return nil, eris.New("llm: targets file defines no targets")
	}
	for i, spec := range tf.Targets {
		switch spec.Backend {
		case "openrouter", "anthropic":
		default:
			return nil, eris.Errorf("llm: target %d: unknown backend %q", i, spec.Backend)
		}
		if spec.Model == "" {
			return nil, eris.Errorf("llm: target %d: model is required", i)
		}
	}
	return &tf, nil
}
