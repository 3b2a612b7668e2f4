// Package chat answers user questions about an analyzed contract in the
// session's language, keeping conversation state in an explicit session
// store.
package chat

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/contract-cli/internal/llm"
	"github.com/sells-group/contract-cli/internal/session"
)

// Completer issues one completion against the prioritized backends.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// Translator is the plain-text translation capability the agent uses for
// non-English sessions.
type Translator interface {
	TranslateText(ctx context.Context, text, targetLang string) string
}

// QuestionAnalyzer updates per-user preference weights from a question.
type QuestionAnalyzer interface {
	Analyze(ctx context.Context, userID, question string) []string
}

// HistoryRecorder persists finished chat turns.
type HistoryRecorder interface {
	AppendChatHistory(ctx context.Context, userID, question, response string) error
}

const systemPrompt = `You are an expert legal assistant specialized in employment contracts. Your role is to help users understand the contract analysis provided and answer their questions.

IMPORTANT FORMATTING RULES:
1. Use plain text only - no Markdown, no asterisks, no special formatting
2. Use simple punctuation and natural language
3. Structure your response like a chat message
4. Use clear paragraphs with line breaks for readability
5. Use simple bullet points with dashes (-)
6. Avoid technical formatting or symbols

When responding:
- Be clear and direct
- Use everyday language
- Break complex ideas into simple points
- Structure information in an easy-to-read way
- If emphasizing something, use natural language like "Note:" or "Important:"

If asked about legal advice, remind users that you can only explain the analyses and cannot provide legal advice.`

// maxChatTokens bounds one chat completion.
const maxChatTokens = 2000

// markdownStripper removes formatting the model emits despite the rules.
var markdownStripper = strings.NewReplacer("**", "", "*", "", "`", "", "#", "", ">", "")

// Agent answers contract questions over a session.
type Agent struct {
	router     Completer
	sessions   session.Store
	translator Translator
	analyzer   QuestionAnalyzer
	history    HistoryRecorder
}

// NewAgent wires a chat agent. translator, analyzer and history may be nil
// to disable the corresponding side behavior.
func NewAgent(router Completer, sessions session.Store, translator Translator, analyzer QuestionAnalyzer, history HistoryRecorder) *Agent {
	return &Agent{
		router:     router,
		sessions:   sessions,
		translator: translator,
		analyzer:   analyzer,
		history:    history,
	}
}

// Ask answers one question within the session, translating to and from the
// session language when it is not English, and updates the user's
// preference weights from the question.
func (a *Agent) Ask(ctx context.Context, sessionID, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", eris.New("chat: question is empty")
	}

	sess, err := a.sessions.Get(ctx, sessionID)
	if err != nil {
		return "", eris.Wrap(err, "chat: load session")
	}

	englishQuestion := question
	if sess.Language != "en" && a.translator != nil {
		englishQuestion = a.translator.TranslateText(ctx, question, "en")
	}

	if a.analyzer != nil {
		a.analyzer.Analyze(ctx, sess.UserID, englishQuestion)
	}

	messages := []llm.Message{{Role: "system", Content: systemPrompt}}
	for _, m := range sess.Messages {
		messages = append(messages, llm.Message{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, llm.Message{
		Role:    "user",
		Content: "Context:\nOriginal Contract:\n" + sess.ContractText + "\n\nUser Question:\n" + englishQuestion,
	})

	resp, err := a.router.Complete(ctx, llm.Request{
		Messages:  messages,
		MaxTokens: maxChatTokens,
	})
	if err != nil {
		return "", eris.Wrap(err, "chat: completion")
	}

	answer := markdownStripper.Replace(resp.Text)
	if sess.Language != "en" && a.translator != nil {
		answer = a.translator.TranslateText(ctx, answer, sess.Language)
	}

	if err := a.sessions.AppendMessage(ctx, sessionID, session.Message{Role: "user", Content: question}); err != nil {
		zap.L().Warn("recording user turn failed", zap.Error(err))
	}
	if err := a.sessions.AppendMessage(ctx, sessionID, session.Message{Role: "assistant", Content: answer}); err != nil {
		zap.L().Warn("recording assistant turn failed", zap.Error(err))
	}
	if a.history != nil {
		if err := a.history.AppendChatHistory(ctx, sess.UserID, question, answer); err != nil {
			zap.L().Warn("persisting chat history failed", zap.Error(err))
		}
	}

	return answer, nil
}
