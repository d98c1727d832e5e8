package sentiment

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	openai "github.com/sashabaranov/go-openai"

	"review_insights/internal/adapters/observability"
	"review_insights/internal/domain"
)

const llmSystemPrompt = "You label the sentiment of app store reviews. " +
	"Answer with exactly one word: positive, neutral or negative."

// ChatCompleter is the part of the OpenAI client the classifier needs.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// LLMClassifier is a categorical strategy backed by any OpenAI-compatible
// chat endpoint.
type LLMClassifier struct {
	c        ChatCompleter
	model    string
	attempts int
}

func NewLLMClassifier(base, key, model string) (*LLMClassifier, error) {
	if model == "" {
		return nil, fmt.Errorf("%w: LLM model is required", domain.ErrInvalidArgument)
	}
	cfg := openai.DefaultConfig(key)
	if base != "" {
		cfg.BaseURL = strings.TrimRight(base, "/")
	}
	return NewLLMClassifierWithClient(openai.NewClientWithConfig(cfg), model), nil
}

func NewLLMClassifierWithClient(c ChatCompleter, model string) *LLMClassifier {
	return &LLMClassifier{c: c, model: model, attempts: 3}
}

func (l *LLMClassifier) Classify(ctx context.Context, text string) (domain.TextSentiment, error) {
	req := openai.ChatCompletionRequest{
		Model: l.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: llmSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Temperature: 0,
		MaxTokens:   4,
	}

	var lastErr error
	for i := 0; i < l.attempts; i++ {
		start := time.Now()
		resp, err := l.c.CreateChatCompletion(ctx, req)
		if err == nil {
			observability.ObserveExternal("llm", 200, time.Since(start))
			if len(resp.Choices) == 0 {
				return domain.TextSentiment{}, ErrNoPrediction
			}
			return domain.TextSentiment{Label: parseReply(resp.Choices[0].Message.Content)}, nil
		}
		observability.ObserveExternal("llm", 0, time.Since(start))
		if ctx.Err() != nil {
			return domain.TextSentiment{}, ctx.Err()
		}
		lastErr = fmt.Errorf("llm: create completion: %w", err)
		if i < l.attempts-1 && !sleepCtx(ctx, backoff(i)) {
			return domain.TextSentiment{}, ctx.Err()
		}
	}
	return domain.TextSentiment{}, lastErr
}

// parseReply takes the first word of the answer, ignoring case and punctuation.
// Unrecognised answers are returned as-is.
func parseReply(s string) domain.SentimentLabel {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	if len(fields) == 0 {
		return domain.SentimentLabel(strings.TrimSpace(s))
	}
	if l, ok := domain.ParseLabel(fields[0]); ok {
		return l
	}
	return domain.SentimentLabel(strings.TrimSpace(s))
}
