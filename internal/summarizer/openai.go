package summarizer

import (
	"context"
	"errors"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/carelog/carelog/internal/config"
)

// openAISummarizer queries an ordered list of candidate models against
// the OpenAI chat completions API. A "model unavailable" error advances
// to the next candidate; a timeout or rate-limit aborts the whole
// attempt without trying further models.
type openAISummarizer struct {
	client *openai.Client
	cfg    config.SummarizerConfig
	logger *zap.Logger
}

// NewOpenAI builds the provider-backed summarizer.
func NewOpenAI(cfg config.SummarizerConfig, logger *zap.Logger) Summarizer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &openAISummarizer{
		client: openai.NewClientWithConfig(clientCfg),
		cfg:    cfg,
		logger: logger,
	}
}

func (s *openAISummarizer) Summarize(ctx context.Context, persona, content string) (string, error) {
	for _, model := range s.cfg.Models {
		text, err := s.complete(ctx, model, persona, content)
		if err == nil {
			return text, nil
		}
		if modelUnavailable(err) {
			s.logger.Warn("summarization model unavailable, trying next",
				zap.String("model", model), zap.Error(err))
			continue
		}
		// Timeouts and rate limits abort the attempt entirely; retrying
		// further models would only pile on.
		return "", err
	}
	return "", ErrExhausted
}

func (s *openAISummarizer) complete(ctx context.Context, model, persona, content string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout())
	defer cancel()

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: persona},
			{Role: openai.ChatMessageRoleUser, Content: content},
		},
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty completion response")
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("blank completion content")
	}
	return text, nil
}

// modelUnavailable classifies errors that justify advancing to the
// next candidate model rather than aborting.
func modelUnavailable(err error) bool {
	var apiErr *openai.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.HTTPStatusCode == http.StatusNotFound {
		return true
	}
	if code, ok := apiErr.Code.(string); ok {
		return code == "model_not_found" || code == "model_decommissioned"
	}
	return false
}
