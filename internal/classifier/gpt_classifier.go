package classifier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/parvaraval45-arch/feedpulse-cloudfare/internal/models"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const analysisPrompt = `Analyze this user feedback and respond with ONLY a JSON object, no other text.

Feedback: "%s"

Return exactly this structure:
{
    "sentiment": "positive" | "negative" | "neutral",
    "category": "bug" | "feature" | "praise" | "complaint",
    "priority": 1-5 (5 = most urgent),
    "themes": ["theme1", "theme2"] (up to %d short lowercase keywords)
}`

// ChatCompleter is the subset of the OpenAI client the classifier needs
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type GPTClassifier struct {
	client      ChatCompleter
	model       string
	maxTokens   int
	temperature float64
	maxThemes   int
	limiter     *rate.Limiter
	logger      *zap.Logger
}

// NewGPTClassifier builds a classifier against any OpenAI-compatible
// endpoint. An empty baseURL targets the OpenAI API.
func NewGPTClassifier(apiKey, baseURL, model string, maxTokens int, temperature float64, maxThemes int, logger *zap.Logger) *GPTClassifier {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return NewGPTClassifierWithClient(openai.NewClientWithConfig(cfg), model, maxTokens, temperature, maxThemes, logger)
}

func NewGPTClassifierWithClient(client ChatCompleter, model string, maxTokens int, temperature float64, maxThemes int, logger *zap.Logger) *GPTClassifier {
	if maxThemes <= 0 || maxThemes > models.MaxThemes {
		maxThemes = models.MaxThemes
	}
	return &GPTClassifier{
		client:      client,
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		maxThemes:   maxThemes,
		limiter:     rate.NewLimiter(rate.Inf, 1),
		logger:      logger,
	}
}

// WithRateLimit allows one model call per interval plus burst. Zero disables the limit.
func (c *GPTClassifier) WithRateLimit(every time.Duration, burst int) *GPTClassifier {
	if every <= 0 {
		c.limiter = rate.NewLimiter(rate.Inf, 1)
		return c
	}
	if burst < 1 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(rate.Every(every), burst)
	return c
}

// Analyze never fails: any transport or parse problem yields the default analysis.
func (c *GPTClassifier) Analyze(ctx context.Context, content string) models.Analysis {
	if err := c.limiter.Wait(ctx); err != nil {
		c.logger.Warn("Classifier rate limiter aborted", zap.Error(err))
		return models.DefaultAnalysis()
	}

	prompt := fmt.Sprintf(analysisPrompt, strings.ReplaceAll(content, `"`, `'`), c.maxThemes)

	resp, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			MaxTokens:   c.maxTokens,
			Temperature: float32(c.temperature),
		},
	)
	if err != nil {
		c.logger.Error("Failed to get classifier response", zap.Error(err))
		return models.DefaultAnalysis()
	}

	if len(resp.Choices) == 0 {
		c.logger.Warn("Classifier returned no choices", zap.String("model", c.model))
		return models.DefaultAnalysis()
	}

	response := strings.TrimSpace(resp.Choices[0].Message.Content)
	analysis, err := ParseAnalysis(response)
	if err != nil {
		c.logger.Error("Failed to parse classifier response",
			zap.Error(err),
			zap.String("response", response))
		return models.DefaultAnalysis()
	}

	return analysis
}
