// Package llm is the gateway to the embedding and chat completion
// endpoints. It owns prompt construction, truncation, retries, and the
// recovery ladder for structured JSON responses.
package llm

import (
	"context"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/whattherepo/whattherepo/internal/logging"
)

// EmbeddingDim is the fixed dimension of every stored vector.
const EmbeddingDim = 1536

// maxEmbedChars is the input truncation applied before every embedding call.
const maxEmbedChars = 8000

// Gateway wraps the OpenAI client. It is a process-wide singleton created
// at startup and passed explicitly to its consumers.
type Gateway struct {
	client     *openai.Client
	chatModel  string
	embedModel string
	timeout    time.Duration
	logger     *slog.Logger
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithChatModel overrides the default chat model.
func WithChatModel(model string) Option {
	return func(g *Gateway) {
		if model != "" {
			g.chatModel = model
		}
	}
}

// WithEmbedModel overrides the default embedding model.
func WithEmbedModel(model string) Option {
	return func(g *Gateway) {
		if model != "" {
			g.embedModel = model
		}
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// NewGateway creates a gateway authenticated with apiKey.
func NewGateway(apiKey string, opts ...Option) *Gateway {
	g := &Gateway{
		client:     openai.NewClient(apiKey),
		chatModel:  "gpt-4o-mini",
		embedModel: "text-embedding-ada-002",
		timeout:    30 * time.Second,
		logger:     logging.Component("llm"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// EmbedModel returns the embedding model name, used for cache keys.
func (g *Gateway) EmbedModel() string {
	return g.embedModel
}

// ZeroVector returns the all-zero embedding of the collection dimension.
func ZeroVector() []float32 {
	return make([]float32, EmbeddingDim)
}

// Truncate limits s to max characters.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

// Embed returns the embedding of text, truncated to 8000 characters before
// the call. One retry on failure, then the zero vector. The zero vector is
// a deliberate degradation: the row stays queryable by scalar filters.
func (g *Gateway) Embed(ctx context.Context, text string) []float32 {
	text = Truncate(text, maxEmbedChars)

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		resp, err := g.client.CreateEmbeddings(callCtx, openai.EmbeddingRequest{
			Model: openai.EmbeddingModel(g.embedModel),
			Input: []string{text},
		})
		cancel()
		if err == nil && len(resp.Data) > 0 {
			return resp.Data[0].Embedding
		}
		lastErr = err
	}

	g.logger.Warn("embedding failed, using zero vector", "model", g.embedModel, "error", lastErr)
	return ZeroVector()
}

// Chat sends a system+user completion request and returns the text.
func (g *Gateway) Chat(ctx context.Context, system, user string, maxTokens int, temperature float32) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model: g.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}

	g.logger.Debug("chat completion",
		"model", g.chatModel,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens)

	return resp.Choices[0].Message.Content, nil
}
