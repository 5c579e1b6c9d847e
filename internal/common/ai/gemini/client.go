// internal/common/ai/gemini/client.go
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"event-matchmaker/internal/common/config"
	httpclient "event-matchmaker/internal/common/http"
	"event-matchmaker/internal/common/logger"

	"google.golang.org/genai"
)

const (
	defaultTextModel      = "gemini-2.5-flash"
	defaultEmbeddingModel = "text-embedding-004"
)

// sleep is swapped out in tests.
var sleep = time.Sleep

type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// Client is the text generation and embedding provider backed by the Gemini API.
type Client struct {
	models         modelsAPI
	textModel      string
	embeddingModel string
	dimensions     int
	temperature    float32
	maxRetries     int
	logger         logger.Logger
}

func NewClient(ctx context.Context, cfg config.GenAIConfig, log logger.Logger) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("genai api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpclient.NewClient(config.GetDuration(cfg.Timeout)),
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newClient(client.Models, cfg, log), nil
}

func newClient(models modelsAPI, cfg config.GenAIConfig, log logger.Logger) *Client {
	textModel := strings.TrimSpace(cfg.TextModel)
	if textModel == "" {
		textModel = defaultTextModel
	}
	embeddingModel := strings.TrimSpace(cfg.EmbeddingModel)
	if embeddingModel == "" {
		embeddingModel = defaultEmbeddingModel
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}

	return &Client{
		models:         models,
		textModel:      textModel,
		embeddingModel: embeddingModel,
		dimensions:     cfg.EmbeddingDimensions,
		temperature:    float32(cfg.Temperature),
		maxRetries:     retries,
		logger:         log.WithFields(map[string]interface{}{"component": "gemini"}),
	}
}

// Dimensions is the fixed embedding width every vector from Embed has.
func (c *Client) Dimensions() int {
	return c.dimensions
}

// GenerateContent sends the prompt and returns the concatenated text parts of the response.
func (c *Client) GenerateContent(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	cfg := &genai.GenerateContentConfig{Temperature: genai.Ptr(c.temperature)}

	var resp *genai.GenerateContentResponse
	err := c.withRetry(ctx, "generate", func() error {
		var err error
		resp, err = c.models.GenerateContent(ctx, c.textModel, genai.Text(prompt), cfg)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", errors.New("genai returned empty response")
	}
	return output, nil
}

// Embed returns the embedding of text. The vector length is checked against Dimensions.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("embedding input must not be empty")
	}

	cfg := &genai.EmbedContentConfig{}
	if c.dimensions > 0 {
		cfg.OutputDimensionality = genai.Ptr(int32(c.dimensions))
	}

	var resp *genai.EmbedContentResponse
	err := c.withRetry(ctx, "embed", func() error {
		var err error
		resp, err = c.models.EmbedContent(ctx, c.embeddingModel, genai.Text(text), cfg)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("embed content: %w", err)
	}

	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, errors.New("genai returned no embedding")
	}
	values := resp.Embeddings[0].Values
	if c.dimensions > 0 && len(values) != c.dimensions {
		return nil, fmt.Errorf("embedding has %d dimensions, want %d", len(values), c.dimensions)
	}
	return values, nil
}

func (c *Client) withRetry(ctx context.Context, op string, call func() error) error {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			c.logger.Warn("retrying genai call", map[string]interface{}{
				"operation": op,
				"attempt":   attempt,
				"error":     lastErr,
			})
			sleep(backoff)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = call()
		if lastErr == nil {
			return nil
		}
		if !isTemporary(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

func isTemporary(err error) bool {
	code := 0
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		code = apiErr.Code
	case errors.As(err, &apiErrPtr) && apiErrPtr != nil:
		code = apiErrPtr.Code
	default:
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}

	switch code {
	case http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}
