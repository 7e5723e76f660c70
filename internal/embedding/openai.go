package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "text-embedding-3-small"
	DefaultTimeout = 60 * time.Second

	// maxInputChars is the per-text character ceiling imposed before
	// transmission. Longer texts are truncated, not rejected: the
	// contract is best-effort representation.
	maxInputChars = 8000

	// maxBatchSize is the provider's per-request input limit.
	maxBatchSize = 100
)

// ErrMissingAPIKey is returned at construction when no provider credential
// is configured. The check is eager so misconfiguration surfaces at startup
// rather than on the first embedding call.
var ErrMissingAPIKey = errors.New("embedding: API key is not configured")

// ProviderError wraps a failure of the remote embedding provider:
// unreachable endpoint, non-2xx status, or malformed response body.
type ProviderError struct {
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("embedding provider: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("embedding provider: %s", e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Config holds configuration for the OpenAI embedding client.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// Can be changed for Azure OpenAI or compatible APIs.
	BaseURL string

	// Model is the embedding model to use (default: text-embedding-3-small).
	Model string

	// Dimensions is the fixed output dimensionality (default: 1536).
	Dimensions int

	// Timeout is the request timeout (default: 60s).
	Timeout time.Duration
}

// OpenAIClient generates embeddings using the OpenAI embeddings API.
type OpenAIClient struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	model      string
	dimensions int
	logger     *zap.Logger
}

var _ Client = (*OpenAIClient)(nil)

// embeddingRequest is the OpenAI API request format.
type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// embeddingResponse is the OpenAI API response format.
type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewOpenAIClient creates a new OpenAI embedding client.
// Returns ErrMissingAPIKey when no credential is configured.
func NewOpenAIClient(cfg Config, logger *zap.Logger) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = 1536
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &OpenAIClient{
		client:     &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		logger:     logger,
	}, nil
}

// Dimensions returns the fixed output dimensionality of the model.
func (c *OpenAIClient) Dimensions() int {
	return c.dimensions
}

// Embed generates an embedding for a single text.
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float64, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, &ProviderError{Message: "no embedding returned"}
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings for multiple texts, splitting the input
// into provider-sized batches and preserving input order across them.
func (c *OpenAIClient) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch := make([]string, 0, end-start)
		for _, text := range texts[start:end] {
			batch = append(batch, truncate(text, maxInputChars))
		}

		batchVectors, err := c.embedBatch(ctx, batch)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batchVectors...)
	}

	c.logger.Debug("generated embeddings",
		zap.Int("texts", len(texts)),
		zap.String("model", c.model))

	return vectors, nil
}

// embedBatch performs one provider request for at most maxBatchSize texts.
func (c *OpenAIClient) embedBatch(ctx context.Context, batch []string) ([][]float64, error) {
	body, err := json.Marshal(embeddingRequest{Model: c.model, Input: batch})
	if err != nil {
		return nil, fmt.Errorf("embedding: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embedding: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &ProviderError{Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{Message: "read response", Err: err}
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, &ProviderError{Message: "malformed response", Err: err}
	}
	if parsed.Error != nil {
		return nil, &ProviderError{Message: parsed.Error.Message}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{Message: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}
	if len(parsed.Data) != len(batch) {
		return nil, &ProviderError{
			Message: fmt.Sprintf("expected %d embeddings, got %d", len(batch), len(parsed.Data)),
		}
	}

	// The API documents response order as matching input order; honor the
	// index field anyway so a reordered response cannot scramble vectors.
	vectors := make([][]float64, len(batch))
	for _, item := range parsed.Data {
		if item.Index < 0 || item.Index >= len(batch) {
			return nil, &ProviderError{Message: fmt.Sprintf("embedding index %d out of range", item.Index)}
		}
		vectors[item.Index] = item.Embedding
	}
	return vectors, nil
}

func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	// Back off to a rune boundary so the cut never produces invalid UTF-8.
	cut := limit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}
