package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/dgallion1/hilens/internal/metrics"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	DefaultOpenAIModel = "text-embedding-3-small"
	maxBatch           = 256
)

// OpenAIConfig configures the OpenAI embeddings backend.
type OpenAIConfig struct {
	APIKey     string
	Model      string
	Dimensions int // 0 keeps the model default
	BaseURL    string
	Attempts   uint
	Timeout    time.Duration
}

// OpenAIBackend embeds with the OpenAI embeddings API.
type OpenAIBackend struct {
	client  openai.Client
	cfg     OpenAIConfig
	latency *metrics.Latency
	log     *slog.Logger
}

func NewOpenAIBackend(cfg OpenAIConfig, latency *metrics.Latency, log *slog.Logger) *OpenAIBackend {
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(cfg.Timeout),
		option.WithMaxRetries(0), // retried below
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAIBackend{client: openai.NewClient(opts...), cfg: cfg, latency: latency, log: log}
}

func (b *OpenAIBackend) Name() string { return "openai:" + b.cfg.Model }

func (b *OpenAIBackend) Dimensions() int {
	if b.cfg.Dimensions > 0 {
		return b.cfg.Dimensions
	}
	if b.cfg.Model == "text-embedding-3-large" {
		return 3072
	}
	return 1536
}

func (b *OpenAIBackend) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatch {
		end := min(start+maxBatch, len(texts))
		vecs, err := b.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed batch %d-%d: %w", start, end, err)
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (b *OpenAIBackend) embedBatch(ctx context.Context, texts []string) (vecs [][]float32, err error) {
	defer func(start time.Time) { b.latency.Since(metrics.OpEmbed, start, err) }(time.Now())

	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openai.EmbeddingModel(b.cfg.Model),
	}
	if b.cfg.Dimensions > 0 {
		params.Dimensions = openai.Int(int64(b.cfg.Dimensions))
	}

	var resp *openai.CreateEmbeddingResponse
	err = retry.Do(
		func() error {
			var callErr error
			resp, callErr = b.client.Embeddings.New(ctx, params)
			return callErr
		},
		retry.Context(ctx),
		retry.Attempts(b.cfg.Attempts),
		retry.Delay(time.Second),
		retry.RetryIf(isRetryable),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			b.log.Warn("embedding request failed, retrying", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	vecs = make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(texts) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		v := make([]float32, len(d.Embedding))
		for i, x := range d.Embedding {
			v[i] = float32(x)
		}
		vecs[d.Index] = v
	}
	return vecs, nil
}

// isRetryable retries rate limits, server errors and transport failures.
func isRetryable(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
