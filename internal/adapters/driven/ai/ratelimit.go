package ai

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/ansera/internal/core/ports/driven"
)

// rateLimitedEmbedding throttles outbound embedding calls with a token
// bucket. Each port call consumes one token, so a batch counts the same
// as a single embed; pacing is about request volume, not item volume.
type rateLimitedEmbedding struct {
	inner  driven.EmbeddingService
	bucket *rate.Limiter
}

var _ driven.EmbeddingService = (*rateLimitedEmbedding)(nil)

// ThrottleEmbedding wraps an embedding service with a client-side rate
// limit of perSec calls per second. perSec <= 0 returns the service
// unwrapped; a nil service stays nil.
func ThrottleEmbedding(svc driven.EmbeddingService, perSec float64) driven.EmbeddingService {
	if svc == nil || perSec <= 0 {
		return svc
	}
	return &rateLimitedEmbedding{
		inner:  svc,
		bucket: rate.NewLimiter(rate.Limit(perSec), 1),
	}
}

// Embed generates a vector embedding for the given text.
func (s *rateLimitedEmbedding) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := s.bucket.Wait(ctx); err != nil {
		return nil, err
	}
	return s.inner.Embed(ctx, text)
}

// EmbedBatch generates embeddings for multiple texts.
func (s *rateLimitedEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := s.bucket.Wait(ctx); err != nil {
		return nil, err
	}
	return s.inner.EmbedBatch(ctx, texts)
}

// Dimensions returns the embedding vector size.
func (s *rateLimitedEmbedding) Dimensions() int {
	return s.inner.Dimensions()
}

// ModelName returns the name of the embedding model being used.
func (s *rateLimitedEmbedding) ModelName() string {
	return s.inner.ModelName()
}

// Ping validates the service is reachable. Pings are not throttled;
// they are cheap and the settings flow depends on them being prompt.
func (s *rateLimitedEmbedding) Ping(ctx context.Context) error {
	return s.inner.Ping(ctx)
}

// Close releases resources.
func (s *rateLimitedEmbedding) Close() error {
	return s.inner.Close()
}

// rateLimitedLLM throttles outbound generation calls with a token bucket.
type rateLimitedLLM struct {
	inner  driven.LLMService
	bucket *rate.Limiter
}

var _ driven.LLMService = (*rateLimitedLLM)(nil)

// ThrottleLLM wraps an LLM service with a client-side rate limit of
// perSec calls per second. perSec <= 0 returns the service unwrapped;
// a nil service stays nil.
func ThrottleLLM(svc driven.LLMService, perSec float64) driven.LLMService {
	if svc == nil || perSec <= 0 {
		return svc
	}
	return &rateLimitedLLM{
		inner:  svc,
		bucket: rate.NewLimiter(rate.Limit(perSec), 1),
	}
}

// Generate produces text completion from a prompt.
func (s *rateLimitedLLM) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	if err := s.bucket.Wait(ctx); err != nil {
		return "", err
	}
	return s.inner.Generate(ctx, prompt, opts)
}

// Chat conducts a multi-turn conversation.
func (s *rateLimitedLLM) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	if err := s.bucket.Wait(ctx); err != nil {
		return "", err
	}
	return s.inner.Chat(ctx, messages, opts)
}

// ModelName returns the name of the model being used.
func (s *rateLimitedLLM) ModelName() string {
	return s.inner.ModelName()
}

// Ping validates the service is reachable. Not throttled.
func (s *rateLimitedLLM) Ping(ctx context.Context) error {
	return s.inner.Ping(ctx)
}

// Close releases resources.
func (s *rateLimitedLLM) Close() error {
	return s.inner.Close()
}
