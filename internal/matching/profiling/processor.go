// internal/matching/profiling/processor.go
package profiling

import (
	"context"
	"fmt"

	apperrors "event-matchmaker/internal/common/errors"
	"event-matchmaker/internal/common/logger"
	"event-matchmaker/internal/common/metrics"
	"event-matchmaker/internal/models"
)

// TextGenerator produces free text for a prompt.
type TextGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// Embedder turns text into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// ProfileWriter persists derived profile fields.
type ProfileWriter interface {
	SaveProfileDerived(ctx context.Context, p *models.Profile) error
}

// Indexer mirrors embeddings into an external similarity index.
type Indexer interface {
	Upsert(ctx context.Context, p *models.Profile) error
}

// Processor fills in summary, intents, deal readiness and embedding for a profile.
type Processor struct {
	generator TextGenerator
	embedder  Embedder
	writer    ProfileWriter
	indexer   Indexer
	logger    logger.Logger
}

// NewProcessor builds a Processor. indexer may be nil.
func NewProcessor(generator TextGenerator, embedder Embedder, writer ProfileWriter, indexer Indexer, log logger.Logger) *Processor {
	return &Processor{
		generator: generator,
		embedder:  embedder,
		writer:    writer,
		indexer:   indexer,
		logger:    log.WithFields(map[string]interface{}{"component": "profiling"}),
	}
}

// Process returns a copy of p with derived fields populated and persisted.
// Summary and embedding failures are returned as PROVIDER_ERROR. Intent
// classification falls back to the default tag.
func (pr *Processor) Process(ctx context.Context, p *models.Profile) (*models.Profile, error) {
	out := *p
	out.Normalize()

	summary, err := pr.generator.GenerateContent(ctx, summaryPrompt(&out))
	if err != nil {
		return nil, apperrors.NewProviderError("summary", err)
	}
	out.Summary = summary

	out.IntentTags = pr.classifyIntents(ctx, &out)
	out.DealReadiness = DealReadiness(out.IntentTags)

	embedding, err := pr.embedder.Embed(ctx, CompositeText(&out))
	if err != nil {
		return nil, apperrors.NewProviderError("embedding", err)
	}
	if dims := pr.embedder.Dimensions(); dims > 0 && len(embedding) != dims {
		return nil, apperrors.NewProviderError("embedding",
			fmt.Errorf("got %d dimensions, want %d", len(embedding), dims))
	}
	out.Embedding = embedding

	if err := pr.writer.SaveProfileDerived(ctx, &out); err != nil {
		return nil, err
	}

	if pr.indexer != nil {
		if err := pr.indexer.Upsert(ctx, &out); err != nil {
			return nil, err
		}
	}

	pr.logger.Info("profile processed", map[string]interface{}{
		"profileId":     out.ID,
		"intentTags":    out.IntentTags,
		"dealReadiness": out.DealReadiness,
	})
	return &out, nil
}

func (pr *Processor) classifyIntents(ctx context.Context, p *models.Profile) []string {
	raw, err := pr.generator.GenerateContent(ctx, intentPrompt(p))
	if err != nil {
		pr.fallback(p.ID, "intent classification failed", err)
		return []string{DefaultIntent}
	}

	tags, ok := ParseIntents(raw)
	if !ok {
		pr.fallback(p.ID, "intent response unusable", nil)
		return []string{DefaultIntent}
	}
	return tags
}

func (pr *Processor) fallback(profileID, msg string, err error) {
	metrics.ProviderFallbacks.WithLabelValues("intents").Inc()
	fields := map[string]interface{}{"profileId": profileID}
	if err != nil {
		fields["error"] = err
	}
	pr.logger.Warn(msg, fields)
}
