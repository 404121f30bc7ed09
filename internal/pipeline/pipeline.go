package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"

	"github.com/couchcryptid/threat-zone-service/internal/domain"
	"github.com/couchcryptid/threat-zone-service/internal/observability"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second

	// maxAssessAttempts bounds how often a scenario is assessed after
	// transient failures before it is dropped.
	maxAssessAttempts = 3
)

// BatchExtractor reads up to batchSize scenario messages from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// Transformer turns one scenario message into a serialized assessment.
// Errors wrapping domain.ErrInvalidScenario are permanent; anything else is
// treated as transient and retried.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawEvent) (domain.OutputEvent, error)
}

// BatchLoader publishes assessments to the sink.
type BatchLoader interface {
	LoadBatch(ctx context.Context, events []domain.OutputEvent) error
}

// Pipeline consumes release scenarios, assesses them and publishes the
// resulting threat zones. Offsets are committed only once a message's
// outcome is final: published, or rejected as invalid, or dropped after
// exhausting its retries.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	batchSize   int

	ready   atomic.Bool
	backoff backoff
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
		backoff:     newBackoff(),
	}
}

// CheckReadiness reports ready once at least one assessment has been
// published.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no assessments published yet")
	}
	return nil
}

// Run assesses batches until the context is cancelled. Broker failures are
// retried with exponential backoff and never end the loop.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	for p.cycle(ctx) {
	}
	p.logger.Info("pipeline stopping", "reason", context.Cause(ctx))
	return nil
}

// cycle runs one extract-assess-load round and reports whether to continue.
func (p *Pipeline) cycle(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	start := time.Now()

	batch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract batch failed", "error", err, "retry_in", p.backoff.current)
		return p.backoff.wait(ctx)
	}
	if len(batch) == 0 {
		return true
	}

	p.metrics.MessagesConsumed.Add(float64(len(batch)))
	p.metrics.BatchSize.Observe(float64(len(batch)))
	p.backoff.reset()

	assessed, pending := p.assessBatch(ctx, batch)
	if ctx.Err() != nil {
		return false
	}
	if len(assessed) == 0 {
		return true
	}

	if err := p.loader.LoadBatch(ctx, assessed); err != nil {
		// Leave offsets uncommitted so the batch is redelivered.
		p.logger.Error("publish assessments failed", "error", err, "batch_size", len(assessed))
		return p.backoff.wait(ctx)
	}
	p.metrics.MessagesProduced.Add(float64(len(assessed)))
	for _, raw := range pending {
		p.commit(ctx, raw)
	}

	p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
	p.ready.Store(true)
	return true
}

// assessBatch transforms every message in the batch. Messages whose outcome
// is already final are committed here; the rest are returned alongside their
// assessments and committed after publishing.
func (p *Pipeline) assessBatch(ctx context.Context, batch []domain.RawEvent) ([]domain.OutputEvent, []domain.RawEvent) {
	assessed := make([]domain.OutputEvent, 0, len(batch))
	pending := make([]domain.RawEvent, 0, len(batch))

	for _, raw := range batch {
		out, err := p.assess(ctx, raw)
		switch {
		case err == nil:
			assessed = append(assessed, out)
			pending = append(pending, raw)
		case ctx.Err() != nil:
			return nil, nil
		case errors.Is(err, domain.ErrInvalidScenario):
			p.metrics.InvalidScenarios.Inc()
			p.logger.Warn("invalid scenario, skipping", messageAttrs(raw, err)...)
			p.commit(ctx, raw)
		default:
			p.metrics.TransformErrors.Inc()
			p.logger.Error("assessment failed after retries, dropping", messageAttrs(raw, err)...)
			p.commit(ctx, raw)
		}
	}
	return assessed, pending
}

// assess runs the transformer, retrying transient failures with backoff.
func (p *Pipeline) assess(ctx context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	b := newBackoff()
	for attempt := 1; ; attempt++ {
		out, err := p.transformer.Transform(ctx, raw)
		if err == nil || errors.Is(err, domain.ErrInvalidScenario) || attempt == maxAssessAttempts {
			return out, err
		}
		p.metrics.TransformRetries.Inc()
		p.logger.Warn("assessment failed, retrying",
			append(messageAttrs(raw, err), "attempt", attempt, "retry_in", b.current)...)
		if !b.wait(ctx) {
			return domain.OutputEvent{}, ctx.Err()
		}
	}
}

func (p *Pipeline) commit(ctx context.Context, raw domain.RawEvent) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", messageAttrs(raw, err)...)
	}
}

func messageAttrs(raw domain.RawEvent, err error) []any {
	return []any{
		"error", err,
		"key", string(raw.Key),
		"topic", raw.Topic,
		"partition", raw.Partition,
		"offset", raw.Offset,
	}
}

// backoff is a doubling retry delay capped at maxBackoff.
type backoff struct {
	current time.Duration
}

func newBackoff() backoff {
	return backoff{current: initialBackoff}
}

func (b *backoff) reset() {
	b.current = initialBackoff
}

// wait sleeps for the current delay and doubles it. It returns false if the
// context ends first.
func (b *backoff) wait(ctx context.Context) bool {
	if !retry.SleepWithContext(ctx, b.current) {
		return false
	}
	b.current = retry.NextBackoff(b.current, maxBackoff)
	return true
}
