package etl

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nortia-io/ordersync/pkg/metrics"
	"github.com/nortia-io/ordersync/pkg/repositories"
)

// PipelineName keys the watermark row for this pipeline.
const PipelineName = "ordersync"

// Orchestrator drives extract-transform-load passes and owns the watermark.
// It guarantees at most one pass in flight: RunContinuous only starts the
// next pass after the previous one has returned.
type Orchestrator struct {
	extractor   Extractor
	transformer Transformer
	loader      Loader
	watermarks  repositories.WatermarkRepository
	metrics     *metrics.Registry
	logger      *zap.Logger

	now func() time.Time
}

// NewOrchestrator wires the pipeline stages together.
func NewOrchestrator(
	extractor Extractor,
	transformer Transformer,
	loader Loader,
	watermarks repositories.WatermarkRepository,
	reg *metrics.Registry,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		extractor:   extractor,
		transformer: transformer,
		loader:      loader,
		watermarks:  watermarks,
		metrics:     reg,
		logger:      logger.Named("orchestrator"),
		now:         time.Now,
	}
}

// RunOnce executes exactly one pass. The watermark only advances after the
// load has committed; any failure leaves it untouched so the next pass
// re-extracts the same range. passStart is captured before extraction, so an
// order updated while the pass runs is picked up again on the next pass
// rather than lost - reprocessing is safe because loading is idempotent.
func (o *Orchestrator) RunOnce(ctx context.Context) error {
	passStart := o.now().UTC()
	logger := o.logger.With(zap.String("pass_id", uuid.NewString()))

	o.metrics.PassesTotal.Inc()
	defer func() {
		o.metrics.PassDurationSec.Observe(o.now().UTC().Sub(passStart).Seconds())
	}()

	err := o.runPass(ctx, passStart, logger)
	if err != nil {
		o.metrics.PassFailures.Inc()
	}
	return err
}

func (o *Orchestrator) runPass(ctx context.Context, passStart time.Time, logger *zap.Logger) error {
	since, err := o.watermarks.Get(ctx, PipelineName)
	if err != nil {
		return fmt.Errorf("reading watermark: %w", err)
	}

	batch, err := o.extractor.ExtractBatch(ctx, since)
	if err != nil {
		return err
	}

	if batch.Empty() {
		// No-op passes still move the watermark so the next pass doesn't
		// re-scan the same empty range.
		if err := o.watermarks.Set(ctx, PipelineName, passStart); err != nil {
			return fmt.Errorf("advancing watermark after empty pass: %w", err)
		}
		logger.Info("No new data to process", zap.Time("watermark", passStart))
		return nil
	}

	orders, items, err := o.transformer.Transform(batch)
	if err != nil {
		return err
	}

	if err := o.loader.Load(ctx, orders, items); err != nil {
		return err
	}

	if err := o.watermarks.Set(ctx, PipelineName, passStart); err != nil {
		return fmt.Errorf("advancing watermark after load: %w", err)
	}

	o.metrics.OrdersLoaded.Add(float64(len(orders)))
	o.metrics.OrderItemsLoaded.Add(float64(len(items)))

	logger.Info("Pass completed",
		zap.Int("orders", len(orders)),
		zap.Int("order_items", len(items)),
		zap.Time("watermark", passStart))
	return nil
}

// RunContinuous invokes RunOnce repeatedly, sleeping interval between pass
// completions (not between start times, so a slow pass never overlaps the
// next). Pass failures are logged and tolerated - transient store outages
// should self-heal on a later tick. Returns nil when ctx is cancelled;
// cancellation is observed during every sleep, bounding shutdown latency by
// interval.
func (o *Orchestrator) RunContinuous(ctx context.Context, interval time.Duration) error {
	o.logger.Info("Starting continuous synchronization", zap.Duration("interval", interval))

	for {
		if err := o.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				o.logger.Info("Stopping continuous synchronization")
				return nil
			}
			o.logger.Error("Pass failed, retrying on next tick", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			o.logger.Info("Stopping continuous synchronization")
			return nil
		case <-time.After(interval):
		}
	}
}
