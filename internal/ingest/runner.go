package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"voyagemail/internal/model"
	"voyagemail/pkg/metrics"
)

// Source yields mail messages one at a time. Next returns io.EOF once the
// inbox is exhausted.
type Source interface {
	SelectInbox(ctx context.Context) error
	Next(ctx context.Context) (*model.Message, error)
	Close() error
}

// Deduper skips messages already ingested by an earlier run. It is optional;
// a nil Deduper means every fetched message is offered to the service.
type Deduper interface {
	AlreadyProcessed(ctx context.Context, messageID string) bool
	MarkProcessed(ctx context.Context, messageID string) error
}

// RunStats totals one ingestion pass.
type RunStats struct {
	Fetched    int
	Handled    int
	Unmatched  int
	Duplicates int
}

type Runner struct {
	svc    *Service
	dedup  Deduper
	logger *zap.Logger
}

func NewRunner(svc *Service, dedup Deduper, logger *zap.Logger) *Runner {
	return &Runner{
		svc:    svc,
		dedup:  dedup,
		logger: logger,
	}
}

// Run drains the source through the ingestion service. Messages matching no
// document type are counted and skipped; the first processing or transport
// error stops the pass so a config or storage problem is seen immediately.
func (r *Runner) Run(ctx context.Context, src Source) (RunStats, error) {
	var stats RunStats

	if err := src.SelectInbox(ctx); err != nil {
		return stats, fmt.Errorf("select inbox: %w", err)
	}

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		msg, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("fetch message: %w", err)
		}
		stats.Fetched++

		if r.dedup != nil && msg.ID != "" && r.dedup.AlreadyProcessed(ctx, msg.ID) {
			stats.Duplicates++
			metrics.IncrementEmailProcessed("duplicate")
			r.logger.Info("skipping already ingested message",
				zap.String("message_id", msg.ID),
			)
			continue
		}

		start := time.Now()
		handled, err := r.svc.ProcessMessage(ctx, msg)
		if err != nil {
			metrics.IncrementEmailProcessed("failed")
			metrics.RecordMessageIngestDuration("failed", time.Since(start))
			return stats, fmt.Errorf("process message %q: %w", msg.ID, err)
		}

		if handled {
			stats.Handled++
			metrics.IncrementEmailProcessed("success")
			metrics.RecordMessageIngestDuration("success", time.Since(start))
			if r.dedup != nil && msg.ID != "" {
				if err := r.dedup.MarkProcessed(ctx, msg.ID); err != nil {
					r.logger.Warn("failed to mark message as processed",
						zap.String("message_id", msg.ID),
						zap.Error(err),
					)
				}
			}
		} else {
			stats.Unmatched++
			metrics.IncrementEmailProcessed("no_match")
			r.logger.Info("message matched no document type",
				zap.String("message_id", msg.ID),
				zap.String("subject", msg.Subject),
			)
		}
	}

	r.logger.Info("ingestion pass finished",
		zap.Int("fetched", stats.Fetched),
		zap.Int("handled", stats.Handled),
		zap.Int("unmatched", stats.Unmatched),
		zap.Int("duplicates", stats.Duplicates),
	)
	return stats, nil
}
