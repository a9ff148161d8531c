package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Deduper remembers message ids across runs so mailboxes that are not
// flag-managed (mbox files, shared inboxes) are not ingested twice.
type Deduper struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func New(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *Deduper {
	return &Deduper{
		rdb:    rdb,
		ttl:    ttl,
		logger: logger,
	}
}

func key(messageID string) string {
	return fmt.Sprintf("voyagemail:ingested:%s", messageID)
}

// AlreadyProcessed reports whether a message id was marked by an earlier run.
// When Redis is unreachable the message is treated as new and a warning is
// logged, so a dedup outage never blocks ingestion.
func (d *Deduper) AlreadyProcessed(ctx context.Context, messageID string) bool {
	n, err := d.rdb.Exists(ctx, key(messageID)).Result()
	if err != nil {
		d.logger.Warn("Redis dedup check failed, allowing processing",
			zap.String("message_id", messageID),
			zap.Error(err),
		)
		return false
	}
	return n > 0
}

// MarkProcessed records a message id after it was ingested successfully.
// Marking only on success lets a failed message be retried by the next run.
func (d *Deduper) MarkProcessed(ctx context.Context, messageID string) error {
	return d.rdb.Set(ctx, key(messageID), 1, d.ttl).Err()
}
