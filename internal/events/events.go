package events

import (
	"context"
	"time"

	"voyagemail/internal/ingest"
	"voyagemail/pkg/mq"
)

// RoutingKeyIngested identifies message-ingested events on the exchange.
const RoutingKeyIngested = "csv.ingested"

// IngestedPayload is the JSON body published after a message is ingested.
type IngestedPayload struct {
	RunID      string    `json:"run_id"`
	MessageID  string    `json:"message_id"`
	DocType    string    `json:"doc_type"`
	Table      string    `json:"table"`
	Rows       int       `json:"rows"`
	IngestedAt time.Time `json:"ingested_at"`
}

// Publisher adapts the shared MQ publisher to the ingest.Notifier contract.
type Publisher struct {
	pub   *mq.Publisher
	runID string
}

func NewPublisher(pub *mq.Publisher, runID string) *Publisher {
	return &Publisher{pub: pub, runID: runID}
}

func (p *Publisher) MessageIngested(ctx context.Context, evt ingest.Ingestion) error {
	payload := IngestedPayload{
		RunID:      p.runID,
		MessageID:  evt.MessageID,
		DocType:    evt.DocType,
		Table:      evt.Table,
		Rows:       evt.Rows,
		IngestedAt: time.Now().UTC(),
	}
	return p.pub.Publish(ctx, RoutingKeyIngested, payload)
}
