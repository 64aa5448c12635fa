package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event types emitted after a settlement attempt reaches a terminal state.
const (
	TypeTransactionSettled = "transaction.settled"
	TypeTransactionFailed  = "transaction.failed"
)

// Event is the payload published for downstream consumers (notifications,
// operator alerting, reporting).
type Event struct {
	ID            uuid.UUID  `json:"id"`
	Type          string     `json:"type"`
	TransactionID uuid.UUID  `json:"transaction_id"`
	Kind          string     `json:"kind"`
	Status        string     `json:"status"`
	OperationID   *uuid.UUID `json:"operation_id,omitempty"`
	USDAmount     *int64     `json:"usd_amount,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	OccurredAt    time.Time  `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NoopPublisher drops every event. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }
func (NoopPublisher) Close() error                         { return nil }
