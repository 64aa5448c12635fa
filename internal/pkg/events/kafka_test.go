package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaPublisherKeysByTransaction(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w}

	txID := uuid.New()
	usd := int64(10000)
	if err := p.Publish(context.Background(), Event{
		Type:          TypeTransactionSettled,
		TransactionID: txID,
		Kind:          "REFILL",
		Status:        "DONE",
		USDAmount:     &usd,
	}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	if len(w.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(w.msgs))
	}
	msg := w.msgs[0]
	if string(msg.Key) != txID.String() {
		t.Fatalf("expected key %s, got %s", txID, msg.Key)
	}

	var got Event
	if err := json.Unmarshal(msg.Value, &got); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if got.ID == uuid.Nil || got.OccurredAt.IsZero() {
		t.Fatalf("expected id and timestamp to be filled, got %+v", got)
	}
	if got.USDAmount == nil || *got.USDAmount != usd {
		t.Fatalf("expected usd_amount %d, got %v", usd, got.USDAmount)
	}
}

func TestKafkaPublisherPropagatesWriteError(t *testing.T) {
	boom := errors.New("broker unavailable")
	p := &KafkaPublisher{writer: &fakeWriter{err: boom}}

	err := p.Publish(context.Background(), Event{Type: TypeTransactionFailed, TransactionID: uuid.New()})
	if !errors.Is(err, boom) {
		t.Fatalf("expected broker error, got %v", err)
	}
}

func TestNewWithoutBrokersIsNoop(t *testing.T) {
	if _, ok := New(nil, "ledger.transactions").(NoopPublisher); !ok {
		t.Fatalf("expected NoopPublisher without brokers")
	}
}
