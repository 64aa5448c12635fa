// Package wakeup nudges settlement workers to poll immediately instead of
// waiting for the next tick. Polling stays the source of truth; a lost
// wake-up only delays settlement until the next interval.
package wakeup

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const Channel = "ledger:transactions:wakeup"

type Notifier interface {
	Notify(ctx context.Context) error
}

type RedisNotifier struct {
	rdb *redis.Client
}

// New returns a Redis-backed notifier, or a no-op one when rdb is nil.
func New(rdb *redis.Client) Notifier {
	if rdb == nil {
		return Noop{}
	}
	return &RedisNotifier{rdb: rdb}
}

func (n *RedisNotifier) Notify(ctx context.Context) error {
	return n.rdb.Publish(ctx, Channel, "1").Err()
}

type Noop struct{}

func (Noop) Notify(context.Context) error { return nil }

// Subscribe forwards wake-ups into wake until ctx is done. Sends are
// non-blocking: a pending signal already covers any number of new ones.
func Subscribe(ctx context.Context, rdb *redis.Client, wake chan<- struct{}) {
	if rdb == nil {
		return
	}

	sub := rdb.Subscribe(ctx, Channel)
	defer func() { _ = sub.Close() }()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ch:
			if !ok {
				log.Warn().Msg("wake-up subscription closed")
				return
			}
			Signal(wake)
		}
	}
}

// Signal performs a non-blocking send on wake.
func Signal(wake chan<- struct{}) {
	select {
	case wake <- struct{}{}:
	default:
	}
}

// Local fans notifications into an in-process channel. Used when the API
// embeds the worker.
type Local struct {
	wake chan<- struct{}
	next Notifier
}

func NewLocal(wake chan<- struct{}, next Notifier) *Local {
	if next == nil {
		next = Noop{}
	}
	return &Local{wake: wake, next: next}
}

func (l *Local) Notify(ctx context.Context) error {
	Signal(l.wake)
	return l.next.Notify(ctx)
}
