package ingest

import (
	"context"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

// Loop is the consumer driver: it polls records, builds an owned record
// view, and hands it to the persister, which ticks the counter. It is strictly
// sequential; the only parallelism available comes from running more
// consumer instances (separate group members).
type Loop struct {
	client    *kgo.Client
	persister *Persister
	logger    *zap.Logger
}

// NewLoop builds a Loop over client, persisting through persister.
func NewLoop(client *kgo.Client, persister *Persister, logger *zap.Logger) *Loop {
	return &Loop{client: client, persister: persister, logger: logger}
}

// Run blocks processing records until ctx is canceled or a non-recoverable
// error occurs, in which case it returns that error. A canceled context is
// not treated as an error.
func (l *Loop) Run(ctx context.Context) error {
	for {
		fetches := l.client.PollFetches(ctx)
		if ctx.Err() != nil {
			return nil
		}

		if errs := fetches.Errors(); len(errs) > 0 {
			// A broker-level fetch error is fatal: the orchestrator
			// terminates the process so rebalance state is
			// re-established cleanly on restart.
			fe := errs[0]
			return fmt.Errorf("fetch error on %s[%d]: %w", fe.Topic, fe.Partition, fe.Err)
		}

		var iterErr error
		fetches.EachRecord(func(r *kgo.Record) {
			if iterErr != nil {
				return
			}
			iterErr = l.processOne(ctx, r)
		})
		if iterErr != nil {
			return iterErr
		}
	}
}

func (l *Loop) processOne(ctx context.Context, r *kgo.Record) error {
	rec, err := FromBrokerRecord(r)
	if err != nil {
		// A record-level conversion error (unconvertible timestamp) is
		// fatal: there is no way to persist the record correctly, and
		// skipping it silently would violate the no-skip guarantee.
		return fmt.Errorf("convert record: %w", err)
	}

	if err := l.persister.Persist(ctx, rec); err != nil {
		return fmt.Errorf("persist record: %w", err)
	}
	return nil
}
