// Package queue assigns per-campaign queue numbers to checked-in donors.
//
// Numbers are reserved by reading the campaign's current maximum (or a Redis counter) and committed by
// the caller's write. The (campaign_id, queue_number) unique constraint rejects a losing concurrent
// writer with repository.ErrQueueNumberTaken, after which the whole read-compute-write cycle is retried
// up to a small bound.
package queue

import (
	"context"
	"errors"

	"github.com/spec-kit/blood-drive-checkin/internal/domain"
	"github.com/spec-kit/blood-drive-checkin/internal/repository"
)

// CommitFunc persists the check-in using the reserved queue number.
type CommitFunc func(ctx context.Context, queueNumber int) (*domain.Registration, error)

// Assigner reserves a queue number for one check-in and commits it.
type Assigner interface {
	Assign(ctx context.Context, campaignID string, commit CommitFunc) (*domain.Registration, error)
}

// MaxSource reports the highest queue number already assigned in a campaign.
type MaxSource interface {
	MaxQueueNumber(ctx context.Context, campaignID string) (int, error)
}

// Option customizes an assigner.
type Option func(*options)

type options struct {
	maxRetries int
	onConflict func(campaignID string)
}

// WithMaxRetries bounds how many times a conflicting commit is retried. Zero disables retries.
func WithMaxRetries(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.maxRetries = n
		}
	}
}

// WithConflictHook is invoked every time a commit loses a queue number race.
func WithConflictHook(fn func(campaignID string)) Option {
	return func(o *options) {
		o.onConflict = fn
	}
}

func buildOptions(opts []Option) options {
	o := options{maxRetries: 3}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// DatabaseAssigner computes max+1 from the registration ledger.
type DatabaseAssigner struct {
	source MaxSource
	locks  *keyedMutex
	opts   options
}

// NewDatabaseAssigner builds an assigner backed by the ledger's current maximum.
func NewDatabaseAssigner(source MaxSource, opts ...Option) *DatabaseAssigner {
	return &DatabaseAssigner{
		source: source,
		locks:  newKeyedMutex(),
		opts:   buildOptions(opts),
	}
}

// Assign implements Assigner.
func (a *DatabaseAssigner) Assign(ctx context.Context, campaignID string, commit CommitFunc) (*domain.Registration, error) {
	unlock := a.locks.Lock(campaignID)
	defer unlock()

	for attempt := 0; ; attempt++ {
		max, err := a.source.MaxQueueNumber(ctx, campaignID)
		if err != nil {
			return nil, err
		}
		reg, err := commit(ctx, max+1)
		if err == nil {
			return reg, nil
		}
		if !shouldRetry(a.opts, campaignID, err, attempt) {
			return nil, err
		}
	}
}

func shouldRetry(o options, campaignID string, err error, attempt int) bool {
	if !errors.Is(err, repository.ErrQueueNumberTaken) {
		return false
	}
	if o.onConflict != nil {
		o.onConflict(campaignID)
	}
	return attempt < o.maxRetries
}
