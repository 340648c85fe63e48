package syncer

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/openepidata/graph-etl/schema"
)

const (
	DefaultBatchSize  = 100
	DefaultMaxRetries = 5
)

// BatchState - lifecycle of one submission batch.
type BatchState int

const (
	BatchPending BatchState = iota
	BatchSubmitting
	BatchSubmitted
	BatchFailed
)

func (s BatchState) String() string {
	switch s {
	case BatchPending:
		return "pending"
	case BatchSubmitting:
		return "submitting"
	case BatchSubmitted:
		return "submitted"
	case BatchFailed:
		return "failed"
	}
	return "unknown"
}

// SubmissionFatalError - a batch exhausted its retry budget. The run aborts
// and the cursor is not advanced, so the next run safely re-attempts the
// same window.
type SubmissionFatalError struct {
	Batch    int
	Attempts int
	Err      error
}

func (e *SubmissionFatalError) Error() string {
	return fmt.Sprintf("batch %d failed after %d attempts: %s", e.Batch, e.Attempts, e.Err)
}

// BackoffFunc - delay before retry attempt n (starting at 1).
type BackoffFunc func(attempt int) time.Duration

// FixedBackoff - the same delay every retry, for simple network hiccups.
func FixedBackoff(d time.Duration) BackoffFunc {
	return func(int) time.Duration { return d }
}

// ExponentialBackoff - doubling delay, for calls expected to contend.
func ExponentialBackoff(base time.Duration) BackoffFunc {
	const maxDelay = time.Minute
	return func(attempt int) time.Duration {
		d := base << uint(attempt-1)
		if d > maxDelay || d <= 0 {
			return maxDelay
		}
		return d
	}
}

// RecordPutter - the single write surface the submitter needs.
type RecordPutter interface {
	PutRecords(ctx context.Context, records interface{}) error
}

// Submitter chunks a delta into bounded batches and submits them strictly in
// order: batch N+1 never starts before batch N reaches a terminal state,
// since later batches commonly reference identifiers created by earlier
// ones.
type Submitter struct {
	store      RecordPutter
	batchSize  int
	maxRetries int
	backoff    BackoffFunc

	// invoked with the last record of each fully submitted batch and the
	// first record of the batch after it, nil for the final batch; a cursor
	// policy hangs its Advance here
	afterBatch func(ctx context.Context, last, next schema.Record) error
}

// NewSubmitter - submitter over the given store. Zero batch size or retry
// budget fall back to the defaults; a nil backoff means fixed 5s.
func NewSubmitter(store RecordPutter, batchSize, maxRetries int, backoff BackoffFunc) *Submitter {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	if backoff == nil {
		backoff = FixedBackoff(5 * time.Second)
	}
	return &Submitter{
		store:      store,
		batchSize:  batchSize,
		maxRetries: maxRetries,
		backoff:    backoff,
	}
}

// OnBatchSubmitted registers the confirmed-batch hook.
func (s *Submitter) OnBatchSubmitted(fn func(ctx context.Context, last, next schema.Record) error) {
	s.afterBatch = fn
}

// Submit sends every record, in order, in bounded batches. The first batch
// to exhaust its retry budget aborts the whole run: a partially submitted
// dataset is preferable to silently continuing past an unrecoverable error.
func (s *Submitter) Submit(ctx context.Context, records []schema.Record) error {
	if len(records) == 0 {
		return nil
	}

	total := (len(records) + s.batchSize - 1) / s.batchSize
	for i := 0; i < len(records); i += s.batchSize {
		end := i + s.batchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[i:end]
		batchNo := i/s.batchSize + 1

		var next schema.Record
		if end < len(records) {
			next = records[end]
		}

		if err := s.submitBatch(ctx, batchNo, total, batch, next); err != nil {
			return err
		}
	}
	return nil
}

func (s *Submitter) submitBatch(ctx context.Context, batchNo, total int, batch []schema.Record, next schema.Record) error {
	state := BatchPending
	logger := log.WithFields(log.Fields{
		"prefix": logPrefix, "batch": batchNo, "of": total, "records": len(batch),
	})

	state = BatchSubmitting
	var lastErr error
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		lastErr = s.store.PutRecords(ctx, batch)
		if lastErr == nil {
			state = BatchSubmitted
			logger.WithField("state", state.String()).Info("batch submitted")

			if s.afterBatch != nil {
				if err := s.afterBatch(ctx, batch[len(batch)-1], next); err != nil {
					// the batch is durably stored but its confirmation is
					// not; aborting keeps re-submission idempotent
					state = BatchFailed
					return &SubmissionFatalError{Batch: batchNo, Attempts: attempt, Err: err}
				}
			}
			return nil
		}

		logger.WithFields(log.Fields{
			"state": state.String(), "attempt": attempt, "error": lastErr,
		}).Warn("batch submission failed")

		if attempt < s.maxRetries {
			select {
			case <-ctx.Done():
				state = BatchFailed
				return &SubmissionFatalError{Batch: batchNo, Attempts: attempt, Err: ctx.Err()}
			case <-time.After(s.backoff(attempt)):
			}
		}
	}

	state = BatchFailed
	logger.WithField("state", state.String()).Error("batch retry budget exhausted")
	return &SubmissionFatalError{Batch: batchNo, Attempts: s.maxRetries, Err: lastErr}
}
