package syncer_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/openepidata/graph-etl/schema"
	"github.com/openepidata/graph-etl/syncer"
)

func TestSubmitChunksInOrder(t *testing.T) {
	store := newFakeStore()
	s := syncer.NewSubmitter(store, 2, 3, syncer.FixedBackoff(0))

	records := []schema.Record{
		clinicalRecord("2020-03-11"),
		clinicalRecord("2020-03-12"),
		clinicalRecord("2020-03-13"),
		clinicalRecord("2020-03-14"),
		clinicalRecord("2020-03-15"),
	}

	assert.NoError(t, s.Submit(context.Background(), records))
	assert.Equal(t, 3, len(store.puts))
	assert.Equal(t, 2, len(store.puts[0]))
	assert.Equal(t, 1, len(store.puts[2]))
	assert.Equal(t, "2020-03-11", store.puts[0][0].(schema.SummaryClinical).Date)
	assert.Equal(t, "2020-03-15", store.puts[2][0].(schema.SummaryClinical).Date)
}

func TestSubmitRetriesThenSucceeds(t *testing.T) {
	store := newFakeStore()
	store.putErrs = 2
	s := syncer.NewSubmitter(store, 10, 5, syncer.FixedBackoff(0))

	err := s.Submit(context.Background(), []schema.Record{clinicalRecord("2020-03-15")})
	assert.NoError(t, err)
	assert.Equal(t, 3, store.putCalls, "two failures then one success")
}

func TestSubmitFatalAfterBudget(t *testing.T) {
	store := newFakeStore()
	store.putErrs = 1000
	s := syncer.NewSubmitter(store, 10, 3, syncer.FixedBackoff(0))

	err := s.Submit(context.Background(), []schema.Record{clinicalRecord("2020-03-15")})
	assert.Error(t, err)

	fatal, ok := err.(*syncer.SubmissionFatalError)
	assert.True(t, ok, "expected SubmissionFatalError")
	assert.Equal(t, 1, fatal.Batch)
	assert.Equal(t, 3, fatal.Attempts)
}

// If submission fails after N of M batches succeed, the cursor must equal
// the last fact of the Nth batch; re-running from it re-submits exactly the
// facts from batch N+1 onward.
func TestCursorSafetyOnMidRunFailure(t *testing.T) {
	store := newFakeStore()
	planner := syncer.NewCursorPlanner(store, "last_submitted")

	candidates := []schema.Record{
		clinicalRecord("2020-03-11"),
		clinicalRecord("2020-03-12"),
		clinicalRecord("2020-03-13"),
		clinicalRecord("2020-03-14"),
		clinicalRecord("2020-03-15"),
		clinicalRecord("2020-03-16"),
	}

	delta, err := planner.Plan(context.Background(), candidates)
	assert.NoError(t, err)
	assert.Equal(t, 6, len(delta))

	s := syncer.NewSubmitter(store, 2, 2, syncer.FixedBackoff(0))
	s.OnBatchSubmitted(planner.Advance)

	// batches 1 and 2 succeed (2 calls), then every attempt at batch 3 fails
	store.putFailAfter = 2

	err = s.Submit(context.Background(), delta)
	assert.Error(t, err)
	assert.Equal(t, "2020-03-14", store.fields["last_submitted"],
		"cursor stops at the last fact of the last fully submitted batch")

	// the next run picks up exactly the unsubmitted tail
	store.putFailAfter = 0
	store.putCalls = 0
	store.puts = nil

	rerun := syncer.NewCursorPlanner(store, "last_submitted")
	delta, err = rerun.Plan(context.Background(), candidates)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(delta), "no gap, no duplicate beyond the idempotent upsert")
	assert.Equal(t, "2020-03-15", delta[0].(schema.SummaryClinical).Date)
	assert.Equal(t, "2020-03-16", delta[1].(schema.SummaryClinical).Date)
}

// A batch boundary can split a calendar day. The cursor must not advance to
// that day until its last record is confirmed, or a failure in the next
// batch would leave never-submitted same-day facts behind the cursor.
func TestCursorHoldsWhenDaySpansBatches(t *testing.T) {
	store := newFakeStore()
	planner := syncer.NewCursorPlanner(store, "last_submitted")

	candidates := []schema.Record{
		stateClinicalRecord("Illinois", "2020-03-15"),
		stateClinicalRecord("New York", "2020-03-15"),
	}

	delta, err := planner.Plan(context.Background(), candidates)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(delta))

	s := syncer.NewSubmitter(store, 1, 2, syncer.FixedBackoff(0))
	s.OnBatchSubmitted(planner.Advance)

	// batch 1 succeeds, every attempt at batch 2 fails
	store.putFailAfter = 1

	err = s.Submit(context.Background(), delta)
	assert.Error(t, err)
	assert.Equal(t, "", store.fields["last_submitted"],
		"a partially submitted day never moves the cursor")

	// the next run re-plans the whole day; the already stored record is an
	// idempotent re-upsert, the other was never submitted
	store.putFailAfter = 0
	store.putCalls = 0

	rerun := syncer.NewCursorPlanner(store, "last_submitted")
	delta, err = rerun.Plan(context.Background(), candidates)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(delta), "no same-day record is left behind the cursor")
	assert.Equal(t, candidates[1].RecordID(), delta[1].RecordID())
}

func TestBackoffDisciplines(t *testing.T) {
	fixed := syncer.FixedBackoff(5 * time.Second)
	assert.Equal(t, 5*time.Second, fixed(1))
	assert.Equal(t, 5*time.Second, fixed(4))

	exp := syncer.ExponentialBackoff(time.Second)
	assert.Equal(t, time.Second, exp(1))
	assert.Equal(t, 2*time.Second, exp(2))
	assert.Equal(t, 4*time.Second, exp(3))
	assert.Equal(t, time.Minute, exp(20), "exponential backoff is capped")
}

func TestBatchStateString(t *testing.T) {
	assert.Equal(t, "pending", syncer.BatchPending.String())
	assert.Equal(t, "submitting", syncer.BatchSubmitting.String())
	assert.Equal(t, "submitted", syncer.BatchSubmitted.String())
	assert.Equal(t, "failed", syncer.BatchFailed.String())
}
