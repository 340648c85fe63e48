package syncer_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/openepidata/graph-etl/schema"
	"github.com/openepidata/graph-etl/syncer"
)

// fakeStore - in-memory metadata store for planner and submitter tests.
type fakeStore struct {
	ids      []string
	listErrs int // number of leading ListSubmitterIDs calls that fail
	fields   map[string]string

	puts         [][]schema.Record
	putErrs      int // number of leading PutRecords calls that fail
	putFailAfter int // when set, every call beyond this many fails
	putCalls     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{fields: make(map[string]string)}
}

func (f *fakeStore) PutRecords(_ context.Context, records interface{}) error {
	f.putCalls++
	if f.putCalls <= f.putErrs {
		return fmt.Errorf("transport error")
	}
	if f.putFailAfter > 0 && f.putCalls > f.putFailAfter {
		return fmt.Errorf("transport error")
	}
	if batch, ok := records.([]schema.Record); ok {
		kept := make([]schema.Record, len(batch))
		copy(kept, batch)
		f.puts = append(f.puts, kept)
	}
	return nil
}

func (f *fakeStore) ListSubmitterIDs(context.Context, string) ([]string, error) {
	if f.listErrs > 0 {
		f.listErrs--
		return nil, fmt.Errorf("transient query failure")
	}
	return f.ids, nil
}

func (f *fakeStore) ProjectField(_ context.Context, field string) (string, error) {
	return f.fields[field], nil
}

func (f *fakeStore) SetProjectField(_ context.Context, field, value string) error {
	f.fields[field] = value
	return nil
}

func locationRecord(id string) schema.Record {
	return schema.SummaryLocation{Type: "summary_location", SubmitterID: id}
}

func clinicalRecord(date string) schema.Record {
	return stateClinicalRecord("", date)
}

func stateClinicalRecord(state, date string) schema.Record {
	return schema.SummaryClinical{
		Type:        "summary_clinical",
		SubmitterID: schema.ClinicalSubmitterID("ISL", state, "", date),
		Date:        date,
	}
}

func TestExistencePlanner(t *testing.T) {
	store := newFakeStore()
	store.ids = []string{"summary_location_isl", "summary_location_twn"}

	candidates := []schema.Record{
		locationRecord("summary_location_isl"),
		locationRecord("summary_location_usa"),
		locationRecord("summary_location_twn"),
		locationRecord("summary_location_fra"),
	}

	delta, err := syncer.NewExistencePlanner(store, "summary_location").Plan(context.Background(), candidates)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(delta))
	assert.Equal(t, "summary_location_usa", delta[0].RecordID())
	assert.Equal(t, "summary_location_fra", delta[1].RecordID())
}

func TestExistencePlannerEmptyRemote(t *testing.T) {
	store := newFakeStore()

	candidates := []schema.Record{locationRecord("summary_location_isl")}
	delta, err := syncer.NewExistencePlanner(store, "summary_location").Plan(context.Background(), candidates)
	assert.NoError(t, err)
	assert.Equal(t, candidates, delta, "no remote data yet means everything is new")
}

func TestExistencePlannerToleratesTransientFailure(t *testing.T) {
	store := newFakeStore()
	store.ids = []string{"summary_location_isl"}
	store.listErrs = 2

	candidates := []schema.Record{locationRecord("summary_location_isl")}
	delta, err := syncer.NewExistencePlanner(store, "summary_location").Plan(context.Background(), candidates)
	assert.NoError(t, err, "a transiently failing remote query is retried")
	assert.Equal(t, 0, len(delta))
}

func TestRetryStopsAfterFinalAttempt(t *testing.T) {
	store := newFakeStore()
	store.listErrs = 1000

	start := time.Now()
	_, err := syncer.NewExistencePlanner(store, "summary_location").Plan(context.Background(), nil)
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second,
		"the final failed attempt returns without another delay")
}

func TestCursorPlanner(t *testing.T) {
	store := newFakeStore()
	store.fields["last_submitted"] = "2020-03-14"

	candidates := []schema.Record{
		clinicalRecord("2020-03-16"),
		clinicalRecord("2020-03-13"),
		clinicalRecord("2020-03-14"),
		clinicalRecord("2020-03-15"),
	}

	planner := syncer.NewCursorPlanner(store, "last_submitted")
	delta, err := planner.Plan(context.Background(), candidates)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(delta), "only facts strictly newer than the cursor")
	assert.Equal(t, "2020-03-15", delta[0].(schema.SummaryClinical).Date, "delta is sorted oldest first")
	assert.Equal(t, "2020-03-16", delta[1].(schema.SummaryClinical).Date)
}

func TestCursorPlannerNoCursorYet(t *testing.T) {
	store := newFakeStore()

	candidates := []schema.Record{clinicalRecord("2020-03-15")}
	delta, err := syncer.NewCursorPlanner(store, "last_submitted").Plan(context.Background(), candidates)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(delta), "an unset cursor means everything is new")
}

func TestCursorAdvanceMonotonic(t *testing.T) {
	store := newFakeStore()
	store.fields["last_submitted"] = "2020-03-14"

	planner := syncer.NewCursorPlanner(store, "last_submitted")
	_, err := planner.Plan(context.Background(), nil)
	assert.NoError(t, err)

	assert.NoError(t, planner.Advance(context.Background(), clinicalRecord("2020-03-15"), nil))
	assert.Equal(t, "2020-03-15", store.fields["last_submitted"])

	assert.NoError(t, planner.Advance(context.Background(), clinicalRecord("2020-03-13"), nil))
	assert.Equal(t, "2020-03-15", store.fields["last_submitted"], "the cursor never moves backwards")

	assert.NoError(t, planner.Advance(context.Background(), locationRecord("summary_location_isl"), nil))
	assert.Equal(t, "2020-03-15", store.fields["last_submitted"], "undated records never move the cursor")

	assert.NoError(t, planner.Advance(context.Background(),
		stateClinicalRecord("Illinois", "2020-03-16"),
		stateClinicalRecord("New York", "2020-03-16")))
	assert.Equal(t, "2020-03-15", store.fields["last_submitted"],
		"a day with records still pending in the next batch never moves the cursor")

	assert.NoError(t, planner.Advance(context.Background(),
		stateClinicalRecord("New York", "2020-03-16"),
		clinicalRecord("2020-03-17")))
	assert.Equal(t, "2020-03-16", store.fields["last_submitted"],
		"the cursor advances once the day's last record is confirmed")
}
