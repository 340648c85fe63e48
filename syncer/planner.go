package syncer

import (
	"context"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/openepidata/graph-etl/schema"
)

const logPrefix = "syncer"

const (
	queryRetries    = 3
	queryRetryDelay = 2 * time.Second
)

// MetadataStore - the remote store surface the planner and submitter need.
type MetadataStore interface {
	PutRecords(ctx context.Context, records interface{}) error
	ListSubmitterIDs(ctx context.Context, recordType string) ([]string, error)
	ProjectField(ctx context.Context, field string) (string, error)
	SetProjectField(ctx context.Context, field, value string) error
}

// DatedRecord - a record that carries the calendar day it reports on. The
// cursor policy only applies to these.
type DatedRecord interface {
	RecordDate() string
}

// withRetry re-runs a transiently failing remote query a few times with a
// fixed delay before giving up.
func withRetry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		log.WithFields(log.Fields{"prefix": logPrefix, "attempt": i + 1, "error": err}).Warn("remote query failed")
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return err
}

// ExistencePlanner computes the submission delta by enumerating the complete
// remote identifier set once per run and taking the set difference.
// Appropriate when the remote identifier space is small enough to list.
type ExistencePlanner struct {
	store      MetadataStore
	recordType string
}

// NewExistencePlanner - existence-set policy for one record type.
func NewExistencePlanner(store MetadataStore, recordType string) *ExistencePlanner {
	return &ExistencePlanner{store: store, recordType: recordType}
}

// Plan returns the candidates whose identifier does not exist remotely yet,
// in their original order. An empty remote set means everything is new.
func (p *ExistencePlanner) Plan(ctx context.Context, candidates []schema.Record) ([]schema.Record, error) {
	var ids []string
	err := withRetry(ctx, queryRetries, queryRetryDelay, func() error {
		var listErr error
		ids, listErr = p.store.ListSubmitterIDs(ctx, p.recordType)
		return listErr
	})
	if err != nil {
		return nil, err
	}

	existing := make(map[string]bool, len(ids))
	for _, id := range ids {
		existing[id] = true
	}

	delta := make([]schema.Record, 0, len(candidates))
	for _, r := range candidates {
		if !existing[r.RecordID()] {
			delta = append(delta, r)
		}
	}

	log.WithFields(log.Fields{
		"prefix": logPrefix, "type": p.recordType,
		"candidates": len(candidates), "existing": len(ids), "delta": len(delta),
	}).Info("planned by existence set")
	return delta, nil
}

// CursorPlanner computes the submission delta from a durable marker stored
// on the destination project itself. Only facts strictly newer than the
// cursor are candidates; the cursor advances monotonically and only after a
// batch is durably confirmed submitted.
type CursorPlanner struct {
	store  MetadataStore
	field  string
	cursor string
}

// NewCursorPlanner - cursor policy persisted under the given project field.
func NewCursorPlanner(store MetadataStore, field string) *CursorPlanner {
	return &CursorPlanner{store: store, field: field}
}

// Cursor - the marker as of the last Load/Advance.
func (p *CursorPlanner) Cursor() string {
	return p.cursor
}

// Plan loads the cursor and returns only candidates strictly newer than it.
// A project without the field yet means everything is new.
func (p *CursorPlanner) Plan(ctx context.Context, candidates []schema.Record) ([]schema.Record, error) {
	err := withRetry(ctx, queryRetries, queryRetryDelay, func() error {
		var readErr error
		p.cursor, readErr = p.store.ProjectField(ctx, p.field)
		return readErr
	})
	if err != nil {
		return nil, err
	}

	delta := make([]schema.Record, 0, len(candidates))
	for _, r := range candidates {
		dated, ok := r.(DatedRecord)
		if ok && p.cursor != "" && dated.RecordDate() <= p.cursor {
			continue
		}
		delta = append(delta, r)
	}

	// oldest first, so a mid-run failure leaves the cursor at a point with
	// no unsubmitted fact behind it
	sort.SliceStable(delta, func(i, j int) bool {
		return recordDate(delta[i]) < recordDate(delta[j])
	})

	log.WithFields(log.Fields{
		"prefix": logPrefix, "field": p.field, "cursor": p.cursor,
		"candidates": len(candidates), "delta": len(delta),
	}).Info("planned by cursor")
	return delta, nil
}

func recordDate(r schema.Record) string {
	if dated, ok := r.(DatedRecord); ok {
		return dated.RecordDate()
	}
	return ""
}

// Advance moves the cursor past a fully submitted batch, never backwards.
// The cursor is a calendar day, while batches are record-granular: when the
// next batch opens on the same day the confirmed batch closed on, that day
// still has unsubmitted records and the cursor holds until a later batch
// finishes it.
func (p *CursorPlanner) Advance(ctx context.Context, last, next schema.Record) error {
	dated, ok := last.(DatedRecord)
	if !ok {
		return nil
	}
	date := dated.RecordDate()
	if date == "" || date <= p.cursor {
		return nil
	}
	if next != nil && recordDate(next) == date {
		return nil
	}
	if err := p.store.SetProjectField(ctx, p.field, date); err != nil {
		return err
	}
	p.cursor = date
	log.WithFields(log.Fields{"prefix": logPrefix, "field": p.field, "cursor": date}).Info("advanced cursor")
	return nil
}
