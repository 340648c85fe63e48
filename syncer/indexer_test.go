package syncer_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openepidata/graph-etl/external/fileindex"
	"github.com/openepidata/graph-etl/syncer"
)

type fakeIndex struct {
	mu       sync.Mutex
	inFlight int
	peak     int
	updated  map[string][]string
	missing  map[string]bool
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{updated: make(map[string][]string), missing: make(map[string]bool)}
}

func (f *fakeIndex) Lookup(_ context.Context, fileName string) (*fileindex.Document, error) {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.peak {
		f.peak = f.inFlight
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if f.missing[fileName] {
		return nil, fileindex.ErrNotFound
	}
	return &fileindex.Document{DID: "did-" + fileName, Rev: "r1", FileName: fileName}, nil
}

func (f *fakeIndex) UpdateAuthz(_ context.Context, did, rev string, authz []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated[did] = authz
	return nil
}

func TestReleaseFiles(t *testing.T) {
	index := newFakeIndex()
	ix := syncer.NewIndexer(index, 4)

	files := make([]string, 50)
	for i := range files {
		files[i] = fmt.Sprintf("file_%02d.csv", i)
	}

	err := ix.ReleaseFiles(context.Background(), files, []string{"/open"})
	assert.NoError(t, err)
	assert.Equal(t, 50, len(index.updated), "every independent file is processed")
	assert.Equal(t, []string{"/open"}, index.updated["did-file_07.csv"])
	assert.True(t, index.peak <= 4, "concurrency stays within the fixed pool size")
}

func TestReleaseFilesCollectsFailures(t *testing.T) {
	index := newFakeIndex()
	index.missing["gone.csv"] = true
	ix := syncer.NewIndexer(index, 2)

	err := ix.ReleaseFiles(context.Background(), []string{"ok.csv", "gone.csv"}, []string{"/open"})
	assert.Error(t, err)

	multi, ok := err.(*syncer.MultipleIndexErrors)
	assert.True(t, ok, "expected MultipleIndexErrors")
	assert.Equal(t, 1, len(multi.Errors()))
	assert.Equal(t, 1, len(index.updated), "the healthy file is still released")
}

func TestReleaseFilesEmpty(t *testing.T) {
	ix := syncer.NewIndexer(newFakeIndex(), 2)
	assert.NoError(t, ix.ReleaseFiles(context.Background(), nil, []string{"/open"}))
}
