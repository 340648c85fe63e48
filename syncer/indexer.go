package syncer

import (
	"context"
	"fmt"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/openepidata/graph-etl/external/fileindex"
)

const defaultIndexWorkers = 8

// IndexClient - the file index surface the release fan-out needs.
type IndexClient interface {
	Lookup(ctx context.Context, fileName string) (*fileindex.Document, error)
	UpdateAuthz(ctx context.Context, did, rev string, authz []string) error
}

// MultipleIndexErrors collects the per-file failures of one release pass.
type MultipleIndexErrors struct {
	errors []error
}

func (e *MultipleIndexErrors) Error() string {
	errorStrings := make([]string, len(e.errors))
	for i, err := range e.errors {
		errorStrings[i] = fmt.Sprintf("#%d: %s", i, err.Error())
	}
	return strings.Join(errorStrings, "\n")
}

// Errors - the individual failures.
func (e *MultipleIndexErrors) Errors() []error {
	return e.errors
}

// Indexer fans independent per-file index operations out over a fixed pool
// of workers fed by a bounded work queue. Ordering between files is neither
// guaranteed nor required; callers run one node type's files to completion
// before scheduling the dependent type's.
type Indexer struct {
	client  IndexClient
	workers int
}

// NewIndexer - indexer with a fixed worker pool size.
func NewIndexer(client IndexClient, workers int) *Indexer {
	if workers <= 0 {
		workers = defaultIndexWorkers
	}
	return &Indexer{client: client, workers: workers}
}

type releaseResult struct {
	fileName string
	err      error
}

// ReleaseFiles looks every file up in the index and rewrites its
// authorization scope. All files are attempted; any failure fails the pass
// as a whole.
func (ix *Indexer) ReleaseFiles(ctx context.Context, fileNames []string, authz []string) error {
	if len(fileNames) == 0 {
		return nil
	}

	jobs := make(chan string, ix.workers)
	results := make(chan releaseResult, len(fileNames))

	var wg sync.WaitGroup
	for w := 0; w < ix.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for fileName := range jobs {
				results <- releaseResult{fileName: fileName, err: ix.releaseOne(ctx, fileName, authz)}
			}
		}()
	}

	for _, fileName := range fileNames {
		jobs <- fileName
	}
	close(jobs)
	wg.Wait()
	close(results)

	var errs []error
	released := 0
	for r := range results {
		if r.err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.fileName, r.err))
			continue
		}
		released++
	}

	log.WithFields(log.Fields{
		"prefix": logPrefix, "files": len(fileNames), "released": released, "failed": len(errs),
	}).Info("release pass finished")

	if len(errs) > 0 {
		return &MultipleIndexErrors{errors: errs}
	}
	return nil
}

func (ix *Indexer) releaseOne(ctx context.Context, fileName string, authz []string) error {
	doc, err := ix.client.Lookup(ctx, fileName)
	if err != nil {
		return err
	}
	return ix.client.UpdateAuthz(ctx, doc.DID, doc.Rev, authz)
}
