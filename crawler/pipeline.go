package main

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/openepidata/graph-etl/etl"
	"github.com/openepidata/graph-etl/external/fileindex"
	"github.com/openepidata/graph-etl/external/metadata"
	"github.com/openepidata/graph-etl/feed"
	"github.com/openepidata/graph-etl/schema"
	"github.com/openepidata/graph-etl/store"
	"github.com/openepidata/graph-etl/syncer"
)

const (
	defaultFeedBase      = "https://raw.githubusercontent.com/CSSEGISandData/COVID-19/master/csse_covid_19_data/csse_covid_19_time_series"
	defaultLookupURL     = "https://raw.githubusercontent.com/CSSEGISandData/COVID-19/master/csse_covid_19_data/UID_ISO_FIPS_LookUp_Table.csv"
	defaultStateDailyURL = "https://covidtracking.com/api/v1/states/daily.json"

	stateDailySource = "state-daily"

	lastSubmittedField = "last_submitted"

	defaultRetentionDays = 20
)

type pipeline struct {
	feeds      *feed.Client
	mongoStore store.MongoStore
	meta       *metadata.Client
	index      *fileindex.Client
}

func newPipeline(feeds *feed.Client, mongoStore store.MongoStore, meta *metadata.Client, index *fileindex.Client) *pipeline {
	return &pipeline{
		feeds:      feeds,
		mongoStore: mongoStore,
		meta:       meta,
		index:      index,
	}
}

// Run - one full pass: fetch and normalize every feed, aggregate, archive
// the rollups, push new records to the metadata store, release data files
func (p *pipeline) Run(ctx context.Context) error {
	runID := uuid.New().String()
	log.WithFields(log.Fields{"prefix": logPrefix, "run_id": runID}).Info("pipeline started")

	tree, err := p.buildTree()
	if err != nil {
		return err
	}

	if err := p.archiveRollups(tree, runID); err != nil {
		return err
	}

	if err := p.syncRecords(ctx, tree); err != nil {
		return err
	}

	if err := p.releaseFiles(ctx); err != nil {
		return err
	}

	log.WithFields(log.Fields{"prefix": logPrefix, "run_id": runID}).Info("pipeline finished")
	return nil
}

func (p *pipeline) buildTree() (*etl.Tree, error) {
	lookupURL := viper.GetString("feed.lookup")
	if lookupURL == "" {
		lookupURL = defaultLookupURL
	}
	lookup, err := p.feeds.FetchLookupTable(lookupURL)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"prefix": logPrefix, "rows": lookup.Len()}).Debug("lookup table")

	base := viper.GetString("feed.base")
	if base == "" {
		base = defaultFeedBase
	}

	tree := etl.NewTree()
	for _, src := range feed.DefaultTimeSeriesSources(base) {
		pf, err := p.feeds.FetchTimeSeries(src)
		if err != nil {
			return nil, err
		}

		rows, err := etl.NormalizeFile(pf, lookup)
		if err != nil {
			return nil, err
		}

		tree.AddFile(src.Name, rows, pf.LatestDate())
		log.WithFields(log.Fields{
			"prefix": logPrefix,
			"source": src.Name,
			"rows":   len(rows),
			"latest": pf.LatestDate(),
		}).Info("feed loaded")
	}

	stateDailyURL := viper.GetString("feed.statedaily")
	if stateDailyURL == "" {
		stateDailyURL = defaultStateDailyURL
	}
	days, err := p.feeds.FetchStateDaily(stateDailySource, stateDailyURL)
	if err != nil {
		return nil, err
	}

	rows, err := etl.NormalizeStateDaily(stateDailySource, days, lookup)
	if err != nil {
		return nil, err
	}

	tree.AddFile(stateDailySource, rows, latestRowDate(rows))
	log.WithFields(log.Fields{
		"prefix": logPrefix,
		"source": stateDailySource,
		"rows":   len(rows),
	}).Info("feed loaded")

	return tree, nil
}

// latestRowDate - newest reported date across all rows
func latestRowDate(rows []etl.NormalizedRow) string {
	latest := ""
	for _, row := range rows {
		for _, point := range row.Points {
			if point.Date > latest {
				latest = point.Date
			}
		}
	}
	return latest
}

func (p *pipeline) archiveRollups(tree *etl.Tree, runID string) error {
	docs := tree.Rollups(runID)
	if err := p.mongoStore.ReplaceRollups(docs); err != nil {
		return err
	}
	log.WithFields(log.Fields{"prefix": logPrefix, "count": len(docs)}).Info("rollups archived")

	retention := viper.GetInt("rollup.retention")
	if retention <= 0 {
		retention = defaultRetentionDays
	}
	cutoff, err := retentionCutoff(tree.LatestDate(), retention)
	if err != nil || cutoff == "" {
		return err
	}

	for iso3 := range tree.Countries {
		if err := p.mongoStore.DeleteRollupsBefore(iso3, cutoff); err != nil {
			return err
		}
	}
	return nil
}

func retentionCutoff(latest string, days int) (string, error) {
	if latest == "" {
		return "", nil
	}
	t, err := time.Parse(schema.DateLayout, latest)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, -days).Format(schema.DateLayout), nil
}

func (p *pipeline) syncRecords(ctx context.Context, tree *etl.Tree) error {
	locations, clinicals := etl.BuildRecords(tree, viper.GetString("metadata.project"))

	batchSize := viper.GetInt("sync.batch")
	maxRetries := viper.GetInt("sync.retries")
	backoff := syncer.ExponentialBackoff(2 * time.Second)

	locationPlanner := syncer.NewExistencePlanner(p.meta, schema.TypeSummaryLocation)
	delta, err := locationPlanner.Plan(ctx, locations)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"prefix":     logPrefix,
		"candidates": len(locations),
		"delta":      len(delta),
	}).Info("location sync planned")

	submitter := syncer.NewSubmitter(p.meta, batchSize, maxRetries, backoff)
	if err := submitter.Submit(ctx, delta); err != nil {
		return err
	}

	clinicalPlanner := syncer.NewCursorPlanner(p.meta, lastSubmittedField)
	delta, err = clinicalPlanner.Plan(ctx, clinicals)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"prefix":     logPrefix,
		"candidates": len(clinicals),
		"delta":      len(delta),
		"cursor":     clinicalPlanner.Cursor(),
	}).Info("clinical sync planned")

	submitter = syncer.NewSubmitter(p.meta, batchSize, maxRetries, backoff)
	submitter.OnBatchSubmitted(clinicalPlanner.Advance)
	return submitter.Submit(ctx, delta)
}

func (p *pipeline) releaseFiles(ctx context.Context) error {
	fileNames := viper.GetStringSlice("fileindex.files")
	if len(fileNames) == 0 {
		return nil
	}

	indexer := syncer.NewIndexer(p.index, viper.GetInt("fileindex.workers"))
	if err := indexer.ReleaseFiles(ctx, fileNames, viper.GetStringSlice("fileindex.authz")); err != nil {
		return err
	}

	log.WithFields(log.Fields{"prefix": logPrefix, "count": len(fileNames)}).Info("data files released")
	return nil
}
