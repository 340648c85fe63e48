package store

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/openepidata/graph-etl/schema"
)

var (
	ErrRollupFetch  = fmt.Errorf("fetch rollup data fail")
	ErrRollupDecode = fmt.Errorf("decode rollup data fail")
	ErrNoRollupData = fmt.Errorf("no rollup data")
)

// RollupArchive - per-run archive of aggregated effective values, serving
// the publish API and pruned on a retention window.
type RollupArchive interface {
	ReplaceRollups(docs []schema.RollupDoc) error
	DeleteRollupsBefore(iso3 string, date string) error
	LatestRollups(iso3 string) ([]schema.RollupDoc, error)
	RollupsForDate(iso3 string, date string) ([]schema.RollupDoc, error)
}

func (m *mongoDB) rollups() *mongo.Collection {
	return m.client.Database(m.database).Collection(schema.RollupCollection)
}

// ReplaceRollups upserts every document keyed by (submitter_id, date), so a
// re-run of the same window replaces rather than duplicates.
func (m *mongoDB) ReplaceRollups(docs []schema.RollupDoc) error {
	if len(docs) <= 0 {
		log.WithFields(log.Fields{"prefix": mongoLogPrefix}).Debug("no rollup to update")
		return nil
	}

	for _, doc := range docs {
		filter := bson.M{"submitter_id": doc.SubmitterID, "date": doc.Date}
		opts := options.Replace().SetUpsert(true)
		_, err := m.rollups().ReplaceOne(context.Background(), filter, doc, opts)
		if err != nil {
			if errs, hasErr := err.(mongo.BulkWriteException); hasErr {
				if 1 == len(errs.WriteErrors) && DuplicateKeyCode == errs.WriteErrors[0].Code {
					log.WithField("prefix", mongoLogPrefix).Warnf("rollup update with error: %s", err)
					continue
				}
			}
			return err
		}
	}

	log.WithFields(log.Fields{"prefix": mongoLogPrefix, "records": len(docs)}).Debug("ReplaceRollups upsert data")
	return nil
}

// DeleteRollupsBefore prunes a country's archive past the retention window.
func (m *mongoDB) DeleteRollupsBefore(iso3 string, date string) error {
	filter := bson.M{"iso3": iso3, "date": bson.D{{Key: "$lt", Value: date}}}
	res, err := m.rollups().DeleteMany(context.Background(), filter)
	if err != nil {
		log.WithField("prefix", mongoLogPrefix).Warnf("rollup delete unused record with error: %s", err)
		return err
	}
	log.WithFields(log.Fields{"prefix": mongoLogPrefix, "records": res.DeletedCount}).Debug("DeleteRollupsBefore delete data")
	return nil
}

// LatestRollups - every node's rollup for the country's newest archived day.
func (m *mongoDB) LatestRollups(iso3 string) ([]schema.RollupDoc, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	opts := options.FindOne().SetSort(bson.M{"date": -1})
	var newest schema.RollupDoc
	err := m.rollups().FindOne(ctx, bson.M{"iso3": iso3}, opts).Decode(&newest)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNoRollupData
	}
	if err != nil {
		log.WithField("prefix", mongoLogPrefix).Errorf("rollup find error: %s", err)
		return nil, ErrRollupFetch
	}

	return m.RollupsForDate(iso3, newest.Date)
}

// RollupsForDate - every node's rollup of one country for one day.
func (m *mongoDB) RollupsForDate(iso3 string, date string) ([]schema.RollupDoc, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	cur, err := m.rollups().Find(ctx, bson.M{"iso3": iso3, "date": date})
	if err != nil {
		log.WithField("prefix", mongoLogPrefix).Errorf("rollup find error: %s", err)
		return nil, ErrRollupFetch
	}
	defer cur.Close(ctx)

	var docs []schema.RollupDoc
	for cur.Next(ctx) {
		var doc schema.RollupDoc
		if errDecode := cur.Decode(&doc); errDecode != nil {
			return nil, ErrRollupDecode
		}
		docs = append(docs, doc)
	}
	if len(docs) == 0 {
		return nil, ErrNoRollupData
	}
	return docs, nil
}
