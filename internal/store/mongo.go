package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/toparuz/marketsync/pkg/errors"
	"github.com/toparuz/marketsync/pkg/logging"
)

// Collection names.
const (
	productsCollection = "products"
	runLogsCollection  = "sync_logs"
)

// Config holds the store connection configuration.
type Config struct {
	URI      string
	Database string
}

// Mongo is the MongoDB-backed store.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongo connects to MongoDB and returns the store.
func NewMongo(ctx context.Context, cfg Config) (*Mongo, error) {
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(20).
		SetMinPoolSize(5).
		SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, errors.WrapStore("connect", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, errors.WrapStore("connect", err)
	}

	logging.FromContext(ctx).Info().Str("database", cfg.Database).Msg("Store connected")
	return &Mongo{client: client, db: client.Database(cfg.Database)}, nil
}

// Close releases the underlying connection pool.
func (m *Mongo) Close(ctx context.Context) error {
	if err := m.client.Disconnect(ctx); err != nil {
		return errors.WrapStore("close", err)
	}
	return nil
}

// HasProduct reports whether a product with the given SKU id exists.
func (m *Mongo) HasProduct(ctx context.Context, skuID string) (bool, error) {
	n, err := m.db.Collection(productsCollection).
		CountDocuments(ctx, bson.M{"sku_id": skuID}, options.Count().SetLimit(1))
	if err != nil {
		return false, errors.WrapStore("find", err)
	}
	return n > 0, nil
}

// UpsertProducts inserts products whose SKU id is new and updates the rest,
// returning how the batch split. Existence is decided by one projection
// query up front rather than per-document round trips.
func (m *Mongo) UpsertProducts(ctx context.Context, products []Product) (UpsertResult, error) {
	if len(products) == 0 {
		return UpsertResult{}, nil
	}

	coll := m.db.Collection(productsCollection)

	ids := make([]string, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.SKUID)
	}
	cursor, err := coll.Find(ctx,
		bson.M{"sku_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"sku_id": 1}))
	if err != nil {
		return UpsertResult{}, errors.WrapStore("find", err)
	}
	var existingDocs []struct {
		SKUID string `bson:"sku_id"`
	}
	if err := cursor.All(ctx, &existingDocs); err != nil {
		return UpsertResult{}, errors.WrapStore("find", err)
	}
	existing := make(map[string]bool, len(existingDocs))
	for _, doc := range existingDocs {
		existing[doc.SKUID] = true
	}

	now := time.Now()
	var toInsert []interface{}
	var updates []mongo.WriteModel
	for _, p := range products {
		p.UpdatedAt = now
		if existing[p.SKUID] {
			updates = append(updates, mongo.NewUpdateOneModel().
				SetFilter(bson.M{"sku_id": p.SKUID}).
				SetUpdate(bson.M{"$set": p}))
		} else {
			p.CreatedAt = now
			toInsert = append(toInsert, p)
		}
	}

	var res UpsertResult
	if len(toInsert) > 0 {
		insertRes, err := coll.InsertMany(ctx, toInsert)
		if err != nil {
			return res, errors.WrapStore("upsert", err)
		}
		res.Inserted = len(insertRes.InsertedIDs)
	}
	if len(updates) > 0 {
		bulkRes, err := coll.BulkWrite(ctx, updates)
		if err != nil {
			return res, errors.WrapStore("upsert", err)
		}
		res.Updated = int(bulkRes.MatchedCount)
	}

	return res, nil
}

// StartRun writes a started run log record and returns it.
func (m *Mongo) StartRun(ctx context.Context, id, pairing string) (*RunLog, error) {
	run := &RunLog{
		ID:        id,
		Pairing:   pairing,
		Status:    StatusStarted,
		StartedAt: time.Now(),
		CreatedAt: time.Now(),
	}
	if _, err := m.db.Collection(runLogsCollection).InsertOne(ctx, run); err != nil {
		return nil, errors.WrapStore("log", err)
	}
	return run, nil
}

// CompleteRun marks a run log record as finished.
func (m *Mongo) CompleteRun(ctx context.Context, id, status string, processed, failed int, errMsg string) error {
	update := bson.M{"$set": bson.M{
		"status":          status,
		"items_processed": processed,
		"items_failed":    failed,
		"error_message":   errMsg,
		"completed_at":    time.Now(),
	}}
	if _, err := m.db.Collection(runLogsCollection).
		UpdateOne(ctx, bson.M{"_id": id}, update); err != nil {
		return errors.WrapStore("log", err)
	}
	return nil
}

// RecentProducts returns the most recently touched marketplace-only
// products, newest first.
func (m *Mongo) RecentProducts(ctx context.Context, limit int64) ([]Product, error) {
	cursor, err := m.db.Collection(productsCollection).Find(ctx, bson.M{},
		options.Find().SetSort(bson.M{"updated_at": -1}).SetLimit(limit))
	if err != nil {
		return nil, errors.WrapStore("find", err)
	}
	var products []Product
	if err := cursor.All(ctx, &products); err != nil {
		return nil, errors.WrapStore("find", err)
	}
	return products, nil
}

// RecentRuns returns the most recent run log records, newest first.
func (m *Mongo) RecentRuns(ctx context.Context, limit int64) ([]RunLog, error) {
	cursor, err := m.db.Collection(runLogsCollection).Find(ctx, bson.M{},
		options.Find().SetSort(bson.M{"created_at": -1}).SetLimit(limit))
	if err != nil {
		return nil, errors.WrapStore("find", err)
	}
	var runs []RunLog
	if err := cursor.All(ctx, &runs); err != nil {
		return nil, errors.WrapStore("find", err)
	}
	return runs, nil
}
