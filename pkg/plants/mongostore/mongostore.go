// Package mongostore reads plant records from a MongoDB collection, so
// several viewers can share one survey that is edited centrally.
//
// Documents use the same field names as the JSON plant list, with the plant
// id stored as _id. Records are returned sorted by _id.
package mongostore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/ecomap/pkg/errors"
	"github.com/matzehuels/ecomap/pkg/plants"
)

// Defaults for Config.
const (
	DefaultDatabase   = "ecomap"
	DefaultCollection = "plants"
	DefaultTimeout    = 10 * time.Second
)

// Config selects the collection to read.
type Config struct {
	URI        string
	Database   string
	Collection string
	Timeout    time.Duration
}

// Store is a plants.Source backed by a MongoDB collection.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// Open connects to MongoDB and pings the server.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.URI == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "mongodb URI is required")
	}
	if cfg.Database == "" {
		cfg.Database = DefaultDatabase
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	opts := options.Client().ApplyURI(cfg.URI).SetServerSelectionTimeout(cfg.Timeout)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "connect to mongodb")
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "ping mongodb")
	}

	return &Store{
		client: client,
		coll:   client.Database(cfg.Database).Collection(cfg.Collection),
	}, nil
}

// Load returns every plant in the collection sorted by id.
func (s *Store) Load(ctx context.Context) ([]plants.Record, error) {
	cur, err := s.coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "query plants")
	}
	defer cur.Close(ctx)

	var out []plants.Record
	if err := cur.All(ctx, &out); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidRecord, err, "decode plants")
	}
	return out, nil
}

// Replace deletes every document and inserts records. Records without an
// id are rejected before anything is written; a repeated id keeps the first
// occurrence.
func (s *Store) Replace(ctx context.Context, records []plants.Record) (int, error) {
	docs, err := Documents(records)
	if err != nil {
		return 0, err
	}
	if _, err := s.coll.DeleteMany(ctx, bson.D{}); err != nil {
		return 0, errors.Wrap(errors.ErrCodeNetwork, err, "clear plants")
	}
	if len(docs) == 0 {
		return 0, nil
	}
	res, err := s.coll.InsertMany(ctx, docs)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeNetwork, err, "insert plants")
	}
	return len(res.InsertedIDs), nil
}

// Close disconnects from the server.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Documents prepares records for insertion: ids are required and only the
// first record for an id is kept.
func Documents(records []plants.Record) ([]any, error) {
	seen := make(map[string]bool, len(records))
	docs := make([]any, 0, len(records))
	for i, r := range records {
		if r.ID == "" {
			return nil, errors.New(errors.ErrCodeInvalidRecord, "record #%d has no id", i)
		}
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		docs = append(docs, r)
	}
	return docs, nil
}

var _ plants.Source = (*Store)(nil)
