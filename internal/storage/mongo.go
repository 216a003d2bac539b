package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const mongoCollectionName = "collections"

type collectionDoc struct {
	Key       string    `bson:"_id"`
	Payload   string    `bson:"payload"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// Mongo stores one document per collection key
type Mongo struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// OpenMongo connects to uri and checks the server is reachable
func OpenMongo(ctx context.Context, uri, dbName string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	return &Mongo{
		client: client,
		coll:   client.Database(dbName).Collection(mongoCollectionName),
	}, nil
}

func (m *Mongo) Load(ctx context.Context, key string) ([]byte, bool, error) {
	var doc collectionDoc
	err := m.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	switch {
	case err == nil:
		return []byte(doc.Payload), true, nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil, false, nil
	default:
		return nil, false, err
	}
}

func (m *Mongo) Save(ctx context.Context, key string, data []byte) error {
	_, err := m.coll.UpdateOne(ctx,
		bson.M{"_id": key},
		bson.M{"$set": bson.M{
			"payload":    string(data),
			"updated_at": time.Now().UTC(),
		}},
		options.Update().SetUpsert(true),
	)
	return err
}

// SaveAll upserts every entry in one bulk write. Standalone servers have no
// multi-document transactions, so a failure can leave some keys written.
func (m *Mongo) SaveAll(ctx context.Context, entries map[string][]byte) error {
	now := time.Now().UTC()
	writes := make([]mongo.WriteModel, 0, len(entries))
	for key, data := range entries {
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": key}).
			SetUpdate(bson.M{"$set": bson.M{"payload": string(data), "updated_at": now}}).
			SetUpsert(true))
	}
	if len(writes) == 0 {
		return nil
	}
	_, err := m.coll.BulkWrite(ctx, writes)
	return err
}

func (m *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
