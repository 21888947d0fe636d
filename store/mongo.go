package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionName holds one document per key
const CollectionName = "client_state"

type stateDocument struct {
	Key   string `bson:"_id"`
	Value string `bson:"value"`
}

// MongoStore keeps values in a MongoDB collection, for kiosks that share one
// client state across machines.
type MongoStore struct {
	collection *mongo.Collection
	namespace  string
}

// NewMongoStore stores keys in collection, prefixed by namespace so several
// kiosks can share one collection.
func NewMongoStore(collection *mongo.Collection, namespace string) *MongoStore {
	return &MongoStore{collection: collection, namespace: namespace}
}

func (s *MongoStore) id(key string) string {
	if s.namespace == "" {
		return key
	}
	return s.namespace + ":" + key
}

func (s *MongoStore) Get(ctx context.Context, key string) (string, bool, error) {
	var doc stateDocument
	err := s.collection.FindOne(ctx, bson.M{"_id": s.id(key)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s from mongodb: %w", key, err)
	}
	return doc.Value, true, nil
}

func (s *MongoStore) Set(ctx context.Context, key, value string) error {
	_, err := s.collection.UpdateOne(ctx,
		bson.M{"_id": s.id(key)},
		bson.M{"$set": bson.M{"value": value}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to write %s to mongodb: %w", key, err)
	}
	return nil
}

func (s *MongoStore) Clear(ctx context.Context, key string) error {
	if _, err := s.collection.DeleteOne(ctx, bson.M{"_id": s.id(key)}); err != nil {
		return fmt.Errorf("failed to clear %s in mongodb: %w", key, err)
	}
	return nil
}
