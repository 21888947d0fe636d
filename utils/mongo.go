package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var Client *mongo.Client

// ConnectMongo initializes the MongoDB connection
func ConnectMongo(ctx context.Context, uri string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return fmt.Errorf("failed to ping mongodb: %w", err)
	}

	Client = client
	log.Debug().Msg("Connected to MongoDB")
	return nil
}

// DisconnectMongo closes the shared client if one is open
func DisconnectMongo(ctx context.Context) error {
	if Client == nil {
		return nil
	}
	err := Client.Disconnect(ctx)
	Client = nil
	return err
}

// GetCollection returns a handle to a MongoDB collection
func GetCollection(databaseName, collectionName string) (*mongo.Collection, error) {
	if Client == nil {
		return nil, errors.New("MongoDB client is not initialized")
	}
	return Client.Database(databaseName).Collection(collectionName), nil
}
