package database

import (
	"context"
	"fmt"
	"log"

	backoff "github.com/cenkalti/backoff/v4"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/johnquangdev/meeting-digest/pkg/config"
)

// MongoDB holds a connected client and the summary collection
type MongoDB struct {
	Client     *mongo.Client
	Collection *mongo.Collection
}

// NewMongoDB connects to MongoDB and waits until the server answers a ping
func NewMongoDB(ctx context.Context, cfg *config.MongoConfig) (*MongoDB, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to create mongo client: %w", err)
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = connectTimeout
	ping := func() error {
		return client.Ping(ctx, nil)
	}
	if err := backoff.Retry(ping, backoff.WithContext(bo, ctx)); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	log.Println("✅ MongoDB connected successfully")

	return &MongoDB{
		Client:     client,
		Collection: client.Database(cfg.Database).Collection(cfg.Collection),
	}, nil
}

// Close disconnects the client
func (m *MongoDB) Close(ctx context.Context) error {
	if err := m.Client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect mongo: %w", err)
	}
	log.Println("✅ MongoDB connection closed")
	return nil
}
