package database

import (
	"context"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/admitlens/core/internal/config"
)

// DB is the process-wide database handle, set by Connect.
var DB *mongo.Database

var (
	mu     sync.Mutex
	client *mongo.Client
)

// Connect establishes the MongoDB client. The client is a process-wide
// singleton: repeated calls return the already-connected database.
func Connect(ctx context.Context, cfg *config.AppConfig) (*mongo.Database, error) {
	mu.Lock()
	defer mu.Unlock()

	if client != nil && DB != nil {
		return DB, nil
	}

	opts := options.Client().
		ApplyURI(cfg.Mongo.URI).
		SetMaxPoolSize(10)
	c, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := c.Ping(ctx, readpref.Primary()); err != nil {
		_ = c.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	client = c
	DB = c.Database(cfg.Mongo.Database)
	return DB, nil
}

// Disconnect closes the client. Safe to call when never connected.
func Disconnect(ctx context.Context) error {
	mu.Lock()
	defer mu.Unlock()

	if client == nil {
		return nil
	}
	err := client.Disconnect(ctx)
	client = nil
	DB = nil
	return err
}
