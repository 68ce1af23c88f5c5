// Package store archives report snapshots in MongoDB.
package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	connectTimeout      = 10 * time.Second
	snapshotsCollection = "snapshots"
)

// Mongo holds a connected client and the database snapshots live in.
type Mongo struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// Connect dials uri and pings the server before returning.
func Connect(ctx context.Context, uri, dbName string) (*Mongo, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	return &Mongo{Client: client, Database: client.Database(dbName)}, nil
}

// Disconnect closes the client.
func (m *Mongo) Disconnect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	return m.Client.Disconnect(ctx)
}
