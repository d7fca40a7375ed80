package db

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"auth-portal/internal/config"
)

// NewMongoDatabase conecta a MongoDB y devuelve la base configurada.
func NewMongoDatabase(ctx context.Context, cfg *config.Config) (*mongo.Client, *mongo.Database, error) {
	client, err := mongo.Connect(
		options.Client().
			ApplyURI(cfg.MongoURI).
			SetConnectTimeout(cfg.MongoConnectTTL).
			SetRetryWrites(true).
			SetRetryReads(true),
	)
	if err != nil {
		return nil, nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.MongoConnectTTL)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}
	return client, client.Database(cfg.MongoDatabase), nil
}
