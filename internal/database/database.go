package database

import (
	"context"
	"storefront/internal/config"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Database interface {
	Health() error
	ImportDatabase
	TokenDatabase
}

type mongoDB struct {
	client *mongo.Client
	db     *mongo.Database

	importsCol *mongo.Collection
	tokensCol  *mongo.Collection
}

func New(config *config.Config) (Database, error) {
	clientOptions := options.Client().ApplyURI(config.MongoDB.URI)
	if config.MongoDB.Username != "" {
		clientOptions.SetAuth(options.Credential{
			Username: config.MongoDB.Username,
			Password: config.MongoDB.Password,
		})
	}

	client, err := mongo.Connect(context.TODO(), clientOptions)
	if err != nil {
		return nil, err
	}

	db := client.Database(config.MongoDB.DB)

	tokensCol := db.Collection("api_tokens")
	tokenIndexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "token_hash", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	importsCol := db.Collection("imports")
	importIndexModels := []mongo.IndexModel{
		{
			// Index for store-scoped listings, newest first
			Keys:    bson.D{{Key: "store_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index(),
		},
		{
			// Index for the pending-only cancellation guard and worker claims
			Keys:    bson.D{{Key: "status", Value: 1}},
			Options: options.Index(),
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := tokensCol.Indexes().CreateMany(ctx, tokenIndexModels); err != nil {
		log.Error().Err(err).Msg("Failed to create token indexes")
		return nil, err
	}

	if _, err := importsCol.Indexes().CreateMany(ctx, importIndexModels); err != nil {
		log.Error().Err(err).Msg("Failed to create import indexes")
		return nil, err
	}

	log.Info().Str("db", config.MongoDB.DB).Msg("MongoDB connection established")

	return &mongoDB{
		client:     client,
		db:         db,
		importsCol: importsCol,
		tokensCol:  tokensCol,
	}, nil
}

// Health pings the database to verify the connection is alive
func (m *mongoDB) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return m.client.Ping(ctx, nil)
}
