package controller

import (
	"storefront/internal/cache"
	"storefront/internal/database"
	"storefront/internal/rabbitmq"

	"context"
	"fmt"
	"time"
)

// ServerController reports overall service health
type ServerController interface {
	Health() (string, error)
	Online() string
}

type serverController struct {
	db     database.Database
	cache  cache.Cache
	rabbit rabbitmq.Client
}

func NewServer(db database.Database, cache cache.Cache, rabbit rabbitmq.Client) ServerController {
	return &serverController{
		db:     db,
		cache:  cache,
		rabbit: rabbit,
	}
}

func (sc *serverController) Online() string {
	return "Online"
}

// Health checks every backing service the import pipeline depends on
func (sc *serverController) Health() (string, error) {
	if err := sc.db.Health(); err != nil {
		return "mongodb unreachable", fmt.Errorf("mongodb: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if sc.cache != nil {
		if err := sc.cache.Ping(ctx); err != nil {
			return "redis unreachable", fmt.Errorf("redis: %w", err)
		}
	}

	if sc.rabbit != nil {
		if err := sc.rabbit.Health(); err != nil {
			return "rabbitmq unreachable", fmt.Errorf("rabbitmq: %w", err)
		}
	}

	return "healthy", nil
}
