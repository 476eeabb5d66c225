package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/codespacehq/codespace-backend/handlers"
	"github.com/codespacehq/codespace-backend/internal/cache"
	"github.com/codespacehq/codespace-backend/internal/codespace/repository"
	"github.com/codespacehq/codespace-backend/internal/codespace/service"
	"github.com/codespacehq/codespace-backend/internal/config"
	"github.com/codespacehq/codespace-backend/internal/database"
	"github.com/codespacehq/codespace-backend/internal/sharetoken"
	"github.com/codespacehq/codespace-backend/internal/tokens"
)

// Standalone codespace API without the auth endpoints. Useful for local
// development and integration tests; falls back to in-memory stores when
// Redis or MongoDB aren't reachable.
func main() {
	port := os.Getenv("CODESPACE_SERVICE_PORT")
	if port == "" {
		port = "5020"
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	r := gin.New()
	r.Use(gin.Recovery())

	var cacheStore cache.Store = cache.NewMemoryStore()
	if cfg.Redis.Host != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
			Password: cfg.Redis.Password,
		})
		if err := client.Ping(context.Background()).Err(); err != nil {
			log.Printf("warning: cannot connect to Redis (%v), using memory cache", err)
		} else {
			cacheStore = cache.NewRedisStore(client)
		}
	}

	var repo repository.Repository = repository.NewMemoryRepo()
	if cfg.MongoDB.URI != "" {
		client, err := database.ConnectMongo(context.Background(), cfg.MongoDB.URI, 10*time.Second)
		if err != nil {
			log.Printf("warning: cannot connect to MongoDB (%v), using memory repo", err)
		} else {
			repo = repository.NewMongoRepo(client.Database(cfg.MongoDB.Database).Collection("codespaces"))
		}
	}

	svc := service.New(repo, cacheStore)
	h := handlers.NewCodespaceHandler(cfg, svc, sharetoken.NewCodec(cfg.ShareToken.Secret), tokens.NewJWTVerifier(cfg.JWT.Secret))
	h.Register(r.Group("/api"))

	log.Printf("codespace service listening on :%s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatal(err)
	}
}
