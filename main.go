package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/codespacehq/codespace-backend/handlers"
	"github.com/codespacehq/codespace-backend/internal/cache"
	"github.com/codespacehq/codespace-backend/internal/codespace"
	"github.com/codespacehq/codespace-backend/internal/codespace/repository"
	"github.com/codespacehq/codespace-backend/internal/codespace/service"
	"github.com/codespacehq/codespace-backend/internal/config"
	"github.com/codespacehq/codespace-backend/internal/database"
	"github.com/codespacehq/codespace-backend/internal/sessions"
	"github.com/codespacehq/codespace-backend/internal/sharetoken"
	"github.com/codespacehq/codespace-backend/internal/storage"
	"github.com/codespacehq/codespace-backend/internal/tokens"
	"github.com/codespacehq/codespace-backend/internal/users"
	"github.com/codespacehq/codespace-backend/pkg/logger"
	"github.com/codespacehq/codespace-backend/pkg/metrics"
	"github.com/codespacehq/codespace-backend/pkg/middleware"
)

var startTime = time.Now()

func main() {
	// logging level is controlled with LOG_LEVEL env: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: mongo=%v redis=%v oidc=%v", cfg.MongoDB.URI != "", cfg.Redis.Host != "", cfg.OIDC.Issuer != "")

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// Lightweight CORS middleware for dev/test. Production should use a
	// stricter policy.
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(200)
			return
		}
		c.Next()
	})

	ctx := context.Background()

	// Connect to Redis early: the cache tier, rate limiter and token
	// blacklist all want the client.
	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
			redisClient = nil
		} else {
			sessions.SetBlacklistClient(redisClient)
			logger.Infof("Connected to Redis: %s:%s", cfg.Redis.Host, cfg.Redis.Port)
		}
	}

	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && redisClient != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(redisClient, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	// Cache tier for live codespace fields. Memory fallback keeps dev
	// setups working without Redis; edits are then lost on restart.
	var cacheStore cache.Store
	if redisClient != nil {
		cacheStore = cache.NewRedisStore(redisClient)
	} else {
		logger.Warnf("Redis unavailable, using in-memory cache store")
		cacheStore = cache.NewMemoryStore()
	}

	// Durable tier. Mongo connection is retried with backoff to tolerate
	// startup races; without it the repo falls back to memory.
	var mongoClient *mongo.Client
	var csRepo repository.Repository
	var userSvc *users.Service
	var sessionsSvc *sessions.Service

	if redisClient != nil {
		sessionsSvc = sessions.NewService(sessions.NewRedisRepository(redisClient, "session:"))
		logger.Infof("Using Redis for session storage")
	}

	if cfg.MongoDB.URI != "" {
		const maxAttempts = 5
		backoff := time.Second
		var errConn error
		for attempt := 1; attempt <= maxAttempts; attempt++ {
			mongoClient, errConn = database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
			if errConn == nil {
				break
			}
			logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, maxAttempts, errConn)
			if attempt < maxAttempts {
				time.Sleep(backoff)
				backoff *= 2
			}
		}
		if errConn != nil {
			logger.Warnf("could not connect to MongoDB after %d attempts: %v", maxAttempts, errConn)
		} else {
			defer func() { _ = mongoClient.Disconnect(ctx) }()
			db := mongoClient.Database(cfg.MongoDB.Database)

			csRepo = repository.NewMongoRepo(db.Collection("codespaces"))

			userSvc = users.NewService(users.NewMongoUserRepository(db.Collection("users")))
			if sessionsSvc == nil {
				sessionsSvc = sessions.NewService(sessions.NewMongoRepository(db.Collection("sessions")))
			}
		}
	}
	if csRepo == nil {
		logger.Warnf("MongoDB unavailable, using in-memory codespace repository")
		csRepo = repository.NewMemoryRepo()
	}

	csSvc := service.New(csRepo, cacheStore)
	csSvc.OnLoad(func(cs *codespace.Codespace) {
		logger.Debugf("codespace loaded: %s", cs.UUID)
	})

	// Optional snapshot archiving to MinIO on every flush.
	if mcfg := storage.LoadMinIOConfig(); mcfg.Endpoint != "" {
		snaps, err := storage.NewSnapshotStore(mcfg)
		if err != nil {
			logger.Warnf("failed to initialize snapshot store: %v", err)
		} else {
			csSvc.SetArchiver(snaps)
			logger.Infof("Snapshot archiving enabled: %s/%s", mcfg.Endpoint, mcfg.Bucket)
		}
	}

	verifier := tokens.NewJWTVerifier(cfg.JWT.Secret)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	// readiness: 200 only when the critical dependencies are available
	r.GET("/ready", func(c *gin.Context) {
		ready := true
		deps := map[string]bool{
			"cache":   redisClient != nil,
			"durable": mongoClient != nil,
		}
		if cfg.Redis.Host != "" && redisClient == nil {
			ready = false
		}
		if cfg.MongoDB.URI != "" && mongoClient == nil {
			ready = false
		}
		status := gin.H{"status": "ready", "deps": deps, "uptime": time.Since(startTime).String()}
		if !ready {
			status["status"] = "not_ready"
			c.JSON(http.StatusServiceUnavailable, status)
			return
		}
		c.JSON(http.StatusOK, status)
	})

	api := r.Group("/api")

	csHandler := handlers.NewCodespaceHandler(cfg, csSvc, sharetoken.NewCodec(cfg.ShareToken.Secret), verifier)
	csHandler.Register(api)

	if userSvc != nil && sessionsSvc != nil {
		authHandler := handlers.NewAuthHandler(cfg, userSvc, sessionsSvc)
		authHandler.Register(api)
	} else {
		logger.Warnf("auth handlers not registered because user/sessions services are unavailable")
	}

	handlers.RegisterSwagger(r)

	v1 := r.Group("/api/v1")
	v1.GET("/me", middleware.AuthMiddleware(verifier), func(c *gin.Context) {
		sub := middleware.SubjectFromContext(c)
		if userSvc != nil {
			if u, err := userSvc.GetByUUID(c.Request.Context(), sub); err == nil && u != nil {
				c.JSON(http.StatusOK, gin.H{"user": u})
				return
			}
		}
		claims, _ := c.Get("claims")
		c.JSON(http.StatusOK, gin.H{"claims": claims})
	})

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.Infof("services: codespaces=%v users=%v sessions=%v", csRepo != nil, userSvc != nil, sessionsSvc != nil)
	logger.Infof("Starting codespace backend on %s", addr)
	if err := r.Run(addr); err != nil {
		logger.Fatalf("server failed: %v", err)
	}
}
