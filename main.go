package main

import (
	"context"
	"crypto/tls"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"flowboard-api/api"
	"flowboard-api/storage"
)

func main() {
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}
	logger := log.New()

	connStr := os.Getenv("STORAGE_CONNECTION_STRING")
	if connStr == "" {
		log.Fatal("missing STORAGE_CONNECTION_STRING")
	}
	boardsTable := envString("BOARDS_TABLE", "boards")
	itemsTable := envString("ITEMS_TABLE", "items")
	cleanupQueue := envString("CLEANUP_QUEUE", "board-cleanup")

	store, err := storage.New(connStr, boardsTable, itemsTable, cleanupQueue, logger)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	ctx := context.Background()
	if err := store.EnsureResources(ctx); err != nil {
		log.Fatalf("storage resources: %v", err)
	}

	var handlerStore api.Storage = store
	if redisConn := os.Getenv("REDIS_CONNECTION_STRING"); redisConn != "" {
		rc := redis.NewClient(parseRedisOptions(redisConn))
		ttl := envDur("CACHE_TTL", 30*time.Second)
		handlerStore = storage.NewCache(store, rc, ttl)
		logger.WithField("ttl", ttl).Info("redis list cache enabled")
	}

	if interval := envDur("SWEEP_INTERVAL", 5*time.Minute); interval > 0 {
		sweeper := storage.NewSweeper(store, logger, interval)
		go sweeper.Run(ctx)
		logger.WithField("interval", interval).Info("orphan sweeper started")
	}

	opts := api.Options{
		StrictNotFound: envBool("STRICT_NOT_FOUND", false),
		SeedEnabled:    envBool("SEED_ENABLED", false),
	}

	e := echo.New()
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.Gzip())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))
	e.Use(echoprometheus.NewMiddleware("flowboard"))
	e.GET("/metrics", echoprometheus.NewHandler())

	api.Register(e, handlerStore, logger, opts)

	listenAddr := ":8080"
	if val, ok := os.LookupEnv("FUNCTIONS_CUSTOMHANDLER_PORT"); ok {
		listenAddr = ":" + val
	}

	e.Logger.Fatal(e.Start(listenAddr))
}

// parseRedisOptions accepts either a redis URL or the comma-separated
// host,password=...,ssl=true form used by managed caches.
func parseRedisOptions(connStr string) *redis.Options {
	opts, err := redis.ParseURL(connStr)
	if err == nil {
		return opts
	}
	parts := strings.Split(connStr, ",")
	opts = &redis.Options{Addr: parts[0]}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(kv[0]) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.ToLower(kv[1]) == "true" {
				opts.TLSConfig = &tls.Config{}
			}
		}
	}
	return opts
}

func envString(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func envDur(name string, def time.Duration) time.Duration {
	if v := os.Getenv(name); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			return d
		}
	}
	return def
}

func envBool(name string, def bool) bool {
	if v := os.Getenv(name); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
