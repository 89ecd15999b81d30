package main

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"taskly-api/api"
	"taskly-api/storage"
	"taskly-api/subscription"
)

var defaultOrigins = []string{
	"https://taskly-d02fb.web.app",
	"http://localhost:5173",
}

func main() {
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}

	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		user := os.Getenv("DB_USER")
		pass := os.Getenv("DB_PASS")
		if user == "" || pass == "" {
			log.Fatal("missing database config")
		}
		uri = storage.URI(user, pass)
	}

	ctx := context.Background()
	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	store, err := storage.New(connectCtx, uri)
	cancel()
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	log.Info("connected to storage")

	var rc *redis.Client
	if redisConn := os.Getenv("REDIS_CONNECTION_STRING"); redisConn != "" {
		redisOpts, err := redis.ParseURL(redisConn)
		if err != nil {
			redisOpts = &redis.Options{Addr: redisConn}
		}
		rc = redis.NewClient(redisOpts)
	}
	ttl := 5 * time.Minute
	if v := os.Getenv("TASKS_CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			log.Fatalf("invalid TASKS_CACHE_TTL: %v", err)
		}
		ttl = d
	}
	cache := storage.NewCache(store, rc, ttl)

	logger := log.New()
	hub := subscription.NewHub(logger)
	watch := func(ctx context.Context) (subscription.Stream, error) {
		return store.WatchTasks(ctx)
	}
	go subscription.WatchChanges(ctx, logger, watch, hub, cache.Invalidate)

	origins := defaultOrigins
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		origins = strings.Split(v, ",")
	}

	e := echo.New()
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     origins,
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		AllowCredentials: true,
	}))

	api.Register(e, cache, hub, logger, origins)

	listenAddr := ":5000"
	if val, ok := os.LookupEnv("PORT"); ok {
		listenAddr = ":" + val
	}

	e.Logger.Fatal(e.Start(listenAddr))
}
