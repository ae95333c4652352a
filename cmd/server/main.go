package main

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/realmeet/slot-booking/internal/config"
	"github.com/realmeet/slot-booking/internal/database"
	"github.com/realmeet/slot-booking/internal/engine"
	"github.com/realmeet/slot-booking/internal/handler"
	"github.com/realmeet/slot-booking/internal/metrics"
	appmw "github.com/realmeet/slot-booking/internal/middleware"
	"github.com/realmeet/slot-booking/internal/queue"
	"github.com/realmeet/slot-booking/internal/repository"
	"github.com/realmeet/slot-booking/internal/router"
	"github.com/realmeet/slot-booking/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	// Database and schema.
	if err := database.RunMigrations(database.MigrationURL(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)); err != nil {
		log.Fatalf("migrations: %v", err)
	}
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis backs rate limiting and the response cache; nil client
	// disables both gracefully.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable, rate limiting and response cache disabled")
	}

	// Metrics registry and collector.
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	// Booking engine wiring: SQL store, RabbitMQ emitter with direct
	// DB fallback, Prometheus recorder.
	store := repository.NewStore(db)
	emitter := service.NewEmitter(db)
	eng := engine.New(store, emitter, collector)

	// The consumer persists emitted system messages into chat history.
	go func() {
		if err := queue.StartSystemMessageConsumer(db); err != nil {
			log.Printf("system message consumer stopped: %v", err)
		}
	}()

	// Repositories for the auth, owner and browse surfaces.
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	activities := repository.NewActivityRepo(db)
	slots := repository.NewSlotRepo(db)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())
	e.Use(appmw.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	responseCache := appmw.NewRedisCache(config.LoadCacheConfig(), rdb)

	router.RegisterRoutes(e, reg)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), cfg.JWTSecret)
	router.RegisterPublic(e, handler.NewPublicHandler(activities, slots), responseCache)
	router.RegisterBooking(e, handler.NewBookingHandler(eng, time.Duration(cfg.InviteTTLSec)*time.Second), cfg.JWTSecret)
	router.RegisterOwner(e, handler.NewOwnerHandler(activities, slots), cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
