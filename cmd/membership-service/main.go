package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"ms-membership/internal/config"
	"ms-membership/internal/database"
	"ms-membership/internal/gateway"
	mskafka "ms-membership/internal/kafka"
	"ms-membership/internal/logger"
	"ms-membership/internal/membership"
	"ms-membership/internal/membership/card"
	membershipdb "ms-membership/internal/membership/db"
	"ms-membership/internal/notify"
	orderdb "ms-membership/internal/order/db"
	"ms-membership/internal/pledge"
	"ms-membership/internal/pledge/api"
	pledgeredis "ms-membership/internal/pledge/redis"
	"ms-membership/internal/utils"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.NewLogger()
	defer log.Close()

	ctx := context.Background()

	// --- PostgreSQL ---
	connector := pgdriver.NewConnector(pgdriver.WithDSN(cfg.Database.DSN))
	sqldb := sql.OpenDB(connector)
	defer sqldb.Close()

	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	if err := sqldb.Ping(); err != nil {
		log.Fatal("DATABASE", "failed to connect to Postgres: "+err.Error())
	}

	bunDB := bun.NewDB(sqldb, pgdialect.New())
	if err := database.Migrate(ctx, bunDB); err != nil {
		log.Fatal("DATABASE", "migration failed: "+err.Error())
	}
	log.LogDatabase("MIGRATE", "orders,memberships", "schema ready")

	// --- Redis ---
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("REDIS", "failed to connect to Redis: "+err.Error())
	}

	// --- Kafka ---
	var events pledge.EventPublisher
	if cfg.Kafka.Enabled {
		producer := mskafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer producer.Close()
		events = producer
	}

	// --- Payment gateway ---
	var gw gateway.Gateway
	switch cfg.Gateway.Provider {
	case "stripe":
		gw = gateway.NewStripeGateway(cfg.Gateway.StripeKey, log)
	default:
		gw = gateway.NewTapPayGateway(cfg.Gateway.URL, cfg.Gateway.PartnerKey, cfg.Gateway.MerchantID, log)
	}

	// --- Services ---
	clock := utils.SystemClock{}
	gen := utils.NewGenerator(cfg.Membership.NumberPrefix, clock)
	cards := card.NewQRGenerator(os.Getenv("CARD_QR_SECRET_KEY"))
	notifier := notify.NewEmailNotifier(cfg.Email, log)

	orderStore := &orderdb.DB{Bun: bunDB}
	membershipStore := &membershipdb.DB{Bun: bunDB}

	pledgeService := pledge.NewService(
		orderStore,
		membershipStore,
		database.NewTxManager(bunDB),
		gw,
		pledgeredis.NewRedis(redisClient),
		events,
		notifier,
		cards,
		gen,
		log,
	)
	membershipService := membership.NewService(membershipStore, clock)
	handler := api.NewHandler(pledgeService, membershipService, log)

	// --- Router ---
	r := chi.NewRouter()
	r.Post("/api/v1/pledges", handler.SubmitPledge)
	r.Post("/api/v1/orders/{orderRef}/reissue", handler.ReissueMemberships)
	r.Get("/api/v1/orders/{orderId}/memberships", handler.GetOrderMemberships)
	r.Get("/api/v1/memberships/{memberNo}", handler.GetMembership)
	r.Delete("/api/v1/memberships/{memberNo}", handler.CancelMembership)

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("SERVER", "membership service running on "+cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("SERVER", "http server error: "+err.Error())
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("SERVER", "shutdown signal received")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatal("SERVER", "forced shutdown: "+err.Error())
	}
	log.Info("SERVER", "server exited gracefully")
}
