package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"github.com/viant/afs"

	"ms-events/internal/auth"
	"ms-events/internal/authz"
	"ms-events/internal/config"
	"ms-events/internal/database"
	"ms-events/internal/database/migrations"
	"ms-events/internal/events/cache"
	event_db "ms-events/internal/events/db"
	"ms-events/internal/events/event_api"
	events "ms-events/internal/events/service"
	"ms-events/internal/kafka"
	"ms-events/internal/logger"
	"ms-events/internal/models"
	"ms-events/internal/storage"
	ticket_db "ms-events/internal/tickets/db"
	"ms-events/internal/tickets/qr"
	tickets "ms-events/internal/tickets/service"
	"ms-events/internal/tickets/ticket_api"
)

func connectDatabase(ctx context.Context, cfg *config.Config, log *logger.Logger) *bun.DB {
	bunDB, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Database connection failed: %v", err))
	}

	if cfg.Database.Dialect == "sqlite" {
		if err := database.CreateSchema(ctx, bunDB); err != nil {
			log.Fatal("DATABASE", fmt.Sprintf("Schema creation failed: %v", err))
		}
		log.Info("DATABASE", "SQLite schema ready")
		return bunDB
	}

	opts := migrations.DefaultOptions()
	opts.AutoMigrate = cfg.Database.AutoMigrate
	if opts.AutoMigrate {
		runner := migrations.NewRunner(bunDB, opts, log)
		if err := runner.RunMigrations(); err != nil {
			log.Fatal("DATABASE", fmt.Sprintf("Migrations failed: %v", err))
		}
	}
	return bunDB
}

func connectRedis(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) *redis.Client {
	if !cfg.Enabled {
		log.Warn("REDIS", "Redis disabled, category cache and M2M token cache are off")
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("REDIS", fmt.Sprintf("Redis unreachable at %s, continuing without it: %v", cfg.Addr, err))
		_ = client.Close()
		return nil
	}
	log.Info("REDIS", fmt.Sprintf("✅ Redis connection successful to %s (DB: %d)", cfg.Addr, cfg.DB))
	return client
}

func newPublisher(cfg config.KafkaConfig, log *logger.Logger) kafka.Publisher {
	if !cfg.Enabled || cfg.MockMode {
		log.Warn("KAFKA", "Kafka disabled or in mock mode, messages will only be logged")
		return &kafka.NoopPublisher{Logger: log}
	}

	topics := []string{cfg.Topics.EventLifecycle, cfg.Topics.TicketValidated, cfg.Topics.TicketIssued}
	if err := kafka.EnsureTopicsExist(cfg.Brokers, topics, log); err != nil {
		log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
	}
	log.Info("KAFKA", fmt.Sprintf("Kafka producer initialized for %v", cfg.Brokers))
	return kafka.NewProducer(cfg.Brokers, log)
}

func newVerifier(ctx context.Context, cfg config.AuthConfig, log *logger.Logger) auth.Verifier {
	if cfg.Mode == "hmac" {
		if cfg.JWTSecret == "" {
			log.Fatal("CONFIG", "AUTH_MODE=hmac requires JWT_SECRET")
		}
		log.Warn("AUTH", "Using shared-secret token verification")
		return auth.NewHMACVerifier(cfg.JWTSecret)
	}

	verifier, err := auth.NewOIDCVerifier(ctx, cfg.OIDCIssuer, cfg.OIDCClientID)
	if err != nil {
		log.Fatal("AUTH", fmt.Sprintf("OIDC provider discovery failed for %s: %v", cfg.OIDCIssuer, err))
	}
	log.Info("AUTH", fmt.Sprintf("Verifying tokens issued by %s", cfg.OIDCIssuer))
	return verifier
}

func newMembership(cfg *config.Config, bunDB *bun.DB, redisClient *redis.Client, log *logger.Logger) authz.MembershipChecker {
	if cfg.Authz.MembershipSource != "remote" {
		return authz.NewDBDirectory(bunDB)
	}

	httpClient := &http.Client{Timeout: 10 * time.Second}
	tokens := &auth.M2MClient{
		Config: models.Config{
			KeycloakURL:   cfg.Auth.KeycloakURL,
			KeycloakRealm: cfg.Auth.KeycloakRealm,
			ClientID:      cfg.Auth.ClientID,
			ClientSecret:  cfg.Auth.ClientSecret,
		},
		HTTPClient: httpClient,
		Logger:     log,
	}
	if redisClient != nil {
		tokens.Cache = auth.NewRedisTokenCache(redisClient)
	}
	log.Info("AUTHZ", fmt.Sprintf("Structure membership resolved by %s", cfg.Authz.StructureServiceURL))
	return &authz.RemoteMembership{
		BaseURL: cfg.Authz.StructureServiceURL,
		Client:  httpClient,
		Tokens:  tokens,
		Logger:  log,
	}
}

func newQRGenerator(secret string, log *logger.Logger) *qr.QRGenerator {
	if secret == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			log.Fatal("CONFIG", fmt.Sprintf("Failed to generate QR secret: %v", err))
		}
		secret = hex.EncodeToString(buf)
		log.Warn("CONFIG", "TICKET_QR_SECRET not set, QR codes will not survive a restart")
	}
	gen, err := qr.NewQRGenerator(secret)
	if err != nil {
		log.Fatal("CONFIG", fmt.Sprintf("QR generator: %v", err))
	}
	return gen
}

func requestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			log.LogAPI(r.Method, r.URL.Path, strconv.Itoa(status), time.Since(start).String())
		})
	}
}

func main() {
	log := logger.NewLogger()
	defer log.Close()

	log.Info("APP", "Starting Events Service initialization")

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}

	cfg := config.Load()
	log.SetLevel(cfg.LogLevel)

	ctx, stopCtx := context.WithCancel(context.Background())
	defer stopCtx()

	bunDB := connectDatabase(ctx, cfg, log)
	defer bunDB.Close()

	redisClient := connectRedis(ctx, cfg.Redis, log)
	if redisClient != nil {
		defer redisClient.Close()
	}

	publisher := newPublisher(cfg.Kafka, log)
	defer publisher.Close()

	store := storage.NewAFSStorage(afs.New(), cfg.Storage.BaseURL, cfg.Storage.PublicBaseURL, log)
	log.Info("STORAGE", fmt.Sprintf("Media stored under %s", cfg.Storage.BaseURL))

	verifier := newVerifier(ctx, cfg.Auth, log)
	policy := authz.NewRolePolicy(authz.NewDBDirectory(bunDB), newMembership(cfg, bunDB, redisClient, log))
	guard := &authz.Guard{Policy: policy}

	eventService := events.NewEventService(&event_db.DB{Bun: bunDB}, store, publisher, cfg.Kafka.Topics.EventLifecycle, log)
	eventService.MaxUploadBytes = cfg.Storage.MaxUploadBytes
	if redisClient != nil {
		eventService.Cache = cache.NewCategoryCache(redisClient, cfg.Redis.CategoryCacheTTL)
	}

	ticketService := tickets.NewTicketService(
		&ticket_db.DB{Bun: bunDB},
		newQRGenerator(cfg.Tickets.QRSecret, log),
		publisher,
		cfg.Kafka.Topics.TicketValidated,
		log,
	)

	if cfg.Kafka.Enabled && !cfg.Kafka.MockMode {
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topics.TicketIssued, cfg.Kafka.GroupID, log)
		defer consumer.Close()
		go func() {
			if err := consumer.Start(ctx, ticketService.ImportIssuedTicket); err != nil {
				log.Error("KAFKA", fmt.Sprintf("Issued ticket consumer stopped: %v", err))
			}
		}()
		log.Info("KAFKA", fmt.Sprintf("Consuming issued tickets from %s", cfg.Kafka.Topics.TicketIssued))
	}

	eventHandler := event_api.NewHandler(eventService, guard, cfg, log)
	ticketHandler := ticket_api.NewHandler(ticketService, guard, cfg, log)

	log.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/media/*", storage.MediaHandler(store, log))

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(verifier, log))
		r.Route("/api/v1", func(r chi.Router) {
			eventHandler.RegisterRoutes(r)
			log.Info("ROUTER", "Event routes registered under /api/v1")
			ticketHandler.RegisterRoutes(r)
			log.Info("ROUTER", "Ticket management routes registered under /api/v1/events/{eventId}/management/tickets")
		})
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("🚀 Events Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	stopCtx()
	ctxShutdown, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		log.Info("HTTP", "✅ Events Service shutdown complete")
	}
}
