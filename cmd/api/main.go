package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-api-realtime/internal/application/credential"
	"github.com/go-api-realtime/internal/application/messaging"
	"github.com/go-api-realtime/internal/application/notification"
	"github.com/go-api-realtime/internal/application/session"
	"github.com/go-api-realtime/internal/config"
	"github.com/go-api-realtime/internal/domain"
	"github.com/go-api-realtime/internal/infrastructure/broker"
	"github.com/go-api-realtime/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-api-realtime/internal/infrastructure/jwt"
	"github.com/go-api-realtime/internal/infrastructure/memory"
	"github.com/go-api-realtime/internal/infrastructure/metrics"
	natsinfra "github.com/go-api-realtime/internal/infrastructure/nats"
	redisinfra "github.com/go-api-realtime/internal/infrastructure/redis"
	"github.com/go-api-realtime/internal/infrastructure/sns"
	"github.com/go-api-realtime/internal/pkg/id"
	"github.com/go-api-realtime/internal/realtime"
	transporthttp "github.com/go-api-realtime/internal/transport/http"
	"github.com/go-api-realtime/internal/transport/ws"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

const channelPrefix = "realtime."

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(reg)
	if err != nil {
		log.Fatalf("metrics: %v", err)
	}

	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		log.Fatalf("jwt provider: %v", err)
	}

	// Redis is shared by the broker and the revocation list when either asks for it.
	var redisClient *redis.Client
	if cfg.BrokerDriver == "redis" || cfg.RevocationDriver == "redis" {
		redisClient, err = redisinfra.NewClient(ctx, cfg)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer redisClient.Close()
	}

	bus, err := openBroker(cfg, redisClient)
	if err != nil {
		log.Fatalf("broker: %v", err)
	}
	defer bus.Close()

	var mirrors []broker.Publisher
	if cfg.SNSMirrorTopicARN != "" {
		mirror, err := sns.NewMirror(cfg)
		if err != nil {
			log.Fatalf("sns mirror: %v", err)
		}
		mirrors = append(mirrors, mirror)
	}
	publisher := broker.NewTee(bus, mirrors...).OnFailure(m.PublishFailed)

	revocations := openRevocations(cfg, redisClient)
	validator := credential.NewValidator(jwtProvider, revocations)

	msgDeps := messaging.ServiceDeps{Publisher: publisher, PageSize: cfg.ConversationPageSize}
	notifDeps := notification.ServiceDeps{Publisher: publisher, PageSize: cfg.ConversationPageSize}
	var putUser func(context.Context, *domain.User) error

	switch cfg.StorageDriver {
	case "memory":
		users := memory.NewUserRepo()
		msgDeps.UserRepo, notifDeps.UserRepo = users, users
		msgDeps.MessageRepo = memory.NewMessageRepo()
		notifDeps.NotificationRepo = memory.NewNotificationRepo()
		putUser = users.Put
	case "dynamo":
		dynamoClient := dynamo.NewClient(cfg)
		dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables)
		users := dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users)
		msgDeps.UserRepo, notifDeps.UserRepo = users, users
		msgDeps.MessageRepo = dynamo.NewMessageRepo(dynamoClient, cfg.DynamoTables.Messages)
		notifDeps.NotificationRepo = dynamo.NewNotificationRepo(dynamoClient, cfg.DynamoTables.Notifications)
		putUser = users.Put
	default:
		log.Fatalf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}
	seeded, err := seedUsers(ctx, cfg.SeedUsers, putUser)
	if err != nil {
		log.Fatalf("seed users: %v", err)
	}
	if cfg.AppEnv == "development" {
		printDevTokens(jwtProvider, seeded)
	}

	notifSvc := notification.NewService(notifDeps)
	msgDeps.Notifier = notifSvc
	msgSvc := messaging.NewService(msgDeps)

	registry := realtime.NewRegistry(m)
	gate := realtime.NewGate(validator, registry, realtime.GateConfig{
		AllowAnonymous: cfg.WSAllowAnonymous,
		Metrics:        m,
	})
	if err := realtime.NewDispatcher(bus, registry, m).Start(ctx); err != nil {
		log.Fatalf("dispatcher: %v", err)
	}

	sessionSvc := session.NewService(session.ServiceDeps{Revoker: validator, Registry: registry})

	router := transporthttp.NewRouter(cfg, &transporthttp.Deps{
		Messaging:     msgSvc,
		Notifications: notifSvc,
		Sessions:      sessionSvc,
		Authenticator: validator,
		Registry:      registry,
		WebSocket: ws.NewHandler(gate, ws.Config{
			HandshakeTimeout: cfg.WSHandshakeTimeout,
			WriteTimeout:     cfg.WSWriteTimeout,
			PingInterval:     cfg.WSPingInterval,
			AllowedOrigins:   cfg.AllowedOrigins,
		}),
		Metrics:  m,
		Gatherer: reg,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s storage=%s broker=%s)",
			cfg.AppPort, cfg.AppEnv, cfg.StorageDriver, cfg.BrokerDriver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("forced shutdown: %v", err)
		os.Exit(1)
	}
	log.Println("Server stopped")
}

func openBroker(cfg *config.Config, client *redis.Client) (broker.Broker, error) {
	switch cfg.BrokerDriver {
	case "memory":
		return broker.NewMemory(0), nil
	case "redis":
		return redisinfra.NewBroker(client, channelPrefix), nil
	case "nats":
		return natsinfra.Connect(cfg.NATSURL, channelPrefix)
	default:
		return nil, fmt.Errorf("unknown BROKER_DRIVER %q", cfg.BrokerDriver)
	}
}

type revocationStore interface {
	Revoke(ctx context.Context, tok string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tok string) (bool, error)
}

func openRevocations(cfg *config.Config, client *redis.Client) revocationStore {
	if cfg.RevocationDriver == "redis" {
		return redisinfra.NewRevocationStore(client)
	}
	if cfg.AppEnv == "production" {
		slog.Warn("in-memory revocation list is not shared between instances")
	}
	return memory.NewRevocationStore()
}

func seedUsers(ctx context.Context, list string, put func(context.Context, *domain.User) error) ([]domain.User, error) {
	if list == "" {
		return nil, nil
	}
	users, err := memory.ParseSeedUsers(list, time.Now())
	if err != nil {
		return nil, err
	}
	for i := range users {
		if err := put(ctx, &users[i]); err != nil {
			return nil, fmt.Errorf("user %d: %w", users[i].UserID, err)
		}
	}
	log.Printf("Seeded %d users", len(users))
	return users, nil
}

// printDevTokens logs a bearer per seeded user so a local stack can be
// exercised without an external identity provider.
func printDevTokens(p *jwtinfra.Provider, users []domain.User) {
	for _, u := range users {
		tok, err := p.Sign(u.UserID, u.Role, id.New())
		if err != nil {
			slog.Warn("dev token", "user_id", u.UserID, "err", err)
			continue
		}
		log.Printf("dev bearer for user %d (%s): %s", u.UserID, u.Email, tok)
	}
}
