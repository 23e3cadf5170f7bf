package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	adminsvc "legitid/internal/admin"
	adminhandler "legitid/internal/admin/handler"
	"legitid/internal/auth"
	authhandler "legitid/internal/auth/handler"
	"legitid/internal/auth/sessioncache"
	"legitid/internal/backend"
	"legitid/internal/backend/mockstore"
	"legitid/internal/backend/supabase"
	"legitid/internal/chain"
	"legitid/internal/identity"
	identityhandler "legitid/internal/identity/handler"
	jwttoken "legitid/internal/jwt_token"
	"legitid/internal/platform/config"
	"legitid/internal/platform/httpserver"
	"legitid/internal/platform/kafka"
	"legitid/internal/platform/logger"
	"legitid/internal/platform/metrics"
	"legitid/internal/platform/middleware"
	platformredis "legitid/internal/platform/redis"
	"legitid/internal/platform/secrets"
	httptransport "legitid/internal/transport/http"
	"legitid/internal/verification"
	verificationhandler "legitid/internal/verification/handler"
	"legitid/pkg/platform/audit"
	auditkafka "legitid/pkg/platform/audit/kafka"
	"legitid/pkg/platform/audit/publisher"
	auditmemory "legitid/pkg/platform/audit/store/memory"
	auditpostgres "legitid/pkg/platform/audit/store/postgres"
)

// main wires the dependencies and keeps the server lifecycle small.
// Business logic lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New("legitid")

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)

	// Backend facade: real client when both backend values are configured,
	// in-memory mock otherwise.
	var client backend.Client
	if cfg.Backend.UseRemote() {
		client = supabase.New(cfg.Backend, log)
		log.Info("using remote backend", "url", cfg.Backend.URL)
	} else {
		client = mockstore.New()
		log.Info("backend credentials absent, using in-memory mock store")
	}

	// Session registry: redis when configured, in-process otherwise.
	var sessions sessioncache.Cache
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		sessions = sessioncache.NewRedis(redisClient)
		log.Info("session cache backed by redis")
	} else {
		sessions = sessioncache.NewInMemory()
		log.Info("session cache in memory")
	}

	// Audit trail: postgres when configured, in-memory otherwise, with an
	// optional kafka side channel.
	var auditStore audit.Store
	var closeAudit func()
	if cfg.Audit.PostgresDSN != "" {
		pgStore, err := auditpostgres.Open(ctx, cfg.Audit.PostgresDSN)
		if err != nil {
			return err
		}
		defer pgStore.Close()
		auditStore = pgStore
		log.Info("audit trail backed by postgres")
	} else {
		auditStore = auditmemory.NewInMemoryStore()
		log.Info("audit trail in memory")
	}

	pubOpts := []publisher.Option{
		publisher.WithAsyncBuffer(cfg.Audit.BufferSize),
		publisher.WithLogger(log),
	}
	if len(cfg.Audit.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(ctx, cfg.Audit.KafkaBrokers, cfg.Audit.KafkaTopic, log)
		if err != nil {
			return err
		}
		defer producer.Close()
		pubOpts = append(pubOpts, publisher.WithSink(auditkafka.NewSink(producer)))
		log.Info("audit events streamed to kafka", "topic", cfg.Audit.KafkaTopic)
	}
	auditPub := publisher.NewPublisher(auditStore, pubOpts...)
	closeAudit = func() {
		if err := auditPub.Close(); err != nil {
			log.Warn("audit publisher close failed", "error", err)
		}
	}
	defer closeAudit()

	// Chain facade; stays usable unconfigured.
	chainSvc, err := chain.New(ctx, cfg.Chain, m, log)
	if err != nil {
		return err
	}
	defer chainSvc.Close()

	tokens := jwttoken.NewJWTService(cfg.JWTSigningKey, "legitid", "legitid-portal")
	authMW := middleware.RequireAuth(jwttoken.NewJWTServiceAdapter(tokens), sessions, log)

	// With no admin token configured and the mock backend active, generate
	// an ephemeral one so the review surface stays usable in local runs.
	// Against a real backend an unset token keeps the surface disabled.
	adminToken := cfg.AdminToken
	if adminToken == "" && !cfg.Backend.UseRemote() {
		adminToken, err = secrets.Generate()
		if err != nil {
			return err
		}
		log.Info("generated ephemeral admin token", "token", adminToken)
	}
	adminMW := middleware.RequireAdminToken(adminToken, log)

	authContainer := auth.NewContainer(client, tokens, sessions, auditPub, m, cfg.SessionTTL, log)
	identityContainer := identity.NewContainer(client, chainSvc, auditPub, m, log)
	verificationContainer := verification.NewContainer(client, auditPub, m, log)
	adminService := adminsvc.NewService(client, auditPub, m, log)

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:         log,
		Metrics:        m,
		RequestTimeout: cfg.RequestTimeout,
		Handlers: []httptransport.Registrar{
			authhandler.New(authContainer, authMW, log),
			identityhandler.New(identityContainer, authMW, log),
			verificationhandler.New(verificationContainer, authMW, log),
			adminhandler.New(adminService, adminMW, log),
		},
		Health: func() map[string]string {
			deps := map[string]string{}
			if redisClient != nil {
				deps["redis"] = "ok"
				probeCtx, cancel := context.WithTimeout(context.Background(), time.Second)
				if err := redisClient.Health(probeCtx); err != nil {
					deps["redis"] = "unreachable"
				}
				cancel()
			}
			return deps
		},
	})

	srv := httpserver.New(cfg.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("starting legitid portal", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return group.Wait()
}
