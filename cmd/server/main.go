// server runs the organization credential broker: POST /api/v1/org-proxy plus health probes over
// HTTP, and grpc.health.v1 on GRPC_ADDR when set.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"org-credential-broker/internal/audit"
	auditrepo "org-credential-broker/internal/audit/repository"
	"org-credential-broker/internal/bearer"
	"org-credential-broker/internal/config"
	"org-credential-broker/internal/db"
	healthhandler "org-credential-broker/internal/health/handler"
	"org-credential-broker/internal/identity/gateway"
	identityservice "org-credential-broker/internal/identity/service"
	"org-credential-broker/internal/logger"
	membershiprepo "org-credential-broker/internal/membership/repository"
	orgrepo "org-credential-broker/internal/organization/repository"
	"org-credential-broker/internal/policy/engine"
	policyrepo "org-credential-broker/internal/policy/repository"
	proxyhandler "org-credential-broker/internal/proxy/handler"
	proxyservice "org-credential-broker/internal/proxy/service"
	"org-credential-broker/internal/security"
	"org-credential-broker/internal/server"
	"org-credential-broker/internal/telemetry"
	brokerotel "org-credential-broker/internal/telemetry/otel"
	"org-credential-broker/internal/telemetry/producer"
	"org-credential-broker/internal/tenant"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.ValidateServer(); err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := brokerotel.NewProviders(ctx, brokerotel.Options{
		Endpoint:    cfg.OTLPEndpoint,
		Insecure:    cfg.OTLPInsecure,
		ServiceName: cfg.ServiceName,
		Environment: cfg.Env,
	})
	if err != nil {
		log.Fatalf("otel: %v", err)
	}
	providers.SetGlobal()

	lg := logger.New(os.Stdout, logger.ParseLevel(cfg.LogLevel), cfg.ServiceName, providers.LoggerProvider)
	slog.SetDefault(lg)

	if err := run(ctx, cfg, providers, lg); err != nil {
		lg.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	lg.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config, providers *brokerotel.Providers, lg *slog.Logger) error {
	vault, err := security.NewVault(cfg.EncryptionSecret)
	if err != nil {
		return err
	}

	pool, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	memberships := membershiprepo.NewPostgresRepository(pool)
	orgs := orgrepo.NewPostgresRepository(pool)
	policies := policyrepo.NewPostgresRepository(pool)

	evaluator, err := engine.LoadOPAEvaluator(ctx, cfg.ActionPolicyFile, policies, lg)
	if err != nil {
		return err
	}

	kafkaProducer, err := producer.NewKafkaProducer(cfg.TelemetryKafkaBrokersList(), cfg.TelemetryKafkaTopic)
	if err != nil {
		return err
	}
	events := telemetry.MultiEmitter{brokerotel.NewEventEmitter(providers.LoggerProvider)}
	if kafkaProducer != nil {
		events = append(events, kafkaProducer)
		defer func() { _ = kafkaProducer.Close() }()
	}

	metrics, err := telemetry.NewProxyMetrics(providers.MeterProvider)
	if err != nil {
		return err
	}

	identityHost := bearer.Hostname(cfg.SupabaseURL)
	svc := proxyservice.NewService(proxyservice.Deps{
		Identity: identityservice.NewVerifier(
			gateway.NewGoTrueGateway(cfg.SupabaseURL, cfg.SupabaseAnonKey, cfg.IdentityTimeoutDuration()),
			cfg.IdentityTimeoutDuration(),
		),
		Memberships: memberships,
		Policy:      evaluator,
		Connections: tenant.NewResolver(orgs),
		Vault:       vault,
		Tenants:     tenant.NewBuilder(cfg.TenantActionPath, cfg.TenantTimeoutDuration()),
		Audit:       audit.NewLogger(auditrepo.NewPostgresRepository(pool), nil, lg),
		Events:      events,
		Metrics:     metrics,
		Logger:      lg,
	}, identityHost)

	var limiter *server.RateLimiter
	if cfg.RateLimitRPS > 0 {
		limiter = server.NewRateLimiter(ctx, rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}

	checker := healthhandler.NewChecker(pool, evaluator)
	ipExtractor, err := server.ClientIPExtractor(cfg.TrustedProxyCIDRList())
	if err != nil {
		return err
	}
	e := server.NewHTTP(server.HTTPDeps{
		ServiceName: cfg.ServiceName,
		Proxy:       proxyhandler.NewHandler(svc),
		Health:      healthhandler.NewHTTP(checker, lg),
		RateLimiter: limiter,
		IPExtractor: ipExtractor,
		Logger:      lg,
	})

	lg.Info("broker configured",
		"identity_host", identityHost,
		"config_fingerprint", security.Fingerprint(cfg.SupabaseURL + "\x00" + cfg.SupabaseAnonKey)[:12],
		"key_fingerprint", vault.Fingerprint(),
		"kafka_enabled", kafkaProducer != nil,
		"rate_limit_rps", cfg.RateLimitRPS,
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := e.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return err
		}
		gs := server.NewGRPC(healthhandler.NewServer(checker))
		g.Go(func() error {
			lg.Info("grpc health server listening", "addr", cfg.GRPCAddr)
			return gs.Serve(lis)
		})
		g.Go(func() error {
			<-gCtx.Done()
			gs.GracefulStop()
			return nil
		})
	}

	g.Go(func() error {
		<-gCtx.Done()
		lg.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := e.Shutdown(shutdownCtx)
		// Let in-flight async telemetry emits finish before the exporters close.
		time.Sleep(telemetry.ShutdownDrainDuration)
		return errors.Join(err, providers.Shutdown(shutdownCtx))
	})

	return g.Wait()
}
