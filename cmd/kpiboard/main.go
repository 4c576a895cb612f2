package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq" // PostgreSQL driver

	httpadapter "github.com/fixora/kpiboard/internal/adapter/http"
	"github.com/fixora/kpiboard/internal/adapter/persistence"
	"github.com/fixora/kpiboard/internal/config"
	"github.com/fixora/kpiboard/internal/domain"
	"github.com/fixora/kpiboard/internal/infra/logger"
	"github.com/fixora/kpiboard/internal/infra/middleware"
	"github.com/fixora/kpiboard/internal/infra/ratelimit"
	"github.com/fixora/kpiboard/internal/kpi"
	"github.com/fixora/kpiboard/internal/usecase"
)

// Version and build information
var (
	Version   = "development"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	var (
		version    = flag.Bool("version", false, "Show version information")
		scoreFile  = flag.String("score-file", "", "Score a JSON array of records and print the report")
		kindFlag   = flag.String("kind", string(domain.HandlerKindAgent), "Handler kind for -score-file: agent or technical-support")
		issueToken = flag.String("issue-token", "", "Print an access token for the given subject and exit")
		migrate    = flag.Bool("migrate", false, "Apply pending database migrations before starting")
	)
	flag.Parse()

	if *version {
		fmt.Printf("KPI Board workload scoring service\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if *issueToken != "" {
		token, err := middleware.NewTokenService(cfg.Security.JWTSecret, cfg.Security.JWTExpiration).IssueToken(*issueToken, "supervisor")
		if err != nil {
			log.Fatalf("Failed to issue token: %v", err)
		}
		fmt.Println(token)
		os.Exit(0)
	}

	structuredLogger := logger.NewStructuredLogger(logger.LoggerConfig{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		ServiceName: "kpiboard",
		Output:      os.Stderr,
	})

	if *scoreFile != "" {
		if err := runOffline(cfg, structuredLogger, *scoreFile, *kindFlag); err != nil {
			log.Fatalf("Scoring failed: %v", err)
		}
		return
	}

	if err := runServer(cfg, structuredLogger, *migrate); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func workloadOptions(cfg *config.Config, l logger.Logger) []usecase.WorkloadOption {
	opts := []usecase.WorkloadOption{usecase.WithWorkers(cfg.KPI.Workers)}
	if cfg.KPI.TraceBacklog {
		opts = append(opts, usecase.WithBacklogObserver(logger.NewBacklogDecisionLogger(l)))
	}
	return opts
}

// runOffline scores a local file without touching the database
func runOffline(cfg *config.Config, l logger.Logger, path, kindName string) error {
	ctx := context.Background()

	kind, err := domain.ParseHandlerKind(kindName)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	records, err := httpadapter.DecodeRecords(data)
	if err != nil {
		return err
	}

	uc, err := usecase.NewWorkloadUseCase(nil, l, cfg.KPI.Scoring, workloadOptions(cfg, l)...)
	if err != nil {
		return err
	}
	report, err := uc.ScoreRecords(ctx, kind, records)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(httpadapter.NewReportDTO(report))
}

func runServer(cfg *config.Config, l logger.Logger, migrate bool) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l.Info(ctx, "Application starting", map[string]interface{}{
		"version": Version,
		"env":     cfg.Server.Environment,
	})

	db, err := initDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	l.Info(ctx, "Database connection established", map[string]interface{}{
		"host": cfg.Database.Host,
		"name": cfg.Database.DBName,
	})

	if migrate {
		if err := persistence.NewMigrator(db, l).Run(ctx, persistence.MigrateUp); err != nil {
			return err
		}
		l.Info(ctx, "Database migrations applied", nil)
	}

	repo := persistence.NewPostgresRecordRepository(db)
	workloadUseCase, err := usecase.NewWorkloadUseCase(repo, l, cfg.KPI.Scoring, workloadOptions(cfg, l)...)
	if err != nil {
		return err
	}

	if cfg.KPI.ProfilePath != "" && cfg.KPI.WatchProfile {
		base := cfg.KPI.BaseScoring
		go func() {
			err := config.WatchScoringProfile(ctx, cfg.KPI.ProfilePath, base, l, func(s kpi.Scoring) {
				if err := workloadUseCase.SetScoring(s); err != nil {
					l.Error(ctx, "Rejected reloaded scoring profile", err, nil)
				}
			})
			if err != nil {
				l.Error(ctx, "Scoring profile watcher stopped", err, nil)
			}
		}()
	}

	var mw httpadapter.Middlewares
	if cfg.Security.RateLimitEnabled {
		limiter, err := ratelimit.New(ctx, ratelimit.Config{
			Enabled:       true,
			UseRedis:      cfg.Security.RateLimitRedis,
			RedisURL:      cfg.Redis.URL,
			RedisTimeout:  cfg.Redis.Timeout,
			Requests:      cfg.Security.RateLimitRequests,
			Window:        cfg.Security.RateLimitWindow,
			BlockDuration: cfg.Security.RateLimitBlock,
		}, l)
		if err != nil {
			// Redis unavailable: fall back to per-process limits.
			l.Error(ctx, "Failed to initialize Redis rate limiter, using in-process limiter", err, nil)
			limiter = ratelimit.NewLocalLimiter(ratelimit.Config{
				Requests:      cfg.Security.RateLimitRequests,
				Window:        cfg.Security.RateLimitWindow,
				BlockDuration: cfg.Security.RateLimitBlock,
			})
		}
		mw.RateLimit = middleware.NewRateLimitMiddleware(limiter, cfg.Security.RateLimitBlock, l,
			middleware.TrustProxyHeaders(cfg.Server.TrustProxy))
	}
	if cfg.Security.AuthEnabled {
		tokens := middleware.NewTokenService(cfg.Security.JWTSecret, cfg.Security.JWTExpiration)
		mw.Auth = middleware.NewAuthMiddleware(tokens, l)
	}

	server := httpadapter.NewServer(httpadapter.ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, workloadUseCase, mw, l)

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error(ctx, "Server failed to start", err, nil)
			cancel()
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		l.Error(shutdownCtx, "Server forced to shutdown", err, nil)
	}
	l.Info(shutdownCtx, "Server exited", nil)
	return nil
}

func initDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.GetDatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.Database.MaxConnections)
	db.SetMaxIdleConns(cfg.Database.MaxConnections / 2)
	db.SetConnMaxIdleTime(cfg.Database.MaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Database.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}
