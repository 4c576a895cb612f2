package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"
	"strings"

	_ "github.com/lib/pq"

	"github.com/fixora/kpiboard/internal/adapter/persistence"
	"github.com/fixora/kpiboard/internal/config"
	"github.com/fixora/kpiboard/internal/infra/logger"
)

func main() {
	mode := flag.String("mode", "up", "migration mode: up or down")
	dir := flag.String("dir", "", "read migrations from this directory instead of the bundled set")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	l := logger.NewStructuredLogger(logger.LoggerConfig{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		ServiceName: "kpiboard-migrate",
	})

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = cfg.GetDatabaseURL()
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Database.ConnectTimeout)
	err = db.PingContext(ctx)
	cancel()
	if err != nil {
		log.Fatalf("failed to ping database: %v", err)
	}

	migrator := persistence.NewMigrator(db, l)
	if *dir != "" {
		migrator = persistence.NewMigratorFS(db, os.DirFS(*dir), l)
	}

	direction := persistence.MigrationDirection(strings.ToLower(*mode))
	if err := migrator.Run(context.Background(), direction); err != nil {
		log.Fatalf("migration %s failed: %v", direction, err)
	}
	log.Printf("Migration %s completed successfully", direction)
}
