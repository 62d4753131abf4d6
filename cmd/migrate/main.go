package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/pixiedvc/pixiedvc-backend/pkg/config"
	"github.com/pixiedvc/pixiedvc-backend/pkg/db"
	"github.com/pixiedvc/pixiedvc-backend/pkg/logger"
	"github.com/pixiedvc/pixiedvc-backend/pkg/migrate"
)

func main() {
	cmd := flag.String("cmd", "up", "up|down|status|version|create|validate")
	dir := flag.String("dir", "", "migrations directory on disk (default: migrations embedded in the binary)")
	name := flag.String("name", "", "migration name for -cmd=create")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "migrate"})

	// create and validate only touch files
	switch *cmd {
	case "create":
		target := *dir
		if target == "" {
			target = migrate.DefaultDir
		}
		if *name == "" {
			exit(ctx, logg, "create", fmt.Errorf("-name is required"))
		}
		path, err := migrate.CreateSQLMigration(target, *name, time.Now())
		exit(ctx, logg, "create", err)
		fmt.Println("created migration:", path)
		return
	case "validate":
		exit(ctx, logg, "validate", migrate.Validate(migrate.Source(*dir)))
		fmt.Println("migration validation passed")
		return
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	exit(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "cmd": *cmd})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	exit(ctx, logg, "database", err)
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	exit(ctx, logg, "sql database", err)

	runner, err := migrate.NewRunner(sqlDB, migrate.Source(*dir))
	exit(ctx, logg, "goose provider", err)

	switch *cmd {
	case "up":
		applied, err := runner.Up(ctx)
		exit(ctx, logg, "up", err)
		logg.Info(logg.WithField(ctx, "applied", applied), "migrations applied")
	case "down":
		reverted, err := runner.Down(ctx)
		exit(ctx, logg, "down", err)
		logg.Info(logg.WithField(ctx, "reverted", reverted), "migration rolled back")
	case "status":
		statuses, err := runner.Status(ctx)
		exit(ctx, logg, "status", err)
		for _, st := range statuses {
			applied := "pending"
			if !st.AppliedAt.IsZero() {
				applied = st.AppliedAt.UTC().Format(time.RFC3339)
			}
			fmt.Printf("%-16d %-10s %s\n", st.Source.Version, applied, st.Source.Path)
		}
	case "version":
		target, err := strconv.ParseInt(*version, 10, 64)
		if err != nil {
			exit(ctx, logg, "version", fmt.Errorf("invalid -version %q (expected YYYYMMDDHHMMSS): %w", *version, err))
		}
		exit(ctx, logg, "version", runner.To(ctx, target))
		logg.Info(logg.WithField(ctx, "version", target), "database migrated to version")
	default:
		exit(ctx, logg, "cmd", fmt.Errorf("unknown -cmd value %q", *cmd))
	}
}

func exit(ctx context.Context, logg *logger.Logger, step string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("migrate %s failed", step), err)
	os.Exit(1)
}
