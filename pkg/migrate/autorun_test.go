package migrate_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pixiedvc/pixiedvc-backend/pkg/config"
	"github.com/pixiedvc/pixiedvc-backend/pkg/db"
	"github.com/pixiedvc/pixiedvc-backend/pkg/db/dbtest"
	"github.com/pixiedvc/pixiedvc-backend/pkg/logger"
	"github.com/pixiedvc/pixiedvc-backend/pkg/migrate"
)

func TestMaybeRunDevSkipsOutsideDev(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: config.AppEnvProd}}
	cfg.FeatureFlags.AutoMigrate = true
	require.NoError(t, migrate.MaybeRunDev(context.Background(), cfg, nil, nil))
}

func TestMaybeRunDevAutoMigratesSqlite(t *testing.T) {
	cfg := &config.Config{
		App: config.AppConfig{Env: config.AppEnvDev},
		DB:  config.DBConfig{Driver: "sqlite"},
	}
	cfg.FeatureFlags.AutoMigrate = true
	logg := logger.New(logger.Options{ServiceName: "migrate-test", Output: &bytes.Buffer{}})

	conn := dbtest.Open(t)
	require.NoError(t, migrate.MaybeRunDev(context.Background(), cfg, logg, db.NewFromGorm(conn)))
	require.True(t, conn.Migrator().HasTable("booking_matches"))
	require.True(t, conn.Migrator().HasTable("outbox_dlq"))
}
