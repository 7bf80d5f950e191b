package database

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-grading-api/internal/models"
)

func TestMigrateCreatesGradingTables(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:TestMigrateCreatesGradingTables?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, Migrate(db))

	for _, model := range []interface{}{
		&models.Submission{},
		&models.CriterionFeedback{},
		&models.SubmissionGradeHistory{},
		&models.RegradeRequest{},
		&models.ActivityLog{},
	} {
		require.True(t, db.Migrator().HasTable(model))
	}
	require.True(t, db.Migrator().HasColumn(&models.Submission{}, "version"))
	require.True(t, db.Migrator().HasIndex(&models.CriterionFeedback{}, "idx_criterion_feedback"))
}

func TestConnectRedis(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()

	client, err := ConnectRedis(context.Background(), "redis://"+mini.Addr())
	require.NoError(t, err)
	require.NoError(t, client.Close())

	_, err = ConnectRedis(context.Background(), "")
	require.Error(t, err)

	_, err = ConnectRedis(context.Background(), "://bad")
	require.Error(t, err)
}

func TestConnectPostgresRequiresDSN(t *testing.T) {
	_, err := ConnectPostgres("", DefaultPoolOptions)
	require.Error(t, err)
}

func TestConnectNATSRequiresURL(t *testing.T) {
	_, err := ConnectNATS("", "grading", zerolog.Nop())
	require.Error(t, err)
}
