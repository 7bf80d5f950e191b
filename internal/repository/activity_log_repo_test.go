package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/noah-isme/gema-grading-api/internal/models"
)

func TestActivityLogRepositoryFiltersAndPaginates(t *testing.T) {
	db := setupGradingDB(t)
	repo := NewActivityLogRepository(db)
	ctx := context.Background()

	submissionID := uint(5)
	otherID := uint(6)
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	entries := []models.ActivityLog{
		{ActorID: 1, ActorRole: "teacher", Action: models.ActivitySubmissionGraded, EntityType: "submission", EntityID: &submissionID, CreatedAt: base},
		{ActorID: 1, ActorRole: "teacher", Action: models.ActivityFinalScoreOverridden, EntityType: "submission", EntityID: &submissionID, CreatedAt: base.Add(time.Minute),
			Metadata: datatypes.JSONMap{"reason": "late penalty waived"}},
		{ActorID: 2, ActorRole: "admin", Action: models.ActivitySubmissionGraded, EntityType: "submission", EntityID: &otherID, CreatedAt: base.Add(2 * time.Minute)},
	}
	for idx := range entries {
		require.NoError(t, repo.Create(ctx, &entries[idx]))
	}

	found, total, err := repo.List(ctx, ActivityLogFilter{EntityType: "submission", EntityID: &submissionID})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, found, 2)
	require.Equal(t, models.ActivityFinalScoreOverridden, found[0].Action)
	require.Equal(t, "late penalty waived", found[0].Metadata["reason"])

	page, total, err := repo.List(ctx, ActivityLogFilter{Action: models.ActivitySubmissionGraded, Page: 2, PageSize: 1})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, page, 1)
	require.Equal(t, uint(1), page[0].ActorID)
}
