package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-grading-api/internal/dto"
	"github.com/noah-isme/gema-grading-api/internal/models"
	"github.com/noah-isme/gema-grading-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

type memoryActivityRepo struct {
	entries []models.ActivityLog
}

func (m *memoryActivityRepo) Create(ctx context.Context, entry *models.ActivityLog) error {
	entry.ID = uint(len(m.entries) + 1)
	entry.CreatedAt = time.Now()
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memoryActivityRepo) List(ctx context.Context, filter repository.ActivityLogFilter) ([]models.ActivityLog, int64, error) {
	matched := make([]models.ActivityLog, 0, len(m.entries))
	for _, entry := range m.entries {
		if filter.EntityType != "" && entry.EntityType != filter.EntityType {
			continue
		}
		if filter.EntityID != nil && (entry.EntityID == nil || *entry.EntityID != *filter.EntityID) {
			continue
		}
		if filter.Action != "" && entry.Action != filter.Action {
			continue
		}
		matched = append(matched, entry)
	}
	return matched, int64(len(matched)), nil
}

func (m *memoryActivityRepo) actions() []string {
	actions := make([]string, 0, len(m.entries))
	for _, entry := range m.entries {
		actions = append(actions, entry.Action)
	}
	return actions
}

func TestActivityServiceRecordMasksEmail(t *testing.T) {
	repo := &memoryActivityRepo{}
	svc := NewActivityService(repo, testLogger())

	entry, err := svc.Record(context.Background(), ActivityEntry{
		ActorID:    1,
		ActorRole:  "Teacher",
		Action:     "Submission.Graded",
		EntityType: "submission",
		EntityID:   ptrUint(5),
		Metadata: map[string]interface{}{
			"student_email": "student@example.com",
			"field":         "final_score",
		},
	})
	require.NoError(t, err)
	require.Equal(t, "***", entry.Metadata["student_email"])
	require.Equal(t, "final_score", entry.Metadata["field"])
	require.Equal(t, "teacher", entry.ActorRole)
	require.Equal(t, "submission.graded", entry.Action)
}

func TestActivityServiceRecordRequiresAction(t *testing.T) {
	svc := NewActivityService(&memoryActivityRepo{}, testLogger())

	_, err := svc.Record(context.Background(), ActivityEntry{EntityType: "submission"})
	require.Error(t, err)
}

func TestActivityServiceListFiltersByEntity(t *testing.T) {
	repo := &memoryActivityRepo{}
	svc := NewActivityService(repo, testLogger())
	ctx := context.Background()

	for _, id := range []uint{1, 2, 1} {
		_, err := svc.Record(ctx, ActivityEntry{ActorID: 9, Action: "submission.graded", EntityType: "submission", EntityID: ptrUint(id)})
		require.NoError(t, err)
	}

	result, err := svc.List(ctx, dto.ActivityListRequest{Page: 1, PageSize: 10, EntityType: "submission", EntityID: ptrUint(1)})
	require.NoError(t, err)
	require.Len(t, result.Items, 2)
	require.Equal(t, int64(2), result.Pagination.TotalItems)
	require.Equal(t, 1, result.Pagination.TotalPages)
	require.Equal(t, "system", result.Items[0].ActorRole)
}

func ptrUint(v uint) *uint {
	return &v
}

func ptrFloat(v float64) *float64 {
	return &v
}
