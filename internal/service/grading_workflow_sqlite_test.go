package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-grading-api/internal/dto"
	"github.com/noah-isme/gema-grading-api/internal/models"
	"github.com/noah-isme/gema-grading-api/internal/repository"
)

func setupWorkflowDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.Student{},
		&models.Rubric{},
		&models.Criterion{},
		&models.Assignment{},
		&models.Submission{},
		&models.CriterionFeedback{},
		&models.PeerReview{},
		&models.RegradeRequest{},
		&models.SubmissionGradeHistory{},
		&models.ActivityLog{},
	))
	return db
}

func TestGradingWorkflowAgainstSQLite(t *testing.T) {
	db := setupWorkflowDB(t)
	ctx := context.Background()

	rubric := models.Rubric{Name: "Lab report"}
	require.NoError(t, db.Create(&rubric).Error)
	criteria := []models.Criterion{
		{RubricID: rubric.ID, Title: "Method", Weight: 40, MaxScore: 10, Position: 1},
		{RubricID: rubric.ID, Title: "Results", Weight: 60, MaxScore: 10, Position: 2},
	}
	require.NoError(t, db.Create(&criteria).Error)

	assignment := models.Assignment{RubricID: rubric.ID, Title: "Lab 1", Status: models.AssignmentStatusClosed, Deadline: time.Now().Add(-time.Hour), MaxScore: 10}
	require.NoError(t, db.Create(&assignment).Error)

	students := []models.Student{
		{Name: "Ana", Email: "ana@example.com", StudentNumber: "S-1"},
		{Name: "Ben", Email: "ben@example.com", StudentNumber: "S-2"},
	}
	require.NoError(t, db.Create(&students).Error)

	submittedAt := time.Now().Add(-2 * time.Hour)
	handedIn := models.Submission{AssignmentID: assignment.ID, StudentID: students[0].ID, SubmittedAt: &submittedAt, Status: models.SubmissionStatusSubmitted}
	missing := models.Submission{AssignmentID: assignment.ID, StudentID: students[1].ID, Status: models.SubmissionStatusNotSubmitted}
	require.NoError(t, db.Create(&handedIn).Error)
	require.NoError(t, db.Create(&missing).Error)

	gradingRepo := repository.NewGradingRepository(db)
	peerRepo := repository.NewPeerReviewRepository(db)
	activity := NewActivityService(repository.NewActivityLogRepository(db), testLogger())
	events := &recordingEventSink{}
	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewGradingService(gradingRepo, peerRepo, validate, activity, events, GradingServiceConfig{AutoZeroFeedback: "Nothing submitted"}, testLogger())

	_, err := svc.PublishGrades(ctx, assignment.ID, false, instructor)
	require.Error(t, err)

	graded, err := svc.GradeSubmission(ctx, handedIn.ID, dto.GradeSubmissionRequest{
		Criteria: []dto.CriterionFeedbackInput{
			{CriterionID: criteria[0].ID, Score: ptrFloat(9), Feedback: "Careful setup"},
			{CriterionID: criteria[1].ID, Score: ptrFloat(7), Feedback: "Discussion is thin"},
		},
	}, instructor)
	require.NoError(t, err)
	require.InDelta(t, 7.8, *graded.FinalScore, 1e-9)
	require.Equal(t, 1, graded.Version)

	zeroed, err := svc.AutoGradeZero(ctx, assignment.ID, instructor)
	require.NoError(t, err)
	require.Equal(t, []uint{missing.ID}, zeroed.Succeeded)

	var stored models.Submission
	require.NoError(t, db.First(&stored, missing.ID).Error)
	require.Equal(t, models.SubmissionStatusGraded, stored.Status)
	require.Equal(t, "Nothing submitted", stored.Feedback)
	require.Equal(t, 0.0, *stored.FinalScore)

	published, err := svc.PublishGrades(ctx, assignment.ID, false, instructor)
	require.NoError(t, err)
	require.Empty(t, published.Ungraded)

	var reloaded models.Assignment
	require.NoError(t, db.First(&reloaded, assignment.ID).Error)
	require.Equal(t, models.AssignmentStatusGradesPublished, reloaded.Status)

	overridden, err := svc.OverrideFinalScore(ctx, handedIn.ID, dto.OverrideFinalScoreRequest{FinalScore: ptrFloat(8.5), Reason: "Rounding policy"}, instructor)
	require.NoError(t, err)
	require.InDelta(t, 8.5, *overridden.FinalScore, 1e-9)
	require.InDelta(t, 7.8, *overridden.InstructorScore, 1e-9)
	require.Len(t, overridden.Criteria, 2)

	audit, err := svc.SubmissionAudit(ctx, handedIn.ID)
	require.NoError(t, err)
	require.Len(t, audit.History, 2)
	require.Len(t, audit.Activity, 2)

	require.Equal(t, []string{
		GradeEventSubmissionGraded,
		GradeEventSubmissionsAutoZeroed,
		GradeEventGradesPublished,
		GradeEventFinalScoreOverridden,
	}, events.types())
}
