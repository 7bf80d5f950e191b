package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-grading-api/internal/models"
)

// ErrStaleSubmission indicates the submission row changed since it was read.
var ErrStaleSubmission = errors.New("submission version is stale")

// ErrAssignmentStatusChanged indicates the assignment left the expected status before the write.
var ErrAssignmentStatusChanged = errors.New("assignment status changed")

// GradingRepository persists submissions, criterion feedback and assignment status for the
// grading workflow. Every method runs against the transaction it was obtained from.
type GradingRepository interface {
	Transaction(ctx context.Context, fn func(repo GradingRepository) error) error

	GetAssignment(ctx context.Context, id uint) (models.Assignment, error)
	ListCriteriaForAssignment(ctx context.Context, assignmentID uint) ([]models.Criterion, error)
	UpdateAssignmentStatus(ctx context.Context, id uint, from, to models.AssignmentStatus) error
	ConfirmAssignmentStatus(ctx context.Context, id uint, status models.AssignmentStatus) error

	GetSubmission(ctx context.Context, id uint) (models.Submission, error)
	ListSubmissions(ctx context.Context, assignmentID uint) ([]models.Submission, error)
	HasApprovedRegrade(ctx context.Context, submissionID uint) (bool, error)

	UpsertCriterionFeedback(ctx context.Context, feedback []models.CriterionFeedback) error
	ListCriterionFeedback(ctx context.Context, submissionID uint) ([]models.CriterionFeedback, error)

	SaveGrade(ctx context.Context, submission *models.Submission) error
	SaveZeroGrade(ctx context.Context, submission *models.Submission) error
	SaveFinalScore(ctx context.Context, submission *models.Submission) error

	CreateHistory(ctx context.Context, history *models.SubmissionGradeHistory) error
	ListHistory(ctx context.Context, submissionID uint) ([]models.SubmissionGradeHistory, error)
}

type gradingRepository struct {
	db *gorm.DB
}

// NewGradingRepository builds a GORM-backed grading repository.
func NewGradingRepository(db *gorm.DB) GradingRepository {
	return &gradingRepository{db: db}
}

func (r *gradingRepository) Transaction(ctx context.Context, fn func(repo GradingRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gradingRepository{db: tx})
	})
}

func (r *gradingRepository) GetAssignment(ctx context.Context, id uint) (models.Assignment, error) {
	var assignment models.Assignment
	if err := r.db.WithContext(ctx).First(&assignment, id).Error; err != nil {
		return models.Assignment{}, err
	}

	return assignment, nil
}

func (r *gradingRepository) ListCriteriaForAssignment(ctx context.Context, assignmentID uint) ([]models.Criterion, error) {
	rubricID := r.db.Model(&models.Assignment{}).Select("rubric_id").Where("id = ?", assignmentID)

	var criteria []models.Criterion
	if err := r.db.WithContext(ctx).
		Where("rubric_id = (?)", rubricID).
		Order("position ASC, id ASC").
		Find(&criteria).Error; err != nil {
		return nil, err
	}

	return criteria, nil
}

func (r *gradingRepository) UpdateAssignmentStatus(ctx context.Context, id uint, from, to models.AssignmentStatus) error {
	result := r.db.WithContext(ctx).Model(&models.Assignment{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAssignmentStatusChanged
	}
	return nil
}

// ConfirmAssignmentStatus touches the assignment row only while it still has status. The
// write holds the row lock until the transaction ends, so a concurrent status change
// either waits for it or makes it fail with ErrAssignmentStatusChanged.
func (r *gradingRepository) ConfirmAssignmentStatus(ctx context.Context, id uint, status models.AssignmentStatus) error {
	result := r.db.WithContext(ctx).Model(&models.Assignment{}).
		Where("id = ? AND status = ?", id, status).
		Update("updated_at", time.Now())
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAssignmentStatusChanged
	}
	return nil
}

func (r *gradingRepository) GetSubmission(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.db.WithContext(ctx).Preload("Student").First(&submission, id).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *gradingRepository) ListSubmissions(ctx context.Context, assignmentID uint) ([]models.Submission, error) {
	var submissions []models.Submission
	if err := r.db.WithContext(ctx).
		Preload("Student").
		Where("assignment_id = ?", assignmentID).
		Order("id ASC").
		Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *gradingRepository) HasApprovedRegrade(ctx context.Context, submissionID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.RegradeRequest{}).
		Where("submission_id = ? AND status = ?", submissionID, models.RegradeRequestApproved).
		Count(&count).Error; err != nil {
		return false, err
	}

	return count > 0, nil
}

func (r *gradingRepository) UpsertCriterionFeedback(ctx context.Context, feedback []models.CriterionFeedback) error {
	if len(feedback) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "submission_id"}, {Name: "criterion_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"score", "feedback", "graded_by", "updated_at"}),
	}).Create(&feedback).Error
}

func (r *gradingRepository) ListCriterionFeedback(ctx context.Context, submissionID uint) ([]models.CriterionFeedback, error) {
	var feedback []models.CriterionFeedback
	if err := r.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("criterion_id ASC").
		Find(&feedback).Error; err != nil {
		return nil, err
	}

	return feedback, nil
}

func (r *gradingRepository) SaveGrade(ctx context.Context, submission *models.Submission) error {
	return versionedUpdate(submission, r.db.WithContext(ctx).Model(&models.Submission{}).
		Where("id = ? AND version = ?", submission.ID, submission.Version),
		map[string]interface{}{
			"status":           submission.Status,
			"instructor_score": submission.InstructorScore,
			"final_score":      submission.FinalScore,
			"feedback":         submission.Feedback,
			"graded_at":        submission.GradedAt,
			"graded_by":        submission.GradedBy,
		})
}

func (r *gradingRepository) SaveZeroGrade(ctx context.Context, submission *models.Submission) error {
	return versionedUpdate(submission, r.db.WithContext(ctx).Model(&models.Submission{}).
		Where("id = ? AND version = ? AND status <> ?", submission.ID, submission.Version, models.SubmissionStatusGraded),
		map[string]interface{}{
			"status":           submission.Status,
			"instructor_score": submission.InstructorScore,
			"final_score":      submission.FinalScore,
			"feedback":         submission.Feedback,
			"graded_at":        submission.GradedAt,
			"graded_by":        submission.GradedBy,
		})
}

func (r *gradingRepository) SaveFinalScore(ctx context.Context, submission *models.Submission) error {
	return versionedUpdate(submission, r.db.WithContext(ctx).Model(&models.Submission{}).
		Where("id = ? AND version = ?", submission.ID, submission.Version),
		map[string]interface{}{
			"final_score": submission.FinalScore,
		})
}

func versionedUpdate(submission *models.Submission, query *gorm.DB, values map[string]interface{}) error {
	values["version"] = gorm.Expr("version + 1")

	result := query.Updates(values)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStaleSubmission
	}

	submission.Version++
	return nil
}

func (r *gradingRepository) CreateHistory(ctx context.Context, history *models.SubmissionGradeHistory) error {
	return r.db.WithContext(ctx).Create(history).Error
}

func (r *gradingRepository) ListHistory(ctx context.Context, submissionID uint) ([]models.SubmissionGradeHistory, error) {
	var history []models.SubmissionGradeHistory
	if err := r.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("graded_at DESC, id DESC").
		Find(&history).Error; err != nil {
		return nil, err
	}

	return history, nil
}
