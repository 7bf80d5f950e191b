package dto

import (
	"time"

	"github.com/noah-isme/gema-grading-api/internal/models"
)

// CriterionFeedbackInput is one criterion's score and comment in a grading request.
// Score is a pointer so an omitted score can be told apart from an awarded zero.
type CriterionFeedbackInput struct {
	CriterionID uint     `json:"criterion_id" validate:"required,gt=0"`
	Score       *float64 `json:"score"`
	Feedback    string   `json:"feedback" validate:"max=5000"`
}

// GradeSubmissionRequest captures an instructor's rubric grading of one submission.
type GradeSubmissionRequest struct {
	Criteria []CriterionFeedbackInput `json:"criteria" validate:"required,min=1,dive"`
	Feedback string                   `json:"feedback" validate:"max=10000"`
}

// OverrideFinalScoreRequest replaces a submission's final score directly.
type OverrideFinalScoreRequest struct {
	FinalScore *float64 `json:"final_score"`
	Reason     string   `json:"reason" validate:"max=2000"`
}

// PublishGradesRequest controls the publish guard.
type PublishGradesRequest struct {
	ForcePublish bool `json:"force_publish"`
}

// ScorePreviewItem is one weighted criterion score in a preview request.
type ScorePreviewItem struct {
	CriterionID uint    `json:"criterion_id"`
	Score       float64 `json:"score" validate:"gte=0,lte=10"`
	Weight      float64 `json:"weight" validate:"gte=0,lte=100"`
}

// ScorePreviewRequest asks for the weighted total of a set of criterion scores.
type ScorePreviewRequest struct {
	Criteria []ScorePreviewItem `json:"criteria" validate:"required,min=1,dive"`
}

// ScorePreviewResponse reports the computed total and the weight sum it was computed from.
type ScorePreviewResponse struct {
	TotalScore  float64 `json:"total_score"`
	WeightTotal float64 `json:"weight_total"`
	Complete    bool    `json:"complete"`
}

// CriterionFeedbackResponse serializes a stored criterion score.
type CriterionFeedbackResponse struct {
	CriterionID uint    `json:"criterion_id"`
	Score       float64 `json:"score"`
	Feedback    string  `json:"feedback"`
}

// SubmissionGradeResponse is returned after a grading or override action.
type SubmissionGradeResponse struct {
	ID                uint                        `json:"id"`
	AssignmentID      uint                        `json:"assignment_id"`
	StudentID         uint                        `json:"student_id"`
	Status            string                      `json:"status"`
	SubmittedAt       *time.Time                  `json:"submitted_at"`
	InstructorScore   *float64                    `json:"instructor_score"`
	FinalScore        *float64                    `json:"final_score"`
	PeerReviewApplied bool                        `json:"peer_review_applied"`
	Feedback          string                      `json:"feedback"`
	GradedBy          *uint                       `json:"graded_by"`
	GradedAt          *time.Time                  `json:"graded_at"`
	Version           int                         `json:"version"`
	Criteria          []CriterionFeedbackResponse `json:"criteria,omitempty"`
}

// NewSubmissionGradeResponse converts a submission and its criterion feedback into a DTO.
func NewSubmissionGradeResponse(model models.Submission, feedback []models.CriterionFeedback) SubmissionGradeResponse {
	response := SubmissionGradeResponse{
		ID:                model.ID,
		AssignmentID:      model.AssignmentID,
		StudentID:         model.StudentID,
		Status:            string(model.Status),
		SubmittedAt:       model.SubmittedAt,
		InstructorScore:   model.InstructorScore,
		FinalScore:        model.FinalScore,
		PeerReviewApplied: model.PeerReviewApplied,
		Feedback:          model.Feedback,
		GradedBy:          model.GradedBy,
		GradedAt:          model.GradedAt,
		Version:           model.Version,
	}

	if len(feedback) > 0 {
		response.Criteria = make([]CriterionFeedbackResponse, 0, len(feedback))
		for _, entry := range feedback {
			response.Criteria = append(response.Criteria, CriterionFeedbackResponse{
				CriterionID: entry.CriterionID,
				Score:       entry.Score,
				Feedback:    entry.Feedback,
			})
		}
	}

	return response
}

// AutoGradeFailure describes one submission the bulk zero-grade could not update.
type AutoGradeFailure struct {
	SubmissionID uint   `json:"submission_id"`
	Reason       string `json:"reason"`
}

// AutoGradeZeroResponse separates succeeded from failed submissions.
type AutoGradeZeroResponse struct {
	AssignmentID uint               `json:"assignment_id"`
	Succeeded    []uint             `json:"succeeded"`
	Failed       []AutoGradeFailure `json:"failed"`
}

// PublishGradesResponse reports the outcome of a publish action.
type PublishGradesResponse struct {
	AssignmentID uint   `json:"assignment_id"`
	Status       string `json:"status"`
	Forced       bool   `json:"forced"`
	Ungraded     []uint `json:"ungraded"`
}

// PeerScoreResponse summarizes the peer reviews of one submission.
type PeerScoreResponse struct {
	SubmissionID uint    `json:"submission_id"`
	AverageScore float64 `json:"average_score"`
	ReviewCount  int     `json:"review_count"`
}

// GradebookRow is one submission line of an assignment gradebook.
type GradebookRow struct {
	SubmissionID      uint       `json:"submission_id"`
	StudentID         uint       `json:"student_id"`
	StudentName       string     `json:"student_name"`
	Status            string     `json:"status"`
	SubmittedAt       *time.Time `json:"submitted_at"`
	InstructorScore   *float64   `json:"instructor_score"`
	PeerAverageScore  *float64   `json:"peer_average_score"`
	PeerReviewCount   int        `json:"peer_review_count"`
	FinalScore        *float64   `json:"final_score"`
	PeerReviewApplied bool       `json:"peer_review_applied"`
	GradedAt          *time.Time `json:"graded_at"`
}

// GradebookSummary aggregates the gradebook rows.
type GradebookSummary struct {
	Total             int     `json:"total"`
	NotSubmitted      int     `json:"not_submitted"`
	Submitted         int     `json:"submitted"`
	Graded            int     `json:"graded"`
	AverageFinalScore float64 `json:"average_final_score"`
	ReadyToPublish    bool    `json:"ready_to_publish"`
}

// GradebookResponse is the read model of one assignment's grades.
type GradebookResponse struct {
	AssignmentID uint             `json:"assignment_id"`
	Title        string           `json:"title"`
	Status       string           `json:"status"`
	Deadline     time.Time        `json:"deadline"`
	Rows         []GradebookRow   `json:"rows"`
	Summary      GradebookSummary `json:"summary"`
	GeneratedAt  time.Time        `json:"generated_at"`
	CacheHit     bool             `json:"cache_hit"`
}

// GradeHistoryResponse serializes one grade history entry.
type GradeHistoryResponse struct {
	Kind               string    `json:"kind"`
	PreviousFinalScore *float64  `json:"previous_final_score"`
	FinalScore         float64   `json:"final_score"`
	InstructorScore    *float64  `json:"instructor_score"`
	Note               string    `json:"note"`
	GradedBy           uint      `json:"graded_by"`
	GradedAt           time.Time `json:"graded_at"`
}

// NewGradeHistoryResponse converts a history model into a DTO.
func NewGradeHistoryResponse(model models.SubmissionGradeHistory) GradeHistoryResponse {
	return GradeHistoryResponse{
		Kind:               string(model.Kind),
		PreviousFinalScore: model.PreviousFinalScore,
		FinalScore:         model.FinalScore,
		InstructorScore:    model.InstructorScore,
		Note:               model.Note,
		GradedBy:           model.GradedBy,
		GradedAt:           model.GradedAt,
	}
}

// SubmissionAuditResponse combines score history and audit log entries for a submission.
type SubmissionAuditResponse struct {
	SubmissionID uint                   `json:"submission_id"`
	History      []GradeHistoryResponse `json:"history"`
	Activity     []ActivityResponse     `json:"activity"`
}
