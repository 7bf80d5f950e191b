package models

import "time"

// SubmissionStatus is the stored lifecycle state of a submission.
type SubmissionStatus string

const (
	// SubmissionStatusNotSubmitted indicates the student never turned anything in.
	SubmissionStatusNotSubmitted SubmissionStatus = "not_submitted"
	// SubmissionStatusSubmitted indicates the submission has been uploaded but not graded.
	SubmissionStatusSubmitted SubmissionStatus = "submitted"
	// SubmissionStatusGraded indicates the submission has been evaluated.
	SubmissionStatusGraded SubmissionStatus = "graded"
)

// Submission represents a student's entry for an assignment, turned in or not.
type Submission struct {
	ID                uint                `gorm:"primaryKey" json:"id"`
	AssignmentID      uint                `gorm:"not null;index" json:"assignment_id"`
	StudentID         uint                `gorm:"not null;index" json:"student_id"`
	FileURL           string              `gorm:"size:512" json:"file_url"`
	SubmittedAt       *time.Time          `json:"submitted_at"`
	Status            SubmissionStatus    `gorm:"size:32;not null;default:not_submitted" json:"status"`
	InstructorScore   *float64            `json:"instructor_score"`
	PeerAverageScore  *float64            `json:"peer_average_score"`
	FinalScore        *float64            `json:"final_score"`
	PeerReviewApplied bool                `gorm:"not null;default:false" json:"peer_review_applied"`
	Feedback          string              `gorm:"type:text" json:"feedback"`
	GradedAt          *time.Time          `json:"graded_at"`
	GradedBy          *uint               `json:"graded_by"`
	Version           int                 `gorm:"not null;default:0" json:"version"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
	Assignment        Assignment          `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Student           Student             `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	CriteriaFeedback  []CriterionFeedback `json:"-"`
}

// IsGraded reports whether the submission has a final grade.
func (s Submission) IsGraded() bool {
	return s.Status == SubmissionStatusGraded
}
