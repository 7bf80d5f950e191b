package models

import "time"

// PeerReview is a score a student gave to a classmate's submission.
type PeerReview struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	ReviewerID      uint      `gorm:"not null;index" json:"reviewer_id"`
	SubmissionID    uint      `gorm:"not null;index" json:"submission_id"`
	OverallScore    float64   `gorm:"not null" json:"overall_score"`
	GeneralFeedback string    `gorm:"type:text" json:"general_feedback"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// RegradeRequestStatus tracks the review of a student's regrade request.
type RegradeRequestStatus string

const (
	RegradeRequestPending  RegradeRequestStatus = "pending"
	RegradeRequestApproved RegradeRequestStatus = "approved"
	RegradeRequestRejected RegradeRequestStatus = "rejected"
)

// RegradeRequest records a student's request to have a published grade revisited.
type RegradeRequest struct {
	ID           uint                 `gorm:"primaryKey" json:"id"`
	SubmissionID uint                 `gorm:"not null;index" json:"submission_id"`
	Reason       string               `gorm:"type:text" json:"reason"`
	Status       RegradeRequestStatus `gorm:"size:16;not null;default:pending" json:"status"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}
