package models

import "time"

// AssignmentStatus is the lifecycle state of an assignment.
type AssignmentStatus string

const (
	AssignmentStatusDraft           AssignmentStatus = "draft"
	AssignmentStatusActive          AssignmentStatus = "active"
	AssignmentStatusInReview        AssignmentStatus = "in_review"
	AssignmentStatusClosed          AssignmentStatus = "closed"
	AssignmentStatusGradesPublished AssignmentStatus = "grades_published"
	AssignmentStatusCancelled       AssignmentStatus = "cancelled"
)

// AssignmentMaxScore is the fixed upper bound of every assignment grade.
const AssignmentMaxScore = 10.0

// Assignment represents a graded assignment definition.
type Assignment struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	RubricID    uint             `gorm:"not null;index" json:"rubric_id"`
	Title       string           `gorm:"size:255;not null" json:"title"`
	Description string           `gorm:"type:text" json:"description"`
	Status      AssignmentStatus `gorm:"size:32;not null;default:draft" json:"status"`
	Deadline    time.Time        `gorm:"not null" json:"deadline"`
	MaxScore    float64          `gorm:"not null;default:10" json:"max_score"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	Rubric      Rubric           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	Submissions []Submission     `json:"-"`
}

// IsPastDue returns true when the assignment deadline has already passed.
func (a Assignment) IsPastDue(reference time.Time) bool {
	return reference.After(a.Deadline)
}
