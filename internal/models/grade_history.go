package models

import "time"

// GradeChangeKind labels how a submission's score was written.
type GradeChangeKind string

const (
	GradeChangeGraded   GradeChangeKind = "graded"
	GradeChangeAutoZero GradeChangeKind = "auto_zero"
	GradeChangeOverride GradeChangeKind = "override"
)

// SubmissionGradeHistory is an append-only record of every score write.
type SubmissionGradeHistory struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	SubmissionID       uint            `gorm:"not null;index" json:"submission_id"`
	Kind               GradeChangeKind `gorm:"size:16;not null" json:"kind"`
	PreviousFinalScore *float64        `json:"previous_final_score"`
	FinalScore         float64         `gorm:"not null" json:"final_score"`
	InstructorScore    *float64        `json:"instructor_score"`
	Note               string          `gorm:"type:text" json:"note"`
	GradedBy           uint            `gorm:"not null" json:"graded_by"`
	GradedAt           time.Time       `gorm:"not null" json:"graded_at"`
}
