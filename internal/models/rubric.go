package models

import "time"

// CriterionMaxScore is the fixed scale every rubric criterion is scored on.
const CriterionMaxScore = 10.0

// Rubric is a named set of weighted criteria.
type Rubric struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	Name      string      `gorm:"size:255;not null" json:"name"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
	Criteria  []Criterion `json:"criteria"`
}

// Criterion is one weighted dimension of a rubric. Weight is a percentage.
type Criterion struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	RubricID    uint      `gorm:"not null;index" json:"rubric_id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Weight      float64   `gorm:"not null" json:"weight"`
	MaxScore    float64   `gorm:"not null;default:10" json:"max_score"`
	Position    int       `gorm:"not null;default:0" json:"position"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CriterionFeedback is the score and comment an instructor awarded for one criterion.
type CriterionFeedback struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SubmissionID uint      `gorm:"not null;uniqueIndex:idx_criterion_feedback" json:"submission_id"`
	CriterionID  uint      `gorm:"not null;uniqueIndex:idx_criterion_feedback" json:"criterion_id"`
	Score        float64   `gorm:"not null" json:"score"`
	Feedback     string    `gorm:"type:text;not null" json:"feedback"`
	GradedBy     uint      `gorm:"not null" json:"graded_by"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName pins the table name so the composite unique index stays stable.
func (CriterionFeedback) TableName() string {
	return "criterion_feedbacks"
}
