package models

import (
	"time"

	"gorm.io/datatypes"
)

// Activity actions written by the grading workflow.
const (
	ActivitySubmissionGraded      = "submission.graded"
	ActivitySubmissionsAutoZeroed = "submissions.auto_zeroed"
	ActivityGradesPublished       = "assignment.grades_published"
	ActivityFinalScoreOverridden  = "submission.final_score_overridden"
)

// ActivityLog is one audited grading action. Entries are append-only; EntityType and
// EntityID point at the submission or assignment that was acted on.
type ActivityLog struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	ActorID    uint              `gorm:"not null;index" json:"actor_id"`
	ActorRole  string            `gorm:"size:32;not null" json:"actor_role"`
	Action     string            `gorm:"size:64;not null;index" json:"action"`
	EntityType string            `gorm:"size:64;not null;index:idx_activity_entity" json:"entity_type"`
	EntityID   *uint             `gorm:"index:idx_activity_entity" json:"entity_id"`
	Metadata   datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt  time.Time         `gorm:"index" json:"created_at"`
}
