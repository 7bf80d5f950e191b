package models

import "time"

// Student represents a learner enrolled in a course.
type Student struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	StudentNumber string    `gorm:"size:32;uniqueIndex" json:"student_number"`
	Name          string    `gorm:"size:255;not null" json:"name"`
	Email         string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
