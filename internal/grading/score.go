package grading

import (
	"fmt"
	"math"

	"github.com/noah-isme/gema-grading-api/internal/models"
)

// Score is a grade on the fixed 0..10 scale.
type Score float64

// NewScore validates a raw value from the request boundary.
func NewScore(field string, value float64) (Score, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, &ValidationError{Field: field, Message: "score must be a number"}
	}
	if value < 0 || value > models.CriterionMaxScore {
		return 0, &ValidationError{Field: field, Message: fmt.Sprintf("score must be between 0 and %g", models.CriterionMaxScore)}
	}
	return Score(value), nil
}

// Float64 returns the raw value.
func (s Score) Float64() float64 {
	return float64(s)
}

// Ptr returns a pointer suitable for nullable model columns.
func (s Score) Ptr() *float64 {
	v := float64(s)
	return &v
}

// RoundTenth rounds to one decimal place.
func RoundTenth(value float64) float64 {
	return math.Round(value*10) / 10
}
