package grading

import (
	"fmt"
	"math"

	"github.com/noah-isme/gema-grading-api/internal/models"
)

const weightTolerance = 1e-6

// CriterionScore pairs a criterion's awarded score with its percentage weight.
type CriterionScore struct {
	CriterionID uint
	Score       float64
	Weight      float64
}

// ComputeTotalScore combines weighted criterion scores into one total rounded to a tenth.
// Weights are not renormalised; the result stays within 0..10 only when they sum to 100.
func ComputeTotalScore(scores []CriterionScore) Score {
	var total float64
	for _, item := range scores {
		score := item.Score
		if math.IsNaN(score) {
			score = 0
		}
		total += score * item.Weight
	}
	return Score(RoundTenth(total / 100))
}

// ComputeAveragePeerScore returns the arithmetic mean of peer review scores, or 0 when none exist.
func ComputeAveragePeerScore(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, score := range scores {
		sum += score
	}
	return sum / float64(len(scores))
}

// ValidateRubricWeights ensures a rubric is usable for grading.
func ValidateRubricWeights(criteria []models.Criterion) error {
	if len(criteria) == 0 {
		return &ValidationError{Field: "rubric", Message: "rubric has no criteria"}
	}
	var total float64
	for _, criterion := range criteria {
		if criterion.Weight < 0 || criterion.Weight > 100 {
			return &ValidationError{Field: "rubric", Message: fmt.Sprintf("criterion %q has weight %g outside 0..100", criterion.Title, criterion.Weight)}
		}
		total += criterion.Weight
	}
	if math.Abs(total-100) > weightTolerance {
		return &ValidationError{Field: "rubric", Message: fmt.Sprintf("criterion weights total %g, expected 100", total)}
	}
	return nil
}
