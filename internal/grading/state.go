package grading

import (
	"time"

	"github.com/noah-isme/gema-grading-api/internal/models"
)

// sentinelSubmittedAt is the default date some importers write instead of NULL.
var sentinelSubmittedAt = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)

// HasSubmitted reports whether submittedAt marks a real hand-in.
func HasSubmitted(submittedAt *time.Time) bool {
	if submittedAt == nil || submittedAt.IsZero() {
		return false
	}
	return submittedAt.After(sentinelSubmittedAt)
}

// LifecycleStatus derives the effective status of a stored submission. A graded row stays
// graded; otherwise the hand-in timestamp decides.
func LifecycleStatus(submission models.Submission) models.SubmissionStatus {
	if submission.Status == models.SubmissionStatusGraded {
		return models.SubmissionStatusGraded
	}
	if HasSubmitted(submission.SubmittedAt) {
		return models.SubmissionStatusSubmitted
	}
	return models.SubmissionStatusNotSubmitted
}

// CanGrade guards the submitted -> graded and graded -> graded transitions.
func CanGrade(submission models.SubmissionStatus, assignment models.AssignmentStatus, regradeApproved bool) error {
	if submission == models.SubmissionStatusNotSubmitted {
		return &InvalidStateError{
			Entity:   "submission",
			Current:  string(submission),
			Required: []string{string(models.SubmissionStatusSubmitted), string(models.SubmissionStatusGraded)},
		}
	}

	switch assignment {
	case models.AssignmentStatusClosed:
		return nil
	case models.AssignmentStatusGradesPublished:
		if submission == models.SubmissionStatusGraded && regradeApproved {
			return nil
		}
	}

	return &InvalidStateError{
		Entity:   "assignment",
		Current:  string(assignment),
		Required: []string{string(models.AssignmentStatusClosed)},
	}
}

// CanAutoGradeZero guards the not_submitted -> graded transition.
func CanAutoGradeZero(assignment models.AssignmentStatus) error {
	if assignment == models.AssignmentStatusClosed || assignment == models.AssignmentStatusCancelled {
		return nil
	}
	return &InvalidStateError{
		Entity:   "assignment",
		Current:  string(assignment),
		Required: []string{string(models.AssignmentStatusClosed), string(models.AssignmentStatusCancelled)},
	}
}

// CanPublish guards the closed -> grades_published assignment transition.
func CanPublish(assignment models.AssignmentStatus) error {
	if assignment == models.AssignmentStatusClosed {
		return nil
	}
	return &InvalidStateError{
		Entity:   "assignment",
		Current:  string(assignment),
		Required: []string{string(models.AssignmentStatusClosed)},
	}
}

// UngradedSubmissions returns the ids that block a non-forced publish.
func UngradedSubmissions(submissions []models.Submission) []uint {
	ids := make([]uint, 0)
	for _, submission := range submissions {
		if LifecycleStatus(submission) != models.SubmissionStatusGraded {
			ids = append(ids, submission.ID)
		}
	}
	return ids
}
