package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grading-api/internal/dto"
	"github.com/noah-isme/gema-grading-api/internal/grading"
	"github.com/noah-isme/gema-grading-api/internal/models"
	"github.com/noah-isme/gema-grading-api/internal/observability"
	"github.com/noah-isme/gema-grading-api/internal/repository"
)

// GradebookService produces the per-assignment grade overview and keeps its cache fresh.
type GradebookService interface {
	GradeEventSink
	GetGradebook(ctx context.Context, assignmentID uint) (dto.GradebookResponse, error)
}

type gradebookService struct {
	repo        repository.GradingRepository
	peerReviews repository.PeerReviewRepository
	cache       *redis.Client
	cacheTTL    time.Duration
	logger      zerolog.Logger
	now         func() time.Time
}

// NewGradebookService builds the gradebook read model. cache may be nil.
func NewGradebookService(repo repository.GradingRepository, peerReviews repository.PeerReviewRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) GradebookService {
	return &gradebookService{
		repo:        repo,
		peerReviews: peerReviews,
		cache:       cache,
		cacheTTL:    ttl,
		logger:      logger.With().Str("component", "gradebook_service").Logger(),
		now:         time.Now,
	}
}

func gradebookCacheKey(assignmentID uint) string {
	return fmt.Sprintf("gradebook:assignment:%d", assignmentID)
}

func (s *gradebookService) GetGradebook(ctx context.Context, assignmentID uint) (dto.GradebookResponse, error) {
	cacheKey := gradebookCacheKey(assignmentID)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.GradebookResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				s.logger.Debug().Uint("assignment_id", assignmentID).Msg("gradebook cache hit")
				observability.GradebookCacheLookups().WithLabelValues("hit").Inc()
				response.CacheHit = true
				return response, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read gradebook cache")
		}
		observability.GradebookCacheLookups().WithLabelValues("miss").Inc()
	}

	assignment, err := loadAssignment(ctx, s.repo, assignmentID)
	if err != nil {
		return dto.GradebookResponse{}, err
	}

	submissions, err := s.repo.ListSubmissions(ctx, assignmentID)
	if err != nil {
		return dto.GradebookResponse{}, fmt.Errorf("list submissions: %w", err)
	}

	ids := make([]uint, 0, len(submissions))
	for _, submission := range submissions {
		ids = append(ids, submission.ID)
	}
	reviews, err := s.peerReviews.ListBySubmissions(ctx, ids)
	if err != nil {
		return dto.GradebookResponse{}, fmt.Errorf("list peer reviews: %w", err)
	}

	response := s.buildResponse(assignment, submissions, reviews)

	if s.cache != nil {
		payload, err := json.Marshal(response)
		if err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store gradebook cache")
			}
		}
	}

	return response, nil
}

// Emit drops the cached gradebook of the assignment the event belongs to.
func (s *gradebookService) Emit(ctx context.Context, event GradeEvent) {
	if s.cache == nil || event.AssignmentID == 0 {
		return
	}
	if err := s.cache.Del(ctx, gradebookCacheKey(event.AssignmentID)).Err(); err != nil {
		s.logger.Warn().Err(err).Uint("assignment_id", event.AssignmentID).Msg("failed to invalidate gradebook cache")
	}
}

func (s *gradebookService) buildResponse(assignment models.Assignment, submissions []models.Submission, reviews map[uint][]models.PeerReview) dto.GradebookResponse {
	summary := dto.GradebookSummary{Total: len(submissions)}
	rows := make([]dto.GradebookRow, 0, len(submissions))

	var finalTotal float64
	var finalCount int

	for _, submission := range submissions {
		status := grading.LifecycleStatus(submission)
		switch status {
		case models.SubmissionStatusNotSubmitted:
			summary.NotSubmitted++
		case models.SubmissionStatusSubmitted:
			summary.Submitted++
		case models.SubmissionStatusGraded:
			summary.Graded++
		}

		peerAverage := submission.PeerAverageScore
		submissionReviews := reviews[submission.ID]
		if len(submissionReviews) > 0 {
			average := grading.ComputeAveragePeerScore(overallScores(submissionReviews))
			peerAverage = &average
		}

		if submission.FinalScore != nil {
			finalTotal += *submission.FinalScore
			finalCount++
		}

		rows = append(rows, dto.GradebookRow{
			SubmissionID:      submission.ID,
			StudentID:         submission.StudentID,
			StudentName:       submission.Student.Name,
			Status:            string(status),
			SubmittedAt:       submission.SubmittedAt,
			InstructorScore:   submission.InstructorScore,
			PeerAverageScore:  peerAverage,
			PeerReviewCount:   len(submissionReviews),
			FinalScore:        submission.FinalScore,
			PeerReviewApplied: submission.PeerReviewApplied,
			GradedAt:          submission.GradedAt,
		})
	}

	if finalCount > 0 {
		summary.AverageFinalScore = grading.RoundTenth(finalTotal / float64(finalCount))
	}
	summary.ReadyToPublish = assignment.Status == models.AssignmentStatusClosed && summary.Graded == summary.Total

	return dto.GradebookResponse{
		AssignmentID: assignment.ID,
		Title:        assignment.Title,
		Status:       string(assignment.Status),
		Deadline:     assignment.Deadline,
		Rows:         rows,
		Summary:      summary,
		GeneratedAt:  s.now().UTC(),
	}
}
