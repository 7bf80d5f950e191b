package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-grading-api/internal/dto"
	"github.com/noah-isme/gema-grading-api/internal/grading"
	"github.com/noah-isme/gema-grading-api/internal/models"
	"github.com/noah-isme/gema-grading-api/internal/observability"
	"github.com/noah-isme/gema-grading-api/internal/repository"
)

// DefaultAutoZeroFeedback is the note written on submissions graded by AutoGradeZero.
const DefaultAutoZeroFeedback = "No submission was received before grading closed. A score of 0 was recorded automatically."

const (
	opGrade       = "grade_submission"
	opAutoZero    = "auto_grade_zero"
	opPublish     = "publish_grades"
	opOverride    = "override_final_score"
	opPreview     = "preview_total_score"
	opPeerSummary = "peer_score_summary"
	opAudit       = "submission_audit"
)

const (
	entitySubmission = "submission"
	entityAssignment = "assignment"

	auditPageSize  = 50
	previewEpsilon = 1e-6
)

// GradingServiceConfig tunes workflow behaviour.
type GradingServiceConfig struct {
	AutoZeroFeedback string
}

// GradingService runs the submission grading workflow. Every mutating operation takes the
// acting instructor explicitly.
type GradingService interface {
	GradeSubmission(ctx context.Context, submissionID uint, payload dto.GradeSubmissionRequest, actor ActivityActor) (dto.SubmissionGradeResponse, error)
	AutoGradeZero(ctx context.Context, assignmentID uint, actor ActivityActor) (dto.AutoGradeZeroResponse, error)
	PublishGrades(ctx context.Context, assignmentID uint, forcePublish bool, actor ActivityActor) (dto.PublishGradesResponse, error)
	OverrideFinalScore(ctx context.Context, submissionID uint, payload dto.OverrideFinalScoreRequest, actor ActivityActor) (dto.SubmissionGradeResponse, error)
	PreviewTotalScore(ctx context.Context, payload dto.ScorePreviewRequest) (dto.ScorePreviewResponse, error)
	PeerScoreSummary(ctx context.Context, submissionID uint) (dto.PeerScoreResponse, error)
	SubmissionAudit(ctx context.Context, submissionID uint) (dto.SubmissionAuditResponse, error)
}

type gradingService struct {
	repo             repository.GradingRepository
	peerReviews      repository.PeerReviewRepository
	validator        *validator.Validate
	activity         ActivityService
	events           GradeEventSink
	sanitizer        *bluemonday.Policy
	logger           zerolog.Logger
	tracer           trace.Tracer
	now              func() time.Time
	autoZeroFeedback string
}

// NewGradingService constructs the grading workflow. activity and events may be nil.
func NewGradingService(
	repo repository.GradingRepository,
	peerReviews repository.PeerReviewRepository,
	validate *validator.Validate,
	activity ActivityService,
	events GradeEventSink,
	cfg GradingServiceConfig,
	logger zerolog.Logger,
) GradingService {
	note := strings.TrimSpace(cfg.AutoZeroFeedback)
	if note == "" {
		note = DefaultAutoZeroFeedback
	}

	return &gradingService{
		repo:             repo,
		peerReviews:      peerReviews,
		validator:        validate,
		activity:         activity,
		events:           events,
		sanitizer:        bluemonday.StrictPolicy(),
		logger:           logger.With().Str("component", "grading_service").Logger(),
		tracer:           otel.Tracer("github.com/noah-isme/gema-grading-api/internal/service/grading"),
		now:              time.Now,
		autoZeroFeedback: note,
	}
}

func (s *gradingService) GradeSubmission(ctx context.Context, submissionID uint, payload dto.GradeSubmissionRequest, actor ActivityActor) (dto.SubmissionGradeResponse, error) {
	ctx, span := s.tracer.Start(ctx, "grading.grade_submission", trace.WithAttributes(
		attribute.Int64("grading.submission_id", int64(submissionID)),
		attribute.Int64("grading.actor_id", int64(actor.ID)),
	))
	defer span.End()

	if err := requireActor(actor); err != nil {
		return dto.SubmissionGradeResponse{}, s.fail(span, opGrade, err)
	}

	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionGradeResponse{}, s.fail(span, opGrade, err)
	}

	var (
		submission models.Submission
		feedback   []models.CriterionFeedback
		previous   *float64
	)

	err := s.repo.Transaction(ctx, func(tx repository.GradingRepository) error {
		var err error
		submission, err = loadSubmission(ctx, tx, submissionID)
		if err != nil {
			return err
		}

		assignment, err := loadAssignment(ctx, tx, submission.AssignmentID)
		if err != nil {
			return err
		}

		status := grading.LifecycleStatus(submission)
		regradeApproved := false
		if assignment.Status == models.AssignmentStatusGradesPublished && status == models.SubmissionStatusGraded {
			regradeApproved, err = tx.HasApprovedRegrade(ctx, submission.ID)
			if err != nil {
				return fmt.Errorf("check regrade request: %w", err)
			}
		}
		if err := grading.CanGrade(status, assignment.Status, regradeApproved); err != nil {
			return err
		}
		if err := confirmAssignmentStatus(ctx, tx, assignment); err != nil {
			return err
		}

		criteria, err := tx.ListCriteriaForAssignment(ctx, assignment.ID)
		if err != nil {
			return fmt.Errorf("load rubric criteria: %w", err)
		}
		if err := grading.ValidateRubricWeights(criteria); err != nil {
			return err
		}

		var scores []grading.CriterionScore
		feedback, scores, err = s.buildCriterionFeedback(criteria, payload.Criteria, submission.ID, actor.ID)
		if err != nil {
			return err
		}

		total := grading.ComputeTotalScore(scores)
		gradedAt := s.now()
		gradedBy := actor.ID
		previous = submission.FinalScore

		submission.Status = models.SubmissionStatusGraded
		submission.InstructorScore = total.Ptr()
		submission.FinalScore = total.Ptr()
		submission.Feedback = s.sanitize(payload.Feedback)
		submission.GradedAt = &gradedAt
		submission.GradedBy = &gradedBy

		if err := tx.SaveGrade(ctx, &submission); err != nil {
			return translateWriteError(err, submission.ID)
		}
		if err := tx.UpsertCriterionFeedback(ctx, feedback); err != nil {
			return fmt.Errorf("save criterion feedback: %w", err)
		}

		return tx.CreateHistory(ctx, &models.SubmissionGradeHistory{
			SubmissionID:       submission.ID,
			Kind:               models.GradeChangeGraded,
			PreviousFinalScore: previous,
			FinalScore:         total.Float64(),
			InstructorScore:    submission.InstructorScore,
			Note:               submission.Feedback,
			GradedBy:           actor.ID,
			GradedAt:           gradedAt,
		})
	})
	if err != nil {
		return dto.SubmissionGradeResponse{}, s.fail(span, opGrade, err)
	}

	s.recordActivity(ctx, actor, models.ActivitySubmissionGraded, entitySubmission, submission.ID, map[string]interface{}{
		"assignment_id":        submission.AssignmentID,
		"student_id":           submission.StudentID,
		"instructor_score":     *submission.InstructorScore,
		"previous_final_score": previous,
	})
	s.emit(ctx, GradeEvent{
		Type:          GradeEventSubmissionGraded,
		AssignmentID:  submission.AssignmentID,
		SubmissionIDs: []uint{submission.ID},
		ActorID:       actor.ID,
		FinalScore:    submission.FinalScore,
	})

	span.SetAttributes(attribute.Float64("grading.total_score", *submission.FinalScore))
	observability.GradingOperations().WithLabelValues(opGrade, "success").Inc()

	return dto.NewSubmissionGradeResponse(submission, feedback), nil
}

func (s *gradingService) AutoGradeZero(ctx context.Context, assignmentID uint, actor ActivityActor) (dto.AutoGradeZeroResponse, error) {
	ctx, span := s.tracer.Start(ctx, "grading.auto_grade_zero", trace.WithAttributes(
		attribute.Int64("grading.assignment_id", int64(assignmentID)),
		attribute.Int64("grading.actor_id", int64(actor.ID)),
	))
	defer span.End()

	if err := requireActor(actor); err != nil {
		return dto.AutoGradeZeroResponse{}, s.fail(span, opAutoZero, err)
	}

	assignment, err := loadAssignment(ctx, s.repo, assignmentID)
	if err != nil {
		return dto.AutoGradeZeroResponse{}, s.fail(span, opAutoZero, err)
	}
	if err := grading.CanAutoGradeZero(assignment.Status); err != nil {
		return dto.AutoGradeZeroResponse{}, s.fail(span, opAutoZero, err)
	}

	submissions, err := s.repo.ListSubmissions(ctx, assignmentID)
	if err != nil {
		return dto.AutoGradeZeroResponse{}, s.fail(span, opAutoZero, fmt.Errorf("list submissions: %w", err))
	}

	result := dto.AutoGradeZeroResponse{
		AssignmentID: assignmentID,
		Succeeded:    []uint{},
		Failed:       []dto.AutoGradeFailure{},
	}

	for _, submission := range submissions {
		if grading.LifecycleStatus(submission) != models.SubmissionStatusNotSubmitted {
			continue
		}

		if err := s.zeroGradeOne(ctx, assignmentID, submission.ID, actor.ID); err != nil {
			s.logger.Warn().Err(err).
				Uint("assignment_id", assignmentID).
				Uint("submission_id", submission.ID).
				Msg("auto zero grading failed for submission")
			result.Failed = append(result.Failed, dto.AutoGradeFailure{SubmissionID: submission.ID, Reason: err.Error()})
			observability.AutoZeroSubmissions().WithLabelValues("failed").Inc()
			continue
		}

		result.Succeeded = append(result.Succeeded, submission.ID)
		observability.AutoZeroSubmissions().WithLabelValues("succeeded").Inc()
	}

	span.SetAttributes(
		attribute.Int("grading.auto_zero.succeeded", len(result.Succeeded)),
		attribute.Int("grading.auto_zero.failed", len(result.Failed)),
	)

	if len(result.Succeeded) > 0 {
		s.recordActivity(ctx, actor, models.ActivitySubmissionsAutoZeroed, entityAssignment, assignmentID, map[string]interface{}{
			"succeeded": len(result.Succeeded),
			"failed":    len(result.Failed),
		})
		s.emit(ctx, GradeEvent{
			Type:          GradeEventSubmissionsAutoZeroed,
			AssignmentID:  assignmentID,
			SubmissionIDs: result.Succeeded,
			ActorID:       actor.ID,
		})
	}

	outcome := "success"
	if len(result.Failed) > 0 {
		outcome = "partial"
	}
	observability.GradingOperations().WithLabelValues(opAutoZero, outcome).Inc()

	return result, nil
}

func (s *gradingService) zeroGradeOne(ctx context.Context, assignmentID, submissionID, actorID uint) error {
	return s.repo.Transaction(ctx, func(tx repository.GradingRepository) error {
		assignment, err := loadAssignment(ctx, tx, assignmentID)
		if err != nil {
			return err
		}
		if err := grading.CanAutoGradeZero(assignment.Status); err != nil {
			return err
		}
		if err := confirmAssignmentStatus(ctx, tx, assignment); err != nil {
			return err
		}

		submission, err := loadSubmission(ctx, tx, submissionID)
		if err != nil {
			return err
		}
		if status := grading.LifecycleStatus(submission); status != models.SubmissionStatusNotSubmitted {
			return &grading.InvalidStateError{
				Entity:   entitySubmission,
				Current:  string(status),
				Required: []string{string(models.SubmissionStatusNotSubmitted)},
			}
		}

		zero := grading.Score(0)
		gradedAt := s.now()
		gradedBy := actorID
		previous := submission.FinalScore

		submission.Status = models.SubmissionStatusGraded
		submission.InstructorScore = zero.Ptr()
		submission.FinalScore = zero.Ptr()
		submission.Feedback = s.autoZeroFeedback
		submission.GradedAt = &gradedAt
		submission.GradedBy = &gradedBy

		if err := tx.SaveZeroGrade(ctx, &submission); err != nil {
			return translateWriteError(err, submission.ID)
		}

		return tx.CreateHistory(ctx, &models.SubmissionGradeHistory{
			SubmissionID:       submission.ID,
			Kind:               models.GradeChangeAutoZero,
			PreviousFinalScore: previous,
			FinalScore:         0,
			InstructorScore:    submission.InstructorScore,
			Note:               s.autoZeroFeedback,
			GradedBy:           actorID,
			GradedAt:           gradedAt,
		})
	})
}

func (s *gradingService) PublishGrades(ctx context.Context, assignmentID uint, forcePublish bool, actor ActivityActor) (dto.PublishGradesResponse, error) {
	ctx, span := s.tracer.Start(ctx, "grading.publish_grades", trace.WithAttributes(
		attribute.Int64("grading.assignment_id", int64(assignmentID)),
		attribute.Int64("grading.actor_id", int64(actor.ID)),
		attribute.Bool("grading.force_publish", forcePublish),
	))
	defer span.End()

	if err := requireActor(actor); err != nil {
		return dto.PublishGradesResponse{}, s.fail(span, opPublish, err)
	}

	var ungraded []uint
	err := s.repo.Transaction(ctx, func(tx repository.GradingRepository) error {
		assignment, err := loadAssignment(ctx, tx, assignmentID)
		if err != nil {
			return err
		}
		if err := grading.CanPublish(assignment.Status); err != nil {
			return err
		}

		submissions, err := tx.ListSubmissions(ctx, assignmentID)
		if err != nil {
			return fmt.Errorf("list submissions: %w", err)
		}

		ungraded = grading.UngradedSubmissions(submissions)
		if len(ungraded) > 0 && !forcePublish {
			return &grading.PreconditionError{
				Message:       fmt.Sprintf("%d submission(s) still need a grade before publishing", len(ungraded)),
				SubmissionIDs: ungraded,
			}
		}

		if err := tx.UpdateAssignmentStatus(ctx, assignmentID, models.AssignmentStatusClosed, models.AssignmentStatusGradesPublished); err != nil {
			if errors.Is(err, repository.ErrAssignmentStatusChanged) {
				return &grading.ConflictError{Entity: entityAssignment, ID: assignmentID}
			}
			return fmt.Errorf("update assignment status: %w", err)
		}
		return nil
	})
	if err != nil {
		return dto.PublishGradesResponse{}, s.fail(span, opPublish, err)
	}

	s.recordActivity(ctx, actor, models.ActivityGradesPublished, entityAssignment, assignmentID, map[string]interface{}{
		"force_publish":  forcePublish,
		"ungraded_count": len(ungraded),
	})
	s.emit(ctx, GradeEvent{
		Type:         GradeEventGradesPublished,
		AssignmentID: assignmentID,
		ActorID:      actor.ID,
	})
	observability.GradingOperations().WithLabelValues(opPublish, "success").Inc()

	return dto.PublishGradesResponse{
		AssignmentID: assignmentID,
		Status:       string(models.AssignmentStatusGradesPublished),
		Forced:       forcePublish,
		Ungraded:     ungraded,
	}, nil
}

func (s *gradingService) OverrideFinalScore(ctx context.Context, submissionID uint, payload dto.OverrideFinalScoreRequest, actor ActivityActor) (dto.SubmissionGradeResponse, error) {
	ctx, span := s.tracer.Start(ctx, "grading.override_final_score", trace.WithAttributes(
		attribute.Int64("grading.submission_id", int64(submissionID)),
		attribute.Int64("grading.actor_id", int64(actor.ID)),
	))
	defer span.End()

	if err := requireActor(actor); err != nil {
		return dto.SubmissionGradeResponse{}, s.fail(span, opOverride, err)
	}

	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionGradeResponse{}, s.fail(span, opOverride, err)
	}
	if payload.FinalScore == nil {
		return dto.SubmissionGradeResponse{}, s.fail(span, opOverride, &grading.ValidationError{Field: "final_score", Message: "final score is required"})
	}
	score, err := grading.NewScore("final_score", *payload.FinalScore)
	if err != nil {
		return dto.SubmissionGradeResponse{}, s.fail(span, opOverride, err)
	}
	reason := s.sanitize(payload.Reason)

	var (
		submission models.Submission
		previous   *float64
	)
	err = s.repo.Transaction(ctx, func(tx repository.GradingRepository) error {
		var err error
		submission, err = loadSubmission(ctx, tx, submissionID)
		if err != nil {
			return err
		}
		if status := grading.LifecycleStatus(submission); status != models.SubmissionStatusGraded {
			return &grading.InvalidStateError{
				Entity:   entitySubmission,
				Current:  string(status),
				Required: []string{string(models.SubmissionStatusGraded)},
			}
		}

		previous = submission.FinalScore
		submission.FinalScore = score.Ptr()
		if err := tx.SaveFinalScore(ctx, &submission); err != nil {
			return translateWriteError(err, submission.ID)
		}

		return tx.CreateHistory(ctx, &models.SubmissionGradeHistory{
			SubmissionID:       submission.ID,
			Kind:               models.GradeChangeOverride,
			PreviousFinalScore: previous,
			FinalScore:         score.Float64(),
			InstructorScore:    submission.InstructorScore,
			Note:               reason,
			GradedBy:           actor.ID,
			GradedAt:           s.now(),
		})
	})
	if err != nil {
		return dto.SubmissionGradeResponse{}, s.fail(span, opOverride, err)
	}

	feedback, err := s.repo.ListCriterionFeedback(ctx, submission.ID)
	if err != nil {
		s.logger.Warn().Err(err).Uint("submission_id", submission.ID).Msg("failed to load criterion feedback after override")
	}

	s.recordActivity(ctx, actor, models.ActivityFinalScoreOverridden, entitySubmission, submission.ID, map[string]interface{}{
		"assignment_id":        submission.AssignmentID,
		"previous_final_score": previous,
		"final_score":          score.Float64(),
		"instructor_score":     submission.InstructorScore,
		"reason":               reason,
	})
	s.emit(ctx, GradeEvent{
		Type:          GradeEventFinalScoreOverridden,
		AssignmentID:  submission.AssignmentID,
		SubmissionIDs: []uint{submission.ID},
		ActorID:       actor.ID,
		FinalScore:    submission.FinalScore,
	})
	observability.GradingOperations().WithLabelValues(opOverride, "success").Inc()

	return dto.NewSubmissionGradeResponse(submission, feedback), nil
}

func (s *gradingService) PreviewTotalScore(ctx context.Context, payload dto.ScorePreviewRequest) (dto.ScorePreviewResponse, error) {
	_, span := s.tracer.Start(ctx, "grading.preview_total_score")
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		return dto.ScorePreviewResponse{}, s.fail(span, opPreview, err)
	}

	scores := make([]grading.CriterionScore, 0, len(payload.Criteria))
	var weightTotal float64
	for _, item := range payload.Criteria {
		scores = append(scores, grading.CriterionScore{CriterionID: item.CriterionID, Score: item.Score, Weight: item.Weight})
		weightTotal += item.Weight
	}

	return dto.ScorePreviewResponse{
		TotalScore:  grading.ComputeTotalScore(scores).Float64(),
		WeightTotal: weightTotal,
		Complete:    math.Abs(weightTotal-100) < previewEpsilon,
	}, nil
}

func (s *gradingService) PeerScoreSummary(ctx context.Context, submissionID uint) (dto.PeerScoreResponse, error) {
	ctx, span := s.tracer.Start(ctx, "grading.peer_score_summary", trace.WithAttributes(
		attribute.Int64("grading.submission_id", int64(submissionID)),
	))
	defer span.End()

	if _, err := loadSubmission(ctx, s.repo, submissionID); err != nil {
		return dto.PeerScoreResponse{}, s.fail(span, opPeerSummary, err)
	}

	reviews, err := s.peerReviews.ListBySubmission(ctx, submissionID)
	if err != nil {
		return dto.PeerScoreResponse{}, s.fail(span, opPeerSummary, fmt.Errorf("list peer reviews: %w", err))
	}

	return dto.PeerScoreResponse{
		SubmissionID: submissionID,
		AverageScore: grading.ComputeAveragePeerScore(overallScores(reviews)),
		ReviewCount:  len(reviews),
	}, nil
}

func (s *gradingService) SubmissionAudit(ctx context.Context, submissionID uint) (dto.SubmissionAuditResponse, error) {
	ctx, span := s.tracer.Start(ctx, "grading.submission_audit", trace.WithAttributes(
		attribute.Int64("grading.submission_id", int64(submissionID)),
	))
	defer span.End()

	if _, err := loadSubmission(ctx, s.repo, submissionID); err != nil {
		return dto.SubmissionAuditResponse{}, s.fail(span, opAudit, err)
	}

	history, err := s.repo.ListHistory(ctx, submissionID)
	if err != nil {
		return dto.SubmissionAuditResponse{}, s.fail(span, opAudit, fmt.Errorf("list grade history: %w", err))
	}

	response := dto.SubmissionAuditResponse{
		SubmissionID: submissionID,
		History:      make([]dto.GradeHistoryResponse, 0, len(history)),
		Activity:     []dto.ActivityResponse{},
	}
	for _, entry := range history {
		response.History = append(response.History, dto.NewGradeHistoryResponse(entry))
	}

	if s.activity != nil {
		entityID := submissionID
		activity, err := s.activity.List(ctx, dto.ActivityListRequest{
			Page:       1,
			PageSize:   auditPageSize,
			EntityType: entitySubmission,
			EntityID:   &entityID,
		})
		if err != nil {
			return dto.SubmissionAuditResponse{}, s.fail(span, opAudit, fmt.Errorf("list activity: %w", err))
		}
		response.Activity = activity.Items
	}

	return response, nil
}

func (s *gradingService) buildCriterionFeedback(criteria []models.Criterion, inputs []dto.CriterionFeedbackInput, submissionID, graderID uint) ([]models.CriterionFeedback, []grading.CriterionScore, error) {
	byCriterion := make(map[uint]dto.CriterionFeedbackInput, len(inputs))
	for _, input := range inputs {
		if _, duplicate := byCriterion[input.CriterionID]; duplicate {
			return nil, nil, &grading.ValidationError{Field: "criteria", Message: fmt.Sprintf("criterion %d appears more than once", input.CriterionID)}
		}
		byCriterion[input.CriterionID] = input
	}

	known := make(map[uint]struct{}, len(criteria))
	for _, criterion := range criteria {
		known[criterion.ID] = struct{}{}
	}
	for _, input := range inputs {
		if _, ok := known[input.CriterionID]; !ok {
			return nil, nil, &grading.ValidationError{Field: "criteria", Message: fmt.Sprintf("criterion %d is not part of this assignment's rubric", input.CriterionID)}
		}
	}

	feedback := make([]models.CriterionFeedback, 0, len(criteria))
	scores := make([]grading.CriterionScore, 0, len(criteria))
	for _, criterion := range criteria {
		input, ok := byCriterion[criterion.ID]
		if !ok {
			return nil, nil, &grading.ValidationError{Field: "criteria", Message: fmt.Sprintf("criterion %q has no feedback entry", criterion.Title)}
		}
		if input.Score == nil {
			return nil, nil, &grading.ValidationError{Field: "criteria", Message: fmt.Sprintf("criterion %q is missing a score", criterion.Title)}
		}
		score, err := grading.NewScore(fmt.Sprintf("criterion %q", criterion.Title), *input.Score)
		if err != nil {
			return nil, nil, err
		}
		text := s.sanitize(input.Feedback)
		if text == "" {
			return nil, nil, &grading.ValidationError{Field: "criteria", Message: fmt.Sprintf("criterion %q requires feedback text", criterion.Title)}
		}

		feedback = append(feedback, models.CriterionFeedback{
			SubmissionID: submissionID,
			CriterionID:  criterion.ID,
			Score:        score.Float64(),
			Feedback:     text,
			GradedBy:     graderID,
		})
		scores = append(scores, grading.CriterionScore{
			CriterionID: criterion.ID,
			Score:       score.Float64(),
			Weight:      criterion.Weight,
		})
	}

	return feedback, scores, nil
}

// sanitize strips markup and stores the remaining text unescaped.
func (s *gradingService) sanitize(text string) string {
	return strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(text)))
}

func (s *gradingService) recordActivity(ctx context.Context, actor ActivityActor, action, entityType string, entityID uint, metadata map[string]interface{}) {
	if s.activity == nil {
		return
	}
	id := entityID
	if _, err := s.activity.Record(ctx, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     action,
		EntityType: entityType,
		EntityID:   &id,
		Metadata:   metadata,
	}); err != nil {
		s.logger.Warn().Err(err).Str("action", action).Uint("entity_id", entityID).Msg("failed to record grading activity")
	}
}

func (s *gradingService) emit(ctx context.Context, event GradeEvent) {
	if s.events == nil {
		return
	}
	event.OccurredAt = s.now().UTC()
	s.events.Emit(ctx, event)
}

func (s *gradingService) fail(span trace.Span, operation string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, operation+"_failed")

	outcome := "rejected"
	if !grading.IsUserError(err) && !isValidationError(err) {
		outcome = "error"
		s.logger.Error().Err(err).Str("operation", operation).Msg("grading operation failed")
	}
	observability.GradingOperations().WithLabelValues(operation, outcome).Inc()

	return err
}

type submissionLoader interface {
	GetSubmission(ctx context.Context, id uint) (models.Submission, error)
}

type assignmentLoader interface {
	GetAssignment(ctx context.Context, id uint) (models.Assignment, error)
}

func loadSubmission(ctx context.Context, repo submissionLoader, id uint) (models.Submission, error) {
	submission, err := repo.GetSubmission(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Submission{}, &grading.NotFoundError{Entity: entitySubmission, ID: id}
		}
		return models.Submission{}, fmt.Errorf("load submission %d: %w", id, err)
	}
	return submission, nil
}

func loadAssignment(ctx context.Context, repo assignmentLoader, id uint) (models.Assignment, error) {
	assignment, err := repo.GetAssignment(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Assignment{}, &grading.NotFoundError{Entity: entityAssignment, ID: id}
		}
		return models.Assignment{}, fmt.Errorf("load assignment %d: %w", id, err)
	}
	return assignment, nil
}

func requireActor(actor ActivityActor) error {
	if actor.ID == 0 {
		return &grading.ValidationError{Field: "actor", Message: "grading actions require an identified instructor"}
	}
	return nil
}

func confirmAssignmentStatus(ctx context.Context, tx repository.GradingRepository, assignment models.Assignment) error {
	if err := tx.ConfirmAssignmentStatus(ctx, assignment.ID, assignment.Status); err != nil {
		if errors.Is(err, repository.ErrAssignmentStatusChanged) {
			return &grading.ConflictError{Entity: entityAssignment, ID: assignment.ID}
		}
		return fmt.Errorf("confirm assignment status: %w", err)
	}
	return nil
}

func translateWriteError(err error, submissionID uint) error {
	if errors.Is(err, repository.ErrStaleSubmission) {
		return &grading.ConflictError{Entity: entitySubmission, ID: submissionID}
	}
	return fmt.Errorf("save submission %d: %w", submissionID, err)
}

func overallScores(reviews []models.PeerReview) []float64 {
	scores := make([]float64, 0, len(reviews))
	for _, review := range reviews {
		scores = append(scores, review.OverallScore)
	}
	return scores
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}
