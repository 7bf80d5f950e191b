package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grading-api/internal/dto"
	"github.com/noah-isme/gema-grading-api/internal/grading"
	"github.com/noah-isme/gema-grading-api/internal/service"
	"github.com/noah-isme/gema-grading-api/internal/utils"
)

// GradingHandler exposes the grading workflow to instructors.
type GradingHandler struct {
	service   service.GradingService
	gradebook service.GradebookService
	bulkLimit fiber.Handler
	logger    zerolog.Logger
}

// NewGradingHandler constructs the handler. bulkLimit guards the assignment-wide actions and
// may be nil.
func NewGradingHandler(service service.GradingService, gradebook service.GradebookService, bulkLimit fiber.Handler, logger zerolog.Logger) *GradingHandler {
	if bulkLimit == nil {
		bulkLimit = func(c *fiber.Ctx) error { return c.Next() }
	}
	return &GradingHandler{
		service:   service,
		gradebook: gradebook,
		bulkLimit: bulkLimit,
		logger:    logger.With().Str("component", "grading_handler").Logger(),
	}
}

// Register attaches grading routes to the router group.
func (h *GradingHandler) Register(router fiber.Router) {
	router.Post("/submissions/:id/grade", h.grade)
	router.Patch("/submissions/:id/final-score", h.overrideFinalScore)
	router.Get("/submissions/:id/peer-score", h.peerScore)
	router.Get("/submissions/:id/audit", h.audit)
	router.Post("/assignments/:id/auto-zero", h.bulkLimit, h.autoGradeZero)
	router.Post("/assignments/:id/publish", h.bulkLimit, h.publish)
	router.Post("/scores/preview", h.preview)
	if h.gradebook != nil {
		router.Get("/assignments/:id/gradebook", h.getGradebook)
	}
}

func (h *GradingHandler) grade(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid submission id")
	}

	var payload dto.GradeSubmissionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.service.GradeSubmission(c.UserContext(), id, payload, activityActorFromContext(c))
	if err != nil {
		return h.respondError(c, err, "failed to grade submission")
	}

	return utils.SendSuccess(c, "submission graded", result)
}

func (h *GradingHandler) overrideFinalScore(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid submission id")
	}

	var payload dto.OverrideFinalScoreRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.service.OverrideFinalScore(c.UserContext(), id, payload, activityActorFromContext(c))
	if err != nil {
		return h.respondError(c, err, "failed to override final score")
	}

	return utils.SendSuccess(c, "final score updated", result)
}

func (h *GradingHandler) peerScore(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid submission id")
	}

	result, err := h.service.PeerScoreSummary(c.UserContext(), id)
	if err != nil {
		return h.respondError(c, err, "failed to load peer score")
	}

	return utils.SendSuccess(c, "peer score", result)
}

func (h *GradingHandler) audit(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid submission id")
	}

	result, err := h.service.SubmissionAudit(c.UserContext(), id)
	if err != nil {
		return h.respondError(c, err, "failed to load grading audit")
	}

	return utils.SendSuccess(c, "grading audit", result)
}

func (h *GradingHandler) autoGradeZero(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid assignment id")
	}

	result, err := h.service.AutoGradeZero(c.UserContext(), id, activityActorFromContext(c))
	if err != nil {
		return h.respondError(c, err, "failed to auto grade submissions")
	}

	message := "missing submissions graded"
	if len(result.Failed) > 0 {
		message = "missing submissions graded with failures"
	}
	return utils.SendSuccess(c, message, result)
}

func (h *GradingHandler) publish(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid assignment id")
	}

	var payload dto.PublishGradesRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
		}
	}

	result, err := h.service.PublishGrades(c.UserContext(), id, payload.ForcePublish, activityActorFromContext(c))
	if err != nil {
		return h.respondError(c, err, "failed to publish grades")
	}

	return utils.SendSuccess(c, "grades published", result)
}

func (h *GradingHandler) preview(c *fiber.Ctx) error {
	var payload dto.ScorePreviewRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.service.PreviewTotalScore(c.UserContext(), payload)
	if err != nil {
		return h.respondError(c, err, "failed to compute score")
	}

	return utils.SendSuccess(c, "score preview", result)
}

func (h *GradingHandler) getGradebook(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid assignment id")
	}

	result, err := h.gradebook.GetGradebook(c.UserContext(), id)
	if err != nil {
		return h.respondError(c, err, "failed to load gradebook")
	}

	return utils.SendSuccess(c, "gradebook", result)
}

func (h *GradingHandler) respondError(c *fiber.Ctx, err error, fallback string) error {
	var (
		notFound     *grading.NotFoundError
		state        *grading.InvalidStateError
		validation   *grading.ValidationError
		precondition *grading.PreconditionError
		conflict     *grading.ConflictError
	)

	switch {
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.As(err, &notFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.As(err, &validation):
		return utils.SendErrorWithData(c, fiber.StatusUnprocessableEntity, err.Error(), fiber.Map{"field": validation.Field})
	case errors.As(err, &state):
		return utils.SendErrorWithData(c, fiber.StatusConflict, err.Error(), fiber.Map{
			"current":  state.Current,
			"required": state.Required,
		})
	case errors.As(err, &precondition):
		return utils.SendErrorWithData(c, fiber.StatusPreconditionFailed, err.Error(), fiber.Map{"submission_ids": precondition.SubmissionIDs})
	case errors.As(err, &conflict):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Str("path", c.Path()).Msg(fallback)
		return utils.SendError(c, fiber.StatusInternalServerError, fallback)
	}
}
