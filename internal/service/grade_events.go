package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grading-api/internal/observability"
)

// Grade event types emitted after a workflow operation commits.
const (
	GradeEventSubmissionGraded      = "submission.graded"
	GradeEventSubmissionsAutoZeroed = "submissions.auto_zeroed"
	GradeEventGradesPublished       = "assignment.grades_published"
	GradeEventFinalScoreOverridden  = "submission.final_score_overridden"
)

// GradeEvent describes a committed change to an assignment's grades.
type GradeEvent struct {
	Type          string    `json:"type"`
	AssignmentID  uint      `json:"assignment_id"`
	SubmissionIDs []uint    `json:"submission_ids,omitempty"`
	ActorID       uint      `json:"actor_id"`
	FinalScore    *float64  `json:"final_score,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// GradeEventSink receives grade events. Implementations must not fail the caller.
type GradeEventSink interface {
	Emit(ctx context.Context, event GradeEvent)
}

// GradeEventSinks fans an event out to several sinks in order.
type GradeEventSinks []GradeEventSink

// Emit forwards the event to every non-nil sink.
func (s GradeEventSinks) Emit(ctx context.Context, event GradeEvent) {
	for _, sink := range s {
		if sink != nil {
			sink.Emit(ctx, event)
		}
	}
}

type gradeEventEnvelope struct {
	Source string     `json:"source"`
	Event  GradeEvent `json:"event"`
	SentAt time.Time  `json:"sent_at"`
}

type gradeEventPublisher struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	logger       zerolog.Logger
	nodeID       string
}

// NewGradeEventPublisher publishes grade events on Redis pub/sub and NATS. Either broker may be nil.
func NewGradeEventPublisher(redisClient *redis.Client, channelBase string, natsConn *nats.Conn, logger zerolog.Logger) GradeEventSink {
	channel := ""
	subject := ""
	if channelBase != "" {
		channel = RedisChannel(channelBase)
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".grades"
	}

	return &gradeEventPublisher{
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		natsSubject:  subject,
		logger:       logger.With().Str("component", "grade_event_publisher").Logger(),
		nodeID:       uuid.NewString(),
	}
}

// RedisChannel returns the pub/sub channel name used for the given base.
func RedisChannel(channelBase string) string {
	return channelBase + ":grades"
}

func (p *gradeEventPublisher) Emit(ctx context.Context, event GradeEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	payload, err := json.Marshal(gradeEventEnvelope{
		Source: p.nodeID,
		Event:  event,
		SentAt: time.Now().UTC(),
	})
	if err != nil {
		p.logger.Warn().Err(err).Str("type", event.Type).Msg("failed to encode grade event")
		return
	}

	published := false
	if p.redis != nil && p.redisChannel != "" {
		if err := p.redis.Publish(ctx, p.redisChannel, payload).Err(); err != nil {
			p.logger.Warn().Err(err).Str("type", event.Type).Msg("failed to publish grade event to redis")
		} else {
			published = true
		}
	}

	if p.nats != nil && p.natsSubject != "" {
		subject := p.natsSubject + "." + event.Type
		if err := p.nats.Publish(subject, payload); err != nil {
			p.logger.Warn().Err(err).Str("type", event.Type).Msg("failed to publish grade event to nats")
		} else {
			published = true
		}
	}

	if published {
		observability.GradeEventsPublished().WithLabelValues(event.Type).Inc()
	}
}
