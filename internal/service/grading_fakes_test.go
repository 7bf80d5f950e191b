package service

import (
	"context"
	"sort"
	"sync"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-grading-api/internal/models"
	"github.com/noah-isme/gema-grading-api/internal/repository"
)

// fakeGradingRepo keeps grading state in memory. Transactions snapshot the state and
// restore it when the callback fails.
type fakeGradingRepo struct {
	assignments map[uint]models.Assignment
	criteria    map[uint][]models.Criterion
	submissions map[uint]models.Submission
	feedback    map[uint][]models.CriterionFeedback
	history     []models.SubmissionGradeHistory
	regrades    map[uint]bool

	failZeroGrade    map[uint]error
	concurrentWriter bool
	statusRace       bool
}

type fakeGradingState struct {
	assignments map[uint]models.Assignment
	submissions map[uint]models.Submission
	feedback    map[uint][]models.CriterionFeedback
	history     []models.SubmissionGradeHistory
}

func newFakeGradingRepo() *fakeGradingRepo {
	return &fakeGradingRepo{
		assignments:   map[uint]models.Assignment{},
		criteria:      map[uint][]models.Criterion{},
		submissions:   map[uint]models.Submission{},
		feedback:      map[uint][]models.CriterionFeedback{},
		regrades:      map[uint]bool{},
		failZeroGrade: map[uint]error{},
	}
}

func (f *fakeGradingRepo) snapshot() fakeGradingState {
	state := fakeGradingState{
		assignments: make(map[uint]models.Assignment, len(f.assignments)),
		submissions: make(map[uint]models.Submission, len(f.submissions)),
		feedback:    make(map[uint][]models.CriterionFeedback, len(f.feedback)),
		history:     append([]models.SubmissionGradeHistory(nil), f.history...),
	}
	for id, assignment := range f.assignments {
		state.assignments[id] = assignment
	}
	for id, submission := range f.submissions {
		state.submissions[id] = submission
	}
	for id, rows := range f.feedback {
		state.feedback[id] = append([]models.CriterionFeedback(nil), rows...)
	}
	return state
}

func (f *fakeGradingRepo) restore(state fakeGradingState) {
	f.assignments = state.assignments
	f.submissions = state.submissions
	f.feedback = state.feedback
	f.history = state.history
}

func (f *fakeGradingRepo) Transaction(ctx context.Context, fn func(repo repository.GradingRepository) error) error {
	state := f.snapshot()
	if err := fn(f); err != nil {
		f.restore(state)
		return err
	}
	return nil
}

func (f *fakeGradingRepo) GetAssignment(ctx context.Context, id uint) (models.Assignment, error) {
	assignment, ok := f.assignments[id]
	if !ok {
		return models.Assignment{}, gorm.ErrRecordNotFound
	}
	return assignment, nil
}

func (f *fakeGradingRepo) ListCriteriaForAssignment(ctx context.Context, assignmentID uint) ([]models.Criterion, error) {
	return append([]models.Criterion(nil), f.criteria[assignmentID]...), nil
}

func (f *fakeGradingRepo) UpdateAssignmentStatus(ctx context.Context, id uint, from, to models.AssignmentStatus) error {
	assignment := f.assignments[id]
	if f.statusRace || assignment.Status != from {
		return repository.ErrAssignmentStatusChanged
	}
	assignment.Status = to
	f.assignments[id] = assignment
	return nil
}

func (f *fakeGradingRepo) ConfirmAssignmentStatus(ctx context.Context, id uint, status models.AssignmentStatus) error {
	if f.statusRace || f.assignments[id].Status != status {
		return repository.ErrAssignmentStatusChanged
	}
	return nil
}

func (f *fakeGradingRepo) GetSubmission(ctx context.Context, id uint) (models.Submission, error) {
	submission, ok := f.submissions[id]
	if !ok {
		return models.Submission{}, gorm.ErrRecordNotFound
	}
	return submission, nil
}

func (f *fakeGradingRepo) ListSubmissions(ctx context.Context, assignmentID uint) ([]models.Submission, error) {
	var result []models.Submission
	for _, submission := range f.submissions {
		if submission.AssignmentID == assignmentID {
			result = append(result, submission)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (f *fakeGradingRepo) HasApprovedRegrade(ctx context.Context, submissionID uint) (bool, error) {
	return f.regrades[submissionID], nil
}

func (f *fakeGradingRepo) UpsertCriterionFeedback(ctx context.Context, feedback []models.CriterionFeedback) error {
	for _, row := range feedback {
		existing := f.feedback[row.SubmissionID]
		replaced := false
		for idx := range existing {
			if existing[idx].CriterionID == row.CriterionID {
				existing[idx] = row
				replaced = true
			}
		}
		if !replaced {
			existing = append(existing, row)
		}
		f.feedback[row.SubmissionID] = existing
	}
	return nil
}

func (f *fakeGradingRepo) ListCriterionFeedback(ctx context.Context, submissionID uint) ([]models.CriterionFeedback, error) {
	return append([]models.CriterionFeedback(nil), f.feedback[submissionID]...), nil
}

func (f *fakeGradingRepo) checkVersion(submission *models.Submission) error {
	stored := f.submissions[submission.ID]
	if f.concurrentWriter {
		stored.Version++
		f.submissions[submission.ID] = stored
	}
	if stored.Version != submission.Version {
		return repository.ErrStaleSubmission
	}
	return nil
}

func (f *fakeGradingRepo) SaveGrade(ctx context.Context, submission *models.Submission) error {
	if err := f.checkVersion(submission); err != nil {
		return err
	}
	submission.Version++
	f.submissions[submission.ID] = *submission
	return nil
}

func (f *fakeGradingRepo) SaveZeroGrade(ctx context.Context, submission *models.Submission) error {
	if err := f.failZeroGrade[submission.ID]; err != nil {
		return err
	}
	if f.submissions[submission.ID].Status == models.SubmissionStatusGraded {
		return repository.ErrStaleSubmission
	}
	if err := f.checkVersion(submission); err != nil {
		return err
	}
	submission.Version++
	f.submissions[submission.ID] = *submission
	return nil
}

func (f *fakeGradingRepo) SaveFinalScore(ctx context.Context, submission *models.Submission) error {
	if err := f.checkVersion(submission); err != nil {
		return err
	}
	stored := f.submissions[submission.ID]
	stored.FinalScore = submission.FinalScore
	stored.Version++
	submission.Version = stored.Version
	f.submissions[submission.ID] = stored
	return nil
}

func (f *fakeGradingRepo) CreateHistory(ctx context.Context, history *models.SubmissionGradeHistory) error {
	history.ID = uint(len(f.history) + 1)
	f.history = append(f.history, *history)
	return nil
}

func (f *fakeGradingRepo) ListHistory(ctx context.Context, submissionID uint) ([]models.SubmissionGradeHistory, error) {
	var result []models.SubmissionGradeHistory
	for idx := len(f.history) - 1; idx >= 0; idx-- {
		if f.history[idx].SubmissionID == submissionID {
			result = append(result, f.history[idx])
		}
	}
	return result, nil
}

type fakePeerReviewRepo struct {
	reviews map[uint][]models.PeerReview
}

func (f *fakePeerReviewRepo) ListBySubmission(ctx context.Context, submissionID uint) ([]models.PeerReview, error) {
	return f.reviews[submissionID], nil
}

func (f *fakePeerReviewRepo) ListBySubmissions(ctx context.Context, submissionIDs []uint) (map[uint][]models.PeerReview, error) {
	result := make(map[uint][]models.PeerReview, len(submissionIDs))
	for _, id := range submissionIDs {
		if reviews, ok := f.reviews[id]; ok {
			result[id] = reviews
		}
	}
	return result, nil
}

type recordingEventSink struct {
	mu     sync.Mutex
	events []GradeEvent
}

func (r *recordingEventSink) Emit(ctx context.Context, event GradeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingEventSink) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]string, 0, len(r.events))
	for _, event := range r.events {
		types = append(types, event.Type)
	}
	return types
}
