package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-grading-api/internal/models"
)

// PeerReviewRepository reads peer reviews written during the review phase.
type PeerReviewRepository interface {
	ListBySubmission(ctx context.Context, submissionID uint) ([]models.PeerReview, error)
	ListBySubmissions(ctx context.Context, submissionIDs []uint) (map[uint][]models.PeerReview, error)
}

type peerReviewRepository struct {
	db *gorm.DB
}

// NewPeerReviewRepository instantiates a read-only peer review repository.
func NewPeerReviewRepository(db *gorm.DB) PeerReviewRepository {
	return &peerReviewRepository{db: db}
}

func (r *peerReviewRepository) ListBySubmission(ctx context.Context, submissionID uint) ([]models.PeerReview, error) {
	var reviews []models.PeerReview
	if err := r.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("created_at ASC").
		Find(&reviews).Error; err != nil {
		return nil, err
	}

	return reviews, nil
}

func (r *peerReviewRepository) ListBySubmissions(ctx context.Context, submissionIDs []uint) (map[uint][]models.PeerReview, error) {
	grouped := make(map[uint][]models.PeerReview, len(submissionIDs))
	if len(submissionIDs) == 0 {
		return grouped, nil
	}

	var reviews []models.PeerReview
	if err := r.db.WithContext(ctx).
		Where("submission_id IN ?", submissionIDs).
		Order("submission_id ASC, created_at ASC").
		Find(&reviews).Error; err != nil {
		return nil, err
	}

	for _, review := range reviews {
		grouped[review.SubmissionID] = append(grouped[review.SubmissionID], review)
	}

	return grouped, nil
}
