package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/codyseavey/card-nexus/internal/models"
)

type ReviewService struct {
	db *gorm.DB
}

func NewReviewService(db *gorm.DB) *ReviewService {
	return &ReviewService{db: db}
}

// Create records reviewerID's rating of the other party of a completed
// transaction. Each participant may review a transaction once.
func (s *ReviewService) Create(ctx context.Context, reviewerID string, transactionID uint, req models.CreateReviewRequest) (*models.Review, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, invalid("rating", "must be between 1 and 5")
	}
	if len(req.Comment) > 2000 {
		return nil, invalid("comment", "must be at most 2000 characters")
	}

	db := s.db.WithContext(ctx)
	var txn models.Transaction
	if err := db.First(&txn, transactionID).Error; err != nil {
		return nil, translate(err, "transaction")
	}

	var reviewee string
	switch reviewerID {
	case txn.BuyerID:
		reviewee = txn.SellerID
	case txn.SellerID:
		reviewee = txn.BuyerID
	default:
		return nil, ErrForbidden
	}
	if txn.Status != models.TransactionCompleted {
		return nil, conflict("only completed transactions can be reviewed")
	}

	review := models.Review{
		TransactionID: txn.ID,
		ReviewerID:    reviewerID,
		RevieweeID:    reviewee,
		Rating:        req.Rating,
		Comment:       strings.TrimSpace(req.Comment),
	}
	if err := db.Create(&review).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, conflict("transaction already reviewed")
		}
		return nil, err
	}
	return &review, nil
}

type ReviewPage struct {
	Reviews    []models.Review   `json:"reviews"`
	Pagination models.Pagination `json:"pagination"`
}

// ListForUser returns reviews received by userID, newest first.
func (s *ReviewService) ListForUser(ctx context.Context, userID string, page, limit int) (*ReviewPage, error) {
	query := s.db.WithContext(ctx).Model(&models.Review{}).Where("reviewee_id = ?", userID)

	reviews := []models.Review{}
	pagination, err := paginate(query, page, limit, "created_at DESC, id DESC", &reviews, preloadUser("Reviewer"))
	if err != nil {
		return nil, err
	}
	return &ReviewPage{Reviews: reviews, Pagination: pagination}, nil
}
