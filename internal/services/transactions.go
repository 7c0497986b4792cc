package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/codyseavey/card-nexus/internal/metrics"
	"github.com/codyseavey/card-nexus/internal/models"
)

// TransactionService settles purchases against sell listings. Every state
// change that touches both a transaction and its listing runs in one
// database transaction.
type TransactionService struct {
	db  *gorm.DB
	log *zap.Logger
	now func() time.Time
}

func NewTransactionService(db *gorm.DB, log *zap.Logger) *TransactionService {
	return &TransactionService{db: db, log: log, now: time.Now}
}

// Purchase reserves quantity units of a sell listing for buyerID. The
// listing becomes sold when its quantity reaches zero.
func (s *TransactionService) Purchase(ctx context.Context, buyerID, listingID string, quantity int) (*models.Transaction, error) {
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 1 {
		return nil, invalid("quantity", "must be at least 1")
	}

	var txn models.Transaction
	now := s.now().UTC()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var listing models.Listing
		if err := tx.First(&listing, "id = ?", listingID).Error; err != nil {
			return translate(err, "listing")
		}
		if listing.SellerID == buyerID {
			return conflict("cannot buy your own listing")
		}
		if listing.Kind != models.ListingSell {
			return conflict("only sell listings can be purchased")
		}
		if listing.Status != models.ListingActive {
			return conflict("listing is %s", listing.Status)
		}
		if listing.ExpiredAt(now) {
			return conflict("listing is expired")
		}
		if quantity > listing.Quantity {
			return invalid("quantity", "only %d available", listing.Quantity)
		}

		remaining := listing.Quantity - quantity
		status := listing.Status
		if remaining == 0 {
			status = models.ListingSold
		}
		// Guarded on the values just read so a concurrent purchase cannot
		// oversell.
		res := tx.Model(&models.Listing{}).
			Where("id = ? AND status = ? AND quantity = ?", listing.ID, models.ListingActive, listing.Quantity).
			Where("expires_at IS NULL OR expires_at > ?", now).
			Updates(map[string]any{"quantity": remaining, "status": status})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return conflict("listing changed, try again")
		}

		txn = models.Transaction{
			ListingID:  listing.ID,
			BuyerID:    buyerID,
			SellerID:   listing.SellerID,
			CardID:     listing.CardID,
			Quantity:   quantity,
			UnitPrice:  listing.PriceUSD,
			TotalPrice: listing.PriceUSD * float64(quantity),
			Status:     models.TransactionPending,
		}
		return tx.Create(&txn).Error
	})
	if err != nil {
		return nil, err
	}

	metrics.TransactionsTotal.WithLabelValues(string(models.TransactionPending)).Inc()
	s.log.Info("Listing purchased",
		zap.Uint("transaction_id", txn.ID),
		zap.String("listing_id", listingID),
		zap.Int("quantity", quantity))
	return s.Get(ctx, buyerID, txn.ID)
}

// Get returns a transaction visible to userID (buyer or seller).
func (s *TransactionService) Get(ctx context.Context, userID string, id uint) (*models.Transaction, error) {
	var txn models.Transaction
	if err := s.db.WithContext(ctx).Preload("Card").First(&txn, id).Error; err != nil {
		return nil, translate(err, "transaction")
	}
	if txn.BuyerID != userID && txn.SellerID != userID {
		return nil, notFound("transaction")
	}
	return &txn, nil
}

// TransactionFilter narrows ListMine. Role is "buyer", "seller" or empty
// for both.
type TransactionFilter struct {
	Role   string
	Status string
	Page   int
	Limit  int
}

type TransactionPage struct {
	Transactions []models.Transaction `json:"transactions"`
	Pagination   models.Pagination    `json:"pagination"`
}

func (s *TransactionService) ListMine(ctx context.Context, userID string, f TransactionFilter) (*TransactionPage, error) {
	query := s.db.WithContext(ctx).Model(&models.Transaction{})
	switch f.Role {
	case "buyer":
		query = query.Where("buyer_id = ?", userID)
	case "seller":
		query = query.Where("seller_id = ?", userID)
	case "":
		query = query.Where("buyer_id = ? OR seller_id = ?", userID, userID)
	default:
		return nil, invalid("role", "must be buyer or seller")
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}

	txns := []models.Transaction{}
	pagination, err := paginate(query, f.Page, f.Limit, "created_at DESC, id DESC", &txns, preload("Card"))
	if err != nil {
		return nil, err
	}
	return &TransactionPage{Transactions: txns, Pagination: pagination}, nil
}

// Complete settles a pending transaction. Either participant may complete
// it.
func (s *TransactionService) Complete(ctx context.Context, userID string, id uint) (*models.Transaction, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txn, err := pendingFor(tx, userID, id)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		return settle(tx, txn, map[string]any{
			"status":       models.TransactionCompleted,
			"completed_at": &now,
		})
	})
	if err != nil {
		return nil, err
	}
	metrics.TransactionsTotal.WithLabelValues(string(models.TransactionCompleted)).Inc()
	return s.Get(ctx, userID, id)
}

// Cancel voids a pending transaction and returns its quantity to the
// listing, reopening the listing if the purchase had sold it out.
func (s *TransactionService) Cancel(ctx context.Context, userID string, id uint) (*models.Transaction, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txn, err := pendingFor(tx, userID, id)
		if err != nil {
			return err
		}
		if err := settle(tx, txn, map[string]any{"status": models.TransactionCancelled}); err != nil {
			return err
		}

		var listing models.Listing
		err = tx.First(&listing, "id = ?", txn.ListingID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		updates := map[string]any{"quantity": gorm.Expr("quantity + ?", txn.Quantity)}
		if listing.Status == models.ListingSold {
			updates["status"] = models.ListingActive
		}
		return tx.Model(&listing).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	metrics.TransactionsTotal.WithLabelValues(string(models.TransactionCancelled)).Inc()
	return s.Get(ctx, userID, id)
}

func pendingFor(tx *gorm.DB, userID string, id uint) (*models.Transaction, error) {
	var txn models.Transaction
	if err := tx.First(&txn, id).Error; err != nil {
		return nil, translate(err, "transaction")
	}
	if txn.BuyerID != userID && txn.SellerID != userID {
		return nil, ErrForbidden
	}
	if txn.Status != models.TransactionPending {
		return nil, conflict("transaction is %s", txn.Status)
	}
	return &txn, nil
}

// settle moves a pending transaction to its final state, failing if another
// request settled it first.
func settle(tx *gorm.DB, txn *models.Transaction, updates map[string]any) error {
	res := tx.Model(&models.Transaction{}).
		Where("id = ? AND status = ?", txn.ID, models.TransactionPending).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return conflict("transaction already settled")
	}
	return nil
}
