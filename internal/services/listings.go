package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/codyseavey/card-nexus/internal/metrics"
	"github.com/codyseavey/card-nexus/internal/models"
)

const DefaultListingTTL = 30 * 24 * time.Hour

// ListingService manages buy, sell and trade offers on catalog cards.
type ListingService struct {
	db  *gorm.DB
	ttl time.Duration
	log *zap.Logger
	now func() time.Time
}

func NewListingService(db *gorm.DB, ttl time.Duration, log *zap.Logger) *ListingService {
	if ttl <= 0 {
		ttl = DefaultListingTTL
	}
	return &ListingService{db: db, ttl: ttl, log: log, now: time.Now}
}

func (s *ListingService) Create(ctx context.Context, sellerID string, req models.CreateListingRequest) (*models.Listing, error) {
	kind := models.ListingKind(strings.ToLower(strings.TrimSpace(req.Kind)))
	if kind == "" {
		kind = models.ListingSell
	}
	if !kind.Valid() {
		return nil, invalid("kind", "must be sell, buy or trade")
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if err := validateListingFields(kind, req.PriceUSD, req.Quantity); err != nil {
		return nil, err
	}
	condition, ok := models.ParseCondition(req.Condition)
	if !ok {
		return nil, invalid("condition", "unknown condition %q", req.Condition)
	}

	db := s.db.WithContext(ctx)
	var cards int64
	if err := db.Model(&models.Card{}).Where("id = ?", req.CardID).Count(&cards).Error; err != nil {
		return nil, err
	}
	if cards == 0 {
		return nil, notFound("card")
	}

	expires := s.now().UTC().Add(s.ttl)
	listing := models.Listing{
		ID:          uuid.NewString(),
		SellerID:    sellerID,
		CardID:      req.CardID,
		Kind:        kind,
		Status:      models.ListingActive,
		PriceUSD:    req.PriceUSD,
		Quantity:    req.Quantity,
		Condition:   condition,
		Description: strings.TrimSpace(req.Description),
		ExpiresAt:   &expires,
	}
	if err := db.Create(&listing).Error; err != nil {
		return nil, err
	}
	return s.Get(ctx, listing.ID)
}

func validateListingFields(kind models.ListingKind, price float64, quantity int) error {
	if kind != models.ListingTrade && price <= 0 {
		return invalid("price_usd", "must be greater than zero")
	}
	if price < 0 {
		return invalid("price_usd", "must not be negative")
	}
	if quantity < 1 || quantity > models.MaxListingQuantity {
		return invalid("quantity", "must be between 1 and %d", models.MaxListingQuantity)
	}
	return nil
}

func (s *ListingService) Get(ctx context.Context, id string) (*models.Listing, error) {
	var listing models.Listing
	err := s.db.WithContext(ctx).
		Scopes(preload("Card"), preloadUser("Seller")).
		First(&listing, "id = ?", id).Error
	if err != nil {
		return nil, translate(err, "listing")
	}
	return &listing, nil
}

// List defaults to active listings unless a status filter is given.
func (s *ListingService) List(ctx context.Context, f models.ListingFilter) (*models.ListingPage, error) {
	query := s.db.WithContext(ctx).Model(&models.Listing{})
	if f.CardID != "" {
		query = query.Where("card_id = ?", f.CardID)
	}
	if f.SellerID != "" {
		query = query.Where("seller_id = ?", f.SellerID)
	}
	if f.Kind != "" {
		query = query.Where("kind = ?", strings.ToLower(f.Kind))
	}
	switch status := strings.ToLower(f.Status); status {
	case "":
		query = query.Where("status = ?", models.ListingActive)
	case "all":
	default:
		query = query.Where("status = ?", status)
	}

	listings := []models.Listing{}
	pagination, err := paginate(query, f.Page, f.Limit, "created_at DESC, id ASC", &listings, preload("Card"), preloadUser("Seller"))
	if err != nil {
		return nil, err
	}
	return &models.ListingPage{Listings: listings, Pagination: pagination}, nil
}

func (s *ListingService) Update(ctx context.Context, userID, id string, req models.UpdateListingRequest) (*models.Listing, error) {
	listing, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if listing.Status != models.ListingActive {
		return nil, conflict("listing is %s", listing.Status)
	}
	now := s.now().UTC()
	if listing.ExpiredAt(now) {
		return nil, conflict("listing is expired")
	}

	price, quantity := listing.PriceUSD, listing.Quantity
	updates := map[string]any{}
	if req.PriceUSD != nil {
		price = *req.PriceUSD
		updates["price_usd"] = price
	}
	if req.Quantity != nil {
		quantity = *req.Quantity
		updates["quantity"] = quantity
	}
	if err := validateListingFields(listing.Kind, price, quantity); err != nil {
		return nil, err
	}
	if req.Condition != nil {
		c, ok := models.ParseCondition(*req.Condition)
		if !ok {
			return nil, invalid("condition", "unknown condition %q", *req.Condition)
		}
		updates["condition"] = c
	}
	if req.Description != nil {
		updates["description"] = strings.TrimSpace(*req.Description)
	}

	if len(updates) > 0 {
		res := s.db.WithContext(ctx).Model(&models.Listing{}).
			Where("id = ? AND status = ?", listing.ID, models.ListingActive).
			Where("expires_at IS NULL OR expires_at > ?", now).
			Updates(updates)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected != 1 {
			return nil, conflict("listing changed, try again")
		}
	}
	return s.Get(ctx, id)
}

// Cancel withdraws an active listing. Pending transactions on it are left
// for the participants to settle.
func (s *ListingService) Cancel(ctx context.Context, userID, id string) error {
	listing, err := s.owned(ctx, userID, id)
	if err != nil {
		return err
	}
	if listing.Status != models.ListingActive {
		return conflict("listing is %s", listing.Status)
	}
	return s.db.WithContext(ctx).Model(listing).Update("status", models.ListingCancelled).Error
}

// ExpireStale marks active listings past their expiry as expired and
// returns how many changed.
func (s *ListingService) ExpireStale(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?", models.ListingActive, s.now().UTC()).
		Update("status", models.ListingExpired)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		metrics.ListingsExpiredTotal.Add(float64(res.RowsAffected))
		s.log.Info("Expired stale listings", zap.Int64("count", res.RowsAffected))
	}
	return res.RowsAffected, nil
}

func (s *ListingService) owned(ctx context.Context, userID, id string) (*models.Listing, error) {
	var listing models.Listing
	if err := s.db.WithContext(ctx).First(&listing, "id = ?", id).Error; err != nil {
		return nil, translate(err, "listing")
	}
	if listing.SellerID != userID {
		return nil, ErrForbidden
	}
	return &listing, nil
}
