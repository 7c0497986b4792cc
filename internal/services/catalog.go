package services

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/codyseavey/card-nexus/internal/metrics"
	"github.com/codyseavey/card-nexus/internal/models"
)

const DefaultPriceWindow = 30

// CatalogService is the read side over imported cards, sets and their
// observed prices.
type CatalogService struct {
	db          *gorm.DB
	priceWindow int
}

func NewCatalogService(db *gorm.DB, priceWindow int) *CatalogService {
	if priceWindow <= 0 {
		priceWindow = DefaultPriceWindow
	}
	return &CatalogService{db: db, priceWindow: priceWindow}
}

func (s *CatalogService) ListCards(ctx context.Context, f models.CardFilter) (*models.CardPage, error) {
	query := s.db.WithContext(ctx).Model(&models.Card{})
	if f.GameTitle != "" {
		query = query.Where("game_title = ?", strings.ToLower(f.GameTitle))
	}
	if name := strings.TrimSpace(f.Name); name != "" {
		like := "%" + strings.ToLower(name) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(name_local) LIKE ? OR search_name LIKE ?",
			like, like, "%"+models.SearchKey(name)+"%")
	}
	if f.Expansion != "" {
		query = query.Where("expansion = ?", f.Expansion)
	}
	if f.Rarity != "" {
		query = query.Where("rarity = ?", f.Rarity)
	}
	if f.Regulation != "" {
		query = query.Where("regulation = ?", strings.ToUpper(f.Regulation))
	}
	if f.CardType != "" {
		query = query.Where("card_type = ?", f.CardType)
	}
	if f.Element != "" {
		query = query.Where("LOWER(types) LIKE ?", "%"+strings.ToLower(f.Element)+"%")
	}
	if f.SetID != "" {
		query = query.Where("set_id = ?", f.SetID)
	}

	cards := []models.Card{}
	pagination, err := paginate(query, f.Page, f.Limit, "expansion ASC, card_number ASC, name ASC, id ASC", &cards)
	if err != nil {
		return nil, err
	}
	return &models.CardPage{Cards: cards, Pagination: pagination}, nil
}

// GetCard returns a card with its set, recent price summary and active
// sell-side market.
func (s *CatalogService) GetCard(ctx context.Context, id string) (*models.CardDetail, error) {
	db := s.db.WithContext(ctx)

	var card models.Card
	if err := db.Preload("Set").First(&card, "id = ?", id).Error; err != nil {
		return nil, translate(err, "card")
	}

	summary, err := s.PriceSummary(ctx, id, "")
	if err != nil {
		return nil, err
	}

	detail := &models.CardDetail{Card: card}
	if summary.Count > 0 {
		detail.Prices = summary
	}

	active := db.Model(&models.Listing{}).
		Where("card_id = ? AND status = ?", id, models.ListingActive)
	if err := active.Count(&detail.ActiveListingCount).Error; err != nil {
		return nil, err
	}

	var lowest []float64
	err = db.Model(&models.Listing{}).
		Where("card_id = ? AND status = ? AND kind = ?", id, models.ListingActive, models.ListingSell).
		Order("price_usd ASC").
		Limit(1).
		Pluck("price_usd", &lowest).Error
	if err != nil {
		return nil, err
	}
	if len(lowest) > 0 {
		detail.LowestAskUSD = &lowest[0]
	}
	return detail, nil
}

// ListSets returns sets newest first, optionally for one game.
func (s *CatalogService) ListSets(ctx context.Context, gameTitle string) ([]models.Set, error) {
	query := s.db.WithContext(ctx).Model(&models.Set{})
	if gameTitle != "" {
		query = query.Where("game_title = ?", strings.ToLower(gameTitle))
	}
	sets := []models.Set{}
	if err := query.Order("release_date DESC, id ASC").Find(&sets).Error; err != nil {
		return nil, err
	}
	return sets, nil
}

func (s *CatalogService) GetSet(ctx context.Context, id string) (*models.SetDetail, error) {
	db := s.db.WithContext(ctx)

	var set models.Set
	if err := db.First(&set, "id = ?", id).Error; err != nil {
		return nil, translate(err, "set")
	}

	detail := &models.SetDetail{Set: set}
	if err := db.Model(&models.Card{}).Where("set_id = ?", id).Count(&detail.CardCount).Error; err != nil {
		return nil, err
	}
	return detail, nil
}

// RecordPriceInput is one observed price. RecordedAt defaults to now.
type RecordPriceInput struct {
	PriceUSD   float64    `json:"price_usd"`
	Condition  string     `json:"condition"`
	Source     string     `json:"source"`
	RecordedAt *time.Time `json:"recorded_at"`
}

func (s *CatalogService) RecordPrice(ctx context.Context, cardID string, in RecordPriceInput) (*models.PricePoint, error) {
	if in.PriceUSD <= 0 {
		return nil, invalid("price_usd", "must be greater than zero")
	}
	condition, ok := models.ParseCondition(in.Condition)
	if !ok {
		return nil, invalid("condition", "unknown condition %q", in.Condition)
	}

	db := s.db.WithContext(ctx)
	if err := s.cardExists(db, cardID); err != nil {
		return nil, err
	}

	point := models.PricePoint{
		CardID:     cardID,
		Condition:  condition,
		PriceUSD:   in.PriceUSD,
		Source:     strings.TrimSpace(in.Source),
		RecordedAt: time.Now().UTC(),
	}
	if point.Source == "" {
		point.Source = "manual"
	}
	if in.RecordedAt != nil && !in.RecordedAt.IsZero() {
		point.RecordedAt = in.RecordedAt.UTC()
	}

	if err := db.Create(&point).Error; err != nil {
		return nil, err
	}
	return &point, nil
}

// PriceHistory returns the newest limit observations, newest first.
func (s *CatalogService) PriceHistory(ctx context.Context, cardID string, limit int) ([]models.PricePoint, error) {
	_, limit = models.NormalizePage(1, limit)
	db := s.db.WithContext(ctx)
	if err := s.cardExists(db, cardID); err != nil {
		return nil, err
	}

	points := []models.PricePoint{}
	err := db.Where("card_id = ?", cardID).
		Order("recorded_at DESC, id DESC").
		Limit(limit).
		Find(&points).Error
	return points, err
}

// PriceSummary aggregates the most recent observations of a card, keyed on
// when they were recorded rather than when they were inserted. An empty
// condition includes every condition.
func (s *CatalogService) PriceSummary(ctx context.Context, cardID, condition string) (*models.PriceSummary, error) {
	query := s.db.WithContext(ctx).Where("card_id = ?", cardID)
	if condition != "" {
		c, ok := models.ParseCondition(condition)
		if !ok {
			return nil, invalid("condition", "unknown condition %q", condition)
		}
		query = query.Where("condition = ?", c)
		condition = string(c)
	}

	var points []models.PricePoint
	err := query.Order("recorded_at DESC, id DESC").Limit(s.priceWindow).Find(&points).Error
	if err != nil {
		return nil, err
	}

	summary := models.SummarizePrices(points, s.priceWindow)
	summary.Condition = condition
	return &summary, nil
}

// RefreshCardCount updates the catalog size gauge.
func (s *CatalogService) RefreshCardCount(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Card{}).Count(&n).Error; err != nil {
		return 0, err
	}
	metrics.CardDatabaseSize.Set(float64(n))
	return n, nil
}

func (s *CatalogService) cardExists(db *gorm.DB, cardID string) error {
	var n int64
	if err := db.Model(&models.Card{}).Where("id = ?", cardID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return notFound("card")
	}
	return nil
}
