package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codyseavey/card-nexus/internal/models"
)

const maxDeckTags = 10

// DeckService stores user deck lists and their likes.
type DeckService struct {
	db *gorm.DB
}

func NewDeckService(db *gorm.DB) *DeckService {
	return &DeckService{db: db}
}

func (s *DeckService) Create(ctx context.Context, ownerID string, req models.SaveDeckRequest) (*models.Deck, error) {
	cards, tags, err := s.validateDeck(ctx, req)
	if err != nil {
		return nil, err
	}

	deck := models.Deck{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Name:        strings.TrimSpace(req.Name),
		Slug:        slug.Make(req.Name),
		Description: strings.TrimSpace(req.Description),
		GameTitle:   deckGameTitle(req.GameTitle),
		Format:      strings.TrimSpace(req.Format),
		IsPublic:    req.IsPublic == nil || *req.IsPublic,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&deck).Error; err != nil {
			return err
		}
		return replaceDeckContents(tx, deck.ID, cards, tags)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, ownerID, deck.ID)
}

// Get returns a deck with its cards and tags. Private decks are only
// visible to their owner.
func (s *DeckService) Get(ctx context.Context, viewerID, id string) (*models.Deck, error) {
	var deck models.Deck
	err := s.db.WithContext(ctx).
		Scopes(preloadUser("Owner"), preload("Cards.Card"), preload("Tags")).
		First(&deck, "id = ?", id).Error
	if err != nil {
		return nil, translate(err, "deck")
	}
	if !deck.IsPublic && deck.OwnerID != viewerID {
		return nil, notFound("deck")
	}
	return &deck, nil
}

// List returns public decks, plus the viewer's own private decks when the
// filter is scoped to the viewer.
func (s *DeckService) List(ctx context.Context, f models.DeckFilter) (*models.DeckPage, error) {
	query := s.db.WithContext(ctx).Model(&models.Deck{})
	if f.OwnerID != "" {
		query = query.Where("owner_id = ?", f.OwnerID)
	}
	if f.OwnerID == "" || f.OwnerID != f.Viewer {
		query = query.Where("is_public = ?", true)
	}
	if f.GameTitle != "" {
		query = query.Where("game_title = ?", strings.ToLower(f.GameTitle))
	}
	if f.Tag != "" {
		query = query.Where("id IN (?)", s.db.Model(&models.DeckTag{}).Select("deck_id").Where("tag = ?", normalizeTag(f.Tag)))
	}

	decks := []models.Deck{}
	pagination, err := paginate(query, f.Page, f.Limit, "like_count DESC, updated_at DESC, id ASC", &decks, preloadUser("Owner"), preload("Tags"))
	if err != nil {
		return nil, err
	}
	return &models.DeckPage{Decks: decks, Pagination: pagination}, nil
}

// Update replaces the deck's fields, card list and tags.
func (s *DeckService) Update(ctx context.Context, ownerID, id string, req models.SaveDeckRequest) (*models.Deck, error) {
	deck, err := s.owned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	cards, tags, err := s.validateDeck(ctx, req)
	if err != nil {
		return nil, err
	}

	isPublic := deck.IsPublic
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(deck).Updates(map[string]any{
			"name":        strings.TrimSpace(req.Name),
			"slug":        slug.Make(req.Name),
			"description": strings.TrimSpace(req.Description),
			"game_title":  deckGameTitle(req.GameTitle),
			"format":      strings.TrimSpace(req.Format),
			"is_public":   isPublic,
		}).Error
		if err != nil {
			return err
		}
		return replaceDeckContents(tx, deck.ID, cards, tags)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, ownerID, id)
}

func (s *DeckService) Delete(ctx context.Context, ownerID, id string) error {
	deck, err := s.owned(ctx, ownerID, id)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, child := range []any{&models.DeckCard{}, &models.DeckTag{}, &models.DeckLike{}} {
			if err := tx.Where("deck_id = ?", deck.ID).Delete(child).Error; err != nil {
				return err
			}
		}
		return tx.Delete(deck).Error
	})
}

// SetLike adds or removes userID's like. The like row and the counter
// change together; repeating the same call is a no-op.
func (s *DeckService) SetLike(ctx context.Context, userID, id string, liked bool) (*models.LikeState, error) {
	state := &models.LikeState{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var deck models.Deck
		if err := tx.First(&deck, "id = ?", id).Error; err != nil {
			return translate(err, "deck")
		}
		if !deck.IsPublic && deck.OwnerID != userID {
			return notFound("deck")
		}

		var delta int64
		if liked {
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.DeckLike{DeckID: id, UserID: userID})
			if res.Error != nil {
				return res.Error
			}
			delta = res.RowsAffected
		} else {
			res := tx.Where("deck_id = ? AND user_id = ?", id, userID).Delete(&models.DeckLike{})
			if res.Error != nil {
				return res.Error
			}
			delta = -res.RowsAffected
		}
		if delta != 0 {
			if err := tx.Model(&deck).UpdateColumn("like_count", gorm.Expr("like_count + ?", delta)).Error; err != nil {
				return err
			}
		}

		var count int64
		if err := tx.Model(&models.Deck{}).Where("id = ?", id).Select("like_count").Scan(&count).Error; err != nil {
			return err
		}
		state.Liked = liked
		state.LikeCount = int(count)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

func (s *DeckService) owned(ctx context.Context, ownerID, id string) (*models.Deck, error) {
	var deck models.Deck
	if err := s.db.WithContext(ctx).First(&deck, "id = ?", id).Error; err != nil {
		return nil, translate(err, "deck")
	}
	if deck.OwnerID != ownerID {
		return nil, ErrForbidden
	}
	return &deck, nil
}

// validateDeck checks the request and returns the merged card list and the
// normalized tag set.
func (s *DeckService) validateDeck(ctx context.Context, req models.SaveDeckRequest) ([]models.DeckCardInput, []string, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" || len(name) > 100 {
		return nil, nil, invalid("name", "must be 1-100 characters")
	}

	merged := map[string]int{}
	var order []string
	total := 0
	for _, c := range req.Cards {
		if c.CardID == "" {
			return nil, nil, invalid("cards", "card_id is required")
		}
		if c.Quantity < 1 {
			return nil, nil, invalid("cards", "quantity must be at least 1")
		}
		if _, seen := merged[c.CardID]; !seen {
			order = append(order, c.CardID)
		}
		merged[c.CardID] += c.Quantity
		if merged[c.CardID] > models.MaxDeckCardQuantity {
			return nil, nil, invalid("cards", "at most %d copies of one card", models.MaxDeckCardQuantity)
		}
		total += c.Quantity
	}
	if total > models.MaxDeckCards {
		return nil, nil, invalid("cards", "at most %d cards per deck", models.MaxDeckCards)
	}

	if len(order) > 0 {
		var found int64
		if err := s.db.WithContext(ctx).Model(&models.Card{}).Where("id IN ?", order).Count(&found).Error; err != nil {
			return nil, nil, err
		}
		if int(found) != len(order) {
			return nil, nil, invalid("cards", "unknown card id")
		}
	}

	cards := make([]models.DeckCardInput, 0, len(order))
	for _, id := range order {
		cards = append(cards, models.DeckCardInput{CardID: id, Quantity: merged[id]})
	}

	seenTags := map[string]bool{}
	var tags []string
	for _, t := range req.Tags {
		t = normalizeTag(t)
		if t == "" || seenTags[t] {
			continue
		}
		seenTags[t] = true
		tags = append(tags, t)
	}
	if len(tags) > maxDeckTags {
		return nil, nil, invalid("tags", "at most %d tags", maxDeckTags)
	}
	return cards, tags, nil
}

func replaceDeckContents(tx *gorm.DB, deckID string, cards []models.DeckCardInput, tags []string) error {
	if err := tx.Where("deck_id = ?", deckID).Delete(&models.DeckCard{}).Error; err != nil {
		return err
	}
	if err := tx.Where("deck_id = ?", deckID).Delete(&models.DeckTag{}).Error; err != nil {
		return err
	}

	if len(cards) > 0 {
		rows := make([]models.DeckCard, len(cards))
		for i, c := range cards {
			rows[i] = models.DeckCard{DeckID: deckID, CardID: c.CardID, Quantity: c.Quantity}
		}
		if err := tx.Omit(clause.Associations).Create(&rows).Error; err != nil {
			return err
		}
	}
	if len(tags) > 0 {
		rows := make([]models.DeckTag, len(tags))
		for i, t := range tags {
			rows[i] = models.DeckTag{DeckID: deckID, Tag: t}
		}
		if err := tx.Create(&rows).Error; err != nil {
			return err
		}
	}
	return nil
}

func normalizeTag(t string) string {
	return slug.Make(strings.TrimSpace(t))
}

func deckGameTitle(t string) string {
	if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
		return t
	}
	return models.DefaultGameTitle
}
