package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codyseavey/card-nexus/internal/models"
)

func TestDeckCreateMergesCardsAndTags(t *testing.T) {
	db := setupTestDB(t)
	svc := NewDeckService(db)
	owner := seedUser(t, db, "ash")
	pikachu := seedCard(t, db, "Pikachu", "025", "Common")
	raichu := seedCard(t, db, "Raichu", "026", "Rare")

	deck, err := svc.Create(context.Background(), owner.ID, models.SaveDeckRequest{
		Name: "Electric Storm",
		Cards: []models.DeckCardInput{
			{CardID: pikachu.ID, Quantity: 2},
			{CardID: raichu.ID, Quantity: 1},
			{CardID: pikachu.ID, Quantity: 2},
		},
		Tags: []string{"Lightning", "lightning", " Budget Deck "},
	})
	require.NoError(t, err)

	assert.Equal(t, "electric-storm", deck.Slug)
	assert.Equal(t, models.DefaultGameTitle, deck.GameTitle)
	assert.True(t, deck.IsPublic)
	require.Len(t, deck.Cards, 2)
	quantities := map[string]int{}
	for _, c := range deck.Cards {
		quantities[c.CardID] = c.Quantity
	}
	assert.Equal(t, 4, quantities[pikachu.ID])
	assert.Equal(t, 1, quantities[raichu.ID])

	var tags []string
	for _, tag := range deck.Tags {
		tags = append(tags, tag.Tag)
	}
	assert.ElementsMatch(t, []string{"lightning", "budget-deck"}, tags)
}

func TestDeckValidation(t *testing.T) {
	db := setupTestDB(t)
	svc := NewDeckService(db)
	owner := seedUser(t, db, "ash")
	card := seedCard(t, db, "Pikachu", "025", "Common")
	ctx := context.Background()

	tests := []struct {
		name string
		req  models.SaveDeckRequest
	}{
		{"empty name", models.SaveDeckRequest{Name: "  "}},
		{"unknown card", models.SaveDeckRequest{Name: "d", Cards: []models.DeckCardInput{{CardID: "nope", Quantity: 1}}}},
		{"zero quantity", models.SaveDeckRequest{Name: "d", Cards: []models.DeckCardInput{{CardID: card.ID}}}},
		{"too many copies", models.SaveDeckRequest{Name: "d", Cards: []models.DeckCardInput{{CardID: card.ID, Quantity: models.MaxDeckCardQuantity + 1}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var vErr *ValidationError
			_, err := svc.Create(ctx, owner.ID, tt.req)
			assert.ErrorAs(t, err, &vErr)
		})
	}
}

func TestPrivateDeckVisibility(t *testing.T) {
	db := setupTestDB(t)
	svc := NewDeckService(db)
	owner := seedUser(t, db, "gary")
	other := seedUser(t, db, "ash")
	ctx := context.Background()

	private := false
	deck, err := svc.Create(ctx, owner.ID, models.SaveDeckRequest{Name: "Secret", IsPublic: &private, Tags: []string{"control"}})
	require.NoError(t, err)
	assert.False(t, deck.IsPublic)
	_, err = svc.Create(ctx, owner.ID, models.SaveDeckRequest{Name: "Open", Tags: []string{"aggro"}})
	require.NoError(t, err)

	_, err = svc.Get(ctx, other.ID, deck.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Get(ctx, owner.ID, deck.ID)
	assert.NoError(t, err)

	public, err := svc.List(ctx, models.DeckFilter{OwnerID: owner.ID, Viewer: other.ID})
	require.NoError(t, err)
	require.Len(t, public.Decks, 1)
	assert.Equal(t, "Open", public.Decks[0].Name)

	mine, err := svc.List(ctx, models.DeckFilter{OwnerID: owner.ID, Viewer: owner.ID})
	require.NoError(t, err)
	assert.Len(t, mine.Decks, 2)

	tagged, err := svc.List(ctx, models.DeckFilter{Tag: "Aggro"})
	require.NoError(t, err)
	require.Len(t, tagged.Decks, 1)
	assert.Equal(t, "Open", tagged.Decks[0].Name)

	_, err = svc.SetLike(ctx, other.ID, deck.ID, true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeckUpdateAndDelete(t *testing.T) {
	db := setupTestDB(t)
	svc := NewDeckService(db)
	owner := seedUser(t, db, "brock")
	other := seedUser(t, db, "misty")
	onix := seedCard(t, db, "Onix", "095", "Common")
	geodude := seedCard(t, db, "Geodude", "074", "Common")
	ctx := context.Background()

	deck, err := svc.Create(ctx, owner.ID, models.SaveDeckRequest{
		Name:  "Rock Wall",
		Cards: []models.DeckCardInput{{CardID: onix.ID, Quantity: 4}},
	})
	require.NoError(t, err)

	_, err = svc.Update(ctx, other.ID, deck.ID, models.SaveDeckRequest{Name: "Stolen"})
	assert.ErrorIs(t, err, ErrForbidden)

	updated, err := svc.Update(ctx, owner.ID, deck.ID, models.SaveDeckRequest{
		Name:  "Rock Wall v2",
		Cards: []models.DeckCardInput{{CardID: geodude.ID, Quantity: 3}},
	})
	require.NoError(t, err)
	assert.Equal(t, "rock-wall-v2", updated.Slug)
	require.Len(t, updated.Cards, 1)
	assert.Equal(t, geodude.ID, updated.Cards[0].CardID)
	assert.True(t, updated.IsPublic)

	assert.ErrorIs(t, svc.Delete(ctx, other.ID, deck.ID), ErrForbidden)
	require.NoError(t, svc.Delete(ctx, owner.ID, deck.ID))
	_, err = svc.Get(ctx, owner.ID, deck.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	var orphans int64
	require.NoError(t, db.Model(&models.DeckCard{}).Where("deck_id = ?", deck.ID).Count(&orphans).Error)
	assert.Zero(t, orphans)
}

func TestDeckLikeIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	svc := NewDeckService(db)
	owner := seedUser(t, db, "ash")
	fan := seedUser(t, db, "dawn")
	ctx := context.Background()

	deck, err := svc.Create(ctx, owner.ID, models.SaveDeckRequest{Name: "Fan Favourite"})
	require.NoError(t, err)

	state, err := svc.SetLike(ctx, fan.ID, deck.ID, true)
	require.NoError(t, err)
	assert.Equal(t, models.LikeState{Liked: true, LikeCount: 1}, *state)

	state, err = svc.SetLike(ctx, fan.ID, deck.ID, true)
	require.NoError(t, err)
	assert.Equal(t, 1, state.LikeCount)

	state, err = svc.SetLike(ctx, owner.ID, deck.ID, true)
	require.NoError(t, err)
	assert.Equal(t, 2, state.LikeCount)

	state, err = svc.SetLike(ctx, fan.ID, deck.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.LikeState{Liked: false, LikeCount: 1}, *state)

	state, err = svc.SetLike(ctx, fan.ID, deck.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 1, state.LikeCount)
}
