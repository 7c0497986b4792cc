package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/codyseavey/card-nexus/internal/auth"
	"github.com/codyseavey/card-nexus/internal/database"
	"github.com/codyseavey/card-nexus/internal/models"
	"github.com/codyseavey/card-nexus/internal/services"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Field   string `json:"field"`
	} `json:"error"`
}

type testServer struct {
	t      *testing.T
	db     *gorm.DB
	router *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Open(database.Options{
		Driver: database.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "api.db"),
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	log := zap.NewNop()
	tokens := auth.NewTokenService("api-test-secret", "card-nexus", time.Hour)
	router := SetupRouter(Deps{
		Catalog:      services.NewCatalogService(db, 0),
		Users:        services.NewUserService(db, tokens, log),
		Listings:     services.NewListingService(db, 0, log),
		Transactions: services.NewTransactionService(db, log),
		Reviews:      services.NewReviewService(db),
		Decks:        services.NewDeckService(db),
		Forum:        services.NewForumService(db),
		Tokens:       tokens,
		Log:          log,
	})
	return &testServer{t: t, db: db, router: router}
}

func (s *testServer) do(method, path, token string, body any) (int, envelope) {
	s.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func (s *testServer) register(username string) (string, string) {
	s.t.Helper()
	code, env := s.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "correct-horse",
	})
	require.Equal(s.t, http.StatusCreated, code)

	var resp models.AuthResponse
	require.NoError(s.t, json.Unmarshal(env.Data, &resp))
	return resp.User.ID, resp.Token
}

func (s *testServer) seedCard(name, rarity string) models.Card {
	s.t.Helper()
	card := models.Card{
		ID:         uuid.NewString(),
		Name:       name,
		SearchName: models.SearchKey(name),
		CardNumber: "001",
		Expansion:  "sv1",
		GameTitle:  models.DefaultGameTitle,
		Rarity:     rarity,
	}
	require.NoError(s.t, s.db.Create(&card).Error)
	return card
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)
	userID, token := s.register("ash")

	code, env := s.do(http.MethodGet, "/api/users/me", token, nil)
	require.Equal(t, http.StatusOK, code)
	me := decode[models.User](t, env)
	assert.Equal(t, userID, me.ID)
	assert.Equal(t, "ash@example.com", me.Email)

	code, env = s.do(http.MethodGet, "/api/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, "unauthorized", env.Error.Code)

	code, _ = s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ash@example.com", "password": "nope-nope"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env = s.do(http.MethodPost, "/api/auth/register", "", map[string]string{"username": "ash", "email": "ash2@example.com", "password": "correct-horse"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "conflict", env.Error.Code)

	code, env = s.do(http.MethodPost, "/api/auth/register", "", map[string]string{"username": "bo", "email": "bo@example.com", "password": "correct-horse"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation_error", env.Error.Code)
	assert.Equal(t, "username", env.Error.Field)

	code, env = s.do(http.MethodGet, "/api/users/"+userID, "", nil)
	require.Equal(t, http.StatusOK, code)
	profile := decode[models.UserProfile](t, env)
	assert.Equal(t, "ash", profile.User.Username)
	assert.Nil(t, profile.AverageRating)
}

func TestCatalogEndpoints(t *testing.T) {
	s := newTestServer(t)
	_, token := s.register("oak")
	for i := range 2 {
		s.seedCard(fmt.Sprintf("Pikachu %d", i), "Common")
	}
	rare := s.seedCard("Mewtwo", "Rare")

	code, env := s.do(http.MethodGet, "/api/cards?rarity=Common&limit=1&page=2", "", nil)
	require.Equal(t, http.StatusOK, code)
	page := decode[models.CardPage](t, env)
	assert.Len(t, page.Cards, 1)
	assert.EqualValues(t, 2, page.Pagination.Total)
	assert.False(t, page.Pagination.HasNext)
	assert.True(t, page.Pagination.HasPrev)

	code, _ = s.do(http.MethodGet, "/api/cards/does-not-exist", "", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(http.MethodPost, "/api/cards/"+rare.ID+"/prices", "", map[string]any{"price_usd": 10})
	assert.Equal(t, http.StatusUnauthorized, code)

	older := time.Now().Add(-time.Hour).UTC()
	code, _ = s.do(http.MethodPost, "/api/cards/"+rare.ID+"/prices", token, map[string]any{"price_usd": 12.5})
	require.Equal(t, http.StatusCreated, code)
	code, _ = s.do(http.MethodPost, "/api/cards/"+rare.ID+"/prices", token, map[string]any{"price_usd": 9, "recorded_at": older})
	require.Equal(t, http.StatusCreated, code)

	code, env = s.do(http.MethodGet, "/api/cards/"+rare.ID+"/prices", "", nil)
	require.Equal(t, http.StatusOK, code)
	prices := decode[struct {
		Summary models.PriceSummary `json:"summary"`
		History []models.PricePoint `json:"history"`
	}](t, env)
	assert.Equal(t, 2, prices.Summary.Count)
	assert.Equal(t, 12.5, prices.Summary.Latest)
	assert.Len(t, prices.History, 2)
}

func TestMarketplaceFlow(t *testing.T) {
	s := newTestServer(t)
	sellerID, sellerToken := s.register("seller")
	_, buyerToken := s.register("buyer")
	card := s.seedCard("Charizard", "Rare Holo")

	code, env := s.do(http.MethodPost, "/api/listings", sellerToken, map[string]any{
		"card_id": card.ID, "price_usd": 250, "quantity": 1, "condition": "LP",
	})
	require.Equal(t, http.StatusCreated, code)
	listing := decode[models.Listing](t, env)

	code, _ = s.do(http.MethodPut, "/api/listings/"+listing.ID, buyerToken, map[string]any{"price_usd": 1})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = s.do(http.MethodPost, "/api/listings/"+listing.ID+"/purchase", sellerToken, nil)
	assert.Equal(t, http.StatusConflict, code)

	code, env = s.do(http.MethodPost, "/api/listings/"+listing.ID+"/purchase", buyerToken, nil)
	require.Equal(t, http.StatusCreated, code)
	txn := decode[models.Transaction](t, env)
	assert.Equal(t, models.TransactionPending, txn.Status)

	code, env = s.do(http.MethodGet, "/api/listings/"+listing.ID, "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, models.ListingSold, decode[models.Listing](t, env).Status)

	txnPath := fmt.Sprintf("/api/transactions/%d", txn.ID)
	code, _ = s.do(http.MethodPost, txnPath+"/reviews", buyerToken, map[string]any{"rating": 5})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = s.do(http.MethodPost, txnPath+"/complete", buyerToken, nil)
	require.Equal(t, http.StatusOK, code)

	code, _ = s.do(http.MethodPost, txnPath+"/reviews", buyerToken, map[string]any{"rating": 5, "comment": "great"})
	require.Equal(t, http.StatusCreated, code)
	code, env = s.do(http.MethodPost, txnPath+"/reviews", buyerToken, map[string]any{"rating": 4})
	assert.Equal(t, http.StatusConflict, code)
	assert.False(t, env.Success)

	code, _ = s.do(http.MethodPost, "/api/transactions/abc/complete", buyerToken, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = s.do(http.MethodGet, "/api/users/"+sellerID+"/reviews", "", nil)
	require.Equal(t, http.StatusOK, code)
	reviews := decode[services.ReviewPage](t, env)
	require.Len(t, reviews.Reviews, 1)
	assert.Equal(t, 5, reviews.Reviews[0].Rating)

	code, env = s.do(http.MethodGet, "/api/transactions?role=seller", sellerToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[services.TransactionPage](t, env).Transactions, 1)
}

func TestDecksAndPosts(t *testing.T) {
	s := newTestServer(t)
	ownerID, ownerToken := s.register("misty")
	_, fanToken := s.register("brock")
	card := s.seedCard("Staryu", "Common")

	code, env := s.do(http.MethodPost, "/api/decks", ownerToken, map[string]any{
		"name":      "Water Works",
		"is_public": false,
		"cards":     []map[string]any{{"card_id": card.ID, "quantity": 4}},
	})
	require.Equal(t, http.StatusCreated, code)
	deck := decode[models.Deck](t, env)

	code, _ = s.do(http.MethodGet, "/api/decks/"+deck.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = s.do(http.MethodGet, "/api/decks/"+deck.ID, ownerToken, nil)
	assert.Equal(t, http.StatusOK, code)

	code, env = s.do(http.MethodGet, "/api/decks?user="+ownerID, ownerToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[models.DeckPage](t, env).Decks, 1)

	code, _ = s.do(http.MethodPut, "/api/decks/"+deck.ID, ownerToken, map[string]any{"name": "Water Works", "is_public": true})
	require.Equal(t, http.StatusOK, code)

	code, env = s.do(http.MethodPost, "/api/decks/"+deck.ID+"/like", fanToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, models.LikeState{Liked: true, LikeCount: 1}, decode[models.LikeState](t, env))

	code, env = s.do(http.MethodPost, "/api/posts", ownerToken, map[string]any{"title": "Hello", "body": "*hi*"})
	require.Equal(t, http.StatusCreated, code)
	post := decode[models.Post](t, env)
	assert.Contains(t, post.BodyHTML, "<em>hi</em>")

	postPath := fmt.Sprintf("/api/posts/%d", post.ID)
	code, env = s.do(http.MethodPost, postPath+"/comments", fanToken, map[string]any{"body": "nice"})
	require.Equal(t, http.StatusCreated, code)
	comment := decode[models.Comment](t, env)

	code, _ = s.do(http.MethodDelete, fmt.Sprintf("/api/comments/%d", comment.ID), ownerToken, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = s.do(http.MethodDelete, fmt.Sprintf("/api/comments/%d", comment.ID), fanToken, nil)
	assert.Equal(t, http.StatusNoContent, code)

	code, env = s.do(http.MethodGet, postPath, "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 0, decode[models.Post](t, env).CommentCount)

	code, _ = s.do(http.MethodDelete, "/api/decks/"+deck.ID, fanToken, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = s.do(http.MethodDelete, "/api/decks/"+deck.ID, ownerToken, nil)
	assert.Equal(t, http.StatusNoContent, code)
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t)
	code, env := s.do(http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, env.Success)
}
