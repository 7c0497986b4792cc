package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/card-nexus/internal/auth"
	"github.com/codyseavey/card-nexus/internal/models"
	"github.com/codyseavey/card-nexus/internal/services"
)

type DeckHandler struct {
	decks *services.DeckService
}

func NewDeckHandler(decks *services.DeckService) *DeckHandler {
	return &DeckHandler{decks: decks}
}

func (h *DeckHandler) Create(c *gin.Context) {
	var req models.SaveDeckRequest
	if !bindJSON(c, &req) {
		return
	}
	deck, err := h.decks.Create(c.Request.Context(), auth.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusCreated, deck)
}

// List shows public decks. When user is the caller's own id their private
// decks are included.
func (h *DeckHandler) List(c *gin.Context) {
	page, err := h.decks.List(c.Request.Context(), models.DeckFilter{
		GameTitle: c.Query("title"),
		Tag:       c.Query("tag"),
		OwnerID:   c.Query("user"),
		Viewer:    auth.UserID(c),
		Page:      queryInt(c, "page", 1),
		Limit:     queryInt(c, "limit", 0),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, page)
}

func (h *DeckHandler) Get(c *gin.Context) {
	deck, err := h.decks.Get(c.Request.Context(), auth.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, deck)
}

func (h *DeckHandler) Update(c *gin.Context) {
	var req models.SaveDeckRequest
	if !bindJSON(c, &req) {
		return
	}
	deck, err := h.decks.Update(c.Request.Context(), auth.UserID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, deck)
}

func (h *DeckHandler) Delete(c *gin.Context) {
	if err := h.decks.Delete(c.Request.Context(), auth.UserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *DeckHandler) Like(c *gin.Context)   { h.setLike(c, true) }
func (h *DeckHandler) Unlike(c *gin.Context) { h.setLike(c, false) }

func (h *DeckHandler) setLike(c *gin.Context, liked bool) {
	state, err := h.decks.SetLike(c.Request.Context(), auth.UserID(c), c.Param("id"), liked)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, state)
}
