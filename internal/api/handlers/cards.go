package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/card-nexus/internal/models"
	"github.com/codyseavey/card-nexus/internal/services"
)

type CardHandler struct {
	catalog *services.CatalogService
}

func NewCardHandler(catalog *services.CatalogService) *CardHandler {
	return &CardHandler{catalog: catalog}
}

// ListCards filters the catalog: title, name, expansion, rarity,
// regulation, type, element and set_id, paginated by page and limit.
func (h *CardHandler) ListCards(c *gin.Context) {
	filter := models.CardFilter{
		GameTitle:  c.Query("title"),
		Name:       c.Query("name"),
		Expansion:  c.Query("expansion"),
		Rarity:     c.Query("rarity"),
		Regulation: c.Query("regulation"),
		CardType:   c.Query("type"),
		Element:    c.Query("element"),
		SetID:      c.Query("set_id"),
		Page:       queryInt(c, "page", 1),
		Limit:      queryInt(c, "limit", models.DefaultPageLimit),
	}

	page, err := h.catalog.ListCards(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, page)
}

func (h *CardHandler) GetCard(c *gin.Context) {
	detail, err := h.catalog.GetCard(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, detail)
}

func (h *CardHandler) ListSets(c *gin.Context) {
	sets, err := h.catalog.ListSets(c.Request.Context(), c.Query("title"))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, sets)
}

func (h *CardHandler) GetSet(c *gin.Context) {
	set, err := h.catalog.GetSet(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, set)
}
