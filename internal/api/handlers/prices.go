package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/card-nexus/internal/services"
)

type PriceHandler struct {
	catalog *services.CatalogService
}

func NewPriceHandler(catalog *services.CatalogService) *PriceHandler {
	return &PriceHandler{catalog: catalog}
}

// GetCardPrices returns the price summary for a card along with its most
// recent observations. condition narrows the summary only.
func (h *PriceHandler) GetCardPrices(c *gin.Context) {
	ctx := c.Request.Context()
	cardID := c.Param("id")

	history, err := h.catalog.PriceHistory(ctx, cardID, queryInt(c, "limit", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	summary, err := h.catalog.PriceSummary(ctx, cardID, c.Query("condition"))
	if err != nil {
		respondError(c, err)
		return
	}

	ok(c, http.StatusOK, gin.H{
		"summary": summary,
		"history": history,
	})
}

// RecordPrice stores a manually observed price for a card.
func (h *PriceHandler) RecordPrice(c *gin.Context) {
	var req services.RecordPriceInput
	if !bindJSON(c, &req) {
		return
	}
	point, err := h.catalog.RecordPrice(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusCreated, point)
}
