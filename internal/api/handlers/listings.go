package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/card-nexus/internal/auth"
	"github.com/codyseavey/card-nexus/internal/models"
	"github.com/codyseavey/card-nexus/internal/services"
)

type ListingHandler struct {
	listings     *services.ListingService
	transactions *services.TransactionService
}

func NewListingHandler(listings *services.ListingService, transactions *services.TransactionService) *ListingHandler {
	return &ListingHandler{listings: listings, transactions: transactions}
}

func (h *ListingHandler) Create(c *gin.Context) {
	var req models.CreateListingRequest
	if !bindJSON(c, &req) {
		return
	}
	listing, err := h.listings.Create(c.Request.Context(), auth.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusCreated, listing)
}

func (h *ListingHandler) List(c *gin.Context) {
	page, err := h.listings.List(c.Request.Context(), models.ListingFilter{
		CardID:   c.Query("card_id"),
		SellerID: c.Query("seller_id"),
		Kind:     c.Query("kind"),
		Status:   c.Query("status"),
		Page:     queryInt(c, "page", 1),
		Limit:    queryInt(c, "limit", 0),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, page)
}

func (h *ListingHandler) Get(c *gin.Context) {
	listing, err := h.listings.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, listing)
}

func (h *ListingHandler) Update(c *gin.Context) {
	var req models.UpdateListingRequest
	if !bindJSON(c, &req) {
		return
	}
	listing, err := h.listings.Update(c.Request.Context(), auth.UserID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, listing)
}

func (h *ListingHandler) Cancel(c *gin.Context) {
	if err := h.listings.Cancel(c.Request.Context(), auth.UserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"id": c.Param("id"), "status": models.ListingCancelled})
}

// Purchase buys from a sell listing. The body is optional and defaults to a
// quantity of one.
func (h *ListingHandler) Purchase(c *gin.Context) {
	var req models.PurchaseRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	txn, err := h.transactions.Purchase(c.Request.Context(), auth.UserID(c), c.Param("id"), req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusCreated, txn)
}
