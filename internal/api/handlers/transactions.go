package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/card-nexus/internal/auth"
	"github.com/codyseavey/card-nexus/internal/models"
	"github.com/codyseavey/card-nexus/internal/services"
)

type TransactionHandler struct {
	transactions *services.TransactionService
	reviews      *services.ReviewService
}

func NewTransactionHandler(transactions *services.TransactionService, reviews *services.ReviewService) *TransactionHandler {
	return &TransactionHandler{transactions: transactions, reviews: reviews}
}

// List returns the caller's transactions; role=buyer|seller narrows it.
func (h *TransactionHandler) List(c *gin.Context) {
	page, err := h.transactions.ListMine(c.Request.Context(), auth.UserID(c), services.TransactionFilter{
		Role:   c.Query("role"),
		Status: c.Query("status"),
		Page:   queryInt(c, "page", 1),
		Limit:  queryInt(c, "limit", 0),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, page)
}

func (h *TransactionHandler) Get(c *gin.Context) {
	id, valid := uintParam(c, "id")
	if !valid {
		return
	}
	txn, err := h.transactions.Get(c.Request.Context(), auth.UserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, txn)
}

func (h *TransactionHandler) Complete(c *gin.Context) {
	id, valid := uintParam(c, "id")
	if !valid {
		return
	}
	txn, err := h.transactions.Complete(c.Request.Context(), auth.UserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, txn)
}

func (h *TransactionHandler) Cancel(c *gin.Context) {
	id, valid := uintParam(c, "id")
	if !valid {
		return
	}
	txn, err := h.transactions.Cancel(c.Request.Context(), auth.UserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, txn)
}

func (h *TransactionHandler) Review(c *gin.Context) {
	id, valid := uintParam(c, "id")
	if !valid {
		return
	}
	var req models.CreateReviewRequest
	if !bindJSON(c, &req) {
		return
	}
	review, err := h.reviews.Create(c.Request.Context(), auth.UserID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusCreated, review)
}
