package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/card-nexus/internal/auth"
	"github.com/codyseavey/card-nexus/internal/models"
	"github.com/codyseavey/card-nexus/internal/services"
)

type UserHandler struct {
	users    *services.UserService
	reviews  *services.ReviewService
	listings *services.ListingService
}

func NewUserHandler(users *services.UserService, reviews *services.ReviewService, listings *services.ListingService) *UserHandler {
	return &UserHandler{users: users, reviews: reviews, listings: listings}
}

func (h *UserHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.users.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusCreated, resp)
}

func (h *UserHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.users.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, resp)
}

func (h *UserHandler) Me(c *gin.Context) {
	user, err := h.users.Me(c.Request.Context(), auth.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, user)
}

func (h *UserHandler) UpdateMe(c *gin.Context) {
	var req models.UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.users.UpdateProfile(c.Request.Context(), auth.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, user)
}

func (h *UserHandler) Profile(c *gin.Context) {
	profile, err := h.users.Profile(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, profile)
}

func (h *UserHandler) Reviews(c *gin.Context) {
	page, err := h.reviews.ListForUser(c.Request.Context(), c.Param("id"), queryInt(c, "page", 1), queryInt(c, "limit", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, page)
}

// Listings shows a seller's listings, active only unless status is given.
func (h *UserHandler) Listings(c *gin.Context) {
	page, err := h.listings.List(c.Request.Context(), models.ListingFilter{
		SellerID: c.Param("id"),
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
