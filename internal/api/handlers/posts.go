package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/card-nexus/internal/auth"
	"github.com/codyseavey/card-nexus/internal/models"
	"github.com/codyseavey/card-nexus/internal/services"
)

type PostHandler struct {
	forum *services.ForumService
}

func NewPostHandler(forum *services.ForumService) *PostHandler {
	return &PostHandler{forum: forum}
}

func (h *PostHandler) Create(c *gin.Context) {
	var req models.CreatePostRequest
	if !bindJSON(c, &req) {
		return
	}
	post, err := h.forum.CreatePost(c.Request.Context(), auth.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusCreated, post)
}

func (h *PostHandler) List(c *gin.Context) {
	page, err := h.forum.ListPosts(c.Request.Context(), models.PostFilter{
		Category: c.Query("category"),
		AuthorID: c.Query("author_id"),
		Page:     queryInt(c, "page", 1),
		Limit:    queryInt(c, "limit", 0),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, page)
}

func (h *PostHandler) Get(c *gin.Context) {
	id, valid := uintParam(c, "id")
	if !valid {
		return
	}
	post, err := h.forum.GetPost(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, post)
}

func (h *PostHandler) Delete(c *gin.Context) {
	id, valid := uintParam(c, "id")
	if !valid {
		return
	}
	if err := h.forum.DeletePost(c.Request.Context(), auth.UserID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *PostHandler) AddComment(c *gin.Context) {
	id, valid := uintParam(c, "id")
	if !valid {
		return
	}
	var req models.CreateCommentRequest
	if !bindJSON(c, &req) {
		return
	}
	comment, err := h.forum.AddComment(c.Request.Context(), auth.UserID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusCreated, comment)
}

func (h *PostHandler) DeleteComment(c *gin.Context) {
	id, valid := uintParam(c, "id")
	if !valid {
		return
	}
	if err := h.forum.DeleteComment(c.Request.Context(), auth.UserID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *PostHandler) Like(c *gin.Context)   { h.setLike(c, true) }
func (h *PostHandler) Unlike(c *gin.Context) { h.setLike(c, false) }

func (h *PostHandler) setLike(c *gin.Context, liked bool) {
	id, valid := uintParam(c, "id")
	if !valid {
		return
	}
	state, err := h.forum.SetPostLike(c.Request.Context(), auth.UserID(c), id, liked)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, state)
}
