package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/card-nexus/internal/services"
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func ok(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func fail(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": apiError{Code: code, Message: message}})
}

// respondError maps service errors onto status codes. Anything unrecognized
// is a 500 and is attached to the context for the request logger.
func respondError(c *gin.Context, err error) {
	var vErr *services.ValidationError
	switch {
	case errors.As(err, &vErr):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   apiError{Code: "validation_error", Message: vErr.Message, Field: vErr.Field},
		})
	case errors.Is(err, services.ErrUnauthorized):
		fail(c, http.StatusUnauthorized, "unauthorized", "invalid credentials")
	case errors.Is(err, services.ErrForbidden):
		fail(c, http.StatusForbidden, "forbidden", "not allowed")
	case errors.Is(err, services.ErrNotFound):
		fail(c, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, services.ErrConflict):
		fail(c, http.StatusConflict, "conflict", err.Error())
	default:
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func badRequest(c *gin.Context, message string) {
	fail(c, http.StatusBadRequest, "bad_request", message)
}

// bindJSON decodes the request body and answers 400 on failure.
func bindJSON(c *gin.Context, dest any) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		badRequest(c, "invalid request body")
		return false
	}
	return true
}

// queryInt returns def when the parameter is missing or not a number.
// Range checks are left to the services.
func queryInt(c *gin.Context, key string, def int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return n
}

// uintParam parses a numeric path parameter, answering 400 when it is not
// one.
func uintParam(c *gin.Context, key string) (uint, bool) {
	n, err := strconv.ParseUint(c.Param(key), 10, 64)
	if err != nil || n == 0 {
		badRequest(c, key+" must be a positive integer")
		return 0, false
	}
	return uint(n), true
}
