package handlers

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/knobo/simple-queue-management/internal/config"
	"github.com/knobo/simple-queue-management/internal/services"

	"github.com/gin-gonic/gin"
)

// TokenHandler exposes the public token endpoints: the split
// validate/consume pair used by the join flow, and the QR-code landing
// redirect. These are the endpoints a guessed token value would hit, so
// the router puts them behind the rate limiter.
type TokenHandler struct {
	lifecycle *services.TokenLifecycleService
	config    *config.Config
}

func NewTokenHandler(ls *services.TokenLifecycleService, cfg *config.Config) *TokenHandler {
	return &TokenHandler{lifecycle: ls, config: cfg}
}

// Validate handles POST /api/tokens/validate
// Read-only: a client may call it any number of times without spending
// the token. Consumption happens later, at the point of queue entry.
func (h *TokenHandler) Validate(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "invalid_request",
			"error_description": "token is required",
		})
		return
	}

	queue, err := h.lifecycle.ValidateToken(req.Token)
	if err != nil {
		respondTokenError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":      true,
		"queue_id":   queue.ID,
		"queue_name": queue.Name,
		"mode":       queue.AccessTokenMode,
	})
}

// Consume handles POST /api/tokens/consume
// Records one use of the token. A currently invalid token yields a 410
// rejection, never a partial increment.
func (h *TokenHandler) Consume(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "invalid_request",
			"error_description": "token is required",
		})
		return
	}

	ok, err := h.lifecycle.ConsumeToken(c.Request.Context(), req.Token)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":             "server_error",
			"error_description": err.Error(),
		})
		return
	}
	if !ok {
		c.JSON(http.StatusGone, gin.H{
			"error":             "token_rejected",
			"error_description": "Token is no longer valid",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"consumed": true})
}

// Join handles GET /q/:token
// This is the URL encoded in the QR code. A valid token redirects the
// visitor into the queue's join flow, carrying the token along so the
// join flow can consume it at the moment of entry.
func (h *TokenHandler) Join(c *gin.Context) {
	value := c.Param("token")

	queue, err := h.lifecycle.ValidateToken(value)
	if err != nil {
		respondTokenError(c, err)
		return
	}

	target := h.config.BaseURL + "/public/q/" + url.PathEscape(queue.ID) + "/join?token=" + url.QueryEscape(value)
	c.Redirect(http.StatusFound, target)
}

// respondTokenError maps the lifecycle sentinel errors onto HTTP
// statuses: unknown tokens are 404, tokens that existed but can no
// longer be used are 410.
func respondTokenError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTokenNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":             "token_not_found",
			"error_description": "Unknown token",
		})
	case errors.Is(err, services.ErrTokenExpired):
		c.JSON(http.StatusGone, gin.H{
			"error":             "token_expired",
			"error_description": "Token has expired",
		})
	case errors.Is(err, services.ErrTokenExhausted):
		c.JSON(http.StatusGone, gin.H{
			"error":             "token_exhausted",
			"error_description": "Token has reached its usage limit",
		})
	case errors.Is(err, services.ErrTokenInactive):
		c.JSON(http.StatusGone, gin.H{
			"error":             "token_inactive",
			"error_description": "Token has been deactivated",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":             "server_error",
			"error_description": err.Error(),
		})
	}
}
