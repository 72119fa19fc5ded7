package handlers

import (
	"errors"
	"net/http"

	"github.com/knobo/simple-queue-management/internal/config"
	"github.com/knobo/simple-queue-management/internal/models"
	"github.com/knobo/simple-queue-management/internal/services"
	"github.com/knobo/simple-queue-management/internal/store"
	"github.com/knobo/simple-queue-management/internal/token"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// QueueHandler exposes the management endpoints: queue registration, the
// display projection polled by kiosks, and the token administration
// operations (explicit rotation, config changes, deactivation).
type QueueHandler struct {
	lifecycle *services.TokenLifecycleService
	store     *store.Store
	config    *config.Config
}

func NewQueueHandler(ls *services.TokenLifecycleService, s *store.Store, cfg *config.Config) *QueueHandler {
	return &QueueHandler{lifecycle: ls, store: s, config: cfg}
}

type createQueueRequest struct {
	Name                 string `json:"name" binding:"required"`
	AccessTokenMode      string `json:"access_token_mode"`
	TokenRotationMinutes int    `json:"token_rotation_minutes"`
	TokenExpiryMinutes   int    `json:"token_expiry_minutes"`
	TokenMaxUses         *int   `json:"token_max_uses"`
	StaticSecret         string `json:"static_secret"`
}

// CreateQueue handles POST /api/queues
func (h *QueueHandler) CreateQueue(c *gin.Context) {
	var req createQueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "invalid_request",
			"error_description": "name is required",
		})
		return
	}

	mode := models.TokenMode(req.AccessTokenMode)
	if req.AccessTokenMode == "" {
		mode = models.TokenModeStatic
	}
	if !mode.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "invalid_request",
			"error_description": "unknown access_token_mode",
		})
		return
	}

	queue := &models.Queue{
		ID:                   uuid.New().String(),
		Name:                 req.Name,
		AccessTokenMode:      mode,
		TokenRotationMinutes: req.TokenRotationMinutes,
		TokenExpiryMinutes:   req.TokenExpiryMinutes,
		TokenMaxUses:         req.TokenMaxUses,
		StaticSecret:         req.StaticSecret,
	}
	if mode == models.TokenModeStatic && queue.StaticSecret == "" {
		queue.StaticSecret = uuid.New().String()
	}

	if err := h.store.CreateQueue(queue); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":             "server_error",
			"error_description": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, queue)
}

// ListQueues handles GET /api/queues
func (h *QueueHandler) ListQueues(c *gin.Context) {
	queues, err := h.store.ListQueues()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":             "server_error",
			"error_description": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"queues": queues})
}

// GetQueue handles GET /api/queues/:id
func (h *QueueHandler) GetQueue(c *gin.Context) {
	queue, err := h.store.GetQueue(c.Param("id"))
	if err != nil {
		respondQueueError(c, services.ErrQueueNotFound)
		return
	}
	c.JSON(http.StatusOK, queue)
}

// GetTokenInfo handles GET /api/queues/:id/token
// The kiosk display polls this continuously; responses come from the
// short-TTL cache.
func (h *QueueHandler) GetTokenInfo(c *gin.Context) {
	info, err := h.lifecycle.GetTokenInfo(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondQueueError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// GetJoinURL handles GET /api/queues/:id/join-url
// Returns the URL the display should encode as a QR code.
func (h *QueueHandler) GetJoinURL(c *gin.Context) {
	joinURL, err := h.lifecycle.GetJoinURL(c.Request.Context(), c.Param("id"), h.config.BaseURL)
	if err != nil {
		respondQueueError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"join_url": joinURL})
}

// RotateToken handles POST /api/queues/:id/token/rotate
// Explicit, admin-triggered rotation of the queue's active token.
func (h *QueueHandler) RotateToken(c *gin.Context) {
	t, err := h.lifecycle.GenerateNewToken(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondQueueError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token_id":   t.ID,
		"value":      t.Value,
		"expires_at": t.ExpiresAt,
	})
}

type tokenConfigRequest struct {
	AccessTokenMode      string `json:"access_token_mode" binding:"required"`
	TokenRotationMinutes int    `json:"token_rotation_minutes"`
	TokenExpiryMinutes   int    `json:"token_expiry_minutes"`
	TokenMaxUses         *int   `json:"token_max_uses"`
}

// UpdateTokenConfig handles PUT /api/queues/:id/token-config
func (h *QueueHandler) UpdateTokenConfig(c *gin.Context) {
	var req tokenConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "invalid_request",
			"error_description": "access_token_mode is required",
		})
		return
	}

	queue, err := h.lifecycle.UpdateTokenConfig(
		c.Request.Context(),
		c.Param("id"),
		models.TokenMode(req.AccessTokenMode),
		req.TokenRotationMinutes,
		req.TokenExpiryMinutes,
		req.TokenMaxUses,
	)
	if err != nil {
		respondQueueError(c, err)
		return
	}

	c.JSON(http.StatusOK, queue)
}

// DeactivateToken handles DELETE /api/tokens/:id
func (h *QueueHandler) DeactivateToken(c *gin.Context) {
	if err := h.lifecycle.DeactivateToken(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, services.ErrTokenNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":             "token_not_found",
				"error_description": "Unknown token",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":             "server_error",
			"error_description": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deactivated": true})
}

func respondQueueError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrQueueNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":             "queue_not_found",
			"error_description": "Unknown queue",
		})
	case errors.Is(err, services.ErrStaticTokenMode):
		c.JSON(http.StatusConflict, gin.H{
			"error":             "static_token_mode",
			"error_description": "Queue uses a static secret; there is no token to rotate",
		})
	case errors.Is(err, services.ErrInvalidTokenMode),
		errors.Is(err, token.ErrNegativeRotationInterval),
		errors.Is(err, token.ErrNonPositiveMaxUses):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "invalid_request",
			"error_description": err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":             "server_error",
			"error_description": err.Error(),
		})
	}
}
