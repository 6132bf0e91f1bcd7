package intent

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/MoniqueCrespo/scortbrasil-testando-sub003/internal/auth"
	"github.com/MoniqueCrespo/scortbrasil-testando-sub003/internal/catalog"
	"github.com/MoniqueCrespo/scortbrasil-testando-sub003/internal/logger"
)

type Handler struct {
	repo Repository
}

func NewHandler(db *sqlx.DB) *Handler {
	return &Handler{
		repo: NewRepository(db),
	}
}

type CreatePurchaseRequest struct {
	ItemID    string `json:"item_id" binding:"required,catalog_item"`
	TargetRef string `json:"target_ref"`
	AutoRenew bool   `json:"auto_renew"`
}

type CreatePurchaseResponse struct {
	Intent           *Intent `json:"intent"`
	CorrelationToken string  `json:"correlation_token"`
	AmountCents      int64   `json:"amount_cents"`
}

// Create godoc
// @Summary      Start a purchase
// @Description  Records a pending order intent and returns the correlation token to attach to the gateway checkout.
// @Tags         purchases
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      CreatePurchaseRequest  true  "Purchase data"
// @Success      201      {object}  CreatePurchaseResponse
// @Failure      400      {object}  gin.H
// @Failure      401      {object}  gin.H
// @Failure      500      {object}  gin.H
// @Router       /purchases [post]
func (h *Handler) Create(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req CreatePurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := catalog.Find(req.ItemID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown item"})
		return
	}

	in, err := h.repo.Create(c.Request.Context(), userID, item, req.TargetRef, req.AutoRenew)
	if err != nil {
		logger.Errorf("Failed to create order intent for user %d: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create purchase"})
		return
	}

	logger.Info("Order intent created", "intent_id", in.ID, "user_id", userID, "item", item.ID)

	c.JSON(http.StatusCreated, CreatePurchaseResponse{
		Intent:           in,
		CorrelationToken: in.CorrelationToken,
		AmountCents:      in.PriceCents,
	})
}

// Get godoc
// @Summary      Purchase status
// @Tags         purchases
// @Security     BearerAuth
// @Produce      json
// @Param        intentID  path      int  true  "Intent ID"
// @Success      200       {object}  Intent
// @Failure      404       {object}  gin.H
// @Router       /purchases/{intentID} [get]
func (h *Handler) Get(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	id, err := strconv.Atoi(c.Param("intentID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid intent ID"})
		return
	}

	in, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrIntentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "purchase not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load purchase"})
		return
	}

	if in.OwnerID != userID {
		c.JSON(http.StatusNotFound, gin.H{"error": "purchase not found"})
		return
	}

	c.JSON(http.StatusOK, in)
}

// List godoc
// @Summary      List my purchases
// @Tags         purchases
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   Intent
// @Failure      401  {object}  gin.H
// @Router       /purchases [get]
func (h *Handler) List(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	intents, err := h.repo.ListByOwner(c.Request.Context(), userID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load purchases"})
		return
	}

	c.JSON(http.StatusOK, intents)
}

// ListCatalog godoc
// @Summary      Purchasable items
// @Tags         purchases
// @Produce      json
// @Success      200  {array}  catalog.Item
// @Router       /catalog [get]
func (h *Handler) ListCatalog(c *gin.Context) {
	c.JSON(http.StatusOK, catalog.Items())
}
