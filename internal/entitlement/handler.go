package entitlement

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/MoniqueCrespo/scortbrasil-testando-sub003/internal/auth"
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

// ListMy godoc
// @Summary      List my entitlements
// @Tags         entitlements
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   Entitlement
// @Failure      401  {object}  gin.H
// @Router       /entitlements [get]
func (h *Handler) ListMy(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	list, err := h.repo.ListByOwner(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load entitlements"})
		return
	}

	c.JSON(http.StatusOK, list)
}

// Cancel godoc
// @Summary      Cancel an entitlement
// @Description  Stops the grant and disables auto-renew. Already-committed renewals are not reverted.
// @Tags         entitlements
// @Security     BearerAuth
// @Produce      json
// @Param        entitlementID  path      int  true  "Entitlement ID"
// @Success      200  {object}  Entitlement
// @Failure      404  {object}  gin.H
// @Failure      409  {object}  gin.H
// @Router       /entitlements/{entitlementID}/cancel [post]
func (h *Handler) Cancel(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	id, err := strconv.Atoi(c.Param("entitlementID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entitlement ID"})
		return
	}

	e, err := h.repo.Cancel(c.Request.Context(), id, userID)
	switch {
	case errors.Is(err, ErrEntitlementNotFound), errors.Is(err, ErrNotOwner):
		c.JSON(http.StatusNotFound, gin.H{"error": "entitlement not found"})
		return
	case errors.Is(err, ErrNotActive):
		c.JSON(http.StatusConflict, gin.H{"error": "entitlement is not active"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to cancel entitlement"})
		return
	}

	logger.Info("Entitlement cancelled", "entitlement_id", e.ID, "user_id", userID)
	c.JSON(http.StatusOK, e)
}

type AutoRenewRequest struct {
	Enabled bool `json:"enabled"`
}

// SetAutoRenew godoc
// @Summary      Toggle auto-renew
// @Tags         entitlements
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        entitlementID  path      int               true  "Entitlement ID"
// @Param        request        body      AutoRenewRequest  true  "Desired state"
// @Success      200  {object}  Entitlement
// @Failure      404  {object}  gin.H
// @Router       /entitlements/{entitlementID}/auto-renew [post]
func (h *Handler) SetAutoRenew(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	id, err := strconv.Atoi(c.Param("entitlementID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entitlement ID"})
		return
	}

	var req AutoRenewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	e, err := h.repo.SetAutoRenew(c.Request.Context(), id, userID, req.Enabled)
	switch {
	case errors.Is(err, ErrEntitlementNotFound), errors.Is(err, ErrNotOwner):
		c.JSON(http.StatusNotFound, gin.H{"error": "entitlement not found"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update auto-renew"})
		return
	}

	c.JSON(http.StatusOK, e)
}

// IsFeatured godoc
// @Summary      Read-side featured check for the listing service
// @Tags         entitlements
// @Produce      json
// @Param        profileID  path      string  true  "Profile reference"
// @Success      200  {object}  gin.H
// @Router       /profiles/{profileID}/featured [get]
func (h *Handler) IsFeatured(c *gin.Context) {
	profileID := c.Param("profileID")

	featured, err := h.repo.IsFeatured(c.Request.Context(), profileID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check featured status"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"profile_id": profileID, "featured": featured})
}

// ListExpiring godoc
// @Summary      Entitlements inside the renewal lookahead window
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        hours  query  int  false  "Lookahead window in hours (default 24)"
// @Success      200  {array}  Entitlement
// @Router       /admin/entitlements/expiring [get]
func (h *Handler) ListExpiring(c *gin.Context) {
	hours, err := strconv.Atoi(c.DefaultQuery("hours", "24"))
	if err != nil || hours <= 0 {
		hours = 24
	}

	list, err := h.repo.ListExpiringBefore(c.Request.Context(), time.Now().Add(time.Duration(hours)*time.Hour))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load expiring entitlements"})
		return
	}

	c.JSON(http.StatusOK, list)
}
