package affiliate

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/MoniqueCrespo/scortbrasil-testando-sub003/internal/auth"
)

type Handler struct {
	repo Repository
}

func NewHandler(db *sqlx.DB) *Handler {
	return &Handler{
		repo: NewRepository(db),
	}
}

// GetSummary godoc
// @Summary      Affiliate tier and cumulative totals
// @Tags         affiliate
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  Summary
// @Failure      401  {object}  gin.H
// @Router       /affiliate/summary [get]
func (h *Handler) GetSummary(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	summary, err := h.repo.GetSummary(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load affiliate summary"})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// ListCommissions godoc
// @Summary      Commission history
// @Tags         affiliate
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   Commission
// @Failure      401  {object}  gin.H
// @Router       /affiliate/commissions [get]
func (h *Handler) ListCommissions(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	list, err := h.repo.ListCommissions(c.Request.Context(), userID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load commissions"})
		return
	}

	c.JSON(http.StatusOK, list)
}
