package balance

import (
	"net/http"
	"strconv"

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

// GetBalance godoc
// @Summary      Current credit balance
// @Tags         balance
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  Balance
// @Failure      401  {object}  gin.H
// @Failure      500  {object}  gin.H
// @Router       /balance [get]
func (h *Handler) GetBalance(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	b, err := h.repo.GetOrCreate(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load balance"})
		return
	}

	c.JSON(http.StatusOK, b)
}

// ListLedger godoc
// @Summary      Ledger history
// @Tags         balance
// @Security     BearerAuth
// @Produce      json
// @Param        limit   query  int  false  "Page size"
// @Param        offset  query  int  false  "Page offset"
// @Success      200  {array}   LedgerEntry
// @Failure      401  {object}  gin.H
// @Failure      500  {object}  gin.H
// @Router       /balance/ledger [get]
func (h *Handler) ListLedger(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	entries, err := h.repo.ListLedger(c.Request.Context(), userID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load ledger"})
		return
	}

	c.JSON(http.StatusOK, entries)
}

// Reconcile godoc
// @Summary      Check a user's cached balance against the ledger sum
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        userID  path  int  true  "User ID"
// @Success      200  {object}  ReconcileReport
// @Failure      409  {object}  ReconcileReport
// @Router       /admin/balances/{userID}/reconcile [get]
func (h *Handler) Reconcile(c *gin.Context) {
	userID, err := strconv.Atoi(c.Param("userID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user ID"})
		return
	}

	report, err := h.repo.Reconcile(c.Request.Context(), userID)
	if err != nil {
		if report != nil && !report.Consistent {
			logger.Error("Ledger drift detected", "user_id", userID, "cached", report.CachedAmount, "sum", report.LedgerSum)
			c.JSON(http.StatusConflict, report)
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reconcile balance"})
		return
	}

	c.JSON(http.StatusOK, report)
}
