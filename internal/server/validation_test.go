package server

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestCatalogItemValidation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	RegisterValidations()

	type purchaseBody struct {
		ItemID string `json:"item_id" binding:"required,catalog_item"`
	}

	router := gin.New()
	router.POST("/purchases", func(c *gin.Context) {
		var body purchaseBody
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"item_id": body.ItemID})
	})

	// known item passes
	req := httptest.NewRequest("POST", "/purchases", bytes.NewBufferString(`{"item_id":"boost_24h"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// unknown item is rejected at binding
	req = httptest.NewRequest("POST", "/purchases", bytes.NewBufferString(`{"item_id":"nao_existe"}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestValidateStruct(t *testing.T) {
	type registerBody struct {
		Email    string `validate:"required,email"`
		Password string `validate:"required,min=8"`
	}

	errs := ValidateStruct(registerBody{Email: "nao-e-email", Password: "curta"})
	assert.Len(t, errs, 2)

	errs = ValidateStruct(registerBody{Email: "ana@example.com", Password: "password123"})
	assert.Empty(t, errs)
}
