package controllers

import (
	"errors"
	"net/http"

	"checkout-service/models"
	"checkout-service/repository"
	"checkout-service/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// InventoryController handles HTTP requests for stock levels.
type InventoryController struct {
	ledger services.InventoryLedger
	access services.AccessPolicy
}

// NewInventoryController creates a new InventoryController.
func NewInventoryController(ledger services.InventoryLedger, access services.AccessPolicy) *InventoryController {
	return &InventoryController{ledger: ledger, access: access}
}

// GetStock handles GET /inventory/:productId
func (ic *InventoryController) GetStock(ctx *gin.Context) {
	requester, ok := requesterFrom(ctx)
	if !ok {
		return
	}
	if !ic.access.Authorize(requester, requester.UserID, models.RoleCustomer) {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	productID, err := uuid.Parse(ctx.Param("productId"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	inv, err := ic.ledger.GetStock(ctx.Request.Context(), productID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Inventory not found for product"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch inventory"})
		return
	}

	ctx.JSON(http.StatusOK, inv)
}

// SetStock handles POST /inventory. Loading stock is an admin operation.
func (ic *InventoryController) SetStock(ctx *gin.Context) {
	requester, ok := requesterFrom(ctx)
	if !ok {
		return
	}
	if !ic.access.Authorize(requester, uuid.Nil, models.RoleAdmin) {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "Admin role required"})
		return
	}

	var req models.SetStockRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	inv, err := ic.ledger.SetStock(ctx.Request.Context(), req.ProductID, req.Available)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to set stock"})
		return
	}

	ctx.JSON(http.StatusCreated, inv)
}
