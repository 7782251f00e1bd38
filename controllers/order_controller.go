package controllers

import (
	"net/http"

	"checkout-service/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OrderController handles HTTP requests for order operations.
type OrderController struct {
	orderService services.OrderService
}

// NewOrderController creates a new OrderController.
func NewOrderController(svc services.OrderService) *OrderController {
	return &OrderController{orderService: svc}
}

// CreateOrder handles POST /orders
func (oc *OrderController) CreateOrder(ctx *gin.Context) {
	requester, ok := requesterFrom(ctx)
	if !ok {
		return
	}

	var req services.CreateOrderRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	req.IdempotencyKey = ctx.GetHeader("Idempotency-Key")

	order, svcErr := oc.orderService.CreateOrder(ctx.Request.Context(), requester, &req)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"order": order})
}

// GetOrder handles GET /orders/:id
func (oc *OrderController) GetOrder(ctx *gin.Context) {
	requester, ok := requesterFrom(ctx)
	if !ok {
		return
	}

	orderID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	order, svcErr := oc.orderService.GetOrder(ctx.Request.Context(), requester, orderID)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"order": order})
}

// ListOrders handles GET /orders
func (oc *OrderController) ListOrders(ctx *gin.Context) {
	requester, ok := requesterFrom(ctx)
	if !ok {
		return
	}

	page, limit := parsePaginationParams(ctx)
	opts := services.ListOrdersOptions{
		Page:   page,
		Limit:  limit,
		Status: ctx.Query("status"),
		UserID: ctx.Query("user_id"),
	}

	resp, svcErr := oc.orderService.ListOrders(ctx.Request.Context(), requester, opts)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}

	ctx.JSON(http.StatusOK, resp)
}

// CancelOrder handles POST /orders/:id/cancel
func (oc *OrderController) CancelOrder(ctx *gin.Context) {
	requester, ok := requesterFrom(ctx)
	if !ok {
		return
	}

	orderID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	order, svcErr := oc.orderService.CancelOrder(ctx.Request.Context(), requester, orderID)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"order": order})
}
