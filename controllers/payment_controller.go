package controllers

import (
	"net/http"

	"checkout-service/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PaymentController handles HTTP requests for payment operations.
type PaymentController struct {
	paymentService services.PaymentService
}

// NewPaymentController creates a new PaymentController.
func NewPaymentController(svc services.PaymentService) *PaymentController {
	return &PaymentController{paymentService: svc}
}

// CreatePayment handles POST /payments
func (pc *PaymentController) CreatePayment(ctx *gin.Context) {
	requester, ok := requesterFrom(ctx)
	if !ok {
		return
	}

	var req services.CreatePaymentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	payment, svcErr := pc.paymentService.CreatePayment(ctx.Request.Context(), requester, &req)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"payment": payment})
}

// GetPaymentByOrder handles GET /orders/:id/payment
func (pc *PaymentController) GetPaymentByOrder(ctx *gin.Context) {
	requester, ok := requesterFrom(ctx)
	if !ok {
		return
	}

	orderID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	payment, svcErr := pc.paymentService.GetPaymentByOrder(ctx.Request.Context(), requester, orderID)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"payment": payment})
}

// Transition handles PATCH /payments/:id/status
func (pc *PaymentController) Transition(ctx *gin.Context) {
	requester, ok := requesterFrom(ctx)
	if !ok {
		return
	}

	paymentID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payment ID"})
		return
	}

	var req services.TransitionPaymentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	payment, svcErr := pc.paymentService.Transition(ctx.Request.Context(), requester, paymentID, &req)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"payment": payment})
}
