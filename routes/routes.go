package routes

import (
	"checkout-service/controllers"

	"github.com/gin-gonic/gin"
)

// RegisterOrderRoutes sets up order routes. The payment controller hangs the
// order-scoped payment lookup off the same group.
func RegisterOrderRoutes(r *gin.Engine, oc *controllers.OrderController, pc *controllers.PaymentController, mw ...gin.HandlerFunc) {
	orders := r.Group("/orders")
	orders.Use(mw...)
	{
		orders.POST("", oc.CreateOrder)
		orders.GET("", oc.ListOrders)
		orders.GET("/:id", oc.GetOrder)
		orders.POST("/:id/cancel", oc.CancelOrder)
		orders.GET("/:id/payment", pc.GetPaymentByOrder)
	}
}

// RegisterPaymentRoutes sets up payment routes.
func RegisterPaymentRoutes(r *gin.Engine, pc *controllers.PaymentController, mw ...gin.HandlerFunc) {
	payments := r.Group("/payments")
	payments.Use(mw...)
	{
		payments.POST("", pc.CreatePayment)
		payments.PATCH("/:id/status", pc.Transition)
	}
}

// RegisterInventoryRoutes sets up stock routes.
func RegisterInventoryRoutes(r *gin.Engine, ic *controllers.InventoryController, mw ...gin.HandlerFunc) {
	inventory := r.Group("/inventory")
	inventory.Use(mw...)
	{
		inventory.GET("/:productId", ic.GetStock)
		inventory.POST("", ic.SetStock)
	}
}
