package routes

import (
	"net/http"

	"github.com/peandrade/ticketflow-sub001/controllers"

	"github.com/gin-gonic/gin"
)

func Register(
	r *gin.Engine,
	auth gin.HandlerFunc,
	cc *controllers.CheckoutController,
	oc *controllers.OrderController,
	rc *controllers.RefundController,
	wc *controllers.WebhookController,
	ic *controllers.InventoryController,
) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public availability read for storefront listings
	r.GET("/inventory/:ticket_type_id", ic.GetAvailability)

	// Stripe webhook (no auth; authenticity comes from the signature)
	r.POST("/stripe/webhook", wc.HandleStripeWebhook)

	authed := r.Group("/")
	authed.Use(auth)
	authed.POST("/checkout", cc.StartCheckout)
	authed.POST("/checkout/resume", cc.ResumeCheckout)
	authed.POST("/orders/refund", rc.RequestRefund)
	authed.GET("/orders", oc.ListOrders)
	authed.GET("/orders/:id", oc.GetOrder)
}
