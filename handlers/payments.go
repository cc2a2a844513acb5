package handlers

import (
	"io"
	"net/http"

	"home-services-api/apperrors"
	"home-services-api/middleware"
	"home-services-api/models"
	"home-services-api/services"

	"github.com/gin-gonic/gin"
)

// maxWebhookBody bounds the raw webhook payload read for signature checks.
const maxWebhookBody = 1 << 20

type CreatePaymentOrderRequest struct {
	Amount    float64               `json:"amount" binding:"gte=0"`
	Currency  string                `json:"currency" binding:"omitempty,len=3"`
	Purpose   models.PaymentPurpose `json:"purpose" binding:"omitempty,oneof=BOOKING TOPUP"`
	BookingID *uint                 `json:"booking_id"`
	ReturnURL string                `json:"return_url" binding:"omitempty,url"`
}

type VerifyPaymentRequest struct {
	OrderID string                `json:"order_id" binding:"required"`
	Type    models.PaymentPurpose `json:"type" binding:"omitempty,oneof=BOOKING TOPUP"`
}

// CreatePaymentOrder opens a gateway checkout for a booking or a top-up
func (h *Handler) CreatePaymentOrder(c *gin.Context) {
	var req CreatePaymentOrderRequest
	if !bindJSON(c, &req) {
		return
	}
	order, err := h.svc.Payments.CreateOrder(c.Request.Context(), middleware.GetUserID(c), services.CreateOrderInput{
		Amount:    req.Amount,
		Currency:  req.Currency,
		Purpose:   req.Purpose,
		BookingID: req.BookingID,
		ReturnURL: req.ReturnURL,
	})
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"order_id":           order.OrderID,
		"payment_session_id": order.PaymentSessionID,
		"amount":             order.Amount,
		"currency":           order.Currency,
		"purpose":            order.Purpose,
		"status":             order.Status,
	})
}

// VerifyPayment confirms a checkout with the gateway and records it once
func (h *Handler) VerifyPayment(c *gin.Context) {
	var req VerifyPaymentRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.svc.Payments.VerifyForUser(c.Request.Context(), middleware.GetUserID(c), req.OrderID, req.Type)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	respondVerify(c, result)
}

// PaymentWebhook is called by the gateway; it authenticates with an HMAC
// signature instead of a bearer token.
func (h *Handler) PaymentWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		apperrors.Respond(c, apperrors.Validation("Could not read webhook body"))
		return
	}
	result, err := h.svc.Payments.HandleWebhook(c.Request.Context(),
		c.GetHeader("x-webhook-timestamp"), c.GetHeader("x-webhook-signature"), body)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true, "order_id": result.OrderID, "paid": result.Paid})
}

// GetMyPaymentOrders lists the caller's gateway orders
func (h *Handler) GetMyPaymentOrders(c *gin.Context) {
	page := pageFrom(c)
	orders, total, err := h.svc.Payments.ListOrders(c.Request.Context(), middleware.GetUserID(c), page)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	paged(c, "orders", orders, total, page)
}

func respondVerify(c *gin.Context, result *services.VerifyResult) {
	message := "Payment not completed yet"
	switch {
	case result.GatewayStatus == services.GatewayStatusUnderpaid:
		message = "Payment amount is less than the order amount"
	case result.Paid && result.AlreadyRecorded:
		message = "Payment already verified"
	case result.Paid:
		message = "Payment verified"
	}
	c.JSON(http.StatusOK, gin.H{"message": message, "payment": result})
}
