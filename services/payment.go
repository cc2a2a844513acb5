package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"home-services-api/apperrors"
	"home-services-api/config"
	"home-services-api/gateway"
	"home-services-api/metrics"
	"home-services-api/models"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// placeholder the gateway accepts when a customer has no phone on file
	fallbackPhone = "9999999999"

	// amounts are rupees with paise precision
	amountTolerance = 0.005

	// GatewayStatusUnderpaid marks a successful payment smaller than its order.
	GatewayStatusUnderpaid = "UNDERPAID"
)

// amountCovers reports whether paid settles expected.
func amountCovers(paid, expected float64) bool {
	return paid+amountTolerance >= expected
}

func sameAmount(a, b float64) bool {
	return amountCovers(a, b) && amountCovers(b, a)
}

type PaymentService struct {
	db      *gorm.DB
	gateway PaymentGateway
	cfg     config.CashfreeConfig
	recon   config.ReconcileConfig
	wallet  *WalletService
	notify  *NotificationService
	now     func() time.Time
}

type CreateOrderInput struct {
	Amount    float64
	Currency  string
	Purpose   models.PaymentPurpose
	BookingID *uint
	ReturnURL string
}

// CreateOrder records a PENDING order, then asks the gateway for a payment session.
func (s *PaymentService) CreateOrder(ctx context.Context, userID uint, in CreateOrderInput) (*models.PaymentOrder, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return nil, findOr404(err, "User")
	}

	if in.Purpose == "" {
		in.Purpose = models.PurposeBooking
	}
	switch in.Purpose {
	case models.PurposeBooking, models.PurposeTopUp:
	default:
		return nil, apperrors.Validation("purpose must be BOOKING or TOPUP")
	}
	if in.Purpose == models.PurposeTopUp {
		in.BookingID = nil
	}
	if in.BookingID != nil {
		booking, err := s.payableBooking(ctx, userID, *in.BookingID)
		if err != nil {
			return nil, err
		}
		// a booking is always charged its own price
		if in.Amount != 0 && !sameAmount(in.Amount, booking.Price) {
			return nil, apperrors.Validation("amount must equal the booking price").
				WithDetails(map[string]any{"booking_price": booking.Price})
		}
		in.Amount = booking.Price
	}
	if in.Amount <= 0 {
		return nil, apperrors.Validation("amount must be greater than 0")
	}
	if in.Currency == "" {
		in.Currency = s.cfg.Currency
	}

	order := models.PaymentOrder{
		OrderID:   newOrderID(),
		UserID:    userID,
		BookingID: in.BookingID,
		Purpose:   in.Purpose,
		Amount:    in.Amount,
		Currency:  strings.ToUpper(in.Currency),
		Status:    models.OrderPending,
	}
	if err := s.db.WithContext(ctx).Create(&order).Error; err != nil {
		return nil, apperrors.Internal(err)
	}

	phone := user.Phone
	if phone == "" {
		phone = fallbackPhone
	}
	req := gateway.CreateOrderRequest{
		OrderID:       order.OrderID,
		OrderAmount:   order.Amount,
		OrderCurrency: order.Currency,
		Customer: gateway.CustomerDetails{
			CustomerID:    fmt.Sprintf("user_%d", user.ID),
			CustomerName:  user.Name,
			CustomerEmail: user.Email,
			CustomerPhone: phone,
		},
		OrderNote: string(order.Purpose),
	}
	if in.ReturnURL != "" {
		req.OrderMeta = &gateway.OrderMeta{ReturnURL: in.ReturnURL}
	}

	gwOrder, err := s.gateway.CreateOrder(ctx, req)
	if err != nil {
		var gwErr *gateway.Error
		if errors.As(err, &gwErr) && gwErr.Retryable {
			// the gateway may still have created the order; reconciliation settles it
			s.noteFailure(ctx, order.OrderID, err.Error())
		} else {
			s.markFailed(ctx, order.OrderID, err.Error())
		}
		return nil, gatewayError(err)
	}

	order.PaymentSessionID = gwOrder.PaymentSessionID
	if err := s.db.WithContext(ctx).Model(&order).Update("payment_session_id", order.PaymentSessionID).Error; err != nil {
		return nil, apperrors.Internal(err)
	}
	zap.S().Infow("payment order created",
		"order_id", order.OrderID, "user_id", userID, "purpose", order.Purpose, "amount", order.Amount)
	return &order, nil
}

func (s *PaymentService) payableBooking(ctx context.Context, userID, bookingID uint) (*models.Booking, error) {
	var booking models.Booking
	if err := s.db.WithContext(ctx).First(&booking, bookingID).Error; err != nil {
		return nil, findOr404(err, "Booking")
	}
	if booking.UserID != userID {
		return nil, apperrors.Forbidden("This booking does not belong to you")
	}
	if booking.PaymentStatus == models.PaymentPaid {
		return nil, apperrors.Conflict(apperrors.CodeDuplicateTransaction, "Booking has already been paid")
	}
	if booking.Status == models.BookingCancelled {
		return nil, apperrors.Conflict(apperrors.CodeInvalidTransition, "Booking is cancelled")
	}
	return &booking, nil
}

// VerifyResult reports the outcome of a verification.
type VerifyResult struct {
	OrderID          string                    `json:"order_id"`
	Purpose          models.PaymentPurpose     `json:"purpose"`
	Status           models.PaymentOrderStatus `json:"status"`
	Paid             bool                      `json:"paid"`
	Amount           float64                   `json:"amount"`
	GatewayPaymentID string                    `json:"gateway_payment_id,omitempty"`
	GatewayStatus    string                    `json:"gateway_status,omitempty"`
	AlreadyRecorded  bool                      `json:"already_recorded"`
	Transaction      *models.Transaction       `json:"transaction,omitempty"`
	WalletBalance    *float64                  `json:"wallet_balance,omitempty"`
}

// VerifyForUser verifies an order owned by userID. purposeHint is the client's
// declared type; the stored order purpose is authoritative.
func (s *PaymentService) VerifyForUser(ctx context.Context, userID uint, orderID string, purposeHint models.PaymentPurpose) (*VerifyResult, error) {
	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, apperrors.NotFound("Payment order")
	}
	if purposeHint != "" && purposeHint != order.Purpose {
		zap.S().Warnw("payment verify type mismatch", "order_id", orderID, "declared", purposeHint, "stored", order.Purpose)
	}
	return s.verifyOrder(ctx, order)
}

// Verify checks the gateway for a successful payment and records it exactly once.
func (s *PaymentService) Verify(ctx context.Context, orderID string) (*VerifyResult, error) {
	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.verifyOrder(ctx, order)
}

func (s *PaymentService) findOrder(ctx context.Context, orderID string) (*models.PaymentOrder, error) {
	var order models.PaymentOrder
	if err := s.db.WithContext(ctx).Where("order_id = ?", orderID).First(&order).Error; err != nil {
		return nil, findOr404(err, "Payment order")
	}
	return &order, nil
}

func (s *PaymentService) verifyOrder(ctx context.Context, order *models.PaymentOrder) (*VerifyResult, error) {
	result := &VerifyResult{
		OrderID:          order.OrderID,
		Purpose:          order.Purpose,
		Status:           order.Status,
		Paid:             order.Status == models.OrderPaid,
		Amount:           order.Amount,
		GatewayPaymentID: order.GatewayPaymentID,
	}
	if order.Status == models.OrderPaid {
		result.AlreadyRecorded = true
		metrics.PaymentsVerified.WithLabelValues(string(order.Purpose), "already_paid").Inc()
		return result, nil
	}

	payments, err := s.gateway.GetOrderPayments(ctx, order.OrderID)
	if err != nil {
		return nil, gatewayError(err)
	}
	payment, ok := gateway.FirstSuccessful(payments)
	if !ok {
		if len(payments) > 0 {
			result.GatewayStatus = payments[len(payments)-1].PaymentStatus
		}
		metrics.PaymentsVerified.WithLabelValues(string(order.Purpose), "not_paid").Inc()
		return result, nil
	}
	if !amountCovers(payment.PaymentAmount, order.Amount) {
		zap.S().Warnw("payment below order amount",
			"order_id", order.OrderID, "paid", payment.PaymentAmount, "expected", order.Amount)
		s.markFailed(ctx, order.OrderID, fmt.Sprintf("paid %.2f, expected %.2f", payment.PaymentAmount, order.Amount))
		metrics.PaymentsVerified.WithLabelValues(string(order.Purpose), "underpaid").Inc()
		result.Status = models.OrderFailed
		result.GatewayPaymentID = string(payment.CFPaymentID)
		result.GatewayStatus = GatewayStatusUnderpaid
		return result, nil
	}

	var recorded *models.Transaction
	var balance *float64
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.PaymentOrder{}).
			Where("order_id = ? AND status <> ?", order.OrderID, models.OrderPaid).
			Updates(map[string]any{
				"status":             models.OrderPaid,
				"gateway_payment_id": string(payment.CFPaymentID),
				"failure_reason":     "",
			}).Error
		if err != nil {
			return err
		}

		if order.Purpose == models.PurposeTopUp {
			txn, newBalance, err := s.wallet.creditTx(tx, order.UserID, order.Amount, order.OrderID)
			if err != nil {
				return err
			}
			recorded, balance = txn, newBalance
			return nil
		}

		txn, err := recordOnce(tx, models.Transaction{
			UserID: order.UserID,
			Amount: order.Amount,
			Type:   models.TransactionDebit,
			Title:  "Service Booking Payment #" + order.OrderID,
			Tag:    models.TagBooking,
			Date:   s.now(),
		}, order.OrderID)
		if err != nil {
			return err
		}
		recorded = txn
		if order.BookingID != nil {
			return tx.Model(&models.Booking{}).Where("id = ?", *order.BookingID).
				Update("payment_status", models.PaymentPaid).Error
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	result.Status = models.OrderPaid
	result.Paid = true
	result.GatewayPaymentID = string(payment.CFPaymentID)
	result.GatewayStatus = payment.PaymentStatus
	result.Transaction = recorded
	result.AlreadyRecorded = recorded == nil
	result.WalletBalance = balance

	outcome := "recorded"
	if recorded == nil {
		outcome = "duplicate"
	}
	metrics.PaymentsVerified.WithLabelValues(string(order.Purpose), outcome).Inc()
	zap.S().Infow("payment verified", "order_id", order.OrderID, "purpose", order.Purpose, "outcome", outcome)

	if recorded != nil {
		s.notify.Notify(ctx, order.UserID, "Payment received",
			fmt.Sprintf("We received your payment of %.2f %s.", order.Amount, order.Currency), KindPayment)
	}
	return result, nil
}

// recordOnce inserts a ledger row keyed by orderID. It returns nil when the
// order was already recorded.
func recordOnce(tx *gorm.DB, txn models.Transaction, orderID string) (*models.Transaction, error) {
	txn.OrderID = &orderID
	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "order_id"}},
		DoNothing: true,
	}).Create(&txn)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &txn, nil
}

// HandleWebhook authenticates a gateway callback and verifies the order it names.
func (s *PaymentService) HandleWebhook(ctx context.Context, timestamp, signature string, body []byte) (*VerifyResult, error) {
	if err := gateway.VerifyWebhookSignature(s.cfg.WebhookSecret, timestamp, signature, body); err != nil {
		return nil, apperrors.New(apperrors.CodeInvalidSignature, http.StatusUnauthorized, "Invalid webhook signature")
	}
	event, err := gateway.ParseWebhook(body)
	if err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	result, err := s.Verify(ctx, event.OrderID)
	if apperrors.HasCode(err, apperrors.CodeNotFound) {
		zap.S().Warnw("webhook for unknown order", "order_id", event.OrderID, "type", event.Type)
		return &VerifyResult{OrderID: event.OrderID, GatewayStatus: event.PaymentStatus}, nil
	}
	return result, err
}

// ReconcileReport counts what a reconciliation pass did.
type ReconcileReport struct {
	Checked int `json:"checked"`
	Paid    int `json:"paid"`
	Expired int `json:"expired"`
	Pending int `json:"pending"`
	Errors  int `json:"errors"`
}

// ReconcilePending re-verifies PENDING orders older than MinAge and fails the
// ones still unpaid after Expiry.
func (s *PaymentService) ReconcilePending(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport
	now := s.now()

	var orders []models.PaymentOrder
	err := s.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", models.OrderPending, now.Add(-s.recon.MinAge)).
		Order("created_at asc").Limit(100).
		Find(&orders).Error
	if err != nil {
		return report, err
	}

	for i := range orders {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		order := &orders[i]
		report.Checked++

		result, err := s.verifyOrder(ctx, order)
		switch {
		case err != nil:
			report.Errors++
			metrics.ReconcileRuns.WithLabelValues("error").Inc()
			zap.S().Warnw("reconcile order", "order_id", order.OrderID, "error", err)
		case result.Paid:
			report.Paid++
			metrics.ReconcileRuns.WithLabelValues("paid").Inc()
		case s.recon.Expiry > 0 && order.CreatedAt.Before(now.Add(-s.recon.Expiry)):
			s.markFailed(ctx, order.OrderID, "expired without a successful payment")
			report.Expired++
			metrics.ReconcileRuns.WithLabelValues("expired").Inc()
		default:
			report.Pending++
			metrics.ReconcileRuns.WithLabelValues("pending").Inc()
		}
	}
	if report.Checked > 0 {
		zap.S().Infow("payment reconciliation finished",
			"checked", report.Checked, "paid", report.Paid, "expired", report.Expired,
			"pending", report.Pending, "errors", report.Errors)
	}
	return report, nil
}

// ListOrders returns a user's payment orders, newest first.
func (s *PaymentService) ListOrders(ctx context.Context, userID uint, page Page) ([]models.PaymentOrder, int64, error) {
	page = page.Normalize()
	q := s.db.WithContext(ctx).Model(&models.PaymentOrder{}).Where("user_id = ?", userID).Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Internal(err)
	}
	orders := []models.PaymentOrder{}
	if err := q.Order("created_at desc, id desc").Offset(page.offset()).Limit(page.Size).Find(&orders).Error; err != nil {
		return nil, 0, apperrors.Internal(err)
	}
	return orders, total, nil
}

// noteFailure records why the last gateway call failed without leaving PENDING.
func (s *PaymentService) noteFailure(ctx context.Context, orderID, reason string) {
	if len(reason) > 500 {
		reason = reason[:500]
	}
	err := s.db.WithContext(ctx).Model(&models.PaymentOrder{}).
		Where("order_id = ? AND status = ?", orderID, models.OrderPending).
		Update("failure_reason", reason).Error
	if err != nil {
		zap.S().Errorw("note payment order failure", "order_id", orderID, "error", err)
	}
}

func (s *PaymentService) markFailed(ctx context.Context, orderID, reason string) {
	if len(reason) > 500 {
		reason = reason[:500]
	}
	err := s.db.WithContext(ctx).Model(&models.PaymentOrder{}).
		Where("order_id = ? AND status = ?", orderID, models.OrderPending).
		Updates(map[string]any{"status": models.OrderFailed, "failure_reason": reason}).Error
	if err != nil {
		zap.S().Errorw("mark payment order failed", "order_id", orderID, "error", err)
	}
}

// gatewayError classifies gateway failures: retryable ones become 503
// GATEWAY_UNAVAILABLE, the rest 500 GATEWAY_ERROR with the upstream payload.
func gatewayError(err error) error {
	var gwErr *gateway.Error
	if !errors.As(err, &gwErr) {
		return apperrors.Wrap(err, apperrors.CodeGatewayError, http.StatusInternalServerError, "Payment gateway error")
	}
	if gwErr.Retryable {
		return apperrors.Wrap(err, apperrors.CodeGatewayUnavailable, http.StatusServiceUnavailable,
			"Payment gateway is temporarily unavailable, please retry")
	}
	appErr := apperrors.Wrap(err, apperrors.CodeGatewayError, http.StatusInternalServerError,
		"Payment gateway error: "+gwErr.Message)
	switch {
	case len(gwErr.Body) == 0:
	case gjson.ValidBytes(gwErr.Body):
		appErr.WithDetails(map[string]any{"gateway_status": gwErr.StatusCode, "gateway_response": json.RawMessage(gwErr.Body)})
	default:
		appErr.WithDetails(map[string]any{"gateway_status": gwErr.StatusCode, "gateway_response": string(gwErr.Body)})
	}
	return appErr
}

func newOrderID() string {
	return "order_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
