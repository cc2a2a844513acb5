package models

import "time"

type PaymentPurpose string

const (
	PurposeBooking PaymentPurpose = "BOOKING"
	PurposeTopUp   PaymentPurpose = "TOPUP"
)

type PaymentOrderStatus string

const (
	OrderPending PaymentOrderStatus = "PENDING"
	OrderPaid    PaymentOrderStatus = "PAID"
	OrderFailed  PaymentOrderStatus = "FAILED"
)

// PaymentOrder is written before the gateway is called so an order the
// client never confirms can still be reconciled.
type PaymentOrder struct {
	ID               uint               `json:"id" gorm:"primaryKey"`
	OrderID          string             `json:"order_id" gorm:"uniqueIndex;not null;size:64"`
	UserID           uint               `json:"user_id" gorm:"not null;index"`
	BookingID        *uint              `json:"booking_id" gorm:"index"`
	Purpose          PaymentPurpose     `json:"purpose" gorm:"not null"`
	Amount           float64            `json:"amount" gorm:"not null"`
	Currency         string             `json:"currency" gorm:"not null;size:3"`
	Status           PaymentOrderStatus `json:"status" gorm:"not null;default:'PENDING';index"`
	PaymentSessionID string             `json:"payment_session_id,omitempty"`
	GatewayPaymentID string             `json:"gateway_payment_id,omitempty"`
	FailureReason    string             `json:"failure_reason,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

type TransactionType string

const (
	TransactionCredit TransactionType = "credit"
	TransactionDebit  TransactionType = "debit"
)

const (
	TagBooking = "booking"
	TagTopUp   = "topup"
)

// Transaction is a wallet ledger row. OrderID is unique so a gateway order
// is recorded at most once regardless of how the title is worded.
type Transaction struct {
	ID        uint            `json:"id" gorm:"primaryKey"`
	UserID    uint            `json:"user_id" gorm:"not null;index"`
	Amount    float64         `json:"amount" gorm:"not null"`
	Type      TransactionType `json:"type" gorm:"not null;size:10"`
	Title     string          `json:"title" gorm:"not null"`
	Tag       string          `json:"tag"`
	OrderID   *string         `json:"order_id,omitempty" gorm:"uniqueIndex;size:64"`
	Date      time.Time       `json:"date" gorm:"not null"`
	CreatedAt time.Time       `json:"created_at"`
}
