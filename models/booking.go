package models

import "time"

// BookingStatus represents all possible states of a service booking
type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingAccepted  BookingStatus = "ACCEPTED"
	BookingActive    BookingStatus = "ACTIVE"
	BookingCompleted BookingStatus = "COMPLETED"
	BookingCancelled BookingStatus = "CANCELLED"
)

// ActiveBookingStatuses are the states that occupy a vendor slot.
var ActiveBookingStatuses = []BookingStatus{BookingPending, BookingAccepted, BookingActive}

type PaymentMode string

const (
	PaymentPrepaid  PaymentMode = "PREPAID"
	PaymentPostpaid PaymentMode = "POSTPAID"
)

type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "UNPAID"
	PaymentPaid   PaymentStatus = "PAID"
)

type Booking struct {
	ID            uint          `json:"id" gorm:"primaryKey"`
	UserID        uint          `json:"user_id" gorm:"not null;index"`
	User          *User         `json:"user,omitempty" gorm:"foreignKey:UserID"`
	VendorID      *uint         `json:"vendor_id" gorm:"index"`
	Vendor        *User         `json:"vendor,omitempty" gorm:"foreignKey:VendorID"`
	ServiceID     *uint         `json:"service_id"`
	CategoryID    *uint         `json:"category_id" gorm:"index"`
	ServiceName   string        `json:"service_name" gorm:"not null"`
	Date          string        `json:"date" gorm:"not null;size:10"` // YYYY-MM-DD
	TimeSlot      string        `json:"time_slot" gorm:"not null;size:64"`
	Location      string        `json:"location" gorm:"not null"`
	Status        BookingStatus `json:"status" gorm:"not null;default:'PENDING';index"`
	Price         float64       `json:"price"`
	PaymentMode   PaymentMode   `json:"payment_mode" gorm:"not null"`
	PaymentStatus PaymentStatus `json:"payment_status" gorm:"not null;default:'UNPAID'"`
	AttachmentURL string        `json:"attachment_url,omitempty"`
	Notes         string        `json:"notes,omitempty"`

	StatusHistory []BookingStatusHistory `json:"status_history,omitempty" gorm:"foreignKey:BookingID"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

// BookingStatusHistory tracks every status change
type BookingStatusHistory struct {
	ID         uint          `json:"id" gorm:"primaryKey"`
	BookingID  uint          `json:"booking_id" gorm:"not null;index"`
	FromStatus BookingStatus `json:"from_status"`
	ToStatus   BookingStatus `json:"to_status" gorm:"not null"`
	ChangedBy  uint          `json:"changed_by"`
	Actor      string        `json:"actor"`
	Note       string        `json:"note"`
	CreatedAt  time.Time     `json:"created_at"`
}

// BookingStatusHistory is stored as booking_status_history rather than the pluralized default.
func (BookingStatusHistory) TableName() string {
	return "booking_status_history"
}
