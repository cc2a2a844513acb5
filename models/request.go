package models

import "time"

// RequestStatus is the lifecycle of a free-form service request
type RequestStatus string

const (
	RequestPending    RequestStatus = "PENDING"
	RequestReviewed   RequestStatus = "REVIEWED"
	RequestInProgress RequestStatus = "IN_PROGRESS"
	RequestCompleted  RequestStatus = "COMPLETED"
	RequestCancelled  RequestStatus = "CANCELLED"
)

// OthersRequest is a service request outside the catalog, priced by an admin.
type OthersRequest struct {
	ID            uint          `json:"id" gorm:"primaryKey"`
	UserID        uint          `json:"user_id" gorm:"not null;index"`
	User          *User         `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Title         string        `json:"title" gorm:"not null"`
	Description   string        `json:"description" gorm:"type:text;not null"`
	Location      string        `json:"location"`
	PreferredDate string        `json:"preferred_date"`
	AttachmentURL string        `json:"attachment_url,omitempty"`
	Status        RequestStatus `json:"status" gorm:"not null;default:'PENDING';index"`
	AdminNotes    string        `json:"admin_notes" gorm:"type:text"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

type Notification struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"not null;index"`
	Title     string    `json:"title" gorm:"not null"`
	Body      string    `json:"body"`
	Kind      string    `json:"kind" gorm:"size:32"`
	IsRead    bool      `json:"is_read" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
}
