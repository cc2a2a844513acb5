package models

import (
	"time"
)

// UserRole defines allowed roles in the system
type UserRole string

const (
	RoleUser   UserRole = "USER"
	RoleVendor UserRole = "VENDOR"
	RoleAdmin  UserRole = "ADMIN"
)

// ApprovalStatus gates vendor login and marketplace visibility
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "PENDING"
	ApprovalApproved ApprovalStatus = "APPROVED"
	ApprovalRejected ApprovalStatus = "REJECTED"
)

type User struct {
	ID              uint           `json:"id" gorm:"primaryKey"`
	Name            string         `json:"name" gorm:"not null"`
	Email           string         `json:"email" gorm:"uniqueIndex;not null"`
	Phone           string         `json:"phone"`
	PasswordHash    string         `json:"-" gorm:"not null"`
	Role            UserRole       `json:"role" gorm:"not null;default:'USER';index"`
	ApprovalStatus  ApprovalStatus `json:"approval_status" gorm:"not null;default:'APPROVED';index"`
	RejectionReason string         `json:"rejection_reason,omitempty"`
	WalletBalance   float64        `json:"wallet_balance" gorm:"not null;default:0"`

	// vendor profile
	BusinessName    string `json:"business_name,omitempty"`
	BusinessAddress string `json:"business_address,omitempty"`
	ServiceCategory string `json:"service_category,omitempty" gorm:"index"`
	ExperienceYears int    `json:"experience_years,omitempty"`
	IDProofURL      string `json:"id_proof_url,omitempty" gorm:"column:id_proof_url"`
	AddressProofURL string `json:"address_proof_url,omitempty" gorm:"column:address_proof_url"`

	ResetOTPHash      string     `json:"-" gorm:"column:reset_otp_hash"`
	ResetOTPExpiresAt *time.Time `json:"-" gorm:"column:reset_otp_expires_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) IsVendor() bool {
	return u.Role == RoleVendor
}

// IsListed reports whether the user appears in the vendor-selection listing.
func (u *User) IsListed() bool {
	return u.IsVendor() && u.ApprovalStatus == ApprovalApproved
}
