// Package services holds the marketplace business logic. Handlers stay thin
// and translate HTTP to these calls; every method returns *apperrors.AppError
// for failures a client can act on.
package services

import (
	"context"
	"time"

	"home-services-api/cache"
	"home-services-api/config"
	"home-services-api/gateway"
	"home-services-api/models"

	"gorm.io/gorm"
)

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	GenerateToken(user *models.User) (string, error)
}

// PaymentGateway is the subset of the Cashfree client the payment flow needs.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, req gateway.CreateOrderRequest) (*gateway.Order, error)
	GetOrderPayments(ctx context.Context, orderID string) ([]gateway.Payment, error)
}

// MailQueue delivers email in the background.
type MailQueue interface {
	SendAsync(to, subject, body string) error
}

type Deps struct {
	DB      *gorm.DB
	Config  *config.Config
	Tokens  TokenIssuer
	Gateway PaymentGateway
	Mail    MailQueue
	Cache   cache.CatalogCache
	Now     func() time.Time
}

type Services struct {
	Auth          *AuthService
	Catalog       *CatalogService
	Bookings      *BookingService
	Payments      *PaymentService
	Wallet        *WalletService
	Vendors       *VendorService
	Requests      *OthersRequestService
	Notifications *NotificationService
	Admin         *AdminService
}

// Viewer is the authenticated caller a service acts on behalf of.
type Viewer struct {
	ID   uint
	Role models.UserRole
}

func New(d Deps) *Services {
	if d.Config == nil {
		d.Config = config.Default()
	}
	if d.Cache == nil {
		d.Cache = cache.Nop{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}

	notifications := &NotificationService{db: d.DB, mail: d.Mail}
	wallet := &WalletService{db: d.DB}
	payments := &PaymentService{
		db:      d.DB,
		gateway: d.Gateway,
		cfg:     d.Config.Cashfree,
		recon:   d.Config.Reconcile,
		wallet:  wallet,
		notify:  notifications,
		now:     d.Now,
	}
	wallet.payments = payments

	return &Services{
		Auth: &AuthService{
			db:         d.DB,
			tokens:     d.Tokens,
			mail:       d.Mail,
			notify:     notifications,
			otpTTL:     d.Config.OTP.TTL,
			production: d.Config.IsProduction(),
			now:        d.Now,
		},
		Catalog:       &CatalogService{db: d.DB, cache: d.Cache},
		Bookings:      &BookingService{db: d.DB, notify: notifications, now: d.Now},
		Payments:      payments,
		Wallet:        wallet,
		Vendors:       &VendorService{db: d.DB, notify: notifications},
		Requests:      &OthersRequestService{db: d.DB, notify: notifications},
		Notifications: notifications,
		Admin:         &AdminService{db: d.DB},
	}
}

// Page is a 1-based page request.
type Page struct {
	Number int
	Size   int
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Normalize fills in defaults and caps the page size.
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = defaultPageSize
	}
	if p.Size > maxPageSize {
		p.Size = maxPageSize
	}
	return p
}

func (p Page) offset() int {
	return (p.Number - 1) * p.Size
}
