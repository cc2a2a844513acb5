package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"home-services-api/apperrors"
	"home-services-api/config"
	"home-services-api/gateway"
	"home-services-api/migrations"
	"home-services-api/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testWebhookSecret = "whsec_test"

type fakeTokens struct{}

func (fakeTokens) GenerateToken(u *models.User) (string, error) {
	return fmt.Sprintf("token-%d-%s", u.ID, u.Role), nil
}

// fakeGateway records created orders and serves canned payment lists.
type fakeGateway struct {
	mu          sync.Mutex
	created     []gateway.CreateOrderRequest
	payments    map[string][]gateway.Payment
	createErr   error
	paymentsErr error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{payments: map[string][]gateway.Payment{}}
}

func (g *fakeGateway) CreateOrder(_ context.Context, req gateway.CreateOrderRequest) (*gateway.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.created = append(g.created, req)
	return &gateway.Order{
		CFOrderID:        gateway.FlexibleID(fmt.Sprint(len(g.created))),
		OrderID:          req.OrderID,
		OrderAmount:      req.OrderAmount,
		OrderCurrency:    req.OrderCurrency,
		OrderStatus:      "ACTIVE",
		PaymentSessionID: "session_" + req.OrderID,
	}, nil
}

func (g *fakeGateway) GetOrderPayments(_ context.Context, orderID string) ([]gateway.Payment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.paymentsErr != nil {
		return nil, g.paymentsErr
	}
	return g.payments[orderID], nil
}

func (g *fakeGateway) succeed(orderID string, amount float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.payments[orderID] = []gateway.Payment{
		{CFPaymentID: "1001", OrderID: orderID, PaymentStatus: "FAILED", PaymentAmount: amount},
		{CFPaymentID: "1002", OrderID: orderID, PaymentStatus: gateway.PaymentStatusSuccess, PaymentAmount: amount},
	}
}

type harness struct {
	db      *gorm.DB
	svc     *Services
	gateway *fakeGateway
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, migrations.AutoMigrate(db))

	cfg := config.Default()
	cfg.Cashfree.WebhookSecret = testWebhookSecret
	gw := newFakeGateway()
	return &harness{
		db:      db,
		gateway: gw,
		svc: New(Deps{
			DB:      db,
			Config:  cfg,
			Tokens:  fakeTokens{},
			Gateway: gw,
		}),
	}
}

func (h *harness) user(t *testing.T, email string) *models.User {
	return h.insertUser(t, models.User{Name: "Customer", Email: email, Role: models.RoleUser, ApprovalStatus: models.ApprovalApproved})
}

func (h *harness) vendor(t *testing.T, email, category string, status models.ApprovalStatus) *models.User {
	return h.insertUser(t, models.User{
		Name:            "Vendor",
		Email:           email,
		Role:            models.RoleVendor,
		ApprovalStatus:  status,
		BusinessName:    "Sparkle " + category,
		BusinessAddress: "12 Market Road",
		ServiceCategory: category,
	})
}

func (h *harness) admin(t *testing.T, email string) *models.User {
	return h.insertUser(t, models.User{Name: "Admin", Email: email, Role: models.RoleAdmin, ApprovalStatus: models.ApprovalApproved})
}

func (h *harness) insertUser(t *testing.T, u models.User) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)
	u.PasswordHash = string(hash)
	require.NoError(t, h.db.Create(&u).Error)
	return &u
}

func (h *harness) booking(t *testing.T, userID uint, vendorID *uint, slot string) *models.Booking {
	t.Helper()
	b, err := h.svc.Bookings.Create(context.Background(), userID, CreateBookingInput{
		ServiceName: "Deep Cleaning",
		Date:        futureDate(),
		TimeSlot:    slot,
		Location:    "Flat 4B",
		Price:       799,
		PaymentMode: models.PaymentPrepaid,
		VendorID:    vendorID,
	})
	require.NoError(t, err)
	return b
}

func futureDate() string {
	return time.Now().AddDate(0, 0, 7).Format(DateLayout)
}

func requireCode(t *testing.T, err error, code apperrors.Code, status int) *apperrors.AppError {
	t.Helper()
	require.Error(t, err)
	appErr, ok := apperrors.As(err)
	require.True(t, ok, "expected AppError, got %v", err)
	require.Equal(t, code, appErr.Code, appErr.Message)
	require.Equal(t, status, appErr.HTTPStatus)
	return appErr
}

func ptr[T any](v T) *T {
	return &v
}
