package services

import (
	"context"
	"io"
	"time"

	"home-services-api/apperrors"
	"home-services-api/models"

	"github.com/gocarina/gocsv"
	"github.com/spf13/cast"
	"gorm.io/gorm"
)

// exportLimit caps a single CSV export.
const exportLimit = 10000

type AdminService struct {
	db *gorm.DB
}

type Stats struct {
	UsersByRole         map[models.UserRole]int64      `json:"users_by_role"`
	BookingsByStatus    map[models.BookingStatus]int64 `json:"bookings_by_status"`
	PendingVendors      int64                          `json:"pending_vendors"`
	OpenOthersRequests  int64                          `json:"open_others_requests"`
	Revenue             float64                        `json:"revenue"`
	WalletTopUps        float64                        `json:"wallet_top_ups"`
	PendingPaymentCount int64                          `json:"pending_payment_orders"`
}

type groupCount struct {
	Name  string
	Count int64
}

func (s *AdminService) Stats(ctx context.Context) (*Stats, error) {
	db := s.db.WithContext(ctx)
	stats := &Stats{
		UsersByRole:      map[models.UserRole]int64{},
		BookingsByStatus: map[models.BookingStatus]int64{},
	}

	var rows []groupCount
	if err := db.Model(&models.User{}).Select("role AS name, COUNT(*) AS count").Group("role").Scan(&rows).Error; err != nil {
		return nil, apperrors.Internal(err)
	}
	for _, r := range rows {
		stats.UsersByRole[models.UserRole(r.Name)] = r.Count
	}

	rows = nil
	if err := db.Model(&models.Booking{}).Select("status AS name, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		return nil, apperrors.Internal(err)
	}
	for _, r := range rows {
		stats.BookingsByStatus[models.BookingStatus(r.Name)] = r.Count
	}

	err := db.Model(&models.User{}).
		Where("role = ? AND approval_status = ?", models.RoleVendor, models.ApprovalPending).
		Count(&stats.PendingVendors).Error
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	err = db.Model(&models.OthersRequest{}).
		Where("status NOT IN ?", []models.RequestStatus{models.RequestCompleted, models.RequestCancelled}).
		Count(&stats.OpenOthersRequests).Error
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	err = db.Model(&models.PaymentOrder{}).Where("status = ?", models.OrderPending).Count(&stats.PendingPaymentCount).Error
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	if stats.Revenue, err = s.paidTotal(ctx, models.PurposeBooking); err != nil {
		return nil, err
	}
	if stats.WalletTopUps, err = s.paidTotal(ctx, models.PurposeTopUp); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *AdminService) paidTotal(ctx context.Context, purpose models.PaymentPurpose) (float64, error) {
	var total float64
	err := s.db.WithContext(ctx).Model(&models.PaymentOrder{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("status = ? AND purpose = ?", models.OrderPaid, purpose).
		Scan(&total).Error
	if err != nil {
		return 0, apperrors.Internal(err)
	}
	return total, nil
}

func (s *AdminService) Users(ctx context.Context, role models.UserRole, page Page) ([]models.User, int64, error) {
	page = page.Normalize()
	q := s.db.WithContext(ctx).Model(&models.User{})
	if role != "" {
		q = q.Where("role = ?", role)
	}
	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Internal(err)
	}
	users := []models.User{}
	if err := q.Order("created_at desc, id desc").Offset(page.offset()).Limit(page.Size).Find(&users).Error; err != nil {
		return nil, 0, apperrors.Internal(err)
	}
	return users, total, nil
}

type bookingRow struct {
	ID            uint    `csv:"id"`
	CreatedAt     string  `csv:"created_at"`
	UserID        uint    `csv:"user_id"`
	Customer      string  `csv:"customer"`
	VendorID      string  `csv:"vendor_id"`
	ServiceName   string  `csv:"service_name"`
	Date          string  `csv:"date"`
	TimeSlot      string  `csv:"time_slot"`
	Location      string  `csv:"location"`
	Status        string  `csv:"status"`
	Price         float64 `csv:"price"`
	PaymentMode   string  `csv:"payment_mode"`
	PaymentStatus string  `csv:"payment_status"`
}

// ExportBookings writes bookings matching f as CSV. Paging in f is ignored.
func (s *AdminService) ExportBookings(ctx context.Context, w io.Writer, f BookingFilter) error {
	q := s.db.WithContext(ctx).Preload("User")
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	if f.VendorID != nil {
		q = q.Where("vendor_id = ?", *f.VendorID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Date != "" {
		q = q.Where("date = ?", f.Date)
	}
	var bookings []models.Booking
	if err := q.Order("id asc").Limit(exportLimit).Find(&bookings).Error; err != nil {
		return apperrors.Internal(err)
	}

	rows := make([]bookingRow, 0, len(bookings))
	for _, b := range bookings {
		row := bookingRow{
			ID:            b.ID,
			CreatedAt:     b.CreatedAt.UTC().Format(time.RFC3339),
			UserID:        b.UserID,
			ServiceName:   b.ServiceName,
			Date:          b.Date,
			TimeSlot:      b.TimeSlot,
			Location:      b.Location,
			Status:        string(b.Status),
			Price:         b.Price,
			PaymentMode:   string(b.PaymentMode),
			PaymentStatus: string(b.PaymentStatus),
		}
		if b.User != nil {
			row.Customer = b.User.Email
		}
		if b.VendorID != nil {
			row.VendorID = cast.ToString(*b.VendorID)
		}
		rows = append(rows, row)
	}
	return gocsv.Marshal(&rows, w)
}

type transactionRow struct {
	ID      uint    `csv:"id"`
	Date    string  `csv:"date"`
	UserID  uint    `csv:"user_id"`
	Type    string  `csv:"type"`
	Tag     string  `csv:"tag"`
	Title   string  `csv:"title"`
	Amount  float64 `csv:"amount"`
	OrderID string  `csv:"order_id"`
}

// ExportTransactions writes the ledger as CSV, optionally for one user.
func (s *AdminService) ExportTransactions(ctx context.Context, w io.Writer, userID *uint) error {
	q := s.db.WithContext(ctx)
	if userID != nil {
		q = q.Where("user_id = ?", *userID)
	}
	var txns []models.Transaction
	if err := q.Order("id asc").Limit(exportLimit).Find(&txns).Error; err != nil {
		return apperrors.Internal(err)
	}

	rows := make([]transactionRow, 0, len(txns))
	for _, t := range txns {
		row := transactionRow{
			ID:     t.ID,
			Date:   t.Date.UTC().Format(time.RFC3339),
			UserID: t.UserID,
			Type:   string(t.Type),
			Tag:    t.Tag,
			Title:  t.Title,
			Amount: t.Amount,
		}
		if t.OrderID != nil {
			row.OrderID = *t.OrderID
		}
		rows = append(rows, row)
	}
	return gocsv.Marshal(&rows, w)
}
