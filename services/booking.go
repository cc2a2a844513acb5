package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"home-services-api/apperrors"
	"home-services-api/metrics"
	"home-services-api/models"
	"home-services-api/statemachine"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	DateLayout          = "2006-01-02"
	PollIntervalSeconds = 10
)

type BookingService struct {
	db     *gorm.DB
	notify *NotificationService
	now    func() time.Time
}

type CreateBookingInput struct {
	ServiceID     *uint
	CategoryID    *uint
	ServiceName   string
	Date          string
	TimeSlot      string
	Location      string
	Price         float64
	PaymentMode   models.PaymentMode
	VendorID      *uint
	AttachmentURL string
	Notes         string
}

// Create inserts a PENDING booking. The vendor/date/slot uniqueness is
// decided by the database; a losing insert maps to VENDOR_SLOT_TAKEN.
func (s *BookingService) Create(ctx context.Context, userID uint, in CreateBookingInput) (*models.Booking, error) {
	if err := s.fillFromCatalog(ctx, &in); err != nil {
		return nil, err
	}
	if err := s.validate(in); err != nil {
		return nil, err
	}
	if in.VendorID != nil {
		if err := s.checkVendor(ctx, *in.VendorID); err != nil {
			return nil, err
		}
	}

	booking := models.Booking{
		UserID:        userID,
		VendorID:      in.VendorID,
		ServiceID:     in.ServiceID,
		CategoryID:    in.CategoryID,
		ServiceName:   strings.TrimSpace(in.ServiceName),
		Date:          in.Date,
		TimeSlot:      CanonicalSlot(in.TimeSlot),
		Location:      strings.TrimSpace(in.Location),
		Status:        models.BookingPending,
		Price:         in.Price,
		PaymentMode:   in.PaymentMode,
		PaymentStatus: models.PaymentUnpaid,
		AttachmentURL: in.AttachmentURL,
		Notes:         in.Notes,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&booking).Error; err != nil {
			return err
		}
		return tx.Create(&models.BookingStatusHistory{
			BookingID: booking.ID,
			ToStatus:  models.BookingPending,
			ChangedBy: userID,
			Actor:     string(statemachine.ActorUser),
			Note:      "Booking created",
		}).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			metrics.SlotConflicts.Inc()
			return nil, slotTaken(booking.VendorID, booking.Date, booking.TimeSlot)
		}
		return nil, apperrors.Internal(err)
	}

	metrics.BookingsCreated.WithLabelValues(string(booking.PaymentMode)).Inc()
	zap.S().Infow("booking created",
		"booking_id", booking.ID, "user_id", userID, "vendor_id", booking.VendorID,
		"date", booking.Date, "time_slot", booking.TimeSlot)

	if booking.VendorID != nil {
		s.notify.Notify(ctx, *booking.VendorID, "New booking request",
			fmt.Sprintf("%s on %s (%s) at %s.", booking.ServiceName, booking.Date, booking.TimeSlot, booking.Location),
			KindBooking)
	}
	return &booking, nil
}

func (s *BookingService) fillFromCatalog(ctx context.Context, in *CreateBookingInput) error {
	if in.ServiceID == nil {
		return nil
	}
	var item models.ServiceItem
	if err := s.db.WithContext(ctx).Where("is_active = ?", true).First(&item, *in.ServiceID).Error; err != nil {
		return findOr404(err, "Service")
	}
	if strings.TrimSpace(in.ServiceName) == "" {
		in.ServiceName = item.Name
	}
	if in.Price == 0 {
		in.Price = item.Price
	}
	if in.CategoryID == nil {
		var sub models.SubCategory
		if err := s.db.WithContext(ctx).Select("id", "category_id").First(&sub, item.SubCategoryID).Error; err == nil {
			in.CategoryID = &sub.CategoryID
		}
	}
	return nil
}

func (s *BookingService) validate(in CreateBookingInput) error {
	fields := map[string]string{}
	if strings.TrimSpace(in.ServiceName) == "" {
		fields["service_name"] = "is required"
	}
	if strings.TrimSpace(in.TimeSlot) == "" {
		fields["time_slot"] = "is required"
	}
	if strings.TrimSpace(in.Location) == "" {
		fields["location"] = "is required"
	}
	if in.Price < 0 {
		fields["price"] = "must not be negative"
	}
	switch in.PaymentMode {
	case models.PaymentPrepaid, models.PaymentPostpaid:
	default:
		fields["payment_mode"] = "must be one of: PREPAID POSTPAID"
	}
	day, err := time.ParseInLocation(DateLayout, in.Date, time.Local)
	if err != nil {
		fields["date"] = "must be a YYYY-MM-DD date"
	} else {
		now := s.now()
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
		if day.Before(today) {
			fields["date"] = "must not be in the past"
		}
	}
	if len(fields) > 0 {
		return apperrors.Validation("Request validation failed").WithDetails(map[string]any{"fields": fields})
	}
	return nil
}

func (s *BookingService) checkVendor(ctx context.Context, vendorID uint) error {
	var vendor models.User
	err := s.db.WithContext(ctx).Select("id", "role", "approval_status").First(&vendor, vendorID).Error
	if err != nil && !isNotFound(err) {
		return apperrors.Internal(err)
	}
	if err != nil || !vendor.IsListed() {
		return apperrors.Conflict(apperrors.CodeVendorUnavailable, "The selected vendor is not available for bookings").
			WithDetails(map[string]any{"vendor_id": vendorID})
	}
	return nil
}

func slotTaken(vendorID *uint, date, slot string) *apperrors.AppError {
	details := map[string]any{"date": date, "time_slot": slot}
	if vendorID != nil {
		details["vendor_id"] = *vendorID
	}
	return apperrors.Conflict(apperrors.CodeVendorSlotTaken,
		"This vendor is already booked for the selected date and time slot").WithDetails(details)
}

type BookingFilter struct {
	UserID   *uint
	VendorID *uint
	Status   models.BookingStatus
	Date     string
	Page     Page
}

// List returns bookings matching f, newest first.
func (s *BookingService) List(ctx context.Context, f BookingFilter) ([]models.Booking, int64, error) {
	page := f.Page.Normalize()
	q := s.db.WithContext(ctx).Model(&models.Booking{})
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
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Internal(err)
	}
	bookings := []models.Booking{}
	err := q.Preload("User").Preload("Vendor").
		Order("created_at desc, id desc").
		Offset(page.offset()).Limit(page.Size).
		Find(&bookings).Error
	if err != nil {
		return nil, 0, apperrors.Internal(err)
	}
	return bookings, total, nil
}

// ListAvailable shows unassigned PENDING bookings a vendor may claim,
// restricted to the vendor's service category when the booking has one.
func (s *BookingService) ListAvailable(ctx context.Context, vendorID uint) ([]models.Booking, error) {
	var vendor models.User
	if err := s.db.WithContext(ctx).First(&vendor, vendorID).Error; err != nil {
		return nil, findOr404(err, "Vendor")
	}
	q := s.db.WithContext(ctx).Preload("User").
		Where("vendor_id IS NULL AND status = ?", models.BookingPending)
	q = inCategoryOf(s.db, q, &vendor)
	bookings := []models.Booking{}
	if err := q.Order("date asc, created_at asc").Find(&bookings).Error; err != nil {
		return nil, apperrors.Internal(err)
	}
	return bookings, nil
}

// inCategoryOf narrows q to bookings in the vendor's service category or
// with no category at all.
func inCategoryOf(db, q *gorm.DB, vendor *models.User) *gorm.DB {
	category := strings.TrimSpace(vendor.ServiceCategory)
	if category == "" {
		return q
	}
	matching := db.Model(&models.Category{}).Select("id").
		Where("slug = ? OR LOWER(name) = ?", Slugify(category), strings.ToLower(category))
	return q.Where("category_id IS NULL OR category_id IN (?)", matching)
}

// Get returns a booking with its history if the viewer may see it.
func (s *BookingService) Get(ctx context.Context, id uint, viewer Viewer) (*models.Booking, error) {
	var booking models.Booking
	err := s.db.WithContext(ctx).
		Preload("User").
		Preload("Vendor").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB { return db.Order("created_at asc, id asc") }).
		First(&booking, id).Error
	if err != nil {
		return nil, findOr404(err, "Booking")
	}
	if err := canView(&booking, viewer); err != nil {
		return nil, err
	}
	return &booking, nil
}

func canView(b *models.Booking, viewer Viewer) error {
	switch viewer.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleVendor:
		if b.VendorID == nil && b.Status == models.BookingPending {
			return nil
		}
		if b.VendorID != nil && *b.VendorID == viewer.ID {
			return nil
		}
		return apperrors.Forbidden("This booking is not assigned to you")
	default:
		if b.UserID == viewer.ID {
			return nil
		}
		return apperrors.Forbidden("This booking does not belong to you")
	}
}

// Tracking is the polling view of a booking.
type Tracking struct {
	BookingID            uint                          `json:"booking_id"`
	Status               models.BookingStatus          `json:"status"`
	PaymentStatus        models.PaymentStatus          `json:"payment_status"`
	VendorID             *uint                         `json:"vendor_id"`
	VendorName           string                        `json:"vendor_name,omitempty"`
	Date                 string                        `json:"date"`
	TimeSlot             string                        `json:"time_slot"`
	NextStatuses         []models.BookingStatus        `json:"next_statuses"`
	EstimatedTimeMinutes *int                          `json:"estimated_time_minutes"`
	PollIntervalSeconds  int                           `json:"poll_interval_seconds"`
	UpdatedAt            time.Time                     `json:"updated_at"`
	History              []models.BookingStatusHistory `json:"history"`
}

func (s *BookingService) Track(ctx context.Context, id uint, viewer Viewer) (*Tracking, error) {
	booking, err := s.Get(ctx, id, viewer)
	if err != nil {
		return nil, err
	}
	t := &Tracking{
		BookingID:           booking.ID,
		Status:              booking.Status,
		PaymentStatus:       booking.PaymentStatus,
		VendorID:            booking.VendorID,
		Date:                booking.Date,
		TimeSlot:            booking.TimeSlot,
		NextStatuses:        statemachine.Booking.ValidTransitionsFor(booking.Status, statemachine.ActorFor(viewer.Role)),
		PollIntervalSeconds: PollIntervalSeconds,
		UpdatedAt:           booking.UpdatedAt,
		History:             booking.StatusHistory,
	}
	if booking.Vendor != nil {
		t.VendorName = booking.Vendor.Name
		if booking.Vendor.BusinessName != "" {
			t.VendorName = booking.Vendor.BusinessName
		}
	}
	t.EstimatedTimeMinutes = EstimateMinutes(booking.Status, booking.Date, booking.TimeSlot, s.now())
	return t, nil
}

var slotLayouts = []string{"15:04", "3:04 PM", "3:04PM", "3 PM", "3PM"}

// EstimateMinutes returns the minutes until the slot starts: nil for terminal
// states or an unreadable slot, 0 once the slot is due or the job is running.
func EstimateMinutes(status models.BookingStatus, date, slot string, now time.Time) *int {
	if statemachine.Booking.IsTerminal(status) {
		return nil
	}
	zero := 0
	if status == models.BookingActive {
		return &zero
	}
	start, ok := SlotStart(date, slot, now.Location())
	if !ok {
		return nil
	}
	if !start.After(now) {
		return &zero
	}
	minutes := int(math.Ceil(start.Sub(now).Minutes()))
	return &minutes
}

// SlotStart parses the start of a slot such as "10:00 AM - 12:00 PM".
func SlotStart(date, slot string, loc *time.Location) (time.Time, bool) {
	day, err := time.ParseInLocation(DateLayout, date, loc)
	if err != nil {
		return time.Time{}, false
	}
	t, ok := parseClock(slotParts(slot)[0])
	if !ok {
		return time.Time{}, false
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, loc), true
}

// CanonicalSlot spells a slot the way it is stored, so the vendor slot index
// treats "10:00 AM - 12:00 PM" and "10:00 am-12:00 pm" as the same slot
// ("10:00-12:00"). Slots that are not clock times keep their text with
// whitespace collapsed and letters upper-cased.
func CanonicalSlot(slot string) string {
	parts := slotParts(slot)
	if len(parts) <= 2 {
		clocks := make([]string, 0, len(parts))
		for _, p := range parts {
			t, ok := parseClock(p)
			if !ok {
				break
			}
			clocks = append(clocks, t.Format("15:04"))
		}
		if len(clocks) == len(parts) {
			return strings.Join(clocks, "-")
		}
	}
	return strings.Join(strings.Fields(strings.ToUpper(slot)), " ")
}

// slotParts splits a slot into its start and, when present, end.
func slotParts(slot string) []string {
	s := strings.ToUpper(strings.Join(strings.Fields(slot), " "))
	s = strings.NewReplacer("–", "-", " TO ", "-").Replace(s)
	parts := strings.Split(s, "-")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parseClock(s string) (time.Time, bool) {
	for _, layout := range slotLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// UpdateStatus moves a booking along the state machine on behalf of viewer.
// A vendor accepting an unassigned booking claims it in the same statement.
func (s *BookingService) UpdateStatus(ctx context.Context, id uint, viewer Viewer, to models.BookingStatus, note string) (*models.Booking, error) {
	actor := statemachine.ActorFor(viewer.Role)

	var booking models.Booking
	if err := s.db.WithContext(ctx).First(&booking, id).Error; err != nil {
		return nil, findOr404(err, "Booking")
	}

	var claimant *models.User
	claim := false
	switch actor {
	case statemachine.ActorUser:
		if booking.UserID != viewer.ID {
			return nil, apperrors.Forbidden("This booking does not belong to you")
		}
	case statemachine.ActorVendor:
		switch {
		case booking.VendorID != nil && *booking.VendorID == viewer.ID:
		case booking.VendorID == nil && booking.Status == models.BookingPending && to == models.BookingAccepted:
			claim = true
		default:
			return nil, apperrors.Forbidden("This booking is not assigned to you")
		}
	}
	if claim {
		claimant = &models.User{}
		if err := s.db.WithContext(ctx).First(claimant, viewer.ID).Error; err != nil {
			return nil, findOr404(err, "Vendor")
		}
		var visible int64
		err := inCategoryOf(s.db, s.db.WithContext(ctx).Model(&models.Booking{}).Where("id = ?", booking.ID), claimant).
			Count(&visible).Error
		if err != nil {
			return nil, apperrors.Internal(err)
		}
		if visible == 0 {
			return nil, apperrors.Forbidden("This booking is outside your service category")
		}
	}

	if err := statemachine.Booking.CanTransition(booking.Status, to, actor); err != nil {
		return nil, invalidTransition(err, booking.Status, to, statemachine.Booking.ValidTransitionsFor(booking.Status, actor))
	}

	if note == "" {
		note = fmt.Sprintf("Status changed to %s by %s", to, actor)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{"status": to}
		q := tx.Model(&models.Booking{}).Where("id = ? AND status = ?", booking.ID, booking.Status)
		if claim {
			updates["vendor_id"] = viewer.ID
			q = inCategoryOf(tx, q.Where("vendor_id IS NULL"), claimant)
		}
		res := q.Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.Conflict(apperrors.CodeStaleState,
				"Booking was changed by someone else, reload and retry").
				WithDetails(map[string]any{"expected_status": booking.Status})
		}
		return tx.Create(&models.BookingStatusHistory{
			BookingID:  booking.ID,
			FromStatus: booking.Status,
			ToStatus:   to,
			ChangedBy:  viewer.ID,
			Actor:      string(actor),
			Note:       note,
		}).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			metrics.SlotConflicts.Inc()
			vendorID := viewer.ID
			return nil, slotTaken(&vendorID, booking.Date, booking.TimeSlot)
		}
		return nil, asAppError(err)
	}

	metrics.BookingTransitions.WithLabelValues(string(to), string(actor)).Inc()
	zap.S().Infow("booking status changed",
		"booking_id", booking.ID, "from", booking.Status, "to", to, "actor", actor, "by", viewer.ID)

	if claim {
		booking.VendorID = &viewer.ID
	}
	s.announce(ctx, &booking, actor, to)
	return s.Get(ctx, booking.ID, Viewer{Role: models.RoleAdmin})
}

// Cancel is the customer-facing cancellation.
func (s *BookingService) Cancel(ctx context.Context, id, userID uint) (*models.Booking, error) {
	return s.UpdateStatus(ctx, id, Viewer{ID: userID, Role: models.RoleUser}, models.BookingCancelled, "Cancelled by customer")
}

func (s *BookingService) announce(ctx context.Context, b *models.Booking, actor statemachine.Actor, to models.BookingStatus) {
	title := fmt.Sprintf("Booking #%d is now %s", b.ID, to)
	body := fmt.Sprintf("%s on %s (%s).", b.ServiceName, b.Date, b.TimeSlot)
	if actor != statemachine.ActorUser {
		s.notify.Notify(ctx, b.UserID, title, body, KindBooking)
	}
	if actor != statemachine.ActorVendor && b.VendorID != nil {
		s.notify.Notify(ctx, *b.VendorID, title, body, KindBooking)
	}
}
