package services

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"home-services-api/apperrors"
	"home-services-api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateBookingRejectsDoubleBookedSlot(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	vendor := h.vendor(t, "v@example.com", "cleaning", models.ApprovalApproved)
	alice := h.user(t, "alice@example.com")
	bob := h.user(t, "bob@example.com")

	in := CreateBookingInput{
		ServiceName: "Deep Cleaning",
		Date:        futureDate(),
		TimeSlot:    "10:00 AM - 12:00 PM",
		Location:    "Flat 4B",
		Price:       799,
		PaymentMode: models.PaymentPostpaid,
		VendorID:    &vendor.ID,
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, userID := range []uint{alice.ID, bob.ID} {
		wg.Add(1)
		go func(i int, userID uint) {
			defer wg.Done()
			_, errs[i] = h.svc.Bookings.Create(ctx, userID, in)
		}(i, userID)
	}
	wg.Wait()

	var failures []error
	for _, err := range errs {
		if err != nil {
			failures = append(failures, err)
		}
	}
	require.Len(t, failures, 1)
	appErr := requireCode(t, failures[0], apperrors.CodeVendorSlotTaken, http.StatusConflict)
	assert.Equal(t, "10:00-12:00", appErr.Details.(map[string]any)["time_slot"])

	var count int64
	require.NoError(t, h.db.Model(&models.Booking{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestSlotSpellingsShareOneVendorSlot(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	vendor := h.vendor(t, "v@example.com", "cleaning", models.ApprovalApproved)
	alice := h.user(t, "alice@example.com")
	bob := h.user(t, "bob@example.com")

	in := CreateBookingInput{
		ServiceName: "Deep Cleaning",
		Date:        futureDate(),
		TimeSlot:    "10:00 AM - 12:00 PM",
		Location:    "Flat 4B",
		Price:       799,
		PaymentMode: models.PaymentPostpaid,
		VendorID:    &vendor.ID,
	}
	first, err := h.svc.Bookings.Create(ctx, alice.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "10:00-12:00", first.TimeSlot)

	for _, slot := range []string{"10:00 am-12:00 pm", " 10:00AM  to 12:00PM", "10 AM – 12 PM", "10:00-12:00"} {
		in.TimeSlot = slot
		_, err := h.svc.Bookings.Create(ctx, bob.ID, in)
		requireCode(t, err, apperrors.CodeVendorSlotTaken, http.StatusConflict)
	}

	in.TimeSlot = "12:00 PM - 2:00 PM"
	_, err = h.svc.Bookings.Create(ctx, bob.ID, in)
	require.NoError(t, err)
}

func TestCanonicalSlot(t *testing.T) {
	cases := map[string]string{
		"10:00 AM - 12:00 PM":   "10:00-12:00",
		"10:00 am-12:00 pm":     "10:00-12:00",
		"2 PM to 4 PM":          "14:00-16:00",
		"9:30":                  "09:30",
		"9 am":                  "09:00",
		"14:00-16:00":           "14:00-16:00",
		"  after   lunch ":      "AFTER LUNCH",
		"morning - afternoon":   "MORNING - AFTERNOON",
		"10:00 - 11:00 - 12:00": "10:00 - 11:00 - 12:00",
	}
	for in, want := range cases {
		assert.Equal(t, want, CanonicalSlot(in), in)
	}
}

func TestCancelledBookingFreesTheSlot(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	vendor := h.vendor(t, "v@example.com", "cleaning", models.ApprovalApproved)
	alice := h.user(t, "alice@example.com")

	first := h.booking(t, alice.ID, &vendor.ID, "09:00")
	_, err := h.svc.Bookings.Cancel(ctx, first.ID, alice.ID)
	require.NoError(t, err)

	second := h.booking(t, alice.ID, &vendor.ID, "09:00")
	assert.NotEqual(t, first.ID, second.ID)
}

func TestCreateBookingRequiresApprovedVendor(t *testing.T) {
	h := newHarness(t)
	pending := h.vendor(t, "p@example.com", "plumbing", models.ApprovalPending)
	alice := h.user(t, "alice@example.com")

	_, err := h.svc.Bookings.Create(context.Background(), alice.ID, CreateBookingInput{
		ServiceName: "Leak fix",
		Date:        futureDate(),
		TimeSlot:    "14:00",
		Location:    "Home",
		PaymentMode: models.PaymentPostpaid,
		VendorID:    &pending.ID,
	})
	requireCode(t, err, apperrors.CodeVendorUnavailable, http.StatusConflict)

	missing := uint(9999)
	_, err = h.svc.Bookings.Create(context.Background(), alice.ID, CreateBookingInput{
		ServiceName: "Leak fix",
		Date:        futureDate(),
		TimeSlot:    "14:00",
		Location:    "Home",
		PaymentMode: models.PaymentPostpaid,
		VendorID:    &missing,
	})
	requireCode(t, err, apperrors.CodeVendorUnavailable, http.StatusConflict)
}

func TestCreateBookingValidation(t *testing.T) {
	h := newHarness(t)
	alice := h.user(t, "alice@example.com")

	_, err := h.svc.Bookings.Create(context.Background(), alice.ID, CreateBookingInput{
		Date:        time.Now().AddDate(0, 0, -2).Format(DateLayout),
		PaymentMode: "CASH",
	})
	appErr := requireCode(t, err, apperrors.CodeValidationFailed, http.StatusBadRequest)
	fields := appErr.Details.(map[string]any)["fields"].(map[string]string)
	assert.Contains(t, fields, "service_name")
	assert.Contains(t, fields, "time_slot")
	assert.Contains(t, fields, "location")
	assert.Equal(t, "must not be in the past", fields["date"])
	assert.Contains(t, fields, "payment_mode")
}

func TestCreateBookingFillsFromCatalog(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice := h.user(t, "alice@example.com")

	cat, err := h.svc.Catalog.CreateCategory(ctx, CatalogInput{Name: ptr("Cleaning")})
	require.NoError(t, err)
	sub, err := h.svc.Catalog.CreateSubCategory(ctx, cat.ID, CatalogInput{Name: ptr("Home")})
	require.NoError(t, err)
	item, err := h.svc.Catalog.CreateService(ctx, sub.ID, CatalogInput{Name: ptr("Sofa Shampoo"), Price: ptr(1299.0)})
	require.NoError(t, err)

	b, err := h.svc.Bookings.Create(ctx, alice.ID, CreateBookingInput{
		ServiceID:   &item.ID,
		Date:        futureDate(),
		TimeSlot:    "11:00",
		Location:    "Home",
		PaymentMode: models.PaymentPrepaid,
	})
	require.NoError(t, err)
	assert.Equal(t, "Sofa Shampoo", b.ServiceName)
	assert.Equal(t, 1299.0, b.Price)
	require.NotNil(t, b.CategoryID)
	assert.Equal(t, cat.ID, *b.CategoryID)
	assert.Equal(t, models.BookingPending, b.Status)
	assert.Equal(t, models.PaymentUnpaid, b.PaymentStatus)
}

func TestBookingLifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	vendor := h.vendor(t, "v@example.com", "cleaning", models.ApprovalApproved)
	alice := h.user(t, "alice@example.com")
	b := h.booking(t, alice.ID, &vendor.ID, "10:00")
	asVendor := Viewer{ID: vendor.ID, Role: models.RoleVendor}

	// the customer cannot accept on the vendor's behalf
	_, err := h.svc.Bookings.UpdateStatus(ctx, b.ID, Viewer{ID: alice.ID, Role: models.RoleUser}, models.BookingAccepted, "")
	requireCode(t, err, apperrors.CodeInvalidTransition, http.StatusUnprocessableEntity)

	for _, to := range []models.BookingStatus{models.BookingAccepted, models.BookingActive, models.BookingCompleted} {
		got, err := h.svc.Bookings.UpdateStatus(ctx, b.ID, asVendor, to, "")
		require.NoError(t, err, to)
		assert.Equal(t, to, got.Status)
	}

	_, err = h.svc.Bookings.UpdateStatus(ctx, b.ID, asVendor, models.BookingCancelled, "")
	appErr := requireCode(t, err, apperrors.CodeInvalidTransition, http.StatusUnprocessableEntity)
	details := appErr.Details.(map[string]any)
	assert.Equal(t, models.BookingCompleted, details["current_status"])
	assert.Empty(t, details["valid_next_states"])

	full, err := h.svc.Bookings.Get(ctx, b.ID, Viewer{ID: alice.ID, Role: models.RoleUser})
	require.NoError(t, err)
	require.Len(t, full.StatusHistory, 4)
	assert.Equal(t, models.BookingPending, full.StatusHistory[0].ToStatus)
	assert.Equal(t, models.BookingCompleted, full.StatusHistory[3].ToStatus)

	var notes int64
	require.NoError(t, h.db.Model(&models.Notification{}).Where("user_id = ?", alice.ID).Count(&notes).Error)
	assert.EqualValues(t, 3, notes)
}

func TestActiveBookingCannotBeCancelled(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	vendor := h.vendor(t, "v@example.com", "cleaning", models.ApprovalApproved)
	alice := h.user(t, "alice@example.com")
	b := h.booking(t, alice.ID, &vendor.ID, "10:00")
	asVendor := Viewer{ID: vendor.ID, Role: models.RoleVendor}

	_, err := h.svc.Bookings.UpdateStatus(ctx, b.ID, asVendor, models.BookingAccepted, "")
	require.NoError(t, err)
	_, err = h.svc.Bookings.UpdateStatus(ctx, b.ID, asVendor, models.BookingActive, "")
	require.NoError(t, err)

	_, err = h.svc.Bookings.Cancel(ctx, b.ID, alice.ID)
	requireCode(t, err, apperrors.CodeInvalidTransition, http.StatusUnprocessableEntity)
}

func TestVendorClaimsUnassignedBooking(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	first := h.vendor(t, "v1@example.com", "cleaning", models.ApprovalApproved)
	second := h.vendor(t, "v2@example.com", "cleaning", models.ApprovalApproved)
	alice := h.user(t, "alice@example.com")
	b := h.booking(t, alice.ID, nil, "10:00")

	available, err := h.svc.Bookings.ListAvailable(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, available, 1)

	got, err := h.svc.Bookings.UpdateStatus(ctx, b.ID, Viewer{ID: first.ID, Role: models.RoleVendor}, models.BookingAccepted, "")
	require.NoError(t, err)
	require.NotNil(t, got.VendorID)
	assert.Equal(t, first.ID, *got.VendorID)

	_, err = h.svc.Bookings.UpdateStatus(ctx, b.ID, Viewer{ID: second.ID, Role: models.RoleVendor}, models.BookingActive, "")
	requireCode(t, err, apperrors.CodeForbidden, http.StatusForbidden)

	available, err = h.svc.Bookings.ListAvailable(ctx, second.ID)
	require.NoError(t, err)
	assert.Empty(t, available)
}

func TestVendorCannotClaimOutsideCategory(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	cleaning := models.Category{Name: "Cleaning", Slug: "cleaning", IsActive: true}
	require.NoError(t, h.db.Create(&cleaning).Error)
	plumber := h.vendor(t, "plumber@example.com", "Plumbing", models.ApprovalApproved)
	cleaner := h.vendor(t, "cleaner@example.com", "Cleaning", models.ApprovalApproved)
	alice := h.user(t, "alice@example.com")
	b := h.booking(t, alice.ID, nil, "10:00")
	require.NoError(t, h.db.Model(b).Update("category_id", cleaning.ID).Error)

	available, err := h.svc.Bookings.ListAvailable(ctx, plumber.ID)
	require.NoError(t, err)
	assert.Empty(t, available)

	_, err = h.svc.Bookings.UpdateStatus(ctx, b.ID, Viewer{ID: plumber.ID, Role: models.RoleVendor}, models.BookingAccepted, "")
	requireCode(t, err, apperrors.CodeForbidden, http.StatusForbidden)

	var stored models.Booking
	require.NoError(t, h.db.First(&stored, b.ID).Error)
	assert.Nil(t, stored.VendorID)
	assert.Equal(t, models.BookingPending, stored.Status)

	got, err := h.svc.Bookings.UpdateStatus(ctx, b.ID, Viewer{ID: cleaner.ID, Role: models.RoleVendor}, models.BookingAccepted, "")
	require.NoError(t, err)
	require.NotNil(t, got.VendorID)
	assert.Equal(t, cleaner.ID, *got.VendorID)
}

func TestClaimIntoTakenSlotConflicts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	vendor := h.vendor(t, "v@example.com", "cleaning", models.ApprovalApproved)
	alice := h.user(t, "alice@example.com")
	h.booking(t, alice.ID, &vendor.ID, "10:00")
	open := h.booking(t, alice.ID, nil, "10:00")

	_, err := h.svc.Bookings.UpdateStatus(ctx, open.ID, Viewer{ID: vendor.ID, Role: models.RoleVendor}, models.BookingAccepted, "")
	requireCode(t, err, apperrors.CodeVendorSlotTaken, http.StatusConflict)
}

func TestGetHidesOtherCustomersBookings(t *testing.T) {
	h := newHarness(t)
	alice := h.user(t, "alice@example.com")
	bob := h.user(t, "bob@example.com")
	b := h.booking(t, alice.ID, nil, "10:00")

	_, err := h.svc.Bookings.Get(context.Background(), b.ID, Viewer{ID: bob.ID, Role: models.RoleUser})
	requireCode(t, err, apperrors.CodeForbidden, http.StatusForbidden)

	_, err = h.svc.Bookings.Get(context.Background(), 4242, Viewer{ID: bob.ID, Role: models.RoleUser})
	requireCode(t, err, apperrors.CodeNotFound, http.StatusNotFound)
}

func TestListBookingsFilters(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	vendor := h.vendor(t, "v@example.com", "cleaning", models.ApprovalApproved)
	alice := h.user(t, "alice@example.com")
	bob := h.user(t, "bob@example.com")
	h.booking(t, alice.ID, &vendor.ID, "09:00")
	h.booking(t, alice.ID, nil, "11:00")
	h.booking(t, bob.ID, &vendor.ID, "13:00")

	mine, total, err := h.svc.Bookings.List(ctx, BookingFilter{UserID: &alice.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, mine, 2)

	assigned, total, err := h.svc.Bookings.List(ctx, BookingFilter{VendorID: &vendor.ID, Page: Page{Number: 1, Size: 1}})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, assigned, 1)
}

func TestTrack(t *testing.T) {
	h := newHarness(t)
	alice := h.user(t, "alice@example.com")
	b := h.booking(t, alice.ID, nil, "10:00 AM - 12:00 PM")

	tracking, err := h.svc.Bookings.Track(context.Background(), b.ID, Viewer{ID: alice.ID, Role: models.RoleUser})
	require.NoError(t, err)
	assert.Equal(t, PollIntervalSeconds, tracking.PollIntervalSeconds)
	assert.Equal(t, models.BookingPending, tracking.Status)
	assert.Equal(t, []models.BookingStatus{models.BookingCancelled}, tracking.NextStatuses)
	require.NotNil(t, tracking.EstimatedTimeMinutes)
	assert.Greater(t, *tracking.EstimatedTimeMinutes, 0)
}

func TestEstimateMinutes(t *testing.T) {
	now := time.Date(2030, 1, 15, 9, 0, 0, 0, time.UTC)
	cases := []struct {
		name   string
		status models.BookingStatus
		date   string
		slot   string
		want   *int
	}{
		{"range with meridiem", models.BookingPending, "2030-01-15", "10:00 AM - 12:00 PM", ptr(60)},
		{"24 hour", models.BookingAccepted, "2030-01-15", "09:30-11:00", ptr(30)},
		{"hour only", models.BookingPending, "2030-01-16", "9 AM", ptr(24 * 60)},
		{"slot already due", models.BookingAccepted, "2030-01-15", "08:00", ptr(0)},
		{"job running", models.BookingActive, "2030-01-20", "10:00", ptr(0)},
		{"completed", models.BookingCompleted, "2030-01-20", "10:00", nil},
		{"cancelled", models.BookingCancelled, "2030-01-20", "10:00", nil},
		{"unreadable slot", models.BookingPending, "2030-01-20", "morning", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := EstimateMinutes(tc.status, tc.date, tc.slot, now)
			if tc.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tc.want, *got)
		})
	}
}
