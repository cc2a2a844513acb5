package handlers

import (
	"net/http"

	"home-services-api/apperrors"
	"home-services-api/middleware"
	"home-services-api/models"
	"home-services-api/services"

	"github.com/gin-gonic/gin"
)

type CreateBookingRequest struct {
	ServiceID     *uint              `json:"service_id"`
	CategoryID    *uint              `json:"category_id"`
	ServiceName   string             `json:"service_name" binding:"required_without=ServiceID"`
	Date          string             `json:"date" binding:"required,slot_date"`
	TimeSlot      string             `json:"time_slot" binding:"required"`
	Location      string             `json:"location" binding:"required"`
	Price         float64            `json:"price" binding:"gte=0"`
	PaymentMode   models.PaymentMode `json:"payment_mode" binding:"required,oneof=PREPAID POSTPAID"`
	VendorID      *uint              `json:"vendor_id"`
	AttachmentURL string             `json:"attachment_url" binding:"omitempty,url"`
	Notes         string             `json:"notes"`
}

type UpdateBookingStatusRequest struct {
	Status models.BookingStatus `json:"status" binding:"required,oneof=ACCEPTED ACTIVE COMPLETED CANCELLED"`
	Note   string               `json:"note"`
}

// CreateBooking places a PENDING booking for the caller
func (h *Handler) CreateBooking(c *gin.Context) {
	var req CreateBookingRequest
	if !bindJSON(c, &req) {
		return
	}
	booking, err := h.svc.Bookings.Create(c.Request.Context(), middleware.GetUserID(c), services.CreateBookingInput{
		ServiceID:     req.ServiceID,
		CategoryID:    req.CategoryID,
		ServiceName:   req.ServiceName,
		Date:          req.Date,
		TimeSlot:      req.TimeSlot,
		Location:      req.Location,
		Price:         req.Price,
		PaymentMode:   req.PaymentMode,
		VendorID:      req.VendorID,
		AttachmentURL: req.AttachmentURL,
		Notes:         req.Notes,
	})
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Booking created", "booking": booking})
}

// GetMyBookings lists the caller's bookings, optionally by ?status=
func (h *Handler) GetMyBookings(c *gin.Context) {
	userID := middleware.GetUserID(c)
	page := pageFrom(c)
	bookings, total, err := h.svc.Bookings.List(c.Request.Context(), services.BookingFilter{
		UserID: &userID,
		Status: models.BookingStatus(c.Query("status")),
		Page:   page,
	})
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	paged(c, "bookings", bookings, total, page)
}

// GetBooking returns one booking with its status history
func (h *Handler) GetBooking(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	booking, err := h.svc.Bookings.Get(c.Request.Context(), id, viewer(c))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": booking})
}

// TrackBooking is the polling endpoint; clients refresh every poll_interval_seconds.
func (h *Handler) TrackBooking(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	tracking, err := h.svc.Bookings.Track(c.Request.Context(), id, viewer(c))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, gin.H{"tracking": tracking})
}

// CancelBooking lets a customer cancel before the job starts
func (h *Handler) CancelBooking(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	booking, err := h.svc.Bookings.Cancel(c.Request.Context(), id, middleware.GetUserID(c))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Booking cancelled", "booking": booking})
}

// GetVendorBookings lists bookings assigned to the calling vendor
func (h *Handler) GetVendorBookings(c *gin.Context) {
	vendorID := middleware.GetUserID(c)
	page := pageFrom(c)
	bookings, total, err := h.svc.Bookings.List(c.Request.Context(), services.BookingFilter{
		VendorID: &vendorID,
		Status:   models.BookingStatus(c.Query("status")),
		Date:     c.Query("date"),
		Page:     page,
	})
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	paged(c, "bookings", bookings, total, page)
}

// GetAvailableBookings lists unassigned bookings the vendor may accept
func (h *Handler) GetAvailableBookings(c *gin.Context) {
	bookings, err := h.svc.Bookings.ListAvailable(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(bookings), "bookings": bookings})
}

// UpdateBookingStatus drives the booking state machine as the calling vendor or admin
func (h *Handler) UpdateBookingStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req UpdateBookingStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	booking, err := h.svc.Bookings.UpdateStatus(c.Request.Context(), id, viewer(c), req.Status, req.Note)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":    "Booking status updated",
		"booking":    booking,
		"new_status": booking.Status,
	})
}
