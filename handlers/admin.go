package handlers

import (
	"fmt"
	"net/http"
	"time"

	"home-services-api/apperrors"
	"home-services-api/models"
	"home-services-api/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RejectVendorRequest struct {
	Reason string `json:"reason"`
}

type AdminUpdateRequest struct {
	Status     *models.RequestStatus `json:"status" binding:"omitempty,oneof=REVIEWED IN_PROGRESS COMPLETED CANCELLED"`
	AdminNotes *string               `json:"admin_notes"`
}

// AdminStats returns the dashboard aggregates (admin only)
func (h *Handler) AdminStats(c *gin.Context) {
	stats, err := h.svc.Admin.Stats(c.Request.Context())
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

// AdminGetAllUsers returns users, optionally by ?role= (admin only)
func (h *Handler) AdminGetAllUsers(c *gin.Context) {
	page := pageFrom(c)
	users, total, err := h.svc.Admin.Users(c.Request.Context(), models.UserRole(c.Query("role")), page)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	paged(c, "users", users, total, page)
}

// AdminGetVendors lists vendor accounts, optionally by ?status=PENDING|APPROVED|REJECTED
func (h *Handler) AdminGetVendors(c *gin.Context) {
	page := pageFrom(c)
	vendors, total, err := h.svc.Vendors.AdminList(c.Request.Context(), models.ApprovalStatus(c.Query("status")), page)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	paged(c, "vendors", vendors, total, page)
}

func (h *Handler) AdminGetVendor(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	vendor, err := h.svc.Vendors.Get(c.Request.Context(), id)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vendor": vendor})
}

func (h *Handler) AdminApproveVendor(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	vendor, err := h.svc.Vendors.Approve(c.Request.Context(), id)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Vendor approved", "vendor": vendor})
}

func (h *Handler) AdminRejectVendor(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req RejectVendorRequest
	// the body is optional
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	vendor, err := h.svc.Vendors.Reject(c.Request.Context(), id, req.Reason)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Vendor rejected", "vendor": vendor})
}

// AdminGetAllBookings returns bookings filtered by status, user, vendor or date
func (h *Handler) AdminGetAllBookings(c *gin.Context) {
	filter, ok := bookingFilter(c)
	if !ok {
		return
	}
	bookings, total, err := h.svc.Bookings.List(c.Request.Context(), filter)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	paged(c, "bookings", bookings, total, filter.Page)
}

func (h *Handler) AdminExportBookings(c *gin.Context) {
	filter, ok := bookingFilter(c)
	if !ok {
		return
	}
	csvAttachment(c, "bookings")
	if err := h.svc.Admin.ExportBookings(c.Request.Context(), c.Writer, filter); err != nil {
		exportFailed(c, err)
	}
}

func (h *Handler) AdminExportTransactions(c *gin.Context) {
	userID, ok := queryID(c, "user_id")
	if !ok {
		return
	}
	csvAttachment(c, "transactions")
	if err := h.svc.Admin.ExportTransactions(c.Request.Context(), c.Writer, userID); err != nil {
		exportFailed(c, err)
	}
}

// AdminReconcilePayments runs the pending-order reconciliation on demand
func (h *Handler) AdminReconcilePayments(c *gin.Context) {
	report, err := h.svc.Payments.ReconcilePending(c.Request.Context())
	if err != nil {
		apperrors.Respond(c, apperrors.Internal(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": report})
}

func (h *Handler) AdminGetOthersRequests(c *gin.Context) {
	page := pageFrom(c)
	reqs, total, err := h.svc.Requests.AdminList(c.Request.Context(), models.RequestStatus(c.Query("status")), page)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	paged(c, "requests", reqs, total, page)
}

// AdminUpdateOthersRequest moves a request along its workflow and/or sets notes
func (h *Handler) AdminUpdateOthersRequest(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req AdminUpdateRequest
	if !bindJSON(c, &req) {
		return
	}
	updated, err := h.svc.Requests.AdminUpdate(c.Request.Context(), id, req.Status, req.AdminNotes)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Request updated", "request": updated})
}

func bookingFilter(c *gin.Context) (services.BookingFilter, bool) {
	userID, ok := queryID(c, "user_id")
	if !ok {
		return services.BookingFilter{}, false
	}
	vendorID, ok := queryID(c, "vendor_id")
	if !ok {
		return services.BookingFilter{}, false
	}
	return services.BookingFilter{
		UserID:   userID,
		VendorID: vendorID,
		Status:   models.BookingStatus(c.Query("status")),
		Date:     c.Query("date"),
		Page:     pageFrom(c),
	}, true
}

func csvAttachment(c *gin.Context, name string) {
	filename := fmt.Sprintf("%s-%s.csv", name, time.Now().Format("20060102-150405"))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Status(http.StatusOK)
}

// exportFailed reports an export error as JSON unless rows were already streamed.
func exportFailed(c *gin.Context, err error) {
	if c.Writer.Written() {
		zap.L().Error("export aborted mid-stream", zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.Abort()
		return
	}
	c.Writer.Header().Del("Content-Disposition")
	c.Writer.Header().Set("Content-Type", "application/json; charset=utf-8")
	apperrors.Respond(c, err)
}
