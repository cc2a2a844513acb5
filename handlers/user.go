package handlers

import (
	"net/http"

	"home-services-api/apperrors"
	"home-services-api/middleware"
	"home-services-api/services"

	"github.com/gin-gonic/gin"
)

type TopUpRequest struct {
	Amount    float64 `json:"amount" binding:"required,gt=0"`
	ReturnURL string  `json:"return_url" binding:"omitempty,url"`
}

type ConfirmTopUpRequest struct {
	OrderID string `json:"order_id" binding:"required"`
}

type OthersRequestRequest struct {
	Title         string `json:"title" binding:"required"`
	Description   string `json:"description" binding:"required"`
	Location      string `json:"location"`
	PreferredDate string `json:"preferred_date" binding:"omitempty,datetime=2006-01-02"`
	AttachmentURL string `json:"attachment_url" binding:"omitempty,url"`
}

// GetWallet returns the caller's wallet balance
func (h *Handler) GetWallet(c *gin.Context) {
	wallet, err := h.svc.Wallet.Balance(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"wallet": wallet})
}

func (h *Handler) GetWalletTransactions(c *gin.Context) {
	page := pageFrom(c)
	txns, total, err := h.svc.Wallet.Transactions(c.Request.Context(), middleware.GetUserID(c), page)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	paged(c, "transactions", txns, total, page)
}

// TopUpWallet starts a gateway checkout that credits the wallet
func (h *Handler) TopUpWallet(c *gin.Context) {
	var req TopUpRequest
	if !bindJSON(c, &req) {
		return
	}
	order, err := h.svc.Wallet.TopUp(c.Request.Context(), middleware.GetUserID(c), req.Amount, req.ReturnURL)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"order_id":           order.OrderID,
		"payment_session_id": order.PaymentSessionID,
		"amount":             order.Amount,
		"currency":           order.Currency,
	})
}

func (h *Handler) ConfirmTopUp(c *gin.Context) {
	var req ConfirmTopUpRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.svc.Wallet.ConfirmTopUp(c.Request.Context(), middleware.GetUserID(c), req.OrderID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	respondVerify(c, result)
}

// GetNotifications lists the caller's inbox; ?unread=true filters
func (h *Handler) GetNotifications(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserID(c)
	page := pageFrom(c)
	items, total, err := h.svc.Notifications.List(ctx, userID, boolQuery(c, "unread"), page)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	unread, err := h.svc.Notifications.UnreadCount(ctx, userID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	page = page.Normalize()
	c.JSON(http.StatusOK, gin.H{
		"count":         total,
		"unread":        unread,
		"page":          page.Number,
		"page_size":     page.Size,
		"notifications": items,
	})
}

func (h *Handler) MarkNotificationRead(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Notifications.MarkRead(c.Request.Context(), middleware.GetUserID(c), id); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}

func (h *Handler) MarkAllNotificationsRead(c *gin.Context) {
	n, err := h.svc.Notifications.MarkAllRead(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All notifications marked as read", "updated": n})
}

// CreateOthersRequest files a request for a service outside the catalog
func (h *Handler) CreateOthersRequest(c *gin.Context) {
	var req OthersRequestRequest
	if !bindJSON(c, &req) {
		return
	}
	created, err := h.svc.Requests.Create(c.Request.Context(), middleware.GetUserID(c), services.OthersRequestInput{
		Title:         req.Title,
		Description:   req.Description,
		Location:      req.Location,
		PreferredDate: req.PreferredDate,
		AttachmentURL: req.AttachmentURL,
	})
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Request submitted", "request": created})
}

func (h *Handler) GetMyOthersRequests(c *gin.Context) {
	reqs, err := h.svc.Requests.ListMine(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(reqs), "requests": reqs})
}

func (h *Handler) GetOthersRequest(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	req, err := h.svc.Requests.Get(c.Request.Context(), id, viewer(c))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"request": req})
}

func (h *Handler) CancelOthersRequest(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	req, err := h.svc.Requests.Cancel(c.Request.Context(), id, middleware.GetUserID(c))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Request cancelled", "request": req})
}
