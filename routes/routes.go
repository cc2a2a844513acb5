package routes

import (
	"home-services-api/handlers"
	"home-services-api/middleware"
	"home-services-api/models"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, h *handlers.Handler, tm *middleware.TokenManager, authLimiter *middleware.RateLimiter) {
	// ── Public routes ──────────────────────────────────────────────
	public := r.Group("/api")
	{
		// Auth (rate limited per client IP)
		authGroup := public.Group("/auth", authLimiter.Middleware())
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
		authGroup.POST("/forgot-password", h.ForgotPassword)
		authGroup.POST("/verify-otp", h.VerifyOTP)
		authGroup.POST("/reset-password", h.ResetPassword)

		// Catalog (no auth needed)
		public.GET("/catalog/tree", h.CatalogTree)
		public.GET("/catalog/categories", h.ListCategories)
		public.GET("/catalog/categories/:id", h.GetCategory)
		public.GET("/catalog/subcategories", h.ListSubCategories)
		public.GET("/catalog/subcategories/:id", h.GetSubCategory)
		public.GET("/catalog/services", h.ListServices)
		public.GET("/catalog/services/:id", h.GetService)
		public.GET("/vendors", h.ListVendors)

		public.GET("/state-machine", handlers.GetStateMachineInfo)

		// Gateway callback, authenticated by signature
		public.POST("/payments/webhook", h.PaymentWebhook)
	}

	// ── Authenticated routes ───────────────────────────────────────
	auth := r.Group("/api")
	auth.Use(middleware.AuthRequired(tm))
	{
		auth.GET("/auth/profile", h.GetProfile)
		auth.PUT("/auth/profile", h.UpdateProfile)

		auth.GET("/bookings/:id", h.GetBooking)
		auth.GET("/bookings/:id/track", h.TrackBooking)
	}

	// ── User routes ────────────────────────────────────────────────
	customer := r.Group("/api")
	customer.Use(middleware.AuthRequired(tm), middleware.RoleRequired(models.RoleUser))
	{
		customer.POST("/bookings", h.CreateBooking)
		customer.GET("/bookings", h.GetMyBookings)
		customer.PUT("/bookings/:id/cancel", h.CancelBooking)

		customer.POST("/payments/create-order", h.CreatePaymentOrder)
		customer.POST("/payments/verify", h.VerifyPayment)
		customer.GET("/payments/orders", h.GetMyPaymentOrders)
	}

	user := r.Group("/api/user")
	user.Use(middleware.AuthRequired(tm))
	{
		user.GET("/notifications", h.GetNotifications)
		user.PUT("/notifications/read-all", h.MarkAllNotificationsRead)
		user.PUT("/notifications/:id/read", h.MarkNotificationRead)
	}

	wallet := r.Group("/api/user")
	wallet.Use(middleware.AuthRequired(tm), middleware.RoleRequired(models.RoleUser))
	{
		wallet.GET("/wallet", h.GetWallet)
		wallet.GET("/wallet/transactions", h.GetWalletTransactions)
		wallet.POST("/wallet/topup", h.TopUpWallet)
		wallet.POST("/wallet/topup/verify", h.ConfirmTopUp)

		wallet.POST("/others-requests", h.CreateOthersRequest)
		wallet.GET("/others-requests", h.GetMyOthersRequests)
		wallet.GET("/others-requests/:id", h.GetOthersRequest)
		wallet.PUT("/others-requests/:id/cancel", h.CancelOthersRequest)
	}

	// ── Vendor routes ──────────────────────────────────────────────
	vendor := r.Group("/api/vendor")
	vendor.Use(middleware.AuthRequired(tm), middleware.RoleRequired(models.RoleVendor))
	{
		vendor.GET("/bookings", h.GetVendorBookings)
		vendor.GET("/bookings/available", h.GetAvailableBookings)
		vendor.PUT("/bookings/:id/status", h.UpdateBookingStatus)
	}

	// ── Admin routes ───────────────────────────────────────────────
	admin := r.Group("/api/admin")
	admin.Use(middleware.AuthRequired(tm), middleware.RoleRequired(models.RoleAdmin))
	{
		admin.GET("/stats", h.AdminStats)
		admin.GET("/users", h.AdminGetAllUsers)

		admin.GET("/vendors", h.AdminGetVendors)
		admin.GET("/vendors/:id", h.AdminGetVendor)
		admin.PUT("/vendors/:id/approve", h.AdminApproveVendor)
		admin.PUT("/vendors/:id/reject", h.AdminRejectVendor)

		admin.GET("/categories", h.AdminListCategories)
		admin.POST("/categories", h.AdminCreateCategory)
		admin.PUT("/categories/:id", h.AdminUpdateCategory)
		admin.DELETE("/categories/:id", h.AdminDeleteCategory)

		admin.GET("/subcategories", h.AdminListSubCategories)
		admin.POST("/subcategories", h.AdminCreateSubCategory)
		admin.PUT("/subcategories/:id", h.AdminUpdateSubCategory)
		admin.DELETE("/subcategories/:id", h.AdminDeleteSubCategory)

		admin.GET("/services", h.AdminListServices)
		admin.POST("/services", h.AdminCreateService)
		admin.PUT("/services/:id", h.AdminUpdateService)
		admin.DELETE("/services/:id", h.AdminDeleteService)

		admin.GET("/bookings", h.AdminGetAllBookings)
		admin.GET("/bookings/export", h.AdminExportBookings)
		admin.PUT("/bookings/:id/status", h.UpdateBookingStatus)
		admin.GET("/transactions/export", h.AdminExportTransactions)
		admin.POST("/payments/reconcile", h.AdminReconcilePayments)

		admin.GET("/others-requests", h.AdminGetOthersRequests)
		admin.PUT("/others-requests/:id", h.AdminUpdateOthersRequest)
	}
}
