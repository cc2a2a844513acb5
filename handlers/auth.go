package handlers

import (
	"net/http"

	"home-services-api/apperrors"
	"home-services-api/middleware"
	"home-services-api/models"
	"home-services-api/services"

	"github.com/gin-gonic/gin"
)

type RegisterRequest struct {
	Name            string          `json:"name" binding:"required"`
	Email           string          `json:"email" binding:"required,email"`
	Password        string          `json:"password" binding:"required,min=6,max=72"`
	Role            models.UserRole `json:"role" binding:"omitempty,oneof=USER VENDOR"`
	Phone           string          `json:"phone"`
	BusinessName    string          `json:"business_name"`
	BusinessAddress string          `json:"business_address"`
	ServiceCategory string          `json:"service_category"`
	ExperienceYears int             `json:"experience_years" binding:"gte=0"`
	IDProofURL      string          `json:"id_proof_url" binding:"omitempty,url"`
	AddressProofURL string          `json:"address_proof_url" binding:"omitempty,url"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required,len=6,numeric"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	OTP         string `json:"otp" binding:"required,len=6,numeric"`
	NewPassword string `json:"new_password" binding:"required,min=6,max=72"`
}

type UpdateProfileRequest struct {
	Name            *string `json:"name"`
	Phone           *string `json:"phone"`
	BusinessName    *string `json:"business_name"`
	BusinessAddress *string `json:"business_address"`
	ExperienceYears *int    `json:"experience_years" binding:"omitempty,gte=0"`
}

// Register creates a new user account. Vendors start PENDING and get no token.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.svc.Auth.Register(c.Request.Context(), services.RegisterInput{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		Phone:           req.Phone,
		Role:            req.Role,
		BusinessName:    req.BusinessName,
		BusinessAddress: req.BusinessAddress,
		ServiceCategory: req.ServiceCategory,
		ExperienceYears: req.ExperienceYears,
		IDProofURL:      req.IDProofURL,
		AddressProofURL: req.AddressProofURL,
	})
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	body := gin.H{"message": res.Message, "user": res.User}
	if res.Token != "" {
		body["token"] = res.Token
	}
	c.JSON(http.StatusCreated, body)
}

// Login authenticates a user and returns a JWT
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.svc.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": res.Message,
		"token":   res.Token,
		"user":    res.User,
	})
}

// ForgotPassword issues a reset code. The code is only echoed back outside production.
func (h *Handler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	otp, err := h.svc.Auth.ForgotPassword(c.Request.Context(), req.Email)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	body := gin.H{"message": "A reset code has been sent to your email"}
	if h.exposeOTP {
		body["otp"] = otp
	}
	c.JSON(http.StatusOK, body)
}

func (h *Handler) VerifyOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.svc.Auth.VerifyOTP(c.Request.Context(), req.Email, req.OTP); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "OTP verified", "valid": true})
}

func (h *Handler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.svc.Auth.ResetPassword(c.Request.Context(), req.Email, req.OTP, req.NewPassword); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password has been reset, please log in"})
}

// GetProfile returns the authenticated user's profile
func (h *Handler) GetProfile(c *gin.Context) {
	user, err := h.svc.Auth.Profile(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.svc.Auth.UpdateProfile(c.Request.Context(), middleware.GetUserID(c), services.ProfileUpdate{
		Name:            req.Name,
		Phone:           req.Phone,
		BusinessName:    req.BusinessName,
		BusinessAddress: req.BusinessAddress,
		ExperienceYears: req.ExperienceYears,
	})
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated", "user": user})
}
