package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"home-services-api/apperrors"
	"home-services-api/models"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const otpDigits = 6

type AuthService struct {
	db         *gorm.DB
	tokens     TokenIssuer
	mail       MailQueue
	notify     *NotificationService
	otpTTL     time.Duration
	production bool
	now        func() time.Time
}

type RegisterInput struct {
	Name            string
	Email           string
	Password        string
	Phone           string
	Role            models.UserRole
	BusinessName    string
	BusinessAddress string
	ServiceCategory string
	ExperienceYears int
	IDProofURL      string
	AddressProofURL string
}

// AuthResult is returned by Register and Login. Token is empty for vendors awaiting approval.
type AuthResult struct {
	User    *models.User
	Token   string
	Message string
}

// Register creates a new user account
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	if in.Role == "" {
		in.Role = models.RoleUser
	}
	switch in.Role {
	case models.RoleUser, models.RoleVendor:
	default:
		return nil, apperrors.Validation("Invalid role. Must be USER or VENDOR")
	}
	if in.Role == models.RoleVendor {
		missing := map[string]string{}
		if strings.TrimSpace(in.ServiceCategory) == "" {
			missing["service_category"] = "is required for vendors"
		}
		if strings.TrimSpace(in.BusinessName) == "" {
			missing["business_name"] = "is required for vendors"
		}
		if strings.TrimSpace(in.BusinessAddress) == "" {
			missing["business_address"] = "is required for vendors"
		}
		if len(missing) > 0 {
			return nil, apperrors.Validation("Vendor registration is missing business details").
				WithDetails(map[string]any{"fields": missing})
		}
	}

	hash, err := hashPassword("password", in.Password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Name:           strings.TrimSpace(in.Name),
		Email:          normalizeEmail(in.Email),
		Phone:          strings.TrimSpace(in.Phone),
		PasswordHash:   hash,
		Role:           in.Role,
		ApprovalStatus: models.ApprovalApproved,
	}
	if in.Role == models.RoleVendor {
		user.ApprovalStatus = models.ApprovalPending
		user.BusinessName = strings.TrimSpace(in.BusinessName)
		user.BusinessAddress = strings.TrimSpace(in.BusinessAddress)
		user.ServiceCategory = strings.TrimSpace(in.ServiceCategory)
		user.ExperienceYears = in.ExperienceYears
		user.IDProofURL = in.IDProofURL
		user.AddressProofURL = in.AddressProofURL
	}

	// the unique index on email decides; no read-then-write check
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.Conflict(apperrors.CodeEmailExists, "Email already registered")
		}
		return nil, apperrors.Internal(err)
	}

	if user.IsVendor() {
		zap.S().Infow("vendor registered, awaiting approval", "user_id", user.ID, "category", user.ServiceCategory)
		s.notify.NotifyAdmins(ctx, "New vendor registration",
			fmt.Sprintf("%s (%s) applied as a %s vendor.", user.BusinessName, user.Email, user.ServiceCategory),
			KindVendorApproval)
		return &AuthResult{
			User:    &user,
			Message: "Registration submitted. Your vendor account is pending admin approval.",
		}, nil
	}

	token, err := s.tokens.GenerateToken(&user)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("generate token: %w", err))
	}
	return &AuthResult{User: &user, Token: token, Message: "Account created successfully"}, nil
}

// Login authenticates a user and returns a JWT
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	invalid := apperrors.New(apperrors.CodeInvalidCredentials, http.StatusUnauthorized, "Invalid email or password")

	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error; err != nil {
		if isNotFound(err) {
			return nil, invalid
		}
		return nil, apperrors.Internal(err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, invalid
	}

	if user.IsVendor() {
		switch user.ApprovalStatus {
		case models.ApprovalApproved:
		case models.ApprovalRejected:
			details := map[string]any{"approval_status": user.ApprovalStatus}
			if user.RejectionReason != "" {
				details["rejection_reason"] = user.RejectionReason
			}
			return nil, apperrors.New(apperrors.CodeVendorRejected, http.StatusForbidden,
				"Your vendor application was rejected").WithDetails(details)
		default:
			return nil, apperrors.New(apperrors.CodeVendorPendingApproval, http.StatusForbidden,
				"Your vendor account is pending admin approval").
				WithDetails(map[string]any{"approval_status": models.ApprovalPending})
		}
	}

	token, err := s.tokens.GenerateToken(&user)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("generate token: %w", err))
	}
	return &AuthResult{User: &user, Token: token, Message: "Login successful"}, nil
}

// ForgotPassword issues a one-time code and returns it. Callers must not
// expose the code outside development.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (string, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error; err != nil {
		return "", findOr404(err, "User")
	}

	otp, err := generateOTP()
	if err != nil {
		return "", apperrors.Internal(err)
	}
	expires := s.now().Add(s.otpTTL)
	err = s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]any{
		"reset_otp_hash":       hashOTP(otp),
		"reset_otp_expires_at": expires,
	}).Error
	if err != nil {
		return "", apperrors.Internal(err)
	}

	if s.production {
		zap.S().Infow("password reset otp issued", "user_id", user.ID)
	} else {
		zap.S().Infow("password reset otp issued", "user_id", user.ID, "email", user.Email, "otp", otp)
	}
	if s.mail != nil {
		body := fmt.Sprintf("Your password reset code is %s. It expires in %d minutes.", otp, int(s.otpTTL.Minutes()))
		_ = s.mail.SendAsync(user.Email, "Password reset code", body)
	}
	return otp, nil
}

// VerifyOTP checks a reset code without consuming it.
func (s *AuthService) VerifyOTP(ctx context.Context, email, otp string) error {
	_, err := s.checkOTP(ctx, email, otp)
	return err
}

// ResetPassword consumes the code and sets the new password.
func (s *AuthService) ResetPassword(ctx context.Context, email, otp, newPassword string) error {
	user, err := s.checkOTP(ctx, email, otp)
	if err != nil {
		return err
	}
	hash, err := hashPassword("new_password", newPassword)
	if err != nil {
		return err
	}

	// only one reset can clear the hash it matched
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND reset_otp_hash = ?", user.ID, hashOTP(otp)).
		Updates(map[string]any{
			"password_hash":        hash,
			"reset_otp_hash":       "",
			"reset_otp_expires_at": nil,
		})
	if res.Error != nil {
		return apperrors.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return otpInvalid()
	}
	zap.S().Infow("password reset", "user_id", user.ID)
	return nil
}

func (s *AuthService) checkOTP(ctx context.Context, email, otp string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error; err != nil {
		return nil, findOr404(err, "User")
	}
	if user.ResetOTPHash == "" || user.ResetOTPExpiresAt == nil {
		return nil, otpInvalid()
	}
	if subtle.ConstantTimeCompare([]byte(user.ResetOTPHash), []byte(hashOTP(otp))) != 1 {
		return nil, otpInvalid()
	}
	if !s.now().Before(*user.ResetOTPExpiresAt) {
		return nil, apperrors.New(apperrors.CodeOTPExpired, http.StatusBadRequest, "OTP has expired, request a new one")
	}
	return &user, nil
}

func otpInvalid() *apperrors.AppError {
	return apperrors.New(apperrors.CodeOTPInvalid, http.StatusBadRequest, "Invalid OTP")
}

// Profile returns the authenticated user's profile
func (s *AuthService) Profile(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return nil, findOr404(err, "User")
	}
	return &user, nil
}

type ProfileUpdate struct {
	Name            *string
	Phone           *string
	BusinessName    *string
	BusinessAddress *string
	ExperienceYears *int
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID uint, in ProfileUpdate) (*models.User, error) {
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	updates := map[string]any{}
	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, apperrors.Validation("name cannot be empty")
		}
		updates["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Phone != nil {
		updates["phone"] = strings.TrimSpace(*in.Phone)
	}
	if user.IsVendor() {
		if in.BusinessName != nil {
			updates["business_name"] = strings.TrimSpace(*in.BusinessName)
		}
		if in.BusinessAddress != nil {
			updates["business_address"] = strings.TrimSpace(*in.BusinessAddress)
		}
		if in.ExperienceYears != nil {
			updates["experience_years"] = *in.ExperienceYears
		}
	}
	if len(updates) == 0 {
		return user, nil
	}
	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, apperrors.Internal(err)
	}
	return s.Profile(ctx, userID)
}

// SeedAdmin creates the first admin account when it does not exist yet.
func (s *AuthService) SeedAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		zap.L().Warn("FIRST_ADMIN_EMAIL or FIRST_ADMIN_PASSWORD is not set, skipping admin seeding")
		return nil
	}
	email = normalizeEmail(email)

	var existing models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&existing).Error
	if err == nil {
		if existing.Role != models.RoleAdmin {
			return fmt.Errorf("seed admin: %s already belongs to a %s account", email, existing.Role)
		}
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("check for admin user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	admin := models.User{
		Name:           "Administrator",
		Email:          email,
		PasswordHash:   string(hash),
		Role:           models.RoleAdmin,
		ApprovalStatus: models.ApprovalApproved,
	}
	if err := s.db.WithContext(ctx).Create(&admin).Error; err != nil && !isUniqueViolation(err) {
		return fmt.Errorf("create admin user: %w", err)
	}
	zap.S().Infow("first admin created", "email", email)
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func generateOTP() (string, error) {
	limit := big.NewInt(1)
	for i := 0; i < otpDigits; i++ {
		limit.Mul(limit, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", otpDigits, n.Int64()), nil
}

func hashOTP(otp string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(otp)))
	return hex.EncodeToString(sum[:])
}

// hashPassword hashes a new password. bcrypt only reads the first 72 bytes,
// so longer input is a validation error on field.
func hashPassword(field, password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", apperrors.Validation("Password is too long").
			WithDetails(map[string]any{"fields": map[string]string{field: "must be at most 72 bytes"}})
	}
	if err != nil {
		return "", apperrors.Internal(fmt.Errorf("hash password: %w", err))
	}
	return string(hash), nil
}
