package services

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"home-services-api/apperrors"
	"home-services-api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vendorInput(email string) RegisterInput {
	return RegisterInput{
		Name:            "Ravi",
		Email:           email,
		Password:        "secret123",
		Role:            models.RoleVendor,
		BusinessName:    "Ravi Electricals",
		BusinessAddress: "5 MG Road",
		ServiceCategory: "electrical",
		ExperienceYears: 6,
	}
}

func TestRegisterUser(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.svc.Auth.Register(ctx, RegisterInput{Name: "Alice", Email: " Alice@Example.com ", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", res.User.Email)
	assert.Equal(t, models.RoleUser, res.User.Role)
	assert.NotEmpty(t, res.Token)

	_, err = h.svc.Auth.Register(ctx, RegisterInput{Name: "Alice 2", Email: "ALICE@example.com", Password: "secret123"})
	requireCode(t, err, apperrors.CodeEmailExists, http.StatusConflict)

	_, err = h.svc.Auth.Register(ctx, RegisterInput{Name: "Mallory", Email: "m@example.com", Password: "secret123", Role: models.RoleAdmin})
	requireCode(t, err, apperrors.CodeValidationFailed, http.StatusBadRequest)
}

func TestRegisterSameEmailConcurrently(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.svc.Auth.Register(ctx, RegisterInput{Name: "Dup", Email: "dup@example.com", Password: "secret123"})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, apperrors.HasCode(err, apperrors.CodeEmailExists), err)
	}
	assert.Equal(t, 1, succeeded)
}

func TestVendorApprovalGatesLogin(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	admin := h.admin(t, "admin@example.com")

	res, err := h.svc.Auth.Register(ctx, vendorInput("ravi@example.com"))
	require.NoError(t, err)
	assert.Empty(t, res.Token)
	assert.Equal(t, models.ApprovalPending, res.User.ApprovalStatus)

	var adminNotes int64
	require.NoError(t, h.db.Model(&models.Notification{}).Where("user_id = ?", admin.ID).Count(&adminNotes).Error)
	assert.EqualValues(t, 1, adminNotes)

	_, err = h.svc.Auth.Login(ctx, "ravi@example.com", "secret123")
	appErr := requireCode(t, err, apperrors.CodeVendorPendingApproval, http.StatusForbidden)
	assert.Equal(t, models.ApprovalPending, appErr.Details.(map[string]any)["approval_status"])

	_, err = h.svc.Vendors.Approve(ctx, res.User.ID)
	require.NoError(t, err)

	login, err := h.svc.Auth.Login(ctx, "RAVI@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, models.RoleVendor, login.User.Role)
	assert.NotEmpty(t, login.Token)
}

func TestRejectedVendorSeesReason(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.svc.Auth.Register(ctx, vendorInput("ravi@example.com"))
	require.NoError(t, err)
	_, err = h.svc.Vendors.Reject(ctx, res.User.ID, "ID proof is unreadable")
	require.NoError(t, err)

	_, err = h.svc.Auth.Login(ctx, "ravi@example.com", "secret123")
	appErr := requireCode(t, err, apperrors.CodeVendorRejected, http.StatusForbidden)
	details := appErr.Details.(map[string]any)
	assert.Equal(t, models.ApprovalRejected, details["approval_status"])
	assert.Equal(t, "ID proof is unreadable", details["rejection_reason"])
}

func TestVendorRegistrationRequiresBusinessDetails(t *testing.T) {
	h := newHarness(t)
	in := vendorInput("ravi@example.com")
	in.BusinessName = ""
	in.ServiceCategory = " "

	_, err := h.svc.Auth.Register(context.Background(), in)
	appErr := requireCode(t, err, apperrors.CodeValidationFailed, http.StatusBadRequest)
	fields := appErr.Details.(map[string]any)["fields"].(map[string]string)
	assert.Contains(t, fields, "business_name")
	assert.Contains(t, fields, "service_category")
	assert.NotContains(t, fields, "business_address")
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	h := newHarness(t)
	h.user(t, "alice@example.com")

	_, err := h.svc.Auth.Login(context.Background(), "alice@example.com", "wrong")
	requireCode(t, err, apperrors.CodeInvalidCredentials, http.StatusUnauthorized)

	_, err = h.svc.Auth.Login(context.Background(), "nobody@example.com", "secret123")
	requireCode(t, err, apperrors.CodeInvalidCredentials, http.StatusUnauthorized)
}

func TestPasswordResetFlow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.user(t, "alice@example.com")

	otp, err := h.svc.Auth.ForgotPassword(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Regexp(t, `^\d{6}$`, otp)

	var stored models.User
	require.NoError(t, h.db.Where("email = ?", "alice@example.com").First(&stored).Error)
	assert.Equal(t, hashOTP(otp), stored.ResetOTPHash)
	assert.NotEqual(t, otp, stored.ResetOTPHash)

	wrong := "000000"
	if otp == wrong {
		wrong = "111111"
	}
	requireCode(t, h.svc.Auth.VerifyOTP(ctx, "alice@example.com", wrong), apperrors.CodeOTPInvalid, http.StatusBadRequest)

	// verifying does not consume the code
	require.NoError(t, h.svc.Auth.VerifyOTP(ctx, "alice@example.com", otp))
	require.NoError(t, h.svc.Auth.VerifyOTP(ctx, "alice@example.com", otp))

	require.NoError(t, h.svc.Auth.ResetPassword(ctx, "alice@example.com", otp, "newsecret1"))
	requireCode(t, h.svc.Auth.ResetPassword(ctx, "alice@example.com", otp, "another1"), apperrors.CodeOTPInvalid, http.StatusBadRequest)

	_, err = h.svc.Auth.Login(ctx, "alice@example.com", "newsecret1")
	require.NoError(t, err)

	_, err = h.svc.Auth.ForgotPassword(ctx, "ghost@example.com")
	requireCode(t, err, apperrors.CodeNotFound, http.StatusNotFound)
}

func TestOverlongPasswordsAreRejected(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.user(t, "alice@example.com")
	// 40 characters but 80 bytes, past bcrypt's 72-byte input
	long := strings.Repeat("é", 40)

	_, err := h.svc.Auth.Register(ctx, RegisterInput{Name: "Bob", Email: "bob@example.com", Password: long})
	appErr := requireCode(t, err, apperrors.CodeValidationFailed, http.StatusBadRequest)
	assert.Contains(t, appErr.Details.(map[string]any)["fields"], "password")

	var count int64
	require.NoError(t, h.db.Model(&models.User{}).Where("email = ?", "bob@example.com").Count(&count).Error)
	assert.Zero(t, count)

	otp, err := h.svc.Auth.ForgotPassword(ctx, "alice@example.com")
	require.NoError(t, err)
	appErr = requireCode(t, h.svc.Auth.ResetPassword(ctx, "alice@example.com", otp, strings.Repeat("a", 73)),
		apperrors.CodeValidationFailed, http.StatusBadRequest)
	assert.Contains(t, appErr.Details.(map[string]any)["fields"], "new_password")

	// the code survives a rejected reset and the old password still works
	require.NoError(t, h.svc.Auth.VerifyOTP(ctx, "alice@example.com", otp))
	_, err = h.svc.Auth.Login(ctx, "alice@example.com", "secret123")
	require.NoError(t, err)
}

func TestExpiredOTPIsRejected(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.user(t, "alice@example.com")

	otp, err := h.svc.Auth.ForgotPassword(ctx, "alice@example.com")
	require.NoError(t, err)

	h.svc.Auth.now = func() time.Time { return time.Now().Add(11 * time.Minute) }
	requireCode(t, h.svc.Auth.VerifyOTP(ctx, "alice@example.com", otp), apperrors.CodeOTPExpired, http.StatusBadRequest)
	requireCode(t, h.svc.Auth.ResetPassword(ctx, "alice@example.com", otp, "newsecret1"), apperrors.CodeOTPExpired, http.StatusBadRequest)
}

func TestUpdateProfile(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice := h.user(t, "alice@example.com")

	got, err := h.svc.Auth.UpdateProfile(ctx, alice.ID, ProfileUpdate{Name: ptr("Alice K"), Phone: ptr("9876543210"), BusinessName: ptr("ignored")})
	require.NoError(t, err)
	assert.Equal(t, "Alice K", got.Name)
	assert.Equal(t, "9876543210", got.Phone)
	assert.Empty(t, got.BusinessName)

	_, err = h.svc.Auth.UpdateProfile(ctx, alice.ID, ProfileUpdate{Name: ptr("  ")})
	requireCode(t, err, apperrors.CodeValidationFailed, http.StatusBadRequest)
}

func TestSeedAdminIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.svc.Auth.SeedAdmin(ctx, "Root@Example.com", "rootpass1"))
	require.NoError(t, h.svc.Auth.SeedAdmin(ctx, "root@example.com", "rootpass1"))
	require.NoError(t, h.svc.Auth.SeedAdmin(ctx, "", ""))

	var admins []models.User
	require.NoError(t, h.db.Where("role = ?", models.RoleAdmin).Find(&admins).Error)
	require.Len(t, admins, 1)
	assert.Equal(t, "root@example.com", admins[0].Email)

	h.user(t, "taken@example.com")
	assert.Error(t, h.svc.Auth.SeedAdmin(ctx, "taken@example.com", "rootpass1"))
}
