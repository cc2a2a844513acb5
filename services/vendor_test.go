package services

import (
	"context"
	"net/http"
	"testing"

	"home-services-api/apperrors"
	"home-services-api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVendorReviewHappensOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	v := h.vendor(t, "v@example.com", "cleaning", models.ApprovalPending)

	approved, err := h.svc.Vendors.Approve(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalApproved, approved.ApprovalStatus)

	_, err = h.svc.Vendors.Reject(ctx, v.ID, "late change of heart")
	appErr := requireCode(t, err, apperrors.CodeInvalidTransition, http.StatusUnprocessableEntity)
	assert.Equal(t, models.ApprovalApproved, appErr.Details.(map[string]any)["current_status"])

	var notes []models.Notification
	require.NoError(t, h.db.Where("user_id = ?", v.ID).Find(&notes).Error)
	require.Len(t, notes, 1)
	assert.Equal(t, KindVendorApproval, notes[0].Kind)
}

func TestVendorReviewRequiresVendor(t *testing.T) {
	h := newHarness(t)
	alice := h.user(t, "alice@example.com")

	_, err := h.svc.Vendors.Approve(context.Background(), alice.ID)
	requireCode(t, err, apperrors.CodeNotFound, http.StatusNotFound)
}

func TestListApprovedVendors(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.vendor(t, "c1@example.com", "Cleaning", models.ApprovalApproved)
	h.vendor(t, "c2@example.com", "cleaning", models.ApprovalPending)
	h.vendor(t, "p1@example.com", "plumbing", models.ApprovalApproved)
	h.vendor(t, "p2@example.com", "plumbing", models.ApprovalRejected)

	all, err := h.svc.Vendors.ListApproved(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	cleaners, err := h.svc.Vendors.ListApproved(ctx, "cleaning")
	require.NoError(t, err)
	require.Len(t, cleaners, 1)
	assert.Equal(t, "c1@example.com", cleaners[0].Email)

	pending, total, err := h.svc.Vendors.AdminList(ctx, models.ApprovalPending, Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "c2@example.com", pending[0].Email)

	_, total, err = h.svc.Vendors.AdminList(ctx, "", Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
}
