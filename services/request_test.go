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

func TestOthersRequestWorkflow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	admin := h.admin(t, "admin@example.com")
	alice := h.user(t, "alice@example.com")

	_, err := h.svc.Requests.Create(ctx, alice.ID, OthersRequestInput{Title: " "})
	requireCode(t, err, apperrors.CodeValidationFailed, http.StatusBadRequest)

	req, err := h.svc.Requests.Create(ctx, alice.ID, OthersRequestInput{
		Title:       "Install a ceiling fan",
		Description: "Bedroom, fan already bought",
		Location:    "Flat 4B",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RequestPending, req.Status)

	var adminNotes int64
	require.NoError(t, h.db.Model(&models.Notification{}).Where("user_id = ?", admin.ID).Count(&adminNotes).Error)
	assert.EqualValues(t, 1, adminNotes)

	reviewed, err := h.svc.Requests.AdminUpdate(ctx, req.ID, ptr(models.RequestReviewed), ptr("Quote: 450"))
	require.NoError(t, err)
	assert.Equal(t, models.RequestReviewed, reviewed.Status)
	assert.Equal(t, "Quote: 450", reviewed.AdminNotes)

	// once reviewed only an admin may cancel
	_, err = h.svc.Requests.Cancel(ctx, req.ID, alice.ID)
	requireCode(t, err, apperrors.CodeInvalidTransition, http.StatusUnprocessableEntity)

	_, err = h.svc.Requests.AdminUpdate(ctx, req.ID, ptr(models.RequestCompleted), nil)
	requireCode(t, err, apperrors.CodeInvalidTransition, http.StatusUnprocessableEntity)

	notesOnly, err := h.svc.Requests.AdminUpdate(ctx, req.ID, nil, ptr("Technician booked"))
	require.NoError(t, err)
	assert.Equal(t, models.RequestReviewed, notesOnly.Status)
	assert.Equal(t, "Technician booked", notesOnly.AdminNotes)

	for _, to := range []models.RequestStatus{models.RequestInProgress, models.RequestCompleted} {
		got, err := h.svc.Requests.AdminUpdate(ctx, req.ID, ptr(to), nil)
		require.NoError(t, err)
		assert.Equal(t, to, got.Status)
	}

	var userNotes int64
	require.NoError(t, h.db.Model(&models.Notification{}).Where("user_id = ?", alice.ID).Count(&userNotes).Error)
	assert.EqualValues(t, 3, userNotes)

	_, err = h.svc.Requests.AdminUpdate(ctx, req.ID, nil, nil)
	requireCode(t, err, apperrors.CodeValidationFailed, http.StatusBadRequest)
}

func TestOthersRequestOwnership(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice := h.user(t, "alice@example.com")
	bob := h.user(t, "bob@example.com")

	req, err := h.svc.Requests.Create(ctx, alice.ID, OthersRequestInput{Title: "Fix door", Description: "Hinge broken"})
	require.NoError(t, err)

	_, err = h.svc.Requests.Get(ctx, req.ID, Viewer{ID: bob.ID, Role: models.RoleUser})
	requireCode(t, err, apperrors.CodeNotFound, http.StatusNotFound)
	_, err = h.svc.Requests.Cancel(ctx, req.ID, bob.ID)
	requireCode(t, err, apperrors.CodeNotFound, http.StatusNotFound)

	cancelled, err := h.svc.Requests.Cancel(ctx, req.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestCancelled, cancelled.Status)

	mine, err := h.svc.Requests.ListMine(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	open, total, err := h.svc.Requests.AdminList(ctx, models.RequestPending, Page{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, open)
}
