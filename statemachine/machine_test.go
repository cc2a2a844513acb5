package statemachine

import (
	"errors"
	"testing"

	"home-services-api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bookingStatuses = []models.BookingStatus{
	models.BookingPending,
	models.BookingAccepted,
	models.BookingActive,
	models.BookingCompleted,
	models.BookingCancelled,
}

func TestBookingOnlyDiagramEdgesAreLegal(t *testing.T) {
	legal := map[[2]models.BookingStatus]bool{}
	for _, edge := range [][2]models.BookingStatus{
		{models.BookingPending, models.BookingAccepted},
		{models.BookingPending, models.BookingCancelled},
		{models.BookingAccepted, models.BookingActive},
		{models.BookingAccepted, models.BookingCancelled},
		{models.BookingActive, models.BookingCompleted},
	} {
		legal[edge] = true
	}
	for _, from := range bookingStatuses {
		for _, to := range bookingStatuses {
			err := Booking.CanTransition(from, to, ActorAdmin)
			if legal[[2]models.BookingStatus{from, to}] {
				assert.NoError(t, err, "%s -> %s", from, to)
			} else {
				assert.Error(t, err, "%s -> %s", from, to)
			}
		}
	}
}

func TestBookingTerminalStates(t *testing.T) {
	assert.True(t, Booking.IsTerminal(models.BookingCompleted))
	assert.True(t, Booking.IsTerminal(models.BookingCancelled))
	assert.False(t, Booking.IsTerminal(models.BookingActive))

	for _, actor := range []Actor{ActorUser, ActorVendor, ActorAdmin} {
		for _, to := range bookingStatuses {
			assert.Error(t, Booking.CanTransition(models.BookingCompleted, to, actor))
			assert.Error(t, Booking.CanTransition(models.BookingCancelled, to, actor))
		}
	}
}

func TestBookingActorPermissions(t *testing.T) {
	assert.NoError(t, Booking.CanTransition(models.BookingPending, models.BookingCancelled, ActorUser))
	assert.NoError(t, Booking.CanTransition(models.BookingAccepted, models.BookingCancelled, ActorUser))
	assert.Error(t, Booking.CanTransition(models.BookingPending, models.BookingAccepted, ActorUser))
	assert.Error(t, Booking.CanTransition(models.BookingActive, models.BookingCompleted, ActorUser))

	assert.Equal(t,
		[]models.BookingStatus{models.BookingAccepted, models.BookingCancelled},
		Booking.ValidTransitionsFor(models.BookingPending, ActorVendor))
	assert.Equal(t,
		[]models.BookingStatus{models.BookingCancelled},
		Booking.ValidTransitionsFor(models.BookingPending, ActorUser))
}

func TestTransitionErrorMessage(t *testing.T) {
	err := Booking.CanTransition(models.BookingCompleted, models.BookingActive, ActorVendor)
	require.Error(t, err)

	var te *TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "COMPLETED", te.From)
	assert.Empty(t, te.Valid)
	assert.Contains(t, err.Error(), "terminal state")

	err = Booking.CanTransition(models.BookingPending, models.BookingCompleted, ActorVendor)
	require.True(t, errors.As(err, &te))
	assert.Equal(t, []string{"ACCEPTED", "CANCELLED"}, te.Valid)
}

func TestApprovalIsOneShot(t *testing.T) {
	assert.NoError(t, Approval.CanTransition(models.ApprovalPending, models.ApprovalApproved, ActorAdmin))
	assert.NoError(t, Approval.CanTransition(models.ApprovalPending, models.ApprovalRejected, ActorAdmin))
	assert.Error(t, Approval.CanTransition(models.ApprovalRejected, models.ApprovalApproved, ActorAdmin))
	assert.Error(t, Approval.CanTransition(models.ApprovalApproved, models.ApprovalRejected, ActorAdmin))
	assert.Error(t, Approval.CanTransition(models.ApprovalPending, models.ApprovalApproved, ActorVendor))
}

func TestOthersRequestWorkflow(t *testing.T) {
	assert.NoError(t, OthersRequest.CanTransition(models.RequestPending, models.RequestReviewed, ActorAdmin))
	assert.NoError(t, OthersRequest.CanTransition(models.RequestInProgress, models.RequestCompleted, ActorAdmin))
	assert.NoError(t, OthersRequest.CanTransition(models.RequestPending, models.RequestCancelled, ActorUser))
	assert.Error(t, OthersRequest.CanTransition(models.RequestReviewed, models.RequestCancelled, ActorUser))
	assert.Error(t, OthersRequest.CanTransition(models.RequestPending, models.RequestCompleted, ActorAdmin))
	assert.True(t, OthersRequest.IsTerminal(models.RequestCompleted))
}

func TestActorFor(t *testing.T) {
	assert.Equal(t, ActorVendor, ActorFor(models.RoleVendor))
	assert.Equal(t, ActorAdmin, ActorFor(models.RoleAdmin))
	assert.Equal(t, ActorUser, ActorFor(models.RoleUser))
}
