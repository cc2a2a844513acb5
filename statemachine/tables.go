package statemachine

import "home-services-api/models"

// Booking is the authoritative booking lifecycle.
//
//	PENDING -> ACCEPTED -> ACTIVE -> COMPLETED
//	PENDING -> CANCELLED ; ACCEPTED -> CANCELLED
var Booking = New("booking", []Transition[models.BookingStatus]{
	// Vendor decides on a new booking
	{From: models.BookingPending, To: models.BookingAccepted, Actor: ActorVendor},
	{From: models.BookingPending, To: models.BookingCancelled, Actor: ActorVendor},
	{From: models.BookingPending, To: models.BookingCancelled, Actor: ActorUser},
	// Vendor starts the job, either side may still back out
	{From: models.BookingAccepted, To: models.BookingActive, Actor: ActorVendor},
	{From: models.BookingAccepted, To: models.BookingCancelled, Actor: ActorVendor},
	{From: models.BookingAccepted, To: models.BookingCancelled, Actor: ActorUser},
	// Vendor marks the job done
	{From: models.BookingActive, To: models.BookingCompleted, Actor: ActorVendor},

	{From: models.BookingPending, To: models.BookingAccepted, Actor: ActorAdmin},
	{From: models.BookingPending, To: models.BookingCancelled, Actor: ActorAdmin},
	{From: models.BookingAccepted, To: models.BookingActive, Actor: ActorAdmin},
	{From: models.BookingAccepted, To: models.BookingCancelled, Actor: ActorAdmin},
	{From: models.BookingActive, To: models.BookingCompleted, Actor: ActorAdmin},
})

// Approval is the vendor approval workflow. APPROVED and REJECTED are final.
var Approval = New("vendor approval", []Transition[models.ApprovalStatus]{
	{From: models.ApprovalPending, To: models.ApprovalApproved, Actor: ActorAdmin},
	{From: models.ApprovalPending, To: models.ApprovalRejected, Actor: ActorAdmin},
})

// OthersRequest is the workflow of free-form requests reviewed by admins.
var OthersRequest = New("request", []Transition[models.RequestStatus]{
	{From: models.RequestPending, To: models.RequestReviewed, Actor: ActorAdmin},
	{From: models.RequestReviewed, To: models.RequestInProgress, Actor: ActorAdmin},
	{From: models.RequestInProgress, To: models.RequestCompleted, Actor: ActorAdmin},
	{From: models.RequestPending, To: models.RequestCancelled, Actor: ActorAdmin},
	{From: models.RequestReviewed, To: models.RequestCancelled, Actor: ActorAdmin},
	{From: models.RequestInProgress, To: models.RequestCancelled, Actor: ActorAdmin},
	{From: models.RequestPending, To: models.RequestCancelled, Actor: ActorUser},
})

// ActorFor maps an authenticated role onto a transition actor.
func ActorFor(role models.UserRole) Actor {
	switch role {
	case models.RoleVendor:
		return ActorVendor
	case models.RoleAdmin:
		return ActorAdmin
	default:
		return ActorUser
	}
}
