package services

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"home-services-api/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMail struct {
	mu   sync.Mutex
	sent []string
}

func (m *recordingMail) SendAsync(to, subject, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, to+": "+subject)
	return nil
}

func TestNotificationsInbox(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice := h.user(t, "alice@example.com")
	bob := h.user(t, "bob@example.com")
	mail := &recordingMail{}
	n := &NotificationService{db: h.db, mail: mail}

	n.Notify(ctx, alice.ID, "Booking #1 is now ACCEPTED", "", KindBooking)
	n.Notify(ctx, alice.ID, "Payment received", "", KindPayment)
	n.Notify(ctx, bob.ID, "Hello", "", KindRequest)
	assert.Equal(t, []string{
		"alice@example.com: Booking #1 is now ACCEPTED",
		"alice@example.com: Payment received",
		"bob@example.com: Hello",
	}, mail.sent)

	items, total, err := n.List(ctx, alice.ID, false, Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, items, 2)
	assert.Equal(t, "Payment received", items[0].Title)

	require.NoError(t, n.MarkRead(ctx, alice.ID, items[0].ID))
	requireCode(t, n.MarkRead(ctx, bob.ID, items[1].ID), apperrors.CodeNotFound, http.StatusNotFound)

	unread, err := n.UnreadCount(ctx, alice.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, unread)

	marked, err := n.MarkAllRead(ctx, alice.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, marked)

	_, total, err = n.List(ctx, alice.ID, true, Page{})
	require.NoError(t, err)
	assert.Zero(t, total)
}
