package notify

import (
	"errors"
	"sync"
	"testing"

	"home-services-api/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []string
	fail bool
}

func (m *recordingMailer) Send(to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("smtp down")
	}
	m.sent = append(m.sent, to+"|"+subject)
	return nil
}

func TestDispatcherDeliversAllMessagesBeforeClose(t *testing.T) {
	mailer := &recordingMailer{}
	d, err := NewDispatcher(mailer, 2)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		require.NoError(t, d.SendAsync("a@example.com", "Booking update", "body"))
	}
	d.Close()

	assert.Len(t, mailer.sent, 10)
	assert.Equal(t, "a@example.com|Booking update", mailer.sent[0])
}

func TestDispatcherSurvivesMailerErrors(t *testing.T) {
	d, err := NewDispatcher(&recordingMailer{fail: true}, 1)
	require.NoError(t, err)

	assert.NoError(t, d.SendAsync("a@example.com", "s", "b"))
	assert.Error(t, d.SendAsync("", "s", "b"))
	d.Close()
}

func TestNewMailerFallsBackToLog(t *testing.T) {
	_, ok := NewMailer(config.SMTPConfig{Port: 587}).(LogMailer)
	assert.True(t, ok)
}
