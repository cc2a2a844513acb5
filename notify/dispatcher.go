package notify

import (
	"errors"
	"sync"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// Dispatcher sends mail on a bounded goroutine pool.
type Dispatcher struct {
	mailer Mailer
	pool   *ants.Pool
	wg     sync.WaitGroup
}

func NewDispatcher(mailer Mailer, workers int) (*Dispatcher, error) {
	if workers <= 0 {
		workers = 4
	}
	pool, err := ants.NewPool(workers*16, ants.WithNonblocking(true))
	if err != nil {
		return nil, err
	}
	return &Dispatcher{mailer: mailer, pool: pool}, nil
}

// SendAsync queues a message. A full pool drops the message and returns the error.
func (d *Dispatcher) SendAsync(to, subject, body string) error {
	if to == "" {
		return errors.New("recipient is required")
	}
	d.wg.Add(1)
	err := d.pool.Submit(func() {
		defer d.wg.Done()
		if err := d.mailer.Send(to, subject, body); err != nil {
			zap.L().Error("send email failed", zap.String("to", to), zap.String("subject", subject), zap.Error(err))
		}
	})
	if err != nil {
		d.wg.Done()
		zap.L().Warn("email dropped", zap.String("to", to), zap.Error(err))
	}
	return err
}

// Close waits for queued messages and releases the pool.
func (d *Dispatcher) Close() {
	d.wg.Wait()
	d.pool.Release()
}
