package notify

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/logger"
)

const (
	defaultTimeout     = 10 * time.Second
	defaultMaxInFlight = 64
)

// Options tunes a Dispatcher. Zero values select the defaults.
type Options struct {
	Timeout     time.Duration
	MaxInFlight int64
}

// Dispatcher delivers notifications in the background, once, without retries.
// Notify never blocks; when MaxInFlight deliveries are running the notification is dropped.
type Dispatcher struct {
	sink    Sink
	log     *logger.Logger
	timeout time.Duration
	sem     *semaphore.Weighted
	wg      sync.WaitGroup
}

func NewDispatcher(sink Sink, log *logger.Logger, opts Options) *Dispatcher {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxInFlight <= 0 {
		opts.MaxInFlight = defaultMaxInFlight
	}
	return &Dispatcher{
		sink:    sink,
		log:     log.Named("notify"),
		timeout: opts.Timeout,
		sem:     semaphore.NewWeighted(opts.MaxInFlight),
	}
}

// Notify implements app.Notifier. The request's cancellation does not reach the delivery.
func (d *Dispatcher) Notify(ctx context.Context, n domain.Notification) {
	if !d.sem.TryAcquire(1) {
		d.log.Warn("notification dropped, dispatcher saturated", "user", n.Username, "quiz", n.QuizTitle)
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer d.sem.Release(1)
		defer func() {
			if r := recover(); r != nil {
				d.log.Error("notification sink panicked", "user", n.Username, "panic", r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()
		if err := d.sink.Deliver(ctx, n); err != nil {
			d.log.Warn("notification delivery failed", "user", n.Username, "quiz", n.QuizTitle, "error", err)
			return
		}
		d.log.Debug("notification delivered", "user", n.Username, "quiz", n.QuizTitle)
	}()
}

// Close waits for in-flight deliveries or until ctx is done.
func (d *Dispatcher) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
