package motor

import (
	"context"
	"io"
	"log/slog"
	"sync"
)

const defaultQueueCapacity = 64

// WithQueueLogger sets the logger for the queue.
func WithQueueLogger(logger *slog.Logger) func(*Queue) {
	return func(q *Queue) {
		q.logger = logger.With(slog.String("component", "motor-queue"))
	}
}

// Queue is a multi-producer, single-consumer FIFO of motor speed updates.
// Producers never block: when the buffer is full the update is dropped and
// logged, which is acceptable because a fresher intent is always right
// behind. The consumer started by Run is the only caller of the Controller.
type Queue struct {
	ch     chan Speeds
	logger *slog.Logger

	stopOnce sync.Once
	stop     chan struct{}
}

// NewQueue creates a queue with the default capacity.
func NewQueue(options ...func(*Queue)) *Queue {
	q := Queue{
		ch:     make(chan Speeds, defaultQueueCapacity),
		stop:   make(chan struct{}),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&q)
	}

	return &q
}

// Enqueue submits a speed update without blocking the producer.
func (q *Queue) Enqueue(s Speeds) {
	select {
	case q.ch <- s:
	default:
		q.logger.Warn("motor queue full, dropping speed update",
			slog.Any("speeds", s))
	}
}

// Stop signals the consumer to exit after draining what it already dequeued.
func (q *Queue) Stop() {
	q.stopOnce.Do(func() { close(q.stop) })
}

// Run consumes speed updates in FIFO order and applies them to the driver.
// It returns when the context is cancelled or Stop is called, after draining
// updates already queued: a fail-safe zero enqueued during shutdown must
// reach the driver even when the consumer was mid-apply at the time. Driver
// errors are logged and do not stop consumption.
func (q *Queue) Run(ctx context.Context, driver Controller) error {
	defer q.drain(driver)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-q.stop:
			return nil
		case s := <-q.ch:
			q.apply(driver, s)
		}
	}
}

func (q *Queue) drain(driver Controller) {
	for {
		select {
		case s := <-q.ch:
			q.apply(driver, s)
		default:
			return
		}
	}
}

func (q *Queue) apply(driver Controller, s Speeds) {
	if err := driver.UpdateSpeeds(s); err != nil {
		q.logger.Error("applying motor speeds",
			slog.Any("speeds", s), slog.String("error", err.Error()))
	}
}
