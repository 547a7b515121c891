// Package alerts provides the in-process publish/subscribe channel carrying
// market, fraud, and system alerts to all subscribers.
package alerts

import (
	"time"

	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dzpay/bankcore/pkg/metrics"
	"github.com/dzpay/bankcore/pkg/models"
)

// ringBuffer holds the last N alerts for late subscribers.
type ringBuffer struct {
	buf   []models.Alert
	size  int
	start int
	count int
}

func newRingBuffer(size int) *ringBuffer {
	return &ringBuffer{buf: make([]models.Alert, size), size: size}
}

// add appends an alert, overwriting the oldest entry when full.
func (r *ringBuffer) add(a models.Alert) {
	idx := (r.start + r.count) % r.size
	if r.count == r.size {
		r.start = (r.start + 1) % r.size
		r.count--
	}
	r.buf[idx] = a
	r.count++
}

// latest returns up to n alerts, most recent first.
func (r *ringBuffer) latest(n int) []models.Alert {
	if n <= 0 || n > r.count {
		n = r.count
	}
	out := make([]models.Alert, 0, n)
	for i := 0; i < n; i++ {
		idx := (r.start + r.count - 1 - i) % r.size
		out = append(out, r.buf[idx])
	}
	return out
}

// Subscriber receives all alerts published after it joined, until closed.
type Subscriber struct {
	C   <-chan models.Alert
	ch  chan models.Alert
	bus *Bus
}

// Close detaches the subscriber. It never blocks a publisher and releases the
// channel so late consumers do not leak.
func (s *Subscriber) Close() {
	s.bus.unsubscribe(s)
}

// Bus is the central alert bus with a bounded replay buffer.
type Bus struct {
	logger    *zap.Logger
	subBuffer int

	mu          sync.Mutex
	buffer      *ringBuffer
	subscribers map[*Subscriber]struct{}
}

// NewBus creates an alert bus holding the last capacity alerts, with
// per-subscriber channel depth subBuffer.
func NewBus(logger *zap.Logger, capacity, subBuffer int) *Bus {
	if capacity <= 0 {
		capacity = 100
	}
	if subBuffer <= 0 {
		subBuffer = 64
	}
	return &Bus{
		logger:      logger,
		subBuffer:   subBuffer,
		buffer:      newRingBuffer(capacity),
		subscribers: make(map[*Subscriber]struct{}),
	}
}

// Publish appends the alert to the replay buffer and fans it out to every
// current subscriber. A subscriber whose channel is full misses that delivery
// rather than stalling the publisher.
func (b *Bus) Publish(alert models.Alert) models.Alert {
	if alert.ID == "" {
		alert.ID = uuid.NewString()
	}
	if alert.Timestamp.IsZero() {
		alert.Timestamp = time.Now()
	}

	b.mu.Lock()
	b.buffer.add(alert)
	for sub := range b.subscribers {
		select {
		case sub.ch <- alert:
		default:
			// slow subscriber, skip this delivery
		}
	}
	b.mu.Unlock()

	metrics.AlertsPublished.WithLabelValues(string(alert.Type)).Inc()
	b.logger.Debug("alert published",
		zap.String("id", alert.ID),
		zap.String("type", string(alert.Type)),
		zap.String("severity", alert.Severity.String()))
	return alert
}

// Subscribe joins the live stream. Use Recent for the catch-up batch.
func (b *Bus) Subscribe() *Subscriber {
	ch := make(chan models.Alert, b.subBuffer)
	sub := &Subscriber{C: ch, ch: ch, bus: b}
	b.mu.Lock()
	b.subscribers[sub] = struct{}{}
	b.mu.Unlock()
	return sub
}

func (b *Bus) unsubscribe(sub *Subscriber) {
	b.mu.Lock()
	_, ok := b.subscribers[sub]
	if ok {
		delete(b.subscribers, sub)
	}
	b.mu.Unlock()
	if ok {
		close(sub.ch)
	}
}

// Recent returns up to n buffered alerts, most recent first.
func (b *Bus) Recent(n int) []models.Alert {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buffer.latest(n)
}

// CountAtLeast returns how many buffered alerts are at or above the severity.
func (b *Bus) CountAtLeast(min models.AlertSeverity) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	count := 0
	for _, a := range b.buffer.latest(0) {
		if a.Severity >= min {
			count++
		}
	}
	return count
}

// SubscriberCount reports the number of attached subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}
