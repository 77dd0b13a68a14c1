package memory

import (
	"context"
	"sync"

	"quiz-attempt-service/internal/domain"
)

const subscriberBuffer = 8

// NotificationHub fans notifications out to in-process subscribers of the same user.
type NotificationHub struct {
	mu          sync.Mutex
	subscribers map[string]map[chan domain.Notification]struct{}
}

func NewNotificationHub() *NotificationHub {
	return &NotificationHub{subscribers: make(map[string]map[chan domain.Notification]struct{})}
}

// Subscribe returns a channel receiving username's notifications.
// The caller must invoke the returned cancel function to avoid leaks.
func (h *NotificationHub) Subscribe(username string) (<-chan domain.Notification, func()) {
	ch := make(chan domain.Notification, subscriberBuffer)

	h.mu.Lock()
	subs, ok := h.subscribers[username]
	if !ok {
		subs = make(map[chan domain.Notification]struct{})
		h.subscribers[username] = subs
	}
	subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		subs, ok := h.subscribers[username]
		if !ok {
			return
		}
		if _, ok := subs[ch]; ok {
			delete(subs, ch)
			close(ch)
		}
		if len(subs) == 0 {
			delete(h.subscribers, username)
		}
	}
	return ch, cancel
}

// Deliver pushes n to every subscriber of n.Username. Users without subscribers are skipped.
func (h *NotificationHub) Deliver(_ context.Context, n domain.Notification) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers[n.Username] {
		select {
		case ch <- n:
		default:
			// slow subscriber: drop its oldest pending notification
			select {
			case <-ch:
			default:
			}
			ch <- n
		}
	}
	return nil
}

// Subscribers reports how many live subscriptions username has.
func (h *NotificationHub) Subscribers(username string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers[username])
}
