// Package realtime fans diary change events out to each user's live connections.
package realtime

import (
	"sync"

	"go.uber.org/zap"

	"github.com/zhouzirui/riji/backend/internal/model/diary"
)

// DefaultBuffer is the per-subscriber queue length.
const DefaultBuffer = 16

// Subscription 是一个订阅者的事件队列。
type Subscription struct {
	userID string
	events chan diary.ChangeEvent
	once   sync.Once
}

// Events 在订阅被取消或因消费过慢被丢弃时关闭。
func (s *Subscription) Events() <-chan diary.ChangeEvent {
	return s.events
}

func (s *Subscription) close() {
	s.once.Do(func() { close(s.events) })
}

// Hub routes events to subscribers of the same user.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscription]struct{}
	buffer int
	logger *zap.Logger
}

// NewHub creates a hub; buffer <= 0 selects DefaultBuffer.
func NewHub(buffer int, logger *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		subs:   make(map[string]map[*Subscription]struct{}),
		buffer: buffer,
		logger: logger.With(zap.String("component", "realtime")),
	}
}

// Subscribe registers a new subscriber for userID.
func (h *Hub) Subscribe(userID string) *Subscription {
	sub := &Subscription{
		userID: userID,
		events: make(chan diary.ChangeEvent, h.buffer),
	}

	h.mu.Lock()
	set, ok := h.subs[userID]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[userID] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()

	return sub
}

// Unsubscribe removes sub and closes its channel. Safe to call more than once.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	h.remove(sub)
	h.mu.Unlock()
}

func (h *Hub) remove(sub *Subscription) {
	if set, ok := h.subs[sub.userID]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.subs, sub.userID)
		}
	}
	sub.close()
}

// Publish delivers event to every subscriber of event.UserID without blocking.
// A subscriber whose queue is full is dropped.
func (h *Hub) Publish(event diary.ChangeEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs[event.UserID] {
		select {
		case sub.events <- event:
		default:
			h.logger.Warn("dropping slow subscriber", zap.String("user_id", sub.userID))
			h.remove(sub)
		}
	}
}

// Subscribers reports how many live subscriptions userID has.
func (h *Hub) Subscribers(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}
