package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/course-portal-api/internal/models"
)

// SessionListener reacts to session lifecycle events.
type SessionListener func(ctx context.Context, event models.SessionEvent)

// SessionHub is the one place session events are published from. Listeners are
// called in subscription order on the publisher's goroutine.
type SessionHub struct {
	mu        sync.RWMutex
	nextID    uint64
	listeners map[uint64]SessionListener
	order     []uint64
	logger    *zap.Logger
}

// NewSessionHub constructs an empty hub.
func NewSessionHub(logger *zap.Logger) *SessionHub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionHub{listeners: make(map[uint64]SessionListener), logger: logger}
}

// Subscribe registers a listener and returns a function that removes it. Calling the
// returned function more than once is harmless.
func (h *SessionHub) Subscribe(listener SessionListener) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := h.nextID
	h.listeners[id] = listener
	h.order = append(h.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.listeners, id)
			for i, v := range h.order {
				if v == id {
					h.order = append(h.order[:i], h.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Len reports the number of active listeners.
func (h *SessionHub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners)
}

// Publish delivers the event to every listener. A panicking listener is logged and skipped.
func (h *SessionHub) Publish(ctx context.Context, event models.SessionEvent) {
	h.mu.RLock()
	listeners := make([]SessionListener, 0, len(h.order))
	for _, id := range h.order {
		listeners = append(listeners, h.listeners[id])
	}
	h.mu.RUnlock()

	for _, listener := range listeners {
		h.deliver(ctx, listener, event)
	}
}

func (h *SessionHub) deliver(ctx context.Context, listener SessionListener, event models.SessionEvent) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("session listener panicked", zap.String("event", string(event.Type)), zap.Any("panic", r))
		}
	}()
	listener(ctx, event)
}

// CacheSessionListener drops the signed-out user's cached profile.
func CacheSessionListener(cache *CacheService) SessionListener {
	return func(ctx context.Context, event models.SessionEvent) {
		if event.Type == models.SessionSignedOut {
			cache.Invalidate(ctx, MutationSessionSignedOut, CacheScope{UserID: event.Session.UserID})
		}
	}
}

// MetricsSessionListener counts session events.
func MetricsSessionListener(metrics *MetricsService) SessionListener {
	return func(_ context.Context, event models.SessionEvent) {
		metrics.RecordSessionEvent(event.Type)
	}
}

// LogSessionListener writes one line per session event.
func LogSessionListener(logger *zap.Logger) SessionListener {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(_ context.Context, event models.SessionEvent) {
		logger.Info("session event",
			zap.String("event", string(event.Type)),
			zap.String("user_id", event.Session.UserID),
			zap.String("session_id", event.Session.SessionID))
	}
}
