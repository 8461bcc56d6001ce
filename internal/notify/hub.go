// Package notify maintains the live registry of parent notification
// channels and fans out events to them.
package notify

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"child-speech-pipeline-service/internal/observability/metrics"
)

// EventRecordingUpdated is pushed when a child's recording log changes.
const EventRecordingUpdated = "recordingUpdated"

// Sender is one live parent connection. Send must be safe for concurrent
// use; a returned error marks the connection broken.
type Sender interface {
	Send(ctx context.Context, event string) error
}

// Registration ties a sender to the hub; Close removes it.
type Registration struct {
	hub      *Hub
	parentID int64
	sender   Sender
	once     sync.Once
}

// Close unregisters the connection. Idempotent.
func (r *Registration) Close() {
	r.once.Do(func() {
		r.hub.remove(r.parentID, r.sender)
	})
}

// Hub is the in-process connection registry. It is shared by every
// pipeline run; a single coarse lock guards the whole map, which is fine
// at the expected connection counts.
type Hub struct {
	mu      sync.RWMutex
	conns   map[int64]map[Sender]struct{}
	metrics *metrics.Metrics
}

// NewHub returns an empty registry.
func NewHub() *Hub {
	return &Hub{
		conns:   make(map[int64]map[Sender]struct{}),
		metrics: metrics.DefaultMetrics,
	}
}

// Register adds a live channel for a parent session.
func (h *Hub) Register(parentID int64, s Sender) *Registration {
	h.mu.Lock()
	set, ok := h.conns[parentID]
	if !ok {
		set = make(map[Sender]struct{})
		h.conns[parentID] = set
	}
	set[s] = struct{}{}
	h.mu.Unlock()

	h.metrics.NotifierConnections.Inc()
	log.Debug().Int64("parentId", parentID).Msg("Parent channel registered")
	return &Registration{hub: h, parentID: parentID, sender: s}
}

func (h *Hub) remove(parentID int64, s Sender) {
	h.mu.Lock()
	set, ok := h.conns[parentID]
	if ok {
		if _, present := set[s]; present {
			delete(set, s)
			h.metrics.NotifierConnections.Dec()
		}
		if len(set) == 0 {
			delete(h.conns, parentID)
		}
	}
	h.mu.Unlock()
}

// Connections reports the number of live channels for a parent.
func (h *Hub) Connections(parentID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[parentID])
}

// Notify fans out the named event to every live channel of the given
// parents. Delivery is best-effort and fire-and-forget: a parent with no
// channels is skipped silently, and a failed send prunes that channel
// without affecting the others or the calling pipeline.
func (h *Hub) Notify(ctx context.Context, parentIDs []int64, event string) {
	type target struct {
		parentID int64
		sender   Sender
	}

	h.mu.RLock()
	var targets []target
	for _, pid := range parentIDs {
		set, ok := h.conns[pid]
		if !ok || len(set) == 0 {
			h.metrics.NotificationsOffline.Inc()
			continue
		}
		for s := range set {
			targets = append(targets, target{parentID: pid, sender: s})
		}
	}
	h.mu.RUnlock()

	for _, t := range targets {
		if err := t.sender.Send(ctx, event); err != nil {
			log.Warn().
				Err(err).
				Int64("parentId", t.parentID).
				Str("event", event).
				Msg("Notification channel broken, pruning")
			h.metrics.NotificationsPruned.Inc()
			h.remove(t.parentID, t.sender)
			continue
		}
		h.metrics.NotificationsSent.Inc()
		log.Debug().
			Int64("parentId", t.parentID).
			Str("event", event).
			Msg("Notification delivered")
	}
}
