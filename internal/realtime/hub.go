// Package realtime pushes kiosk board updates to connected venue displays.
package realtime

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/blood-drive-checkin/internal/observability"
)

// Subscriber receives encoded board payloads.
type Subscriber interface {
	ID() string
	Send(payload []byte) error
	Close() error
}

// Hub tracks subscribers per campaign.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[string]map[Subscriber]struct{}
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewHub builds an empty hub.
func NewHub(logger *zap.Logger, metrics *observability.Metrics) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		rooms:   make(map[string]map[Subscriber]struct{}),
		logger:  logger,
		metrics: metrics,
	}
}

// Join subscribes to a campaign.
func (h *Hub) Join(campaignID string, sub Subscriber) {
	h.mu.Lock()
	room, ok := h.rooms[campaignID]
	if !ok {
		room = make(map[Subscriber]struct{})
		h.rooms[campaignID] = room
	}
	room[sub] = struct{}{}
	total := h.countLocked()
	h.mu.Unlock()

	h.metrics.SetBoardSubscribers(total)
	h.logger.Debug("kiosk subscriber joined",
		zap.String("campaign_id", campaignID),
		zap.String("subscriber", sub.ID()),
		zap.Int("total", total),
	)
}

// Leave unsubscribes and closes the subscriber.
func (h *Hub) Leave(campaignID string, sub Subscriber) {
	h.mu.Lock()
	room, ok := h.rooms[campaignID]
	_, member := room[sub]
	if ok && member {
		delete(room, sub)
		if len(room) == 0 {
			delete(h.rooms, campaignID)
		}
	}
	total := h.countLocked()
	h.mu.Unlock()

	if !member {
		return
	}
	_ = sub.Close()
	h.metrics.SetBoardSubscribers(total)
	h.logger.Debug("kiosk subscriber left",
		zap.String("campaign_id", campaignID),
		zap.String("subscriber", sub.ID()),
		zap.Int("total", total),
	)
}

// Campaigns lists campaigns with at least one subscriber.
func (h *Hub) Campaigns() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.rooms))
	for id := range h.rooms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Subscribers counts the subscribers of a campaign.
func (h *Hub) Subscribers(campaignID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[campaignID])
}

// Broadcast sends payload to every subscriber of the campaign. Subscribers that fail to receive it are dropped.
func (h *Hub) Broadcast(campaignID string, payload []byte) {
	h.mu.RLock()
	room := h.rooms[campaignID]
	subs := make([]Subscriber, 0, len(room))
	for sub := range room {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	for _, sub := range subs {
		if err := sub.Send(payload); err != nil {
			h.logger.Warn("dropping kiosk subscriber",
				zap.String("campaign_id", campaignID),
				zap.String("subscriber", sub.ID()),
				zap.Error(err),
			)
			h.Leave(campaignID, sub)
		}
	}
}

func (h *Hub) countLocked() int {
	total := 0
	for _, room := range h.rooms {
		total += len(room)
	}
	return total
}
