package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/spec-kit/blood-drive-checkin/internal/events"
	"github.com/spec-kit/blood-drive-checkin/internal/service"
)

// BoardSource builds the current board of a campaign.
type BoardSource interface {
	Snapshot(ctx context.Context, campaignID string) (*service.BoardSnapshot, error)
}

// Broadcaster fans a payload out to a campaign's displays.
type Broadcaster interface {
	Campaigns() []string
	Broadcast(campaignID string, payload []byte)
}

// BoardEncoder renders a snapshot for the wire.
type BoardEncoder func(*service.BoardSnapshot) ([]byte, error)

// BoardRefresher pushes fresh boards to subscribed displays on a fixed interval and whenever a
// registration of the campaign changes. Event-driven refreshes are throttled per campaign.
type BoardRefresher struct {
	source   BoardSource
	hub      Broadcaster
	encode   BoardEncoder
	interval time.Duration
	limit    rate.Limit
	logger   *zap.Logger

	pending   chan string
	due       chan string
	limiters  map[string]*rate.Limiter
	scheduled map[string]bool
}

// BoardRefresherConfig configures the refresher.
type BoardRefresherConfig struct {
	Source           BoardSource
	Hub              Broadcaster
	Encode           BoardEncoder
	Interval         time.Duration
	RefreshPerSecond float64
	Logger           *zap.Logger
}

// NewBoardRefresher constructs the worker.
func NewBoardRefresher(cfg BoardRefresherConfig) *BoardRefresher {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	limit := rate.Limit(cfg.RefreshPerSecond)
	if cfg.RefreshPerSecond <= 0 {
		limit = rate.Limit(1)
	}
	return &BoardRefresher{
		source:    cfg.Source,
		hub:       cfg.Hub,
		encode:    cfg.Encode,
		interval:  interval,
		limit:     limit,
		logger:    logger,
		pending:   make(chan string, 64),
		due:       make(chan string, 64),
		limiters:  make(map[string]*rate.Limiter),
		scheduled: make(map[string]bool),
	}
}

// Subscribe registers the refresher for registration change events.
func (r *BoardRefresher) Subscribe(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	dispatcher.Subscribe(events.EventRegistrationCheckedIn, r.handleEvent)
	dispatcher.Subscribe(events.EventRegistrationStatusChanged, r.handleEvent)
}

func (r *BoardRefresher) handleEvent(_ context.Context, event events.Event) error {
	r.Notify(event.CampaignID)
	return nil
}

// Notify requests a refresh of the campaign. It never blocks; a full queue drops the request and the
// next tick catches up.
func (r *BoardRefresher) Notify(campaignID string) {
	if campaignID == "" {
		return
	}
	select {
	case r.pending <- campaignID:
	default:
		r.logger.Debug("board refresh queue full", zap.String("campaign_id", campaignID))
	}
}

// Run refreshes boards until ctx is cancelled.
func (r *BoardRefresher) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			campaigns := r.hub.Campaigns()
			r.prune(campaigns)
			for _, campaignID := range campaigns {
				r.Refresh(ctx, campaignID)
			}
		case campaignID := <-r.pending:
			r.throttle(ctx, campaignID)
		case campaignID := <-r.due:
			delete(r.scheduled, campaignID)
			r.Refresh(ctx, campaignID)
		}
	}
}

// throttle refreshes now when the campaign's budget allows, otherwise schedules a single deferred
// refresh that absorbs every request arriving meanwhile.
func (r *BoardRefresher) throttle(ctx context.Context, campaignID string) {
	if r.scheduled[campaignID] {
		return
	}
	limiter, ok := r.limiters[campaignID]
	if !ok {
		limiter = rate.NewLimiter(r.limit, 1)
		r.limiters[campaignID] = limiter
	}
	delay := limiter.Reserve().Delay()
	if delay == 0 {
		r.Refresh(ctx, campaignID)
		return
	}
	r.scheduled[campaignID] = true
	time.AfterFunc(delay, func() {
		select {
		case r.due <- campaignID:
		case <-ctx.Done():
		}
	})
}

// prune forgets the limiters of campaigns no display watches any more. A campaign with a deferred
// refresh pending keeps its limiter until that refresh runs.
func (r *BoardRefresher) prune(active []string) {
	watched := make(map[string]struct{}, len(active))
	for _, campaignID := range active {
		watched[campaignID] = struct{}{}
	}
	for campaignID := range r.limiters {
		if _, ok := watched[campaignID]; ok || r.scheduled[campaignID] {
			continue
		}
		delete(r.limiters, campaignID)
	}
}

// Refresh rebuilds and broadcasts one campaign's board.
func (r *BoardRefresher) Refresh(ctx context.Context, campaignID string) {
	snapshot, err := r.source.Snapshot(ctx, campaignID)
	if err != nil {
		r.logger.Warn("board refresh failed", zap.String("campaign_id", campaignID), zap.Error(err))
		return
	}
	payload, err := r.encode(snapshot)
	if err != nil {
		r.logger.Error("board encode failed", zap.String("campaign_id", campaignID), zap.Error(err))
		return
	}
	r.hub.Broadcast(campaignID, payload)
}
