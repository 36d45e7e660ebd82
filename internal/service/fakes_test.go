package service

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/blood-drive-checkin/internal/domain"
	"github.com/spec-kit/blood-drive-checkin/internal/events"
	"github.com/spec-kit/blood-drive-checkin/internal/queue"
	"github.com/spec-kit/blood-drive-checkin/internal/repository"
)

var fixedNow = time.Date(2025, 3, 14, 16, 26, 53, 123456789, time.FixedZone("ICT", 7*3600))

func fixedClock() time.Time { return fixedNow }

type fakeCampaigns struct {
	items map[string]domain.Campaign
	err   error
}

func newFakeCampaigns(campaigns ...domain.Campaign) *fakeCampaigns {
	f := &fakeCampaigns{items: make(map[string]domain.Campaign)}
	for _, c := range campaigns {
		f.items[c.ID] = c
	}
	return f
}

func (f *fakeCampaigns) GetByID(_ context.Context, id string) (*domain.Campaign, error) {
	if f.err != nil {
		return nil, f.err
	}
	c, ok := f.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &c, nil
}

// fakeRegistrations enforces the (campaign_id, queue_number) uniqueness constraint.
type fakeRegistrations struct {
	mu        sync.Mutex
	items     map[string]domain.Registration
	order     []string
	markErr   error
	listErr   error
	afterGet  func()
	markCalls int
	listCalls int
}

func newFakeRegistrations(regs ...domain.Registration) *fakeRegistrations {
	f := &fakeRegistrations{items: make(map[string]domain.Registration)}
	for _, reg := range regs {
		f.add(reg)
	}
	return f
}

func (f *fakeRegistrations) add(reg domain.Registration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if reg.RawStatus == "" {
		reg.RawStatus = string(reg.Status)
	}
	if _, ok := f.items[reg.ID]; !ok {
		f.order = append(f.order, reg.ID)
	}
	f.items[reg.ID] = reg
}

func (f *fakeRegistrations) get(id string) domain.Registration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[id]
}

func (f *fakeRegistrations) GetByID(_ context.Context, id string) (*domain.Registration, error) {
	f.mu.Lock()
	reg, ok := f.items[id]
	hook := f.afterGet
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &reg, nil
}

func (f *fakeRegistrations) ListByCampaign(_ context.Context, campaignID string) ([]domain.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []domain.Registration
	for _, id := range f.order {
		if reg := f.items[id]; reg.CampaignID == campaignID {
			out = append(out, reg)
		}
	}
	return out, nil
}

func (f *fakeRegistrations) MaxQueueNumber(_ context.Context, campaignID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	max := 0
	for _, reg := range f.items {
		if reg.CampaignID == campaignID && reg.QueueNumber != nil && *reg.QueueNumber > max {
			max = *reg.QueueNumber
		}
	}
	return max, nil
}

func (f *fakeRegistrations) MarkCheckedIn(_ context.Context, id string, queueNumber int, at time.Time) (*domain.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markCalls++
	if f.markErr != nil {
		return nil, f.markErr
	}
	reg, ok := f.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if reg.QueueNumber != nil {
		return nil, repository.ErrAlreadyCheckedIn
	}
	for _, other := range f.items {
		if other.CampaignID == reg.CampaignID && other.QueueNumber != nil && *other.QueueNumber == queueNumber {
			return nil, repository.ErrQueueNumberTaken
		}
	}
	n := queueNumber
	reg.Status = domain.RegistrationStatusCheckedIn
	reg.RawStatus = string(domain.RegistrationStatusCheckedIn)
	reg.QueueNumber = &n
	reg.CheckInTime = &at
	f.items[id] = reg
	return &reg, nil
}

func (f *fakeRegistrations) UpdateStatus(_ context.Context, id string, status domain.RegistrationStatus) (*domain.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	reg, ok := f.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	reg.Status = status
	reg.RawStatus = string(status)
	f.items[id] = reg
	return &reg, nil
}

type fakeHistory struct {
	mu      sync.Mutex
	entries []domain.RegistrationHistory
	err     error
}

func (f *fakeHistory) Create(_ context.Context, entry *domain.RegistrationHistory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeHistory) ListByRegistration(_ context.Context, registrationID string) ([]domain.RegistrationHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.RegistrationHistory
	for _, entry := range f.entries {
		if entry.RegistrationID == registrationID {
			out = append(out, entry)
		}
	}
	return out, nil
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) published() []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]events.Event(nil), d.events...)
}

type fixture struct {
	campaigns     *fakeCampaigns
	registrations *fakeRegistrations
	history       *fakeHistory
	dispatcher    *recordingDispatcher
	checkins      *CheckinService
}

func newFixture(campaigns []domain.Campaign, regs ...domain.Registration) *fixture {
	f := &fixture{
		campaigns:     newFakeCampaigns(campaigns...),
		registrations: newFakeRegistrations(regs...),
		history:       &fakeHistory{},
		dispatcher:    &recordingDispatcher{},
	}
	f.checkins = NewCheckinService(CheckinDependencies{
		RegistrationRepo: f.registrations,
		HistoryRepo:      f.history,
		Assigner:         queue.NewDatabaseAssigner(f.registrations),
		Dispatcher:       f.dispatcher,
		Clock:            fixedClock,
	})
	return f
}

func activeCampaign(id string) domain.Campaign {
	hospital := "hospital-1"
	return domain.Campaign{ID: id, HospitalID: &hospital, Name: "Spring drive", Status: domain.CampaignStatusActive, Location: "Hall A"}
}

func booked(id, campaignID, userID string, createdAt time.Time) domain.Registration {
	return domain.Registration{
		ID:         id,
		CampaignID: campaignID,
		UserID:     userID,
		Status:     domain.RegistrationStatusBooked,
		CreatedAt:  createdAt,
	}
}

func checkedIn(id, campaignID, userID string, queueNumber int) domain.Registration {
	n := queueNumber
	at := fixedNow.Add(-time.Hour).UTC()
	return domain.Registration{
		ID:          id,
		CampaignID:  campaignID,
		UserID:      userID,
		Status:      domain.RegistrationStatusCheckedIn,
		QueueNumber: &n,
		CheckInTime: &at,
	}
}

func withStatus(reg domain.Registration, raw string) domain.Registration {
	reg.SetStatusFromStorage(raw)
	return reg
}
