package http

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/blood-drive-checkin/internal/domain"
	"github.com/spec-kit/blood-drive-checkin/internal/repository"
)

type memCampaigns map[string]domain.Campaign

func (m memCampaigns) GetByID(_ context.Context, id string) (*domain.Campaign, error) {
	c, ok := m[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &c, nil
}

type memRegistrations struct {
	mu    sync.Mutex
	items map[string]domain.Registration
	order []string
}

func newMemRegistrations(regs ...domain.Registration) *memRegistrations {
	m := &memRegistrations{items: make(map[string]domain.Registration)}
	for _, reg := range regs {
		reg.RawStatus = string(reg.Status)
		m.items[reg.ID] = reg
		m.order = append(m.order, reg.ID)
	}
	return m
}

func (m *memRegistrations) GetByID(_ context.Context, id string) (*domain.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	reg, ok := m.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &reg, nil
}

func (m *memRegistrations) ListByCampaign(_ context.Context, campaignID string) ([]domain.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Registration
	for _, id := range m.order {
		if reg := m.items[id]; reg.CampaignID == campaignID {
			out = append(out, reg)
		}
	}
	return out, nil
}

func (m *memRegistrations) MaxQueueNumber(_ context.Context, campaignID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	max := 0
	for _, reg := range m.items {
		if reg.CampaignID == campaignID && reg.QueueNumber != nil && *reg.QueueNumber > max {
			max = *reg.QueueNumber
		}
	}
	return max, nil
}

func (m *memRegistrations) MarkCheckedIn(_ context.Context, id string, queueNumber int, at time.Time) (*domain.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	reg, ok := m.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if reg.QueueNumber != nil {
		return nil, repository.ErrAlreadyCheckedIn
	}
	for _, other := range m.items {
		if other.CampaignID == reg.CampaignID && other.QueueNumber != nil && *other.QueueNumber == queueNumber {
			return nil, repository.ErrQueueNumberTaken
		}
	}
	n := queueNumber
	reg.Status = domain.RegistrationStatusCheckedIn
	reg.RawStatus = string(reg.Status)
	reg.QueueNumber = &n
	reg.CheckInTime = &at
	m.items[id] = reg
	return &reg, nil
}

func (m *memRegistrations) UpdateStatus(_ context.Context, id string, status domain.RegistrationStatus) (*domain.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	reg, ok := m.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	reg.Status = status
	reg.RawStatus = string(status)
	m.items[id] = reg
	return &reg, nil
}

type memHistory struct {
	mu      sync.Mutex
	entries []domain.RegistrationHistory
}

func (m *memHistory) Create(_ context.Context, h *domain.RegistrationHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, *h)
	return nil
}

func (m *memHistory) ListByRegistration(_ context.Context, registrationID string) ([]domain.RegistrationHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.RegistrationHistory
	for _, e := range m.entries {
		if e.RegistrationID == registrationID {
			out = append(out, e)
		}
	}
	return out, nil
}

type memDonors map[string]domain.Donor

func (m memDonors) GetByID(_ context.Context, id string) (*domain.Donor, error) {
	d, ok := m[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &d, nil
}

type memStaff map[string]domain.StaffMember

func (m memStaff) GetByID(_ context.Context, id string) (*domain.StaffMember, error) {
	s, ok := m[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &s, nil
}
