package realtime

import (
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/blood-drive-checkin/internal/observability"
)

type fakeSubscriber struct {
	id      string
	mu      sync.Mutex
	got     [][]byte
	sendErr error
	closed  int
}

func (f *fakeSubscriber) ID() string { return f.id }

func (f *fakeSubscriber) Send(payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.got = append(f.got, payload)
	return nil
}

func (f *fakeSubscriber) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func TestHub_BroadcastReachesCampaignSubscribersOnly(t *testing.T) {
	hub := NewHub(nil, nil)
	a1 := &fakeSubscriber{id: "a1"}
	a2 := &fakeSubscriber{id: "a2"}
	b1 := &fakeSubscriber{id: "b1"}
	hub.Join("camp-a", a1)
	hub.Join("camp-a", a2)
	hub.Join("camp-b", b1)

	hub.Broadcast("camp-a", []byte(`{"n":1}`))

	assert.Equal(t, [][]byte{[]byte(`{"n":1}`)}, a1.got)
	assert.Equal(t, [][]byte{[]byte(`{"n":1}`)}, a2.got)
	assert.Empty(t, b1.got)
	assert.Equal(t, []string{"camp-a", "camp-b"}, hub.Campaigns())
}

func TestHub_FailingSubscriberIsDropped(t *testing.T) {
	hub := NewHub(nil, nil)
	healthy := &fakeSubscriber{id: "ok"}
	broken := &fakeSubscriber{id: "broken", sendErr: errors.New("broken pipe")}
	hub.Join("camp-a", healthy)
	hub.Join("camp-a", broken)

	hub.Broadcast("camp-a", []byte("x"))

	assert.Equal(t, 1, hub.Subscribers("camp-a"))
	assert.Equal(t, 1, broken.closed)
	assert.Len(t, healthy.got, 1)
}

func TestHub_LeaveRemovesEmptyRooms(t *testing.T) {
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	hub := NewHub(nil, metrics)
	sub := &fakeSubscriber{id: "s"}

	hub.Join("camp-a", sub)
	assert.Equal(t, float64(1), subscriberGauge(t, metrics))

	hub.Leave("camp-a", sub)
	hub.Leave("camp-a", sub)

	assert.Empty(t, hub.Campaigns())
	assert.Equal(t, 1, sub.closed)
	assert.Equal(t, float64(0), subscriberGauge(t, metrics))
}

func subscriberGauge(t *testing.T, metrics *observability.Metrics) float64 {
	t.Helper()
	families, err := metrics.Registry().Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() == "checkin_kiosk_subscribers" {
			return family.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatal("kiosk subscriber gauge not registered")
	return 0
}
