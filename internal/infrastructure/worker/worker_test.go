package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/travel-reimbursement/internal/application/port/porttest"
	"github.com/garyjia/travel-reimbursement/internal/domain/entity"
)

// MockDeliverer fails the entries listed in failures
type MockDeliverer struct {
	mu        sync.Mutex
	failures  map[string]error
	delivered []string
}

func (m *MockDeliverer) Deliver(ctx context.Context, effect *entity.SideEffect) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures[effect.ID]; err != nil {
		return err
	}
	m.delivered = append(m.delivered, effect.ID)
	return nil
}

func (m *MockDeliverer) Delivered() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.delivered...)
}

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func enqueue(t *testing.T, outbox *porttest.SideEffects, id string, due time.Time) {
	t.Helper()
	require.NoError(t, outbox.Enqueue(context.Background(), &entity.SideEffect{
		ID:             id,
		IdempotencyKey: "snap:" + id,
		Effect:         entity.SideEffectNotify,
		ReportID:       "r1",
		Status:         entity.SideEffectStatusPending,
		NextAttemptAt:  due,
	}))
}

func newTestOutboxWorker(outbox *porttest.SideEffects, d Deliverer) *OutboxWorker {
	cfg := DefaultOutboxConfig()
	cfg.MaxAttempts = 3
	cfg.BaseBackoff = time.Minute
	cfg.MaxBackoff = 3 * time.Minute
	cfg.JitterPercent = 0
	w := NewOutboxWorker(cfg, outbox, d, zap.NewNop())
	w.now = func() time.Time { return t0 }
	return w
}

func byID(outbox *porttest.SideEffects) map[string]*entity.SideEffect {
	out := make(map[string]*entity.SideEffect)
	for _, e := range outbox.All() {
		out[e.ID] = e
	}
	return out
}

func TestOutboxWorker_ProcessDue(t *testing.T) {
	outbox := porttest.NewStore().SideEffects()
	enqueue(t, outbox, "ok", t0.Add(-time.Minute))
	enqueue(t, outbox, "flaky", t0.Add(-time.Second))
	enqueue(t, outbox, "later", t0.Add(time.Hour))

	deliverer := &MockDeliverer{failures: map[string]error{"flaky": errors.New("chat down")}}
	w := newTestOutboxWorker(outbox, deliverer)

	n, err := w.ProcessDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"ok"}, deliverer.Delivered())

	entries := byID(outbox)
	assert.Equal(t, entity.SideEffectStatusDone, entries["ok"].Status)
	assert.Equal(t, entity.SideEffectStatusPending, entries["flaky"].Status)
	assert.Equal(t, 1, entries["flaky"].Attempts)
	assert.Equal(t, "chat down", entries["flaky"].LastError)
	assert.Equal(t, t0.Add(time.Minute), entries["flaky"].NextAttemptAt)
	assert.Equal(t, entity.SideEffectStatusPending, entries["later"].Status)

	stats := w.Stats()
	assert.Equal(t, 1, stats.Delivered)
	assert.Equal(t, 1, stats.Retried)
	assert.Equal(t, t0, stats.LastRun)
}

func TestOutboxWorker_GivesUpAfterMaxAttempts(t *testing.T) {
	outbox := porttest.NewStore().SideEffects()
	enqueue(t, outbox, "broken", t0)

	deliverer := &MockDeliverer{failures: map[string]error{"broken": errors.New("disk full")}}
	w := newTestOutboxWorker(outbox, deliverer)

	for i := 0; i < 3; i++ {
		w.now = func() time.Time { return t0.Add(24 * time.Hour * time.Duration(i)) }
		n, err := w.ProcessDue(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, n, "attempt %d", i+1)
	}

	entry := byID(outbox)["broken"]
	assert.Equal(t, entity.SideEffectStatusDead, entry.Status)
	assert.Equal(t, 3, entry.Attempts)

	w.now = func() time.Time { return t0.Add(30 * 24 * time.Hour) }
	n, err := w.ProcessDue(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "dead entries are not retried")
	assert.Equal(t, 1, w.Stats().Dead)
}

func TestOutboxWorker_Backoff(t *testing.T) {
	w := newTestOutboxWorker(porttest.NewStore().SideEffects(), &MockDeliverer{})

	assert.Equal(t, time.Minute, w.backoff(1))
	assert.Equal(t, 2*time.Minute, w.backoff(2))
	assert.Equal(t, 3*time.Minute, w.backoff(3), "capped")
	assert.Equal(t, 3*time.Minute, w.backoff(10))
}

func TestOutboxWorker_BackoffJitter(t *testing.T) {
	w := newTestOutboxWorker(porttest.NewStore().SideEffects(), &MockDeliverer{})
	w.config.JitterPercent = 20

	spread := make(map[time.Duration]bool)
	for i := 0; i < 50; i++ {
		d := w.backoff(1)
		assert.GreaterOrEqual(t, d, 48*time.Second)
		assert.LessOrEqual(t, d, 72*time.Second)
		spread[d] = true

		assert.LessOrEqual(t, w.backoff(10), 3*time.Minute, "jitter never exceeds the cap")
	}
	assert.Greater(t, len(spread), 1, "delays are spread")
}

func TestOutboxWorker_StartStop(t *testing.T) {
	outbox := porttest.NewStore().SideEffects()
	enqueue(t, outbox, "ok", time.Now().Add(-time.Minute))

	deliverer := &MockDeliverer{}
	cfg := DefaultOutboxConfig()
	cfg.PollInterval = 10 * time.Millisecond
	w := NewOutboxWorker(cfg, outbox, deliverer, zap.NewNop())

	require.NoError(t, w.Start(context.Background()))
	assert.Error(t, w.Start(context.Background()), "already running")

	assert.Eventually(t, func() bool {
		return len(deliverer.Delivered()) == 1
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop(), "stopping twice is harmless")
}

type mockWorker struct {
	name             string
	startErr         error
	stopErr          error
	started, stopped bool
}

func (m *mockWorker) Start(ctx context.Context) error {
	m.started = m.startErr == nil
	return m.startErr
}

func (m *mockWorker) Stop() error {
	m.stopped = true
	return m.stopErr
}

func (m *mockWorker) Name() string { return m.name }

func TestManager(t *testing.T) {
	m := NewManager(zap.NewNop())
	good := &mockWorker{name: "good"}
	broken := &mockWorker{name: "broken", startErr: errors.New("no db"), stopErr: errors.New("stuck")}
	m.Register(good)
	m.Register(broken)
	assert.Equal(t, 2, m.Count())

	require.NoError(t, m.StartAll(context.Background()))
	assert.True(t, m.IsRunning())
	assert.True(t, good.started)
	assert.False(t, broken.started)
	assert.Error(t, m.StartAll(context.Background()))

	err := m.StopAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
	assert.True(t, good.stopped)
	assert.False(t, m.IsRunning())

	assert.NoError(t, m.StopAll())
}
