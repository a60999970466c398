package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aniladanir/lead-funnel/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDriver struct {
	mtx    sync.Mutex
	leads  []domain.Lead
	errs   map[int]error
	fired  []int
	limits []int
	block  chan struct{}
}

func (d *fakeDriver) DueForNudge(_ context.Context, _ time.Time, limit int) ([]domain.Lead, error) {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	d.limits = append(d.limits, limit)
	if len(d.leads) > limit {
		return d.leads[:limit], nil
	}
	return d.leads, nil
}

func (d *fakeDriver) FireNudge(_ context.Context, id int) error {
	if d.block != nil {
		<-d.block
	}
	d.mtx.Lock()
	defer d.mtx.Unlock()
	d.fired = append(d.fired, id)
	if id == 13 {
		panic("unlucky")
	}
	return d.errs[id]
}

func (d *fakeDriver) Fired() []int {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	return append([]int(nil), d.fired...)
}

func TestNewNudgeScheduler_InvalidInterval(t *testing.T) {
	_, err := NewNudgeScheduler(&fakeDriver{}, discard, 0, 50, nil)
	assert.Error(t, err)
}

func TestTick_IsolatesFailures(t *testing.T) {
	driver := &fakeDriver{
		leads: []domain.Lead{{ID: 1}, {ID: 2}, {ID: 13}, {ID: 3}, {ID: 4}},
		errs: map[int]error{
			2: errors.New("db gone"),
			3: domain.ErrNotDue,
		},
	}
	s, err := NewNudgeScheduler(driver, discard, time.Minute, 50, nil)
	require.NoError(t, err)

	result := s.Tick(context.Background())

	assert.Equal(t, []int{1, 2, 13, 3, 4}, driver.Fired())
	assert.Equal(t, TickResult{Due: 5, Fired: 2, Skipped: 1, Failed: 2}, result)
}

func TestTick_BatchLimit(t *testing.T) {
	driver := &fakeDriver{}
	for i := 1; i <= 60; i++ {
		driver.leads = append(driver.leads, domain.Lead{ID: i})
	}
	s, err := NewNudgeScheduler(driver, discard, time.Minute, 0, nil)
	require.NoError(t, err)

	result := s.Tick(context.Background())

	assert.Equal(t, DefaultBatchSize, result.Due)
	assert.Equal(t, []int{DefaultBatchSize}, driver.limits)
	assert.Len(t, driver.Fired(), DefaultBatchSize)
}

func TestStartStop(t *testing.T) {
	driver := &fakeDriver{leads: []domain.Lead{{ID: 1}}}
	s, err := NewNudgeScheduler(driver, discard, time.Hour, 50, nil)
	require.NoError(t, err)

	s.Start()
	s.Start()
	assert.True(t, s.Running())

	require.Eventually(t, func() bool { return len(driver.Fired()) == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, s.Stop(context.Background()))
	assert.False(t, s.Running())
	require.NoError(t, s.Stop(context.Background()))

	// restart runs the initial tick again
	s.Start()
	require.Eventually(t, func() bool { return len(driver.Fired()) == 2 }, time.Second, 10*time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))
}

func TestStop_TimesOutOnStuckTick(t *testing.T) {
	driver := &fakeDriver{leads: []domain.Lead{{ID: 1}}, block: make(chan struct{})}
	defer close(driver.block)
	s, err := NewNudgeScheduler(driver, discard, time.Hour, 50, nil)
	require.NoError(t, err)

	s.Start()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err = s.Stop(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, s.Running())
}

// A due lead is nudged once, then only again after a full interval, and a
// scheduled lead drops out for good.
func TestTick_NudgeLifecycle(t *testing.T) {
	f := newFixture(t, bookingURL, Options{AdvanceOnSendFailure: true})
	ctx := context.Background()
	s, err := NewNudgeScheduler(f.svc, discard, time.Minute, 50, f.clock.Now)
	require.NoError(t, err)

	alice, err := f.svc.CreateLead(ctx, CreateLeadInput{Name: "Alice", Phone: str("+15551234567")})
	require.NoError(t, err)
	bob, err := f.svc.CreateLead(ctx, CreateLeadInput{Name: "Bob", Email: str("bob@example.com")})
	require.NoError(t, err)
	f.gw.Reset()

	assert.Equal(t, TickResult{}, s.Tick(ctx))

	// five minutes past due
	f.clock.Advance(245 * time.Minute)
	result := s.Tick(ctx)
	assert.Equal(t, TickResult{Due: 2, Fired: 2}, result)
	assert.Len(t, f.gw.Sent(), 2)

	got, _ := f.svc.GetLead(ctx, alice.ID)
	assert.Equal(t, 1, got.NudgesSent)

	// not due again until a full interval has passed
	f.clock.Advance(239 * time.Minute)
	assert.Equal(t, 0, s.Tick(ctx).Due)
	f.clock.Advance(time.Minute)
	assert.Equal(t, 2, s.Tick(ctx).Fired)

	_, err = f.svc.MarkScheduled(ctx, bob.ID, "https://meet.example.com/bob", nil)
	require.NoError(t, err)

	// bob's next_nudge_at is now stale in the past but he is terminal
	f.clock.Advance(24 * time.Hour)
	due, err := f.svc.DueForNudge(ctx, f.clock.Now(), 50)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, alice.ID, due[0].ID)

	result = s.Tick(ctx)
	assert.Equal(t, TickResult{Due: 1, Fired: 1}, result)

	got, _ = f.svc.GetLead(ctx, bob.ID)
	assert.Equal(t, 2, got.NudgesSent)
	assert.Equal(t, domain.LeadScheduled, got.Status)
}
