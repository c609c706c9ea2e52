package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booker/internal/config"
	"booker/internal/domain"
	"booker/internal/domain/models"
	"booker/internal/events"
)

var t0 = time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)

func testCfg() config.Booking {
	cfg := config.DefaultBooking()
	cfg.PoolSize = 2
	cfg.RetryInterval = 30 * time.Second
	cfg.MaxRetryWindow = 30 * time.Minute
	return cfg
}

func retryable() error {
	return domain.NewBookingError(domain.KindCaptchaExhausted, "captcha retries exhausted", nil)
}

func dueTask(trigger time.Time) models.BookingTask {
	return models.BookingTask{UserID: 7, Origin: "台北", Destination: "左營", TravelDate: "2026/10/21", ServiceCode: "0657", TriggerTime: trigger}
}

func TestCoordinator_DueTaskBecomesProcessing(t *testing.T) {
	store := newMemTasks()
	clk := &clock{t: t0}
	id := store.add(dueTask(t0.Add(-time.Minute)))
	future := store.add(dueTask(t0.Add(time.Hour)))

	runner := &scriptedRunner{block: make(chan struct{}), started: make(chan int64, 1)}
	c := &Coordinator{Tasks: store, Runner: runner, Cfg: testCfg(), Now: clk.Now}

	c.Tick(context.Background())
	<-runner.started

	got := store.get(id)
	assert.Equal(t, models.TaskProcessing, got.Status)
	require.NotNil(t, got.FirstAttemptedAt)
	assert.Equal(t, t0, *got.FirstAttemptedAt)
	assert.Equal(t, models.TaskPending, store.get(future).Status)

	// A second tick while the attempt runs must not dispatch it again.
	c.Tick(context.Background())
	close(runner.block)
	c.Wait()

	assert.Equal(t, 1, runner.calls)
	assert.Equal(t, models.TaskCompleted, store.get(id).Status)
	require.Len(t, store.tickets, 1)
	assert.Equal(t, "02915121", store.tickets[0].ReservationCode)
	assert.Equal(t, "台北", store.tickets[0].Origin)
}

func TestCoordinator_FailsOnceWindowElapsed(t *testing.T) {
	store := newMemTasks()
	clk := &clock{t: t0}
	id := store.add(dueTask(t0))
	runner := &scriptedRunner{results: []error{retryable(), retryable(), retryable(), retryable()}}
	c := &Coordinator{Tasks: store, Runner: runner, Cfg: testCfg(), Now: clk.Now}

	// Three failures 30s apart stay inside the window and re-arm.
	for i := 0; i < 3; i++ {
		c.Tick(context.Background())
		c.Wait()
		got := store.get(id)
		require.Equal(t, models.TaskPending, got.Status, "attempt %d", i+1)
		assert.Equal(t, clk.Now().Add(30*time.Second), got.TriggerTime)
		assert.Equal(t, t0, *got.FirstAttemptedAt, "first_attempted_at must not move")
		assert.Contains(t, got.LastError, "captcha_exhausted")
		clk.Set(got.TriggerTime)
	}

	// Next attempt happens after the window: terminal failure, no re-arm.
	clk.Set(t0.Add(30*time.Minute + time.Second))
	c.Tick(context.Background())
	c.Wait()

	got := store.get(id)
	assert.Equal(t, models.TaskFailed, got.Status)
	assert.Equal(t, 4, got.Attempts)
	assert.Equal(t, t0, *got.FirstAttemptedAt)
}

func TestCoordinator_UnreadableTaskStopsAfterWindow(t *testing.T) {
	store := newMemTasks()
	store.loadErr = errors.New("driver: bad connection")
	clk := &clock{t: t0}
	id := store.add(dueTask(t0))
	runner := &scriptedRunner{}
	c := &Coordinator{Tasks: store, Runner: runner, Cfg: testCfg(), Now: clk.Now}

	c.Tick(context.Background())
	c.Wait()
	got := store.get(id)
	require.Equal(t, models.TaskPending, got.Status)
	assert.Equal(t, t0.Add(30*time.Second), got.TriggerTime)
	assert.Contains(t, got.LastError, "bad connection")

	clk.Set(t0.Add(30 * time.Minute))
	c.Tick(context.Background())
	c.Wait()

	got = store.get(id)
	assert.Equal(t, models.TaskFailed, got.Status)
	assert.Equal(t, 2, got.Attempts)
	assert.Zero(t, runner.calls)
}

func TestCoordinator_BookedButNotSavedFailsWithReservation(t *testing.T) {
	store := newMemTasks()
	store.saveErr = errors.New("deadlock")
	clk := &clock{t: t0}
	id := store.add(dueTask(t0))
	c := &Coordinator{Tasks: store, Runner: &scriptedRunner{}, Cfg: testCfg(), Now: clk.Now}

	c.Tick(context.Background())
	c.Wait()

	got := store.get(id)
	assert.Equal(t, models.TaskFailed, got.Status, "a held seat must not be booked again")
	assert.Contains(t, got.LastError, "booked 02915121 but saving the ticket failed")
	assert.Contains(t, got.LastError, "deadlock")
}

func TestCoordinator_ProfileMissingIsTerminal(t *testing.T) {
	store := newMemTasks()
	clk := &clock{t: t0}
	id := store.add(dueTask(t0))
	runner := &scriptedRunner{results: []error{domain.NewBookingError(domain.KindProfileMissing, "no passenger profile for user", nil)}}
	c := &Coordinator{Tasks: store, Runner: runner, Cfg: testCfg(), Now: clk.Now}

	c.Tick(context.Background())
	c.Wait()

	got := store.get(id)
	assert.Equal(t, models.TaskFailed, got.Status)
	assert.Contains(t, got.LastError, "profile_missing")
}

func TestCoordinator_PoolLimitsClaims(t *testing.T) {
	store := newMemTasks()
	clk := &clock{t: t0}
	for i := 0; i < 3; i++ {
		store.add(dueTask(t0))
	}
	runner := &scriptedRunner{block: make(chan struct{}), started: make(chan int64, 3)}
	c := &Coordinator{Tasks: store, Runner: runner, Cfg: testCfg(), Now: clk.Now}

	c.Tick(context.Background())
	<-runner.started
	<-runner.started

	c.Tick(context.Background())
	assert.Equal(t, models.TaskPending, store.get(3).Status, "pool is full")

	close(runner.block)
	c.Wait()
	c.Tick(context.Background())
	c.Wait()
	assert.Equal(t, models.TaskCompleted, store.get(3).Status)
}

func TestCoordinator_PublishesTransitions(t *testing.T) {
	store := newMemTasks()
	clk := &clock{t: t0}
	id := store.add(dueTask(t0))
	hub := events.NewHub()
	sub, cancel := hub.Subscribe(id)
	defer cancel()

	c := &Coordinator{Tasks: store, Runner: &scriptedRunner{}, Events: hub, Cfg: testCfg(), Now: clk.Now}
	c.Tick(context.Background())
	c.Wait()

	first := <-sub
	second := <-sub
	assert.Equal(t, "processing", first.Status)
	assert.Equal(t, "completed", second.Status)
	assert.Equal(t, "02915121", second.Reservation)
}

func TestCoordinator_StartRecoversStale(t *testing.T) {
	store := newMemTasks()
	clk := &clock{t: t0}
	stale := dueTask(t0.Add(-time.Hour))
	stale.Status = models.TaskProcessing
	id := store.add(stale)

	cfg := testCfg()
	cfg.PollInterval = time.Hour
	c := &Coordinator{Tasks: store, Runner: &scriptedRunner{}, Cfg: cfg, Now: clk.Now}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	require.Eventually(t, func() bool { return store.get(id).Status == models.TaskCompleted }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
	require.NoError(t, c.Shutdown(context.Background()))
}

func TestDecideAfterFailure(t *testing.T) {
	window, interval := 30*time.Minute, 30*time.Second

	next, rearm := decideAfterFailure(t0.Add(29*time.Minute), t0, retryable(), window, interval)
	assert.True(t, rearm)
	assert.Equal(t, t0.Add(29*time.Minute+30*time.Second), next)

	_, rearm = decideAfterFailure(t0.Add(window), t0, retryable(), window, interval)
	assert.False(t, rearm, "elapsed == window is out")

	_, rearm = decideAfterFailure(t0, t0, domain.NewBookingError(domain.KindProfileMissing, "", nil), window, interval)
	assert.False(t, rearm)
}

// No re-arm ever lands further than window+interval past the first attempt.
func TestDecideAfterFailure_OvershootBound(t *testing.T) {
	window, interval := 30*time.Minute, 30*time.Second
	for elapsed := time.Duration(0); elapsed <= 40*time.Minute; elapsed += 7 * time.Second {
		next, rearm := decideAfterFailure(t0.Add(elapsed), t0, retryable(), window, interval)
		if !rearm {
			continue
		}
		assert.LessOrEqual(t, next.Sub(t0), window+interval, "elapsed=%s", elapsed)
	}
}
