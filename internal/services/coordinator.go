package services

import (
	"context"
	"log"
	"sync"
	"time"

	"booker/internal/config"
	"booker/internal/domain"
	"booker/internal/domain/models"
	"booker/internal/events"
)

// TaskStore is the coordinator's view of booking_tasks.
type TaskStore interface {
	ListDueIDs(now time.Time, limit int) ([]int64, error)
	Claim(id int64, now time.Time) (bool, error)
	GetByID(id int64) (models.BookingTask, error)
	Rearm(id int64, next time.Time, lastErr string, now time.Time) (bool, error)
	RearmWithin(id int64, next time.Time, lastErr string, windowStart, now time.Time) (bool, error)
	Fail(id int64, lastErr string, now time.Time) (bool, error)
	Complete(id int64, ticket models.Ticket, now time.Time) (models.Ticket, error)
	RecoverStale(now time.Time) (int64, error)
}

type Attempter interface {
	Run(ctx context.Context, userID int64, req models.SearchRequest) (models.Confirmation, error)
}

// CoordinatorMetrics is satisfied by *metrics.Metrics.
type CoordinatorMetrics interface {
	Attempt(outcome string, took time.Duration)
	Claimed()
	Rearmed()
	Finished(status string)
	PoolCapacity(n int)
	PoolAcquired()
	PoolReleased()
}

type noopCoordinatorMetrics struct{}

func (noopCoordinatorMetrics) Attempt(string, time.Duration) {}
func (noopCoordinatorMetrics) Claimed()                      {}
func (noopCoordinatorMetrics) Rearmed()                      {}
func (noopCoordinatorMetrics) Finished(string)               {}
func (noopCoordinatorMetrics) PoolCapacity(int)              {}
func (noopCoordinatorMetrics) PoolAcquired()                 {}
func (noopCoordinatorMetrics) PoolReleased()                 {}

// Coordinator wakes due tasks, claims them and runs each attempt on its own
// goroutine. The task row is the only state shared with attempts.
type Coordinator struct {
	Tasks   TaskStore
	Runner  Attempter
	Events  events.Publisher
	Metrics CoordinatorMetrics
	Cfg     config.Booking
	Now     func() time.Time

	startOnce sync.Once
	sem       chan struct{}
	wg        sync.WaitGroup

	mu     sync.Mutex
	cancel context.CancelFunc
}

func (c *Coordinator) init() {
	c.startOnce.Do(func() {
		size := c.Cfg.PoolSize
		if size <= 0 {
			size = 1
		}
		c.sem = make(chan struct{}, size)
		if c.Now == nil {
			c.Now = time.Now
		}
		if c.Events == nil {
			c.Events = events.Noop{}
		}
		if c.Metrics == nil {
			c.Metrics = noopCoordinatorMetrics{}
		}
		c.Metrics.PoolCapacity(size)
	})
}

// Start recovers tasks orphaned by a crash, then polls until ctx ends.
func (c *Coordinator) Start(ctx context.Context) error {
	c.init()
	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()

	if n, err := c.Tasks.RecoverStale(c.Now()); err != nil {
		log.Printf("[Scheduler] recover stale failed: %v", err)
	} else if n > 0 {
		log.Printf("[Scheduler] recovered %d task(s) left in processing", n)
	}

	interval := c.Cfg.PollInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("[Scheduler] started poll=%s pool=%d retry=%s window=%s", interval, cap(c.sem), c.Cfg.RetryInterval, c.Cfg.MaxRetryWindow)
	c.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Printf("[Scheduler] stopping")
			return ctx.Err()
		case <-ticker.C:
			c.Tick(ctx)
		}
	}
}

// Tick claims as many due tasks as there are free slots and dispatches them.
func (c *Coordinator) Tick(ctx context.Context) {
	c.init()
	available := cap(c.sem) - len(c.sem)
	if available <= 0 {
		return
	}
	now := c.Now()
	ids, err := c.Tasks.ListDueIDs(now, available)
	if err != nil {
		log.Printf("[Scheduler] list due failed: %v", err)
		return
	}

	// Attempts are not cancelled mid-flight; shutdown waits for them instead.
	runCtx := context.WithoutCancel(ctx)
	for _, id := range ids {
		won, err := c.Tasks.Claim(id, now)
		if err != nil {
			log.Printf("[Scheduler] claim failed task=%d err=%v", id, err)
			continue
		}
		if !won {
			continue
		}
		c.Metrics.Claimed()

		c.sem <- struct{}{}
		c.Metrics.PoolAcquired()
		c.wg.Add(1)
		go func(id int64) {
			defer func() {
				<-c.sem
				c.Metrics.PoolReleased()
				c.wg.Done()
			}()
			c.execute(runCtx, id)
		}(id)
	}
}

// Wait blocks until in-flight attempts finish.
func (c *Coordinator) Wait() { c.wg.Wait() }

// Shutdown stops polling and waits for running attempts until ctx expires.
// Whatever is still processing afterwards is recovered on next start.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Unlock()
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		log.Printf("[Scheduler] shutdown timeout, running attempts will be recovered on restart")
		return ctx.Err()
	}
}

func (c *Coordinator) execute(ctx context.Context, id int64) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Scheduler] attempt panic task=%d: %v", id, r)
			c.fail(ctx, models.BookingTask{ID: id}, "internal error during attempt")
		}
	}()

	task, err := c.Tasks.GetByID(id)
	if err != nil {
		log.Printf("[Scheduler] load task=%d failed: %v", id, err)
		c.afterLoadFailure(ctx, id, err)
		return
	}
	c.publish(ctx, task, models.TaskProcessing, "", "")

	started := c.Now()
	conf, err := c.Runner.Run(ctx, task.UserID, taskSearchRequest(task, c.Cfg.TicketCount))
	now := c.Now()

	if err == nil {
		c.Metrics.Attempt("success", now.Sub(started))
		c.complete(ctx, task, conf, now)
		return
	}

	kind := domain.BookingKind(err)
	if kind == "" {
		kind = domain.KindNetworkOrDriver
	}
	c.Metrics.Attempt(string(kind), now.Sub(started))

	first := now
	if task.FirstAttemptedAt != nil {
		first = *task.FirstAttemptedAt
	}
	next, rearm := decideAfterFailure(now, first, err, c.Cfg.MaxRetryWindow, c.Cfg.RetryInterval)
	log.Printf("[Scheduler] task=%d attempt=%d failed kind=%s elapsed=%s rearm=%v err=%v",
		task.ID, task.Attempts, kind, now.Sub(first).Round(time.Second), rearm, err)

	if !rearm {
		c.fail(ctx, task, err.Error())
		return
	}
	ok, werr := c.Tasks.Rearm(task.ID, next, err.Error(), now)
	if werr != nil || !ok {
		log.Printf("[Scheduler] rearm task=%d not applied ok=%v err=%v", task.ID, ok, werr)
		return
	}
	c.Metrics.Rearmed()
	task.TriggerTime = next
	c.publish(ctx, task, models.TaskPending, err.Error(), "")
}

// afterLoadFailure re-arms an unreadable task only while the first_attempted_at
// stamped by Claim is inside the retry window, and fails it afterwards.
func (c *Coordinator) afterLoadFailure(ctx context.Context, id int64, loadErr error) {
	now := c.Now()
	reason := "load task: " + loadErr.Error()
	ok, err := c.Tasks.RearmWithin(id, now.Add(c.Cfg.RetryInterval), reason, now.Add(-c.Cfg.MaxRetryWindow), now)
	if err != nil {
		log.Printf("[Scheduler] rearm task=%d after load failure: %v", id, err)
		return
	}
	if ok {
		c.Metrics.Rearmed()
		return
	}
	c.fail(ctx, models.BookingTask{ID: id}, reason)
}

func (c *Coordinator) complete(ctx context.Context, task models.BookingTask, conf models.Confirmation, now time.Time) {
	ticket := models.TicketFromConfirmation(task.UserID, task.Origin, task.Destination, conf)
	saved, err := c.Tasks.Complete(task.ID, ticket, now)
	if err != nil {
		// The seat is already held on the portal; retrying would book twice.
		ierr := domain.TicketNotSaved(conf.ReservationCode, err)
		log.Printf("[Scheduler] task=%d %v", task.ID, ierr)
		c.fail(ctx, task, ierr.Error())
		return
	}
	c.Metrics.Finished(string(models.TaskCompleted))
	log.Printf("[Scheduler] task=%d completed pnr=%s ticket=%d", task.ID, saved.ReservationCode, saved.ID)
	c.publish(ctx, task, models.TaskCompleted, "", saved.ReservationCode)
}

func (c *Coordinator) fail(ctx context.Context, task models.BookingTask, reason string) {
	ok, err := c.Tasks.Fail(task.ID, reason, c.Now())
	if err != nil || !ok {
		log.Printf("[Scheduler] fail task=%d not applied ok=%v err=%v", task.ID, ok, err)
		return
	}
	c.Metrics.Finished(string(models.TaskFailed))
	c.publish(ctx, task, models.TaskFailed, reason, "")
}

func (c *Coordinator) publish(ctx context.Context, task models.BookingTask, status models.TaskStatus, lastErr, pnr string) {
	_ = c.Events.Publish(ctx, events.Status{
		TaskID:      task.ID,
		UserID:      task.UserID,
		Status:      string(status),
		Attempts:    task.Attempts,
		LastError:   lastErr,
		TriggerTime: task.TriggerTime,
		Reservation: pnr,
		At:          c.Now(),
	})
}

// decideAfterFailure re-arms while the task is inside its retry window,
// anchored at first_attempted_at. Fatal errors never re-arm.
func decideAfterFailure(now, firstAttempted time.Time, err error, window, interval time.Duration) (time.Time, bool) {
	if domain.IsFatalBooking(err) {
		return time.Time{}, false
	}
	if now.Sub(firstAttempted) < window {
		return now.Add(interval), true
	}
	return time.Time{}, false
}

func taskSearchRequest(t models.BookingTask, tickets int) models.SearchRequest {
	if tickets <= 0 {
		tickets = 1
	}
	return models.SearchRequest{
		Origin:         t.Origin,
		Destination:    t.Destination,
		TravelDate:     t.TravelDate,
		DepartureTime:  "00:00",
		ServiceCode:    t.ServiceCode,
		SeatPreference: t.SeatPreference,
		TicketCount:    tickets,
	}
}
