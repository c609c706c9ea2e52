package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"booker/internal/browser"
	"booker/internal/browser/browsertest"
	"booker/internal/domain"
	"booker/internal/domain/models"
	"booker/internal/portal"
)

type fakeStages struct {
	mu       sync.Mutex
	search   portal.SearchResult
	sel      portal.SelectionResult
	pass     *domain.BookingError
	conf     models.Confirmation
	confErr  *domain.BookingError
	panicOn  string
	selected []string
	searched []models.SearchRequest
}

func okStages(services ...string) *fakeStages {
	list := []models.TrainService{}
	for _, c := range services {
		list = append(list, models.TrainService{Code: c, Departure: "10:11", Arrival: "11:45"})
	}
	return &fakeStages{
		search: portal.SearchResult{Outcome: portal.SearchFound, Services: list},
		sel:    portal.SelectionResult{Outcome: portal.SelectionSuccess},
		conf: models.Confirmation{
			ReservationCode: "02915121", Price: "TWD 1,490", Seats: []string{"5車17E"},
			PaymentStatus: "未付款", ServiceCode: "657", TravelDate: "2026/10/21",
			Departure: "15:46", Arrival: "17:45",
		},
	}
}

func (f *fakeStages) Search(ctx context.Context, page browser.Page, req models.SearchRequest) portal.SearchResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicOn == "search" {
		panic("driver crashed")
	}
	f.searched = append(f.searched, req)
	return f.search
}

func (f *fakeStages) SelectService(ctx context.Context, page browser.Page, code string) portal.SelectionResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selected = append(f.selected, code)
	return f.sel
}

func (f *fakeStages) SubmitPassenger(ctx context.Context, page browser.Page, p models.PassengerProfile) *domain.BookingError {
	return f.pass
}

func (f *fakeStages) ExtractResult(ctx context.Context, page browser.Page) (models.Confirmation, *domain.BookingError) {
	if f.confErr != nil {
		return models.Confirmation{}, f.confErr
	}
	return f.conf, nil
}

type fakeProfiles struct {
	profile *models.PassengerProfile
	err     error
}

func (f fakeProfiles) Get(userID int64) (*models.PassengerProfile, error) {
	if f.profile == nil || f.err != nil {
		return nil, f.err
	}
	p := *f.profile
	p.UserID = userID
	return &p, nil
}

func withProfile() fakeProfiles {
	return fakeProfiles{profile: &models.PassengerProfile{NationalID: "A123456789", LoyaltyID: "same"}}
}

func fakeLauncher() *browsertest.Launcher {
	return &browsertest.Launcher{NewFn: func() *browsertest.Page {
		return browsertest.NewPage(browsertest.Fixture{URL: "about:blank"})
	}}
}

// clock is a settable time source shared by the coordinator and the store.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

// memTasks mirrors the conditional updates of TaskRepository in memory.
type memTasks struct {
	mu      sync.Mutex
	tasks   map[int64]*models.BookingTask
	tickets []models.Ticket
	nextID  int64
	loadErr error
	saveErr error
}

func newMemTasks() *memTasks {
	return &memTasks{tasks: map[int64]*models.BookingTask{}}
}

func (m *memTasks) add(t models.BookingTask) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	t.ID = m.nextID
	if t.Status == "" {
		t.Status = models.TaskPending
	}
	m.tasks[t.ID] = &t
	return t.ID
}

func (m *memTasks) get(id int64) models.BookingTask {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.tasks[id]
}

func (m *memTasks) Create(in models.TaskCreate, now time.Time) (models.BookingTask, error) {
	id := m.add(models.BookingTask{
		UserID: in.UserID, Origin: in.Origin, Destination: in.Destination, TravelDate: in.TravelDate,
		ServiceCode: in.ServiceCode, SeatPreference: in.SeatPreference, TriggerTime: in.TriggerTime,
		CreatedAt: now, UpdatedAt: now,
	})
	return m.get(id), nil
}

func (m *memTasks) ListByUser(userID int64) ([]models.BookingTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.BookingTask{}
	for _, t := range m.tasks {
		if t.UserID == userID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memTasks) Cancel(id, userID int64, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok || t.UserID != userID || t.Status != models.TaskPending {
		return false, nil
	}
	t.Status = models.TaskFailed
	t.LastError = "cancelled by user"
	return true, nil
}

func (m *memTasks) ListDueIDs(now time.Time, limit int) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int64
	for id, t := range m.tasks {
		if t.Status == models.TaskPending && !t.TriggerTime.After(now) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (m *memTasks) Claim(id int64, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok || t.Status != models.TaskPending {
		return false, nil
	}
	t.Status = models.TaskProcessing
	if t.FirstAttemptedAt == nil {
		first := now
		t.FirstAttemptedAt = &first
	}
	t.Attempts++
	return true, nil
}

func (m *memTasks) GetByID(id int64) (models.BookingTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return models.BookingTask{}, m.loadErr
	}
	t, ok := m.tasks[id]
	if !ok {
		return models.BookingTask{}, domain.NotFoundError{Resource: "task"}
	}
	return *t, nil
}

func (m *memTasks) Rearm(id int64, next time.Time, lastErr string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.tasks[id]
	if t == nil || t.Status != models.TaskProcessing {
		return false, nil
	}
	t.Status, t.TriggerTime, t.LastError = models.TaskPending, next, lastErr
	return true, nil
}

func (m *memTasks) RearmWithin(id int64, next time.Time, lastErr string, windowStart, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.tasks[id]
	if t == nil || t.Status != models.TaskProcessing || t.FirstAttemptedAt == nil || !t.FirstAttemptedAt.After(windowStart) {
		return false, nil
	}
	t.Status, t.TriggerTime, t.LastError = models.TaskPending, next, lastErr
	return true, nil
}

func (m *memTasks) Fail(id int64, lastErr string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.tasks[id]
	if t == nil || t.Status != models.TaskProcessing {
		return false, nil
	}
	t.Status, t.LastError = models.TaskFailed, lastErr
	return true, nil
}

func (m *memTasks) Complete(id int64, ticket models.Ticket, now time.Time) (models.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.tasks[id]
	if t == nil || t.Status != models.TaskProcessing {
		return ticket, domain.ConflictError{Resource: "task"}
	}
	if m.saveErr != nil {
		return ticket, m.saveErr
	}
	t.Status, t.LastError = models.TaskCompleted, ""
	ticket.ID = int64(len(m.tickets) + 1)
	ticket.TaskID = &id
	m.tickets = append(m.tickets, ticket)
	return ticket, nil
}

func (m *memTasks) RecoverStale(now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, t := range m.tasks {
		if t.Status == models.TaskProcessing {
			t.Status = models.TaskPending
			t.TriggerTime = now
			n++
		}
	}
	return n, nil
}

// scriptedRunner returns queued errors in order; nil means success.
type scriptedRunner struct {
	mu      sync.Mutex
	results []error
	calls   int
	block   chan struct{}
	started chan int64
}

func (r *scriptedRunner) Run(ctx context.Context, userID int64, req models.SearchRequest) (models.Confirmation, error) {
	if r.started != nil {
		r.started <- userID
	}
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var err error
	if r.calls < len(r.results) {
		err = r.results[r.calls]
	}
	r.calls++
	if err != nil {
		return models.Confirmation{}, err
	}
	return models.Confirmation{ReservationCode: "02915121", Seats: []string{"5車17E"}}, nil
}
