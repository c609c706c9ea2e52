package services

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"strings"
	"time"

	"booker/internal/domain"
	"booker/internal/domain/models"
	"booker/internal/events"
	"booker/internal/utils"
)

// TaskBook is the caller-facing side of booking_tasks.
type TaskBook interface {
	Create(in models.TaskCreate, now time.Time) (models.BookingTask, error)
	GetByID(id int64) (models.BookingTask, error)
	ListByUser(userID int64) ([]models.BookingTask, error)
	Cancel(id, userID int64, now time.Time) (bool, error)
}

// TaskInput is what an API caller sends to schedule a booking.
type TaskInput struct {
	Origin         string    `json:"origin"`
	Destination    string    `json:"destination"`
	TravelDate     string    `json:"travel_date"`
	ServiceCode    string    `json:"service_code"`
	SeatPreference string    `json:"seat_preference"`
	TriggerTime    time.Time `json:"trigger_time"`
}

type TaskService struct {
	Tasks  TaskBook
	Events events.Publisher
	Now    func() time.Time
}

func (s TaskService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s TaskService) publisher() events.Publisher {
	if s.Events != nil {
		return s.Events
	}
	return events.Noop{}
}

// Create validates the request and stores a pending task. A zero trigger
// time means "as soon as the scheduler next polls".
func (s TaskService) Create(ctx context.Context, userID int64, in TaskInput) (models.BookingTask, error) {
	now := s.now()
	create, err := validateTask(userID, in, now)
	if err != nil {
		return models.BookingTask{}, err
	}

	task, err := s.Tasks.Create(create, now)
	if err != nil {
		return models.BookingTask{}, err
	}
	log.Printf("[Tasks] created task=%d user=%d route=%s-%s date=%s trigger=%s",
		task.ID, userID, task.Origin, task.Destination, task.TravelDate, task.TriggerTime.Format(time.RFC3339))

	_ = s.publisher().Publish(ctx, events.Status{
		TaskID: task.ID, UserID: userID, Status: string(task.Status), TriggerTime: task.TriggerTime, At: now,
	})
	return task, nil
}

// Get returns a task only to its owner.
func (s TaskService) Get(userID, id int64) (models.BookingTask, error) {
	task, err := s.Tasks.GetByID(id)
	if err != nil {
		if isMissing(err) {
			return models.BookingTask{}, domain.NotFoundError{Resource: "task", Err: err}
		}
		return models.BookingTask{}, err
	}
	if task.UserID != userID {
		return models.BookingTask{}, domain.ForbiddenError{Resource: "task"}
	}
	return task, nil
}

func (s TaskService) List(userID int64) ([]models.BookingTask, error) {
	return s.Tasks.ListByUser(userID)
}

// Cancel fails a pending task on the owner's request. Tasks already picked up
// by the scheduler can no longer be cancelled.
func (s TaskService) Cancel(ctx context.Context, userID, id int64) (models.BookingTask, error) {
	task, err := s.Get(userID, id)
	if err != nil {
		return models.BookingTask{}, err
	}
	ok, err := s.Tasks.Cancel(id, userID, s.now())
	if err != nil {
		return models.BookingTask{}, err
	}
	if !ok {
		return task, domain.ConflictError{Resource: "task", Msg: "status " + string(task.Status) + " tidak bisa dibatalkan"}
	}
	task, err = s.Tasks.GetByID(id)
	if err != nil {
		return models.BookingTask{}, err
	}
	log.Printf("[Tasks] cancelled task=%d user=%d", id, userID)
	_ = s.publisher().Publish(ctx, events.Status{
		TaskID: id, UserID: userID, Status: string(task.Status), Attempts: task.Attempts, LastError: task.LastError, At: s.now(),
	})
	return task, nil
}

func validateTask(userID int64, in TaskInput, now time.Time) (models.TaskCreate, error) {
	origin, ok := models.StationValue(in.Origin)
	if !ok {
		return models.TaskCreate{}, domain.ValidationError{Field: "origin", Msg: "stasiun tidak dikenal"}
	}
	dest, ok := models.StationValue(in.Destination)
	if !ok {
		return models.TaskCreate{}, domain.ValidationError{Field: "destination", Msg: "stasiun tidak dikenal"}
	}
	if origin == dest {
		return models.TaskCreate{}, domain.ValidationError{Field: "destination", Msg: "harus berbeda dengan origin"}
	}

	date, err := utils.ParseTravelDate(in.TravelDate)
	if err != nil {
		return models.TaskCreate{}, domain.ValidationError{Field: "travel_date", Msg: "format YYYY/MM/DD", Err: err}
	}
	if date.Before(utils.PortalToday(now)) {
		return models.TaskCreate{}, domain.ValidationError{Field: "travel_date", Msg: "tanggal sudah lewat"}
	}

	code := strings.TrimSpace(in.ServiceCode)
	for _, r := range code {
		if r < '0' || r > '9' {
			return models.TaskCreate{}, domain.ValidationError{Field: "service_code", Msg: "hanya angka"}
		}
	}

	trigger := in.TriggerTime
	if trigger.IsZero() {
		trigger = now
	}

	return models.TaskCreate{
		UserID:         userID,
		Origin:         strings.TrimSpace(in.Origin),
		Destination:    strings.TrimSpace(in.Destination),
		TravelDate:     utils.FormatTravelDate(date),
		ServiceCode:    code,
		SeatPreference: models.ParseSeatPreference(in.SeatPreference),
		TriggerTime:    trigger,
	}, nil
}

func isMissing(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || domain.IsNotFound(err)
}
