package models

import (
	"strings"
	"time"
)

// TaskStatus is the lifecycle state of a scheduled booking task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskProcessing TaskStatus = "processing"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
)

// Terminal reports whether the status is never revisited.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed
}

// SeatPreference maps to the portal's seat radio group.
type SeatPreference string

const (
	SeatNone   SeatPreference = "none"
	SeatWindow SeatPreference = "window"
	SeatAisle  SeatPreference = "aisle"
)

// ParseSeatPreference accepts any casing; unknown values fall back to none.
func ParseSeatPreference(s string) SeatPreference {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "window":
		return SeatWindow
	case "aisle":
		return SeatAisle
	default:
		return SeatNone
	}
}

// BookingTask is one scheduled (or re-armed) purchase attempt.
type BookingTask struct {
	ID               int64          `json:"id"`
	UserID           int64          `json:"user_id"`
	Origin           string         `json:"origin"`
	Destination      string         `json:"destination"`
	TravelDate       string         `json:"travel_date"` // YYYY/MM/DD, the portal's format
	ServiceCode      string         `json:"service_code,omitempty"`
	SeatPreference   SeatPreference `json:"seat_preference"`
	TriggerTime      time.Time      `json:"trigger_time"`
	FirstAttemptedAt *time.Time     `json:"first_attempted_at,omitempty"`
	Attempts         int            `json:"attempts"`
	Status           TaskStatus     `json:"status"`
	LastError        string         `json:"last_error,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// TaskCreate carries the fields a caller supplies when scheduling a task.
type TaskCreate struct {
	UserID         int64
	Origin         string
	Destination    string
	TravelDate     string
	ServiceCode    string
	SeatPreference SeatPreference
	TriggerTime    time.Time
}

// SearchRequest is the input of the search stage.
type SearchRequest struct {
	Origin         string
	Destination    string
	TravelDate     string
	DepartureTime  string
	ServiceCode    string
	SeatPreference SeatPreference
	TicketCount    int
}

// TrainService is one row of the train-selection page.
type TrainService struct {
	Code      string `json:"code"`
	Departure string `json:"departure"`
	Arrival   string `json:"arrival"`
	Duration  string `json:"duration"`
	Discount  string `json:"discount,omitempty"`
}

// Label renders the row the way the portal lists it.
func (s TrainService) Label() string {
	out := s.Departure + " -> " + s.Arrival + " | " + s.Code
	if s.Discount != "" {
		out += " (" + s.Discount + ")"
	}
	return out
}
