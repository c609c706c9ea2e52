package models

import (
	"strings"
	"time"
)

// Unknown fills secondary confirmation fields the portal did not render.
const Unknown = "unknown"

// PassengerProfile is the identity a task is booked under.
type PassengerProfile struct {
	UserID     int64  `json:"user_id"`
	NationalID string `json:"national_id"`
	Phone      string `json:"phone,omitempty"`
	Email      string `json:"email,omitempty"`
	LoyaltyID  string `json:"loyalty_id,omitempty"` // member number, or "same" to reuse the national id
}

// LoyaltySameAsID reports whether the loyalty account is keyed by the national id.
func (p PassengerProfile) LoyaltySameAsID() bool {
	return strings.EqualFold(strings.TrimSpace(p.LoyaltyID), "same")
}

// LoyaltyNumber returns an explicit membership number, or "" for the other two cases.
func (p PassengerProfile) LoyaltyNumber() string {
	if p.LoyaltySameAsID() {
		return ""
	}
	return strings.TrimSpace(p.LoyaltyID)
}

// Confirmation is what the result stage scrapes from the confirmation page.
type Confirmation struct {
	ReservationCode string
	Price           string
	Seats           []string
	PaymentStatus   string
	ServiceCode     string
	TravelDate      string
	Departure       string
	Arrival         string
}

// Ticket is a persisted, successful reservation.
type Ticket struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"user_id"`
	TaskID          *int64    `json:"task_id,omitempty"`
	ReservationCode string    `json:"reservation_code"`
	TravelDate      string    `json:"travel_date"`
	ServiceCode     string    `json:"service_code"`
	Departure       string    `json:"departure"`
	Arrival         string    `json:"arrival"`
	Origin          string    `json:"origin"`
	Destination     string    `json:"destination"`
	Price           string    `json:"price"`
	Seats           []string  `json:"seats"`
	PaymentStatus   string    `json:"payment_status"`
	IsPaid          bool      `json:"is_paid"`
	CreatedAt       time.Time `json:"created_at"`
}

// TicketFromConfirmation builds the record persisted after a successful attempt.
func TicketFromConfirmation(userID int64, origin, destination string, c Confirmation) Ticket {
	return Ticket{
		UserID:          userID,
		ReservationCode: c.ReservationCode,
		TravelDate:      c.TravelDate,
		ServiceCode:     c.ServiceCode,
		Departure:       c.Departure,
		Arrival:         c.Arrival,
		Origin:          origin,
		Destination:     destination,
		Price:           c.Price,
		Seats:           append([]string(nil), c.Seats...),
		PaymentStatus:   c.PaymentStatus,
	}
}
