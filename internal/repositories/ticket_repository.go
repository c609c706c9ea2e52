package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	intconfig "booker/internal/config"
	"booker/internal/domain"
	"booker/internal/domain/models"

	"github.com/go-sql-driver/mysql"
)

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

const seatSeparator = ","

type TicketRepository struct {
	DB *sql.DB
}

func (r TicketRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func insertTicket(ex execer, t models.Ticket, now time.Time) (models.Ticket, error) {
	var taskID any
	if t.TaskID != nil {
		taskID = *t.TaskID
	}
	res, err := ex.Exec(`
		INSERT INTO tickets
			(user_id, task_id, reservation_code, travel_date, service_code, departure, arrival,
			 origin, destination, price, seats, payment_status, is_paid, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, taskID, t.ReservationCode, t.TravelDate, t.ServiceCode, t.Departure, t.Arrival,
		t.Origin, t.Destination, t.Price, joinSeats(t.Seats), t.PaymentStatus, t.IsPaid, now)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
			return t, domain.ConflictError{Resource: "ticket", Msg: "reservation " + t.ReservationCode + " already stored", Err: err}
		}
		return t, fmt.Errorf("insert ticket: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return t, fmt.Errorf("insert ticket: %w", err)
	}
	t.ID = id
	t.CreatedAt = now
	return t, nil
}

// Create persists a ticket outside of any task (interactive bookings).
func (r TicketRepository) Create(t models.Ticket, now time.Time) (models.Ticket, error) {
	return insertTicket(r.db(), t, now)
}

const ticketColumns = `id, user_id, task_id, reservation_code, travel_date, service_code,
	departure, arrival, origin, destination, price, seats, payment_status, is_paid, created_at`

func scanTicket(s scanner) (models.Ticket, error) {
	var (
		t      models.Ticket
		taskID sql.NullInt64
		seats  string
	)
	err := s.Scan(&t.ID, &t.UserID, &taskID, &t.ReservationCode, &t.TravelDate, &t.ServiceCode,
		&t.Departure, &t.Arrival, &t.Origin, &t.Destination, &t.Price, &seats, &t.PaymentStatus,
		&t.IsPaid, &t.CreatedAt)
	if err != nil {
		return t, err
	}
	if taskID.Valid {
		id := taskID.Int64
		t.TaskID = &id
	}
	t.Seats = splitSeats(seats)
	return t, nil
}

// ListByUser returns the user's tickets, newest first.
func (r TicketRepository) ListByUser(userID int64) ([]models.Ticket, error) {
	rows, err := r.db().Query(`SELECT `+ticketColumns+` FROM tickets WHERE user_id=? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Ticket{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r TicketRepository) GetByID(id int64) (models.Ticket, error) {
	if id <= 0 {
		return models.Ticket{}, sql.ErrNoRows
	}
	return scanTicket(r.db().QueryRow(`SELECT `+ticketColumns+` FROM tickets WHERE id=?`, id))
}

// SetPaid flips the paid flag on a ticket the user owns.
func (r TicketRepository) SetPaid(id, userID int64, paid bool) (bool, error) {
	return affectedOne(r.db().Exec(`UPDATE tickets SET is_paid=? WHERE id=? AND user_id=?`, paid, id, userID))
}

func joinSeats(seats []string) string {
	clean := make([]string, 0, len(seats))
	for _, s := range seats {
		if s = strings.TrimSpace(s); s != "" {
			clean = append(clean, s)
		}
	}
	if len(clean) == 0 {
		return models.Unknown
	}
	return strings.Join(clean, seatSeparator)
}

func splitSeats(raw string) []string {
	out := []string{}
	for _, s := range strings.Split(raw, seatSeparator) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		out = []string{models.Unknown}
	}
	return out
}
