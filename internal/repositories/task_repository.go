package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	intconfig "booker/internal/config"
	intdb "booker/internal/db"
	"booker/internal/domain/models"
)

// TaskRepository owns booking_tasks. Every state change is a single
// conditional UPDATE on one row, so two writers never both win.
type TaskRepository struct {
	DB *sql.DB
}

func (r TaskRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

const taskColumns = `id, user_id, origin, destination, travel_date,
	COALESCE(service_code,''), seat_preference, trigger_time, first_attempted_at,
	attempts, status, COALESCE(last_error,''), created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (models.BookingTask, error) {
	var (
		t      models.BookingTask
		seat   string
		status string
		first  sql.NullTime
	)
	err := s.Scan(&t.ID, &t.UserID, &t.Origin, &t.Destination, &t.TravelDate,
		&t.ServiceCode, &seat, &t.TriggerTime, &first,
		&t.Attempts, &status, &t.LastError, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return t, err
	}
	t.SeatPreference = models.ParseSeatPreference(seat)
	t.Status = models.TaskStatus(status)
	if first.Valid {
		ft := first.Time
		t.FirstAttemptedAt = &ft
	}
	return t, nil
}

// Create inserts a pending task and returns it with its id.
func (r TaskRepository) Create(in models.TaskCreate, now time.Time) (models.BookingTask, error) {
	seat := in.SeatPreference
	if seat == "" {
		seat = models.SeatNone
	}
	res, err := r.db().Exec(`
		INSERT INTO booking_tasks
			(user_id, origin, destination, travel_date, service_code, seat_preference,
			 trigger_time, attempts, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, 'pending', ?, ?)`,
		in.UserID, in.Origin, in.Destination, in.TravelDate, intdb.NullIfEmpty(in.ServiceCode),
		string(seat), in.TriggerTime, now, now)
	if err != nil {
		return models.BookingTask{}, fmt.Errorf("insert booking_task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.BookingTask{}, fmt.Errorf("insert booking_task: %w", err)
	}
	return models.BookingTask{
		ID:             id,
		UserID:         in.UserID,
		Origin:         in.Origin,
		Destination:    in.Destination,
		TravelDate:     in.TravelDate,
		ServiceCode:    in.ServiceCode,
		SeatPreference: seat,
		TriggerTime:    in.TriggerTime,
		Status:         models.TaskPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// GetByID returns sql.ErrNoRows when the task does not exist.
func (r TaskRepository) GetByID(id int64) (models.BookingTask, error) {
	if id <= 0 {
		return models.BookingTask{}, sql.ErrNoRows
	}
	row := r.db().QueryRow(`SELECT `+taskColumns+` FROM booking_tasks WHERE id=?`, id)
	return scanTask(row)
}

// ListByUser returns the caller's tasks, newest first.
func (r TaskRepository) ListByUser(userID int64) ([]models.BookingTask, error) {
	rows, err := r.db().Query(`SELECT `+taskColumns+` FROM booking_tasks WHERE user_id=? ORDER BY id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.BookingTask{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListDueIDs returns pending tasks whose trigger time has passed, oldest first.
func (r TaskRepository) ListDueIDs(now time.Time, limit int) ([]int64, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db().Query(`
		SELECT id FROM booking_tasks
		WHERE status='pending' AND trigger_time <= ?
		ORDER BY trigger_time ASC, id ASC
		LIMIT ?`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func affectedOne(res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Claim moves a pending task to processing. first_attempted_at is stamped
// only when still NULL. false means another worker won the row.
func (r TaskRepository) Claim(id int64, now time.Time) (bool, error) {
	return affectedOne(r.db().Exec(`
		UPDATE booking_tasks
		SET status='processing',
			first_attempted_at=COALESCE(first_attempted_at, ?),
			attempts=attempts+1,
			updated_at=?
		WHERE id=? AND status='pending'`, now, now, id))
}

// Rearm returns a processing task to pending with a new trigger time.
func (r TaskRepository) Rearm(id int64, next time.Time, lastErr string, now time.Time) (bool, error) {
	return affectedOne(r.db().Exec(`
		UPDATE booking_tasks
		SET status='pending', trigger_time=?, last_error=?, updated_at=?
		WHERE id=? AND status='processing'`, next, truncateErr(lastErr), now, id))
}

// RearmWithin re-arms only while first_attempted_at is after windowStart.
// It is used when the row cannot be loaded, so the window is checked in SQL.
func (r TaskRepository) RearmWithin(id int64, next time.Time, lastErr string, windowStart, now time.Time) (bool, error) {
	return affectedOne(r.db().Exec(`
		UPDATE booking_tasks
		SET status='pending', trigger_time=?, last_error=?, updated_at=?
		WHERE id=? AND status='processing' AND first_attempted_at > ?`, next, truncateErr(lastErr), now, id, windowStart))
}

// Fail finalizes a processing task as failed.
func (r TaskRepository) Fail(id int64, lastErr string, now time.Time) (bool, error) {
	return affectedOne(r.db().Exec(`
		UPDATE booking_tasks
		SET status='failed', last_error=?, updated_at=?
		WHERE id=? AND status='processing'`, truncateErr(lastErr), now, id))
}

// Complete stores the ticket and finalizes the task in one transaction.
func (r TaskRepository) Complete(id int64, ticket models.Ticket, now time.Time) (models.Ticket, error) {
	tx, err := r.db().Begin()
	if err != nil {
		return ticket, err
	}
	defer func() { _ = tx.Rollback() }()

	ticket.TaskID = &id
	ticket, err = insertTicket(tx, ticket, now)
	if err != nil {
		return ticket, err
	}
	ok, err := affectedOne(tx.Exec(`
		UPDATE booking_tasks
		SET status='completed', last_error=NULL, updated_at=?
		WHERE id=? AND status='processing'`, now, id))
	if err != nil {
		return ticket, err
	}
	if !ok {
		return ticket, fmt.Errorf("task %d is no longer processing", id)
	}
	return ticket, tx.Commit()
}

// Cancel fails a task the owner no longer wants. Only pending tasks qualify.
func (r TaskRepository) Cancel(id, userID int64, now time.Time) (bool, error) {
	return affectedOne(r.db().Exec(`
		UPDATE booking_tasks
		SET status='failed', last_error='cancelled by user', updated_at=?
		WHERE id=? AND user_id=? AND status='pending'`, now, id, userID))
}

// RecoverStale returns tasks orphaned in processing (crash mid-attempt) to pending.
func (r TaskRepository) RecoverStale(now time.Time) (int64, error) {
	res, err := r.db().Exec(`
		UPDATE booking_tasks
		SET status='pending', trigger_time=?, updated_at=?
		WHERE status='processing'`, now, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// IsNoRows hides database/sql from callers.
func IsNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func truncateErr(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 2000 {
		s = s[:2000]
	}
	return s
}
