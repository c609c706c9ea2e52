package repositories

import (
	"database/sql/driver"
	"reflect"
	"testing"
	"time"

	"booker/internal/domain"
	"booker/internal/domain/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
)

var ticketCols = []string{"id", "user_id", "task_id", "reservation_code", "travel_date", "service_code",
	"departure", "arrival", "origin", "destination", "price", "seats", "payment_status", "is_paid", "created_at"}

// The row read back is built from the exact values the insert wrote.
func TestTicketRoundTrip(t *testing.T) {
	db, mock := newMock(t)
	repo := TicketRepository{DB: db}
	now := time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)

	in := models.TicketFromConfirmation(7, "台北", "左營", models.Confirmation{
		ReservationCode: "02915121",
		Price:           "TWD 2,980",
		Seats:           []string{"5車17E", "5車17D"},
		PaymentStatus:   "未付款",
		ServiceCode:     "657",
		TravelDate:      "2026/10/21",
		Departure:       "15:46",
		Arrival:         "17:45",
	})

	args := make([]*captureArg, 14)
	matchers := make([]driver.Value, 14)
	for i := range args {
		args[i] = &captureArg{}
		matchers[i] = args[i]
	}
	mock.ExpectExec("INSERT INTO tickets").WithArgs(matchers...).WillReturnResult(sqlmock.NewResult(5, 1))

	saved, err := repo.Create(in, now)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	row := []driver.Value{saved.ID}
	for _, a := range args {
		row = append(row, a.v)
	}
	mock.ExpectQuery("FROM tickets WHERE id=").WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(ticketCols).AddRow(row...))

	out, err := repo.GetByID(5)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	in.ID = 5
	in.CreatedAt = now
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("round trip mismatch:\n in=%+v\nout=%+v", in, out)
	}

	mock.ExpectQuery("FROM tickets WHERE user_id=").WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(ticketCols).AddRow(row...))

	list, err := repo.ListByUser(7)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || !reflect.DeepEqual(in, list[0]) {
		t.Fatalf("list round trip mismatch:\n in=%+v\nout=%+v", in, list)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTicketDuplicateReservationIsConflict(t *testing.T) {
	db, mock := newMock(t)
	repo := TicketRepository{DB: db}

	mock.ExpectExec("INSERT INTO tickets").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	_, err := repo.Create(models.Ticket{ReservationCode: "02915121"}, time.Now())
	if !domain.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestTicketSetPaidScopedToOwner(t *testing.T) {
	db, mock := newMock(t)
	repo := TicketRepository{DB: db}

	mock.ExpectExec("UPDATE tickets SET is_paid=\\? WHERE id=\\? AND user_id=\\?").
		WithArgs(true, int64(5), int64(8)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.SetPaid(5, 8, true)
	if err != nil || ok {
		t.Fatalf("foreign ticket must not be updated: %v %v", ok, err)
	}
}

func TestSeatsJoinSplit(t *testing.T) {
	if got := joinSeats([]string{" 5車17E ", "", "5車17D"}); got != "5車17E,5車17D" {
		t.Fatalf("join: %q", got)
	}
	if got := joinSeats(nil); got != models.Unknown {
		t.Fatalf("empty join: %q", got)
	}
	if got := splitSeats(""); !reflect.DeepEqual(got, []string{models.Unknown}) {
		t.Fatalf("empty split: %v", got)
	}
}

func TestProfileGetMissingIsNil(t *testing.T) {
	db, mock := newMock(t)
	repo := ProfileRepository{DB: db}

	mock.ExpectQuery("FROM passenger_profiles WHERE user_id=").WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"national_id", "phone", "email", "loyalty_id"}))
	p, err := repo.Get(7)
	if err != nil || p != nil {
		t.Fatalf("expected nil profile, got %+v %v", p, err)
	}

	mock.ExpectQuery("FROM passenger_profiles WHERE user_id=").WithArgs(int64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"national_id", "phone", "email", "loyalty_id"}).
			AddRow("A123456789", "", "", "same"))
	p, err = repo.Get(8)
	if err != nil || p == nil || !p.LoyaltySameAsID() || p.UserID != 8 {
		t.Fatalf("unexpected profile %+v %v", p, err)
	}

	mock.ExpectExec("ON DUPLICATE KEY UPDATE").
		WithArgs(int64(8), "A123456789", nil, nil, "same", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := repo.Upsert(*p, time.Now()); err != nil {
		t.Fatalf("upsert: %v", err)
	}
}
