package services

import (
	"log"
	"strings"
	"time"

	"booker/internal/domain"
	"booker/internal/domain/models"
)

type TicketStore interface {
	ListByUser(userID int64) ([]models.Ticket, error)
	SetPaid(id, userID int64, paid bool) (bool, error)
}

type TicketService struct {
	Tickets TicketStore
}

func (s TicketService) List(userID int64) ([]models.Ticket, error) {
	return s.Tickets.ListByUser(userID)
}

// SetPaid is scoped to the owner; a ticket of another user reads as missing.
func (s TicketService) SetPaid(userID, id int64, paid bool) error {
	ok, err := s.Tickets.SetPaid(id, userID, paid)
	if err != nil {
		return err
	}
	if !ok {
		return domain.NotFoundError{Resource: "ticket"}
	}
	log.Printf("[Tickets] ticket=%d user=%d paid=%v", id, userID, paid)
	return nil
}

type ProfileStore interface {
	Get(userID int64) (*models.PassengerProfile, error)
	Upsert(p models.PassengerProfile, now time.Time) error
}

type ProfileService struct {
	Profiles ProfileStore
	Now      func() time.Time
}

func (s ProfileService) Get(userID int64) (models.PassengerProfile, error) {
	p, err := s.Profiles.Get(userID)
	if err != nil {
		return models.PassengerProfile{}, err
	}
	if p == nil {
		return models.PassengerProfile{}, domain.NotFoundError{Resource: "profile"}
	}
	return *p, nil
}

// Save validates and stores the caller's passenger profile.
func (s ProfileService) Save(userID int64, in models.PassengerProfile) (models.PassengerProfile, error) {
	in.UserID = userID
	in.NationalID = strings.ToUpper(strings.TrimSpace(in.NationalID))
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = strings.TrimSpace(in.Email)
	in.LoyaltyID = strings.TrimSpace(in.LoyaltyID)

	if in.NationalID == "" {
		return in, domain.ValidationError{Field: "national_id", Msg: "wajib diisi"}
	}
	if !isNationalID(in.NationalID) {
		return in, domain.ValidationError{Field: "national_id", Msg: "format harus 1 huruf + 9 angka"}
	}
	if in.Email != "" && !strings.Contains(in.Email, "@") {
		return in, domain.ValidationError{Field: "email", Msg: "format tidak valid"}
	}

	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	if err := s.Profiles.Upsert(in, now); err != nil {
		return in, err
	}
	log.Printf("[Profile] saved user=%d loyalty_same=%v", userID, in.LoyaltySameAsID())
	return in, nil
}

// isNationalID checks the shape of a national id: one letter and nine digits.
// Resident certificates use a second letter, which is also accepted.
func isNationalID(s string) bool {
	if len(s) != 10 || s[0] < 'A' || s[0] > 'Z' {
		return false
	}
	for i := 2; i < 10; i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	c := s[1]
	return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'Z')
}
