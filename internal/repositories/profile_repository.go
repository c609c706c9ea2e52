package repositories

import (
	"database/sql"
	"errors"
	"time"

	intconfig "booker/internal/config"
	intdb "booker/internal/db"
	"booker/internal/domain/models"
)

type ProfileRepository struct {
	DB *sql.DB
}

func (r ProfileRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

// Get returns nil, nil when the user never saved a profile.
func (r ProfileRepository) Get(userID int64) (*models.PassengerProfile, error) {
	p := models.PassengerProfile{UserID: userID}
	err := r.db().QueryRow(`
		SELECT national_id, COALESCE(phone,''), COALESCE(email,''), COALESCE(loyalty_id,'')
		FROM passenger_profiles WHERE user_id=?`, userID).
		Scan(&p.NationalID, &p.Phone, &p.Email, &p.LoyaltyID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Upsert writes the single profile row of a user.
func (r ProfileRepository) Upsert(p models.PassengerProfile, now time.Time) error {
	_, err := r.db().Exec(`
		INSERT INTO passenger_profiles (user_id, national_id, phone, email, loyalty_id, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			national_id=VALUES(national_id), phone=VALUES(phone), email=VALUES(email),
			loyalty_id=VALUES(loyalty_id), updated_at=VALUES(updated_at)`,
		p.UserID, p.NationalID, intdb.NullIfEmpty(p.Phone), intdb.NullIfEmpty(p.Email),
		intdb.NullIfEmpty(p.LoyaltyID), now)
	return err
}
