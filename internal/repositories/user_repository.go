package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	intconfig "booker/internal/config"
	"booker/internal/domain"
	"booker/internal/domain/models"

	"github.com/go-sql-driver/mysql"
)

type UserRepository struct {
	DB *sql.DB
}

func (r UserRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

// FindByLogin matches either email or username.
func (r UserRepository) FindByLogin(login string) (models.User, error) {
	var u models.User
	err := r.db().QueryRow(`
		SELECT id, username, email, password_hash, created_at
		FROM users
		WHERE email = ? OR username = ?
		LIMIT 1`, login, login).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	return u, err
}

// Create stores a new user; a taken username or email is a ConflictError.
func (r UserRepository) Create(username, email, passwordHash string, now time.Time) (models.User, error) {
	res, err := r.db().Exec(`
		INSERT INTO users (username, email, password_hash, created_at)
		VALUES (?, ?, ?, ?)`, username, email, passwordHash, now)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
			return models.User{}, domain.ConflictError{Resource: "user", Msg: "email atau username sudah terdaftar", Err: err}
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	id, _ := res.LastInsertId()
	return models.User{ID: id, Username: username, Email: email, CreatedAt: now}, nil
}
