package db

import (
	"database/sql"
	"fmt"
	"log"
)

type tableDDL struct {
	name string
	ddl  string
}

var tables = []tableDDL{
	{"users", `
CREATE TABLE IF NOT EXISTS users (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	username VARCHAR(100) NOT NULL,
	email VARCHAR(255) NOT NULL,
	password_hash VARCHAR(255) NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE KEY uniq_username (username),
	UNIQUE KEY uniq_email (email)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`},
	{"passenger_profiles", `
CREATE TABLE IF NOT EXISTS passenger_profiles (
	user_id BIGINT PRIMARY KEY,
	national_id VARCHAR(32) NOT NULL,
	phone VARCHAR(32) NULL,
	email VARCHAR(255) NULL,
	loyalty_id VARCHAR(64) NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`},
	{"booking_tasks", `
CREATE TABLE IF NOT EXISTS booking_tasks (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	user_id BIGINT NOT NULL,
	origin VARCHAR(32) NOT NULL,
	destination VARCHAR(32) NOT NULL,
	travel_date VARCHAR(16) NOT NULL,
	service_code VARCHAR(16) NULL,
	seat_preference VARCHAR(16) NOT NULL DEFAULT 'none',
	trigger_time DATETIME NOT NULL,
	first_attempted_at DATETIME NULL,
	attempts INT NOT NULL DEFAULT 0,
	status VARCHAR(16) NOT NULL DEFAULT 'pending',
	last_error TEXT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	KEY idx_due (status, trigger_time),
	KEY idx_user (user_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`},
	{"tickets", `
CREATE TABLE IF NOT EXISTS tickets (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	user_id BIGINT NOT NULL,
	task_id BIGINT NULL,
	reservation_code VARCHAR(32) NOT NULL,
	travel_date VARCHAR(32) NOT NULL,
	service_code VARCHAR(16) NOT NULL,
	departure VARCHAR(16) NOT NULL,
	arrival VARCHAR(16) NOT NULL,
	origin VARCHAR(32) NOT NULL,
	destination VARCHAR(32) NOT NULL,
	price VARCHAR(32) NOT NULL,
	seats VARCHAR(255) NOT NULL,
	payment_status VARCHAR(255) NOT NULL,
	is_paid TINYINT(1) NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE KEY uniq_reservation (reservation_code),
	KEY idx_user (user_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`},
}

// columns added after the first release; older databases get them on start.
var addedColumns = []struct {
	table, column, ddl string
}{
	{"booking_tasks", "attempts", `ALTER TABLE booking_tasks ADD COLUMN attempts INT NOT NULL DEFAULT 0 AFTER first_attempted_at`},
	{"tickets", "is_paid", `ALTER TABLE tickets ADD COLUMN is_paid TINYINT(1) NOT NULL DEFAULT 0 AFTER payment_status`},
}

// EnsureSchema creates any missing table and column. Existing data is left
// untouched.
func EnsureSchema(db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("db tidak tersedia")
	}
	for _, t := range tables {
		if HasTable(db, t.name) {
			continue
		}
		if _, err := db.Exec(t.ddl); err != nil {
			return fmt.Errorf("create %s: %w", t.name, err)
		}
		log.Printf("[DB] table %s dibuat", t.name)
	}
	for _, c := range addedColumns {
		if HasColumn(db, c.table, c.column) {
			continue
		}
		if _, err := db.Exec(c.ddl); err != nil {
			return fmt.Errorf("add %s.%s: %w", c.table, c.column, err)
		}
		log.Printf("[DB] kolom %s.%s ditambahkan", c.table, c.column)
	}
	return nil
}
