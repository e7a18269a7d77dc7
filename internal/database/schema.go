package database

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
)

// schema is applied in order at startup.  Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		username      VARCHAR(64)  NOT NULL,
		full_name     VARCHAR(128) NOT NULL,
		email         VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		role          ENUM('tenant','manager','owner','visitor','security') NOT NULL,
		refresh_token TEXT NULL,
		created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_users_username (username),
		UNIQUE KEY uq_users_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS apartments (
		id                    BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		number                VARCHAR(32)  NOT NULL,
		building              VARCHAR(64)  NOT NULL,
		tenant_id             BIGINT UNSIGNED NULL,
		owner_id              BIGINT UNSIGNED NULL,
		rent                  DECIMAL(12,2) NOT NULL,
		status                ENUM('vacant','occupied') NOT NULL DEFAULT 'vacant',
		area                  DECIMAL(10,2) NOT NULL,
		amenities             JSON NOT NULL,
		last_maintenance_date DATETIME NULL,
		society_name          VARCHAR(128) NOT NULL,
		created_at            DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at            DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_apartments_number_building (number, building),
		CONSTRAINT fk_apartments_tenant FOREIGN KEY (tenant_id) REFERENCES users(id) ON DELETE SET NULL,
		CONSTRAINT fk_apartments_owner FOREIGN KEY (owner_id) REFERENCES users(id) ON DELETE SET NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS visitors (
		id               BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name             VARCHAR(128) NOT NULL,
		purpose          VARCHAR(255) NOT NULL,
		status           ENUM('upcoming','current','past','pending') NOT NULL,
		apartment_id     BIGINT UNSIGNED NOT NULL,
		expected_at      DATETIME NOT NULL,
		actual_entry_at  DATETIME NULL,
		actual_exit_at   DATETIME NULL,
		approved_by      BIGINT UNSIGNED NULL,
		contact_number   VARCHAR(32) NOT NULL,
		pending_approval TINYINT(1) NOT NULL DEFAULT 0,
		created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		CONSTRAINT fk_visitors_apartment FOREIGN KEY (apartment_id) REFERENCES apartments(id) ON DELETE CASCADE,
		CONSTRAINT fk_visitors_approver FOREIGN KEY (approved_by) REFERENCES users(id) ON DELETE SET NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS maintenance_requests (
		id           BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		apartment_id BIGINT UNSIGNED NOT NULL,
		tenant_id    BIGINT UNSIGNED NOT NULL,
		description  TEXT NOT NULL,
		status       ENUM('pending','in_progress','completed','denied') NOT NULL,
		created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		CONSTRAINT fk_maintenance_apartment FOREIGN KEY (apartment_id) REFERENCES apartments(id) ON DELETE CASCADE,
		CONSTRAINT fk_maintenance_tenant FOREIGN KEY (tenant_id) REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS payments (
		id           BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		apartment_id BIGINT UNSIGNED NOT NULL,
		tenant_id    BIGINT UNSIGNED NOT NULL,
		amount       DECIMAL(12,2) NOT NULL,
		date         DATETIME NOT NULL,
		type         ENUM('rent','maintenance') NOT NULL,
		created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		KEY idx_payments_apartment_date (apartment_id, date),
		CONSTRAINT fk_payments_apartment FOREIGN KEY (apartment_id) REFERENCES apartments(id) ON DELETE CASCADE,
		CONSTRAINT fk_payments_tenant FOREIGN KEY (tenant_id) REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS announcements (
		id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		title      VARCHAR(255) NOT NULL,
		content    TEXT NOT NULL,
		created_by BIGINT UNSIGNED NOT NULL,
		important  TINYINT(1) NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT fk_announcements_author FOREIGN KEY (created_by) REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates any missing tables.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "apply schema statement %d", i)
		}
	}
	return nil
}
