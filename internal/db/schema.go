package db

import (
	"context"
	"database/sql"
	"fmt"
)

// schemaStatements are applied in order on startup. All statements are
// idempotent so repeated runs against an existing database are safe.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS donors (
		id                 VARCHAR(64) PRIMARY KEY,
		name               VARCHAR(255) NOT NULL,
		email              VARCHAR(255) NOT NULL,
		phone_number       VARCHAR(32),
		blood_type         VARCHAR(3),
		city               VARCHAR(128) NOT NULL DEFAULT '',
		state              VARCHAR(128) NOT NULL DEFAULT '',
		longitude          DOUBLE PRECISION NOT NULL DEFAULT 0,
		latitude           DOUBLE PRECISION NOT NULL DEFAULT 0,
		available          BOOLEAN NOT NULL DEFAULT TRUE,
		medical_flags      TEXT[] NOT NULL DEFAULT '{}',
		last_donation_date TIMESTAMPTZ,
		total_donations    INTEGER NOT NULL DEFAULT 0,
		lives_saved        INTEGER NOT NULL DEFAULT 0,
		rating_sum         INTEGER NOT NULL DEFAULT 0,
		rating_count       INTEGER NOT NULL DEFAULT 0,
		created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS blood_requests (
		id                 VARCHAR(64) PRIMARY KEY,
		requester_id       VARCHAR(64) NOT NULL,
		requester_name     VARCHAR(255) NOT NULL,
		requester_phone    VARCHAR(32) NOT NULL,
		requester_email    VARCHAR(255),
		patient_age        INTEGER NOT NULL,
		patient_gender     VARCHAR(16) NOT NULL,
		blood_type         VARCHAR(3) NOT NULL,
		product_type       VARCHAR(32) NOT NULL,
		units              INTEGER NOT NULL,
		urgency            VARCHAR(16) NOT NULL,
		reason             TEXT,
		required_by        TIMESTAMPTZ NOT NULL,
		longitude          DOUBLE PRECISION NOT NULL,
		latitude           DOUBLE PRECISION NOT NULL,
		city               VARCHAR(128) NOT NULL,
		state              VARCHAR(128) NOT NULL,
		status             VARCHAR(16) NOT NULL DEFAULT 'pending',
		notes              TEXT,
		view_count         INTEGER NOT NULL DEFAULT 0,
		response_count     INTEGER NOT NULL DEFAULT 0,
		units_received     INTEGER,
		completion_notes   TEXT,
		cancel_reason      TEXT,
		completed_at       TIMESTAMPTZ,
		confirmed_donor_id VARCHAR(64),
		donation_date      VARCHAR(32),
		donation_time      VARCHAR(32),
		donation_location  TEXT,
		confirmed_at       TIMESTAMPTZ,
		expires_at         TIMESTAMPTZ NOT NULL,
		created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at         TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_blood_requests_status ON blood_requests (status)`,
	`CREATE INDEX IF NOT EXISTS idx_blood_requests_expiry ON blood_requests (expires_at) WHERE status = 'pending'`,

	`CREATE TABLE IF NOT EXISTS request_matches (
		request_id  VARCHAR(64) NOT NULL REFERENCES blood_requests (id) ON DELETE CASCADE,
		donor_id    VARCHAR(64) NOT NULL,
		donor_name  VARCHAR(255) NOT NULL,
		donor_phone VARCHAR(32),
		status      VARCHAR(16) NOT NULL,
		notes       TEXT,
		matched_at  TIMESTAMPTZ NOT NULL,
		updated_at  TIMESTAMPTZ,
		UNIQUE (request_id, donor_id)
	)`,

	`CREATE TABLE IF NOT EXISTS donations (
		id             VARCHAR(64) PRIMARY KEY,
		donor_id       VARCHAR(64) NOT NULL,
		donor_name     VARCHAR(255) NOT NULL,
		donor_phone    VARCHAR(32) NOT NULL,
		donor_email    VARCHAR(255),
		blood_type     VARCHAR(3) NOT NULL,
		request_id     VARCHAR(64),
		product_type   VARCHAR(32) NOT NULL,
		units          INTEGER NOT NULL,
		scheduled_date TIMESTAMPTZ NOT NULL,
		status         VARCHAR(16) NOT NULL DEFAULT 'scheduled',
		health_check   JSONB,
		collection     JSONB,
		test_results   JSONB,
		storage        JSONB,
		distribution   JSONB,
		feedback       JSONB,
		notes          TEXT,
		cancel_reason  TEXT,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at     TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_donations_status ON donations (status)`,
	`CREATE INDEX IF NOT EXISTS idx_donations_donor ON donations (donor_id)`,
}

// Migrate applies the schema statements. Called once at startup before
// the HTTP server begins accepting traffic.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}
