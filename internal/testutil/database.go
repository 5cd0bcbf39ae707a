package testutil

import (
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"
)

// SetupTestDB creates a connection to the test database.
// Connection details come from TEST_DB_* env vars, defaulting to a
// local blood_service_test database.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	host := envOr("TEST_DB_HOST", "localhost")
	port := envOr("TEST_DB_PORT", "5432")
	user := envOr("TEST_DB_USER", "postgres")
	password := envOr("TEST_DB_PASSWORD", "postgres")
	dbname := envOr("TEST_DB_NAME", "blood_service_test")

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Fatalf("Failed to ping test database: %v", err)
	}

	return db
}

// CleanupTestDB truncates all service tables between tests
func CleanupTestDB(t *testing.T, db *sql.DB) {
	t.Helper()

	for _, table := range []string{"request_matches", "blood_requests", "donations", "donors"} {
		if _, err := db.Exec("TRUNCATE TABLE " + table + " CASCADE"); err != nil {
			t.Logf("Warning: failed to clean up %s: %v", table, err)
		}
	}
}

// SeedDonor inserts a donor row the schedule precondition checks will
// accept (phone and blood type on file) and returns its id.
func SeedDonor(t *testing.T, db *sql.DB, id, name, bloodType string) string {
	t.Helper()

	query := `
		INSERT INTO donors
		(id, name, email, phone_number, blood_type, city, state, longitude, latitude, available, created_at)
		VALUES ($1, $2, $3, $4, $5, 'Accra', 'Greater Accra', -0.19, 5.56, TRUE, $6)
	`

	_, err := db.Exec(query, id, name, name+"@example.com", "+233200000001", bloodType, time.Now())
	if err != nil {
		t.Fatalf("Failed to seed donor: %v", err)
	}

	return id
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
