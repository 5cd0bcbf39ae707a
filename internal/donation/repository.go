package donation

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/LifeLink-Blood-Care/blood-service/internal/bloodtype"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const donationColumns = `
	id, donor_id, donor_name, donor_phone, donor_email, blood_type,
	request_id, product_type, units, scheduled_date, status,
	health_check, collection, test_results, storage, distribution, feedback,
	notes, cancel_reason, created_at, updated_at`

func (r *Repository) CreateDonation(ctx context.Context, d *Donation) error {
	query := `
		INSERT INTO donations
		(id, donor_id, donor_name, donor_phone, donor_email, blood_type,
		 request_id, product_type, units, scheduled_date, status, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.ExecContext(ctx, query,
		d.ID,
		d.DonorID,
		d.DonorName,
		d.DonorPhone,
		d.DonorEmail,
		string(d.BloodType),
		nullString(d.RequestID),
		string(d.ProductType),
		d.Units,
		d.ScheduledDate,
		string(d.Status),
		d.Notes,
		d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert donation: %w", err)
	}

	return nil
}

func (r *Repository) scanDonation(row interface {
	Scan(dest ...interface{}) error
}) (*Donation, error) {
	var d Donation
	var donorEmail, requestID, notes, cancelReason sql.NullString
	var bt, pt, status string
	var healthCheck, collection, testResults, storage, distribution, feedback []byte
	var updatedAt sql.NullTime

	err := row.Scan(
		&d.ID,
		&d.DonorID,
		&d.DonorName,
		&d.DonorPhone,
		&donorEmail,
		&bt,
		&requestID,
		&pt,
		&d.Units,
		&d.ScheduledDate,
		&status,
		&healthCheck,
		&collection,
		&testResults,
		&storage,
		&distribution,
		&feedback,
		&notes,
		&cancelReason,
		&d.CreatedAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	d.BloodType = bloodtype.BloodType(bt)
	d.ProductType = ProductType(pt)
	d.Status = Status(status)

	if donorEmail.Valid {
		d.DonorEmail = donorEmail.String
	}
	if requestID.Valid {
		d.RequestID = requestID.String
	}
	if notes.Valid {
		d.Notes = notes.String
	}
	if cancelReason.Valid {
		d.CancelReason = cancelReason.String
	}
	if updatedAt.Valid {
		d.UpdatedAt = &updatedAt.Time
	}

	if err := unmarshalInto(healthCheck, &d.HealthCheck); err != nil {
		return nil, fmt.Errorf("failed to decode health check: %w", err)
	}
	if err := unmarshalInto(collection, &d.Collection); err != nil {
		return nil, fmt.Errorf("failed to decode collection: %w", err)
	}
	if err := unmarshalInto(testResults, &d.TestResults); err != nil {
		return nil, fmt.Errorf("failed to decode test results: %w", err)
	}
	if err := unmarshalInto(storage, &d.Storage); err != nil {
		return nil, fmt.Errorf("failed to decode storage: %w", err)
	}
	if err := unmarshalInto(distribution, &d.Distribution); err != nil {
		return nil, fmt.Errorf("failed to decode distribution: %w", err)
	}
	if err := unmarshalInto(feedback, &d.Feedback); err != nil {
		return nil, fmt.Errorf("failed to decode feedback: %w", err)
	}

	return &d, nil
}

func (r *Repository) GetDonation(ctx context.Context, id string) (*Donation, error) {
	query := fmt.Sprintf(`SELECT %s FROM donations WHERE id = $1`, donationColumns)

	d, err := r.scanDonation(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrDonationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query donation: %w", err)
	}

	return d, nil
}

func (r *Repository) ListDonations(ctx context.Context, limit, offset int, filters ListFilters) ([]Donation, int, error) {
	var conditions []string
	var args []interface{}
	argIndex := 1

	addFilter := func(column, value string) {
		if value == "" {
			return
		}
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, argIndex))
		args = append(args, value)
		argIndex++
	}
	addFilter("status", filters.Status)
	addFilter("donor_id", filters.DonorID)
	addFilter("request_id", filters.RequestID)

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var totalCount int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM donations %s`, where)
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count donations: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM donations
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, donationColumns, where, argIndex, argIndex+1)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query donations: %w", err)
	}
	defer rows.Close()

	var donations []Donation
	for rows.Next() {
		d, err := r.scanDonation(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan donation: %w", err)
		}
		donations = append(donations, *d)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating donations: %w", err)
	}

	return donations, totalCount, nil
}

// TransitionStart records the health check outcome. The WHERE guard makes
// the scheduled -> {in_progress|cancelled} step a compare-and-set.
func (r *Repository) TransitionStart(ctx context.Context, id string, hc HealthCheck, col *Collection, newStatus Status) (bool, error) {
	hcJSON, err := json.Marshal(hc)
	if err != nil {
		return false, fmt.Errorf("failed to encode health check: %w", err)
	}

	var colJSON []byte
	if col != nil {
		colJSON, err = json.Marshal(col)
		if err != nil {
			return false, fmt.Errorf("failed to encode collection: %w", err)
		}
	}

	query := `
		UPDATE donations
		SET status = $2, health_check = $3, collection = COALESCE($4, collection), updated_at = $5
		WHERE id = $1 AND status = 'scheduled'
	`

	result, err := r.db.ExecContext(ctx, query, id, string(newStatus), hcJSON, colJSON, time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to start donation: %w", err)
	}
	return rowsAffected(result)
}

func (r *Repository) TransitionComplete(ctx context.Context, id string, col Collection) (bool, error) {
	colJSON, err := json.Marshal(col)
	if err != nil {
		return false, fmt.Errorf("failed to encode collection: %w", err)
	}

	query := `
		UPDATE donations
		SET status = 'completed', collection = $2, updated_at = $3
		WHERE id = $1 AND status = 'in_progress'
	`

	result, err := r.db.ExecContext(ctx, query, id, colJSON, time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to complete donation: %w", err)
	}
	return rowsAffected(result)
}

func (r *Repository) TransitionTested(ctx context.Context, id string, tr TestResults, newStatus Status) (bool, error) {
	trJSON, err := json.Marshal(tr)
	if err != nil {
		return false, fmt.Errorf("failed to encode test results: %w", err)
	}

	query := `
		UPDATE donations
		SET status = $2, test_results = $3, updated_at = $4
		WHERE id = $1 AND status = 'completed'
	`

	result, err := r.db.ExecContext(ctx, query, id, string(newStatus), trJSON, time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to record test results: %w", err)
	}
	return rowsAffected(result)
}

func (r *Repository) TransitionStored(ctx context.Context, id string, st Storage) (bool, error) {
	stJSON, err := json.Marshal(st)
	if err != nil {
		return false, fmt.Errorf("failed to encode storage record: %w", err)
	}

	query := `
		UPDATE donations
		SET status = 'stored', storage = $2, updated_at = $3
		WHERE id = $1 AND status = 'tested'
	`

	result, err := r.db.ExecContext(ctx, query, id, stJSON, time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to store donation: %w", err)
	}
	return rowsAffected(result)
}

func (r *Repository) TransitionDistributed(ctx context.Context, id string, dist Distribution) (bool, error) {
	distJSON, err := json.Marshal(dist)
	if err != nil {
		return false, fmt.Errorf("failed to encode distribution record: %w", err)
	}

	query := `
		UPDATE donations
		SET status = 'distributed', distribution = $2, updated_at = $3
		WHERE id = $1 AND status = 'stored'
	`

	result, err := r.db.ExecContext(ctx, query, id, distJSON, time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to distribute donation: %w", err)
	}
	return rowsAffected(result)
}

func (r *Repository) CancelDonation(ctx context.Context, id, reason string) (bool, error) {
	query := `
		UPDATE donations
		SET status = 'cancelled', cancel_reason = $2, updated_at = $3
		WHERE id = $1 AND status NOT IN ('discarded', 'distributed', 'cancelled')
	`

	result, err := r.db.ExecContext(ctx, query, id, reason, time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to cancel donation: %w", err)
	}
	return rowsAffected(result)
}

func (r *Repository) SetFeedback(ctx context.Context, id string, fb Feedback) error {
	fbJSON, err := json.Marshal(fb)
	if err != nil {
		return fmt.Errorf("failed to encode feedback: %w", err)
	}

	query := `
		UPDATE donations
		SET feedback = $2, updated_at = $3
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, fbJSON, time.Now())
	if err != nil {
		return fmt.Errorf("failed to save feedback: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrDonationNotFound
	}
	return nil
}

func (r *Repository) RequestExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM blood_requests WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check blood request: %w", err)
	}
	return exists, nil
}

func rowsAffected(result sql.Result) (bool, error) {
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func unmarshalInto(raw []byte, target interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, target)
}
