package request

import (
	"context"
	"database/sql"
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

const requestColumns = `
	id, requester_id, requester_name, requester_phone, requester_email,
	patient_age, patient_gender, blood_type, product_type, units, urgency,
	reason, required_by, longitude, latitude, city, state,
	status, notes, view_count, response_count,
	units_received, completion_notes, cancel_reason, completed_at,
	confirmed_donor_id, donation_date, donation_time, donation_location, confirmed_at,
	expires_at, created_at, updated_at`

func (r *Repository) CreateRequest(ctx context.Context, req *BloodRequest) error {
	query := `
		INSERT INTO blood_requests
		(id, requester_id, requester_name, requester_phone, requester_email,
		 patient_age, patient_gender, blood_type, product_type, units, urgency,
		 reason, required_by, longitude, latitude, city, state,
		 status, notes, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`

	_, err := r.db.ExecContext(ctx, query,
		req.ID,
		req.RequesterID,
		req.RequesterName,
		req.RequesterPhone,
		req.RequesterEmail,
		req.PatientAge,
		req.PatientGender,
		string(req.BloodType),
		string(req.ProductType),
		req.Units,
		string(req.Urgency),
		req.Reason,
		req.RequiredBy,
		req.Longitude,
		req.Latitude,
		req.City,
		req.State,
		string(req.Status),
		req.Notes,
		req.ExpiresAt,
		req.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert blood request: %w", err)
	}

	return nil
}

func (r *Repository) scanRequest(row interface {
	Scan(dest ...interface{}) error
}) (*BloodRequest, error) {
	var req BloodRequest
	var email, reason, notes, completionNotes, cancelReason sql.NullString
	var unitsReceived sql.NullInt64
	var completedAt, confirmedAt, updatedAt sql.NullTime
	var confirmedDonorID, donationDate, donationTime, donationLocation sql.NullString
	var bt, pt, urgency, status string

	err := row.Scan(
		&req.ID,
		&req.RequesterID,
		&req.RequesterName,
		&req.RequesterPhone,
		&email,
		&req.PatientAge,
		&req.PatientGender,
		&bt,
		&pt,
		&req.Units,
		&urgency,
		&reason,
		&req.RequiredBy,
		&req.Longitude,
		&req.Latitude,
		&req.City,
		&req.State,
		&status,
		&notes,
		&req.ViewCount,
		&req.ResponseCount,
		&unitsReceived,
		&completionNotes,
		&cancelReason,
		&completedAt,
		&confirmedDonorID,
		&donationDate,
		&donationTime,
		&donationLocation,
		&confirmedAt,
		&req.ExpiresAt,
		&req.CreatedAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	req.BloodType = bloodtype.BloodType(bt)
	req.ProductType = ProductType(pt)
	req.Urgency = Urgency(urgency)
	req.Status = Status(status)

	if email.Valid {
		req.RequesterEmail = email.String
	}
	if reason.Valid {
		req.Reason = reason.String
	}
	if notes.Valid {
		req.Notes = notes.String
	}
	if unitsReceived.Valid {
		req.UnitsReceived = int(unitsReceived.Int64)
	}
	if completionNotes.Valid {
		req.CompletionNotes = completionNotes.String
	}
	if cancelReason.Valid {
		req.CancelReason = cancelReason.String
	}
	if completedAt.Valid {
		req.CompletedAt = &completedAt.Time
	}
	if updatedAt.Valid {
		req.UpdatedAt = &updatedAt.Time
	}
	if confirmedDonorID.Valid && confirmedAt.Valid {
		req.ConfirmedDonor = &ConfirmedDonor{
			DonorID:          confirmedDonorID.String,
			DonationDate:     donationDate.String,
			DonationTime:     donationTime.String,
			DonationLocation: donationLocation.String,
			ConfirmedAt:      confirmedAt.Time,
		}
	}

	return &req, nil
}

func (r *Repository) GetRequest(ctx context.Context, id string) (*BloodRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM blood_requests WHERE id = $1`, requestColumns)

	req, err := r.scanRequest(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query blood request: %w", err)
	}

	matches, err := r.ListMatches(ctx, id)
	if err != nil {
		return nil, err
	}
	req.MatchedDonors = matches

	return req, nil
}

func (r *Repository) ListRequests(ctx context.Context, limit, offset int, filters ListFilters) ([]BloodRequest, int, error) {
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
	addFilter("urgency", filters.Urgency)
	addFilter("blood_type", filters.BloodType)
	addFilter("city", filters.City)

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var totalCount int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM blood_requests %s`, where)
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count blood requests: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM blood_requests
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, requestColumns, where, argIndex, argIndex+1)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query blood requests: %w", err)
	}
	defer rows.Close()

	var requests []BloodRequest
	for rows.Next() {
		req, err := r.scanRequest(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan blood request: %w", err)
		}
		requests = append(requests, *req)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating blood requests: %w", err)
	}

	return requests, totalCount, nil
}

// InsertMatch appends a match entry. The UNIQUE (request_id, donor_id)
// constraint plus ON CONFLICT DO NOTHING make the does-this-donor-already-
// have-an-entry check and the append a single atomic statement.
func (r *Repository) InsertMatch(ctx context.Context, m MatchedDonor) (bool, error) {
	query := `
		INSERT INTO request_matches
		(request_id, donor_id, donor_name, donor_phone, status, notes, matched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (request_id, donor_id) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query,
		m.RequestID,
		m.DonorID,
		m.DonorName,
		m.DonorPhone,
		string(m.Status),
		m.Notes,
		m.MatchedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert match entry: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}

func (r *Repository) UpdateMatchStatus(ctx context.Context, requestID, donorID string, status MatchStatus, notes string) error {
	query := `
		UPDATE request_matches
		SET status = $3, notes = COALESCE(NULLIF($4, ''), notes), updated_at = $5
		WHERE request_id = $1 AND donor_id = $2
	`

	result, err := r.db.ExecContext(ctx, query, requestID, donorID, string(status), notes, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update match entry: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrDonorNotMatched
	}

	return nil
}

func (r *Repository) ListMatches(ctx context.Context, requestID string) ([]MatchedDonor, error) {
	query := `
		SELECT request_id, donor_id, donor_name, donor_phone, status, notes, matched_at, updated_at
		FROM request_matches
		WHERE request_id = $1
		ORDER BY matched_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to query match entries: %w", err)
	}
	defer rows.Close()

	var matches []MatchedDonor
	for rows.Next() {
		var m MatchedDonor
		var phone, notes sql.NullString
		var status string
		var updatedAt sql.NullTime

		err := rows.Scan(&m.RequestID, &m.DonorID, &m.DonorName, &phone, &status, &notes, &m.MatchedAt, &updatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match entry: %w", err)
		}

		m.Status = MatchStatus(status)
		if phone.Valid {
			m.DonorPhone = phone.String
		}
		if notes.Valid {
			m.Notes = notes.String
		}
		if updatedAt.Valid {
			m.UpdatedAt = &updatedAt.Time
		}

		matches = append(matches, m)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating match entries: %w", err)
	}

	return matches, nil
}

// SetMatchedStatus advances a pending request to matched. The WHERE guard
// makes the transition a compare-and-set; it reports whether this call won.
func (r *Repository) SetMatchedStatus(ctx context.Context, requestID string) (bool, error) {
	query := `
		UPDATE blood_requests
		SET status = 'matched', updated_at = $2
		WHERE id = $1 AND status = 'pending'
	`

	result, err := r.db.ExecContext(ctx, query, requestID, time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to set matched status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

// ConfirmDonor pins the chosen donor. The status guard keeps the write
// off requests that reached a terminal state since they were loaded; it
// reports whether this call won.
func (r *Repository) ConfirmDonor(ctx context.Context, requestID string, cd ConfirmedDonor) (bool, error) {
	query := `
		UPDATE blood_requests
		SET status = 'confirmed',
		    confirmed_donor_id = $2,
		    donation_date = $3,
		    donation_time = $4,
		    donation_location = $5,
		    confirmed_at = $6,
		    updated_at = $6
		WHERE id = $1 AND status NOT IN ('completed', 'fulfilled', 'cancelled', 'expired')
	`

	result, err := r.db.ExecContext(ctx, query, requestID,
		cd.DonorID, cd.DonationDate, cd.DonationTime, cd.DonationLocation, cd.ConfirmedAt)
	if err != nil {
		return false, fmt.Errorf("failed to confirm donor: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

func (r *Repository) CompleteRequest(ctx context.Context, requestID string, unitsReceived int, notes string, completedAt time.Time) (bool, error) {
	query := `
		UPDATE blood_requests
		SET status = 'completed',
		    units_received = $2,
		    completion_notes = $3,
		    completed_at = $4,
		    updated_at = $4
		WHERE id = $1 AND status NOT IN ('completed', 'fulfilled', 'cancelled', 'expired')
	`

	result, err := r.db.ExecContext(ctx, query, requestID, unitsReceived, notes, completedAt)
	if err != nil {
		return false, fmt.Errorf("failed to complete blood request: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

func (r *Repository) CancelRequest(ctx context.Context, requestID, reason string) (bool, error) {
	query := `
		UPDATE blood_requests
		SET status = 'cancelled', cancel_reason = $2, updated_at = $3
		WHERE id = $1 AND status NOT IN ('completed', 'fulfilled', 'cancelled', 'expired')
	`

	result, err := r.db.ExecContext(ctx, query, requestID, reason, time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to cancel blood request: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

func (r *Repository) UpdateRequest(ctx context.Context, requestID string, upd UpdateRequest) (bool, error) {
	var updates []string
	var args []interface{}
	argIndex := 1

	if upd.Urgency != nil {
		updates = append(updates, fmt.Sprintf("urgency = $%d", argIndex))
		args = append(args, *upd.Urgency)
		argIndex++
	}
	if upd.RequiredBy != nil {
		updates = append(updates, fmt.Sprintf("required_by = $%d", argIndex))
		args = append(args, *upd.RequiredBy)
		argIndex++
	}
	if upd.Notes != nil {
		updates = append(updates, fmt.Sprintf("notes = $%d", argIndex))
		args = append(args, *upd.Notes)
		argIndex++
	}
	if upd.Status != nil {
		updates = append(updates, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, *upd.Status)
		argIndex++
	}

	if len(updates) == 0 {
		return false, fmt.Errorf("no fields to update")
	}

	updates = append(updates, fmt.Sprintf("updated_at = $%d", argIndex))
	args = append(args, time.Now())
	argIndex++

	args = append(args, requestID)

	query := fmt.Sprintf(`
		UPDATE blood_requests
		SET %s
		WHERE id = $%d AND status NOT IN ('completed', 'fulfilled', 'cancelled', 'expired')
	`, strings.Join(updates, ", "), argIndex)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to update blood request: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

// ExpirePending is the compare-and-set behind the passive expiry check:
// only a request still pending may flip to expired.
func (r *Repository) ExpirePending(ctx context.Context, requestID string) (bool, error) {
	query := `
		UPDATE blood_requests
		SET status = 'expired', updated_at = $2
		WHERE id = $1 AND status = 'pending'
	`

	result, err := r.db.ExecContext(ctx, query, requestID, time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to expire blood request: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

func (r *Repository) ListExpiryDue(ctx context.Context, now time.Time) ([]BloodRequest, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM blood_requests
		WHERE status = 'pending' AND (expires_at < $1 OR required_by < $1)
		ORDER BY created_at ASC
	`, requestColumns)

	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query expiry-due requests: %w", err)
	}
	defer rows.Close()

	var requests []BloodRequest
	for rows.Next() {
		req, err := r.scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan blood request: %w", err)
		}
		requests = append(requests, *req)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expiry-due requests: %w", err)
	}

	return requests, nil
}

func (r *Repository) IncrementViewCount(ctx context.Context, requestID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE blood_requests SET view_count = view_count + 1 WHERE id = $1`, requestID)
	if err != nil {
		return fmt.Errorf("failed to increment view count: %w", err)
	}
	return nil
}

func (r *Repository) IncrementResponseCount(ctx context.Context, requestID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE blood_requests SET response_count = response_count + 1 WHERE id = $1`, requestID)
	if err != nil {
		return fmt.Errorf("failed to increment response count: %w", err)
	}
	return nil
}
