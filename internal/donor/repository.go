package donor

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/LifeLink-Blood-Care/blood-service/internal/bloodtype"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetDonor(ctx context.Context, id string) (*Donor, error) {
	query := `
		SELECT id, name, email, phone_number, blood_type, city, state,
		       longitude, latitude, available, medical_flags, last_donation_date,
		       total_donations, lives_saved, rating_sum, rating_count, created_at
		FROM donors
		WHERE id = $1
	`

	var d Donor
	var phone sql.NullString
	var bt sql.NullString
	var flags pq.StringArray
	var lastDonation sql.NullTime

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&d.ID,
		&d.Name,
		&d.Email,
		&phone,
		&bt,
		&d.City,
		&d.State,
		&d.Longitude,
		&d.Latitude,
		&d.Available,
		&flags,
		&lastDonation,
		&d.Stats.TotalDonations,
		&d.Stats.LivesSaved,
		&d.Stats.RatingSum,
		&d.Stats.RatingCount,
		&d.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrDonorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query donor: %w", err)
	}

	if phone.Valid {
		d.PhoneNumber = phone.String
	}
	if bt.Valid {
		d.BloodType = bloodtype.BloodType(bt.String)
	}
	if lastDonation.Valid {
		d.LastDonationDate = &lastDonation.Time
	}
	d.MedicalFlags = flags
	if d.Stats.RatingCount > 0 {
		d.Stats.AverageRating = float64(d.Stats.RatingSum) / float64(d.Stats.RatingCount)
	}

	return &d, nil
}

// RecordDonationCompleted bumps the cumulative donation counter and moves
// the last-donation date forward. Both writes are additive so concurrent
// completions for the same donor do not lose updates.
func (r *Repository) RecordDonationCompleted(ctx context.Context, donorID string, completedAt time.Time) error {
	query := `
		UPDATE donors
		SET total_donations = total_donations + 1,
		    last_donation_date = GREATEST(COALESCE(last_donation_date, $2), $2)
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, donorID, completedAt)
	if err != nil {
		return fmt.Errorf("failed to record completed donation: %w", err)
	}
	return requireDonorRow(result)
}

// IncrementLivesSaved adds the distributed unit count to the donor's
// lives-saved counter.
func (r *Repository) IncrementLivesSaved(ctx context.Context, donorID string, units int) error {
	query := `UPDATE donors SET lives_saved = lives_saved + $2 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, donorID, units)
	if err != nil {
		return fmt.Errorf("failed to increment lives saved: %w", err)
	}
	return requireDonorRow(result)
}

// AddRating folds one feedback rating into the running sum/count pair.
func (r *Repository) AddRating(ctx context.Context, donorID string, rating int) error {
	if rating < 1 || rating > 5 {
		return ErrInvalidRating
	}

	query := `
		UPDATE donors
		SET rating_sum = rating_sum + $2,
		    rating_count = rating_count + 1
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, donorID, rating)
	if err != nil {
		return fmt.Errorf("failed to add rating: %w", err)
	}
	return requireDonorRow(result)
}

func (r *Repository) SetAvailability(ctx context.Context, donorID string, available bool) error {
	query := `UPDATE donors SET available = $2 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, donorID, available)
	if err != nil {
		return fmt.Errorf("failed to set donor availability: %w", err)
	}
	return requireDonorRow(result)
}

func requireDonorRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrDonorNotFound
	}
	return nil
}
