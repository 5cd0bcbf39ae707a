package donor

import (
	"time"

	"github.com/LifeLink-Blood-Care/blood-service/internal/bloodtype"
)

// Donor is the shared donor record consulted by both lifecycles.
type Donor struct {
	ID               string              `json:"id"`
	Name             string              `json:"name"`
	Email            string              `json:"email"`
	PhoneNumber      string              `json:"phoneNumber,omitempty"`
	BloodType        bloodtype.BloodType `json:"bloodType,omitempty"`
	City             string              `json:"city"`
	State            string              `json:"state"`
	Longitude        float64             `json:"longitude"`
	Latitude         float64             `json:"latitude"`
	Available        bool                `json:"available"`
	MedicalFlags     []string            `json:"medicalFlags,omitempty"`
	LastDonationDate *time.Time          `json:"lastDonationDate,omitempty"`
	Stats            Stats               `json:"stats"`
	CreatedAt        time.Time           `json:"createdAt"`
}

// Stats are cumulative counters mutated by independent pipelines. They are
// only ever updated additively (increment / running average), never by
// read-then-overwrite, so concurrent completions for the same donor stay
// correct.
type Stats struct {
	TotalDonations int     `json:"totalDonations"`
	LivesSaved     int     `json:"livesSaved"`
	RatingSum      int     `json:"-"`
	RatingCount    int     `json:"-"`
	AverageRating  float64 `json:"averageRating"`
}

// MinDonationInterval is the soft-eligibility spacing between donations.
const MinDonationInterval = 90 * 24 * time.Hour

// EligibilityWarnings evaluates the soft pre-screen used at scheduling
// time. Warnings never block scheduling; full eligibility is re-verified
// by staff at health-check time.
func (d *Donor) EligibilityWarnings(now time.Time) []string {
	var warnings []string

	if d.LastDonationDate != nil {
		since := now.Sub(*d.LastDonationDate)
		if since < MinDonationInterval {
			warnings = append(warnings, "last donation was less than 90 days ago")
		}
	}
	for _, flag := range d.MedicalFlags {
		warnings = append(warnings, "medical flag on file: "+flag)
	}

	return warnings
}
