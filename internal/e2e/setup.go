//go:build integration

package e2e

import (
	"context"
	"crypto/rsa"
	"database/sql"
	"net/http/httptest"
	"testing"

	"github.com/LifeLink-Blood-Care/blood-service/internal/auth"
	"github.com/LifeLink-Blood-Care/blood-service/internal/bloodtype"
	"github.com/LifeLink-Blood-Care/blood-service/internal/db"
	httpserver "github.com/LifeLink-Blood-Care/blood-service/internal/http"
	"github.com/LifeLink-Blood-Care/blood-service/internal/locator"
	"github.com/LifeLink-Blood-Care/blood-service/internal/telemetry"
	"github.com/LifeLink-Blood-Care/blood-service/internal/testutil"
)

// StubLocator is an in-memory Locator so E2E tests run without Redis.
// FindNearby returns every indexed donor regardless of distance, in
// insertion order, filtered by blood type and availability.
type StubLocator struct {
	Donors []locator.DonorLocation
}

func (l *StubLocator) FindNearby(ctx context.Context, p locator.Point, radiusMeters float64, acceptable []bloodtype.BloodType) ([]locator.DonorSummary, error) {
	acceptableSet := make(map[bloodtype.BloodType]struct{}, len(acceptable))
	for _, bt := range acceptable {
		acceptableSet[bt] = struct{}{}
	}

	var out []locator.DonorSummary
	for _, d := range l.Donors {
		if !d.Available {
			continue
		}
		if _, ok := acceptableSet[d.BloodType]; !ok {
			continue
		}
		out = append(out, locator.DonorSummary{
			ID:        d.ID,
			Name:      d.Name,
			Phone:     d.Phone,
			BloodType: d.BloodType,
		})
	}
	return out, nil
}

func (l *StubLocator) UpsertDonor(ctx context.Context, loc locator.DonorLocation) error {
	for i, d := range l.Donors {
		if d.ID == loc.ID {
			l.Donors[i] = loc
			return nil
		}
	}
	l.Donors = append(l.Donors, loc)
	return nil
}

func (l *StubLocator) SetAvailability(ctx context.Context, donorID string, available bool) error {
	for i, d := range l.Donors {
		if d.ID == donorID {
			l.Donors[i].Available = available
		}
	}
	return nil
}

func (l *StubLocator) RemoveDonor(ctx context.Context, donorID string) error {
	for i, d := range l.Donors {
		if d.ID == donorID {
			l.Donors = append(l.Donors[:i], l.Donors[i+1:]...)
			return nil
		}
	}
	return nil
}

// TestServer represents a complete E2E test environment
type TestServer struct {
	Server        *httptest.Server
	DB            *sql.DB
	Locator       *StubLocator
	MockPublisher *testutil.MockPublisher
	Verifier      *auth.Verifier
	PrivateKey    *rsa.PrivateKey
}

// SetupE2ETest creates a complete test environment:
// real PostgreSQL with the service schema applied, real HTTP server with
// all routes, in-memory locator and publisher, test JWT verifier.
func SetupE2ETest(t *testing.T) *TestServer {
	t.Helper()

	database := testutil.SetupTestDB(t)
	if err := db.Migrate(context.Background(), database); err != nil {
		t.Fatalf("Failed to apply schema: %v", err)
	}

	stubLoc := &StubLocator{}
	mockPublisher := testutil.NewMockPublisher()

	perms, err := auth.LoadPermissions("../../permissions.yml")
	if err != nil {
		t.Fatalf("Failed to load permissions: %v", err)
	}

	verifier, privateKey := testutil.CreateTestVerifier(t)

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		t.Fatalf("Failed to initialize metrics: %v", err)
	}

	router := httpserver.SetupRouter(database, stubLoc, mockPublisher, verifier, perms, metrics)
	server := httptest.NewServer(router)

	return &TestServer{
		Server:        server,
		DB:            database,
		Locator:       stubLoc,
		MockPublisher: mockPublisher,
		Verifier:      verifier,
		PrivateKey:    privateKey,
	}
}

// Cleanup cleans up all test resources
func (ts *TestServer) Cleanup(t *testing.T) {
	t.Helper()

	ts.Server.Close()
	testutil.CleanupTestDB(t, ts.DB)
	ts.DB.Close()
}

// IndexDonor seeds a donor into both the database and the stub locator
func (ts *TestServer) IndexDonor(t *testing.T, id, name string, bt bloodtype.BloodType) {
	t.Helper()

	testutil.SeedDonor(t, ts.DB, id, name, string(bt))
	ts.Locator.Donors = append(ts.Locator.Donors, locator.DonorLocation{
		ID:        id,
		Name:      name,
		Phone:     "+233200000001",
		BloodType: bt,
		Available: true,
	})
}

// NewClient creates a new HTTP test client for this server with the given token
func (ts *TestServer) NewClient(token string) *testutil.HTTPTestClient {
	return testutil.NewHTTPTestClient(ts.Server.URL, token)
}
