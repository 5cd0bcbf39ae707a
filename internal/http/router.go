package http

import (
	"database/sql"
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"github.com/LifeLink-Blood-Care/blood-service/internal/auth"
	"github.com/LifeLink-Blood-Care/blood-service/internal/donation"
	"github.com/LifeLink-Blood-Care/blood-service/internal/donor"
	"github.com/LifeLink-Blood-Care/blood-service/internal/locator"
	"github.com/LifeLink-Blood-Care/blood-service/internal/messaging"
	"github.com/LifeLink-Blood-Care/blood-service/internal/request"
	"github.com/LifeLink-Blood-Care/blood-service/internal/telemetry"
)

// SetupRouter initializes all routes for the application
func SetupRouter(db *sql.DB, loc locator.Locator, publisher messaging.PublisherInterface,
	verifier *auth.Verifier, perms auth.Permissions, metrics *telemetry.Metrics) *mux.Router {

	donorRepo := donor.NewRepository(db)

	// Blood request lifecycle components
	requestRepo := request.NewRepository(db)
	requestService := request.NewService(requestRepo, loc, publisher)
	requestHandler := request.NewHandler(requestService)

	// Donation pipeline components. The donor repository and the locator
	// both act as availability markers so the spatial index stays in step
	// with the donor record while a donation is in flight.
	donationRepo := donation.NewRepository(db)
	donationService := donation.NewService(donationRepo, donorRepo, publisher, donorRepo, loc)
	donationHandler := donation.NewHandler(donationService)

	r := mux.NewRouter()
	r.Use(otelmux.Middleware("blood-service"))
	r.Use(MetricsMiddleware(metrics))

	// protect wraps a handler with token verification and a permission
	// check, both recording into the shared metrics.
	protect := func(per string, h http.HandlerFunc) http.Handler {
		return auth.MiddlewareWithMetrics(verifier, metrics)(
			auth.RequirePermissionWithMetrics(per, perms, metrics)(h),
		)
	}

	// Public health endpoint
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"blood-service"}`))
	}).Methods("GET")

	// Blood request routes
	r.Handle("/api/requests", protect("request:create", requestHandler.CreateRequest)).Methods("POST")
	r.Handle("/api/requests", protect("request:view", requestHandler.ListRequests)).Methods("GET")
	r.Handle("/api/requests/{id}", protect("request:view", requestHandler.GetRequest)).Methods("GET")
	r.Handle("/api/requests/{id}", protect("request:update", requestHandler.UpdateRequest)).Methods("PATCH")
	r.Handle("/api/requests/{id}/respond", protect("request:respond", requestHandler.Respond)).Methods("POST")
	r.Handle("/api/requests/{id}/confirm-donor", protect("request:confirm", requestHandler.ConfirmDonor)).Methods("POST")
	r.Handle("/api/requests/{id}/complete", protect("request:complete", requestHandler.CompleteRequest)).Methods("POST")
	r.Handle("/api/requests/{id}/cancel", protect("request:cancel", requestHandler.CancelRequest)).Methods("POST")

	// Donation pipeline routes
	r.Handle("/api/donations", protect("donation:schedule", donationHandler.ScheduleDonation)).Methods("POST")
	r.Handle("/api/donations", protect("donation:view", donationHandler.ListDonations)).Methods("GET")
	r.Handle("/api/donations/{id}", protect("donation:view", donationHandler.GetDonation)).Methods("GET")
	r.Handle("/api/donations/{id}/start", protect("donation:process", donationHandler.StartDonation)).Methods("POST")
	r.Handle("/api/donations/{id}/complete", protect("donation:process", donationHandler.CompleteDonation)).Methods("POST")
	r.Handle("/api/donations/{id}/test-results", protect("donation:test", donationHandler.RecordTestResults)).Methods("POST")
	r.Handle("/api/donations/{id}/store", protect("donation:store", donationHandler.StoreBlood)).Methods("POST")
	r.Handle("/api/donations/{id}/distribute", protect("donation:distribute", donationHandler.DistributeBlood)).Methods("POST")
	r.Handle("/api/donations/{id}/feedback", protect("donation:feedback", donationHandler.SubmitFeedback)).Methods("POST")
	r.Handle("/api/donations/{id}/cancel", protect("donation:cancel", donationHandler.CancelDonation)).Methods("POST")

	return r
}
