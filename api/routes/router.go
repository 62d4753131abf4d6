package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stripe/stripe-go/v84"

	"github.com/pixiedvc/pixiedvc-backend/api/controllers"
	webhookcontrollers "github.com/pixiedvc/pixiedvc-backend/api/controllers/webhooks"
	"github.com/pixiedvc/pixiedvc-backend/api/middleware"
	"github.com/pixiedvc/pixiedvc-backend/internal/bootstrap"
	stripewebhook "github.com/pixiedvc/pixiedvc-backend/internal/webhooks/stripe"
	"github.com/pixiedvc/pixiedvc-backend/pkg/config"
	"github.com/pixiedvc/pixiedvc-backend/pkg/enums"
	"github.com/pixiedvc/pixiedvc-backend/pkg/logger"
	"github.com/pixiedvc/pixiedvc-backend/pkg/redis"
)

type stripeVerifier interface {
	ConstructEvent(payload []byte, signature string) (stripe.Event, error)
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisClient *redis.Client,
	gatherer prometheus.Gatherer,
	engine *bootstrap.Engine,
	stripeClient stripeVerifier,
	stripeWebhookService *stripewebhook.Service,
	stripeWebhookGuard *stripewebhook.IdempotencyGuard,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	checks := []controllers.ReadinessCheck{{Name: "db", Pinger: dbP}}
	var responseStore middleware.ResponseStore
	if redisClient != nil {
		checks = append(checks, controllers.ReadinessCheck{Name: "redis", Pinger: redisClient})
		responseStore = redisClient
	}
	decisionIdempotent := middleware.Idempotency(responseStore, middleware.DecisionIdempotencyTTL, logg)
	runIdempotent := middleware.Idempotency(responseStore, middleware.MatchRunIdempotencyTTL, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, checks...))
	})

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	if stripeWebhookService != nil && stripeWebhookGuard != nil {
		r.Route("/api/v1/webhooks", func(r chi.Router) {
			r.Post("/stripe", webhookcontrollers.StripeWebhook(stripeWebhookService, stripeClient, stripeWebhookGuard, logg))
		})
	}

	r.Route("/api/v1/owner", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(logg, enums.ActorRoleOwner, enums.ActorRoleAdmin))
		r.With(decisionIdempotent).Post("/matches/{matchId}/accept", controllers.OwnerAcceptMatch(engine.Decisions, logg))
		r.With(decisionIdempotent).Post("/matches/{matchId}/decline", controllers.OwnerDeclineMatch(engine.Decisions, logg))
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(logg, enums.ActorRoleAdmin))
		r.With(runIdempotent).Post("/matching/run", controllers.AdminRunMatching(engine.Matching, logg))
		r.With(decisionIdempotent).Post("/matches/{matchId}/rental", controllers.AdminEnsureRental(engine.Rentals, logg))
		r.Get("/rentals/{rentalId}/milestones", controllers.AdminRentalMilestones(engine.Rentals, logg))
	})

	return r
}
