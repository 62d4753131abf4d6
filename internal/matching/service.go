package matching

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pixiedvc/pixiedvc-backend/pkg/db/models"
	"github.com/pixiedvc/pixiedvc-backend/pkg/enums"
	pkgerrors "github.com/pixiedvc/pixiedvc-backend/pkg/errors"
	"github.com/pixiedvc/pixiedvc-backend/pkg/logger"
	"github.com/pixiedvc/pixiedvc-backend/pkg/metrics"
	"github.com/pixiedvc/pixiedvc-backend/pkg/outbox"
	"github.com/pixiedvc/pixiedvc-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// RunLock keeps two matching runs from interleaving across instances.
type RunLock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// OwnerMatchEmail is the owner-facing notification for a new match.
type OwnerMatchEmail struct {
	To             string
	OwnerName      string
	ResortName     string
	CheckIn        time.Time
	CheckOut       time.Time
	TotalPoints    int
	LeadGuestName  string
	LeadGuestEmail string
	AcceptURL      string
	DeclineURL     string
}

// OwnerMailer delivers owner match emails.
type OwnerMailer interface {
	SendOwnerMatchEmail(ctx context.Context, msg OwnerMatchEmail) error
}

// Service runs the evaluator and persists its match plans.
type Service interface {
	Evaluate(ctx context.Context, opts EvaluateOptions) (*Evaluation, error)
	Run(ctx context.Context, opts RunOptions) (*RunResult, error)
}

// ServiceParams groups the orchestrator's collaborators. Mailer, Metrics and
// Lock are optional.
type ServiceParams struct {
	Evaluator     *Evaluator
	Repo          Repository
	Tx            txRunner
	Outbox        outboxPublisher
	Mailer        OwnerMailer
	Metrics       *metrics.MatchingMetrics
	Lock          RunLock
	Logger        *logger.Logger
	PublicBaseURL string
}

type service struct {
	evaluator *Evaluator
	repo      Repository
	tx        txRunner
	outbox    outboxPublisher
	mailer    OwnerMailer
	metrics   *metrics.MatchingMetrics
	lock      RunLock
	logg      *logger.Logger
	baseURL   string
}

func NewService(params ServiceParams) (Service, error) {
	if params.Evaluator == nil {
		return nil, fmt.Errorf("matching evaluator required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("matching repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		evaluator: params.Evaluator,
		repo:      params.Repo,
		tx:        params.Tx,
		outbox:    params.Outbox,
		mailer:    params.Mailer,
		metrics:   params.Metrics,
		lock:      params.Lock,
		logg:      params.Logger,
		baseURL:   strings.TrimRight(params.PublicBaseURL, "/"),
	}, nil
}

func (s *service) Evaluate(ctx context.Context, opts EvaluateOptions) (*Evaluation, error) {
	return s.evaluator.Evaluate(ctx, opts)
}

func (s *service) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	if s.lock != nil && !opts.DryRun {
		acquired, err := s.lock.Acquire(ctx)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire matching lock")
		}
		if !acquired {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "matching run already in progress")
		}
		defer func() {
			if err := s.lock.Release(context.Background()); err != nil && s.logg != nil {
				s.logg.Error(ctx, "release matching lock", err)
			}
		}()
	}

	s.metrics.IncRun(opts.DryRun)

	evaluation, err := s.evaluator.Evaluate(ctx, opts.EvaluateOptions)
	if err != nil {
		return nil, err
	}

	result := &RunResult{
		OK:                true,
		MatchIDs:          []uuid.UUID{},
		DryRun:            opts.DryRun,
		EligibleBookings:  evaluation.EligibleBookings,
		EvaluatedBookings: evaluation.EvaluatedBookings,
		Errors:            evaluation.Errors,
	}
	if opts.DryRun {
		s.recordSkips(result.EvaluatedBookings)
		return result, nil
	}

	for _, plan := range evaluation.MatchPlans {
		logCtx := ctx
		if s.logg != nil {
			logCtx = s.logg.WithBookingID(ctx, plan.BookingID.String())
		}

		matchID, err := s.applyMatch(ctx, plan)
		if err == nil && matchID == uuid.Nil {
			err = errors.New("apply returned no match id")
		}
		if err != nil {
			s.metrics.IncApplyFailure()
			markApplyFailed(result.EvaluatedBookings, plan.BookingID)
			id := plan.BookingID
			result.Errors = append(result.Errors, EvaluationError{BookingID: &id, Stage: "apply_match", Message: err.Error()})
			if s.logg != nil {
				s.logg.Error(logCtx, "apply booking match failed", err)
			}
			continue
		}

		result.MatchesCreated++
		result.MatchIDs = append(result.MatchIDs, matchID)
		if s.logg != nil {
			s.logg.Info(s.logg.WithMatchID(logCtx, matchID.String()), "booking match created")
		}

		if opts.SendEmails {
			s.notifyOwner(logCtx, matchID, plan)
		}
	}

	s.metrics.AddMatches(result.MatchesCreated)
	s.recordSkips(result.EvaluatedBookings)
	return result, nil
}

// applyMatch reserves points, moves the booking to pending_owner and inserts
// the match in one transaction. Any failing step rolls back all of them.
func (s *service) applyMatch(ctx context.Context, plan MatchPlan) (uuid.UUID, error) {
	if plan.PointsReservedBorrowed > 0 && plan.BorrowMembershipID == nil {
		return uuid.Nil, fmt.Errorf("borrowed points without a borrow membership")
	}

	var matchID uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if err := repo.TransitionBookingStatus(ctx, plan.BookingID, enums.BookingStatusSubmitted, enums.BookingStatusPendingOwner); err != nil {
			return fmt.Errorf("transition booking: %w", err)
		}
		if err := repo.ReservePoints(ctx, plan.OwnerMembershipID, plan.PointsReservedCurrent); err != nil {
			return fmt.Errorf("reserve current points: %w", err)
		}
		if plan.PointsReservedBorrowed > 0 {
			if err := repo.ReservePoints(ctx, *plan.BorrowMembershipID, plan.PointsReservedBorrowed); err != nil {
				return fmt.Errorf("reserve borrowed points: %w", err)
			}
		}

		match := &models.BookingMatch{
			BookingID:                     plan.BookingID,
			OwnerID:                       plan.OwnerID,
			OwnerMembershipID:             plan.OwnerMembershipID,
			PointsReserved:                plan.PointsReserved,
			PointsReservedCurrent:         plan.PointsReservedCurrent,
			PointsReservedBorrowed:        plan.PointsReservedBorrowed,
			BorrowMembershipID:            plan.BorrowMembershipID,
			ExpiresAt:                     plan.ExpiresAt,
			OwnerBaseRatePerPointCents:    plan.Payout.BaseRatePerPointCents,
			OwnerPremiumPerPointCents:     plan.Payout.PremiumPerPointCents,
			OwnerRatePerPointCents:        plan.Payout.RatePerPointCents,
			OwnerTotalCents:               plan.Payout.TotalCents,
			OwnerHomeResortPremiumApplied: plan.Payout.HomeResortPremiumApplied,
			Status:                        enums.MatchStatusPendingOwner,
		}
		if err := repo.InsertMatch(ctx, match); err != nil {
			return fmt.Errorf("insert match: %w", err)
		}
		matchID = match.ID

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventMatchCreated,
			AggregateType: enums.AggregateBookingMatch,
			AggregateID:   match.ID,
			Data: payloads.MatchCreatedEvent{
				MatchID:                match.ID,
				BookingID:              plan.BookingID,
				OwnerID:                plan.OwnerID,
				OwnerMembershipID:      plan.OwnerMembershipID,
				BorrowMembershipID:     plan.BorrowMembershipID,
				PointsReserved:         plan.PointsReserved,
				PointsReservedBorrowed: plan.PointsReservedBorrowed,
				OwnerTotalCents:        plan.Payout.TotalCents,
				ExpiresAt:              plan.ExpiresAt,
			},
		})
	})
	if err != nil {
		return uuid.Nil, err
	}
	return matchID, nil
}

// notifyOwner is best effort; the match stands even if the email fails.
func (s *service) notifyOwner(ctx context.Context, matchID uuid.UUID, plan MatchPlan) {
	if s.mailer == nil || plan.Notification.To == "" {
		return
	}
	msg := OwnerMatchEmail{
		To:             plan.Notification.To,
		OwnerName:      plan.Notification.OwnerName,
		ResortName:     plan.Notification.ResortName,
		CheckIn:        plan.Notification.CheckIn,
		CheckOut:       plan.Notification.CheckOut,
		TotalPoints:    plan.Notification.TotalPoints,
		LeadGuestName:  plan.Notification.LeadGuestName,
		LeadGuestEmail: plan.Notification.LeadGuestEmail,
		AcceptURL:      s.decisionURL(matchID, enums.MatchDecisionAccept),
		DeclineURL:     s.decisionURL(matchID, enums.MatchDecisionDecline),
	}
	if err := s.mailer.SendOwnerMatchEmail(ctx, msg); err != nil {
		s.metrics.IncEmailFailure()
		if s.logg != nil {
			s.logg.Error(s.logg.WithMatchID(ctx, matchID.String()), "owner match email failed", err)
		}
	}
}

func (s *service) decisionURL(matchID uuid.UUID, decision enums.MatchDecision) string {
	return fmt.Sprintf("%s/owner/matches/%s/%s", s.baseURL, matchID, decision)
}

func (s *service) recordSkips(evaluated []BookingEvaluation) {
	for _, eval := range evaluated {
		if eval.FinalDecision != DecisionSkipped {
			continue
		}
		for _, reason := range eval.SkipReasons {
			s.metrics.IncSkip(string(reason))
		}
	}
}

func markApplyFailed(evaluated []BookingEvaluation, bookingID uuid.UUID) {
	for i := range evaluated {
		if evaluated[i].BookingID != bookingID {
			continue
		}
		evaluated[i].FinalDecision = DecisionSkipped
		evaluated[i].SkipReasons = append(evaluated[i].SkipReasons, SkipMatchApplyFailed)
		return
	}
}
