// Package rentals materializes the rental behind an accepted booking match.
package rentals

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pixiedvc/pixiedvc-backend/internal/payout"
	"github.com/pixiedvc/pixiedvc-backend/internal/rewards"
	"github.com/pixiedvc/pixiedvc-backend/pkg/db"
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

// EnsureResult describes the rental behind a match.
type EnsureResult struct {
	RentalID          uuid.UUID  `json:"rentalId"`
	CheckIn           *time.Time `json:"checkIn,omitempty"`
	OwnerUserID       *uuid.UUID `json:"ownerUserId,omitempty"`
	RentalAmountCents int64      `json:"rentalAmountCents"`
	Created           bool       `json:"created"`
}

// ServiceParams groups the materializer's collaborators. Rewards, Promotions,
// Metrics and Logger are optional.
type ServiceParams struct {
	Repo                  Repository
	Tx                    txRunner
	Outbox                outboxPublisher
	Calculator            payout.Calculator
	Rewards               rewards.RewardsPolicy
	Promotions            rewards.PromotionPolicy
	Metrics               *metrics.MatchingMetrics
	Logger                *logger.Logger
	DefaultGuestRateCents int64
}

type Service struct {
	repo       Repository
	tx         txRunner
	outbox     outboxPublisher
	calc       payout.Calculator
	rewards    rewards.RewardsPolicy
	promotions rewards.PromotionPolicy
	metrics    *metrics.MatchingMetrics
	logg       *logger.Logger
	guestRate  int64
	now        func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("rentals repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &Service{
		repo:       params.Repo,
		tx:         params.Tx,
		outbox:     params.Outbox,
		calc:       params.Calculator,
		rewards:    params.Rewards,
		promotions: params.Promotions,
		metrics:    params.Metrics,
		logg:       params.Logger,
		guestRate:  params.DefaultGuestRateCents,
		now:        time.Now,
	}, nil
}

// EnsureRental satisfies the matching package's accept hook.
func (s *Service) EnsureRental(ctx context.Context, matchID uuid.UUID) (uuid.UUID, error) {
	result, err := s.EnsureRentalForMatch(ctx, matchID)
	if err != nil {
		return uuid.Nil, err
	}
	return result.RentalID, nil
}

// EnsureRentalForMatch creates the rental for an accepted match, or refreshes
// the one that already exists. Loyalty enrichment never blocks creation.
func (s *Service) EnsureRentalForMatch(ctx context.Context, matchID uuid.UUID) (*EnsureResult, error) {
	match, err := s.repo.FindMatch(ctx, matchID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "match not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load match")
	}
	if match.Status != enums.MatchStatusAccepted {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "match is %s, not accepted", match.Status)
	}
	if s.logg != nil {
		ctx = s.logg.WithMatchID(ctx, match.ID.String())
	}

	booking, err := s.repo.FindBooking(ctx, match.BookingID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
	}
	if booking.RenterID == nil || *booking.RenterID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodePrecondition, "booking has no renter")
	}

	ownerID, ownerUserID, err := s.resolveOwner(ctx, match.OwnerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve owner")
	}

	points := booking.Points()
	if points <= 0 {
		points = match.PointsReserved
	}
	breakdown := s.recomputePayout(ctx, match, booking, points)
	booking = s.applyGuestDiscount(ctx, booking, breakdown.TotalCents)
	breakdown = s.applyOwnerBonus(ctx, ownerID, match, booking, breakdown, points)

	rental := models.Rental{
		MatchID:           match.ID,
		BookingID:         booking.ID,
		OwnerID:           ownerID,
		OwnerUserID:       ownerUserID,
		GuestUserID:       *booking.RenterID,
		ResortID:          booking.PrimaryResortID,
		CheckIn:           booking.CheckIn,
		CheckOut:          booking.CheckOut,
		Points:            points,
		RentalAmountCents: breakdown.TotalCents,
		GuestTotalCents:   guestTotal(booking),
		Status:            enums.RentalStatusNeedsDVCBooking,
	}

	created, err := s.upsert(ctx, &rental, booking)
	if err != nil {
		return nil, err
	}

	outcome := "updated"
	if created {
		outcome = "created"
	}
	s.metrics.IncRental(outcome)
	s.info(ctx, "rental "+outcome)

	return &EnsureResult{
		RentalID:          rental.ID,
		CheckIn:           booking.CheckIn,
		OwnerUserID:       ownerUserID,
		RentalAmountCents: rental.RentalAmountCents,
		Created:           created,
	}, nil
}

// upsert writes the rental keyed by match id. Milestones and the
// rental_created event are only produced by the insert that wins.
func (s *Service) upsert(ctx context.Context, rental *models.Rental, booking *models.BookingRequest) (bool, error) {
	created := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.FindRentalByMatch(ctx, rental.MatchID)
		switch {
		case err == nil:
			rental.ID = existing.ID
			return repo.UpdateRental(ctx, existing.ID, refreshFields(rental))
		case !db.IsNotFound(err):
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load rental")
		}

		pkg, err := buildBookingPackage(booking)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build booking package")
		}
		rental.BookingPackage = pkg
		if err := repo.InsertRental(ctx, rental); err != nil {
			return err
		}
		if err := repo.InsertMilestones(ctx, seedMilestones(rental.ID, booking, s.now().UTC())); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "seed milestones")
		}
		created = true
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventRentalCreated,
			AggregateType: enums.AggregateRental,
			AggregateID:   rental.ID,
			Data: payloads.RentalCreatedEvent{
				RentalID:          rental.ID,
				MatchID:           rental.MatchID,
				BookingID:         rental.BookingID,
				OwnerUserID:       rental.OwnerUserID,
				RentalAmountCents: rental.RentalAmountCents,
			},
		})
	})
	if err == nil {
		return created, nil
	}
	if !db.IsUniqueViolation(err, "") {
		if pkgerrors.As(err) != nil {
			return false, err
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist rental")
	}

	// A concurrent call inserted the rental first.
	existing, findErr := s.repo.FindRentalByMatch(ctx, rental.MatchID)
	if findErr != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "reload rental")
	}
	rental.ID = existing.ID
	if err := s.repo.UpdateRental(ctx, existing.ID, refreshFields(rental)); err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update rental")
	}
	return false, nil
}

func refreshFields(rental *models.Rental) map[string]any {
	return map[string]any{
		"owner_id":            rental.OwnerID,
		"owner_user_id":       rental.OwnerUserID,
		"guest_user_id":       rental.GuestUserID,
		"resort_id":           rental.ResortID,
		"check_in":            rental.CheckIn,
		"check_out":           rental.CheckOut,
		"points":              rental.Points,
		"rental_amount_cents": rental.RentalAmountCents,
		"guest_total_cents":   rental.GuestTotalCents,
	}
}

// resolveOwner maps an owner reference, which may be the owner row id or its
// linked user id, to the owner row id and the user id.
func (s *Service) resolveOwner(ctx context.Context, ref uuid.UUID) (uuid.UUID, *uuid.UUID, error) {
	owners, err := s.repo.FindOwnersByAnyID(ctx, ref)
	if err != nil {
		return uuid.Nil, nil, err
	}
	for _, owner := range owners {
		if owner.ID == ref {
			return owner.ID, owner.UserID, nil
		}
	}
	for _, owner := range owners {
		if owner.UserID != nil && *owner.UserID == ref {
			userID := *owner.UserID
			return owner.ID, &userID, nil
		}
	}
	s.warn(ctx, "owner row not found for match owner")
	return ref, nil, nil
}

// recomputePayout prices the match from the membership that fulfils it,
// falling back to the stored payout when the membership cannot be loaded.
func (s *Service) recomputePayout(ctx context.Context, match *models.BookingMatch, booking *models.BookingRequest, points int) payout.Breakdown {
	stored := storedBreakdown(match, points)
	membership, err := s.repo.FindMembership(ctx, match.OwnerMembershipID)
	if err != nil {
		s.logErr(ctx, "load matched membership; keeping stored payout", err)
		return stored
	}
	if booking.PrimaryResortID == nil {
		return stored
	}
	code := ""
	if membership.ResortID == nil {
		resort, err := s.repo.FindResort(ctx, *booking.PrimaryResortID)
		if err != nil {
			s.logErr(ctx, "load booking resort; keeping stored payout", err)
			return stored
		}
		code = resort.CalculatorCode
	}
	matched := payout.MembershipResort(membership.ResortID, membership.HomeResort, *booking.PrimaryResortID, code)
	return s.calc.ComputeOwnerPayout(points, matched, booking.PrimaryResortID)
}

// storedBreakdown is the payout recorded on the match, without any bonus.
func storedBreakdown(match *models.BookingMatch, points int) payout.Breakdown {
	rate := match.OwnerRatePerPointCents - match.OwnerBonusPerPointCents
	total := match.OwnerTotalCents
	if points > 0 {
		total = rate * int64(points)
	}
	return payout.Breakdown{
		BaseRatePerPointCents:    match.OwnerBaseRatePerPointCents,
		PremiumPerPointCents:     match.OwnerPremiumPerPointCents,
		RatePerPointCents:        rate,
		TotalCents:               total,
		HomeResortPremiumApplied: match.OwnerHomeResortPremiumApplied,
	}
}

func payoutUnchanged(match *models.BookingMatch, priced payout.Breakdown, bonus int64) bool {
	return match.OwnerBaseRatePerPointCents == priced.BaseRatePerPointCents &&
		match.OwnerPremiumPerPointCents == priced.PremiumPerPointCents &&
		match.OwnerRatePerPointCents == priced.RatePerPointCents &&
		match.OwnerTotalCents == priced.TotalCents &&
		match.OwnerHomeResortPremiumApplied == priced.HomeResortPremiumApplied &&
		match.OwnerBonusPerPointCents == bonus
}

// applyGuestDiscount takes the guest perks discount out of the platform margin
// once per booking and returns the booking as it should now be priced.
func (s *Service) applyGuestDiscount(ctx context.Context, booking *models.BookingRequest, ownerTotalCents int64) *models.BookingRequest {
	if s.rewards == nil || booking.GuestTotalCentsFinal != nil || booking.GuestTotalCents == nil {
		return booking
	}
	renter := *booking.RenterID
	enrolled, err := s.rewards.IsGuestPerksEnrolled(ctx, renter)
	if err != nil {
		s.logErr(ctx, "guest perks enrollment lookup", err)
		return booking
	}
	if !enrolled {
		return booking
	}
	completed, err := s.rewards.CountCompletedGuestBookings(ctx, renter)
	if err != nil {
		s.logErr(ctx, "count completed guest bookings", err)
		return booking
	}
	pct := s.rewards.GuestPerksDiscountPct(completed)
	discount := rewards.DiscountMarginCents(*booking.GuestTotalCents, ownerTotalCents, pct)
	if discount <= 0 {
		return booking
	}

	total := *booking.GuestTotalCents - discount
	applied, err := s.repo.ApplyGuestDiscount(ctx, booking.ID, total, discount)
	if err != nil {
		s.logErr(ctx, "apply guest discount", err)
		return booking
	}
	if !applied {
		return booking
	}
	updated := *booking
	updated.GuestTotalCents = &total
	updated.GuestTotalCentsFinal = &total
	updated.GuestDiscountCents = discount
	return &updated
}

// applyOwnerBonus adds the owner rewards bonus, bounded by the active
// promotion, and writes the new payout back to the match.
func (s *Service) applyOwnerBonus(ctx context.Context, ownerID uuid.UUID, match *models.BookingMatch, booking *models.BookingRequest, base payout.Breakdown, points int) payout.Breakdown {
	bonus := s.ownerBonus(ctx, ownerID, booking, base, points)
	priced := base.WithBonus(bonus, points)
	if payoutUnchanged(match, priced, bonus) {
		return priced
	}

	err := s.repo.UpdateMatchPayout(ctx, match.ID, map[string]any{
		"owner_base_rate_per_point_cents":   priced.BaseRatePerPointCents,
		"owner_premium_per_point_cents":     priced.PremiumPerPointCents,
		"owner_rate_per_point_cents":        priced.RatePerPointCents,
		"owner_total_cents":                 priced.TotalCents,
		"owner_home_resort_premium_applied": priced.HomeResortPremiumApplied,
		"owner_bonus_per_point_cents":       bonus,
	})
	if err != nil {
		s.logErr(ctx, "update match payout; keeping baseline payout", err)
		return base
	}
	return priced
}

func (s *Service) ownerBonus(ctx context.Context, ownerID uuid.UUID, booking *models.BookingRequest, base payout.Breakdown, points int) int64 {
	if s.rewards == nil || points <= 0 {
		return 0
	}
	enrolled, err := s.rewards.IsOwnerRewardsEnrolled(ctx, ownerID)
	if err != nil {
		s.logErr(ctx, "owner rewards enrollment lookup", err)
		return 0
	}
	if !enrolled {
		return 0
	}
	lifetime, err := s.rewards.SumOwnerCompletedPoints(ctx, ownerID)
	if err != nil {
		s.logErr(ctx, "sum owner completed points", err)
		return 0
	}
	preferred, err := s.rewards.OwnerPreferredTier(ctx, ownerID)
	if err != nil {
		s.logErr(ctx, "owner preferred tier lookup", err)
		return 0
	}
	candidate := s.rewards.OwnerPreferredBonusCents(lifetime, preferred)
	if candidate <= 0 {
		return 0
	}

	var promo *rewards.Promotion
	if s.promotions != nil {
		promo, err = s.promotions.ActivePromotion(ctx, s.now().UTC())
		if err != nil {
			s.logErr(ctx, "active promotion lookup", err)
			return 0
		}
	}
	return s.rewards.ApplyOwnerBonusWithMargin(rewards.BonusInput{
		CandidateBonusCents:    candidate,
		OwnerRatePerPointCents: base.RatePerPointCents,
		GuestRatePerPointCents: s.guestRatePerPoint(booking, points),
		Promotion:              promo,
	})
}

// guestRatePerPoint prefers the final guest total, then the quoted rate.
func (s *Service) guestRatePerPoint(booking *models.BookingRequest, points int) int64 {
	if booking.GuestTotalCentsFinal != nil && points > 0 {
		return *booking.GuestTotalCentsFinal / int64(points)
	}
	if booking.GuestRatePerPointCents != nil && *booking.GuestRatePerPointCents > 0 {
		return *booking.GuestRatePerPointCents
	}
	if booking.GuestTotalCents != nil && points > 0 {
		return *booking.GuestTotalCents / int64(points)
	}
	return s.guestRate
}

func guestTotal(booking *models.BookingRequest) *int64 {
	if booking.GuestTotalCentsFinal != nil {
		return booking.GuestTotalCentsFinal
	}
	return booking.GuestTotalCents
}

func (s *Service) info(ctx context.Context, msg string) {
	if s.logg != nil {
		s.logg.Info(ctx, msg)
	}
}

func (s *Service) warn(ctx context.Context, msg string) {
	if s.logg != nil {
		s.logg.Warn(ctx, msg)
	}
}

func (s *Service) logErr(ctx context.Context, msg string, err error) {
	if s.logg != nil {
		s.logg.Error(ctx, msg, err)
	}
}
