package matching

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/pixiedvc/pixiedvc-backend/pkg/db/models"
	"github.com/pixiedvc/pixiedvc-backend/pkg/enums"
	pkgerrors "github.com/pixiedvc/pixiedvc-backend/pkg/errors"
	"github.com/pixiedvc/pixiedvc-backend/pkg/logger"
	"github.com/pixiedvc/pixiedvc-backend/pkg/outbox"
	"github.com/pixiedvc/pixiedvc-backend/pkg/outbox/payloads"
)

// RentalEnsurer materializes the rental behind an accepted match.
type RentalEnsurer interface {
	EnsureRental(ctx context.Context, matchID uuid.UUID) (uuid.UUID, error)
}

// DecisionInput is an owner's accept or decline of one match.
type DecisionInput struct {
	MatchID     uuid.UUID
	Decision    enums.MatchDecision
	ActorUserID uuid.UUID
	ActorRole   string
	// AsAdmin skips the ownership check.
	AsAdmin bool
}

// DecisionResult reports the match state after a decision.
type DecisionResult struct {
	MatchID  uuid.UUID         `json:"matchId"`
	Status   enums.MatchStatus `json:"status"`
	RentalID *uuid.UUID        `json:"rentalId,omitempty"`
}

// ExpiryResult summarizes one expiry sweep.
type ExpiryResult struct {
	Scanned int
	Expired int
}

// DecisionService applies owner responses and expiry to pending matches.
type DecisionService struct {
	repo    Repository
	tx      txRunner
	outbox  outboxPublisher
	rentals RentalEnsurer
	logg    *logger.Logger
	now     func() time.Time
}

func NewDecisionService(repo Repository, tx txRunner, outbox outboxPublisher, rentals RentalEnsurer, logg *logger.Logger) (*DecisionService, error) {
	if repo == nil {
		return nil, fmt.Errorf("matching repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if rentals == nil {
		return nil, fmt.Errorf("rental ensurer required")
	}
	return &DecisionService{repo: repo, tx: tx, outbox: outbox, rentals: rentals, logg: logg, now: time.Now}, nil
}

// Decide accepts or declines a pending match. Accepting an already accepted
// match re-runs rental materialization.
func (s *DecisionService) Decide(ctx context.Context, input DecisionInput) (*DecisionResult, error) {
	if input.MatchID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "match id required")
	}
	if input.ActorUserID == uuid.Nil && !input.AsAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var target enums.MatchStatus
	var eventType enums.OutboxEventType
	switch input.Decision {
	case enums.MatchDecisionAccept:
		target, eventType = enums.MatchStatusAccepted, enums.EventMatchAccepted
	case enums.MatchDecisionDecline:
		target, eventType = enums.MatchStatusDeclined, enums.EventMatchDeclined
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "decision must be accept or decline")
	}

	now := s.now().UTC()
	var match *models.BookingMatch
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		match, err = repo.FindMatch(ctx, input.MatchID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "match not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load match")
		}
		if !input.AsAdmin {
			if err := s.authorize(ctx, repo, match, input.ActorUserID); err != nil {
				return err
			}
		}
		if match.Status == target {
			return nil
		}
		if match.Status != enums.MatchStatusPendingOwner {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "match is no longer awaiting a decision")
		}
		if !match.ExpiresAt.After(now) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "match has expired")
		}

		if err := repo.TransitionMatchStatus(ctx, match.ID, enums.MatchStatusPendingOwner, target, &now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "update match status")
		}

		if target == enums.MatchStatusAccepted {
			if err := repo.TransitionBookingStatus(ctx, match.BookingID, enums.BookingStatusPendingOwner, enums.BookingStatusMatched); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "update booking status")
			}
		} else {
			if err := releaseMatchPoints(ctx, repo, match); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release points")
			}
			if err := repo.TransitionBookingStatus(ctx, match.BookingID, enums.BookingStatusPendingOwner, enums.BookingStatusSubmitted); err != nil && !errors.Is(err, ErrStaleState) {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reopen booking")
			}
		}

		match.Status = target
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateBookingMatch,
			AggregateID:   match.ID,
			Actor:         &outbox.ActorRef{UserID: input.ActorUserID, Role: input.ActorRole},
			OccurredAt:    now,
			Data: payloads.MatchDecisionEvent{
				MatchID:   match.ID,
				BookingID: match.BookingID,
				OwnerID:   match.OwnerID,
				Decision:  input.Decision,
				Status:    target,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	result := &DecisionResult{MatchID: match.ID, Status: match.Status}
	if match.Status != enums.MatchStatusAccepted {
		return result, nil
	}
	rentalID, err := s.rentals.EnsureRental(ctx, match.ID)
	if err != nil {
		return nil, err
	}
	result.RentalID = &rentalID
	return result, nil
}

// authorize accepts either the owner row id or its linked user id as the owner.
func (s *DecisionService) authorize(ctx context.Context, repo Repository, match *models.BookingMatch, actor uuid.UUID) error {
	if match.OwnerID == actor {
		return nil
	}
	owners, err := repo.FindOwners(ctx, []uuid.UUID{match.OwnerID})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load owner")
	}
	for _, owner := range owners {
		if owner.ID == actor || (owner.UserID != nil && *owner.UserID == actor) {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "match belongs to another owner")
}

// ExpireDue expires pending matches past their deadline, one transaction each.
// A failing match does not stop the sweep; failures are combined in the error.
func (s *DecisionService) ExpireDue(ctx context.Context, limit int) (ExpiryResult, error) {
	now := s.now().UTC()
	due, err := s.repo.ListExpiredMatches(ctx, now, limit)
	if err != nil {
		return ExpiryResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list expired matches")
	}

	result := ExpiryResult{Scanned: len(due)}
	var errs error
	for i := range due {
		match := due[i]
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			if err := repo.TransitionMatchStatus(ctx, match.ID, enums.MatchStatusPendingOwner, enums.MatchStatusExpired, nil); err != nil {
				return err
			}
			if err := releaseMatchPoints(ctx, repo, &match); err != nil {
				return err
			}
			if err := repo.TransitionBookingStatus(ctx, match.BookingID, enums.BookingStatusPendingOwner, enums.BookingStatusSubmitted); err != nil && !errors.Is(err, ErrStaleState) {
				return err
			}
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventMatchExpired,
				AggregateType: enums.AggregateBookingMatch,
				AggregateID:   match.ID,
				OccurredAt:    now,
				Data: payloads.MatchExpiredEvent{
					MatchID:        match.ID,
					BookingID:      match.BookingID,
					OwnerID:        match.OwnerID,
					PointsReleased: match.PointsReserved,
					ExpiredAt:      now,
				},
			})
		})
		if errors.Is(err, ErrStaleState) {
			continue
		}
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("expire match %s: %w", match.ID, err))
			continue
		}
		result.Expired++
	}
	return result, errs
}

func releaseMatchPoints(ctx context.Context, repo Repository, match *models.BookingMatch) error {
	current := match.PointsReservedCurrent
	if current == 0 && match.PointsReservedBorrowed == 0 {
		current = match.PointsReserved
	}
	if err := repo.ReleasePoints(ctx, match.OwnerMembershipID, current); err != nil {
		return err
	}
	if match.PointsReservedBorrowed > 0 && match.BorrowMembershipID != nil {
		return repo.ReleasePoints(ctx, *match.BorrowMembershipID, match.PointsReservedBorrowed)
	}
	return nil
}
