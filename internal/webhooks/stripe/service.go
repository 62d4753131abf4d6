// Package stripewebhook applies Stripe checkout events to booking deposits.
package stripewebhook

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/pixiedvc/pixiedvc-backend/internal/rentals"
	"github.com/pixiedvc/pixiedvc-backend/pkg/db"
	"github.com/pixiedvc/pixiedvc-backend/pkg/enums"
	pkgerrors "github.com/pixiedvc/pixiedvc-backend/pkg/errors"
	"github.com/pixiedvc/pixiedvc-backend/pkg/logger"
	"github.com/pixiedvc/pixiedvc-backend/pkg/outbox"
	"github.com/pixiedvc/pixiedvc-backend/pkg/outbox/payloads"
)

const bookingMetadataKey = "booking_id"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type milestoneRepo interface {
	CompleteMilestoneForBooking(ctx context.Context, bookingID uuid.UUID, code enums.MilestoneCode, at time.Time) (int64, error)
}

type milestoneRepoFactory func(tx *gorm.DB) milestoneRepo

func defaultMilestoneRepo(tx *gorm.DB) milestoneRepo {
	return rentals.NewRepository(tx)
}

type ServiceParams struct {
	Repo              *Repository
	TransactionRunner txRunner
	Outbox            outboxPublisher
	Milestones        milestoneRepoFactory
	Logger            *logger.Logger
}

type Service struct {
	repo       *Repository
	txRunner   txRunner
	outbox     outboxPublisher
	milestones milestoneRepoFactory
	logg       *logger.Logger
	now        func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "deposit repo required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox publisher required")
	}
	milestones := params.Milestones
	if milestones == nil {
		milestones = defaultMilestoneRepo
	}
	return &Service{
		repo:       params.Repo,
		txRunner:   params.TransactionRunner,
		outbox:     params.Outbox,
		milestones: milestones,
		logg:       params.Logger,
		now:        time.Now,
	}, nil
}

func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted, stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session")
		}
		return s.recordDeposit(ctx, &session)
	default:
		return nil
	}
}

// recordDeposit stores the paid deposit and, once the deposit is settled,
// completes payment_verified on the booking's rentals.
func (s *Service) recordDeposit(ctx context.Context, session *stripe.CheckoutSession) error {
	if session.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		return nil
	}
	bookingID, err := bookingIDFromSession(session)
	if err != nil {
		return err
	}

	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		booking, err := repo.FindBookingForSession(ctx, bookingID, session.ID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "booking not found for checkout session")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
		}

		paid := max(booking.DepositPaidCents, session.AmountTotal)
		if paid == booking.DepositPaidCents && booking.StripeCheckoutSession != nil && *booking.StripeCheckoutSession == session.ID {
			return nil
		}
		if err := repo.RecordDeposit(ctx, booking.ID, paid, session.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record deposit")
		}
		booking.DepositPaidCents = paid

		if booking.DepositSettled() {
			if _, err := s.milestones(tx).CompleteMilestoneForBooking(ctx, booking.ID, enums.MilestonePaymentVerified, s.now().UTC()); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete payment milestone")
			}
		}

		if s.logg != nil {
			s.logg.Info(s.logg.WithBookingID(ctx, booking.ID.String()), "booking deposit recorded")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDepositPaid,
			AggregateType: enums.AggregateBookingRequest,
			AggregateID:   booking.ID,
			Data: payloads.DepositPaidEvent{
				BookingID:        booking.ID,
				CheckoutSession:  session.ID,
				DepositPaidCents: paid,
			},
		})
	})
}

func bookingIDFromSession(session *stripe.CheckoutSession) (*uuid.UUID, error) {
	raw := strings.TrimSpace(session.Metadata[bookingMetadataKey])
	if raw == "" {
		raw = strings.TrimSpace(session.ClientReferenceID)
	}
	if raw == "" {
		if session.ID == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout session has no booking reference")
		}
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid booking id on checkout session")
	}
	return &id, nil
}
