package rentals

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pixiedvc/pixiedvc-backend/internal/payout"
	"github.com/pixiedvc/pixiedvc-backend/internal/rewards"
	"github.com/pixiedvc/pixiedvc-backend/pkg/db"
	"github.com/pixiedvc/pixiedvc-backend/pkg/db/dbtest"
	"github.com/pixiedvc/pixiedvc-backend/pkg/db/models"
	"github.com/pixiedvc/pixiedvc-backend/pkg/enums"
	"github.com/pixiedvc/pixiedvc-backend/pkg/outbox"
)

var testRates = payout.Rates{BasePerPointCents: 1600, PremiumPerPointCents: 200}

type fixture struct {
	t      *testing.T
	conn   *gorm.DB
	now    time.Time
	resort models.Resort
	owner  models.Owner
	renter uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	f := &fixture{
		t:      t,
		conn:   conn,
		now:    time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC),
		renter: uuid.New(),
	}
	f.resort = models.Resort{Name: "Bay Lake Tower", CalculatorCode: "BLT"}
	require.NoError(t, conn.Create(&f.resort).Error)
	userID := uuid.New()
	f.owner = models.Owner{UserID: &userID, DisplayName: "Ana Owner", Verification: "verified"}
	require.NoError(t, conn.Create(&f.owner).Error)
	return f
}

func (f *fixture) service(policy rewards.RewardsPolicy, promos rewards.PromotionPolicy) *Service {
	f.t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:                  NewRepository(f.conn),
		Tx:                    db.NewFromGorm(f.conn),
		Outbox:                outbox.NewService(outbox.NewRepository(f.conn), nil),
		Calculator:            payout.NewCalculator(testRates),
		Rewards:               policy,
		Promotions:            promos,
		DefaultGuestRateCents: 2300,
	})
	require.NoError(f.t, err)
	svc.now = func() time.Time { return f.now }
	return svc
}

func (f *fixture) storeService() *Service {
	store := rewards.NewStore(f.conn)
	return f.service(store, store)
}

type bookingOpt func(*models.BookingRequest)

func (f *fixture) booking(opts ...bookingOpt) models.BookingRequest {
	f.t.Helper()
	points := 100
	rate := int64(2300)
	total := int64(230000)
	checkIn := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	checkOut := time.Date(2026, 6, 8, 0, 0, 0, 0, time.UTC)
	renter := f.renter
	b := models.BookingRequest{
		RenterID:               &renter,
		PrimaryResortID:        &f.resort.ID,
		PrimaryRoom:            "Deluxe Studio",
		TotalPoints:            &points,
		Status:                 enums.BookingStatusMatched,
		CheckIn:                &checkIn,
		CheckOut:               &checkOut,
		Adults:                 2,
		LeadGuestName:          "Gia Guest",
		LeadGuestEmail:         "gia@example.com",
		GuestRatePerPointCents: &rate,
		GuestTotalCents:        &total,
	}
	for _, opt := range opts {
		opt(&b)
	}
	require.NoError(f.t, f.conn.Create(&b).Error)
	return b
}

func (f *fixture) membership() models.OwnerMembership {
	f.t.Helper()
	year := 2026
	m := models.OwnerMembership{
		OwnerID:         f.owner.ID,
		ResortID:        &f.resort.ID,
		ContractYear:    &year,
		PointsAvailable: 200,
		PointsReserved:  100,
	}
	require.NoError(f.t, f.conn.Create(&m).Error)
	return m
}

// acceptedMatch stores a match priced the way the evaluator prices a
// home-resort membership.
func (f *fixture) acceptedMatch(booking models.BookingRequest, membershipID, ownerRef uuid.UUID) models.BookingMatch {
	f.t.Helper()
	responded := f.now
	m := models.BookingMatch{
		BookingID:                     booking.ID,
		OwnerID:                       ownerRef,
		OwnerMembershipID:             membershipID,
		PointsReserved:                100,
		PointsReservedCurrent:         100,
		ExpiresAt:                     f.now.Add(time.Hour),
		OwnerBaseRatePerPointCents:    1600,
		OwnerPremiumPerPointCents:     200,
		OwnerRatePerPointCents:        1800,
		OwnerTotalCents:               180000,
		OwnerHomeResortPremiumApplied: true,
		Status:                        enums.MatchStatusAccepted,
		RespondedAt:                   &responded,
	}
	require.NoError(f.t, f.conn.Create(&m).Error)
	return m
}

func (f *fixture) completedRental(guest, owner uuid.UUID, points int) {
	f.t.Helper()
	require.NoError(f.t, f.conn.Create(&models.Rental{
		MatchID:     uuid.New(),
		BookingID:   uuid.New(),
		OwnerID:     owner,
		GuestUserID: guest,
		Points:      points,
		Status:      enums.RentalStatusCompleted,
	}).Error)
}

func (f *fixture) count(model any, query string, args ...any) int64 {
	f.t.Helper()
	var n int64
	require.NoError(f.t, f.conn.Model(model).Where(query, args...).Count(&n).Error)
	return n
}

var errPolicyDown = errors.New("rewards store unavailable")

// failingPolicy reports enrollment and then fails every lookup.
type failingPolicy struct{}

func (failingPolicy) IsGuestPerksEnrolled(context.Context, uuid.UUID) (bool, error) { return true, nil }
func (failingPolicy) CountCompletedGuestBookings(context.Context, uuid.UUID) (int, error) {
	return 0, errPolicyDown
}
func (failingPolicy) GuestPerksDiscountPct(int) decimal.Decimal { return decimal.NewFromFloat(0.5) }
func (failingPolicy) IsOwnerRewardsEnrolled(context.Context, uuid.UUID) (bool, error) {
	return false, errPolicyDown
}
func (failingPolicy) SumOwnerCompletedPoints(context.Context, uuid.UUID) (int, error) {
	return 0, errPolicyDown
}
func (failingPolicy) OwnerPreferredTier(context.Context, uuid.UUID) (*rewards.OwnerTier, error) {
	return nil, errPolicyDown
}
func (failingPolicy) OwnerPreferredBonusCents(int, *rewards.OwnerTier) int64 { return 100 }
func (failingPolicy) ApplyOwnerBonusWithMargin(rewards.BonusInput) int64    { return 100 }

func ptr[T any](v T) *T { return &v }
