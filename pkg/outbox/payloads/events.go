package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/pixiedvc/pixiedvc-backend/pkg/enums"
)

// MatchCreatedEvent is emitted when points are reserved for a booking.
type MatchCreatedEvent struct {
	MatchID                uuid.UUID  `json:"matchId"`
	BookingID              uuid.UUID  `json:"bookingId"`
	OwnerID                uuid.UUID  `json:"ownerId"`
	OwnerMembershipID      uuid.UUID  `json:"ownerMembershipId"`
	BorrowMembershipID     *uuid.UUID `json:"borrowMembershipId,omitempty"`
	PointsReserved         int        `json:"pointsReserved"`
	PointsReservedBorrowed int        `json:"pointsReservedBorrowed"`
	OwnerTotalCents        int64      `json:"ownerTotalCents"`
	ExpiresAt              time.Time  `json:"expiresAt"`
}

// MatchDecisionEvent is emitted when an owner accepts or declines.
type MatchDecisionEvent struct {
	MatchID   uuid.UUID           `json:"matchId"`
	BookingID uuid.UUID           `json:"bookingId"`
	OwnerID   uuid.UUID           `json:"ownerId"`
	Decision  enums.MatchDecision `json:"decision"`
	Status    enums.MatchStatus   `json:"status"`
}

// MatchExpiredEvent is emitted when an unanswered match releases its points.
type MatchExpiredEvent struct {
	MatchID        uuid.UUID `json:"matchId"`
	BookingID      uuid.UUID `json:"bookingId"`
	OwnerID        uuid.UUID `json:"ownerId"`
	PointsReleased int       `json:"pointsReleased"`
	ExpiredAt      time.Time `json:"expiredAt"`
}

// RentalCreatedEvent is emitted the first time a rental is materialized.
type RentalCreatedEvent struct {
	RentalID          uuid.UUID  `json:"rentalId"`
	MatchID           uuid.UUID  `json:"matchId"`
	BookingID         uuid.UUID  `json:"bookingId"`
	OwnerUserID       *uuid.UUID `json:"ownerUserId,omitempty"`
	RentalAmountCents int64      `json:"rentalAmountCents"`
}

// DepositPaidEvent is emitted when Stripe confirms a guest deposit.
type DepositPaidEvent struct {
	BookingID        uuid.UUID `json:"bookingId"`
	CheckoutSession  string    `json:"checkoutSessionId"`
	DepositPaidCents int64     `json:"depositPaidCents"`
}
