package matching

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pixiedvc/pixiedvc-backend/pkg/db/models"
	"github.com/pixiedvc/pixiedvc-backend/pkg/enums"
)

// ErrInsufficientPoints is returned when a conditional reservation touched no row.
var ErrInsufficientPoints = errors.New("membership has insufficient usable points")

// ErrStaleState is returned when a conditional status transition touched no row.
var ErrStaleState = errors.New("row is no longer in the expected state")

// Repository defines persistence for bookings, memberships and matches.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindBooking(ctx context.Context, id uuid.UUID) (*models.BookingRequest, error)
	ListSubmittedBookings(ctx context.Context, limit int) ([]models.BookingRequest, error)
	FindResort(ctx context.Context, id uuid.UUID) (*models.Resort, error)
	HasPendingOwnerMatch(ctx context.Context, bookingID uuid.UUID) (bool, error)

	ListCandidateMemberships(ctx context.Context, resortID uuid.UUID, calculatorCode string, limit int) ([]models.OwnerMembership, error)
	ListOwnerMemberships(ctx context.Context, ownerIDs []uuid.UUID) ([]models.OwnerMembership, error)
	FindOwners(ctx context.Context, ids []uuid.UUID) ([]models.Owner, error)
	FindProfiles(ctx context.Context, userIDs []uuid.UUID) ([]models.Profile, error)
	LoadVerificationStatuses(ctx context.Context, ownerIDs []uuid.UUID) (map[uuid.UUID]enums.OwnerVerificationStatus, error)

	InsertMatch(ctx context.Context, match *models.BookingMatch) error
	FindMatch(ctx context.Context, id uuid.UUID) (*models.BookingMatch, error)
	ListExpiredMatches(ctx context.Context, now time.Time, limit int) ([]models.BookingMatch, error)
	TransitionMatchStatus(ctx context.Context, id uuid.UUID, from, to enums.MatchStatus, respondedAt *time.Time) error
	ReservePoints(ctx context.Context, membershipID uuid.UUID, points int) error
	ReleasePoints(ctx context.Context, membershipID uuid.UUID, points int) error
	TransitionBookingStatus(ctx context.Context, bookingID uuid.UUID, from, to enums.BookingStatus) error
}
