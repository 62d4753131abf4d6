package rentals

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pixiedvc/pixiedvc-backend/pkg/db/models"
	"github.com/pixiedvc/pixiedvc-backend/pkg/enums"
)

// Repository defines persistence for rentals and the rows they are built from.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindMatch(ctx context.Context, id uuid.UUID) (*models.BookingMatch, error)
	FindBooking(ctx context.Context, id uuid.UUID) (*models.BookingRequest, error)
	FindMembership(ctx context.Context, id uuid.UUID) (*models.OwnerMembership, error)
	FindResort(ctx context.Context, id uuid.UUID) (*models.Resort, error)
	FindOwnersByAnyID(ctx context.Context, id uuid.UUID) ([]models.Owner, error)

	FindRentalByMatch(ctx context.Context, matchID uuid.UUID) (*models.Rental, error)
	InsertRental(ctx context.Context, rental *models.Rental) error
	UpdateRental(ctx context.Context, rentalID uuid.UUID, updates map[string]any) error
	InsertMilestones(ctx context.Context, milestones []models.RentalMilestone) error
	ListMilestones(ctx context.Context, rentalID uuid.UUID) ([]models.RentalMilestone, error)
	CompleteMilestoneForBooking(ctx context.Context, bookingID uuid.UUID, code enums.MilestoneCode, at time.Time) (int64, error)

	UpdateMatchPayout(ctx context.Context, matchID uuid.UUID, updates map[string]any) error
	ApplyGuestDiscount(ctx context.Context, bookingID uuid.UUID, guestTotalCents, discountCents int64) (bool, error)
}
