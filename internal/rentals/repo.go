package rentals

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pixiedvc/pixiedvc-backend/pkg/db/models"
	"github.com/pixiedvc/pixiedvc-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a rentals repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindMatch(ctx context.Context, id uuid.UUID) (*models.BookingMatch, error) {
	var match models.BookingMatch
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&match).Error; err != nil {
		return nil, err
	}
	return &match, nil
}

func (r *repository) FindBooking(ctx context.Context, id uuid.UUID) (*models.BookingRequest, error) {
	var booking models.BookingRequest
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&booking).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *repository) FindMembership(ctx context.Context, id uuid.UUID) (*models.OwnerMembership, error) {
	var membership models.OwnerMembership
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&membership).Error; err != nil {
		return nil, err
	}
	return &membership, nil
}

func (r *repository) FindResort(ctx context.Context, id uuid.UUID) (*models.Resort, error) {
	var resort models.Resort
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&resort).Error; err != nil {
		return nil, err
	}
	return &resort, nil
}

func (r *repository) FindOwnersByAnyID(ctx context.Context, id uuid.UUID) ([]models.Owner, error) {
	var owners []models.Owner
	err := r.db.WithContext(ctx).Where("id = ? OR user_id = ?", id, id).Find(&owners).Error
	return owners, err
}

func (r *repository) FindRentalByMatch(ctx context.Context, matchID uuid.UUID) (*models.Rental, error) {
	var rental models.Rental
	if err := r.db.WithContext(ctx).Where("match_id = ?", matchID).First(&rental).Error; err != nil {
		return nil, err
	}
	return &rental, nil
}

func (r *repository) InsertRental(ctx context.Context, rental *models.Rental) error {
	return r.db.WithContext(ctx).Create(rental).Error
}

func (r *repository) UpdateRental(ctx context.Context, rentalID uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.Rental{}).Where("id = ?", rentalID).Updates(updates).Error
}

func (r *repository) InsertMilestones(ctx context.Context, milestones []models.RentalMilestone) error {
	if len(milestones) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&milestones).Error
}

func (r *repository) ListMilestones(ctx context.Context, rentalID uuid.UUID) ([]models.RentalMilestone, error) {
	var milestones []models.RentalMilestone
	err := r.db.WithContext(ctx).Where("rental_id = ?", rentalID).Order("position ASC").Find(&milestones).Error
	return milestones, err
}

// CompleteMilestoneForBooking completes a still-pending milestone on every
// rental of the booking.
func (r *repository) CompleteMilestoneForBooking(ctx context.Context, bookingID uuid.UUID, code enums.MilestoneCode, at time.Time) (int64, error) {
	rentalIDs := r.db.Model(&models.Rental{}).Select("id").Where("booking_id = ?", bookingID)
	res := r.db.WithContext(ctx).
		Model(&models.RentalMilestone{}).
		Where("rental_id IN (?) AND code = ? AND status = ?", rentalIDs, code, enums.MilestoneStatusPending).
		Updates(map[string]any{"status": enums.MilestoneStatusCompleted, "completed_at": at})
	return res.RowsAffected, res.Error
}

func (r *repository) UpdateMatchPayout(ctx context.Context, matchID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.BookingMatch{}).Where("id = ?", matchID).Updates(updates).Error
}

// ApplyGuestDiscount writes the discounted guest total once. It reports false
// when a final total was already recorded.
func (r *repository) ApplyGuestDiscount(ctx context.Context, bookingID uuid.UUID, guestTotalCents, discountCents int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.BookingRequest{}).
		Where("id = ? AND guest_total_cents_final IS NULL", bookingID).
		Updates(map[string]any{
			"guest_total_cents":       guestTotalCents,
			"guest_total_cents_final": guestTotalCents,
			"guest_discount_cents":    discountCents,
		})
	return res.RowsAffected > 0, res.Error
}
