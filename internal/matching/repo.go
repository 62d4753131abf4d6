package matching

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

// NewRepository builds a matching repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindBooking(ctx context.Context, id uuid.UUID) (*models.BookingRequest, error) {
	var booking models.BookingRequest
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&booking).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *repository) ListSubmittedBookings(ctx context.Context, limit int) ([]models.BookingRequest, error) {
	var bookings []models.BookingRequest
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.BookingStatusSubmitted).
		Order("created_at DESC").
		Order("id ASC").
		Limit(limit).
		Find(&bookings).Error
	return bookings, err
}

func (r *repository) FindResort(ctx context.Context, id uuid.UUID) (*models.Resort, error) {
	var resort models.Resort
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&resort).Error; err != nil {
		return nil, err
	}
	return &resort, nil
}

func (r *repository) HasPendingOwnerMatch(ctx context.Context, bookingID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.BookingMatch{}).
		Where("booking_id = ? AND status = ?", bookingID, enums.MatchStatusPendingOwner).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) ListCandidateMemberships(ctx context.Context, resortID uuid.UUID, calculatorCode string, limit int) ([]models.OwnerMembership, error) {
	var memberships []models.OwnerMembership
	query := r.db.WithContext(ctx).Model(&models.OwnerMembership{})
	if calculatorCode != "" {
		query = query.Where("resort_id = ? OR home_resort = ?", resortID, calculatorCode)
	} else {
		query = query.Where("resort_id = ?", resortID)
	}
	err := query.
		Order("created_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&memberships).Error
	return memberships, err
}

func (r *repository) ListOwnerMemberships(ctx context.Context, ownerIDs []uuid.UUID) ([]models.OwnerMembership, error) {
	if len(ownerIDs) == 0 {
		return nil, nil
	}
	var memberships []models.OwnerMembership
	err := r.db.WithContext(ctx).
		Where("owner_id IN ?", ownerIDs).
		Where("contract_year IS NOT NULL").
		Order("created_at ASC").
		Find(&memberships).Error
	return memberships, err
}

// FindOwners matches either owners.id or owners.user_id, since memberships
// reference owners by both.
func (r *repository) FindOwners(ctx context.Context, ids []uuid.UUID) ([]models.Owner, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var owners []models.Owner
	err := r.db.WithContext(ctx).
		Where("id IN ? OR user_id IN ?", ids, ids).
		Find(&owners).Error
	return owners, err
}

func (r *repository) FindProfiles(ctx context.Context, userIDs []uuid.UUID) ([]models.Profile, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var profiles []models.Profile
	err := r.db.WithContext(ctx).Where("id IN ?", userIDs).Find(&profiles).Error
	return profiles, err
}

// LoadVerificationStatuses returns one status per owner. An approved row wins
// over any other row for the same owner.
func (r *repository) LoadVerificationStatuses(ctx context.Context, ownerIDs []uuid.UUID) (map[uuid.UUID]enums.OwnerVerificationStatus, error) {
	out := make(map[uuid.UUID]enums.OwnerVerificationStatus, len(ownerIDs))
	if len(ownerIDs) == 0 {
		return out, nil
	}
	var rows []models.OwnerVerification
	if err := r.db.WithContext(ctx).Where("owner_id IN ?", ownerIDs).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		if out[row.OwnerID] == enums.OwnerVerificationApproved {
			continue
		}
		out[row.OwnerID] = row.Status
	}
	return out, nil
}

func (r *repository) InsertMatch(ctx context.Context, match *models.BookingMatch) error {
	return r.db.WithContext(ctx).Create(match).Error
}

func (r *repository) FindMatch(ctx context.Context, id uuid.UUID) (*models.BookingMatch, error) {
	var match models.BookingMatch
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&match).Error; err != nil {
		return nil, err
	}
	return &match, nil
}

func (r *repository) ListExpiredMatches(ctx context.Context, now time.Time, limit int) ([]models.BookingMatch, error) {
	var matches []models.BookingMatch
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at <= ?", enums.MatchStatusPendingOwner, now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&matches).Error
	return matches, err
}

func (r *repository) TransitionMatchStatus(ctx context.Context, id uuid.UUID, from, to enums.MatchStatus, respondedAt *time.Time) error {
	updates := map[string]any{"status": to}
	if respondedAt != nil {
		updates["responded_at"] = *respondedAt
	}
	res := r.db.WithContext(ctx).
		Model(&models.BookingMatch{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleState
	}
	return nil
}

// ReservePoints is the only writer that grows points_reserved. The guard in the
// WHERE clause keeps two concurrent reservations from overdrawing a membership.
func (r *repository) ReservePoints(ctx context.Context, membershipID uuid.UUID, points int) error {
	if points <= 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Exec(
		`UPDATE owner_memberships
		 SET points_reserved = points_reserved + ?, updated_at = ?
		 WHERE id = ? AND points_available - points_reserved >= ?`,
		points, time.Now().UTC(), membershipID, points,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientPoints
	}
	return nil
}

func (r *repository) ReleasePoints(ctx context.Context, membershipID uuid.UUID, points int) error {
	if points <= 0 {
		return nil
	}
	return r.db.WithContext(ctx).Exec(
		`UPDATE owner_memberships
		 SET points_reserved = CASE WHEN points_reserved >= ? THEN points_reserved - ? ELSE 0 END,
		     updated_at = ?
		 WHERE id = ?`,
		points, points, time.Now().UTC(), membershipID,
	).Error
}

func (r *repository) TransitionBookingStatus(ctx context.Context, bookingID uuid.UUID, from, to enums.BookingStatus) error {
	res := r.db.WithContext(ctx).
		Model(&models.BookingRequest{}).
		Where("id = ? AND status = ?", bookingID, from).
		Update("status", to)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleState
	}
	return nil
}
