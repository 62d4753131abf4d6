package rentals

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/pixiedvc/pixiedvc-backend/pkg/db/models"
	"github.com/pixiedvc/pixiedvc-backend/pkg/enums"
	pkgerrors "github.com/pixiedvc/pixiedvc-backend/pkg/errors"
)

// BookingPackage is the booking snapshot stored on a rental for display.
type BookingPackage struct {
	BookingID             uuid.UUID  `json:"bookingId"`
	ResortID              *uuid.UUID `json:"resortId,omitempty"`
	RoomType              string     `json:"roomType,omitempty"`
	CheckIn               *string    `json:"checkIn,omitempty"`
	CheckOut              *string    `json:"checkOut,omitempty"`
	TotalPoints           int        `json:"totalPoints"`
	Adults                int        `json:"adults"`
	Youths                int        `json:"youths"`
	LeadGuestName         string     `json:"leadGuestName,omitempty"`
	LeadGuestEmail        string     `json:"leadGuestEmail,omitempty"`
	LeadGuestPhone        string     `json:"leadGuestPhone,omitempty"`
	RequiresAccessibility bool       `json:"requiresAccessibility"`
	Comments              string     `json:"comments,omitempty"`
	GuestTotalCents       *int64     `json:"guestTotalCents,omitempty"`
}

func buildBookingPackage(booking *models.BookingRequest) (datatypes.JSON, error) {
	snapshot := BookingPackage{
		BookingID:             booking.ID,
		ResortID:              booking.PrimaryResortID,
		RoomType:              booking.PrimaryRoom,
		CheckIn:               formatDate(booking.CheckIn),
		CheckOut:              formatDate(booking.CheckOut),
		TotalPoints:           booking.Points(),
		Adults:                booking.Adults,
		Youths:                booking.Youths,
		LeadGuestName:         booking.LeadGuestName,
		LeadGuestEmail:        booking.LeadGuestEmail,
		LeadGuestPhone:        booking.LeadGuestPhone,
		RequiresAccessibility: booking.RequiresAccessibility,
		Comments:              booking.Comments,
		GuestTotalCents:       guestTotal(booking),
	}
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format("2006-01-02")
	return &s
}

// seedMilestones builds the full checklist for a new rental, completing the
// steps the booking has already satisfied.
func seedMilestones(rentalID uuid.UUID, booking *models.BookingRequest, now time.Time) []models.RentalMilestone {
	done := map[enums.MilestoneCode]bool{
		enums.MilestoneMatched:         true,
		enums.MilestoneGuestVerified:   booking.GuestVerified(),
		enums.MilestonePaymentVerified: booking.DepositSettled(),
	}
	out := make([]models.RentalMilestone, 0, len(enums.OrderedMilestones))
	for _, code := range enums.OrderedMilestones {
		m := models.RentalMilestone{
			RentalID: rentalID,
			Code:     code,
			Position: code.Position(),
			Status:   enums.MilestoneStatusPending,
		}
		if done[code] {
			at := now
			m.Status = enums.MilestoneStatusCompleted
			m.CompletedAt = &at
		}
		out = append(out, m)
	}
	return out
}

// Milestones lists a rental's checklist in order.
func (s *Service) Milestones(ctx context.Context, rentalID uuid.UUID) ([]models.RentalMilestone, error) {
	milestones, err := s.repo.ListMilestones(ctx, rentalID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list milestones")
	}
	return milestones, nil
}
