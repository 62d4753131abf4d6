package enums

import "fmt"

// RentalStatus tracks the DVC reservation behind an accepted match.
type RentalStatus string

const (
	RentalStatusNeedsDVCBooking        RentalStatus = "needs_dvc_booking"
	RentalStatusBookedPendingAgreement RentalStatus = "booked_pending_agreement"
	RentalStatusBooked                 RentalStatus = "booked"
	RentalStatusCompleted              RentalStatus = "completed"
	RentalStatusCancelled              RentalStatus = "cancelled"
)

var validRentalStatuses = []RentalStatus{
	RentalStatusNeedsDVCBooking,
	RentalStatusBookedPendingAgreement,
	RentalStatusBooked,
	RentalStatusCompleted,
	RentalStatusCancelled,
}

func (s RentalStatus) IsValid() bool {
	for _, candidate := range validRentalStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

func ParseRentalStatus(value string) (RentalStatus, error) {
	for _, candidate := range validRentalStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid rental status %q", value)
}
