package enums

import "fmt"

// BookingStatus tracks a guest booking request through matching.
type BookingStatus string

const (
	BookingStatusDraft        BookingStatus = "draft"
	BookingStatusSubmitted    BookingStatus = "submitted"
	BookingStatusPendingMatch BookingStatus = "pending_match"
	BookingStatusPendingOwner BookingStatus = "pending_owner"
	BookingStatusMatched      BookingStatus = "matched"
	BookingStatusConfirmed    BookingStatus = "confirmed"
	BookingStatusCancelled    BookingStatus = "cancelled"
)

var validBookingStatuses = []BookingStatus{
	BookingStatusDraft,
	BookingStatusSubmitted,
	BookingStatusPendingMatch,
	BookingStatusPendingOwner,
	BookingStatusMatched,
	BookingStatusConfirmed,
	BookingStatusCancelled,
}

func (s BookingStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known BookingStatus.
func (s BookingStatus) IsValid() bool {
	for _, candidate := range validBookingStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseBookingStatus converts raw input into a BookingStatus.
func ParseBookingStatus(value string) (BookingStatus, error) {
	for _, candidate := range validBookingStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid booking status %q", value)
}
