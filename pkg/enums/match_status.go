package enums

import "fmt"

// MatchStatus is the lifecycle of a booking match offered to an owner.
type MatchStatus string

const (
	MatchStatusPendingOwner MatchStatus = "pending_owner"
	MatchStatusAccepted     MatchStatus = "accepted"
	MatchStatusDeclined     MatchStatus = "declined"
	MatchStatusExpired      MatchStatus = "expired"
	MatchStatusRematched    MatchStatus = "rematched"
)

var validMatchStatuses = []MatchStatus{
	MatchStatusPendingOwner,
	MatchStatusAccepted,
	MatchStatusDeclined,
	MatchStatusExpired,
	MatchStatusRematched,
}

func (s MatchStatus) String() string {
	return string(s)
}

func (s MatchStatus) IsValid() bool {
	for _, candidate := range validMatchStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further owner decision can be made.
func (s MatchStatus) IsTerminal() bool {
	return s != MatchStatusPendingOwner
}

func ParseMatchStatus(value string) (MatchStatus, error) {
	for _, candidate := range validMatchStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid match status %q", value)
}

// MatchDecision is the owner's response to a pending match.
type MatchDecision string

const (
	MatchDecisionAccept  MatchDecision = "accept"
	MatchDecisionDecline MatchDecision = "decline"
)
