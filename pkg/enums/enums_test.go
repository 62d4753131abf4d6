package enums

import "testing"

func TestMilestonePositionsFollowChecklistOrder(t *testing.T) {
	if MilestoneMatched.Position() != 1 {
		t.Fatalf("matched should be first")
	}
	if MilestoneCheckOut.Position() != len(OrderedMilestones) {
		t.Fatalf("check_out should be last")
	}
	if MilestoneCode("bogus").Position() != 0 {
		t.Fatalf("unknown milestone should have position 0")
	}
}

func TestParseBookingStatus(t *testing.T) {
	status, err := ParseBookingStatus("pending_owner")
	if err != nil || status != BookingStatusPendingOwner {
		t.Fatalf("unexpected parse result %q %v", status, err)
	}
	if _, err := ParseBookingStatus("nope"); err == nil {
		t.Fatalf("expected error for unknown status")
	}
}

func TestMatchStatusTerminal(t *testing.T) {
	if MatchStatusPendingOwner.IsTerminal() {
		t.Fatalf("pending_owner is not terminal")
	}
	for _, status := range []MatchStatus{MatchStatusAccepted, MatchStatusDeclined, MatchStatusExpired} {
		if !status.IsTerminal() {
			t.Fatalf("%s should be terminal", status)
		}
	}
}

func TestOutboxEventTypeValidation(t *testing.T) {
	if !EventMatchCreated.IsValid() || OutboxEventType("order_created").IsValid() {
		t.Fatalf("unexpected event validity")
	}
	if !AggregateRental.IsValid() {
		t.Fatalf("rental aggregate should be valid")
	}
}

func TestParseActorRole(t *testing.T) {
	role, err := ParseActorRole("owner")
	if err != nil || role != ActorRoleOwner {
		t.Fatalf("expected owner role, got %q (%v)", role, err)
	}
	if _, err := ParseActorRole("vendor"); err == nil {
		t.Fatal("expected error for unknown role")
	}
}
