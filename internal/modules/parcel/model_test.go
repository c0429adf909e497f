// README: Transition table tests (graph closure, terminal statuses).
package parcel

import "testing"

// TestCanTransition verifies the lifecycle transition table without a database.
func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		// happy-path forward transitions
		{StatusPending, StatusToPickup, true},
		{StatusToPickup, StatusPickedUp, true},
		{StatusPickedUp, StatusAtWarehouse, true},
		{StatusAtWarehouse, StatusInTransit, true},
		{StatusInTransit, StatusDelivered, true},
		{StatusDelivered, StatusDeliveredPaid, true},
		// failed delivery and the return pipeline
		{StatusInTransit, StatusReturnToWarehouse, true},
		{StatusReturnToWarehouse, StatusInTransit, true}, // re-attempt
		{StatusReturnToWarehouse, StatusReturnToClientAgency, true},
		{StatusReturnToWarehouse, StatusReturnToSender, true},
		{StatusReturnToClientAgency, StatusReturnInTransit, true},
		{StatusReturnToSender, StatusReturnInTransit, true},
		{StatusReturnInTransit, StatusReturnReceived, true},
		// invalid: skipping states
		{StatusPending, StatusPickedUp, false},
		{StatusPending, StatusDelivered, false},
		{StatusToPickup, StatusAtWarehouse, false},
		{StatusAtWarehouse, StatusDelivered, false},
		{StatusInTransit, StatusDeliveredPaid, false},
		// invalid: going backwards
		{StatusDelivered, StatusInTransit, false},
		{StatusPickedUp, StatusToPickup, false},
		// invalid: terminal statuses have no outgoing transitions
		{StatusDeliveredPaid, StatusPending, false},
		{StatusDefinitiveReturn, StatusPending, false},
		{StatusReturnReceived, StatusReturnInTransit, false},
		// definitive return is never reachable through the table itself
		{StatusInTransit, StatusDefinitiveReturn, false},
		{StatusPending, StatusDefinitiveReturn, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

// Every status not named as a target in the table must be unreachable from
// every other status: full graph closure, not just spot checks.
func TestTransitionGraphClosure(t *testing.T) {
	all := []Status{
		StatusPending, StatusToPickup, StatusPickedUp, StatusAtWarehouse,
		StatusInTransit, StatusReturnToWarehouse, StatusDelivered,
		StatusDeliveredPaid, StatusDefinitiveReturn, StatusReturnToClientAgency,
		StatusReturnToSender, StatusReturnInTransit, StatusReturnReceived,
	}
	for _, from := range all {
		allowed := map[Status]bool{}
		for _, to := range AllowedTransitions[from] {
			allowed[to] = true
		}
		for _, to := range all {
			if CanTransition(from, to) != allowed[to] {
				t.Errorf("CanTransition(%s, %s) disagrees with table", from, to)
			}
		}
	}
}

func TestStatusValid(t *testing.T) {
	if !StatusPending.Valid() || !StatusReturnReceived.Valid() {
		t.Error("enumerated statuses must be valid")
	}
	if Status("exploded").Valid() {
		t.Error("unknown status must be invalid")
	}
}

func TestStatusTerminal(t *testing.T) {
	for _, s := range []Status{StatusDeliveredPaid, StatusDefinitiveReturn, StatusReturnReceived} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []Status{StatusPending, StatusInTransit, StatusDelivered, StatusReturnToWarehouse} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}
