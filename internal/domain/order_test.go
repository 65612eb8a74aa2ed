package domain

import "testing"

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to OrderStatus }{
		{StatusPending, StatusConfirmed},
		{StatusPending, StatusCancelled},
		{StatusConfirmed, StatusProcessing},
		{StatusConfirmed, StatusCancelled},
		{StatusProcessing, StatusShipped},
		{StatusShipped, StatusDelivered},
	}
	for _, tc := range allowed {
		if !CanTransition(tc.from, tc.to) {
			t.Errorf("%s -> %s should be allowed", tc.from, tc.to)
		}
	}

	denied := []struct{ from, to OrderStatus }{
		{StatusPending, StatusShipped},
		{StatusProcessing, StatusConfirmed},
		{StatusProcessing, StatusCancelled},
		{StatusShipped, StatusCancelled},
		{StatusDelivered, StatusProcessing},
		{StatusCancelled, StatusPending},
		{StatusConfirmed, StatusConfirmed},
	}
	for _, tc := range denied {
		if CanTransition(tc.from, tc.to) {
			t.Errorf("%s -> %s should be rejected", tc.from, tc.to)
		}
	}
}

func TestCanBeCancelled(t *testing.T) {
	for status, want := range map[OrderStatus]bool{
		StatusPending:    true,
		StatusConfirmed:  true,
		StatusProcessing: false,
		StatusShipped:    false,
		StatusDelivered:  false,
		StatusCancelled:  false,
	} {
		o := Order{Status: status}
		if o.CanBeCancelled() != want {
			t.Errorf("%s: CanBeCancelled = %v, want %v", status, !want, want)
		}
	}
}

func TestItemCount(t *testing.T) {
	items := []OrderItem{{Quantity: 2}, {Quantity: 1}, {Quantity: 4}}
	if got := ItemCount(items); got != 7 {
		t.Fatalf("want 7, got %d", got)
	}
	if got := ItemCount(nil); got != 0 {
		t.Fatalf("empty: want 0, got %d", got)
	}
}
