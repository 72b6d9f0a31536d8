package gateway

import "testing"

func TestUnitsRoundTrip(t *testing.T) {
	amounts := []int{1, 99, 100, 599, 4999, 10000}

	for _, amount := range amounts {
		minor := MinorUnits(amount)
		if minor != int64(amount)*100 {
			t.Fatalf("MinorUnits(%d) = %d", amount, minor)
		}
		if got := WholeUnits(minor); got != amount {
			t.Fatalf("round trip of %d came back as %d", amount, got)
		}
	}

	if got := MinorUnits(599); got != 59900 {
		t.Fatalf("expected 599 rupees to be 59900 paise, got %d", got)
	}
}
