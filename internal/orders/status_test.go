package orders

import "testing"

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to PaymentStatus
		want     bool
	}{
		{StatusPending, StatusPaid, true},
		{StatusPending, StatusFailed, true},
		{StatusPaid, StatusFailed, false},
		{StatusFailed, StatusPaid, false},
		{StatusPaid, StatusPending, false},
		{StatusPending, StatusPending, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
	if StatusPending.Terminal() || !StatusPaid.Terminal() || !StatusFailed.Terminal() {
		t.Error("only PAID and FAILED are terminal")
	}
}

func TestNormalizeLines(t *testing.T) {
	got := NormalizeLines([]Line{{"b", 1}, {"a", 2}, {"b", 3}})
	if len(got) != 2 || got[0] != (Line{"a", 2}) || got[1] != (Line{"b", 4}) {
		t.Errorf("unexpected lines %+v", got)
	}
}
