package combat

import "testing"

func TestRatioResolver(t *testing.T) {
	r := RatioResolver{}
	cases := []struct {
		name     string
		att, def Side
		want     Result
	}{
		{"overwhelming", Side{Strength: 10}, Side{Strength: 4}, ResultWin},
		{"even", Side{Strength: 5}, Side{Strength: 5}, ResultStalemate},
		{"outmatched", Side{Strength: 2}, Side{Strength: 6}, ResultLose},
		{"bonus turns win into stalemate", Side{Strength: 6}, Side{Strength: 3, DefenseBonus: 2}, ResultStalemate},
		{"empty defender", Side{Strength: 1}, Side{Strength: 0}, ResultWin},
	}
	for _, tc := range cases {
		got := r.Resolve(tc.att, tc.def)
		if got.Result != tc.want {
			t.Fatalf("%s: got %s want %s", tc.name, got.Result, tc.want)
		}
	}
}

func TestRatioResolverLossesPositive(t *testing.T) {
	out := RatioResolver{}.Resolve(Side{Strength: 5}, Side{Strength: 5})
	if out.AttackerLosses < 1 || out.DefenderLosses < 1 {
		t.Fatalf("stalemate should cost both sides: %+v", out)
	}
}

func TestResultDecisive(t *testing.T) {
	if !ResultWin.Decisive() || !ResultLose.Decisive() {
		t.Fatalf("win/lose should be decisive")
	}
	if ResultStalemate.Decisive() || ResultNone.Decisive() {
		t.Fatalf("stalemate/none should not be decisive")
	}
	if ResultWin.Invert() != ResultLose || ResultStalemate.Invert() != ResultStalemate {
		t.Fatalf("invert mismatch")
	}
}
