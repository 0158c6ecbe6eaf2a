package notifications

import "testing"

func TestKindValid(t *testing.T) {
	for _, k := range Kinds() {
		if !k.Valid() {
			t.Fatalf("kind %q should be valid", k)
		}
	}
	if Kind("stamina").Valid() {
		t.Fatal("unknown kind must not be valid")
	}
	if Kind("").Valid() {
		t.Fatal("empty kind must not be valid")
	}
}

func TestKindDefaults(t *testing.T) {
	cases := []struct {
		kind      Kind
		threshold int
		maxNotif  int
	}{
		{KindResin, 140, 3},
		{KindPot, 2000, 3},
		{KindPT, 1, 3},
		{KindTalent, 0, 1},
		{KindWeapon, 0, 1},
	}
	for _, tc := range cases {
		threshold, maxNotif := tc.kind.Defaults()
		if threshold != tc.threshold || maxNotif != tc.maxNotif {
			t.Fatalf("%s defaults = %d/%d, want %d/%d",
				tc.kind, threshold, maxNotif, tc.threshold, tc.maxNotif)
		}
	}
}
