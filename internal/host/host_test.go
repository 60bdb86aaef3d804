package host

import "testing"

func TestAtLeast(t *testing.T) {
	cases := []struct {
		v, min string
		want   bool
	}{
		{"6.9", "6.9", true},
		{"6.10", "6.9", true},
		{"7.0", "6.9", true},
		{"6.8", "6.9", false},
		{"6", "6.1", false},
		{"6.1.0", "6.1", true},
		{"", "6.1", false},
		{"6.x", "6.1", false},
	}
	for _, tc := range cases {
		if got := AtLeast(tc.v, tc.min); got != tc.want {
			t.Errorf("AtLeast(%q, %q) = %v, want %v", tc.v, tc.min, got, tc.want)
		}
	}
}

func TestResolve(t *testing.T) {
	c := Resolve("6.2")
	if !c.Expand || !c.HapticFeedback || c.CloudStorage {
		t.Fatalf("6.2: %+v", c)
	}
	c = Resolve(" 7.10 ")
	if !c.Expand || !c.CloudStorage || c.Version != "7.10" {
		t.Fatalf("7.10: %+v", c)
	}
	if c = Resolve("6.0"); c.Expand || c.CloudStorage {
		t.Fatalf("6.0: %+v", c)
	}
	if c = Resolve("garbage"); c.Expand || c.HapticFeedback || c.CloudStorage {
		t.Fatalf("garbage: %+v", c)
	}
}
