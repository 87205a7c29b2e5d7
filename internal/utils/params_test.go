package utils

import "testing"

func TestAtoiDefault(t *testing.T) {
	cases := []struct {
		s    string
		def  int
		want int
	}{
		{"", 20, 20},
		{"3", 1, 3},
		{"-2", 1, -2},
		{"007", 1, 7},
		{"abc", 5, 5},
		{" 4", 9, 9},
		{"99999999999999999999", -1, -1},
	}
	for _, tc := range cases {
		if got := AtoiDefault(tc.s, tc.def); got != tc.want {
			t.Errorf("AtoiDefault(%q, %d) = %d, want %d", tc.s, tc.def, got, tc.want)
		}
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(0, 1, 100); got != 1 {
		t.Errorf("below range: %d", got)
	}
	if got := Clamp(500, 1, 100); got != 100 {
		t.Errorf("above range: %d", got)
	}
	if got := Clamp(20, 1, 100); got != 20 {
		t.Errorf("in range: %d", got)
	}
}

func TestParseUnixSeconds(t *testing.T) {
	if ts, ok := ParseUnixSeconds("1767225600"); !ok || ts != 1767225600 {
		t.Fatalf("valid timestamp: %d %v", ts, ok)
	}
	for _, s := range []string{"", "0", "-5", "1.5", "soon"} {
		if _, ok := ParseUnixSeconds(s); ok {
			t.Errorf("ParseUnixSeconds(%q) accepted", s)
		}
	}
}
