package match

import "testing"

func TestRoundShort(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"Round Of 16", "R16"},
		{"Round Of 32", "R32"},
		{"1st Round Qualifying", "Q1"},
		{"2nd Round Qualifying", "Q2"},
		{"1st Round", "1R"},
		{"Quarterfinals", "QF"},
		{"Quarter-Finals", "QF"},
		{"Semifinals", "SF"},
		{"Final", "F"},
		{"Finals", "F"},
		{"Round Robin", "RR"},
		{"Unknown Round", "UR"},
		{"", ""},
	}

	for _, tc := range cases {
		if got := RoundShort(tc.in); got != tc.want {
			t.Errorf("RoundShort(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
