package e164

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"+1 (521) 617-7188", "+15216177188"},
		{"(521) 617-7188", "+15216177188"},
		{"5216177188", "+15216177188"},
		{"15216177188", "+15216177188"},
		{"+442071838750", "+442071838750"},
		{"", ""},
		{"ext. 12", "+12"},
	}
	for _, c := range cases {
		if got := Normalize(c.in); got != c.want {
			t.Errorf("Normalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
