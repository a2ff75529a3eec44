package cli

import "testing"

func TestResolvePort(t *testing.T) {
	cases := []struct {
		flag, cfg, want string
	}{
		{"9000", "7000", "9000"},
		{"", "7000", "7000"},
		{"", "", "8080"},
		{"9000", "", "9000"},
	}
	for _, c := range cases {
		if got := resolvePort(c.flag, c.cfg); got != c.want {
			t.Fatalf("resolvePort(%q, %q) = %q, want %q", c.flag, c.cfg, got, c.want)
		}
	}
}
