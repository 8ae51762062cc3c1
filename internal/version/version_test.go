package version

import (
	"errors"
	"testing"

	"github.com/drctl/drctl/internal/apperr"
)

func TestBump(t *testing.T) {
	cases := []struct {
		in   string
		part Part
		want string
	}{
		{"1.0.0", Patch, "1.0.1"},
		{"1.0.9", Minor, "1.1.0"},
		{"2.3.4", Major, "3.0.0"},
		{"1.0", Patch, "1.0.1"},
		{"1", Minor, "1.1.0"},
		{"1.2.3", Minor, "1.3.0"},
	}
	for _, c := range cases {
		got, err := Bump(c.in, c.part)
		if err != nil {
			t.Errorf("Bump(%q, %s): %v", c.in, c.part, err)
			continue
		}
		if got != c.want {
			t.Errorf("Bump(%q, %s) = %q, want %q", c.in, c.part, got, c.want)
		}
	}
}

func TestBump_Invalid(t *testing.T) {
	for _, in := range []string{"1.x.0", "", "1.0.0.0", "-1.0"} {
		if _, err := Bump(in, Patch); !errors.Is(err, apperr.ErrInvalidVersion) {
			t.Errorf("Bump(%q) err = %v, want ErrInvalidVersion", in, err)
		}
	}
}
