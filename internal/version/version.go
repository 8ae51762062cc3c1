// Package version bumps the lenient MAJOR.MINOR.PATCH versions carried by
// decision records.
package version

import (
	"fmt"
	"strconv"
	"strings"

	bsemver "github.com/blang/semver/v4"

	"github.com/drctl/drctl/internal/apperr"
)

// Initial is the version of a freshly created record.
const Initial = "1.0"

// Part selects the component to increment.
type Part string

const (
	Major Part = "major"
	Minor Part = "minor"
	Patch Part = "patch"
)

// Parse reads v leniently: missing trailing components default to 0 and
// every present component must be a non-negative integer.
func Parse(v string) (bsemver.Version, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(v), "v")
	parts := strings.Split(trimmed, ".")
	if len(parts) > 3 {
		return bsemver.Version{}, fmt.Errorf("%w: %q has more than three components", apperr.ErrInvalidVersion, v)
	}
	var nums [3]uint64
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return bsemver.Version{}, fmt.Errorf("%w: %q", apperr.ErrInvalidVersion, v)
		}
		nums[i] = n
	}
	return bsemver.Version{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

// Bump increments part of v and zeroes every less significant component.
func Bump(v string, part Part) (string, error) {
	sv, err := Parse(v)
	if err != nil {
		return "", err
	}
	switch part {
	case Major:
		err = sv.IncrementMajor()
	case Minor:
		err = sv.IncrementMinor()
	case Patch:
		err = sv.IncrementPatch()
	default:
		return "", fmt.Errorf("%w: unknown bump %q", apperr.ErrInvalidVersion, part)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrInvalidVersion, err)
	}
	return sv.String(), nil
}
