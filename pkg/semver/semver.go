// Package semver answers the version queries the resolution engine needs.
//
// It is a thin wrapper around github.com/Masterminds/semver/v3 exposing
// string-based predicates (targets arrive as opaque strings from manifests
// and the command line) plus the upper-bound extraction used to decide
// whether two ranges may share a resolution.
package semver

import (
	"fmt"
	"strconv"
	"strings"

	mm "github.com/Masterminds/semver/v3"
)

// Valid reports whether raw parses as a concrete semantic version.
func Valid(raw string) bool {
	_, err := mm.NewVersion(raw)
	return err == nil
}

// ValidRange reports whether raw parses as a version range but not as a
// concrete version. Targets like "^1.0.0", "~1.2", ">=1 <3" and "*" are
// ranges; "1.2.3" is not.
func ValidRange(raw string) bool {
	if Valid(raw) {
		return false
	}
	_, err := mm.NewConstraint(raw)
	return err == nil
}

// Eq reports whether two concrete versions are equal (ignoring "v" prefixes
// and build metadata).
func Eq(a, b string) bool {
	va, err := mm.NewVersion(a)
	if err != nil {
		return false
	}
	vb, err := mm.NewVersion(b)
	if err != nil {
		return false
	}
	return va.Equal(vb)
}

// Satisfies reports whether version matches the given range.
// Invalid versions or ranges never satisfy.
func Satisfies(version, rng string) bool {
	v, err := mm.NewVersion(version)
	if err != nil {
		return false
	}
	c, err := mm.NewConstraint(rng)
	if err != nil {
		return false
	}
	return c.Check(v)
}

// Compare compares two concrete versions, returning:
//
//	-1 if a < b
//	 0 if a == b
//	 1 if a > b
//
// An unparsable version sorts below any parsable one.
func Compare(a, b string) int {
	va, errA := mm.NewVersion(a)
	vb, errB := mm.NewVersion(b)
	if errA != nil && errB != nil {
		return 0
	}
	if errA != nil {
		return -1
	}
	if errB != nil {
		return 1
	}
	return va.Compare(vb)
}

// Tilde returns the "~version" range for a concrete version, used when a
// wildcard target is promoted after resolution.
func Tilde(version string) string {
	return "~" + strings.TrimPrefix(version, "v")
}

// Cap is the strongest upper bound found in a range's comparator list.
type Cap struct {
	Version    string // canonical version of the bound
	Comparator string // one of "<", "<=", "=", ">=", ">"
}

// Equal reports whether two caps agree by version and comparator kind.
func (c Cap) Equal(other Cap) bool {
	return c.Comparator == other.Comparator && Eq(c.Version, other.Version)
}

// HighestCap extracts the maximum-version comparator from a range.
//
// Shorthand operators are first normalized the way a comparator set would
// expand them: "^1.2.3" contributes "<2.0.0", "~1.2.3" contributes "<1.3.0",
// "1.2.x" contributes "<1.3.0", and a hyphen range "a - b" contributes
// "<=b". The bool result is false when the range has no bounded comparator
// at all (e.g. "*" or ">=1.0.0").
//
// Two upper-bounded ranges sharing the same cap can share a resolution
// because the strongest constraint dominates. Lower bounds are deliberately
// not compared.
func HighestCap(rng string) (Cap, bool) {
	var best Cap
	found := false
	for _, group := range strings.Split(rng, "||") {
		for _, c := range groupCaps(group) {
			if !found || Compare(c.Version, best.Version) > 0 {
				best = c
				found = true
			}
		}
	}
	return best, found
}

// groupCaps expands one AND-group of comparators into its version bounds.
func groupCaps(group string) []Cap {
	group = strings.TrimSpace(group)
	if group == "" || group == "*" {
		return nil
	}
	if lo, hi, ok := strings.Cut(group, " - "); ok {
		group = ">=" + strings.TrimSpace(lo) + " <=" + strings.TrimSpace(hi)
	}

	var caps []Cap
	for _, tok := range strings.FieldsFunc(group, func(r rune) bool {
		return r == ' ' || r == ','
	}) {
		if c, ok := tokenCap(tok); ok {
			caps = append(caps, c)
		}
	}
	return caps
}

// tokenCap normalizes a single comparator token into a version bound.
func tokenCap(tok string) (Cap, bool) {
	op := ""
	for _, prefix := range []string{"<=", ">=", "<", ">", "=", "^", "~"} {
		if strings.HasPrefix(tok, prefix) {
			op = prefix
			tok = tok[len(prefix):]
			break
		}
	}
	tok = strings.TrimPrefix(strings.TrimSpace(tok), "v")
	if tok == "" || tok == "*" || tok == "x" || tok == "X" {
		return Cap{}, false
	}

	major, minor, patch, wild, err := parseParts(tok)
	if err != nil {
		return Cap{}, false
	}

	switch op {
	case "^":
		return Cap{Version: caretUpper(major, minor, patch), Comparator: "<"}, true
	case "~":
		if wild <= 1 {
			// ~1 means >=1.0.0 <2.0.0
			return Cap{Version: fmt.Sprintf("%d.0.0", major+1), Comparator: "<"}, true
		}
		return Cap{Version: fmt.Sprintf("%d.%d.0", major, minor+1), Comparator: "<"}, true
	case "":
		if wild == 1 {
			return Cap{Version: fmt.Sprintf("%d.0.0", major+1), Comparator: "<"}, true
		}
		if wild == 2 {
			return Cap{Version: fmt.Sprintf("%d.%d.0", major, minor+1), Comparator: "<"}, true
		}
		return Cap{Version: fmt.Sprintf("%d.%d.%d", major, minor, patch), Comparator: "="}, true
	case ">", ">=":
		// lower bounds carry no cap
		return Cap{}, false
	default: // "<", "<="
		return Cap{Version: fmt.Sprintf("%d.%d.%d", major, minor, patch), Comparator: op}, true
	}
}

// caretUpper computes the exclusive upper bound for a caret range.
func caretUpper(major, minor, patch uint64) string {
	switch {
	case major > 0:
		return fmt.Sprintf("%d.0.0", major+1)
	case minor > 0:
		return fmt.Sprintf("0.%d.0", minor+1)
	default:
		return fmt.Sprintf("0.0.%d", patch+1)
	}
}

// parseParts splits a possibly-partial version into numeric components.
// wild is the number of concrete leading components when the version is
// partial or wildcarded (1 for "1" and "1.x", 2 for "1.2" and "1.2.x"),
// or 3 for a full version.
func parseParts(raw string) (major, minor, patch uint64, wild int, err error) {
	if i := strings.IndexAny(raw, "-+"); i >= 0 {
		raw = raw[:i]
	}
	parts := strings.SplitN(raw, ".", 3)
	nums := make([]uint64, 0, 3)
	for _, p := range parts {
		if p == "x" || p == "X" || p == "*" {
			break
		}
		n, perr := strconv.ParseUint(p, 10, 64)
		if perr != nil {
			return 0, 0, 0, 0, perr
		}
		nums = append(nums, n)
	}
	if len(nums) == 0 {
		return 0, 0, 0, 0, fmt.Errorf("semver: no numeric components in %q", raw)
	}
	wild = len(nums)
	major = nums[0]
	if len(nums) > 1 {
		minor = nums[1]
	}
	if len(nums) > 2 {
		patch = nums[2]
	}
	return major, minor, patch, wild, nil
}
