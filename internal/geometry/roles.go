package geometry

import "fmt"

// RoleStrategy names each fixture's spatial role within a group, given the
// group's size and a fixture's position index. Open Question decision
// (DESIGN.md): the 4-fixture chevron case is normative
// (OUTER_LEFT/INNER_LEFT/INNER_RIGHT/OUTER_RIGHT); every other fixture
// count falls back to "{group_id}_{idx}". Exposed as a pluggable function
// type so callers can register an alternate strategy without touching the
// geometry engine.
type RoleStrategy func(groupID string, n int, idx int) string

// DefaultRoleStrategy implements the normative 4-fixture chevron naming
// with a positional fallback otherwise.
func DefaultRoleStrategy(groupID string, n int, idx int) string {
	if n == 4 {
		names := [4]string{"OUTER_LEFT", "INNER_LEFT", "INNER_RIGHT", "OUTER_RIGHT"}
		return names[idx]
	}
	return fmt.Sprintf("%s_%d", groupID, idx)
}

// chevronRoles returns, for a fixture count n, the index positions
// considered "inner" — used by chevronV to decide which fixtures receive
// the tilt lift. For the normative 4-fixture case this is indices 1 and 2
// (INNER_LEFT/INNER_RIGHT); for other counts, the innermost half (rounding
// down) by distance from center.
func chevronRoles(n int) []int {
	if n == 4 {
		return []int{1, 2}
	}
	var inner []int
	for i := 0; i < n; i++ {
		if centerDistance(i, n) < 0.5 {
			inner = append(inner, i)
		}
	}
	return inner
}

func isInner(innerIdx []int, i int) bool {
	for _, v := range innerIdx {
		if v == i {
			return true
		}
	}
	return false
}

// ApplyTiltOffset combines a geometry's tilt offset with a fixture's
// canonical tilt for its assigned role. Open Question decision
// (DESIGN.md): the offset is relative to the role's canonical tilt, not
// an absolute degree value — final_tilt_deg = canonicalTiltDeg(role) +
// offsetDeg.
func ApplyTiltOffset(role TiltRole, offsetDeg float64) float64 {
	return CanonicalTiltDeg(role) + offsetDeg
}

// CanonicalTiltDeg gives the baseline tilt position for a role, in the
// fixture's design-space degrees (0 = horizon).
func CanonicalTiltDeg(role TiltRole) float64 {
	switch role {
	case Up:
		return 45
	case Zero:
		return 0
	case AboveHorizon:
		return 20
	default:
		return 0
	}
}
