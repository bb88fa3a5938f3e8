package enums

import "fmt"

// MatchStatus records how a branch price row was tied to its catalog product.
type MatchStatus string

const (
	// MatchLinked is a human confirmed link.
	MatchLinked MatchStatus = "linked"
	// MatchAutoMatched was linked by the identity resolver and awaits confirmation.
	MatchAutoMatched MatchStatus = "auto_matched"
	// MatchNotLinked points at a freshly created product nobody has reviewed.
	MatchNotLinked MatchStatus = "not_linked"
)

var validMatchStatuses = []MatchStatus{
	MatchLinked,
	MatchAutoMatched,
	MatchNotLinked,
}

// String implements fmt.Stringer.
func (m MatchStatus) String() string {
	return string(m)
}

// IsValid reports whether the value is a known match status.
func (m MatchStatus) IsValid() bool {
	for _, candidate := range validMatchStatuses {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMatchStatus converts raw input into MatchStatus.
func ParseMatchStatus(value string) (MatchStatus, error) {
	for _, candidate := range validMatchStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid match status %q", value)
}
