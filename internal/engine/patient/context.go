// Package patient carries the demographic context the decision engine
// adjusts for. The context travels alongside a finding set into both the
// ranking engine and the red-flag detector; it is plain data with no
// behavior of its own.
package patient

import "strings"

// Sex values recognized in a Context. An empty string means unknown.
const (
	SexMale   = "male"
	SexFemale = "female"
	SexOther  = "other"
)

// Context describes the patient a note refers to. Every field is optional:
// zero values mean "unknown" and leave prevalence priors unadjusted.
type Context struct {
	// Age in completed years. Zero or negative means unknown.
	Age int `json:"age,omitempty"`
	// Sex is one of the Sex constants. Unknown sex never excludes a
	// diagnosis; only an explicit non-matching sex does.
	Sex string `json:"sex,omitempty"`
	// Pregnant gates pregnancy-specific diagnoses and red-flag rules.
	Pregnant bool `json:"pregnant,omitempty"`
	// Season is a seasonal or regional flag (e.g. "monsoon") that scales
	// the priors of diseases carrying a multiplier for it.
	Season string `json:"season,omitempty"`
}

// NormalizedSex returns the lowercased, trimmed sex value for table lookups.
func (c Context) NormalizedSex() string {
	return strings.ToLower(strings.TrimSpace(c.Sex))
}

// NormalizedSeason returns the lowercased, trimmed season flag.
func (c Context) NormalizedSeason() string {
	return strings.ToLower(strings.TrimSpace(c.Season))
}

// HasAge reports whether the age field carries a usable value.
func (c Context) HasAge() bool {
	return c.Age > 0
}

// KnownSex reports whether s is one of the recognized Sex constants.
func KnownSex(s string) bool {
	switch s {
	case SexMale, SexFemale, SexOther:
		return true
	}
	return false
}
