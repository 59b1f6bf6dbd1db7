package matcher

import "strings"

// Operator compares a reported state name with a pattern.
type Operator func(state, pattern string) bool

// State operators.
var (
	Exact     Operator = func(state, pattern string) bool { return state == pattern }
	Fold      Operator = strings.EqualFold
	HasPrefix Operator = strings.HasPrefix
	HasSuffix Operator = strings.HasSuffix
	Contains  Operator = strings.Contains
)

// State implements the Matcher interface with the type argument string,
// matching a remote job state name reported by a service.
// It has public fields so that mappings can be inspected and printed.
type State struct {
	Operator *Operator // uses a pointer to compare with standard operators
	Pattern  string
}

var _ Matcher[string] = (*State)(nil)

// NewState returns a new State matcher given the operator and pattern.
func NewState(operator *Operator, pattern string) Matcher[string] {
	return &State{
		Operator: operator,
		Pattern:  pattern,
	}
}

// StateEquals returns a new State, matching states identical to the pattern.
func StateEquals(pattern string) Matcher[string] {
	return NewState(&Exact, pattern)
}

// StateEqualFold returns a new State, matching states equal to the pattern
// under Unicode case-folding.
func StateEqualFold(pattern string) Matcher[string] {
	return NewState(&Fold, pattern)
}

// StateStartsWith returns a new State, matching states that start with
// the pattern.
func StateStartsWith(pattern string) Matcher[string] {
	return NewState(&HasPrefix, pattern)
}

// StateIn returns a Matcher which matches any of the given state names,
// ignoring case.
func StateIn(patterns ...string) Matcher[string] {
	matchers := make([]Matcher[string], 0, len(patterns))
	for _, pattern := range patterns {
		matchers = append(matchers, StateEqualFold(pattern))
	}
	return AnyOf(matchers...)
}

// IsMatch evaluates State matcher on the given state name.
func (s *State) IsMatch(state string) bool {
	return (*s.Operator)(state, s.Pattern)
}
