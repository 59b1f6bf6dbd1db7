package poll

import (
	"strings"

	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/matcher"
)

// Sep is the separator used in descriptions.
const Sep = "::"

// Mapper translates a service-specific job state name into a Status.
type Mapper interface {
	Map(state string) (Status, error)
}

// MapFunc adapts an ordinary function to the Mapper interface.
type MapFunc func(state string) (Status, error)

// Map calls f(state).
func (f MapFunc) Map(state string) (Status, error) {
	return f(state)
}

// Rule maps every state accepted by Matcher to Status.
type Rule struct {
	Matcher matcher.Matcher[string]
	Status  Status
}

// Mapping is a Mapper built from an ordered list of rules.
// The first matching rule wins.
type Mapping struct {
	rules []Rule
}

// Verify Mapping satisfies the Mapper interface.
var _ Mapper = (*Mapping)(nil)

// NewMapping returns a new Mapping for the given rules.
func NewMapping(rules ...Rule) *Mapping {
	return &Mapping{rules: rules}
}

// Map returns the status of the first rule matching the trimmed state.
// A state that no rule matches yields a fatal error which unwraps to
// ErrUnknownState.
func (m *Mapping) Map(state string) (Status, error) {
	state = strings.TrimSpace(state)
	for _, rule := range m.rules {
		if rule.Matcher.IsMatch(state) {
			return rule.Status, nil
		}
	}
	return Pending, unknownStateError(state)
}
