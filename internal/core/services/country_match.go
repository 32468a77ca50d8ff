package services

import "github.com/clearborder/duty_engine/internal/core/domain"

// EUGroupToken is the country-group token that matches any EU member state,
// in either direction.
const EUGroupToken = "EU"

// DefaultEUCountries is the EU member set used when configuration does not
// supply one.
var DefaultEUCountries = []string{
	"AT", "BE", "BG", "HR", "CY", "CZ", "DK", "EE", "FI", "FR",
	"DE", "GR", "HU", "IE", "IT", "LV", "LT", "LU", "MT", "NL",
	"PL", "PT", "RO", "SK", "SI", "ES", "SE",
}

// CountryMatcher implements the group-aware country comparison used by policy
// scope and condition matching: exact match, the "ALL" wildcard on either
// side, and the EU group token matching any member in either direction.
type CountryMatcher struct {
	euMembers map[string]struct{}
}

// NewCountryMatcher creates a matcher over the given EU member set; a nil or
// empty set falls back to DefaultEUCountries.
func NewCountryMatcher(euMembers []string) *CountryMatcher {
	if len(euMembers) == 0 {
		euMembers = DefaultEUCountries
	}
	members := make(map[string]struct{}, len(euMembers))
	for _, c := range euMembers {
		members[c] = struct{}{}
	}
	return &CountryMatcher{euMembers: members}
}

// Match reports whether a rule-side country scope matches an input country.
func (m *CountryMatcher) Match(ruleCountry, inputCountry string) bool {
	if ruleCountry == inputCountry {
		return true
	}
	if ruleCountry == domain.CountryAll || inputCountry == domain.CountryAll {
		return true
	}
	if ruleCountry == EUGroupToken {
		_, ok := m.euMembers[inputCountry]
		return ok
	}
	if inputCountry == EUGroupToken {
		_, ok := m.euMembers[ruleCountry]
		return ok
	}
	return false
}

// MatchAny reports whether any entry of a country list matches the input
// country; group tokens inside the list match their members.
func (m *CountryMatcher) MatchAny(list []string, inputCountry string) bool {
	for _, c := range list {
		if m.Match(c, inputCountry) {
			return true
		}
	}
	return false
}
