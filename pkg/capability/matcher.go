package capability

import (
	"reflect"
	"strings"

	"github.com/gobwas/glob"
)

// SlotMatcher decides whether a slot advertised with the given stereotype
// can host a session with the requested capabilities. Implementations must
// be pure: no side effects, safe for concurrent use.
type SlotMatcher interface {
	Matches(stereotype, requested Capabilities) bool
}

// GlobMatcher is the default slot matcher. Every key the request names must
// be satisfied by the stereotype: string values match if either side, read
// as a glob pattern, matches the other (so a stereotype advertising
// browserVersion "120.*" satisfies a request for "120.0.6099" and a request
// for "*" matches any stereotype); all other values compare deep-equal.
//
// Extension capabilities (keys containing ':') that the stereotype does not
// declare are ignored rather than failing the match, since nodes rarely
// advertise vendor-prefixed options.
type GlobMatcher struct{}

// NewGlobMatcher returns the default matcher.
func NewGlobMatcher() GlobMatcher {
	return GlobMatcher{}
}

// Matches reports whether the stereotype satisfies the requested capability set.
func (GlobMatcher) Matches(stereotype, requested Capabilities) bool {
	if len(requested) == 0 {
		return false
	}

	for key, want := range requested {
		if isEmptyValue(want) {
			continue
		}

		have, ok := stereotype[key]
		if !ok {
			if strings.Contains(key, ":") {
				continue
			}
			return false
		}

		if !valuesMatch(have, want) {
			return false
		}
	}
	return true
}

func valuesMatch(have, want any) bool {
	haveStr, haveIsStr := have.(string)
	wantStr, wantIsStr := want.(string)
	if haveIsStr && wantIsStr {
		return stringsMatch(haveStr, wantStr)
	}
	return reflect.DeepEqual(have, want)
}

// stringsMatch compares case-insensitively and honors glob patterns on
// either side. A pattern that fails to compile is treated as a literal.
func stringsMatch(have, want string) bool {
	have = strings.ToLower(have)
	want = strings.ToLower(want)
	if have == want {
		return true
	}
	if g, err := glob.Compile(want); err == nil && g.Match(have) {
		return true
	}
	if g, err := glob.Compile(have); err == nil && g.Match(want) {
		return true
	}
	return false
}

func isEmptyValue(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}
