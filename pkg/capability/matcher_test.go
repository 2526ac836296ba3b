package capability

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGlobMatcher_ExactMatch(t *testing.T) {
	// Given a stereotype and an identical request
	matcher := NewGlobMatcher()
	stereotype := Capabilities{"browserName": "firefox", "platformName": "linux"}
	requested := Capabilities{"browserName": "firefox", "platformName": "linux"}

	// When matching
	// Then the slot should be accepted
	assert.True(t, matcher.Matches(stereotype, requested))
}

func TestGlobMatcher_MismatchedBrowser(t *testing.T) {
	matcher := NewGlobMatcher()
	stereotype := Capabilities{"browserName": "firefox"}
	requested := Capabilities{"browserName": "chrome"}

	assert.False(t, matcher.Matches(stereotype, requested))
}

func TestGlobMatcher_SubsetOfStereotype(t *testing.T) {
	// Given a request that names fewer keys than the stereotype offers
	matcher := NewGlobMatcher()
	stereotype := Capabilities{"browserName": "chrome", "browserVersion": "120.0", "platformName": "linux"}
	requested := Capabilities{"browserName": "chrome"}

	// Then the extra stereotype keys should not prevent a match
	assert.True(t, matcher.Matches(stereotype, requested))
}

func TestGlobMatcher_GlobPatterns(t *testing.T) {
	matcher := NewGlobMatcher()

	tests := []struct {
		name       string
		stereotype Capabilities
		requested  Capabilities
		want       bool
	}{
		{
			name:       "stereotype version pattern satisfies concrete request",
			stereotype: Capabilities{"browserName": "chrome", "browserVersion": "120.*"},
			requested:  Capabilities{"browserName": "chrome", "browserVersion": "120.0.6099"},
			want:       true,
		},
		{
			name:       "requested wildcard matches any stereotype value",
			stereotype: Capabilities{"browserName": "firefox", "platformName": "mac"},
			requested:  Capabilities{"browserName": "firefox", "platformName": "*"},
			want:       true,
		},
		{
			name:       "pattern mismatch fails",
			stereotype: Capabilities{"browserName": "chrome", "browserVersion": "121.*"},
			requested:  Capabilities{"browserName": "chrome", "browserVersion": "120.0.6099"},
			want:       false,
		},
		{
			name:       "case differences are ignored",
			stereotype: Capabilities{"browserName": "Firefox"},
			requested:  Capabilities{"browserName": "firefox"},
			want:       true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, matcher.Matches(tt.stereotype, tt.requested))
		})
	}
}

func TestGlobMatcher_ExtensionKeysIgnoredWhenNotAdvertised(t *testing.T) {
	// Given a request carrying a vendor-prefixed option the node does not advertise
	matcher := NewGlobMatcher()
	stereotype := Capabilities{"browserName": "chrome"}
	requested := Capabilities{"browserName": "chrome", "goog:chromeOptions": map[string]any{"args": []any{"--headless"}}}

	// Then the extension key should not block the match
	assert.True(t, matcher.Matches(stereotype, requested))
}

func TestGlobMatcher_ExtensionKeysComparedWhenAdvertised(t *testing.T) {
	matcher := NewGlobMatcher()
	stereotype := Capabilities{"browserName": "chrome", "webgrid:pool": "canary"}

	assert.True(t, matcher.Matches(stereotype, Capabilities{"browserName": "chrome", "webgrid:pool": "canary"}))
	assert.False(t, matcher.Matches(stereotype, Capabilities{"browserName": "chrome", "webgrid:pool": "stable"}))
}

func TestGlobMatcher_EmptyRequest(t *testing.T) {
	// An empty capability set matches nothing; a request must ask for something.
	matcher := NewGlobMatcher()
	assert.False(t, matcher.Matches(Capabilities{"browserName": "chrome"}, Capabilities{}))
	assert.False(t, matcher.Matches(Capabilities{"browserName": "chrome"}, nil))
}

func TestGlobMatcher_EmptyRequestedValuesIgnored(t *testing.T) {
	matcher := NewGlobMatcher()
	stereotype := Capabilities{"browserName": "chrome"}
	requested := Capabilities{"browserName": "chrome", "browserVersion": ""}

	assert.True(t, matcher.Matches(stereotype, requested))
}

func TestGlobMatcher_NonStringValues(t *testing.T) {
	matcher := NewGlobMatcher()
	stereotype := Capabilities{"browserName": "chrome", "acceptInsecureCerts": true}

	assert.True(t, matcher.Matches(stereotype, Capabilities{"browserName": "chrome", "acceptInsecureCerts": true}))
	assert.False(t, matcher.Matches(stereotype, Capabilities{"browserName": "chrome", "acceptInsecureCerts": false}))
}
