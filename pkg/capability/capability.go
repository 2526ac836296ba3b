package capability

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Capabilities is a W3C-style capability set: a string-keyed map of
// requested or offered browser properties. Values are whatever survives
// JSON round-tripping (strings, bools, numbers, nested maps).
type Capabilities map[string]any

// BrowserName returns the "browserName" capability, or "" if unset.
func (c Capabilities) BrowserName() string {
	return c.stringValue("browserName")
}

// BrowserVersion returns the "browserVersion" capability, or "" if unset.
func (c Capabilities) BrowserVersion() string {
	return c.stringValue("browserVersion")
}

// PlatformName returns the "platformName" capability, or "" if unset.
func (c Capabilities) PlatformName() string {
	return c.stringValue("platformName")
}

func (c Capabilities) stringValue(key string) string {
	if v, ok := c[key].(string); ok {
		return v
	}
	return ""
}

// Clone returns a shallow copy of the capability set.
func (c Capabilities) Clone() Capabilities {
	if c == nil {
		return nil
	}
	out := make(Capabilities, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// String renders the capability set in a stable key order, for logs and
// queue snapshots.
func (c Capabilities) String() string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("{")
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %v", k, c[k])
	}
	b.WriteString("}")
	return b.String()
}

// MarshalJSON keeps empty capability sets as "{}" rather than "null" so
// downstream WebDriver clients always see an object.
func (c Capabilities) MarshalJSON() ([]byte, error) {
	if c == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]any(c))
}
