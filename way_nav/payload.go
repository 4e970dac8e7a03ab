package way_nav

import (
	"net/url"
	"strings"
)

// targetParam is the query key carrying the marker identifier.
const targetParam = "target"

// ParseMarkerPayload extracts a target identifier from a decoded marker.
//
// An absolute URL yields the value of its first "target" query parameter
// (key matched case-insensitively); anything else is the identifier itself.
func ParseMarkerPayload(payload string) string {
	raw := strings.TrimSpace(payload)
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return raw
	}
	if id, ok := firstQueryValue(u.RawQuery, targetParam); ok {
		return id
	}
	return raw
}

// firstQueryValue scans a raw query in order; url.Values would lose it.
func firstQueryValue(rawQuery, key string) (string, bool) {
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		name, err := url.QueryUnescape(k)
		if err != nil || !strings.EqualFold(name, key) {
			continue
		}
		value, err := url.QueryUnescape(v)
		if err != nil {
			value = v
		}
		return strings.TrimSpace(value), true
	}
	return "", false
}
