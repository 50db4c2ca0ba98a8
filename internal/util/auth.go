package util

import (
	"net/http"
	"strings"
	"time"
)

// PassAuthScheme is the Authorization scheme devices use for pass requests.
const PassAuthScheme = "ApplePass"

// PassToken returns the token from "Authorization: ApplePass <token>",
// falling back to the authenticationToken query value. The scheme name is
// matched case-insensitively.
func PassToken(authorization, query string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(authorization), " ")
	if ok && strings.EqualFold(scheme, PassAuthScheme) {
		if token = strings.TrimSpace(token); token != "" {
			return token
		}
	}
	return strings.TrimSpace(query)
}

// ParseIfModifiedSince accepts HTTP dates and RFC 3339. The second result is
// false for empty or unparsable values, which callers treat as absent.
func ParseIfModifiedSince(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, false
	}
	if t, err := http.ParseTime(v); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}
