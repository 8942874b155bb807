// Package models defines the Matchlight API resources and the small helpers
// used to build their request payloads.
package models

import (
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is the timestamp format used in feed exports.
const TimestampLayout = "2006-01-02T15:04:05"

// BlindName masks a name down to its first character padded with '*' to
// width characters. An empty name becomes all asterisks.
func BlindName(name string, width int) string {
	first := "*"
	if name != "" {
		first = string([]rune(name)[:1])
	}
	n := width - len([]rune(first))
	if n <= 0 {
		return first
	}
	return first + strings.Repeat("*", n)
}

// BlindEmail masks the local part of an email address, keeping between one
// and three leading characters. The domain is kept as is.
func BlindEmail(email string) string {
	if email == "" {
		return "****"
	}
	prefix, suffix := email, ""
	if i := strings.IndexByte(email, '@'); i >= 0 {
		prefix, suffix = email[:i], email[i:]
	}
	r := []rune(prefix)
	keep := max(1, min(3, len(r)/2))
	if keep > len(r) {
		keep = len(r)
	}
	return string(r[:keep]) + "****" + suffix
}

// ParseTimestamp parses a feed export timestamp. The value carries no zone
// and is interpreted as UTC. Fractional seconds are rejected.
func ParseTimestamp(s string) (time.Time, error) {
	// time.Parse accepts a fraction after the seconds field even when the
	// layout has none.
	if len(s) != len(TimestampLayout) {
		return time.Time{}, fmt.Errorf("parse timestamp %q: want layout %s", s, TimestampLayout)
	}
	t, err := time.Parse(TimestampLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

// UnixSeconds converts t to whole seconds since the epoch.
func UnixSeconds(t time.Time) int64 {
	return t.UTC().Unix()
}

// FromUnix converts epoch seconds to a UTC time. Zero maps to the zero time.
func FromUnix(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}
