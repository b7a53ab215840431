// Package rfctime fixes one textual timestamp layout for everything the
// backends persist.
//
// Documents are compared and sorted as text by the storage layer, so the
// layout is fixed-width UTC: equal instants render equal strings, and
// lexicographic order equals time order.
package rfctime

import (
	"time"
)

// Layout is RFC3339 with nanoseconds padded to full width, always UTC.
const Layout = "2006-01-02T15:04:05.000000000Z"

// Format renders t in the canonical layout.
func Format(t time.Time) string {
	return t.UTC().Format(Layout)
}

// Now returns the current instant in UTC, truncated to the layout's
// resolution so a value survives a Format/Parse round trip unchanged.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Nanosecond)
}

// Parse reads a canonical timestamp. It also accepts plain RFC3339 with
// arbitrary offsets, for records written by hand or by older tooling.
func Parse(s string) (time.Time, error) {
	if t, err := time.Parse(Layout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
