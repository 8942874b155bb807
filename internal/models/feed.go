package models

import "time"

// Feed is a subscribed alert feed available for bulk export.
type Feed struct {
	Name              string   `json:"name"`
	Description       string   `json:"description"`
	RecentAlertsCount int      `json:"recent_alerts_count"`
	StartTimestamp    UnixTime `json:"start_timestamp"`
	StopTimestamp     UnixTime `json:"stop_timestamp,omitempty"`
}

// Start returns the time the feed started.
func (f *Feed) Start() time.Time { return f.StartTimestamp.Time() }

// End returns the time the feed stops, or the zero time for a permanent feed.
func (f *Feed) End() time.Time { return f.StopTimestamp.Time() }

// FeedIdent implements FeedRef.
func (f *Feed) FeedIdent() string {
	if f == nil {
		return ""
	}
	return f.Name
}

// FeedRow is one row of a feed export. Columns holds every column verbatim
// keyed by header; TS is the parsed "ts" column.
type FeedRow struct {
	TS      time.Time
	Columns map[string]string
}
