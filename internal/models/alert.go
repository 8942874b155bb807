package models

import "time"

// Alert is a match between a record's fingerprints and content observed
// elsewhere.
type Alert struct {
	ID          string         `json:"id"`
	Number      int            `json:"alert_number"`
	Type        string         `json:"type"`
	URL         string         `json:"url"`
	URLMetadata map[string]any `json:"url_metadata"`
	CTime       UnixTime       `json:"ctime"`
	MTime       UnixTime       `json:"mtime"`
	Seen        Flag           `json:"seen"`
	Archived    Flag           `json:"archived"`
	UploadToken string         `json:"upload_token"`
}

// Date returns the time the alert was raised.
func (a *Alert) Date() time.Time { return a.CTime.Time() }

// LastModified returns the last modification time.
func (a *Alert) LastModified() time.Time { return a.MTime.Time() }

// AlertIdent implements AlertRef.
func (a *Alert) AlertIdent() string {
	if a == nil {
		return ""
	}
	return a.ID
}

// AlertState is the seen/archived state returned by an alert edit.
type AlertState struct {
	Seen     bool `json:"seen"`
	Archived bool `json:"archived"`
}
