package models

import "time"

// Project types accepted by the API.
const (
	ProjectTypeDocument   = "document"
	ProjectTypeSourceCode = "source_code"
	ProjectTypePII        = "pii"
	ProjectTypeBulkPII    = "bulk_pii"
)

// Project is a fingerprint monitoring project. Records and their alerts are
// grouped under its upload token.
type Project struct {
	Name                 string   `json:"name"`
	Type                 string   `json:"project_type"`
	UploadToken          string   `json:"upload_token"`
	LastDateModified     UnixTime `json:"last_date_modified"`
	NumberOfRecords      int      `json:"number_of_records"`
	NumberOfUnseenAlerts int      `json:"number_of_unseen_alerts"`
}

// LastModified returns the last modification time.
func (p *Project) LastModified() time.Time {
	return p.LastDateModified.Time()
}

// ProjectToken implements ProjectRef.
func (p *Project) ProjectToken() string {
	if p == nil {
		return ""
	}
	return p.UploadToken
}
