package models

import "time"

// Record is one fingerprinted document, source file or PII entry.
type Record struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	CTime       UnixTime       `json:"ctime"`
	MTime       UnixTime       `json:"mtime"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Created returns the creation time.
func (r *Record) Created() time.Time { return r.CTime.Time() }

// Modified returns the last modification time.
func (r *Record) Modified() time.Time { return r.MTime.Time() }

// UserRecordID returns the caller supplied record id from the metadata, if any.
func (r *Record) UserRecordID() string {
	id, _ := r.Metadata["user_record_id"].(string)
	return id
}

// RecordIdent implements RecordRef.
func (r *Record) RecordIdent() string {
	if r == nil {
		return ""
	}
	return r.ID
}

// PIIRecord holds the plain PII values of one record upload. Empty fields
// are left out of the upload. UserRecordID defaults to "-".
type PIIRecord struct {
	Description  string
	UserRecordID string

	FirstName  string
	MiddleName string
	LastName   string
	Email      string
	SSN        string
	Address    string
	City       string
	State      string
	Zipcode    string
	Phone      string
}
