package models

// Operations that act on an existing resource accept either the resource
// itself or its raw identifier. Each Ref interface is implemented by the
// resource pointer and by a named string type for the raw form. A nil
// resource pointer reports an empty identifier.

// ProjectRef is a *Project or an UploadToken.
type ProjectRef interface {
	ProjectToken() string
}

// UploadToken is a raw project identifier.
type UploadToken string

// ProjectToken implements ProjectRef.
func (t UploadToken) ProjectToken() string { return string(t) }

// RecordRef is a *Record or a RecordID.
type RecordRef interface {
	RecordIdent() string
}

// RecordID is a raw record identifier.
type RecordID string

// RecordIdent implements RecordRef.
func (id RecordID) RecordIdent() string { return string(id) }

// AlertRef is an *Alert or an AlertID.
type AlertRef interface {
	AlertIdent() string
}

// AlertID is a raw alert identifier.
type AlertID string

// AlertIdent implements AlertRef.
func (id AlertID) AlertIdent() string { return string(id) }

// FeedRef is a *Feed or a FeedName.
type FeedRef interface {
	FeedIdent() string
}

// FeedName is a raw feed identifier.
type FeedName string

// FeedIdent implements FeedRef.
func (n FeedName) FeedIdent() string { return string(n) }
