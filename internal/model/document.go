package model

import "time"

// DocumentStatus is the review status of an uploaded document and of the
// tracked required-document entry for its category.
type DocumentStatus string

const (
	DocumentMissing  DocumentStatus = "missing"
	DocumentUploaded DocumentStatus = "uploaded"
	DocumentAccepted DocumentStatus = "accepted"
	DocumentRejected DocumentStatus = "rejected"
)

// Valid reports whether s is one of the known statuses.
func (s DocumentStatus) Valid() bool {
	switch s {
	case DocumentMissing, DocumentUploaded, DocumentAccepted, DocumentRejected:
		return true
	}
	return false
}

// Document is an uploaded applicant file. The blob itself lives in object
// storage under StoragePath.
type Document struct {
	ID              string         `json:"id"`
	ApplicationID   string         `json:"application_id"`
	DocumentType    string         `json:"document_type"`
	Status          DocumentStatus `json:"status"`
	Filename        string         `json:"filename"`
	StoragePath     string         `json:"storage_path"`
	Size            int64          `json:"size"`
	ContentType     string         `json:"content_type"`
	RejectionReason *string        `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// RequiredDocument is the per-application tracker row for one normalized
// document category.
type RequiredDocument struct {
	ApplicationID string         `json:"application_id"`
	Category      string         `json:"document_category"`
	IsRequired    bool           `json:"is_required"`
	Status        DocumentStatus `json:"status"`
	UpdatedAt     time.Time      `json:"updated_at"`
}
