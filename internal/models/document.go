package models

import "time"

// DocumentType identifies one of the uploads required to complete enrollment.
type DocumentType string

// The three document types every student must upload.
const (
	DocumentEnrollmentForm      DocumentType = "upisniObrazac"
	DocumentPaymentSlip         DocumentType = "uplatnica"
	DocumentPaymentConfirmation DocumentType = "potvrdaUplatnice"
)

// RequiredDocumentTypes lists the types gating the document-submission step.
func RequiredDocumentTypes() []DocumentType {
	return []DocumentType{DocumentEnrollmentForm, DocumentPaymentSlip, DocumentPaymentConfirmation}
}

// ValidDocumentType reports whether t is one of the supported upload types.
func ValidDocumentType(t DocumentType) bool {
	switch t {
	case DocumentEnrollmentForm, DocumentPaymentSlip, DocumentPaymentConfirmation:
		return true
	}
	return false
}

// StudentDocument is one uploaded enrollment document. Only the latest upload
// per type is eligible for acceptance.
type StudentDocument struct {
	ID         string       `db:"id" json:"id"`
	StudentID  string       `db:"student_id" json:"student_id"`
	Type       DocumentType `db:"type" json:"type"`
	Filename   string       `db:"filename" json:"filename"`
	Path       string       `db:"path" json:"-"`
	Mime       string       `db:"mime" json:"mime"`
	Size       int64        `db:"size" json:"size"`
	Accepted   bool         `db:"accepted" json:"accepted"`
	UploadedAt time.Time    `db:"uploaded_at" json:"uploaded_at"`
}
