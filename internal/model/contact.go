package model

import (
	"strings"
	"time"
)

// StorageBackend records which tier of the writer chain persisted a submission.
type StorageBackend string

const (
	StoragePrimary       StorageBackend = "primary"
	StorageSecondary     StorageBackend = "secondary"
	StorageLocalFallback StorageBackend = "local-fallback"
)

// ContactSubmission is an accepted contact form submission.
// It is never modified after SubmissionID is assigned; the writer persists copies.
type ContactSubmission struct {
	SubmissionID   string         `json:"submissionId"`
	Name           string         `json:"name"`
	Email          string         `json:"email"`
	Phone          string         `json:"phone"`
	Message        string         `json:"message"`
	IPAddress      string         `json:"ipAddress,omitempty"`
	UserAgent      string         `json:"userAgent,omitempty"`
	ReferralSource string         `json:"referralSource,omitempty"`
	SubmittedAt    time.Time      `json:"submittedAt"`
	StorageBackend StorageBackend `json:"storageBackend,omitempty"`
}

// Clone returns a shallow copy. All fields are values, so the copy is independent.
func (s *ContactSubmission) Clone() *ContactSubmission {
	c := *s
	return &c
}

// RawSubmission is the untyped key-value payload handed to the validator.
// A key that is absent from the map is treated as missing.
type RawSubmission map[string]string

// Get returns the value for key and whether it was present.
func (r RawSubmission) Get(key string) (string, bool) {
	v, ok := r[key]
	return v, ok
}

// SubmissionListOptions carries pagination parameters for listing submissions.
type SubmissionListOptions struct {
	Limit  int
	Offset int
}

// FieldError is a single field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors collects every field that failed validation.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, fe := range v {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Paginate applies limit/offset to an in-memory slice. Limit <= 0 returns
// everything after offset.
func Paginate(all []*ContactSubmission, opts SubmissionListOptions) []*ContactSubmission {
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	if opts.Offset >= len(all) {
		return []*ContactSubmission{}
	}
	end := len(all)
	if opts.Limit > 0 && opts.Offset+opts.Limit < end {
		end = opts.Offset + opts.Limit
	}
	return all[opts.Offset:end]
}

// SheetHeader is the header row shared by the spreadsheet-backed stores.
var SheetHeader = []string{
	"Submission ID",
	"Timestamp",
	"Name",
	"Email",
	"Phone",
	"Message",
	"IP Address",
	"User Agent",
	"Referral Source",
	"Storage Backend",
}

// Row lays the submission out in SheetHeader column order.
func (s *ContactSubmission) Row() []interface{} {
	return []interface{}{
		s.SubmissionID,
		s.SubmittedAt.UTC().Format(time.RFC3339Nano),
		s.Name,
		s.Email,
		s.Phone,
		s.Message,
		s.IPAddress,
		s.UserAgent,
		s.ReferralSource,
		string(s.StorageBackend),
	}
}

// SubmissionFromRow is the inverse of Row. Missing trailing cells are empty.
func SubmissionFromRow(row []string) *ContactSubmission {
	col := func(i int) string {
		if i < len(row) {
			return row[i]
		}
		return ""
	}
	submittedAt, _ := time.Parse(time.RFC3339Nano, col(1))
	return &ContactSubmission{
		SubmissionID:   col(0),
		SubmittedAt:    submittedAt,
		Name:           col(2),
		Email:          col(3),
		Phone:          col(4),
		Message:        col(5),
		IPAddress:      col(6),
		UserAgent:      col(7),
		ReferralSource: col(8),
		StorageBackend: StorageBackend(col(9)),
	}
}
