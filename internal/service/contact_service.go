package service

import (
	"context"

	"github.com/kataria/backend/internal/model"
	"github.com/kataria/backend/internal/writer"
)

// ContactService defines the business logic for contact form submissions.
type ContactService interface {
	// Submit validates raw, assigns an identifier and submittedAt, and stores
	// the submission through the tier chain. It returns the persisted copy.
	// A validation failure returns model.ValidationErrors; a storage failure
	// returns an error wrapping writer.ErrAllTiersFailed.
	Submit(ctx context.Context, raw model.RawSubmission) (*model.ContactSubmission, error)

	// List returns stored submissions, newest first.
	List(ctx context.Context, opts model.SubmissionListOptions) ([]*model.ContactSubmission, error)

	// Tiers describes the storage chain for health output.
	Tiers() []writer.TierInfo
}
