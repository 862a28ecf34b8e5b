// Package storage holds the file- and object-based submission stores: the
// append-only fallback log, the local workbook and the object bucket.
package storage

import (
	"context"

	"github.com/kataria/backend/internal/model"
)

// Lister is implemented by stores that can read back what they persisted.
type Lister interface {
	List(ctx context.Context, opts model.SubmissionListOptions) ([]*model.ContactSubmission, error)
}
