package writer

import (
	"context"

	"github.com/kataria/backend/internal/model"
)

// unconfigured stands in for a backend whose credentials are missing.
type unconfigured struct {
	name   string
	reason string
}

// Unconfigured returns a Backend that is always skipped. reason is kept for
// health output and startup logs.
func Unconfigured(name, reason string) Backend {
	return &unconfigured{name: name, reason: reason}
}

func (u *unconfigured) Name() string     { return u.name }
func (u *unconfigured) Configured() bool { return false }
func (u *unconfigured) Reason() string   { return u.reason }

func (u *unconfigured) Write(context.Context, *model.ContactSubmission) error {
	return ErrNotConfigured
}
