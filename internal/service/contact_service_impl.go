package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/kataria/backend/internal/metrics"
	"github.com/kataria/backend/internal/model"
	"github.com/kataria/backend/internal/storage"
	"github.com/kataria/backend/internal/submissionid"
	"github.com/kataria/backend/internal/validation"
	"github.com/kataria/backend/internal/writer"
)

// SubmissionWriter persists a submission through the tier chain.
type SubmissionWriter interface {
	Write(ctx context.Context, s *model.ContactSubmission) writer.Result
	Tiers() []writer.TierInfo
}

// contactServiceImpl is the production implementation of ContactService.
type contactServiceImpl struct {
	validator *validation.Validator
	ids       *submissionid.Generator
	writer    SubmissionWriter
	reader    storage.Lister
	now       func() time.Time
}

// NewContactService creates a ContactService. reader serves List.
func NewContactService(v *validation.Validator, ids *submissionid.Generator, w SubmissionWriter, reader storage.Lister) ContactService {
	return &contactServiceImpl{
		validator: v,
		ids:       ids,
		writer:    w,
		reader:    reader,
		now:       time.Now,
	}
}

func (s *contactServiceImpl) Submit(ctx context.Context, raw model.RawSubmission) (*model.ContactSubmission, error) {
	sub, err := s.validator.Validate(raw)
	if err != nil {
		var verrs model.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				metrics.RecordValidationError(fe.Field)
			}
			slog.InfoContext(ctx, "contact submission rejected", "errors", len(verrs))
		}
		return nil, err
	}

	sub.SubmissionID = s.ids.Generate()
	sub.SubmittedAt = s.now().UTC()

	// The tier chain runs to completion even if the client goes away.
	res := s.writer.Write(context.WithoutCancel(ctx), sub)
	if err := res.Err(); err != nil {
		return nil, err
	}
	return res.Submission, nil
}

// List reads from the configured read backend.
func (s *contactServiceImpl) List(ctx context.Context, opts model.SubmissionListOptions) ([]*model.ContactSubmission, error) {
	if s.reader == nil {
		return []*model.ContactSubmission{}, nil
	}
	return s.reader.List(ctx, opts)
}

func (s *contactServiceImpl) Tiers() []writer.TierInfo {
	return s.writer.Tiers()
}
