package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kataria/backend/internal/model"
)

// ContactRepository defines the persistence interface for contact submissions.
type ContactRepository interface {
	Save(ctx context.Context, s *model.ContactSubmission) error
	FindByID(ctx context.Context, submissionID string) (*model.ContactSubmission, error)
	List(ctx context.Context, opts model.SubmissionListOptions) ([]*model.ContactSubmission, error)
}

// PgContactRepository is the PostgreSQL implementation of ContactRepository.
// It also serves as a writer tier under the name "postgres".
type PgContactRepository struct {
	pool *pgxpool.Pool
}

// NewPgContactRepository creates a PgContactRepository backed by the given pool.
// A nil pool yields an unconfigured repository.
func NewPgContactRepository(pool *pgxpool.Pool) *PgContactRepository {
	return &PgContactRepository{pool: pool}
}

// Ensure PgContactRepository implements ContactRepository at compile time.
var _ ContactRepository = (*PgContactRepository)(nil)

func (r *PgContactRepository) Name() string     { return "postgres" }
func (r *PgContactRepository) Configured() bool { return r.pool != nil }

// Ping checks the connection for health reporting.
func (r *PgContactRepository) Ping(ctx context.Context) error {
	if r.pool == nil {
		return errors.New("repository: no database configured")
	}
	return r.pool.Ping(ctx)
}

// Write implements the writer tier contract.
func (r *PgContactRepository) Write(ctx context.Context, s *model.ContactSubmission) error {
	return r.Save(ctx, s)
}

// Save inserts one contact_submissions row. A duplicate submission_id is
// reported as ErrDuplicate rather than silently ignored.
func (r *PgContactRepository) Save(ctx context.Context, s *model.ContactSubmission) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO contact_submissions
		   (submission_id, name, email, phone, message,
		    ip_address, user_agent, referral_source, submitted_at, storage_backend)
		 VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''), $9, $10)`,
		s.SubmissionID, s.Name, s.Email, s.Phone, s.Message,
		s.IPAddress, s.UserAgent, s.ReferralSource, s.SubmittedAt, string(s.StorageBackend),
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrDuplicate, s.SubmissionID)
	}
	return err
}

const selectColumns = `SELECT submission_id, name, email, phone, message,
	COALESCE(ip_address, ''), COALESCE(user_agent, ''), COALESCE(referral_source, ''),
	submitted_at, storage_backend
	FROM contact_submissions`

// FindByID returns one submission or ErrNotFound.
func (r *PgContactRepository) FindByID(ctx context.Context, submissionID string) (*model.ContactSubmission, error) {
	row := r.pool.QueryRow(ctx, selectColumns+` WHERE submission_id = $1`, submissionID)
	s, err := scanSubmission(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return s, err
}

// List returns submissions newest first, paginated by limit/offset.
func (r *PgContactRepository) List(ctx context.Context, opts model.SubmissionListOptions) ([]*model.ContactSubmission, error) {
	rows, err := r.pool.Query(ctx,
		selectColumns+` ORDER BY submitted_at DESC LIMIT $1 OFFSET $2`,
		opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	submissions := []*model.ContactSubmission{}
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		submissions = append(submissions, s)
	}
	return submissions, rows.Err()
}

func scanSubmission(row pgx.Row) (*model.ContactSubmission, error) {
	var s model.ContactSubmission
	var backend string
	if err := row.Scan(&s.SubmissionID, &s.Name, &s.Email, &s.Phone, &s.Message,
		&s.IPAddress, &s.UserAgent, &s.ReferralSource, &s.SubmittedAt, &backend); err != nil {
		return nil, err
	}
	s.StorageBackend = model.StorageBackend(backend)
	return &s, nil
}
