package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/kataria/backend/internal/model"
)

// ObjectStore writes each submission as its own JSON object in an
// S3-compatible bucket.
type ObjectStore struct {
	mc       *minio.Client
	bucket   string
	basePath string
}

// NewObjectStore connects to an S3-compatible endpoint. No request is made
// until EnsureBucket or Write.
func NewObjectStore(endpoint, access, secret string, useTLS bool, bucket, basePath string) (*ObjectStore, error) {
	mc, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: minio client: %w", err)
	}
	if basePath == "" {
		basePath = "contact-submissions"
	}
	return &ObjectStore{mc: mc, bucket: bucket, basePath: basePath}, nil
}

func (o *ObjectStore) Name() string     { return "minio" }
func (o *ObjectStore) Configured() bool { return o.mc != nil && o.bucket != "" }

// EnsureBucket creates the bucket if it does not exist.
func (o *ObjectStore) EnsureBucket(ctx context.Context) error {
	exists, err := o.mc.BucketExists(ctx, o.bucket)
	if err != nil {
		return err
	}
	if !exists {
		return o.mc.MakeBucket(ctx, o.bucket, minio.MakeBucketOptions{})
	}
	return nil
}

func (o *ObjectStore) Write(ctx context.Context, s *model.ContactSubmission) error {
	body, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("storage: encode submission: %w", err)
	}
	_, err = o.mc.PutObject(ctx, o.bucket, ObjectKey(o.basePath, s), bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("storage: put object: %w", err)
	}
	return nil
}

// ObjectKey partitions objects by submission date, e.g.
// contact-submissions/year=2026/month=01/day=02/CONTACT_..._abc.json.
func ObjectKey(basePath string, s *model.ContactSubmission) string {
	t := s.SubmittedAt
	if t.IsZero() {
		t = time.Now()
	}
	t = t.UTC()
	return fmt.Sprintf("%s/year=%04d/month=%02d/day=%02d/%s.json",
		basePath, t.Year(), t.Month(), t.Day(), s.SubmissionID)
}
