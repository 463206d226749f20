// Package archive stores raw remote payloads that failed to decode so they
// can be inspected after the fact.
package archive

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/dvloznov/ledger-sync/internal/logger"
	"github.com/dvloznov/ledger-sync/internal/remote"
	"github.com/google/uuid"
)

const uriScheme = "gs://"

// objectStore is the subset of bucket operations the archiver needs.
type objectStore interface {
	NewWriter(ctx context.Context, object string) io.WriteCloser
	NewReader(ctx context.Context, bucket, object string) (io.ReadCloser, error)
}

type gcsBucket struct {
	client *storage.Client
	bucket string
}

func (b *gcsBucket) NewWriter(ctx context.Context, object string) io.WriteCloser {
	w := b.client.Bucket(b.bucket).Object(object).NewWriter(ctx)
	w.ContentType = "application/json"
	return w
}

func (b *gcsBucket) NewReader(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
	return b.client.Bucket(bucket).Object(object).NewReader(ctx)
}

// GCSArchiver writes payloads to a bucket under payloads/yyyy/mm/dd/.
// It implements remote.PayloadArchiver.
type GCSArchiver struct {
	bucket string
	store  objectStore
	client *storage.Client
	now    func() time.Time
}

// NewGCSArchiver creates an archiver for bucket.
// It assumes Application Default Credentials are configured.
func NewGCSArchiver(ctx context.Context, bucket string) (*GCSArchiver, error) {
	if bucket == "" {
		return nil, fmt.Errorf("NewGCSArchiver: bucket is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewGCSArchiver: creating storage client: %w", err)
	}
	return &GCSArchiver{
		bucket: bucket,
		store:  &gcsBucket{client: client, bucket: bucket},
		client: client,
		now:    time.Now,
	}, nil
}

// ObjectName returns the object path used for a payload archived at t.
func ObjectName(t time.Time, id string) string {
	return path.Join("payloads", t.UTC().Format("2006/01/02"), id+".json")
}

// ArchivePayload uploads body and returns its gs:// URI.
func (a *GCSArchiver) ArchivePayload(ctx context.Context, op string, body []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	object := ObjectName(a.now(), uuid.New().String())
	w := a.store.NewWriter(ctx, object)
	if _, err := w.Write(body); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("ArchivePayload: writing %s: %w", object, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("ArchivePayload: finalize upload: %w", err)
	}

	uri := uriScheme + a.bucket + "/" + object
	log := logger.FromContext(ctx)
	log.Info().
		Str("op", op).
		Str("uri", uri).
		Int("bytes", len(body)).
		Msg("Archived malformed payload")
	return uri, nil
}

// Fetch downloads an archived payload by its gs:// URI.
func (a *GCSArchiver) Fetch(ctx context.Context, uri string) ([]byte, error) {
	bucket, object, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}

	rc, err := a.store.NewReader(ctx, bucket, object)
	if err != nil {
		return nil, fmt.Errorf("Fetch: reading object %s/%s: %w", bucket, object, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("Fetch: reading bytes: %w", err)
	}
	return data, nil
}

// Close releases the storage client.
func (a *GCSArchiver) Close() error {
	if a.client != nil {
		return a.client.Close()
	}
	return nil
}

// ParseURI splits gs://bucket/object into its parts.
func ParseURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, uriScheme) {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, uriScheme), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}

var _ remote.PayloadArchiver = (*GCSArchiver)(nil)
