package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/klauspost/compress/gzip"

	"github.com/Energinet-DataHub/geh-message-archive/core"
	"github.com/Energinet-DataHub/geh-message-archive/storage"
)

// Config holds the S3 archive store settings.
type Config struct {
	Region        string
	SourceBucket  string // container the upstream logger deposits blobs into
	ArchiveBucket string // container blobs are relocated into after parsing
	Retries       int    // app-level retries per S3 call; SDK retry is disabled
	Timeout       time.Duration
}

// ArchiveStore implements storage.ArchiveStore over AWS S3.
//
// Retry policy is single-sourced: the SDK retryer is disabled and every
// call goes through the app-level retry loop with its own per-attempt
// timeout, so the worst-case latency of an operation is predictable.
type ArchiveStore struct {
	client *s3.Client
	cfg    Config
	logger *slog.Logger
}

var _ storage.ArchiveStore = (*ArchiveStore)(nil)

// Option configures an ArchiveStore.
type Option func(*ArchiveStore)

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *ArchiveStore) {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
	}
}

// New creates an S3-backed archive store.
func New(ctx context.Context, cfg Config, opts ...Option) (storage.ArchiveStore, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.RetryMaxAttempts = 0
	})

	if cfg.Retries < 1 {
		cfg.Retries = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	store := &ArchiveStore{
		client: client,
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(store)
	}
	return store, nil
}

// List enumerates up to pageSize blobs from the source container. The
// returned records carry name, size, creation time and location; their
// content and metadata are filled by Download.
func (s *ArchiveStore) List(ctx context.Context, pageSize int) ([]*core.RawRecord, error) {
	var out *s3.ListObjectsV2Output
	err := s.withRetry(ctx, "list", func(ctx context.Context) error {
		var err error
		out, err = s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:  aws.String(s.cfg.SourceBucket),
			MaxKeys: aws.Int32(int32(pageSize)),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	records := make([]*core.RawRecord, 0, len(out.Contents))
	for _, obj := range out.Contents {
		rec := &core.RawRecord{
			Name: aws.ToString(obj.Key),
			URI:  s.blobURI(s.cfg.SourceBucket, aws.ToString(obj.Key)),
		}
		if obj.Size != nil {
			rec.ContentLength = *obj.Size
		}
		if obj.LastModified != nil {
			rec.CreatedAt = obj.LastModified.UTC()
		}
		records = append(records, rec)
	}
	return records, nil
}

// Download fills the record's content, metadata and tags from the
// source container. A blob deleted between listing and download yields
// empty content, not an error.
func (s *ArchiveStore) Download(ctx context.Context, record *core.RawRecord) error {
	err := s.withRetry(ctx, "download", func(ctx context.Context) error {
		out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.cfg.SourceBucket),
			Key:    aws.String(record.Name),
		})
		if err != nil {
			return err
		}
		defer out.Body.Close()

		body := io.Reader(out.Body)
		if isGzipEncoded(aws.ToString(out.ContentEncoding)) {
			gz, err := gzip.NewReader(out.Body)
			if err != nil {
				return err
			}
			defer gz.Close()
			body = gz
		}

		content, err := io.ReadAll(body)
		if err != nil {
			return err
		}

		record.Content = content
		record.ContentLength = int64(len(content))
		record.Metadata = lowercaseKeys(out.Metadata)
		return nil
	})
	if err != nil {
		if isNotFound(err) {
			record.Content = nil
			record.ContentLength = 0
			return nil
		}
		return err
	}

	return s.withRetry(ctx, "tagging", func(ctx context.Context) error {
		out, err := s.client.GetObjectTagging(ctx, &s3.GetObjectTaggingInput{
			Bucket: aws.String(s.cfg.SourceBucket),
			Key:    aws.String(record.Name),
		})
		if err != nil {
			if isNotFound(err) {
				return nil
			}
			return err
		}
		if len(out.TagSet) > 0 {
			record.Tags = make(map[string]string, len(out.TagSet))
			for _, tag := range out.TagSet {
				record.Tags[aws.ToString(tag.Key)] = aws.ToString(tag.Value)
			}
		}
		return nil
	})
}

// Archive relocates the record's source blob into the archive
// container: copy with metadata and tags preserved, verify the copy
// landed, then delete the original. Copy-then-delete is not atomic; a
// crash in between leaves the blob in both places, which is safe for
// at-least-once reprocessing.
func (s *ArchiveStore) Archive(ctx context.Context, record *core.RawRecord) (string, error) {
	copySource := url.PathEscape(s.cfg.SourceBucket + "/" + record.Name)

	err := s.withRetry(ctx, "copy", func(ctx context.Context) error {
		_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
			Bucket:            aws.String(s.cfg.ArchiveBucket),
			Key:               aws.String(record.Name),
			CopySource:        aws.String(copySource),
			MetadataDirective: types.MetadataDirectiveCopy,
			TaggingDirective:  types.TaggingDirectiveCopy,
		})
		return err
	})
	if err != nil {
		return "", fmt.Errorf("%w: copy %s: %v", storage.ErrArchiveFailed, record.Name, err)
	}

	// The copy call is synchronous, but the delete must never run on an
	// unconfirmed copy: verify the destination exists first.
	err = s.withRetry(ctx, "verify", func(ctx context.Context) error {
		_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(s.cfg.ArchiveBucket),
			Key:    aws.String(record.Name),
		})
		return err
	})
	if err != nil {
		return "", fmt.Errorf("%w: verify %s: %v", storage.ErrArchiveFailed, record.Name, err)
	}

	err = s.withRetry(ctx, "delete", func(ctx context.Context) error {
		_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.cfg.SourceBucket),
			Key:    aws.String(record.Name),
		})
		return err
	})
	if err != nil {
		// The blob now exists in both containers; the next run will
		// reprocess it. Surface the failure rather than hide it.
		return "", fmt.Errorf("%w: delete source %s: %v", storage.ErrArchiveFailed, record.Name, err)
	}

	return s.blobURI(s.cfg.ArchiveBucket, record.Name), nil
}

// ReadByName streams an archived blob's content, transparently decoding
// gzip content encoding. Absent blobs return (nil, nil).
func (s *ArchiveStore) ReadByName(ctx context.Context, name string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.ArchiveBucket),
		Key:    aws.String(name),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	if isGzipEncoded(aws.ToString(out.ContentEncoding)) {
		gz, err := gzip.NewReader(out.Body)
		if err != nil {
			out.Body.Close()
			return nil, err
		}
		return &gzipReadCloser{gz: gz, body: out.Body}, nil
	}
	return out.Body, nil
}

// withRetry runs one S3 call with app-level retry, exponential backoff
// capped at 2s and a per-attempt timeout. Not-found errors are never
// retried.
func (s *ArchiveStore) withRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var lastErr error
	backoff := 200 * time.Millisecond

	for attempt := 1; attempt <= s.cfg.Retries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		attemptCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
		err := fn(attemptCtx)
		cancel()
		if err == nil {
			return nil
		}
		if isNotFound(err) {
			return err
		}
		lastErr = err
		s.logger.Warn("s3 call failed, retrying", "op", op, "attempt", attempt, "err", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
			backoff *= 2
			if backoff > 2*time.Second {
				backoff = 2 * time.Second
			}
		}
	}
	return lastErr
}

func (s *ArchiveStore) blobURI(bucket, key string) string {
	return "s3://" + bucket + "/" + key
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	return errors.As(err, &notFound)
}

func isGzipEncoded(contentEncoding string) bool {
	return strings.Contains(strings.ToLower(contentEncoding), "gzip")
}

// lowercaseKeys normalizes user metadata keys; S3 stores them
// case-insensitively but the SDK reports whatever case the writer used.
func lowercaseKeys(metadata map[string]string) map[string]string {
	if len(metadata) == 0 {
		return nil
	}
	out := make(map[string]string, len(metadata))
	for k, v := range metadata {
		out[strings.ToLower(k)] = v
	}
	return out
}

// gzipReadCloser closes both the gzip reader and the underlying body.
type gzipReadCloser struct {
	gz   *gzip.Reader
	body io.ReadCloser
}

func (g *gzipReadCloser) Read(p []byte) (int, error) {
	return g.gz.Read(p)
}

func (g *gzipReadCloser) Close() error {
	gzErr := g.gz.Close()
	if err := g.body.Close(); err != nil {
		return err
	}
	return gzErr
}
