package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"lectern/internal/domain"
	resourceRepo "lectern/internal/domain/repositories/resource"
)

// maxDeleteBatch is the DeleteObjects per-request key limit
const maxDeleteBatch = 1000

// Config holds the object storage connection settings
type Config struct {
	Bucket          string
	Endpoint        string // Empty for AWS; Supabase Storage, R2 and MinIO need it
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	PublicURL       string // Base URL in front of "<bucket>/<key>"
}

// objectAPI is the subset of the S3 client the blob store uses
type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
	s3.ListObjectsV2APIClient
}

// BlobStore implements resource.BlobStore over any S3-compatible service
type BlobStore struct {
	client     objectAPI
	bucket     string
	publicBase string
	logger     *slog.Logger
}

// NewBlobStore creates an S3 client from cfg
func NewBlobStore(ctx context.Context, cfg Config, logger *slog.Logger) (*BlobStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newBlobStore(client, cfg, logger), nil
}

func newBlobStore(client objectAPI, cfg Config, logger *slog.Logger) *BlobStore {
	base := cfg.PublicURL
	if base == "" {
		base = cfg.Endpoint
	}
	return &BlobStore{
		client:     client,
		bucket:     cfg.Bucket,
		publicBase: strings.TrimRight(base, "/") + "/" + url.PathEscape(cfg.Bucket),
		logger:     logger,
	}
}

var _ resourceRepo.BlobStore = (*BlobStore)(nil)

// Put uploads one object. Without Overwrite the write is conditional
// (If-None-Match: *), so an existing key fails with a ConflictError.
func (s *BlobStore) Put(ctx context.Context, key string, body io.Reader, opts resourceRepo.PutOptions) error {
	seekable, cleanup, err := seekableBody(body)
	if err != nil {
		return fmt.Errorf("buffer object %s: %w", key, err)
	}
	defer cleanup()

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   seekable,
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}
	if opts.Size >= 0 {
		input.ContentLength = aws.Int64(opts.Size)
	}
	if !opts.Overwrite {
		input.IfNoneMatch = aws.String("*")
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return translateError("put object", key, err)
	}
	return nil
}

// seekableBody spills non-seekable readers to a temporary file; the SDK
// signs payloads and needs to rewind on retry.
func seekableBody(body io.Reader) (io.ReadSeeker, func(), error) {
	if rs, ok := body.(io.ReadSeeker); ok {
		return rs, func() {}, nil
	}

	f, err := os.CreateTemp("", "lectern-upload-*")
	if err != nil {
		return nil, func() {}, err
	}
	cleanup := func() {
		f.Close()
		os.Remove(f.Name())
	}
	if _, err := io.Copy(f, body); err != nil {
		cleanup()
		return nil, func() {}, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		cleanup()
		return nil, func() {}, err
	}
	return f, cleanup, nil
}

// PublicURL returns the unauthenticated URL of an object
func (s *BlobStore) PublicURL(key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.publicBase + "/" + strings.Join(segments, "/")
}

// Remove deletes objects in batches; missing keys are not an error
func (s *BlobStore) Remove(ctx context.Context, keys ...string) error {
	var failed []string
	for start := 0; start < len(keys); start += maxDeleteBatch {
		end := min(start+maxDeleteBatch, len(keys))

		objects := make([]types.ObjectIdentifier, 0, end-start)
		for _, key := range keys[start:end] {
			objects = append(objects, types.ObjectIdentifier{Key: aws.String(key)})
		}

		out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{Objects: objects, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return translateError("delete objects", keys[start], err)
		}
		for _, e := range out.Errors {
			if aws.ToString(e.Code) == "NoSuchKey" {
				continue
			}
			failed = append(failed, aws.ToString(e.Key))
			s.logger.Warn("object delete failed",
				"key", aws.ToString(e.Key),
				"code", aws.ToString(e.Code),
				"message", aws.ToString(e.Message),
			)
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("failed to delete %d objects (first: %s)", len(failed), failed[0])
	}
	return nil
}

// List returns every object under prefix
func (s *BlobStore) List(ctx context.Context, prefix string) ([]resourceRepo.BlobEntry, error) {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(prefix),
		MaxKeys: aws.Int32(1000),
	})

	entries := make([]resourceRepo.BlobEntry, 0)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, translateError("list objects", prefix, err)
		}
		for _, obj := range page.Contents {
			entries = append(entries, resourceRepo.BlobEntry{
				Key:  aws.ToString(obj.Key),
				Size: aws.ToInt64(obj.Size),
			})
		}
	}
	return entries, nil
}

// translateError maps S3 failures onto the domain taxonomy
func translateError(op, key string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "PreconditionFailed", "ConditionalRequestConflict":
			return &domain.ConflictError{
				Message:      fmt.Sprintf("object already exists: %s", key),
				ResourceType: "object",
				ResourceID:   key,
			}
		case "NoSuchKey", "NotFound":
			return &domain.NotFoundError{Message: fmt.Sprintf("object not found: %s", key)}
		case "SlowDown", "RequestTimeout", "ServiceUnavailable", "InternalError", "RequestTimeTooSkewed":
			return &domain.TransientError{Op: op, Err: err}
		}
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		status := respErr.HTTPStatusCode()
		if status >= http.StatusInternalServerError || status == http.StatusTooManyRequests {
			return &domain.TransientError{Op: op, Err: err}
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return &domain.TransientError{Op: op, Err: err}
	}

	return fmt.Errorf("%s %s: %w", op, key, err)
}
