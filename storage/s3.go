package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/ruteri/package-registry/interfaces"
)

// S3Backend persists the account snapshot as a single object in Amazon S3
// or a compatible service. PutObject replaces the object atomically.
type S3Backend struct {
	client      *s3.S3
	bucketName  string
	prefix      string
	snapshots   *snapshotStore
	log         *slog.Logger
	locationURI string
}

// NewS3Backend creates a new S3 account backend. Without static credentials
// the default AWS credential chain is used.
func NewS3Backend(bucketName, prefix, region, endpoint, accessKey, secretKey string, log *slog.Logger) (*S3Backend, error) {
	uri := fmt.Sprintf("s3://%s/%s?region=%s", bucketName, prefix, region)
	if accessKey != "" {
		uri = fmt.Sprintf("s3://%s:***@%s/%s?region=%s", accessKey, bucketName, prefix, region)
	}
	if endpoint != "" {
		uri += fmt.Sprintf("&endpoint=%s", endpoint)
	}

	cfg := aws.Config{
		Region: aws.String(region),
	}
	if endpoint != "" {
		cfg.Endpoint = aws.String(endpoint)
		cfg.S3ForcePathStyle = aws.Bool(true)
	}
	if accessKey != "" && secretKey != "" {
		cfg.Credentials = credentials.NewStaticCredentials(accessKey, secretKey, "")
	}

	sess, err := session.NewSession(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	b := &S3Backend{
		client:      s3.New(sess),
		bucketName:  bucketName,
		prefix:      strings.Trim(prefix, "/"),
		log:         log,
		locationURI: uri,
	}
	b.snapshots = &snapshotStore{get: b.getSnapshot, put: b.putSnapshot}
	return b, nil
}

func (b *S3Backend) Load(ctx context.Context) (map[interfaces.Address]interfaces.Account, error) {
	return b.snapshots.load(ctx)
}

func (b *S3Backend) Commit(ctx context.Context, writes []interfaces.AccountWrite) error {
	return b.snapshots.commit(ctx, writes)
}

func (b *S3Backend) getSnapshot(ctx context.Context) ([]byte, bool, error) {
	start := time.Now()
	key := b.objectKey()

	result, err := b.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && aerr.Code() == s3.ErrCodeNoSuchKey {
			b.log.Debug("No account snapshot in S3, starting empty",
				slog.String("bucket", b.bucketName),
				slog.String("key", key))
			return nil, false, nil
		}

		b.log.Error("Failed to get account snapshot from S3",
			slog.String("bucket", b.bucketName),
			slog.String("key", key),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return nil, false, fmt.Errorf("%w: failed to get object from S3: %w", interfaces.ErrBackendUnavailable, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, false, fmt.Errorf("%w: failed to read object body: %w", interfaces.ErrBackendUnavailable, err)
	}

	b.log.Debug("Fetched account snapshot from S3",
		slog.String("bucket", b.bucketName),
		slog.String("key", key),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))
	return data, true, nil
}

func (b *S3Backend) putSnapshot(ctx context.Context, data []byte) error {
	key := b.objectKey()

	_, err := b.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("%w: failed to upload object to S3: %w", interfaces.ErrBackendUnavailable, err)
	}

	b.log.Debug("Stored account snapshot in S3",
		slog.String("bucket", b.bucketName),
		slog.String("key", key),
		slog.Int("size", len(data)))
	return nil
}

// Available checks if the S3 backend is accessible by attempting to head the bucket.
func (b *S3Backend) Available(ctx context.Context) bool {
	start := time.Now()

	_, err := b.client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(b.bucketName),
	})
	if err != nil {
		b.log.Warn("S3 backend unavailable",
			slog.String("bucket", b.bucketName),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return false
	}
	return true
}

// Name returns a unique identifier for this storage backend.
func (b *S3Backend) Name() string {
	return fmt.Sprintf("s3-%s", b.bucketName)
}

// LocationURI returns the URI that identifies this storage backend.
func (b *S3Backend) LocationURI() string {
	return b.locationURI
}

func (b *S3Backend) objectKey() string {
	if b.prefix == "" {
		return accountsFileName
	}
	return path.Join(b.prefix, accountsFileName)
}
