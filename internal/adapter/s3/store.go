// Package s3 serves model bundles from an S3-compatible object store.
//
// Objects live under <prefix>/<location name>/ where the location name uses
// spaces instead of underscores ("new_delhi" → "models/new delhi/"), matching
// how bundles have always been uploaded.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"golang.org/x/time/rate"

	"github.com/couchcryptid/climate-forecast-service/internal/artifact"
	"github.com/couchcryptid/climate-forecast-service/internal/domain"
)

// ObjectGetter is the subset of the S3 client the store needs.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *awss3.GetObjectInput, optFns ...func(*awss3.Options)) (*awss3.GetObjectOutput, error)
}

// Store is the remote bundle tier.
type Store struct {
	client  ObjectGetter
	bucket  string
	prefix  string
	timeout time.Duration
	limiter *rate.Limiter
	logger  *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithTimeout bounds a whole bundle load so a slow store fails over quickly.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) { s.timeout = d }
}

// WithRateLimit caps GetObject calls per second across all loads.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(s *Store) { s.limiter = rate.NewLimiter(rate.Limit(perSecond), burst) }
}

// NewStore creates a remote tier reading from bucket under prefix.
func NewStore(client ObjectGetter, bucket, prefix string, logger *slog.Logger, opts ...Option) *Store {
	s := &Store{
		client:  client,
		bucket:  bucket,
		prefix:  strings.Trim(prefix, "/"),
		timeout: 5 * time.Second,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewClient builds an S3 client from the default AWS credential chain.
// A non-empty endpoint switches to path-style addressing for S3-compatible stores.
func NewClient(ctx context.Context, region, endpoint string) (*awss3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return awss3.NewFromConfig(cfg, func(o *awss3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// Name identifies the tier in logs and metrics.
func (s *Store) Name() string { return "remote" }

// Load fetches the bundle for location within the store timeout.
func (s *Store) Load(ctx context.Context, location string) (*domain.ModelBundle, error) {
	id := domain.NormalizeLocation(location)
	if !domain.ValidLocationID(id) {
		return nil, fmt.Errorf("%w: invalid location %q", domain.ErrBundleNotFound, location)
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	remoteName := strings.ReplaceAll(id, "_", " ")
	src := &objectSource{store: s, dir: path.Join(s.prefix, remoteName)}
	return artifact.LoadBundle(ctx, src, id, artifact.MetadataName(remoteName), s.logger)
}

// Key returns the object key for an artefact of location.
func (s *Store) Key(location, name string) string {
	remoteName := strings.ReplaceAll(domain.NormalizeLocation(location), "_", " ")
	return path.Join(s.prefix, remoteName, name)
}

func (s *Store) fetch(ctx context.Context, key string) ([]byte, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	out, err := s.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%s: %w", key, artifact.ErrNotFound)
		}
		return nil, fmt.Errorf("get s3://%s/%s: %w", s.bucket, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read s3://%s/%s: %w", s.bucket, key, err)
	}
	return data, nil
}

func isNotFound(err error) bool {
	var noKey *types.NoSuchKey
	if errors.As(err, &noKey) {
		return true
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

// objectSource resolves artefact names against one location's key prefix.
type objectSource struct {
	store *Store
	dir   string
}

func (o *objectSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	return o.store.fetch(ctx, path.Join(o.dir, name))
}
