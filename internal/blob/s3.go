package blob

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/capsulehq/keepsake/internal/kserror"
	"github.com/gofrs/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DefaultSignTTL bounds the validity of an upload grant.
const DefaultSignTTL = 15 * time.Minute

type (
	// An S3Config holds the settings of the S3 store.
	S3Config struct {
		Bucket string
		Region string
		// Endpoint overrides the AWS endpoint (local stacks like MinIO/LocalStack).
		Endpoint string
		// PublicURL is the base under which uploaded objects are publicly
		// reachable. Derived from bucket/region/endpoint when empty.
		PublicURL string
		SignTTL   time.Duration
	}

	s3store struct {
		client  *s3.Client
		presign *s3.PresignClient
		bucket  string
		public  string
		ttl     time.Duration
	}
)

// NewS3Store returns a Store backed by S3 (or any S3-compatible endpoint).
// A missing bucket is not fatal here; it surfaces as a configuration error on
// the operations that need it, so the rest of the API keeps working.
func NewS3Store(ctx context.Context, cfg S3Config) (Store, error) {
	acfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, errors.Wrap(err, "could not load AWS configuration")
	}

	client := s3.NewFromConfig(acfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	if cfg.SignTTL <= 0 {
		cfg.SignTTL = DefaultSignTTL
	}

	return &s3store{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  cfg.Bucket,
		public:  publicBase(cfg),
		ttl:     cfg.SignTTL,
	}, nil
}

// SignUpload derives a fresh object key and returns a presigned PUT grant.
func (s *s3store) SignUpload(ctx context.Context, filename, contentType string) (*Grant, error) {
	if s.bucket == "" {
		return nil, kserror.Configuration("Blob storage bucket is not configured.")
	}

	key := uuid.Must(uuid.NewV4()).String() + normalizeExt(filename)

	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return nil, errors.Wrap(err, "could not presign upload")
	}

	return &Grant{
		UploadURL: req.URL,
		Location:  s.public + "/" + key,
		ExpiresAt: time.Now().UTC().Add(s.ttl),
	}, nil
}

// DeleteObjects removes the given locations in a single batch call.
func (s *s3store) DeleteObjects(ctx context.Context, locations []string) map[string]error {
	failed := map[string]error{}
	if len(locations) == 0 {
		return failed
	}

	if s.bucket == "" {
		err := kserror.Configuration("Blob storage bucket is not configured.")
		for _, location := range locations {
			failed[location] = err
		}
		return failed
	}

	bylocation := map[string]string{} // object key -> location
	identifiers := make([]types.ObjectIdentifier, 0, len(locations))
	for _, location := range locations {
		key, ok := s.keyFromLocation(location)
		if !ok {
			logrus.Warnf("blob: skipping malformed location %q", location)
			continue
		}
		bylocation[key] = location
		identifiers = append(identifiers, types.ObjectIdentifier{Key: aws.String(key)})
	}
	if len(identifiers) == 0 {
		return failed
	}

	out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(s.bucket),
		Delete: &types.Delete{
			Objects: identifiers,
			Quiet:   aws.Bool(true),
		},
	})
	if err != nil {
		err = errors.Wrap(err, "could not batch delete objects")
		for _, location := range bylocation {
			failed[location] = err
		}
		return failed
	}

	for _, oerr := range out.Errors {
		location := bylocation[aws.ToString(oerr.Key)]
		failed[location] = errors.Errorf("could not delete object %s: %s (%s)",
			aws.ToString(oerr.Key), aws.ToString(oerr.Message), aws.ToString(oerr.Code))
	}
	return failed
}

// keyFromLocation resolves a public location back to its object key.
func (s *s3store) keyFromLocation(location string) (string, bool) {
	key, found := strings.CutPrefix(location, s.public+"/")
	if !found || key == "" || strings.Contains(key, "/") {
		return "", false
	}
	return key, true
}

// normalizeExt keeps a lowercased, shell-safe extension from the filename.
// Anything exotic is dropped rather than propagated into the object key.
func normalizeExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) < 2 || len(ext) > 9 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}

func publicBase(cfg S3Config) string {
	if cfg.PublicURL != "" {
		return strings.TrimSuffix(cfg.PublicURL, "/")
	}
	if cfg.Endpoint != "" {
		return strings.TrimSuffix(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
}
