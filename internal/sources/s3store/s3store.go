// Package s3store reads subject documents and the release metadata table from
// the curated PPMI bucket.
package s3store

import (
	"bytes"
	"context"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"gopkg.in/guregu/null.v3"

	"github.com/agentstation/ppmi500/pkg/constants"
	"github.com/agentstation/ppmi500/pkg/errors"
	"github.com/agentstation/ppmi500/pkg/logging"
	"github.com/agentstation/ppmi500/pkg/sources"
	"github.com/agentstation/ppmi500/pkg/table"
)

// Compile-time interface checks.
var (
	_ sources.SexLookup      = (*Store)(nil)
	_ sources.MetadataSource = (*Store)(nil)
)

// Store reads the curated release layout from one bucket. Calls are
// sequential and never retried; every failure is an *errors.ObjectStoreError.
type Store struct {
	client        s3iface.S3API
	bucket        string
	subjectPrefix string
	metadataKey   string
	sexField      string
}

// Option configures a Store.
type Option func(*Store)

// WithBucket sets the bucket name.
func WithBucket(bucket string) Option {
	return func(s *Store) {
		s.bucket = bucket
	}
}

// WithSubjectPrefix sets the key prefix under which each subject has a folder.
func WithSubjectPrefix(prefix string) Option {
	return func(s *Store) {
		s.subjectPrefix = prefix
	}
}

// WithMetadataKey sets the key of the metadata CSV.
func WithMetadataKey(key string) Option {
	return func(s *Store) {
		s.metadataKey = key
	}
}

// WithSexField sets the JSON field read by SexField.
func WithSexField(field string) Option {
	return func(s *Store) {
		s.sexField = field
	}
}

// New creates a Store over client.
func New(client s3iface.S3API, opts ...Option) *Store {
	s := &Store{
		client:        client,
		bucket:        constants.DefaultS3Bucket,
		subjectPrefix: constants.DefaultSubjectPrefix,
		metadataKey:   constants.DefaultMetadataKey,
		sexField:      constants.DefaultSexField,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewClient creates an S3 client for region using the default AWS credential chain.
func NewClient(region string) (s3iface.S3API, error) {
	sess, err := session.NewSession(&aws.Config{Region: aws.String(region)})
	if err != nil {
		return nil, &errors.ConfigError{Component: "s3", Message: "creating session", Err: err}
	}
	return s3.New(sess), nil
}

// Bucket returns the bucket name.
func (s *Store) Bucket() string { return s.bucket }

// MetadataKey returns the key of the metadata CSV.
func (s *Store) MetadataKey() string { return s.metadataKey }

// Document returns the key and body of the first JSON object under the
// subject's folder. key is empty when the subject has no document.
func (s *Store) Document(ctx context.Context, subjectID string) (key string, data []byte, err error) {
	prefix := s.subjectPrefix + subjectID + "/"
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	}
	err = s.client.ListObjectsV2PagesWithContext(ctx, input, func(page *s3.ListObjectsV2Output, _ bool) bool {
		for _, obj := range page.Contents {
			if k := aws.StringValue(obj.Key); sources.IsDocument(k) {
				key = k
				return false
			}
		}
		return true
	})
	if err != nil {
		return "", nil, errors.NewObjectStoreError("list", s.bucket, prefix, err)
	}
	if key == "" {
		return "", nil, nil
	}
	data, err = s.Object(ctx, key)
	if err != nil {
		return "", nil, err
	}
	return key, data, nil
}

// SexField implements sources.SexLookup.
func (s *Store) SexField(ctx context.Context, subjectID string) (null.String, error) {
	logger := logging.FromContext(ctx)
	key, data, err := s.Document(ctx, subjectID)
	if err != nil {
		return null.String{}, err
	}
	if key == "" {
		logger.Debug().Str("subject_id", subjectID).Msg("No subject document")
		return null.String{}, nil
	}
	return sources.FieldFromDocument(data, s.sexField, key)
}

// MetadataTable implements sources.MetadataSource.
func (s *Store) MetadataTable(ctx context.Context) (*table.Table, error) {
	data, err := s.Object(ctx, s.metadataKey)
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Info().
		Str("bucket", s.bucket).
		Str("key", s.metadataKey).
		Int("bytes", len(data)).
		Msg("Fetched metadata")
	return table.ReadCSV(bytes.NewReader(data), "metadata")
}

// Object returns the body of key.
func (s *Store) Object(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.NewObjectStoreError("get", s.bucket, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, errors.NewObjectStoreError("read", s.bucket, key, err)
	}
	return data, nil
}
