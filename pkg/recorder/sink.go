package recorder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Extension is the file extension of recordings.
const Extension = ".rui"

// DirSink appends each session's segments to <dir>/<session ID>.rui.
type DirSink struct {
	dir string
}

// NewDirSink creates dir if needed.
func NewDirSink(dir string) (*DirSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("recorder: create %s: %w", dir, err)
	}
	return &DirSink{dir: dir}, nil
}

// Path returns the recording file of a session.
func (s *DirSink) Path(sessionID string) string {
	return filepath.Join(s.dir, sessionID+Extension)
}

// Write implements Sink.
func (s *DirSink) Write(_ context.Context, seg *Segment) error {
	if strings.ContainsAny(seg.SessionID, `/\`) || seg.SessionID == "" || seg.SessionID == ".." {
		return fmt.Errorf("recorder: invalid session ID %q", seg.SessionID)
	}
	f, err := os.OpenFile(s.Path(seg.SessionID), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(seg.Data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Close implements Sink.
func (s *DirSink) Close() error {
	return nil
}

// S3Config holds configuration for the S3 sink.
type S3Config struct {
	// Bucket is the S3 bucket name (required).
	Bucket string
	// Prefix is the key prefix within the bucket (optional).
	Prefix string
	// Region is the AWS region (optional, uses default chain if empty).
	Region string
	// Endpoint is a custom S3 endpoint URL for S3-compatible providers
	// (e.g. MinIO). Empty uses the default AWS endpoint.
	Endpoint string
	// UsePathStyle forces path-style addressing (bucket in path, not subdomain).
	UsePathStyle bool
}

// Validate checks that required S3 configuration is present.
func (c *S3Config) Validate() error {
	if c.Bucket == "" {
		return errors.New("recorder: S3 bucket is required")
	}
	return nil
}

// PutObjectAPI is the subset of the S3 client used by S3Sink.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink uploads every segment as one object:
// <prefix>/<session ID>/<first seq>.rui.
type S3Sink struct {
	client PutObjectAPI
	bucket string
	prefix string
}

// NewS3Sink loads the AWS default credential chain (env vars, shared
// config, IAM role) and creates a sink.
func NewS3Sink(ctx context.Context, cfg S3Config) (*S3Sink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("recorder: load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = &endpoint
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}
	return NewS3SinkWithClient(s3.NewFromConfig(awsConfig, s3Opts...), cfg.Bucket, cfg.Prefix), nil
}

// NewS3SinkWithClient creates a sink using an existing client.
func NewS3SinkWithClient(client PutObjectAPI, bucket, prefix string) *S3Sink {
	return &S3Sink{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

// Key returns the object key of a segment.
func (s *S3Sink) Key(seg *Segment) string {
	name := fmt.Sprintf("%020d%s", seg.FirstSeq, Extension)
	return path.Join(s.prefix, seg.SessionID, name)
}

// Write implements Sink.
func (s *S3Sink) Write(ctx context.Context, seg *Segment) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.Key(seg)),
		Body:          bytes.NewReader(seg.Data),
		ContentLength: aws.Int64(int64(len(seg.Data))),
		ContentType:   aws.String("application/octet-stream"),
		Metadata: map[string]string{
			"session-id": seg.SessionID,
			"frames":     fmt.Sprint(seg.Frames),
		},
	})
	if err != nil {
		return fmt.Errorf("recorder: put s3://%s/%s: %w", s.bucket, s.Key(seg), err)
	}
	return nil
}

// Close implements Sink.
func (s *S3Sink) Close() error {
	return nil
}
