package attachments

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/erazemk/najdeno/internal/clock"
	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
)

// S3Config configures an S3-compatible bucket for proof photos.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string // empty for AWS, set for MinIO or Spaces
	AccessKey string
	SecretKey string
	Prefix    string
}

// objectAPI is the subset of *s3.Client the store uses.
type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Store keeps photo bytes in a bucket and metadata in the database. Objects
// are private; they are served back through the API after an access check.
type S3Store struct {
	db     *sql.DB
	client objectAPI
	bucket string
	prefix string
	clock  clock.Clock
}

// NewS3Store builds an S3 client from cfg. Static credentials are used when
// given, otherwise the default AWS credential chain applies.
func NewS3Store(ctx context.Context, db *sql.DB, clk clock.Clock, cfg S3Config) (*S3Store, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading S3 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return newS3Store(db, client, clk, cfg.Bucket, cfg.Prefix), nil
}

func newS3Store(db *sql.DB, client objectAPI, clk clock.Clock, bucket, prefix string) *S3Store {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &S3Store{db: db, client: client, bucket: bucket, prefix: prefix, clock: clk}
}

func (s *S3Store) Put(ctx context.Context, uploaderID string, data []byte, mime string) (string, error) {
	id := uuid.NewString()
	key := s.prefix + "proofs/" + id + ".jpg"

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(mime),
	})
	if err != nil {
		return "", fmt.Errorf("uploading proof image: %w", err)
	}

	err = store.CreateAttachment(ctx, s.db, model.Attachment{
		ID:         id,
		UploaderID: uploaderID,
		MIME:       mime,
		ObjectKey:  key,
		CreatedAt:  s.clock.Now(),
	})
	if err != nil {
		_ = s.deleteObject(context.WithoutCancel(ctx), key)
		return "", err
	}
	return URI(id), nil
}

func (s *S3Store) Get(ctx context.Context, id string) (*model.Attachment, error) {
	a, err := store.GetAttachment(ctx, s.db, id)
	if err != nil || a == nil || a.ObjectKey == "" {
		return a, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(a.ObjectKey),
	})
	if err != nil {
		return nil, fmt.Errorf("downloading proof image: %w", err)
	}
	defer out.Body.Close()

	a.Data, err = io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("reading proof image: %w", err)
	}
	return a, nil
}

func (s *S3Store) Delete(ctx context.Context, uri string) error {
	id, ok := IDFromURI(uri)
	if !ok {
		return nil
	}
	a, err := store.GetAttachment(ctx, s.db, id)
	if err != nil || a == nil {
		return err
	}
	if a.ObjectKey != "" {
		if err := s.deleteObject(ctx, a.ObjectKey); err != nil {
			return err
		}
	}
	return store.DeleteAttachment(ctx, s.db, id)
}

func (s *S3Store) deleteObject(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("deleting proof image: %w", err)
	}
	return nil
}
