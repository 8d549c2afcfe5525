package filestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dmitrijs2005/contentiq/internal/client/models"
)

// s3API is the slice of *s3.Client the store uses.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Seams for tests.
var (
	loadDefaultAWSConfig  = awsconfig.LoadDefaultConfig
	newS3ClientFromConfig = s3.NewFromConfig
)

// S3Options configure an S3-compatible bucket (AWS, MinIO, R2...).
type S3Options struct {
	Bucket       string
	Region       string
	BaseEndpoint string
	AccessKey    string
	SecretKey    string
}

// S3Store maps folders to key prefixes ("<name>/") inside one bucket. A zero
// byte marker object records that a folder exists.
type S3Store struct {
	api    s3API
	bucket string
}

func newS3Client(ctx context.Context, o S3Options) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(o.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(o.AccessKey, o.SecretKey, "")),
	)
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(opts *s3.Options) {
		if o.BaseEndpoint != "" {
			opts.BaseEndpoint = aws.String(o.BaseEndpoint)
			opts.UsePathStyle = true
		}
	})
	return client, nil
}

func NewS3Store(ctx context.Context, o S3Options) (*S3Store, error) {
	client, err := newS3Client(ctx, o)
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}
	return &S3Store{api: client, bucket: o.Bucket}, nil
}

// NewS3Factory builds the store once and hands it out for every live
// credential; bucket access uses the static keys from o.
func NewS3Factory(ctx context.Context, o S3Options) (Factory, error) {
	store, err := NewS3Store(ctx, o)
	if err != nil {
		return nil, err
	}
	return func(context.Context, models.Credential) (FileStore, error) {
		return store, nil
	}, nil
}

func folderKey(name string) string {
	return strings.TrimSuffix(name, "/") + "/"
}

func (s *S3Store) FindFolder(ctx context.Context, name string) (string, bool, error) {
	prefix := folderKey(name)
	out, err := s.api.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(prefix),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return "", false, fmt.Errorf("folder query: %w", err)
	}
	if len(out.Contents) == 0 {
		return "", false, nil
	}
	return prefix, true, nil
}

func (s *S3Store) CreateFolder(ctx context.Context, name string) (string, error) {
	key := folderKey(name)
	_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(nil),
	})
	if err != nil {
		return "", fmt.Errorf("create folder: %w", err)
	}
	return key, nil
}

func (s *S3Store) CreateFile(ctx context.Context, folderID, name string, content []byte) error {
	_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(folderKey(folderID) + name),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(JSONMimeType),
	})
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	return nil
}

func (s *S3Store) ListFiles(ctx context.Context, folderID string, pageSize int) ([]FileRef, error) {
	prefix := folderKey(folderID)
	out, err := s.api.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
		// one extra for the folder marker
		MaxKeys: aws.Int32(int32(pageSize + 1)),
	})
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}

	refs := make([]FileRef, 0, len(out.Contents))
	for _, obj := range out.Contents {
		key := aws.ToString(obj.Key)
		if key == prefix {
			continue
		}
		refs = append(refs, FileRef{ID: key, Name: strings.TrimPrefix(key, prefix)})
		if len(refs) == pageSize {
			break
		}
	}
	return refs, nil
}

func (s *S3Store) ReadFile(ctx context.Context, fileID string) ([]byte, error) {
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(fileID),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("download %s: %w", fileID, ErrNotFound)
		}
		return nil, fmt.Errorf("download %s: %w", fileID, err)
	}
	defer out.Body.Close()

	b, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", fileID, err)
	}
	return b, nil
}
