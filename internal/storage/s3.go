package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/kwarc/cheatsheets/internal/common"
	"github.com/kwarc/cheatsheets/internal/logging"
)

// swapped in tests
var (
	loadDefaultAWSConfig  = config.LoadDefaultConfig
	newS3ClientFromConfig = s3.NewFromConfig
	newS3PresignClient    = func(c *s3.Client) presignAPI { return s3.NewPresignClient(c) }
)

type objectAPI interface {
	s3.ListObjectsV2APIClient
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type presignAPI interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// DefaultPresignTTL is the lifetime of download links when none is configured.
const DefaultPresignTTL = 15 * time.Minute

// S3Config selects the bucket and credentials of an S3 compatible service.
type S3Config struct {
	Region       string
	AccessKey    string
	SecretKey    string
	BaseEndpoint string
	Bucket       string
	KeyPrefix    string
	PresignTTL   time.Duration
}

// S3Store keeps documents in a bucket.
type S3Store struct {
	client  objectAPI
	presign presignAPI
	cfg     S3Config
	logger  logging.Logger
}

// NewS3Store builds the client from static credentials.
func NewS3Store(ctx context.Context, c S3Config, l logging.Logger) (*S3Store, error) {
	if c.Bucket == "" {
		return nil, common.ErrorStorageNotConfigured
	}
	awsCfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(c.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(c.AccessKey, c.SecretKey, "")),
	)
	if err != nil {
		return nil, err
	}
	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if c.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(c.BaseEndpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Store{
		client:  client,
		presign: newS3PresignClient(client),
		cfg:     c,
		logger:  l.With("module", "storage", "backend", "s3"),
	}, nil
}

func (s *S3Store) key(name string) string {
	if s.cfg.KeyPrefix == "" {
		return name
	}
	return path.Join(s.cfg.KeyPrefix, name)
}

func (s *S3Store) Replace(ctx context.Context, prefix, name string, data []byte) (bool, error) {
	if err := ValidateName(name); err != nil {
		return false, err
	}
	if err := ValidateName(prefix); err != nil {
		return false, err
	}

	keyPrefix := s.key(prefix + "_")
	replaced := false
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.cfg.Bucket),
		Prefix: aws.String(keyPrefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return replaced, fmt.Errorf("list %s: %w", keyPrefix, err)
		}
		for _, obj := range page.Contents {
			k := aws.ToString(obj.Key)
			existing := path.Base(k)
			if s.key(existing) != k || !slotMember(prefix, existing) {
				continue
			}
			if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(s.cfg.Bucket),
				Key:    aws.String(k),
			}); err != nil {
				return replaced, fmt.Errorf("delete %s: %w", k, err)
			}
			s.logger.Info(ctx, "removed previous version", "key", k)
			replaced = true
		}
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.Bucket),
		Key:           aws.String(s.key(name)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("application/pdf"),
	})
	if err != nil {
		return replaced, fmt.Errorf("put %s: %w", name, err)
	}
	return replaced, nil
}

func (s *S3Store) Remove(ctx context.Context, name string) (bool, error) {
	if err := ValidateName(name); err != nil {
		s.logger.Error(ctx, "refusing to delete outside storage prefix", "file", name)
		return false, err
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", name, err)
	}
	return true, nil
}

func (s *S3Store) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("get %s: %w", name, err)
	}
	return out.Body, nil
}

func (s *S3Store) presignTTL() time.Duration {
	if s.cfg.PresignTTL <= 0 {
		return DefaultPresignTTL
	}
	return s.cfg.PresignTTL
}

func (s *S3Store) PresignGet(ctx context.Context, name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket:                     aws.String(s.cfg.Bucket),
		Key:                        aws.String(s.key(name)),
		ResponseContentType:        aws.String("application/pdf"),
		ResponseContentDisposition: aws.String(fmt.Sprintf("attachment; filename=%q", name)),
	}, s3.WithPresignExpires(s.presignTTL()))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", name, err)
	}
	return req.URL, nil
}
