package io

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"studio-portrait/internal/core"
)

// ObjectAPI is the subset of the S3 client used by S3Store
type ObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Options configures the object storage client. Endpoint is optional and
// points the client at an S3-compatible service such as R2 or MinIO.
type S3Options struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

func NewS3Client(ctx context.Context, opts S3Options) (*s3.Client, error) {
	loaders := []func(*config.LoadOptions) error{}

	if opts.Region != "" {
		loaders = append(loaders, config.WithRegion(opts.Region))
	}
	if opts.Endpoint != "" {
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL:               opts.Endpoint,
				HostnameImmutable: opts.UsePathStyle,
			}, nil
		})
		loaders = append(loaders, config.WithEndpointResolverWithOptions(resolver))
	}
	if opts.AccessKeyID != "" {
		loaders = append(loaders, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = opts.UsePathStyle
	}), nil
}

// S3Store reads and writes images addressed as s3://bucket/key
type S3Store struct {
	client ObjectAPI
	logger logrus.FieldLogger
}

func NewS3Store(client ObjectAPI, logger logrus.FieldLogger) *S3Store {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &S3Store{client: client, logger: logger}
}

func (s *S3Store) Load(ctx context.Context, handle string) (gocv.Mat, error) {
	loc, err := ParseObjectURL(handle)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("%w: %v", core.ErrFatalLoad, err)
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("%w: %s: %v", core.ErrFatalLoad, handle, err)
	}
	defer out.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(out.Body); err != nil {
		return gocv.NewMat(), fmt.Errorf("%w: reading %s: %v", core.ErrFatalLoad, handle, err)
	}

	mat, err := Decode(buf.Bytes())
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("%s: %w", handle, err)
	}

	s.logger.WithFields(logrus.Fields{
		"bucket": loc.Bucket,
		"key":    loc.Key,
		"bytes":  buf.Len(),
	}).Info("Object loaded successfully")

	return mat, nil
}

func (s *S3Store) Save(ctx context.Context, handle string, mat gocv.Mat) error {
	loc, err := ParseObjectURL(handle)
	if err != nil {
		return err
	}
	if mat.Empty() {
		return fmt.Errorf("cannot save empty image")
	}

	data, contentType, err := Encode(loc.Key, mat)
	if err != nil {
		return err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(loc.Bucket),
		Key:         aws.String(loc.Key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", handle, err)
	}

	s.logger.WithFields(logrus.Fields{
		"bucket": loc.Bucket,
		"key":    loc.Key,
		"bytes":  len(data),
	}).Info("Object saved successfully")

	return nil
}
