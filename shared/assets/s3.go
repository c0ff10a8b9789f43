package assets

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/pavitra93/go-coliving-admin/shared/apperr"
)

type s3API interface {
	PutObjectWithContext(ctx aws.Context, input *s3.PutObjectInput, opts ...request.Option) (*s3.PutObjectOutput, error)
	DeleteObjectWithContext(ctx aws.Context, input *s3.DeleteObjectInput, opts ...request.Option) (*s3.DeleteObjectOutput, error)
}

// S3Store keeps images in an S3 bucket; references are object keys
type S3Store struct {
	client s3API
	bucket string
	prefix string
}

// NewS3Store creates a store for bucket in region
func NewS3Store(region, bucket string) (*S3Store, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	return &S3Store{client: s3.New(sess), bucket: bucket, prefix: "profiles/"}, nil
}

func (s *S3Store) Put(ctx context.Context, blob []byte) (string, error) {
	mt, err := ValidateImage(blob)
	if err != nil {
		return "", err
	}
	key := s.prefix + objectName(mt.Extension(), time.Now())
	_, err = s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(blob),
		ContentType: aws.String(mt.String()),
	})
	if err != nil {
		return "", apperr.Storage("upload profile image", err)
	}
	return key, nil
}

func (s *S3Store) Delete(ctx context.Context, ref string) error {
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(ref),
	})
	if err != nil {
		return apperr.Storage("delete profile image", err)
	}
	return nil
}
