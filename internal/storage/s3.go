package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3 stores uploads in an S3 (or compatible) bucket, keyed by folder/name.
type S3 struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
}

func NewS3(client *s3.Client, bucket string) *S3 {
	return &S3{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   bucket,
	}
}

func (s *S3) SaveProfileImage(ctx context.Context, encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("invalid base64 image: %w", err)
	}

	name, err := randomName()
	if err != nil {
		return "", err
	}

	if err := s.put(ctx, path.Join(ProfileFolder, name), data); err != nil {
		return "", err
	}

	return name, nil
}

func (s *S3) DeleteProfileImage(ctx context.Context, name string) error {
	return s.delete(ctx, path.Join(ProfileFolder, name))
}

func (s *S3) SaveAttachment(ctx context.Context, data []byte, ext string) (string, error) {
	name, err := randomName()
	if err != nil {
		return "", err
	}
	if ext != "" {
		name += "." + ext
	}

	if err := s.put(ctx, path.Join(AttachmentFolder, name), data); err != nil {
		return "", err
	}

	return name, nil
}

func (s *S3) DeleteAttachment(ctx context.Context, name string) error {
	return s.delete(ctx, path.Join(AttachmentFolder, name))
}

func (s *S3) put(ctx context.Context, key string, data []byte) error {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(http.DetectContentType(data)),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

func (s *S3) delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}
