// Package s3 stores workbooks as objects in an S3 bucket.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/fin-tools/macro-sync/pkg/errs"
	"github.com/fin-tools/macro-sync/pkg/models/domain"
)

const Provider = "s3"

const workbookContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// api is the subset of the S3 client the store calls.
type api interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Store reads and writes workbook objects in one bucket. Handle paths are
// object keys.
type Store struct {
	client api
	bucket string
}

// NewStore creates an S3-backed workbook store.
func NewStore(cfg awssdk.Config, bucket string) *Store {
	return &Store{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
	}
}

// Fetch downloads the workbook object. A missing key maps to
// ErrSheetNotFound so a misconfigured template fails the same way as a
// missing sheet.
func (s *Store) Fetch(ctx context.Context, handle domain.StorageHandle) ([]byte, error) {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: awssdk.String(s.bucket),
		Key:    awssdk.String(handle.Path),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("workbook s3://%s/%s: %w", s.bucket, handle.Path, errs.ErrSheetNotFound)
		}
		return nil, fmt.Errorf("failed to fetch s3://%s/%s: %w", s.bucket, handle.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read s3://%s/%s: %w", s.bucket, handle.Path, err)
	}
	return data, nil
}

// Save uploads the workbook. S3 object puts are atomic, so readers only ever
// see the previous or the new version.
func (s *Store) Save(ctx context.Context, handle domain.StorageHandle, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      awssdk.String(s.bucket),
		Key:         awssdk.String(handle.Path),
		Body:        bytes.NewReader(data),
		ContentType: awssdk.String(workbookContentType),
	})
	if err != nil {
		return fmt.Errorf("failed to save s3://%s/%s: %w", s.bucket, handle.Path, err)
	}
	return nil
}
