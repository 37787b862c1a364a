// Package objstore provides the S3 operations the comparison pipeline needs:
// single-page listing, download, upload, and server-side copy.
package objstore

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// API is the subset of the S3 client surface used by Client.
// *s3.Client satisfies it; tests substitute fakes.
type API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
}

// TruncatedListingError reports that a single-page listing was truncated.
// Proceeding with a partial listing would silently corrupt the comparison,
// so callers must treat this as fatal.
type TruncatedListingError struct {
	Bucket string
	Prefix string
	// KeyCount is the number of keys the truncated page did return.
	KeyCount int32
}

func (e *TruncatedListingError) Error() string {
	return fmt.Sprintf("listing of s3://%s/%s truncated after %d keys", e.Bucket, e.Prefix, e.KeyCount)
}

// Client provides object-store operations against S3.
type Client struct {
	api API
}

// NewClient creates a client using default AWS configuration.
func NewClient(ctx context.Context) (*Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return &Client{api: s3.NewFromConfig(cfg)}, nil
}

// NewClientWithAPI creates a client over an existing S3 API implementation.
func NewClientWithAPI(api API) *Client {
	return &Client{api: api}
}

// ListPage lists one page of keys under the prefix. It never paginates:
// if the store reports more results exist, a *TruncatedListingError is
// returned instead of a partial key set.
func (c *Client) ListPage(ctx context.Context, bucket, prefix string) ([]string, error) {
	resp, err := c.api.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("list s3://%s/%s: %w", bucket, prefix, err)
	}
	if aws.ToBool(resp.IsTruncated) {
		return nil, &TruncatedListingError{
			Bucket:   bucket,
			Prefix:   prefix,
			KeyCount: aws.ToInt32(resp.KeyCount),
		}
	}

	keys := make([]string, 0, len(resp.Contents))
	for _, obj := range resp.Contents {
		keys = append(keys, aws.ToString(obj.Key))
	}
	return keys, nil
}

// Download fetches an object into a local file, creating or truncating it.
func (c *Client) Download(ctx context.Context, bucket, key, localPath string) error {
	resp, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("get object s3://%s/%s: %w", bucket, key, err)
	}
	defer resp.Body.Close()

	f, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", localPath, err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(localPath)
		return fmt.Errorf("write %s: %w", localPath, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", localPath, err)
	}
	return nil
}

// Upload stores a local file as an object.
func (c *Client) Upload(ctx context.Context, localPath, bucket, key string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	if _, err := c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   f,
	}); err != nil {
		return fmt.Errorf("put object s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}

// Copy performs a server-side copy between object locations.
func (c *Client) Copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	if _, err := c.api.CopyObject(ctx, &s3.CopyObjectInput{
		CopySource: aws.String(srcBucket + "/" + srcKey),
		Bucket:     aws.String(dstBucket),
		Key:        aws.String(dstKey),
	}); err != nil {
		return fmt.Errorf("copy s3://%s/%s to s3://%s/%s: %w", srcBucket, srcKey, dstBucket, dstKey, err)
	}
	return nil
}
