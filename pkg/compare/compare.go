// Package compare reconciles two S3 buckets through their inventory feeds.
//
// The pipeline stages each bucket's latest inventory partition into a shared
// work area, registers external tables over the staged symlink manifests,
// joins the two inventories on object key, and extracts the keys present on
// one side and absent on the other.
//
// The package depends on capabilities, not SDK clients: the object store and
// the query engine are passed in as interfaces.
package compare

import "context"

// ObjectStore is the object-storage capability the pipeline needs.
type ObjectStore interface {
	// ListPage lists one page of keys under a prefix. Implementations must
	// fail on truncation rather than return a partial key set.
	ListPage(ctx context.Context, bucket, prefix string) ([]string, error)
	Download(ctx context.Context, bucket, key, localPath string) error
	Upload(ctx context.Context, localPath, bucket, key string) error
	Copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error
}

// QueryEngine executes SQL statements on the external query service.
// Each call is a scoped execution; no statement state is shared between calls.
type QueryEngine interface {
	Exec(ctx context.Context, query string) error
	Query(ctx context.Context, query string) (Rows, error)
}

// Rows is a lazy, single-pass sequence of result rows. Next returns io.EOF
// when exhausted; a fresh sequence requires re-executing the query.
type Rows interface {
	Next(ctx context.Context) ([]string, error)
	Close() error
}
