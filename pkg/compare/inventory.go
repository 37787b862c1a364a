package compare

import (
	"context"
	"fmt"
	"path/filepath"
)

// Inventory binds one bucket's inventory feed to the work area. Its table
// name and staging sub-path are pure functions of the compared-bucket name,
// so reruns resolve to the same tables and staged locations.
type Inventory struct {
	// Location is the inventory feed's address (not the compared bucket).
	Location Bucket
	// ComparedBucket is the name of the bucket this inventory describes.
	ComparedBucket string

	work  *Work
	store ObjectStore

	tableName       string
	workPath        string
	localSrcSymlink string
	localDstSymlink string
}

// NewInventory creates an inventory bound to the work area.
func NewInventory(store ObjectStore, work *Work, loc Bucket, comparedBucket string) *Inventory {
	symlinkPrefix := filepath.Join(work.Dir, normalizePathName(loc.Path))
	return &Inventory{
		Location:        loc,
		ComparedBucket:  comparedBucket,
		work:            work,
		store:           store,
		tableName:       "s3_inventory_" + normalizeIdentifier(comparedBucket),
		workPath:        work.Location.Path + "/" + comparedBucket,
		localSrcSymlink: symlinkPrefix + "-src-symlink.txt",
		localDstSymlink: symlinkPrefix + "-dst-symlink.txt",
	}
}

// TableName returns the external table name for this inventory.
func (inv *Inventory) TableName() string {
	return inv.tableName
}

// WorkPath returns the staging sub-path under the work bucket.
func (inv *Inventory) WorkPath() string {
	return inv.workPath
}

// LatestPartition returns the key of the most recent hive partition symlink.
// The inventory feed names partitions so that lexicographic order coincides
// with recency; that convention, not a general guarantee, is what makes the
// maximum the latest.
//
// The listing is a single page: a truncated response is an error, since a
// partial listing could silently miss the latest partition.
func (inv *Inventory) LatestPartition(ctx context.Context) (string, error) {
	prefix := inv.Location.Path + "/hive/"
	keys, err := inv.store.ListPage(ctx, inv.Location.Name, prefix)
	if err != nil {
		return "", fmt.Errorf("list inventory partitions: %w", err)
	}
	if len(keys) == 0 {
		return "", fmt.Errorf("s3://%s/%s: %w", inv.Location.Name, prefix, ErrNoPartitions)
	}

	latest := keys[0]
	for _, k := range keys[1:] {
		if k > latest {
			latest = k
		}
	}
	return latest, nil
}
