package compare

import "errors"

var (
	// ErrNoPartitions indicates the inventory feed has no hive partitions.
	ErrNoPartitions = errors.New("no inventory partitions found")
	// ErrEmptyManifest indicates a partition symlink with no data file entries.
	ErrEmptyManifest = errors.New("partition symlink has no entries")
)
