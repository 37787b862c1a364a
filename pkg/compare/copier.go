package compare

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/forter/s3-compare/internal/logctx"
	"github.com/forter/s3-compare/pkg/fileutil"
	"github.com/forter/s3-compare/pkg/logging"
	"github.com/forter/s3-compare/pkg/objstore"
)

// DefaultCopyConcurrency is the bound on concurrent per-object copies.
const DefaultCopyConcurrency = 100

// StageToWorkArea mirrors the partition's data files into the work area:
// it downloads the partition symlink, rewrites each entry to point into the
// staging sub-path, server-side copies every object on a bounded worker
// pool, and uploads the rewritten symlink once all copies succeeded.
//
// The rewritten symlink keeps the input's line order. Any copy failure
// aborts the phase before the upload; copies already in flight run to
// completion, while queued copies observe the cancelled group context and
// are skipped.
func (inv *Inventory) StageToWorkArea(ctx context.Context, partitionSymlink string, concurrency int) error {
	if concurrency <= 0 {
		concurrency = DefaultCopyConcurrency
	}
	log := logctx.FromContext(ctx)

	if err := inv.store.Download(ctx, inv.Location.Name, partitionSymlink, inv.localSrcSymlink); err != nil {
		return fmt.Errorf("download partition symlink: %w", err)
	}

	paths, err := inv.readSrcSymlink()
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("%s: %w", partitionSymlink, ErrEmptyManifest)
	}

	rewritten := make([]string, len(paths))
	for i, p := range paths {
		rewritten[i] = inv.rewritePath(p)
	}
	if err := inv.writeDstSymlink(rewritten); err != nil {
		return err
	}

	tracker := logging.NewProgressTracker("stage-copy", int64(len(paths)), log)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i := range paths {
		src, dst := paths[i], rewritten[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := inv.copyObject(gctx, src, dst); err != nil {
				return err
			}
			if n := tracker.RecordCompletion(); n%1000 == 0 {
				tracker.LogProgress("staging inventory objects")
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("stage inventory objects: %w", err)
	}
	tracker.LogComplete("staged inventory partition")

	dstSymlink := strings.Replace(partitionSymlink, inv.Location.Path, inv.workPath, 1)
	log.Info().Str("key", dstSymlink).Msg("uploading rewritten partition symlink")
	if err := inv.store.Upload(ctx, inv.localDstSymlink, inv.work.Location.Name, dstSymlink); err != nil {
		return fmt.Errorf("upload rewritten symlink: %w", err)
	}
	return nil
}

// rewritePath substitutes the inventory's bucket and path prefix with the
// work bucket and staging sub-path. Bucket first, then path, first
// occurrence each.
func (inv *Inventory) rewritePath(s string) string {
	s = strings.Replace(s, inv.Location.Name, inv.work.Location.Name, 1)
	return strings.Replace(s, inv.Location.Path, inv.workPath, 1)
}

func (inv *Inventory) copyObject(ctx context.Context, srcPath, dstPath string) error {
	srcBucket, srcKey, err := objstore.ParseS3URI(srcPath)
	if err != nil {
		return fmt.Errorf("parse source path %q: %w", srcPath, err)
	}
	dstBucket, dstKey, err := objstore.ParseS3URI(dstPath)
	if err != nil {
		return fmt.Errorf("parse staged path %q: %w", dstPath, err)
	}
	logger := logctx.FromContext(ctx)
	logger.Debug().Str("src", srcPath).Str("dst", dstPath).Msg("copy object")
	return inv.store.Copy(ctx, srcBucket, srcKey, dstBucket, dstKey)
}

// readSrcSymlink returns the non-empty lines of the downloaded symlink in
// file order.
func (inv *Inventory) readSrcSymlink() ([]string, error) {
	f, err := os.Open(inv.localSrcSymlink)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", inv.localSrcSymlink, err)
	}
	defer f.Close()

	var paths []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		paths = append(paths, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", inv.localSrcSymlink, err)
	}
	return paths, nil
}

func (inv *Inventory) writeDstSymlink(paths []string) error {
	return fileutil.WriteTmpThenMove(inv.work.Dir, inv.localDstSymlink, func(tmpPath string) error {
		f, err := os.Create(tmpPath)
		if err != nil {
			return fmt.Errorf("create %s: %w", tmpPath, err)
		}
		w := bufio.NewWriter(f)
		for _, p := range paths {
			if _, err := w.WriteString(p + "\n"); err != nil {
				f.Close()
				return fmt.Errorf("write rewritten symlink: %w", err)
			}
		}
		if err := w.Flush(); err != nil {
			f.Close()
			return fmt.Errorf("flush rewritten symlink: %w", err)
		}
		return f.Close()
	})
}
