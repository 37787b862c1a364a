package compare

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/forter/s3-compare/pkg/fileutil"
	"github.com/forter/s3-compare/pkg/logging"
)

// RunOptions controls a single pipeline run.
type RunOptions struct {
	// MissingIn selects which side is checked for missing keys ("left" or
	// "right").
	MissingIn string
	// SkipSetup skips staging and table registration. Safe when a prior run
	// completed setup and the staged data and tables are still present.
	SkipSetup bool
	// SkipCreateJoinTable skips join table creation. Must not be set when
	// the join direction differs from the prior run's, since the join table
	// is direction-specific.
	SkipCreateJoinTable bool
	// CopyConcurrency bounds the staging copy fan-out (default 100).
	CopyConcurrency int
}

type filterStage struct {
	name string
	run  func(ctx context.Context, joinType JoinType, inputPath, outputPath string) error
}

// Runner sequences the pipeline: SETUP, JOIN, then the EXTRACT filter
// stages. Each filter consumes the previous stage's output file and writes
// its own under the local work directory.
type Runner struct {
	compare *Compare
	filters []filterStage
}

// NewRunner creates a runner with the built-in missing-key extraction stage.
func NewRunner(c *Compare) *Runner {
	r := &Runner{compare: c}
	r.filters = []filterStage{
		{name: "missing-keys", run: r.writeMissingKeys},
	}
	return r
}

// Run drives the pipeline to completion. Any phase failure aborts the run
// immediately; recovery is re-invocation with the skip flags.
func (r *Runner) Run(ctx context.Context, opts RunOptions) error {
	joinType := JoinTypeFor(opts.MissingIn)

	if opts.SkipSetup {
		logger := logging.WithPhase("setup")
		logger.Info().Msg("skipping setup")
	} else {
		if err := r.compare.Setup(ctx, opts.CopyConcurrency); err != nil {
			return err
		}
	}

	if opts.SkipCreateJoinTable {
		logger := logging.WithPhase("create-join-table")
		logger.Info().Msg("skipping join table creation")
	} else {
		if err := r.compare.CreateJoinTable(ctx, joinType); err != nil {
			return err
		}
	}

	log := logging.WithPhase("extract")
	var previous string
	for i, stage := range r.filters {
		name := fmt.Sprintf("%02d-%s", i, stage.name)
		outputPath := filepath.Join(r.compare.work.Dir, name)
		if fileutil.Exists(outputPath) {
			log.Debug().Str("path", outputPath).Msg("overwriting previous output")
		}
		log.Info().Str("stage", name).Msg("running filter stage")
		if err := stage.run(ctx, joinType, previous, outputPath); err != nil {
			return fmt.Errorf("filter %s: %w", name, err)
		}
		previous = outputPath
	}
	return nil
}

// writeMissingKeys streams the missing-key rows into the output file, one
// key per line, written tmp-then-rename.
func (r *Runner) writeMissingKeys(ctx context.Context, joinType JoinType, _, outputPath string) error {
	rows, err := r.compare.MissingKeys(ctx, joinType)
	if err != nil {
		return err
	}
	defer rows.Close()

	var count int64
	err = fileutil.WriteTmpThenMove(r.compare.work.Dir, outputPath, func(tmpPath string) error {
		f, err := os.Create(tmpPath)
		if err != nil {
			return fmt.Errorf("create %s: %w", tmpPath, err)
		}
		w := bufio.NewWriter(f)
		for {
			values, err := rows.Next(ctx)
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				f.Close()
				return err
			}
			if _, err := w.WriteString(values[0] + "\n"); err != nil {
				f.Close()
				return fmt.Errorf("write key: %w", err)
			}
			count++
		}
		if err := w.Flush(); err != nil {
			f.Close()
			return fmt.Errorf("flush output: %w", err)
		}
		return f.Close()
	})
	if err != nil {
		return err
	}

	logger := logging.WithPhase("extract")
	logger.Info().
		Int64("keys", count).
		Str("path", outputPath).
		Msg("wrote missing keys")
	return nil
}
