// Package cli implements the command-line interface for s3-compare.
package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/forter/s3-compare/internal/logctx"
	"github.com/forter/s3-compare/pkg/athenaq"
	"github.com/forter/s3-compare/pkg/compare"
	"github.com/forter/s3-compare/pkg/logging"
	"github.com/forter/s3-compare/pkg/objstore"
)

type options struct {
	missingIn           string
	skipSetup           bool
	skipCreateJoinTable bool

	leftComparedBucket  string
	leftInventoryBucket string
	leftInventoryPath   string

	rightComparedBucket  string
	rightInventoryBucket string
	rightInventoryPath   string

	workBucket   string
	workPath     string
	localWorkdir string

	athenaQueryResultLocation string
	athenaSchema              string
	athenaRegion              string

	copyConcurrency int
	debug           bool
	logHuman        bool
}

// Run executes the CLI with the given arguments.
func Run(args []string) error {
	opts, err := parseArgs(args)
	if err != nil {
		return err
	}

	logging.Init(opts.debug, opts.logHuman)
	ctx := logctx.WithLogger(context.Background(), *logging.L())

	store, err := objstore.NewClient(ctx)
	if err != nil {
		return err
	}
	engine, err := athenaq.NewEngine(ctx, athenaq.Config{
		ResultLocation: opts.athenaQueryResultLocation,
		Schema:         opts.athenaSchema,
		Region:         opts.athenaRegion,
	})
	if err != nil {
		return err
	}

	work, err := compare.NewWork(compare.Bucket{Name: opts.workBucket, Path: opts.workPath}, opts.localWorkdir)
	if err != nil {
		return err
	}
	left := compare.NewInventory(store, work,
		compare.Bucket{Name: opts.leftInventoryBucket, Path: opts.leftInventoryPath},
		opts.leftComparedBucket)
	right := compare.NewInventory(store, work,
		compare.Bucket{Name: opts.rightInventoryBucket, Path: opts.rightInventoryPath},
		opts.rightComparedBucket)

	runner := compare.NewRunner(compare.NewCompare(work, left, right, engineAdapter{engine}))
	return runner.Run(ctx, compare.RunOptions{
		MissingIn:           opts.missingIn,
		SkipSetup:           opts.skipSetup,
		SkipCreateJoinTable: opts.skipCreateJoinTable,
		CopyConcurrency:     opts.copyConcurrency,
	})
}

func parseArgs(args []string) (*options, error) {
	var opts options
	fs := flag.NewFlagSet("s3-compare", flag.ContinueOnError)

	fs.StringVar(&opts.missingIn, "missing-in", "",
		"which of the two buckets should be checked for missing keys (left or right)")
	fs.BoolVar(&opts.skipSetup, "skip-setup", false,
		"skip the S3 copy phase and table preparation steps; useful to re-check with the other --missing-in value")
	fs.BoolVar(&opts.skipCreateJoinTable, "skip-create-join-table", false,
		"skip the join table creation phase (the join table is direction-specific)")

	fs.StringVar(&opts.leftComparedBucket, "left-compared-bucket", "",
		"name of the left bucket to be compared")
	fs.StringVar(&opts.leftInventoryBucket, "left-inventory-bucket", "",
		"bucket containing the inventory files for the left compared bucket")
	fs.StringVar(&opts.leftInventoryPath, "left-inventory-path", "",
		"path within the left inventory bucket containing the hive directory")

	fs.StringVar(&opts.rightComparedBucket, "right-compared-bucket", "",
		"name of the right bucket to be compared")
	fs.StringVar(&opts.rightInventoryBucket, "right-inventory-bucket", "",
		"bucket containing the inventory files for the right compared bucket")
	fs.StringVar(&opts.rightInventoryPath, "right-inventory-path", "",
		"path within the right inventory bucket containing the hive directory")

	fs.StringVar(&opts.workBucket, "work-bucket", "",
		"bucket used for internal work purposes")
	fs.StringVar(&opts.workPath, "work-path", "",
		"path within the work bucket to place work files under")
	fs.StringVar(&opts.localWorkdir, "local-workdir", "",
		"local directory used as a working directory")

	fs.StringVar(&opts.athenaQueryResultLocation, "athena-query-result-location", "",
		"query result location, e.g. s3://query-results-bucket/folder/")
	fs.StringVar(&opts.athenaSchema, "athena-schema", "default", "Athena schema name")
	fs.StringVar(&opts.athenaRegion, "athena-region", "", "Athena region")

	fs.IntVar(&opts.copyConcurrency, "copy-concurrency", compare.DefaultCopyConcurrency,
		"max concurrent object copies during staging")
	fs.BoolVar(&opts.debug, "debug", false, "enable debug logging")
	fs.BoolVar(&opts.logHuman, "log-human", false, "human-friendly console log output")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	required := []struct {
		name  string
		value string
	}{
		{"missing-in", opts.missingIn},
		{"left-compared-bucket", opts.leftComparedBucket},
		{"left-inventory-bucket", opts.leftInventoryBucket},
		{"left-inventory-path", opts.leftInventoryPath},
		{"right-compared-bucket", opts.rightComparedBucket},
		{"right-inventory-bucket", opts.rightInventoryBucket},
		{"right-inventory-path", opts.rightInventoryPath},
		{"work-bucket", opts.workBucket},
		{"work-path", opts.workPath},
		{"local-workdir", opts.localWorkdir},
		{"athena-query-result-location", opts.athenaQueryResultLocation},
	}
	for _, r := range required {
		if r.value == "" {
			return nil, fmt.Errorf("--%s is required", r.name)
		}
	}
	if opts.missingIn != "left" && opts.missingIn != "right" {
		return nil, fmt.Errorf("--missing-in must be 'left' or 'right', got %q", opts.missingIn)
	}

	return &opts, nil
}

// engineAdapter bridges the concrete Athena engine to the pipeline's
// QueryEngine interface (the concrete Query returns *athenaq.Rows).
type engineAdapter struct {
	*athenaq.Engine
}

func (a engineAdapter) Query(ctx context.Context, query string) (compare.Rows, error) {
	return a.Engine.Query(ctx, query)
}
