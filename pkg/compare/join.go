package compare

import (
	"context"
	"fmt"
	"strings"

	"github.com/forter/s3-compare/internal/logctx"
	"github.com/forter/s3-compare/pkg/logging"
)

// JoinType selects the join direction of the comparison.
type JoinType string

const (
	// JoinLeft keeps every left key; the right key is null where absent.
	JoinLeft JoinType = "LEFT"
	// JoinRight keeps every right key; the left key is null where absent.
	JoinRight JoinType = "RIGHT"
)

// JoinTypeFor maps the side being checked for missing keys to the join
// direction that exposes them: missing-in-right reads a LEFT join and
// missing-in-left a RIGHT join.
func JoinTypeFor(missingIn string) JoinType {
	if missingIn == "right" {
		return JoinLeft
	}
	return JoinRight
}

const createJoinTableSQL = `CREATE TABLE %s
WITH (format='PARQUET') AS
SELECT
  lhs.key AS left_key, rhs.key AS right_key
FROM
  %s lhs
%s JOIN
  %s rhs
USING (key)`

// Compare joins two registered inventories and extracts one-sided keys.
type Compare struct {
	work   *Work
	left   *Inventory
	right  *Inventory
	engine QueryEngine
}

// NewCompare creates a comparison over the left and right inventories.
func NewCompare(work *Work, left, right *Inventory, engine QueryEngine) *Compare {
	return &Compare{work: work, left: left, right: right, engine: engine}
}

// Setup stages both inventories' latest partitions into the work area and
// registers their external tables.
func (c *Compare) Setup(ctx context.Context, copyConcurrency int) error {
	for _, inv := range []*Inventory{c.left, c.right} {
		invCtx := logctx.WithStr(ctx, "inventory", inv.ComparedBucket)
		partition, err := inv.LatestPartition(invCtx)
		if err != nil {
			return fmt.Errorf("resolve latest partition for %s: %w", inv.ComparedBucket, err)
		}
		if err := inv.StageToWorkArea(invCtx, partition, copyConcurrency); err != nil {
			return fmt.Errorf("stage inventory for %s: %w", inv.ComparedBucket, err)
		}
	}
	for _, inv := range []*Inventory{c.left, c.right} {
		if err := inv.RegisterTable(ctx, c.engine); err != nil {
			return err
		}
	}
	return nil
}

// JoinTableName returns the direction-specific join table name. Re-running
// with the other direction materializes a different table.
func (c *Compare) JoinTableName(joinType JoinType) string {
	return fmt.Sprintf("s3_inventory_join_%s_%s_%s",
		strings.ToLower(string(joinType)),
		normalizeIdentifier(c.left.ComparedBucket),
		normalizeIdentifier(c.right.ComparedBucket),
	)
}

// CreateJoinTable materializes the join table pairing left and right keys,
// with nulls where no counterpart exists. Drop-if-exists first, so reruns
// are idempotent.
func (c *Compare) CreateJoinTable(ctx context.Context, joinType JoinType) error {
	name := c.JoinTableName(joinType)
	logger := logging.WithPhase("create-join-table")
	logger.Info().Str("table", name).Msg("creating join table")

	if err := c.engine.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", name)); err != nil {
		return fmt.Errorf("drop join table %s: %w", name, err)
	}

	create := fmt.Sprintf(createJoinTableSQL, name, c.left.tableName, joinType, c.right.tableName)
	if err := c.engine.Exec(ctx, create); err != nil {
		return fmt.Errorf("create join table %s: %w", name, err)
	}
	return nil
}

// MissingKeys returns the lazy sequence of keys present on the join's kept
// side and absent on the other. Null-ness of the counterpart column, never
// emptiness, marks a missing key; row order is whatever the engine returns.
func (c *Compare) MissingKeys(ctx context.Context, joinType JoinType) (Rows, error) {
	selectCol, nullCol := "left_key", "right_key"
	if joinType == JoinRight {
		selectCol, nullCol = "right_key", "left_key"
	}

	query := fmt.Sprintf("SELECT %s AS key FROM %s WHERE %s IS NULL",
		selectCol, c.JoinTableName(joinType), nullCol)
	rows, err := c.engine.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query missing keys: %w", err)
	}
	return rows, nil
}
