package compare

import (
	"context"
	"fmt"

	"github.com/forter/s3-compare/pkg/logging"
)

// The inventory table resolves its rows through the staged symlink manifest
// (SymlinkTextInputFormat) instead of a live listing, so queries run against
// the point-in-time snapshot that was staged.
const createInventoryTableSQL = "CREATE EXTERNAL TABLE %s (\n" +
	"    `bucket` string,\n" +
	"    key string\n" +
	")\n" +
	"PARTITIONED BY (dt string)\n" +
	"ROW FORMAT SERDE 'org.apache.hadoop.hive.ql.io.parquet.serde.ParquetHiveSerDe'\n" +
	"STORED AS INPUTFORMAT 'org.apache.hadoop.hive.ql.io.SymlinkTextInputFormat'\n" +
	"OUTPUTFORMAT 'org.apache.hadoop.hive.ql.io.IgnoreKeyTextOutputFormat'\n" +
	"LOCATION 's3://%s/%s/hive/'"

// RegisterTable idempotently declares the external table over the staged
// manifest location (drop-if-exists, create, then partition repair so all
// discovered partitions become queryable).
func (inv *Inventory) RegisterTable(ctx context.Context, engine QueryEngine) error {
	log := logging.WithPhase("register-table")
	log.Info().Str("table", inv.tableName).Msg("creating inventory table")

	if err := engine.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", inv.tableName)); err != nil {
		return fmt.Errorf("drop table %s: %w", inv.tableName, err)
	}

	create := fmt.Sprintf(createInventoryTableSQL, inv.tableName, inv.work.Location.Name, inv.workPath)
	if err := engine.Exec(ctx, create); err != nil {
		return fmt.Errorf("create table %s: %w", inv.tableName, err)
	}

	if err := engine.Exec(ctx, fmt.Sprintf("MSCK REPAIR TABLE %s", inv.tableName)); err != nil {
		return fmt.Errorf("repair table %s: %w", inv.tableName, err)
	}
	return nil
}
