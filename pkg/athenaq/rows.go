package athenaq

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/athena/types"
)

// Rows is a lazy, single-pass sequence of result rows. Pages are fetched on
// demand; the header row Athena prepends to SELECT results is skipped.
type Rows struct {
	api     API
	queryID string

	buf        []types.Row
	nextToken  *string
	started    bool
	done       bool
	skipHeader bool
}

// Next returns the next row's column values, or io.EOF when the sequence
// is exhausted. A NULL column is returned as an empty string; null-ness is
// expected to be resolved in SQL, not by inspecting values.
func (r *Rows) Next(ctx context.Context) ([]string, error) {
	for {
		if len(r.buf) > 0 {
			row := r.buf[0]
			r.buf = r.buf[1:]
			return datumStrings(row), nil
		}
		if r.done {
			return nil, io.EOF
		}
		if err := r.fetchPage(ctx); err != nil {
			return nil, err
		}
	}
}

// Close releases the sequence. The underlying query execution has already
// completed, so this only marks the sequence exhausted.
func (r *Rows) Close() error {
	r.buf = nil
	r.done = true
	return nil
}

func (r *Rows) fetchPage(ctx context.Context) error {
	resp, err := r.api.GetQueryResults(ctx, &athena.GetQueryResultsInput{
		QueryExecutionId: aws.String(r.queryID),
		NextToken:        r.nextToken,
	})
	if err != nil {
		return fmt.Errorf("get query results %s: %w", r.queryID, err)
	}

	rows := resp.ResultSet.Rows
	if !r.started {
		r.started = true
		// The first row of the first page is the column header.
		if r.skipHeader && len(rows) > 0 {
			rows = rows[1:]
		}
	}

	r.buf = rows
	r.nextToken = resp.NextToken
	if r.nextToken == nil {
		r.done = true
	}
	return nil
}

func datumStrings(row types.Row) []string {
	values := make([]string, len(row.Data))
	for i, d := range row.Data {
		values[i] = aws.ToString(d.VarCharValue)
	}
	return values
}
