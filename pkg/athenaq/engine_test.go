package athenaq

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/athena/types"
)

type fakeAthena struct {
	startErr error
	queries  []string

	// states is consumed one per GetQueryExecution call; the last repeats.
	states       []types.QueryExecutionState
	stateReason  string
	executionErr error

	// pages is consumed one per GetQueryResults call.
	pages      []*athena.GetQueryResultsOutput
	pageIndex  int
	resultsErr error
}

func (f *fakeAthena) StartQueryExecution(_ context.Context, params *athena.StartQueryExecutionInput, _ ...func(*athena.Options)) (*athena.StartQueryExecutionOutput, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.queries = append(f.queries, aws.ToString(params.QueryString))
	return &athena.StartQueryExecutionOutput{QueryExecutionId: aws.String("qid-1")}, nil
}

func (f *fakeAthena) GetQueryExecution(_ context.Context, _ *athena.GetQueryExecutionInput, _ ...func(*athena.Options)) (*athena.GetQueryExecutionOutput, error) {
	if f.executionErr != nil {
		return nil, f.executionErr
	}
	state := f.states[0]
	if len(f.states) > 1 {
		f.states = f.states[1:]
	}
	return &athena.GetQueryExecutionOutput{
		QueryExecution: &types.QueryExecution{
			Status: &types.QueryExecutionStatus{
				State:             state,
				StateChangeReason: aws.String(f.stateReason),
			},
		},
	}, nil
}

func (f *fakeAthena) GetQueryResults(_ context.Context, _ *athena.GetQueryResultsInput, _ ...func(*athena.Options)) (*athena.GetQueryResultsOutput, error) {
	if f.resultsErr != nil {
		return nil, f.resultsErr
	}
	page := f.pages[f.pageIndex]
	f.pageIndex++
	return page, nil
}

func row(values ...string) types.Row {
	data := make([]types.Datum, len(values))
	for i, v := range values {
		data[i] = types.Datum{VarCharValue: aws.String(v)}
	}
	return types.Row{Data: data}
}

func newTestEngine(api API) *Engine {
	return NewEngineWithAPI(api, Config{
		ResultLocation: "s3://results/queries/",
		Schema:         "default",
		PollInterval:   time.Millisecond,
	})
}

func TestExecSucceeds(t *testing.T) {
	api := &fakeAthena{states: []types.QueryExecutionState{
		types.QueryExecutionStateQueued,
		types.QueryExecutionStateRunning,
		types.QueryExecutionStateSucceeded,
	}}
	e := newTestEngine(api)

	if err := e.Exec(context.Background(), "DROP TABLE IF EXISTS t"); err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if len(api.queries) != 1 || api.queries[0] != "DROP TABLE IF EXISTS t" {
		t.Errorf("queries = %v", api.queries)
	}
}

func TestExecFailedState(t *testing.T) {
	api := &fakeAthena{
		states:      []types.QueryExecutionState{types.QueryExecutionStateFailed},
		stateReason: "SYNTAX_ERROR: line 1",
	}
	e := newTestEngine(api)

	err := e.Exec(context.Background(), "CREATE TABLE broken")
	if err == nil {
		t.Fatal("expected error for failed execution")
	}
	if !strings.Contains(err.Error(), "SYNTAX_ERROR") {
		t.Errorf("error = %v, want state change reason included", err)
	}
}

func TestExecStartError(t *testing.T) {
	api := &fakeAthena{startErr: errors.New("access denied")}
	e := newTestEngine(api)

	if err := e.Exec(context.Background(), "SELECT 1"); err == nil {
		t.Fatal("expected error")
	}
}

func TestQueryRowsSkipsHeaderAndPages(t *testing.T) {
	api := &fakeAthena{
		states: []types.QueryExecutionState{types.QueryExecutionStateSucceeded},
		pages: []*athena.GetQueryResultsOutput{
			{
				ResultSet: &types.ResultSet{Rows: []types.Row{
					row("key"), // header
					row("a"),
					row("b"),
				}},
				NextToken: aws.String("page2"),
			},
			{
				ResultSet: &types.ResultSet{Rows: []types.Row{
					row("c"),
				}},
			},
		},
	}
	e := newTestEngine(api)

	rows, err := e.Query(context.Background(), "SELECT key FROM t")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	defer rows.Close()

	var got []string
	ctx := context.Background()
	for {
		values, err := rows.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		got = append(got, values[0])
	}

	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("rows = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("row %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestQueryRowsNullColumn(t *testing.T) {
	api := &fakeAthena{
		states: []types.QueryExecutionState{types.QueryExecutionStateSucceeded},
		pages: []*athena.GetQueryResultsOutput{
			{
				ResultSet: &types.ResultSet{Rows: []types.Row{
					row("key"),
					{Data: []types.Datum{{VarCharValue: nil}}},
					row(""),
				}},
			},
		},
	}
	e := newTestEngine(api)

	rows, err := e.Query(context.Background(), "SELECT key FROM t")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}

	ctx := context.Background()
	first, err := rows.Next(ctx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if first[0] != "" {
		t.Errorf("null column = %q, want empty string", first[0])
	}

	// An empty-string value is an ordinary value, not a missing marker.
	second, err := rows.Next(ctx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if second[0] != "" {
		t.Errorf("empty column = %q", second[0])
	}

	if _, err := rows.Next(ctx); !errors.Is(err, io.EOF) {
		t.Errorf("error = %v, want io.EOF", err)
	}
}

func TestRowsCloseEndsSequence(t *testing.T) {
	api := &fakeAthena{
		states: []types.QueryExecutionState{types.QueryExecutionStateSucceeded},
		pages: []*athena.GetQueryResultsOutput{
			{
				ResultSet: &types.ResultSet{Rows: []types.Row{row("key"), row("a")}},
				NextToken: aws.String("more"),
			},
		},
	}
	e := newTestEngine(api)

	rows, err := e.Query(context.Background(), "SELECT key FROM t")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if err := rows.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := rows.Next(context.Background()); !errors.Is(err, io.EOF) {
		t.Errorf("Next after Close = %v, want io.EOF", err)
	}
}
