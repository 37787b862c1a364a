// Package athenaq runs SQL statements on Amazon Athena.
//
// Every Exec or Query call is a self-contained query execution: started,
// polled to a terminal state, and (for Query) read through a lazy row
// sequence. There is no session or statement reuse between calls.
package athenaq

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/athena/types"
)

const defaultPollInterval = time.Second

// API is the subset of the Athena client surface used by Engine.
// *athena.Client satisfies it; tests substitute fakes.
type API interface {
	StartQueryExecution(ctx context.Context, params *athena.StartQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.StartQueryExecutionOutput, error)
	GetQueryExecution(ctx context.Context, params *athena.GetQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.GetQueryExecutionOutput, error)
	GetQueryResults(ctx context.Context, params *athena.GetQueryResultsInput, optFns ...func(*athena.Options)) (*athena.GetQueryResultsOutput, error)
}

// Config holds the Athena connection parameters.
type Config struct {
	// ResultLocation is the s3:// location Athena writes query results to.
	ResultLocation string
	// Schema is the database queries run against.
	Schema string
	// Region overrides the default AWS region when non-empty.
	Region string
	// PollInterval is the delay between query state polls (default 1s).
	PollInterval time.Duration
}

// Engine executes SQL statements on Athena.
type Engine struct {
	api API
	cfg Config
}

// NewEngine creates an engine using default AWS configuration.
func NewEngine(ctx context.Context, cfg Config) (*Engine, error) {
	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return NewEngineWithAPI(athena.NewFromConfig(awsCfg), cfg), nil
}

// NewEngineWithAPI creates an engine over an existing Athena API implementation.
func NewEngineWithAPI(api API, cfg Config) *Engine {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	return &Engine{api: api, cfg: cfg}
}

// Exec runs a statement to completion, discarding any results.
func (e *Engine) Exec(ctx context.Context, query string) error {
	id, err := e.start(ctx, query)
	if err != nil {
		return err
	}
	return e.wait(ctx, id)
}

// Query runs a statement to completion and returns its results as a lazy
// row sequence. The sequence is single-pass: iterating again requires
// re-executing the query.
func (e *Engine) Query(ctx context.Context, query string) (*Rows, error) {
	id, err := e.start(ctx, query)
	if err != nil {
		return nil, err
	}
	if err := e.wait(ctx, id); err != nil {
		return nil, err
	}
	return &Rows{api: e.api, queryID: id, skipHeader: true}, nil
}

func (e *Engine) start(ctx context.Context, query string) (string, error) {
	resp, err := e.api.StartQueryExecution(ctx, &athena.StartQueryExecutionInput{
		QueryString: aws.String(query),
		QueryExecutionContext: &types.QueryExecutionContext{
			Database: aws.String(e.cfg.Schema),
		},
		ResultConfiguration: &types.ResultConfiguration{
			OutputLocation: aws.String(e.cfg.ResultLocation),
		},
	})
	if err != nil {
		return "", fmt.Errorf("start query execution: %w", err)
	}
	return aws.ToString(resp.QueryExecutionId), nil
}

// wait polls the execution until it reaches a terminal state.
func (e *Engine) wait(ctx context.Context, queryID string) error {
	for {
		resp, err := e.api.GetQueryExecution(ctx, &athena.GetQueryExecutionInput{
			QueryExecutionId: aws.String(queryID),
		})
		if err != nil {
			return fmt.Errorf("get query execution %s: %w", queryID, err)
		}

		status := resp.QueryExecution.Status
		switch status.State {
		case types.QueryExecutionStateSucceeded:
			return nil
		case types.QueryExecutionStateFailed, types.QueryExecutionStateCancelled:
			return fmt.Errorf("query execution %s %s: %s",
				queryID, status.State, aws.ToString(status.StateChangeReason))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(e.cfg.PollInterval):
		}
	}
}
