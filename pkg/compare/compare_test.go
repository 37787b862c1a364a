package compare

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// fakeStore is an in-memory ObjectStore.
type fakeStore struct {
	mu sync.Mutex

	// listings maps "bucket/prefix" to the keys one listing page returns.
	listings map[string][]string
	listErr  error

	// objects maps "bucket/key" to downloadable content.
	objects map[string]string

	// uploads records "bucket/key" -> uploaded content.
	uploads map[string]string

	// copies records "srcBucket/srcKey -> dstBucket/dstKey" in completion order.
	copies []string

	// failCopyOn makes Copy fail for any source key containing the substring.
	failCopyOn string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		listings: make(map[string][]string),
		objects:  make(map[string]string),
		uploads:  make(map[string]string),
	}
}

func (s *fakeStore) ListPage(_ context.Context, bucket, prefix string) ([]string, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.listings[bucket+"/"+prefix], nil
}

func (s *fakeStore) Download(_ context.Context, bucket, key, localPath string) error {
	content, ok := s.objects[bucket+"/"+key]
	if !ok {
		return fmt.Errorf("no such object s3://%s/%s", bucket, key)
	}
	return os.WriteFile(localPath, []byte(content), 0o644)
}

func (s *fakeStore) Upload(_ context.Context, localPath, bucket, key string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads[bucket+"/"+key] = string(data)
	return nil
}

func (s *fakeStore) Copy(_ context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	if s.failCopyOn != "" && strings.Contains(srcKey, s.failCopyOn) {
		return errors.New("copy failed")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.copies = append(s.copies, srcBucket+"/"+srcKey+" -> "+dstBucket+"/"+dstKey)
	return nil
}

func (s *fakeStore) copyCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.copies)
}

// recordingEngine records executed statements and serves canned query rows.
type recordingEngine struct {
	execs     []string
	execErr   error
	queryRows [][]string
}

func (e *recordingEngine) Exec(_ context.Context, query string) error {
	if e.execErr != nil {
		return e.execErr
	}
	e.execs = append(e.execs, query)
	return nil
}

func (e *recordingEngine) Query(_ context.Context, query string) (Rows, error) {
	e.execs = append(e.execs, query)
	return &sliceRows{rows: e.queryRows}, nil
}

// diffEngine emulates the external engine's join/diff semantics over two key
// sets, so pipeline tests can assert actual comparison results.
type diffEngine struct {
	left  []string
	right []string

	// tables maps materialized join table names to their direction.
	tables map[string]JoinType
	execs  []string
}

func newDiffEngine(left, right []string) *diffEngine {
	return &diffEngine{left: left, right: right, tables: make(map[string]JoinType)}
}

func (e *diffEngine) Exec(_ context.Context, query string) error {
	e.execs = append(e.execs, query)
	if !strings.HasPrefix(query, "CREATE TABLE ") {
		return nil
	}
	name := strings.Fields(query)[2]
	switch {
	case strings.Contains(query, "LEFT JOIN"):
		e.tables[name] = JoinLeft
	case strings.Contains(query, "RIGHT JOIN"):
		e.tables[name] = JoinRight
	}
	return nil
}

func (e *diffEngine) Query(_ context.Context, query string) (Rows, error) {
	e.execs = append(e.execs, query)
	fields := strings.Fields(query)
	// SELECT <col> AS key FROM <table> WHERE <col> IS NULL
	if len(fields) < 10 {
		return nil, fmt.Errorf("unexpected query shape: %s", query)
	}
	name := fields[5]
	joinType, ok := e.tables[name]
	if !ok {
		return nil, fmt.Errorf("join table %s does not exist", name)
	}

	present, other := e.left, e.right
	wantSelect, wantNull := "left_key", "right_key"
	if joinType == JoinRight {
		present, other = e.right, e.left
		wantSelect, wantNull = "right_key", "left_key"
	}
	if fields[1] != wantSelect || fields[7] != wantNull {
		return nil, fmt.Errorf("query columns do not match %s join: %s", joinType, query)
	}

	otherSet := make(map[string]bool, len(other))
	for _, k := range other {
		otherSet[k] = true
	}
	var rows [][]string
	for _, k := range present {
		if !otherSet[k] {
			rows = append(rows, []string{k})
		}
	}
	return &sliceRows{rows: rows}, nil
}

// sliceRows serves rows from a slice and io.EOF at the end.
type sliceRows struct {
	rows   [][]string
	closed bool
}

func (r *sliceRows) Next(_ context.Context) ([]string, error) {
	if r.closed || len(r.rows) == 0 {
		return nil, io.EOF
	}
	row := r.rows[0]
	r.rows = r.rows[1:]
	return row, nil
}

func (r *sliceRows) Close() error {
	r.closed = true
	return nil
}
