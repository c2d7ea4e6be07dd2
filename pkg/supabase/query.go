package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Query builds one PostgREST request. Exactly the insert/select/eq/limit
// vocabulary is supported; anything else the service does not use.
type Query struct {
	client *Client
	table  string

	selectCols string
	filters    []filter
	limit      int
	countExact bool

	insertRows      []map[string]any
	wantRepresent   bool
	pendingInsertOp bool
}

type filter struct {
	column string
	op     string
	value  string
}

// Select sets the returned columns for a read, or requests the inserted
// representation back after an Insert.
func (q *Query) Select(columns ...string) *Query {
	if q.pendingInsertOp {
		q.wantRepresent = true
		return q
	}
	if len(columns) == 0 {
		q.selectCols = "*"
	} else {
		q.selectCols = strings.Join(columns, ",")
	}
	return q
}

// Eq adds an equality filter on a column.
func (q *Query) Eq(column string, value any) *Query {
	q.filters = append(q.filters, filter{column: column, op: "eq", value: fmt.Sprintf("%v", value)})
	return q
}

// Limit caps the number of returned rows.
func (q *Query) Limit(n int) *Query {
	q.limit = n
	return q
}

// Count requests an exact row count alongside the read.
func (q *Query) Count() *Query {
	q.countExact = true
	return q
}

// Insert stages rows for insertion. Follow with Select to get the inserted
// representation back, then Execute.
func (q *Query) Insert(rows ...map[string]any) *Query {
	q.insertRows = rows
	q.pendingInsertOp = true
	return q
}

// Execute performs the staged request and decodes the rows. Backend failures
// come back as *APIError with code and message.
func (q *Query) Execute(ctx context.Context) ([]map[string]any, error) {
	if q.pendingInsertOp {
		return q.executeInsert(ctx)
	}
	rows, _, err := q.executeSelect(ctx)
	return rows, err
}

// ExecuteWithCount performs a read and returns the exact total row count
// reported by the backend.
func (q *Query) ExecuteWithCount(ctx context.Context) ([]map[string]any, int, error) {
	q.countExact = true
	return q.executeSelect(ctx)
}

func (q *Query) executeSelect(ctx context.Context) ([]map[string]any, int, error) {
	params := url.Values{}
	cols := q.selectCols
	if cols == "" {
		cols = "*"
	}
	params.Set("select", cols)
	for _, f := range q.filters {
		params.Add(f.column, f.op+"."+f.value)
	}
	if q.limit >= 0 {
		params.Set("limit", strconv.Itoa(q.limit))
	}

	headers := map[string]string{}
	if q.countExact {
		headers["Prefer"] = "count=exact"
	}

	endpoint := fmt.Sprintf("%s/rest/v1/%s?%s", q.client.baseURL, q.table, params.Encode())
	body, respHeaders, err := q.client.do(ctx, http.MethodGet, endpoint, headers, nil)
	if err != nil {
		return nil, 0, err
	}

	var rows []map[string]any
	if len(body) > 0 {
		if err := json.Unmarshal(body, &rows); err != nil {
			return nil, 0, fmt.Errorf("failed to decode response: %w", err)
		}
	}

	count := parseContentRangeCount(respHeaders.Get("Content-Range"))
	return rows, count, nil
}

func (q *Query) executeInsert(ctx context.Context) ([]map[string]any, error) {
	headers := map[string]string{}
	if q.wantRepresent {
		headers["Prefer"] = "return=representation"
	} else {
		headers["Prefer"] = "return=minimal"
	}

	endpoint := fmt.Sprintf("%s/rest/v1/%s", q.client.baseURL, q.table)
	body, _, err := q.client.do(ctx, http.MethodPost, endpoint, headers, q.insertRows)
	if err != nil {
		return nil, err
	}

	var rows []map[string]any
	if len(body) > 0 {
		if err := json.Unmarshal(body, &rows); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return rows, nil
}

// parseContentRangeCount extracts the total from a "0-24/3573" style header.
// Returns -1 when the header is absent or the total is unknown ("*").
func parseContentRangeCount(header string) int {
	if header == "" {
		return -1
	}
	parts := strings.Split(header, "/")
	if len(parts) != 2 || parts[1] == "*" {
		return -1
	}
	n, err := strconv.Atoi(parts[1])
	if err != nil {
		return -1
	}
	return n
}
