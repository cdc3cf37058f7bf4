// Package logclient is the HTTP transport behind the viewer: one-shot
// range queries against /api/v1/logs and a server-sent-events live
// subscription against /api/v1/logs/stream. Non-2xx responses surface
// as StatusError so the stream reconnector can tell client mistakes
// from server trouble.
package logclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tasklight/tasklight/internal/model"
)

const fetchTimeout = 30 * time.Second

// StatusError is a non-2xx HTTP response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("logclient: server returned %d %s", e.Code, http.StatusText(e.Code))
}

// HTTPStatus exposes the code for failure classification.
func (e *StatusError) HTTPStatus() int { return e.Code }

// Client talks to one tasklight server. Safe for concurrent use.
type Client struct {
	baseURL string
	// Separate clients: the fetch side carries a deadline, the stream
	// side must not or the subscription would be killed mid-flight.
	fetch  *http.Client
	stream *http.Client
}

// New returns a client for the server at baseURL (scheme://host:port).
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		fetch:   &http.Client{Timeout: fetchTimeout},
		stream:  &http.Client{},
	}
}

type queryLogsResponse struct {
	Entries []model.LogEntry `json:"entries"`
	Count   int              `json:"count"`
}

type listTasksResponse struct {
	Tasks []model.TaskStat `json:"tasks"`
}

// FetchRange returns one consistent batch for q, oldest first.
func (c *Client) FetchRange(ctx context.Context, q model.Query) ([]model.LogEntry, error) {
	var out queryLogsResponse
	if err := c.getJSON(ctx, "/api/v1/logs", fetchParams(q), &out); err != nil {
		return nil, err
	}
	return out.Entries, nil
}

// Tasks lists the tasks the server has seen, with lifecycle bounds.
func (c *Client) Tasks(ctx context.Context) ([]model.TaskStat, error) {
	var out listTasksResponse
	if err := c.getJSON(ctx, "/api/v1/tasks", nil, &out); err != nil {
		return nil, err
	}
	return out.Tasks, nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, dest any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("logclient: build request: %w", err)
	}
	resp, err := c.fetch.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("logclient: %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &StatusError{Code: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("logclient: decode %s: %w", path, err)
	}
	return nil
}

func fetchParams(q model.Query) url.Values {
	v := url.Values{}
	if !q.Start.IsZero() {
		v.Set("start", q.Start.UTC().Format(time.RFC3339Nano))
	}
	if !q.End.IsZero() {
		v.Set("end", q.End.UTC().Format(time.RFC3339Nano))
	}
	if q.Task != "" {
		v.Set("task", q.Task)
	}
	if len(q.Levels) > 0 {
		v.Set("levels", strings.Join(q.Levels, ","))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}
