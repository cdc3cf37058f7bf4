package logclient

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tasklight/tasklight/internal/model"
)

// Subscribe opens the SSE live stream and blocks, pushing each entry
// as it arrives. connected fires after the server accepts the
// subscription. Returns ctx.Err() on cancellation, a StatusError on a
// rejected subscription, nil when the server closes the stream
// cleanly. Comment frames (heartbeats) are skipped; a frame that does
// not decode is dropped rather than killing the stream.
func (c *Client) Subscribe(ctx context.Context, q model.Query, connected func(), push func(model.LogEntry)) error {
	u := c.baseURL + "/api/v1/logs/stream"
	if params := streamParams(q); len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("logclient: build stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.stream.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("logclient: open stream: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &StatusError{Code: resp.StatusCode}
	}
	if connected != nil {
		connected()
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	for scanner.Scan() {
		data, ok := strings.CutPrefix(scanner.Text(), "data: ")
		if !ok {
			continue
		}
		var e model.LogEntry
		if err := json.Unmarshal([]byte(data), &e); err != nil {
			continue
		}
		if push != nil {
			push(e)
		}
	}
	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("logclient: stream read: %w", err)
	}
	return nil
}

func streamParams(q model.Query) url.Values {
	v := url.Values{}
	if !q.Start.IsZero() {
		v.Set("since", q.Start.UTC().Format(time.RFC3339Nano))
	}
	if q.Task != "" {
		v.Set("task", q.Task)
	}
	if len(q.Levels) > 0 {
		v.Set("levels", strings.Join(q.Levels, ","))
	}
	return v
}
