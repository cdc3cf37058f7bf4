package logclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tasklight/tasklight/internal/model"
)

func TestFetchRangeDecodesEntries(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	var gotQuery map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/logs" {
			t.Errorf("path = %s, want /api/v1/logs", r.URL.Path)
		}
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		json.NewEncoder(w).Encode(queryLogsResponse{
			Entries: []model.LogEntry{
				{ID: "e1", Timestamp: base, Level: "INFO", Message: "started"},
				{ID: "e2", Timestamp: base.Add(time.Second), Level: "ERROR", Message: "boom"},
			},
			Count: 2,
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	entries, err := c.FetchRange(context.Background(), model.Query{
		Start:  base,
		End:    base.Add(time.Hour),
		Task:   "train-model",
		Levels: []string{"INFO", "ERROR"},
		Limit:  100,
	})
	if err != nil {
		t.Fatalf("FetchRange: %v", err)
	}
	if len(entries) != 2 || entries[0].ID != "e1" || entries[1].Level != "ERROR" {
		t.Fatalf("entries = %+v, want e1/e2", entries)
	}

	if gotQuery["task"] != "train-model" {
		t.Errorf("task param = %q, want train-model", gotQuery["task"])
	}
	if gotQuery["levels"] != "INFO,ERROR" {
		t.Errorf("levels param = %q, want INFO,ERROR", gotQuery["levels"])
	}
	if gotQuery["limit"] != "100" {
		t.Errorf("limit param = %q, want 100", gotQuery["limit"])
	}
	if gotQuery["start"] == "" || gotQuery["end"] == "" {
		t.Errorf("start/end params missing: %v", gotQuery)
	}
}

func TestFetchRangeStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := New(srv.URL).FetchRange(context.Background(), model.Query{})
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("error = %v, want StatusError", err)
	}
	if se.HTTPStatus() != http.StatusServiceUnavailable {
		t.Fatalf("HTTPStatus = %d, want 503", se.HTTPStatus())
	}
}

func TestTasks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/tasks" {
			t.Errorf("path = %s, want /api/v1/tasks", r.URL.Path)
		}
		json.NewEncoder(w).Encode(listTasksResponse{
			Tasks: []model.TaskStat{{Task: "train-model", Count: 42, Errors: 2}},
		})
	}))
	defer srv.Close()

	tasks, err := New(srv.URL).Tasks(context.Background())
	if err != nil {
		t.Fatalf("Tasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Task != "train-model" || tasks[0].Count != 42 {
		t.Fatalf("tasks = %+v, want train-model with 42 rows", tasks)
	}
}

func TestSubscribeDeliversFrames(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/logs/stream" {
			t.Errorf("path = %s, want /api/v1/logs/stream", r.URL.Path)
		}
		if got := r.URL.Query().Get("since"); got == "" {
			t.Error("since param missing")
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fl := w.(http.Flusher)

		fmt.Fprint(w, ": connected\n\n")
		for i, level := range []string{"INFO", "WARN"} {
			e := model.LogEntry{ID: fmt.Sprintf("e%d", i+1), Timestamp: base.Add(time.Duration(i) * time.Second), Level: level}
			b, _ := json.Marshal(e)
			fmt.Fprintf(w, "data: %s\n\n", b)
		}
		fmt.Fprint(w, ": ping\n\n")
		fmt.Fprint(w, "data: {not json}\n\n")
		fl.Flush()
	}))
	defer srv.Close()

	var connected bool
	var got []string
	err := New(srv.URL).Subscribe(context.Background(), model.Query{Start: base.Add(-time.Minute)},
		func() { connected = true },
		func(e model.LogEntry) { got = append(got, e.ID) })
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if !connected {
		t.Fatal("connected callback never fired")
	}
	if len(got) != 2 || got[0] != "e1" || got[1] != "e2" {
		t.Fatalf("pushed entries = %v, want [e1 e2]", got)
	}
}

func TestSubscribeRejectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad task", http.StatusBadRequest)
	}))
	defer srv.Close()

	var connected bool
	err := New(srv.URL).Subscribe(context.Background(), model.Query{}, func() { connected = true }, nil)
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusBadRequest {
		t.Fatalf("error = %v, want StatusError 400", err)
	}
	if connected {
		t.Fatal("connected fired on a rejected subscription")
	}
}

func TestSubscribeCancelledContext(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.(http.Flusher).Flush()
		<-release
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	err := New(srv.URL).Subscribe(ctx, model.Query{}, nil, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}
