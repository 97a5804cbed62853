package frontend

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pierredavidbelanger/logscope/api"
	"github.com/pierredavidbelanger/logscope/backend"
	"github.com/pierredavidbelanger/logscope/client"
	"github.com/pierredavidbelanger/logscope/session"
	"github.com/pierredavidbelanger/logscope/spi"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	mu       sync.Mutex
	inserted []*api.LogRecord
	queries  []api.LogQuery
	res      *api.LogsResponse
	err      error
}

func (b *fakeBackend) Start() error { return nil }
func (b *fakeBackend) Close() error { return nil }

func (b *fakeBackend) Insert(req *api.InsertRequest) (*api.InsertResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if req.Record != nil {
		b.inserted = append(b.inserted, req.Record)
	}
	b.inserted = append(b.inserted, req.Records...)
	return &api.InsertResponse{Accepted: len(req.Records)}, nil
}

func (b *fakeBackend) Query(q *api.LogQuery) (*api.LogsResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queries = append(b.queries, *q)
	return b.res, b.err
}

func newTestAPI(t *testing.T, b spi.LogBackend) *httptest.Server {
	f := apiFrontend{}
	f.path = "/api/"
	f.b = b

	srv := httptest.NewServer(f.router())
	t.Cleanup(srv.Close)

	return srv
}

func TestInitWebFrontendNormalizesPath(t *testing.T) {
	f := webFrontend{}
	require.NoError(t, initWebFrontend(nil, &url.URL{Scheme: "api+http", Host: ":8181", Path: "api"}, &f))
	require.Equal(t, "/api/", f.path)
	require.True(t, f.gzip)

	require.Error(t, initWebFrontend(nil, &url.URL{Scheme: "api+http"}, &f))

	_, err := NewFrontend(nil, &url.URL{Scheme: "ui+http", Host: ":8282"})
	require.Error(t, err)
}

func TestInsertSingleAndBatch(t *testing.T) {
	b := &fakeBackend{}
	srv := newTestAPI(t, b)

	resp, err := http.Post(srv.URL+"/api/", "application/json", strings.NewReader(`{"level":"error","message":"boom","metadata":{"parentResourceId":"p-1"}}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/api/", "application/json", strings.NewReader(`[{"level":"info","message":"a","timestamp":"2023-09-15T08:00:00Z"},{"level":"info","message":"b"}]`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/api/", "application/json", strings.NewReader(`{"level":`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	b.mu.Lock()
	defer b.mu.Unlock()
	require.Len(t, b.inserted, 3)
	require.False(t, b.inserted[0].Timestamp.IsZero())
	require.Equal(t, "p-1", b.inserted[0].Metadata()["parentResourceId"])
	require.Equal(t, time.Date(2023, 9, 15, 8, 0, 0, 0, time.UTC), b.inserted[1].Timestamp.UTC())
}

func TestQueryBindsParameters(t *testing.T) {
	b := &fakeBackend{res: &api.LogsResponse{Logs: []*api.LogRecord{}, Count: 0}}
	srv := newTestAPI(t, b)

	resp, err := http.Get(srv.URL + "/api/logs?level=ERROR&parentResourceId=p-1&startTime=2023-09-15T06%3A00%3A00.000Z&regex=%5Efail&page=2&limit=10")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	b.mu.Lock()
	defer b.mu.Unlock()
	require.Len(t, b.queries, 1)
	q := b.queries[0]
	require.Equal(t, "ERROR", q.Level)
	require.Equal(t, "p-1", q.ParentResourceID)
	require.Equal(t, "^fail", q.Regex)
	require.Equal(t, 2, q.Page)
	require.Equal(t, 10, q.Limit)
	require.True(t, q.StartTime.Equal(time.Date(2023, 9, 15, 6, 0, 0, 0, time.UTC)))
	require.True(t, q.EndTime.IsZero())
}

func TestQueryErrors(t *testing.T) {
	b := &fakeBackend{err: fmt.Errorf("%w: regex: missing closing )", spi.ErrInvalidQuery)}
	srv := newTestAPI(t, b)

	resp, err := http.Get(srv.URL + "/api/logs?regex=(")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/logs?page=first")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	b.mu.Lock()
	b.err = fmt.Errorf("disk I/O error")
	b.mu.Unlock()

	c, err := client.New(client.Config{Address: srv.URL + "/api/"})
	require.NoError(t, err)

	_, err = c.Fetch(context.Background(), url.Values{})
	require.EqualError(t, err, "HTTP error! Status: 500 (Failed to query logs)")
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestAPI(t, &fakeBackend{})

	resp, err := http.Get(srv.URL + "/api/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

type testEngine struct {
	b spi.LogBackend
}

func (e *testEngine) Start() error { return nil }
func (e *testEngine) Wait() error  { return nil }
func (e *testEngine) Close() error { return nil }
func (e *testEngine) GetBackend() (*url.URL, spi.LogBackend) {
	return nil, e.b
}
func (e *testEngine) GetFrontends() ([]*url.URL, []spi.LogFrontend) {
	return nil, nil
}

// TestSearchSessionAgainstServer drives the search controller through the
// HTTP client against a SQLite backed API.
func TestSearchSessionAgainstServer(t *testing.T) {
	b, err := backend.NewBackend(nil, &url.URL{Scheme: "sqlite", Path: filepath.Join(t.TempDir(), "logs.db")})
	require.NoError(t, err)
	require.NoError(t, b.Start())
	defer b.Close()

	base := time.Date(2023, 9, 15, 8, 0, 0, 0, time.UTC)
	var records []*api.LogRecord
	for i := 0; i < 25; i++ {
		records = append(records, &api.LogRecord{Level: "ERROR", Message: fmt.Sprintf("boom %d", i), Timestamp: base.Add(time.Duration(i) * time.Second), ResourceID: "server-1234"})
	}
	records = append(records, &api.LogRecord{Level: "info", Message: "fine", Timestamp: base})
	_, err = b.Insert(&api.InsertRequest{Records: records})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		res, err := b.Query(&api.LogQuery{})
		return err == nil && res.Count == 26
	}, 5*time.Second, 10*time.Millisecond)

	f, err := newAPIFrontend(&testEngine{b: b}, &url.URL{Scheme: "api+http", Host: "127.0.0.1:0", Path: "/api/"})
	require.NoError(t, err)
	f.b = b
	srv := httptest.NewServer(f.router())
	defer srv.Close()

	c, err := client.New(client.Config{Address: srv.URL + "/api/"})
	require.NoError(t, err)

	ctrl, err := session.NewController(session.Config{Fetcher: c})
	require.NoError(t, err)
	ctx := context.Background()

	ctrl.Form().Set(session.FieldLevel, "ERROR")
	s := ctrl.Trigger(ctx)
	require.Equal(t, session.StateReady, s.State)
	require.Equal(t, 25, s.TotalMatches)
	require.Equal(t, 3, s.TotalPages)
	require.Len(t, s.Entries, 10)
	require.Equal(t, "boom 24", s.Entries[0].Record.Message)
	require.True(t, s.HasNext())
	require.False(t, s.HasPrev())

	s, ok := ctrl.NextPage(ctx)
	require.True(t, ok)
	s, ok = ctrl.NextPage(ctx)
	require.True(t, ok)
	require.Equal(t, 3, s.CurrentPage)
	require.Len(t, s.Entries, 5)
	require.Equal(t, "boom 0", s.Entries[4].Record.Message)

	_, ok = ctrl.NextPage(ctx)
	require.False(t, ok)

	_, text, err := ctrl.Detail(s.Entries[0].ID)
	require.NoError(t, err)
	require.Contains(t, text, `"resourceId": "server-1234"`)

	ctrl.Form().Set(session.FieldRegex, "([a-z")
	s = ctrl.Trigger(ctx)
	require.Equal(t, session.StateError, s.State)
	require.Empty(t, s.Entries)
	require.Contains(t, s.Message(), "HTTP error! Status: 400")
}
