package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(Config{Address: srv.URL + "/api/"})
	require.NoError(t, err)

	return c
}

func TestNewRejectsBadAddress(t *testing.T) {
	_, err := New(Config{Address: "ftp://localhost/"})
	require.Error(t, err)

	_, err = New(Config{Address: "http://"})
	require.Error(t, err)

	c, err := New(Config{Address: "http://localhost:8181/api/?x=1"})
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8181/api/logs", c.Endpoint())
}

func TestFetchSendsCanonicalQuery(t *testing.T) {
	var got string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/logs", r.URL.Path)
		got = r.URL.RawQuery
		w.Write([]byte(`{"logs": [], "count": 0}`))
	})

	params := url.Values{}
	params.Set("page", "1")
	params.Set("limit", "10")
	params.Set("level", "ERROR")

	res, err := c.Fetch(context.Background(), params)
	require.NoError(t, err)
	require.Equal(t, "level=ERROR&limit=10&page=1", got)
	require.Empty(t, res.Logs)
	require.Equal(t, 0, res.Count)
}

func TestFetchDecodesRecords(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"logs": [
			{"level": "ERROR", "message": "Failed to connect", "timestamp": "2023-09-15T08:00:00Z",
			 "resourceId": "server-1234", "traceId": "abc", "commit": "5e5342f",
			 "metadata": {"parentResourceId": "server-0987"}}
		], "count": 25}`))
	})

	res, err := c.Fetch(context.Background(), url.Values{})
	require.NoError(t, err)
	require.Equal(t, 25, res.Count)
	require.Len(t, res.Logs, 1)
	require.Equal(t, "Failed to connect", res.Logs[0].Message)
	require.Equal(t, time.Date(2023, 9, 15, 8, 0, 0, 0, time.UTC), res.Logs[0].Timestamp.UTC())
	require.Equal(t, "server-0987", res.Logs[0].Metadata()["parentResourceId"])
}

func TestFetchMissingFieldsDefaultToEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"logs": null}`))
	})

	res, err := c.Fetch(context.Background(), url.Values{})
	require.NoError(t, err)
	require.NotNil(t, res.Logs)
	require.Empty(t, res.Logs)
	require.Equal(t, 0, res.Count)
}

func TestFetchKeepsRecordWithUnparsableTimestamp(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"logs": [{"level": "info", "message": "boot", "timestamp": ""}], "count": 1}`))
	})

	res, err := c.Fetch(context.Background(), url.Values{})
	require.NoError(t, err)
	require.Len(t, res.Logs, 1)
	require.Equal(t, "boot", res.Logs[0].Message)
	require.True(t, res.Logs[0].Timestamp.IsZero())
	require.JSONEq(t, `""`, string(res.Logs[0].Extra["timestamp"]))
}

func TestFetchStatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Failed to query logs"}`))
	})

	_, err := c.Fetch(context.Background(), url.Values{})
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	require.Equal(t, 500, se.Code)
	require.Equal(t, "HTTP error! Status: 500 (Failed to query logs)", err.Error())
}

func TestFetchMalformedBody(t *testing.T) {
	bodies := []string{
		`not json`,
		`[1, 2, 3]`,
		`{"logs": "nope", "count": 1}`,
		`{"logs": [42], "count": 1}`,
		`{"logs": [], "count": "many"}`,
		`{"logs": [], "count": -1}`,
		`{"logs": [{"message": "boot"}], "count": 2.5}`,
		`{"logs": [{"message": "boot"}], "count": 1e20}`,
		`{"logs": [], "count": 99999999999}`,
	}

	for _, body := range bodies {
		body := body
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		})

		_, err := c.Fetch(context.Background(), url.Values{})
		require.ErrorIs(t, err, ErrMalformedResponse, body)
	}
}

func TestFetchTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	address := srv.URL
	srv.Close()

	c, err := New(Config{Address: address})
	require.NoError(t, err)

	_, err = c.Fetch(context.Background(), url.Values{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "error fetching logs")
}

func TestFetchHonorsContext(t *testing.T) {
	block := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	})
	defer close(block)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Fetch(ctx, url.Values{})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
