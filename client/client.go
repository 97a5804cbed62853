// Package client talks to a remote GET /logs search endpoint.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pierredavidbelanger/logscope/api"
	"github.com/pierredavidbelanger/logscope/query"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fastjson"
)

var ErrMalformedResponse = errors.New("malformed response body")

// StatusError is returned for any non-2xx answer of the endpoint.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("HTTP error! Status: %d (%s)", e.Code, e.Body)
	}
	return fmt.Sprintf("HTTP error! Status: %d", e.Code)
}

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Config struct {
	// Address of the server, e.g. http://localhost:8181/api/
	Address string

	// Timeout bounds a single request. Zero means 10 seconds.
	Timeout time.Duration

	// Client is used instead of a default http.Client when set.
	Client HTTPClient
}

type Client struct {
	endpoint string
	client   HTTPClient
	parser   fastjson.ParserPool
}

func New(config Config) (*Client, error) {
	u, err := url.Parse(config.Address)
	if err != nil {
		return nil, fmt.Errorf("invalid address %q: %w", config.Address, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid address %q: scheme must be http or https", config.Address)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid address %q: empty host", config.Address)
	}
	u.RawQuery = ""
	u.Fragment = ""

	c := &Client{
		endpoint: strings.TrimSuffix(u.String(), "/") + "/logs",
		client:   config.Client,
	}

	if c.client == nil {
		timeout := config.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		c.client = &http.Client{Timeout: timeout}
	}

	return c, nil
}

// Endpoint is the full URL of the search endpoint without query.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Fetch issues GET /logs with the given parameters and decodes the answer.
func (c *Client) Fetch(ctx context.Context, params url.Values) (*api.LogsResponse, error) {
	target := c.endpoint + "?" + query.Encode(params)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	log.Debug().Str("url", target).Msg("Fetching logs")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error fetching logs: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Body: errorMessage(body)}
	}

	return c.decode(body)
}

func (c *Client) decode(body []byte) (*api.LogsResponse, error) {
	p := c.parser.Get()
	defer c.parser.Put(p)

	v, err := p.ParseBytes(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedResponse, err)
	}
	if v.Type() != fastjson.TypeObject {
		return nil, fmt.Errorf("%w: expected an object, got %s", ErrMalformedResponse, v.Type())
	}

	res := &api.LogsResponse{Logs: []*api.LogRecord{}}

	if logs := v.Get("logs"); logs != nil && logs.Type() != fastjson.TypeNull {
		items, err := logs.Array()
		if err != nil {
			return nil, fmt.Errorf("%w: logs: %s", ErrMalformedResponse, err)
		}
		for i, item := range items {
			if item.Type() != fastjson.TypeObject {
				return nil, fmt.Errorf("%w: logs[%d] is not an object", ErrMalformedResponse, i)
			}
			r := &api.LogRecord{}
			if err := r.UnmarshalJSON(item.MarshalTo(nil)); err != nil {
				return nil, fmt.Errorf("%w: logs[%d]: %s", ErrMalformedResponse, i, err)
			}
			res.Logs = append(res.Logs, r)
		}
	}

	if count := v.Get("count"); count != nil && count.Type() != fastjson.TypeNull {
		n, err := count.Int()
		if err != nil || n < 0 || n > math.MaxInt32 {
			return nil, fmt.Errorf("%w: count must be a non-negative integer", ErrMalformedResponse)
		}
		res.Count = n
	}

	return res, nil
}

func errorMessage(body []byte) string {
	v, err := fastjson.ParseBytes(body)
	if err != nil {
		return ""
	}
	return string(v.GetStringBytes("error"))
}
