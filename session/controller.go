// Package session owns the state of a log search: the last used criteria,
// the current page and the records of the last successful fetch.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pierredavidbelanger/logscope/api"
	"github.com/pierredavidbelanger/logscope/query"
	"github.com/rs/zerolog/log"
)

var ErrUnknownEntry = errors.New("unknown log entry")

// Fetcher executes a search against the /logs endpoint.
type Fetcher interface {
	Fetch(ctx context.Context, params url.Values) (*api.LogsResponse, error)
}

type Config struct {
	Fetcher Fetcher

	// Form provides the criteria for Trigger. A new empty form is used when nil.
	Form *Form

	// PageSize defaults to query.PageSize.
	PageSize int

	// Timeout bounds every fetch. Zero means 10 seconds.
	Timeout time.Duration

	// Location used to read start and end times. Defaults to time.Local.
	Location *time.Location
}

// Controller runs searches and page navigation. Responses of superseded
// requests are dropped: only the request holding the latest token may
// update the session.
type Controller struct {
	fetcher  Fetcher
	form     *Form
	pageSize int
	timeout  time.Duration
	loc      *time.Location

	mu      sync.Mutex
	session Session
	records map[string]*api.LogRecord
	token   uint64
	cancel  context.CancelFunc
}

func NewController(config Config) (*Controller, error) {
	if config.Fetcher == nil {
		return nil, errors.New("no fetcher provided")
	}

	c := &Controller{
		fetcher:  config.Fetcher,
		form:     config.Form,
		pageSize: config.PageSize,
		timeout:  config.Timeout,
		loc:      config.Location,
		records:  map[string]*api.LogRecord{},
	}

	if c.form == nil {
		c.form = NewForm()
	}
	if c.pageSize <= 0 {
		c.pageSize = query.PageSize
	}
	if c.timeout <= 0 {
		c.timeout = 10 * time.Second
	}
	if c.loc == nil {
		c.loc = time.Local
	}

	c.session = Session{
		State:       StateIdle,
		CurrentPage: 1,
		PageSize:    c.pageSize,
	}

	return c, nil
}

func (c *Controller) Form() *Form {
	return c.form
}

// Session returns a snapshot of the current state.
func (c *Controller) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.clone()
}

// Trigger starts a new search with the criteria currently in the form.
func (c *Controller) Trigger(ctx context.Context) Session {
	return c.Search(ctx, c.form.Criteria())
}

// Search starts a new search on page 1.
func (c *Controller) Search(ctx context.Context, criteria api.FilterCriteria) Session {
	return c.run(ctx, criteria, 1)
}

// NextPage fetches the following page with the last used criteria. It
// reports false, without issuing a request, when already on the last page.
func (c *Controller) NextPage(ctx context.Context) (Session, bool) {
	return c.navigate(ctx, 1)
}

// PrevPage is the counterpart of NextPage.
func (c *Controller) PrevPage(ctx context.Context) (Session, bool) {
	return c.navigate(ctx, -1)
}

// ClearFilters empties the form. It does not search.
func (c *Controller) ClearFilters() {
	c.form.Clear()
}

// Detail returns the record of the current page with the given entry id
// and its indented JSON form.
func (c *Controller) Detail(id string) (*api.LogRecord, string, error) {
	c.mu.Lock()
	r, ok := c.records[id]
	c.mu.Unlock()

	if !ok {
		return nil, "", ErrUnknownEntry
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, "", err
	}

	return r, string(data), nil
}

func (c *Controller) navigate(ctx context.Context, delta int) (Session, bool) {
	c.mu.Lock()
	s := &c.session
	target := s.CurrentPage + delta
	if (s.State != StateReady && s.State != StateError) || target < 1 || target > s.TotalPages {
		snapshot := s.clone()
		c.mu.Unlock()
		return snapshot, false
	}
	criteria := s.Criteria
	ctx, cancel, token := c.begin(ctx, criteria, target)
	c.mu.Unlock()

	return c.finish(ctx, cancel, token, criteria, target), true
}

func (c *Controller) run(ctx context.Context, criteria api.FilterCriteria, page int) Session {
	c.mu.Lock()
	ctx, cancel, token := c.begin(ctx, criteria, page)
	c.mu.Unlock()

	return c.finish(ctx, cancel, token, criteria, page)
}

// begin takes a new token, cancels the request in flight and moves the
// session to Loading. c.mu must be held.
func (c *Controller) begin(ctx context.Context, criteria api.FilterCriteria, page int) (context.Context, context.CancelFunc, uint64) {
	c.token++
	if c.cancel != nil {
		c.cancel()
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	c.cancel = cancel
	c.session.State = StateLoading
	c.session.Criteria = criteria
	c.session.CurrentPage = page
	return ctx, cancel, c.token
}

func (c *Controller) finish(ctx context.Context, cancel context.CancelFunc, token uint64, criteria api.FilterCriteria, page int) Session {
	defer cancel()

	params, err := query.Build(criteria, page, c.pageSize, c.loc)

	var res *api.LogsResponse
	if err == nil {
		log.Debug().Uint64("token", token).Str("query", query.Encode(params)).Msg("Searching logs")
		res, err = c.fetcher.Fetch(ctx, params)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if token != c.token {
		log.Debug().Uint64("token", token).Uint64("latest", c.token).Msg("Discarding superseded response")
		return c.session.clone()
	}
	c.cancel = nil

	if err != nil {
		log.Warn().Err(err).Int("page", page).Msg("Error searching logs")
		c.fail(err)
	} else {
		c.apply(res)
	}

	return c.session.clone()
}

func (c *Controller) apply(res *api.LogsResponse) {
	entries := make([]Entry, 0, len(res.Logs))
	records := make(map[string]*api.LogRecord, len(res.Logs))
	for _, r := range res.Logs {
		if r == nil {
			continue
		}
		id := uuid.NewString()
		entries = append(entries, Entry{ID: id, Record: r})
		records[id] = r
	}

	c.records = records
	c.session.State = StateReady
	c.session.Err = ""
	c.session.Entries = entries
	c.session.TotalMatches = res.Count
	c.session.TotalPages = totalPages(res.Count, c.pageSize)
	c.session.CurrentPage = clampPage(c.session.CurrentPage, c.session.TotalPages)
}

func (c *Controller) fail(err error) {
	c.records = map[string]*api.LogRecord{}
	c.session.State = StateError
	c.session.Err = err.Error()
	c.session.Entries = nil
	c.session.TotalMatches = 0
	c.session.TotalPages = 0
	c.session.CurrentPage = clampPage(c.session.CurrentPage, 0)
}
