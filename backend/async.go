package backend

import (
	"fmt"
	"github.com/pierredavidbelanger/logscope/api"
	"github.com/pierredavidbelanger/logscope/utils"
	"net/url"
	"sync"
	"time"
)

type queryResult struct {
	res *api.LogsResponse
	err error
}

type queryM struct {
	req *api.LogQuery
	res chan queryResult
}

func newQueryM(req *api.LogQuery) *queryM {
	return &queryM{req, make(chan queryResult, 1)}
}

func (m *queryM) push(c chan *queryM) *queryM {
	c <- m
	return m
}

func (m *queryM) pollWithTimeout(d time.Duration) (*api.LogsResponse, error) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case v := <-m.res:
		return v.res, v.err
	case <-t.C:
		return nil, fmt.Errorf("operation timed out after %s", d)
	}
}

type asyncBackend struct {
	insertQ chan *api.LogRecord
	queryQ  chan *queryM
	stopQ   chan *sync.Cond
	timeout time.Duration
}

func initAsyncBackend(backendURL *url.URL, b *asyncBackend) error {
	insertQueueSize, err := utils.GetIntQueryParam(backendURL, "insertQueueSize", 512)
	if err != nil {
		return err
	}
	queryQueueSize, err := utils.GetIntQueryParam(backendURL, "queryQueueSize", 16)
	if err != nil {
		return err
	}
	timeout, err := utils.GetDurationQueryParam(backendURL, "timeout", 5*time.Second)
	if err != nil {
		return err
	}
	b.insertQ = make(chan *api.LogRecord, insertQueueSize)
	b.queryQ = make(chan *queryM, queryQueueSize)
	b.stopQ = make(chan *sync.Cond, 1)
	b.timeout = timeout
	return nil
}
