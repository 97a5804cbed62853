package spi

import (
	"errors"
	"github.com/pierredavidbelanger/logscope/api"
	"io"
	"net/url"
)

// ErrInvalidQuery marks errors caused by the search parameters themselves.
var ErrInvalidQuery = errors.New("invalid query")

type LogBackend interface {
	Start() error
	io.Closer
	Insert(*api.InsertRequest) (*api.InsertResponse, error)
	Query(*api.LogQuery) (*api.LogsResponse, error)
}

type LogFrontend interface {
	Start() error
	io.Closer
}

type LogEngine interface {
	Start() error
	Wait() error
	io.Closer
	GetBackend() (*url.URL, LogBackend)
	GetFrontends() ([]*url.URL, []LogFrontend)
}
