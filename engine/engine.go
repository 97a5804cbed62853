package engine

import (
	"fmt"
	"github.com/pierredavidbelanger/logscope/backend"
	"github.com/pierredavidbelanger/logscope/frontend"
	"github.com/pierredavidbelanger/logscope/spi"
	"github.com/rs/zerolog/log"
	"net/url"
	"os"
	"os/signal"
	"syscall"
)

type engine struct {
	backURL   *url.URL
	frontURLs []*url.URL
	back      spi.LogBackend
	fronts    []spi.LogFrontend
	backUp    bool
	started   int
}

func NewEngine(backendURL *url.URL, frontendURLs []*url.URL) (spi.LogEngine, error) {

	e := engine{}

	b, err := backend.NewBackend(&e, backendURL)
	if err != nil {
		return nil, fmt.Errorf("Unable to create backend '%s': %w", backendURL, err)
	}
	e.backURL = backendURL
	e.back = b

	for _, frontendURL := range frontendURLs {
		f, err := frontend.NewFrontend(&e, frontendURL)
		if err != nil {
			return nil, fmt.Errorf("Unable to create frontend '%s': %w", frontendURL, err)
		}
		e.frontURLs = append(e.frontURLs, frontendURL)
		e.fronts = append(e.fronts, f)
	}

	return &e, nil
}

func (e *engine) Start() error {

	log.Info().Str("url", e.backURL.String()).Msg("Start backend")
	if err := e.back.Start(); err != nil {
		return fmt.Errorf("Unable to start backend '%s': %w", e.backURL, err)
	}
	e.backUp = true
	e.started = 0

	for i, f := range e.fronts {
		log.Info().Str("url", e.frontURLs[i].String()).Msg("Start frontend")
		if err := f.Start(); err != nil {
			return fmt.Errorf("Unable to start frontend '%s': %w", e.frontURLs[i], err)
		}
		e.started = i + 1
	}

	return nil
}

func (e *engine) Close() error {

	for i, f := range e.fronts[:e.started] {
		if err := f.Close(); err != nil {
			log.Error().Err(err).Str("url", e.frontURLs[i].String()).Msg("Unable to close frontend")
		}
	}
	e.started = 0

	if !e.backUp {
		return nil
	}
	if err := e.back.Close(); err != nil {
		log.Error().Err(err).Str("url", e.backURL.String()).Msg("Unable to close backend")
	}
	e.backUp = false

	return nil
}

func (e *engine) Wait() error {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(c)
	s := <-c
	log.Info().Str("signal", s.String()).Msg("Shutting down")
	return nil
}

func (e *engine) GetBackend() (*url.URL, spi.LogBackend) {
	return e.backURL, e.back
}

func (e *engine) GetFrontends() ([]*url.URL, []spi.LogFrontend) {
	return e.frontURLs, e.fronts
}
