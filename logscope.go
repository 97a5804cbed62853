package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/pierredavidbelanger/logscope/client"
	"github.com/pierredavidbelanger/logscope/engine"
	"github.com/pierredavidbelanger/logscope/session"
	"github.com/pierredavidbelanger/logscope/tui"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {

	var frontendArgs URLValues
	var backendArgs URLValues

	flag.Var(&frontendArgs, "frontend", "Frontend URLs")
	flag.Var(&backendArgs, "backend", "Backend URL")
	search := flag.String("search", os.Getenv("LOGSCOPE_SEARCH"), "Open the search interface against this API URL instead of running the server")
	timeout := flag.Duration("timeout", 10*time.Second, "Search request timeout")
	debug := flag.Bool("debug", false, "Enable debug logging")

	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if *search != "" {
		if err := runSearch(*search, *timeout, *debug); err != nil {
			log.Fatal().Err(err).Msg("Search interface failed")
		}
		return
	}

	if len(backendArgs) == 0 {
		backendArgs = append(backendArgs, mustParseURL(envOr("LOGSCOPE_BACKEND", "sqlite:///var/lib/logscope/logs.db")))
	} else if len(backendArgs) > 1 {
		log.Fatal().Msg("At most one backend must be defined")
	}

	if len(frontendArgs) == 0 {
		defaults := "syslog+udp://:514,syslog+tcp://:5514,api+http://:8181/api/"
		for _, s := range strings.Split(envOr("LOGSCOPE_FRONTENDS", defaults), ",") {
			if s = strings.TrimSpace(s); s != "" {
				frontendArgs = append(frontendArgs, mustParseURL(s))
			}
		}
	}

	e, err := engine.NewEngine(backendArgs[0], frontendArgs)
	if err != nil {
		log.Fatal().Err(err).Msg("Unable to create engine")
	}

	if err = e.Start(); err != nil {
		e.Close()
		log.Fatal().Err(err).Msg("Unable to start engine")
	}
	defer e.Close()

	e.Wait()
}

func runSearch(address string, timeout time.Duration, debug bool) error {

	// The terminal belongs to the interface; keep logs out of it.
	var out io.Writer = io.Discard
	if debug {
		f, err := os.OpenFile("logscope.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: out, NoColor: true, TimeFormat: time.RFC3339})

	c, err := client.New(client.Config{Address: address, Timeout: timeout})
	if err != nil {
		return err
	}

	ctrl, err := session.NewController(session.Config{Fetcher: c, Timeout: timeout})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	log.Info().Str("endpoint", c.Endpoint()).Msg("Starting search interface")

	return tui.Run(ctx, ctrl, time.Local)
}

func envOr(name, defaultValue string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return defaultValue
}

type URLValues []*url.URL

func (s *URLValues) String() string {
	return fmt.Sprintf("%+v", *s)
}

func (s *URLValues) Set(value string) error {
	parsed, err := url.Parse(value)
	if err != nil {
		return err
	}
	*s = append(*s, parsed)
	return nil
}

func mustParseURL(value string) *url.URL {
	parsed, err := url.Parse(value)
	if err != nil {
		log.Fatal().Err(err).Msg("Unable to parse URL")
	}
	return parsed
}
