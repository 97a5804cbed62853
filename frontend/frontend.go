package frontend

import (
	"fmt"
	"github.com/pierredavidbelanger/logscope/spi"
	"net/url"
)

func NewFrontend(e spi.LogEngine, frontendURL *url.URL) (spi.LogFrontend, error) {
	switch frontendURL.Scheme {
	case "syslog+tcp", "syslog+udp":
		return newSyslogServerFrontend(e, frontendURL)
	case "api+http":
		return newAPIFrontend(e, frontendURL)
	}
	return nil, fmt.Errorf("Invalid frontend %s", frontendURL.Scheme)
}
