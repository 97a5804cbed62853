package utils

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"gopkg.in/mcuadros/go-syslog.v2"
	"gopkg.in/mcuadros/go-syslog.v2/format"
)

func GetIntQueryParam(u *url.URL, name string, defaultValue int) (int, error) {
	s := u.Query().Get(name)
	if s == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s '%s': %w", name, s, err)
	}
	return v, nil
}

func GetBoolQueryParam(u *url.URL, name string, defaultValue bool) (bool, error) {
	s := u.Query().Get(name)
	if s == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s '%s': %w", name, s, err)
	}
	return v, nil
}

func GetDurationQueryParam(u *url.URL, name string, defaultValue time.Duration) (time.Duration, error) {
	s := u.Query().Get(name)
	if s == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s '%s': %w", name, s, err)
	}
	return v, nil
}

func GetRetentionQueryParam(u *url.URL, name string, defaultValue Retention) (Retention, error) {
	s := u.Query().Get(name)
	if s == "" {
		return defaultValue, nil
	}
	return ParseRetention(s)
}

func GetSyslogFormatQueryParam(u *url.URL, name string, defaultValue format.Format) (format.Format, error) {
	s := u.Query().Get(name)
	if s == "" {
		return defaultValue, nil
	}
	switch strings.ToUpper(s) {
	case "RFC3164":
		return syslog.RFC3164, nil
	case "RFC5424":
		return syslog.RFC5424, nil
	}
	return nil, fmt.Errorf("Invalid syslog format %s", s)
}
