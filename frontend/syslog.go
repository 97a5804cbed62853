package frontend

import (
	"encoding/json"
	"fmt"
	"github.com/pierredavidbelanger/logscope/api"
	"github.com/pierredavidbelanger/logscope/metrics"
	"github.com/pierredavidbelanger/logscope/spi"
	"github.com/pierredavidbelanger/logscope/utils"
	"github.com/rs/zerolog/log"
	"gopkg.in/mcuadros/go-syslog.v2"
	"gopkg.in/mcuadros/go-syslog.v2/format"
	"net/url"
	"strings"
	"sync"
	"time"
)

type syslogServerFrontend struct {
	e      spi.LogEngine
	b      spi.LogBackend
	logsQ  syslog.LogPartsChannel
	stopQ  chan *sync.Cond
	format format.Format
	server *syslog.Server
}

func newSyslogServerFrontend(e spi.LogEngine, frontendURL *url.URL) (*syslogServerFrontend, error) {

	if frontendURL.Host == "" {
		return nil, fmt.Errorf("Empty host in frontend URL '%s'", frontendURL)
	}

	syslogFormat, err := utils.GetSyslogFormatQueryParam(frontendURL, "format", syslog.RFC5424)
	if err != nil {
		return nil, err
	}

	queueSize, err := utils.GetIntQueryParam(frontendURL, "queueSize", 512)
	if err != nil {
		return nil, err
	}

	timeout, err := utils.GetDurationQueryParam(frontendURL, "timeout", 0*time.Second)
	if err != nil {
		return nil, err
	}

	f := syslogServerFrontend{}
	f.e = e

	logsQ := make(syslog.LogPartsChannel, queueSize)
	f.logsQ = logsQ

	stopQ := make(chan *sync.Cond, 1)
	f.stopQ = stopQ

	f.format = syslogFormat

	server := syslog.NewServer()
	server.SetFormat(syslogFormat)
	server.SetTimeout(int64(timeout.Seconds() * 1000))
	server.SetHandler(syslog.NewChannelHandler(logsQ))
	switch strings.ToLower(frontendURL.Scheme) {
	case "syslog+tcp":
		err = server.ListenTCP(frontendURL.Host)
	case "syslog+udp":
		err = server.ListenUDP(frontendURL.Host)
	}
	if err != nil {
		return nil, err
	}
	f.server = server

	return &f, nil
}

func (f *syslogServerFrontend) Start() error {

	_, b := f.e.GetBackend()
	f.b = b

	err := f.server.Boot()
	if err != nil {
		return err
	}

	go f.run()

	return nil
}

func (f *syslogServerFrontend) Close() error {

	cond := sync.NewCond(&sync.Mutex{})
	cond.L.Lock()
	f.stopQ <- cond
	cond.Wait()
	cond.L.Unlock()

	return f.server.Kill()
}

func (f *syslogServerFrontend) run() {
	for {
		select {
		case logParts := <-f.logsQ:
			if _, err := f.b.Insert(&api.InsertRequest{Record: toLogRecord(f.format, logParts)}); err != nil {
				log.Error().Err(err).Msg("Unable to insert syslog message")
				continue
			}
			metrics.RecordIngested("syslog", 1)
		case cond := <-f.stopQ:
			cond.L.Lock()
			cond.Broadcast()
			cond.L.Unlock()
			return
		}
	}
}

// severityLevel maps a syslog severity (0 emergency .. 7 debug) to a level.
func severityLevel(severity int) string {
	switch {
	case severity <= 3:
		return "error"
	case severity == 4:
		return "warn"
	case severity <= 6:
		return "info"
	}
	return "debug"
}

func toLogRecord(f format.Format, logParts format.LogParts) *api.LogRecord {
	r := api.LogRecord{Timestamp: time.Now().UTC(), Level: "info"}
	if val, ok := logParts["timestamp"].(time.Time); ok && !val.IsZero() {
		r.Timestamp = val.UTC()
	}
	if val, ok := logParts["severity"].(int); ok {
		r.Level = severityLevel(val)
	}
	if val, ok := logParts["hostname"].(string); ok {
		r.ResourceID = val
	}
	metadata := map[string]string{}
	switch f {
	case syslog.RFC3164:
		if val, ok := logParts["tag"].(string); ok && val != "" {
			metadata["application"] = val
		}
		if val, ok := logParts["content"].(string); ok {
			r.Message = val
		}
	case syslog.RFC5424:
		if val, ok := logParts["app_name"].(string); ok && val != "" && val != "-" {
			metadata["application"] = val
		}
		if val, ok := logParts["proc_id"].(string); ok && val != "" && val != "-" {
			metadata["processId"] = val
		}
		if val, ok := logParts["msg_id"].(string); ok && val != "" && val != "-" {
			metadata["messageId"] = val
		}
		if val, ok := logParts["message"].(string); ok {
			r.Message = val
		}
	}
	if len(metadata) > 0 {
		if data, err := json.Marshal(metadata); err == nil {
			r.Extra = map[string]json.RawMessage{"metadata": data}
		}
	}
	return &r
}
