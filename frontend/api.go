package frontend

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pierredavidbelanger/logscope/api"
	"github.com/pierredavidbelanger/logscope/metrics"
	"github.com/pierredavidbelanger/logscope/spi"
	"github.com/rs/zerolog/log"
)

type apiFrontend struct {
	webFrontend
}

func newAPIFrontend(e spi.LogEngine, frontendURL *url.URL) (*apiFrontend, error) {
	f := apiFrontend{}
	if err := initWebFrontend(e, frontendURL, &f.webFrontend); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *apiFrontend) Start() error {
	return f.startHandler(f.router())
}

func (f *apiFrontend) Close() error {
	return f.close()
}

func (f *apiFrontend) router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	g := r.Group(f.path)
	g.POST("", f.handleInsert)
	g.GET("logs", f.handleQuery)
	g.GET("metrics", gin.WrapH(metrics.Handler()))

	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("query", c.Request.URL.RawQuery).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(started)).
			Msg("HTTP request")
	}
}

func (f *apiFrontend) handleInsert(c *gin.Context) {
	data, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	var records []*api.LogRecord
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		err = json.Unmarshal(trimmed, &records)
	} else {
		r := &api.LogRecord{}
		err = json.Unmarshal(data, r)
		records = append(records, r)
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	now := time.Now().UTC()
	req := api.InsertRequest{}
	for _, r := range records {
		if r == nil {
			continue
		}
		if r.Timestamp.IsZero() {
			r.Timestamp = now
			delete(r.Extra, "timestamp")
		}
		req.Records = append(req.Records, r)
	}

	res, err := f.b.Insert(&req)
	if err != nil {
		log.Error().Err(err).Msg("Error inserting logs")
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to insert log: " + err.Error()})
		return
	}

	metrics.RecordIngested("http", res.Accepted)
	c.JSON(http.StatusOK, res)
}

func (f *apiFrontend) handleQuery(c *gin.Context) {
	q := api.LogQuery{}
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	res, err := f.b.Query(&q)
	if err != nil {
		if errors.Is(err, spi.ErrInvalidQuery) {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
			return
		}
		log.Error().Err(err).Msg("Error querying logs")
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to query logs"})
		return
	}

	c.JSON(http.StatusOK, res)
}
