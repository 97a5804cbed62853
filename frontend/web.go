package frontend

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"github.com/pierredavidbelanger/logscope/spi"
	"github.com/pierredavidbelanger/logscope/utils"
)

type webFrontend struct {
	e    spi.LogEngine
	b    spi.LogBackend
	addr string
	path string
	gzip bool
	s    *http.Server
}

func initWebFrontend(e spi.LogEngine, frontendURL *url.URL, f *webFrontend) error {
	f.e = e
	if frontendURL.Host == "" {
		return fmt.Errorf("Empty host in frontend URL '%s'", frontendURL)
	}
	f.addr = frontendURL.Host
	f.path = frontendURL.Path
	if !strings.HasPrefix(f.path, "/") {
		f.path = "/" + f.path
	}
	if !strings.HasSuffix(f.path, "/") {
		f.path += "/"
	}
	gzip, err := utils.GetBoolQueryParam(frontendURL, "gzip", true)
	if err != nil {
		return err
	}
	f.gzip = gzip
	return nil
}

func (f *webFrontend) startHandler(h http.Handler) error {

	_, b := f.e.GetBackend()
	f.b = b

	if f.gzip {
		h = gzhttp.GzipHandler(h)
	}

	f.s = &http.Server{Addr: f.addr, Handler: h, ReadHeaderTimeout: 10 * time.Second}

	ln, err := net.Listen("tcp", f.addr)
	if err != nil {
		return err
	}

	go f.s.Serve(ln)

	return nil
}

func (f *webFrontend) close() error {
	if f.s == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return f.s.Shutdown(ctx)
}
