package postman

import (
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/nasa/YOGA-sub004/metrics"
)

// StatusServer exposes the metrics registered in package metrics over
// plain HTTP, for the optional run-time dashboard SPEC_FULL §4.4
// describes. It shares nothing with Server's TCP router beyond the
// process: a run can disable it entirely by never calling Serve.
type StatusServer struct {
	addr string
}

// NewStatusServer binds no socket until Serve is called.
func NewStatusServer(addr string) *StatusServer {
	return &StatusServer{addr: addr}
}

// Serve blocks, handling /metrics with fasthttp's adapter over the
// standard promhttp.Handler so the same Prometheus registry backs both
// a pull-based scrape and whatever local logging prints run totals.
func (s *StatusServer) Serve() error {
	h := fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	return fasthttp.ListenAndServe(s.addr, h)
}
