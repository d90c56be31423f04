package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kram",
		Name:      "http_requests_total",
		Help:      "HTTP requests served, by method and status class.",
	}, []string{"method", "status"})
	Generations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kram",
		Name:      "generations_total",
		Help:      "Generation pipeline runs, by outcome (ok or failing phase).",
	}, []string{"outcome"})
	UpstreamRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "kram",
		Name:      "upstream_retries_total",
		Help:      "Retries issued against the external AI APIs.",
	})
	GalleryQueryRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "kram",
		Name:      "gallery_query_retries_total",
		Help:      "Gallery query retries after transient database errors.",
	})
)

// Init registers collectors; call once from main.
func Init() {
	prometheus.MustRegister(HTTPRequests, Generations, UpstreamRetries, GalleryQueryRetries)
}

// Handler returns the /metrics endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
