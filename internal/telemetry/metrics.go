package telemetry

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	apiv1 "flagfold/api/v1"
	"flagfold/internal/estree"
	"flagfold/internal/logging"
)

var (
	filesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "flagfold",
		Name:      "files_total",
		Help:      "Trees processed, by result (changed, unchanged, malformed, error).",
	}, []string{"result"})

	rewritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "flagfold",
		Name:      "rewrites_total",
		Help:      "Reference sites replaced, by virtual module.",
	}, []string{"specifier"})

	importsRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "flagfold",
		Name:      "imports_removed_total",
		Help:      "Import declarations dropped after pruning.",
	})

	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "flagfold",
		Name:      "cache_lookups_total",
		Help:      "Serve-mode result cache lookups, by result (hit, miss).",
	}, []string{"result"})

	transformSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "flagfold",
		Name:      "transform_seconds",
		Help:      "Time spent in one Transform call.",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
	})
)

// Observe records one Transform call. resp is ignored when err is set.
func Observe(resp *apiv1.Response, err error, elapsed time.Duration) {
	transformSeconds.Observe(elapsed.Seconds())
	switch {
	case errors.Is(err, estree.ErrMalformed), status.Code(err) == codes.InvalidArgument:
		filesTotal.WithLabelValues("malformed").Inc()
		return
	case err != nil:
		filesTotal.WithLabelValues("error").Inc()
		return
	}
	if resp.Changed() {
		filesTotal.WithLabelValues("changed").Inc()
	} else {
		filesTotal.WithLabelValues("unchanged").Inc()
	}
	for spec, n := range resp.BySpecifier {
		rewritesTotal.WithLabelValues(spec).Add(float64(n))
	}
	importsRemoved.Add(float64(len(resp.Removed)))
}

func CacheLookup(hit bool) {
	if hit {
		cacheLookups.WithLabelValues("hit").Inc()
		return
	}
	cacheLookups.WithLabelValues("miss").Inc()
}

// Expose serves /metrics on addr in the background. The returned server is
// shut down by the caller.
func Expose(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.L().Error("metrics: listen", "addr", addr, "err", err)
		}
	}()
	return srv
}
