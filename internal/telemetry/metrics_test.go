package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	apiv1 "flagfold/api/v1"
	"flagfold/internal/registry"
	"flagfold/internal/estree"
)

func TestObserve(t *testing.T) {
	changed := testutil.ToFloat64(filesTotal.WithLabelValues("changed"))
	malformed := testutil.ToFloat64(filesTotal.WithLabelValues("malformed"))
	rewrites := testutil.ToFloat64(rewritesTotal.WithLabelValues(registry.DebugModule))
	removed := testutil.ToFloat64(importsRemoved)

	resp := &apiv1.Response{
		Rewritten:   2,
		BySpecifier: map[string]int{registry.DebugModule: 2},
		Removed:     []string{registry.DebugModule},
	}
	Observe(resp, nil, time.Millisecond)
	Observe(nil, estree.Malformed("no body"), time.Millisecond)

	assert.Equal(t, changed+1, testutil.ToFloat64(filesTotal.WithLabelValues("changed")))
	assert.Equal(t, malformed+1, testutil.ToFloat64(filesTotal.WithLabelValues("malformed")))
	assert.Equal(t, rewrites+2, testutil.ToFloat64(rewritesTotal.WithLabelValues(registry.DebugModule)))
	assert.Equal(t, removed+1, testutil.ToFloat64(importsRemoved))
}

func TestCacheLookup(t *testing.T) {
	hits := testutil.ToFloat64(cacheLookups.WithLabelValues("hit"))
	CacheLookup(true)
	CacheLookup(false)
	assert.Equal(t, hits+1, testutil.ToFloat64(cacheLookups.WithLabelValues("hit")))
}
