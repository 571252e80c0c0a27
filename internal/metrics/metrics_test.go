package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Observe(t *testing.T) {
	r := NewRecorder()
	ctx := context.Background()

	r.Observe(ctx, "create_plan", true, 2*time.Millisecond)
	r.Observe(ctx, "create_plan", false, time.Millisecond)
	r.Observe(ctx, "create_plan", true, time.Millisecond)
	r.Observe(ctx, "", true, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.total.WithLabelValues("create_plan", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.total.WithLabelValues("create_plan", "error")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.duration))
}

func TestRecorder_Handler(t *testing.T) {
	r := NewRecorder()
	r.Observe(context.Background(), "claim_share", true, time.Millisecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `bequest_operations_total{operation="claim_share",result="success"} 1`)
	assert.Contains(t, body, "bequest_operation_duration_seconds_bucket")
	assert.Contains(t, body, "go_goroutines")
}
