package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T) string {
	t.Helper()
	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestGinMiddlewareLabelsByRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware())
	r.GET("/api/bookings/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, id := range []string{"1", "2"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/bookings/"+id, nil))
		require.Equal(t, http.StatusOK, w.Code)
	}

	body := scrape(t)
	assert.Contains(t, body, `home_services_http_requests_total{method="GET",route="/api/bookings/:id",status="200"}`)
	assert.NotContains(t, body, `route="/api/bookings/1"`)
}

func TestHandlerExposesDomainCounters(t *testing.T) {
	SlotConflicts.Inc()
	assert.Contains(t, scrape(t), "home_services_bookings_slot_conflicts_total")
}
