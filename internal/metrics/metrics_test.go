package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestObserveRouteExposed(t *testing.T) {
	r := NewRegistry()
	r.ObserveRoute("check_stock", 0.8, true, false, 3*time.Millisecond)
	r.ObserveRoute("create_order", 0.8, false, true, time.Millisecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	text := string(body)
	for _, want := range []string{
		`desk_messages_routed_total{failed="false",intent="check_stock"} 1`,
		`desk_messages_routed_total{failed="true",intent="create_order"} 1`,
		"desk_refinements_total 1",
		"desk_handler_failures_total 1",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("metrics missing %q", want)
		}
	}
}
