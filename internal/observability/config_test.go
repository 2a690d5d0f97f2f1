package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMountRespectsToggle(t *testing.T) {
	disabled := http.NewServeMux()
	Config{}.Mount(disabled)
	resp := httptest.NewRecorder()
	disabled.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected pprof to be absent, got %d", resp.Code)
	}

	enabled := http.NewServeMux()
	Config{EnablePprof: true}.Mount(enabled)
	resp = httptest.NewRecorder()
	enabled.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected pprof index, got %d", resp.Code)
	}
}
