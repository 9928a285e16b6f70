package testutil

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/banshee-data/step.report/internal/monitoring"
)

func TestShortTuning(t *testing.T) {
	cfg := ShortTuning(30)
	if cfg.GetPeriodSeconds() != 30 {
		t.Errorf("period = %d, want 30", cfg.GetPeriodSeconds())
	}
	if cfg.GetSampleCount() != 1500 {
		t.Errorf("sample count = %d, want 1500", cfg.GetSampleCount())
	}
}

func TestRunSession(t *testing.T) {
	monitoring.SetLogger(nil)
	defer monitoring.SetLogger(nil)

	s := RunSession(t, 42, 20)
	if len(s.Samples) != 1000 {
		t.Errorf("samples = %d, want 1000", len(s.Samples))
	}
	if !s.StartedAt.Equal(Epoch) {
		t.Errorf("started at %v, want %v", s.StartedAt, Epoch)
	}
}

func TestAssertStatusCode(t *testing.T) {
	AssertStatusCode(t, http.StatusOK, http.StatusOK)
}

func TestAssertContentType(t *testing.T) {
	rec := httptest.NewRecorder()
	rec.Header().Set("Content-Type", "text/html; charset=utf-8")
	AssertContentType(t, rec, "text/html")

	rec.Header().Set("Content-Type", "application/json")
	AssertContentType(t, rec, "application/json")
}

func TestNewFormRequest(t *testing.T) {
	req := NewFormRequest(http.MethodPost, "/api/session/regenerate", url.Values{"seed": {"7"}})
	if err := req.ParseForm(); err != nil {
		t.Fatalf("ParseForm: %v", err)
	}
	if got := req.PostForm.Get("seed"); got != "7" {
		t.Errorf("seed = %q, want 7", got)
	}
}
