// Package testutil provides shared fixtures for tests that need a finished
// session or an HTTP round trip.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/banshee-data/step.report/internal/config"
	"github.com/banshee-data/step.report/internal/session"
	"github.com/banshee-data/step.report/internal/timeutil"
)

// Epoch is the start time fixture sessions are stamped with.
var Epoch = time.Date(2026, time.October, 19, 7, 0, 0, 0, time.UTC)

// ShortTuning returns a default tuning document with a shorter session.
func ShortTuning(periodSeconds int) *config.TuningConfig {
	cfg := config.DefaultTuningConfig()
	cfg.PeriodSeconds = &periodSeconds
	return cfg
}

// NewRunner returns a session runner over ShortTuning with a mock clock
// fixed at Epoch.
func NewRunner(periodSeconds int) *session.Runner {
	return session.NewRunner(ShortTuning(periodSeconds), timeutil.NewMockClock(Epoch))
}

// RunSession runs one short session and fails the test on error.
func RunSession(t *testing.T, seed uint64, periodSeconds int) *session.Session {
	t.Helper()
	s, err := NewRunner(periodSeconds).Run(seed)
	if err != nil {
		t.Fatalf("session run failed: %v", err)
	}
	return s
}

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// AssertContentType checks the media type of rec, ignoring parameters.
func AssertContentType(t *testing.T, rec *httptest.ResponseRecorder, want string) {
	t.Helper()
	got, _, _ := strings.Cut(rec.Header().Get("Content-Type"), ";")
	if strings.TrimSpace(got) != want {
		t.Errorf("content-type = %q, want %q", got, want)
	}
}

// NewFormRequest builds a request with an url-encoded form body.
func NewFormRequest(method, path string, form url.Values) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}
