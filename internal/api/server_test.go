package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/step.report/internal/db"
	"github.com/banshee-data/step.report/internal/monitoring"
	"github.com/banshee-data/step.report/internal/session"
	"github.com/banshee-data/step.report/internal/testutil"
	"github.com/banshee-data/step.report/internal/units"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	os.Exit(m.Run())
}

type recordingStore struct {
	saved []*session.Session
	err   error
}

func (s *recordingStore) SaveSession(sess *session.Session) error {
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, sess)
	return nil
}

func setupTestServer(t *testing.T, store SessionStore) (*Server, *session.Session) {
	t.Helper()
	initial := testutil.RunSession(t, 99, 20)
	return NewServer(testutil.NewRunner(20), initial, store), initial
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.ServeMux().ServeHTTP(rec, req)
	return rec
}

func TestShowSession(t *testing.T) {
	server, initial := setupTestServer(t, nil)

	rec := serve(server, httptest.NewRequest(http.MethodGet, "/api/session", nil))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	testutil.AssertContentType(t, rec, "application/json")

	var got SessionSummary
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, initial.ID, got.ID)
	assert.Equal(t, uint64(99), got.Seed)
	assert.Equal(t, 1000, got.SampleCount)
	assert.Equal(t, initial.TotalDetected(), got.TotalDetected)
	assert.Equal(t, 50, got.Config.SampleRate)
	assert.Equal(t, 15, got.Params.WindowSize)
	assert.Equal(t, "g", got.Units)
	assert.Equal(t, initial.Summary, got.Summary)
}

func TestShowSession_Units(t *testing.T) {
	server, initial := setupTestServer(t, nil)

	rec := serve(server, httptest.NewRequest(http.MethodGet, "/api/session?units=mps2", nil))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	var got SessionSummary
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "mps2", got.Units)
	assert.InDelta(t, initial.Summary.Magnitude.Mean*units.StandardGravity, got.Summary.Magnitude.Mean, 1e-9)
	assert.InDelta(t, initial.Result.Threshold*units.StandardGravity, got.Threshold, 1e-9)

	rec = serve(server, httptest.NewRequest(http.MethodGet, "/api/session?units=mph", nil))
	testutil.AssertStatusCode(t, rec.Code, http.StatusBadRequest)
	assert.Contains(t, rec.Body.String(), "g, mps2")
}

func TestGetHandlers_NoSession(t *testing.T) {
	server := NewServer(testutil.NewRunner(20), nil, nil)

	for _, path := range []string{"/api/session", "/api/steps", "/api/steps.csv", "/api/chart", "/api/plot.png"} {
		rec := serve(server, httptest.NewRequest(http.MethodGet, path, nil))
		testutil.AssertStatusCode(t, rec.Code, http.StatusNotFound)
	}
}

func TestGetHandlers_MethodNotAllowed(t *testing.T) {
	server, _ := setupTestServer(t, nil)

	for _, path := range []string{"/api/session", "/api/steps", "/api/steps.csv", "/api/chart", "/api/plot.png"} {
		rec := serve(server, httptest.NewRequest(http.MethodPost, path, nil))
		testutil.AssertStatusCode(t, rec.Code, http.StatusMethodNotAllowed)
	}
	rec := serve(server, httptest.NewRequest(http.MethodGet, "/api/session/regenerate", nil))
	testutil.AssertStatusCode(t, rec.Code, http.StatusMethodNotAllowed)
}

func TestListSteps(t *testing.T) {
	server, initial := setupTestServer(t, nil)

	rec := serve(server, httptest.NewRequest(http.MethodGet, "/api/steps", nil))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	var got StepsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, initial.ID, got.SessionID)
	assert.Equal(t, initial.TotalDetected(), got.Total)
	require.Len(t, got.Steps, got.Total)
	for i, e := range got.Steps {
		assert.True(t, e.Valid)
		assert.Equal(t, i, e.Ordinal)
	}
}

func TestDownloadCSV(t *testing.T) {
	server, initial := setupTestServer(t, nil)

	rec := serve(server, httptest.NewRequest(http.MethodGet, "/api/steps.csv", nil))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	testutil.AssertContentType(t, rec, "text/csv")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), fmt.Sprintf("steps-%s.csv", initial.ID))

	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "Step,Time\n"))
	assert.Equal(t, initial.TotalDetected()+1, strings.Count(body, "\n"))
	if initial.TotalDetected() > 0 {
		first := initial.Steps()[0]
		assert.Contains(t, body, fmt.Sprintf("\n1,%.3fs\n", first.Time))
	}
}

func TestShowChart(t *testing.T) {
	server, _ := setupTestServer(t, nil)

	rec := serve(server, httptest.NewRequest(http.MethodGet, "/api/chart", nil))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	testutil.AssertContentType(t, rec, "text/html")
	assert.Contains(t, rec.Body.String(), "Filtered magnitude")
}

func TestShowPlot(t *testing.T) {
	server, _ := setupTestServer(t, nil)

	rec := serve(server, httptest.NewRequest(http.MethodGet, "/api/plot.png", nil))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	testutil.AssertContentType(t, rec, "image/png")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))
}

func TestRegenerate_WithSeed(t *testing.T) {
	store := &recordingStore{}
	server, initial := setupTestServer(t, store)

	rec := serve(server, testutil.NewFormRequest(http.MethodPost, "/api/session/regenerate", url.Values{"seed": {"7"}}))
	testutil.AssertStatusCode(t, rec.Code, http.StatusCreated)

	var got SessionSummary
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, uint64(7), got.Seed)
	assert.NotEqual(t, initial.ID, got.ID)

	current := server.Session()
	assert.Equal(t, got.ID, current.ID)
	require.Len(t, store.saved, 1)
	assert.Same(t, current, store.saved[0])
}

func TestRegenerate_DefaultSeed(t *testing.T) {
	server, _ := setupTestServer(t, nil)

	rec := serve(server, httptest.NewRequest(http.MethodPost, "/api/session/regenerate", nil))
	testutil.AssertStatusCode(t, rec.Code, http.StatusCreated)
	assert.Equal(t, uint64(testutil.Epoch.UnixNano()), server.Session().Seed)
}

func TestRegenerate_InvalidSeed(t *testing.T) {
	server, initial := setupTestServer(t, nil)

	for _, seed := range []string{"abc", "-1", "1.5"} {
		rec := serve(server, testutil.NewFormRequest(http.MethodPost, "/api/session/regenerate", url.Values{"seed": {seed}}))
		testutil.AssertStatusCode(t, rec.Code, http.StatusBadRequest)
	}
	assert.Same(t, initial, server.Session())
}

func TestRegenerate_StoreError(t *testing.T) {
	server, initial := setupTestServer(t, &recordingStore{err: errors.New("disk full")})

	rec := serve(server, testutil.NewFormRequest(http.MethodPost, "/api/session/regenerate", url.Values{"seed": {"3"}}))
	testutil.AssertStatusCode(t, rec.Code, http.StatusCreated)

	var got RegenerateResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "disk full", got.StoreError)
	assert.NotEqual(t, initial.ID, got.ID)
	assert.Equal(t, got.ID, server.Session().ID, "the new session is served even when saving fails")
}

func TestRegenerate_PartialStoreFailureServesSavedSession(t *testing.T) {
	database, err := db.NewDB(filepath.Join(t.TempDir(), "steps.db"))
	require.NoError(t, err)
	defer database.Close()

	broker := &recordingStore{err: errors.New("broker down")}
	server, _ := setupTestServer(t, MultiStore{database, broker})

	rec := serve(server, testutil.NewFormRequest(http.MethodPost, "/api/session/regenerate", url.Values{"seed": {"5"}}))
	testutil.AssertStatusCode(t, rec.Code, http.StatusCreated)

	var got RegenerateResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "broker down", got.StoreError)

	saved, err := database.LatestSession()
	require.NoError(t, err)
	assert.Equal(t, server.Session().ID, saved.ID, "snapshot and served session agree")
	assert.Equal(t, got.ID, saved.ID)
}

func TestShowSnapshot(t *testing.T) {
	database, err := db.NewDB(filepath.Join(t.TempDir(), "steps.db"))
	require.NoError(t, err)
	defer database.Close()

	server, initial := setupTestServer(t, database)

	rec := serve(server, httptest.NewRequest(http.MethodGet, "/api/snapshot", nil))
	testutil.AssertStatusCode(t, rec.Code, http.StatusNotFound)

	server.SetSnapshots(database)
	rec = serve(server, httptest.NewRequest(http.MethodGet, "/api/snapshot", nil))
	testutil.AssertStatusCode(t, rec.Code, http.StatusNotFound)
	assert.Contains(t, rec.Body.String(), "no saved session")

	require.NoError(t, database.SaveSession(initial))
	rec = serve(server, httptest.NewRequest(http.MethodGet, "/api/snapshot", nil))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	var got SnapshotResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	require.NotNil(t, got.Session)
	assert.Equal(t, initial.ID, got.Session.ID)
	assert.True(t, got.Served)
	assert.Len(t, got.Steps, initial.TotalDetected())

	rec = serve(server, testutil.NewFormRequest(http.MethodPost, "/api/session/regenerate", url.Values{"seed": {"8"}}))
	testutil.AssertStatusCode(t, rec.Code, http.StatusCreated)
	rec = serve(server, httptest.NewRequest(http.MethodGet, "/api/snapshot", nil))
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, server.Session().ID, got.Session.ID)
	assert.True(t, got.Served)

	rec = serve(server, httptest.NewRequest(http.MethodPost, "/api/snapshot", nil))
	testutil.AssertStatusCode(t, rec.Code, http.StatusMethodNotAllowed)
}

func TestMultiStore(t *testing.T) {
	sess := testutil.RunSession(t, 5, 20)
	first, second := &recordingStore{}, &recordingStore{}

	require.NoError(t, MultiStore{first, second}.SaveSession(sess))
	assert.Len(t, first.saved, 1)
	assert.Len(t, second.saved, 1)

	failing := &recordingStore{err: errors.New("broker gone")}
	last := &recordingStore{}
	err := MultiStore{failing, last}.SaveSession(sess)
	require.EqualError(t, err, "broker gone")
	assert.Len(t, last.saved, 1, "a failing store does not stop the next")

	assert.NoError(t, MultiStore(nil).SaveSession(sess))
}

func TestRegenerate_PersistsToSQLite(t *testing.T) {
	database, err := db.NewDB(filepath.Join(t.TempDir(), "steps.db"))
	require.NoError(t, err)
	defer database.Close()

	server, _ := setupTestServer(t, database)
	rec := serve(server, testutil.NewFormRequest(http.MethodPost, "/api/session/regenerate", url.Values{"seed": {"11"}}))
	testutil.AssertStatusCode(t, rec.Code, http.StatusCreated)

	saved, err := database.LatestSession()
	require.NoError(t, err)
	assert.Equal(t, server.Session().ID, saved.ID)
	assert.Equal(t, uint64(11), saved.Seed)
}

func TestLoggingMiddleware(t *testing.T) {
	var lines []string
	monitoring.SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, v...))
	})
	defer monitoring.SetLogger(nil)

	server := NewServer(testutil.NewRunner(20), nil, nil)
	h := LoggingMiddleware(server.ServeMux())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/steps", nil))

	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "404")
	assert.Contains(t, lines[0], "GET")
	assert.Contains(t, lines[0], "/api/steps")
}

func TestStatusCodeColor(t *testing.T) {
	assert.Equal(t, colorBoldGreen+"200"+colorReset, statusCodeColor(200))
	assert.Equal(t, colorYellow+"304"+colorReset, statusCodeColor(304))
	assert.Equal(t, colorBoldRed+"500"+colorReset, statusCodeColor(500))
	assert.Equal(t, "101", statusCodeColor(101))
}
