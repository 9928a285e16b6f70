// Package api serves the current step session over HTTP.
package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/step.report/internal/accel"
	"github.com/banshee-data/step.report/internal/db"
	"github.com/banshee-data/step.report/internal/export"
	"github.com/banshee-data/step.report/internal/httputil"
	"github.com/banshee-data/step.report/internal/monitoring"
	"github.com/banshee-data/step.report/internal/session"
	"github.com/banshee-data/step.report/internal/step"
	"github.com/banshee-data/step.report/internal/units"
)

// SessionStore persists a session after regeneration. *db.DB satisfies it.
type SessionStore interface {
	SaveSession(s *session.Session) error
}

// MultiStore saves to every store in order. A failing store does not stop
// the others; the failures are joined.
type MultiStore []SessionStore

func (m MultiStore) SaveSession(sess *session.Session) error {
	var errs []error
	for _, store := range m {
		if err := store.SaveSession(sess); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SnapshotReader reads back the persisted session. *db.DB satisfies it.
type SnapshotReader interface {
	LatestSession() (*db.SessionRecord, error)
	StepEvents(sessionID uuid.UUID) (step.Records, error)
}

// Runner produces new sessions. *session.Runner satisfies it.
type Runner interface {
	Run(seed uint64) (*session.Session, error)
	DefaultSeed() uint64
}

type Server struct {
	runner    Runner
	store     SessionStore
	snapshots SnapshotReader

	mu      sync.RWMutex
	current *session.Session
}

// NewServer serves initial until a regeneration replaces it. store may be
// nil, in which case regenerated sessions are kept in memory only.
func NewServer(runner Runner, initial *session.Session, store SessionStore) *Server {
	return &Server{runner: runner, store: store, current: initial}
}

// SetSnapshots enables /api/snapshot, which reads the persisted session
// back from r.
func (s *Server) SetSnapshots(r SnapshotReader) {
	s.snapshots = r
}

// Session returns the session currently being served.
func (s *Server) Session() *session.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/session", s.showSession)
	mux.HandleFunc("/api/session/regenerate", s.regenerate)
	mux.HandleFunc("/api/steps", s.listSteps)
	mux.HandleFunc("/api/steps.csv", s.downloadCSV)
	mux.HandleFunc("/api/chart", s.showChart)
	mux.HandleFunc("/api/plot.png", s.showPlot)
	mux.HandleFunc("/api/snapshot", s.showSnapshot)
	return mux
}

// SessionSummary is the JSON view of a session without its signal arrays.
type SessionSummary struct {
	ID            uuid.UUID     `json:"id"`
	Units         string        `json:"units"`
	Seed          uint64        `json:"seed"`
	StartedAt     time.Time     `json:"started_at"`
	ElapsedMs     float64       `json:"elapsed_ms"`
	Config        accel.Config  `json:"config"`
	Params        step.Params   `json:"params"`
	SampleCount   int           `json:"sample_count"`
	TotalDetected int           `json:"total_detected"`
	CreditedSteps int           `json:"credited_steps"`
	Regular       bool          `json:"regular"`
	Threshold     float64       `json:"threshold"`
	Candidates    int           `json:"candidates"`
	Pairs         int           `json:"pairs"`
	Lost          int           `json:"lost"`
	Summary       accel.Summary `json:"summary"`
}

// summarize builds the summary with accelerations reported in unit.
func summarize(sess *session.Session, unit string) SessionSummary {
	convert := func(a accel.Axis) accel.Axis {
		return accel.Axis{Mean: units.ConvertAccel(a.Mean, unit), StdDev: units.ConvertAccel(a.StdDev, unit)}
	}
	stats := accel.Summary{
		X:         convert(sess.Summary.X),
		Y:         convert(sess.Summary.Y),
		Z:         convert(sess.Summary.Z),
		Magnitude: convert(sess.Summary.Magnitude),
		Filtered:  convert(sess.Summary.Filtered),
	}

	return SessionSummary{
		ID:            sess.ID,
		Units:         unit,
		Seed:          sess.Seed,
		StartedAt:     sess.StartedAt,
		ElapsedMs:     float64(sess.Elapsed.Nanoseconds()) / 1e6,
		Config:        sess.Config,
		Params:        sess.Params,
		SampleCount:   len(sess.Samples),
		TotalDetected: sess.TotalDetected(),
		CreditedSteps: sess.Result.TotalSteps,
		Regular:       sess.Result.Regular,
		Threshold:     units.ConvertAccel(sess.Result.Threshold, unit),
		Candidates:    sess.Result.Candidates,
		Pairs:         sess.Result.Pairs,
		Lost:          sess.Result.Lost,
		Summary:       stats,
	}
}

// unitsParam reads the optional "units" query value, defaulting to g.
func unitsParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	u := r.URL.Query().Get("units")
	if u == "" {
		return units.G, true
	}
	if !units.IsValid(u) {
		httputil.BadRequest(w, fmt.Sprintf("invalid 'units' parameter, want one of: %s", units.GetValidUnitsString()))
		return "", false
	}
	return u, true
}

// StepsResponse lists the valid steps of a session.
type StepsResponse struct {
	SessionID uuid.UUID    `json:"session_id"`
	Total     int          `json:"total"`
	Steps     step.Records `json:"steps"`
}

// SnapshotResponse is the persisted session with its valid steps. Served
// reports whether it is also the session currently being served.
type SnapshotResponse struct {
	Session *db.SessionRecord `json:"session"`
	Served  bool              `json:"served"`
	Steps   step.Records      `json:"steps"`
}

// RegenerateResponse is the new session's summary. StoreError is set when
// the session is being served but could not be saved to every store.
type RegenerateResponse struct {
	SessionSummary
	StoreError string `json:"store_error,omitempty"`
}

// currentForGet fetches the served session for a GET handler, writing the error
// response itself when it returns nil.
func (s *Server) currentForGet(w http.ResponseWriter, r *http.Request) *session.Session {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return nil
	}
	sess := s.Session()
	if sess == nil {
		httputil.NotFound(w, "no session")
		return nil
	}
	return sess
}

func (s *Server) showSession(w http.ResponseWriter, r *http.Request) {
	sess := s.currentForGet(w, r)
	if sess == nil {
		return
	}
	unit, ok := unitsParam(w, r)
	if !ok {
		return
	}
	httputil.WriteJSONOK(w, summarize(sess, unit))
}

func (s *Server) listSteps(w http.ResponseWriter, r *http.Request) {
	sess := s.currentForGet(w, r)
	if sess == nil {
		return
	}
	steps := sess.Steps()
	if steps == nil {
		steps = step.Records{}
	}
	httputil.WriteJSONOK(w, StepsResponse{SessionID: sess.ID, Total: len(steps), Steps: steps})
}

func (s *Server) downloadCSV(w http.ResponseWriter, r *http.Request) {
	sess := s.currentForGet(w, r)
	if sess == nil {
		return
	}
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, sess.Result.Events); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to write csv: %v", err))
		return
	}
	httputil.SetAttachment(w, "text/csv", fmt.Sprintf("steps-%s.csv", sess.ID))
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) showChart(w http.ResponseWriter, r *http.Request) {
	sess := s.currentForGet(w, r)
	if sess == nil {
		return
	}
	var buf bytes.Buffer
	if err := export.RenderChart(&buf, export.TraceOf(sess)); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) showPlot(w http.ResponseWriter, r *http.Request) {
	sess := s.currentForGet(w, r)
	if sess == nil {
		return
	}
	var buf bytes.Buffer
	if err := export.WritePlot(&buf, export.TraceOf(sess)); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render plot: %v", err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) showSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.snapshots == nil {
		httputil.NotFound(w, "no snapshot database configured")
		return
	}

	rec, err := s.snapshots.LatestSession()
	if errors.Is(err, db.ErrNoSession) {
		httputil.NotFound(w, "no saved session")
		return
	}
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to read snapshot: %v", err))
		return
	}
	events, err := s.snapshots.StepEvents(rec.ID)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to read snapshot steps: %v", err))
		return
	}
	steps := events.Valid()
	if steps == nil {
		steps = step.Records{}
	}

	current := s.Session()
	httputil.WriteJSONOK(w, SnapshotResponse{
		Session: rec,
		Served:  current != nil && current.ID == rec.ID,
		Steps:   steps,
	})
}

// regenerate runs a new session, from the "seed" form value when given,
// starts serving it and then saves it when a store is configured. A store
// failure is reported in the response but does not hold back the swap, so
// stores that did save agree with what is served.
func (s *Server) regenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	seed := s.runner.DefaultSeed()
	if v := r.FormValue("seed"); v != "" {
		parsed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			httputil.BadRequest(w, fmt.Sprintf("invalid 'seed' parameter: %q", v))
			return
		}
		seed = parsed
	}

	sess, err := s.runner.Run(seed)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to run session: %v", err))
		return
	}
	s.mu.Lock()
	s.current = sess
	s.mu.Unlock()
	monitoring.Logf("serving session %s (seed %d, %d steps)", sess.ID, sess.Seed, sess.TotalDetected())

	resp := RegenerateResponse{SessionSummary: summarize(sess, units.G)}
	if s.store != nil {
		if err := s.store.SaveSession(sess); err != nil {
			monitoring.Logf("session %s not saved: %v", sess.ID, err)
			resp.StoreError = err.Error()
		}
	}
	httputil.WriteJSON(w, http.StatusCreated, resp)
}
