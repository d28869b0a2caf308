package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/networmix/ee500-wifi/internal/export"
	"github.com/networmix/ee500-wifi/internal/model"
	"github.com/networmix/ee500-wifi/internal/query"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"google.golang.org/protobuf/encoding/protojson"
)

const defaultRunsLimit = 50

// Server serves the latest run result over HTTP, and stored runs when a
// loader is configured.
type Server struct {
	httpServer *http.Server
	loader     query.Loader

	mu     sync.RWMutex
	latest *model.Result
}

// NewServer creates a server listening on addr. loader may be nil.
func NewServer(addr string, loader query.Loader) *Server {
	s := &Server{loader: loader}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(&resultCollector{latest: s.Latest})

	r := mux.NewRouter()
	r.HandleFunc("/api/v1/result", s.resultHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/export", s.exportHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/report", s.reportHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/runs", s.listRunsHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/runs/{id}", s.runHandler).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return r
}

// SetResult replaces the result served by the latest-run endpoints.
func (s *Server) SetResult(res *model.Result) {
	s.mu.Lock()
	s.latest = res
	s.mu.Unlock()
	zap.L().Info("API result updated", zap.String("run", res.RunID))
}

// SetExport derives a result from a bare export, as received from NATS.
func (s *Server) SetExport(fe *export.FlatExport) {
	s.SetResult(model.NewResult(fe, time.Now().UTC()))
}

// Latest returns the result being served, or nil.
func (s *Server) Latest() *model.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// Start serves in the background until Shutdown.
func (s *Server) Start() {
	go func() {
		zap.L().Info("API server starting", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zap.L().Error("API server failed", zap.Error(err))
		}
	}()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) resultHandler(w http.ResponseWriter, r *http.Request) {
	res := s.Latest()
	if res == nil {
		http.Error(w, "no result available", http.StatusNotFound)
		return
	}
	writeJSON(w, res)
}

// exportHandler serves the export as protobuf JSON, or in protobuf wire
// format with ?format=proto.
func (s *Server) exportHandler(w http.ResponseWriter, r *http.Request) {
	res := s.Latest()
	if res == nil || res.Export == nil {
		http.Error(w, "no result available", http.StatusNotFound)
		return
	}

	if r.URL.Query().Get("format") == "proto" {
		data, err := export.Encode(res.Export)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/x-protobuf")
		w.Write(data)
		return
	}

	st, err := export.ToStruct(res.Export)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	data, err := protojson.Marshal(st)
	if err != nil {
		http.Error(w, "failed to marshal export: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (s *Server) reportHandler(w http.ResponseWriter, r *http.Request) {
	res := s.Latest()
	if res == nil || res.Report == nil {
		http.Error(w, "no result available", http.StatusNotFound)
		return
	}
	writeJSON(w, res.Report)
}

func (s *Server) listRunsHandler(w http.ResponseWriter, r *http.Request) {
	if s.loader == nil {
		http.Error(w, "run storage is not configured", http.StatusServiceUnavailable)
		return
	}

	limit := defaultRunsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	runs, err := s.loader.ListRuns(r.Context(), limit)
	if err != nil {
		http.Error(w, "failed to list runs: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []query.RunSummary{}
	}
	writeJSON(w, runs)
}

func (s *Server) runHandler(w http.ResponseWriter, r *http.Request) {
	if s.loader == nil {
		http.Error(w, "run storage is not configured", http.StatusServiceUnavailable)
		return
	}

	id := mux.Vars(r)["id"]
	fe, err := s.loader.LoadRun(r.Context(), id)
	if err != nil {
		http.Error(w, "failed to load run: "+err.Error(), http.StatusNotFound)
		return
	}
	res := model.NewResult(fe, time.Now().UTC())
	res.RunID = id
	writeJSON(w, res)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("Failed to write response", zap.Error(err))
	}
}
