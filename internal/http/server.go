// Package httpapi exposes the dispatch core over HTTP and WebSocket: the API
// dispatcher clients read state through and mutate state through, instead of
// each browser session simulating its own private world.
package httpapi

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trigo/dispatch/internal/dispatch"
	"github.com/trigo/dispatch/internal/matcher"
	"github.com/trigo/dispatch/internal/registry"
	"github.com/trigo/dispatch/internal/routing"
	"github.com/trigo/dispatch/internal/settings"
	"github.com/trigo/dispatch/internal/sim"
	"github.com/trigo/dispatch/internal/storage"
	"github.com/trigo/dispatch/internal/zones"
)

// IntervalSetter retunes one simulator's ticker.
type IntervalSetter interface {
	SetInterval(d time.Duration)
}

// Simulators groups the three independent timers for the settings handler.
type Simulators struct {
	Motion  IntervalSetter
	Demand  IntervalSetter
	Insight IntervalSetter
}

type Server struct {
	Zones    *zones.Registry
	Triders  *registry.TriderStore
	Rides    *registry.RideStore
	Insights *registry.InsightLog
	Matcher  *matcher.Service
	Routes   *routing.Fetcher
	Feed     *dispatch.FeedHub
	Settings *settings.Store
	Archive  storage.RequestArchive
	Sims     Simulators
	Fares    *sim.FareTable

	mux    *mux.Router
	logger *slog.Logger

	// the missing-credential configuration error is reported once, not on
	// every route request
	noTokenOnce sync.Once
}

type Deps struct {
	Zones    *zones.Registry
	Triders  *registry.TriderStore
	Rides    *registry.RideStore
	Insights *registry.InsightLog
	Matcher  *matcher.Service
	Routes   *routing.Fetcher
	Feed     *dispatch.FeedHub
	Settings *settings.Store
	Archive  storage.RequestArchive
	Sims     Simulators
	Fares    *sim.FareTable
	Logger   *slog.Logger
}

func NewServer(d Deps) *Server {
	s := &Server{
		Zones:    d.Zones,
		Triders:  d.Triders,
		Rides:    d.Rides,
		Insights: d.Insights,
		Matcher:  d.Matcher,
		Routes:   d.Routes,
		Feed:     d.Feed,
		Settings: d.Settings,
		Archive:  d.Archive,
		Sims:     d.Sims,
		Fares:    d.Fares,
		mux:      mux.NewRouter(),
		logger:   d.Logger,
	}
	s.registerMiddleware()
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.mux.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/zones", s.handleListZones).Methods("GET")
	api.HandleFunc("/triders", s.handleListTriders).Methods("GET")
	api.HandleFunc("/triders/{id}/status", s.handleTriderStatus).Methods("PATCH")
	api.HandleFunc("/requests", s.handleListRequests).Methods("GET")
	api.HandleFunc("/requests", s.handleCreateRequest).Methods("POST")
	api.HandleFunc("/requests/{id}/candidates", s.handleCandidates).Methods("GET")
	api.HandleFunc("/dispatch", s.handleDispatch).Methods("POST")
	api.HandleFunc("/route", s.handleRoute).Methods("GET")
	api.HandleFunc("/insights", s.handleListInsights).Methods("GET")
	api.HandleFunc("/settings/simulation", s.handleSimulationSettings).Methods("PUT")

	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("/ws/feed", s.handleFeed)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }
