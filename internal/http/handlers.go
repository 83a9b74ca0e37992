package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/trigo/dispatch/internal/geo"
	"github.com/trigo/dispatch/internal/matcher"
	"github.com/trigo/dispatch/internal/models"
	"github.com/trigo/dispatch/internal/registry"
	"github.com/trigo/dispatch/internal/routing"
	"github.com/trigo/dispatch/internal/settings"
)

func (s *Server) handleListZones(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Zones.All())
}

func (s *Server) handleListTriders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Triders.All())
}

func (s *Server) handleListRequests(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Rides.All())
}

func (s *Server) handleListInsights(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Insights.All())
}

type createRequestBody struct {
	PassengerName   string             `json:"passenger_name"`
	PickupLocation  models.Coordinates `json:"pickup_location"`
	DropoffLocation models.Coordinates `json:"dropoff_location"`
}

// handleCreateRequest is the passenger-style entry point. The pickup zone is
// resolved by membership lookup here; a pickup outside every zone is still
// accepted and shows up as unserviceable at candidate/dispatch time.
func (s *Server) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	var body createRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.PassengerName == "" {
		writeError(w, http.StatusBadRequest, "passenger_name is required")
		return
	}

	req := models.RideRequest{
		ID:              uuid.NewString(),
		PassengerName:   body.PassengerName,
		PickupLocation:  body.PickupLocation,
		DropoffLocation: body.DropoffLocation,
		Status:          models.RidePending,
		RequestedAt:     time.Now(),
	}
	if z := s.Zones.Resolve(body.PickupLocation); z != nil {
		req.PickupTodaZoneID = z.ID
		if s.Fares != nil {
			dist := geo.DistanceKm(
				body.PickupLocation.Latitude, body.PickupLocation.Longitude,
				body.DropoffLocation.Latitude, body.DropoffLocation.Longitude,
			)
			req.Fare = s.Fares.Quote(z.ID, dist)
		}
	}

	s.Rides.Add(req)
	if s.Archive != nil {
		if err := s.Archive.SaveRequest(&req); err != nil {
			s.logger.Warn("archive save failed", "request_id", req.ID, "error", err)
		}
	}
	if s.Feed != nil {
		s.Feed.Broadcast("requests", s.Rides.All())
	}
	writeJSON(w, http.StatusCreated, req)
}

func (s *Server) handleCandidates(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	req, err := s.Rides.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	cands, err := matcher.Candidates(req, s.Triders.All())
	if err != nil {
		var de *matcher.Error
		if errors.As(err, &de) && de.Reason == matcher.ReasonUnserviceableArea {
			// distinct from "no triders available": the pickup is outside
			// every TODA zone
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":  de.Error(),
				"reason": string(de.Reason),
			})
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, cands)
}

type dispatchBody struct {
	TriderID  string `json:"trider_id"`
	RequestID string `json:"request_id"`
}

func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	var body dispatchBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	trider, req, err := s.Matcher.Dispatch(body.TriderID, body.RequestID)
	if err != nil {
		var de *matcher.Error
		switch {
		case errors.Is(err, registry.ErrNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.As(err, &de) && de.Reason == matcher.ReasonUnserviceableArea:
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": de.Error(), "reason": string(de.Reason)})
		case errors.As(err, &de):
			writeJSON(w, http.StatusConflict, map[string]any{"error": de.Error(), "reason": string(de.Reason)})
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	if s.Archive != nil {
		if err := s.Archive.UpdateRequest(&req); err != nil {
			s.logger.Warn("archive update failed", "request_id", req.ID, "error", err)
		}
	}
	if s.Feed != nil {
		s.Feed.Broadcast("dispatch", map[string]any{"trider": trider, "request": req})
	}
	writeJSON(w, http.StatusOK, map[string]any{"trider": trider, "request": req})
}

type triderStatusBody struct {
	Status models.TriderStatus `json:"status"`
}

// handleTriderStatus is the manual operator toggle. It CASes from the current
// status so a toggle raced by a dispatch fails loudly instead of clobbering.
func (s *Server) handleTriderStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var body triderStatusBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	switch body.Status {
	case models.TriderAvailable, models.TriderBusy, models.TriderAssigned, models.TriderOffline:
	default:
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	cur, err := s.Triders.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	updated, err := s.Triders.SetStatus(id, cur.Status, body.Status)
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if s.Feed != nil {
		s.Feed.Broadcast("triders", s.Triders.All())
	}
	writeJSON(w, http.StatusOK, updated)
}

// handleRoute fetches the trider -> pickup -> dropoff polyline for the
// current selection. Provider failures are recoverable: the client keeps its
// previously displayed route.
func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	triderID := r.URL.Query().Get("trider_id")
	requestID := r.URL.Query().Get("request_id")
	trider, err := s.Triders.Get(triderID)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	req, err := s.Rides.Get(requestID)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	route, err := s.Routes.Fetch(r.Context(), trider.Location, req.PickupLocation, req.DropoffLocation)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, route)
	case errors.Is(err, routing.ErrNoToken):
		s.noTokenOnce.Do(func() {
			s.logger.Error("directions token missing; route display disabled", "error", err)
		})
		writeError(w, http.StatusServiceUnavailable, "directions provider not configured")
	case errors.Is(err, context.Canceled):
		// superseded by a newer selection
		writeError(w, http.StatusConflict, "route request superseded")
	default:
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

type simulationSettingsBody struct {
	TriderUpdateIntervalMs int `json:"trider_update_interval_ms"`
	RideRequestIntervalMs  int `json:"ride_request_interval_ms"`
	AIInsightIntervalMs    int `json:"ai_insight_interval_ms"`
}

// handleSimulationSettings retunes simulator intervals at runtime. Only the
// timers whose values are present (non-zero) restart; siblings keep ticking.
func (s *Server) handleSimulationSettings(w http.ResponseWriter, r *http.Request) {
	var body simulationSettingsBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.TriderUpdateIntervalMs < 0 || body.RideRequestIntervalMs < 0 || body.AIInsightIntervalMs < 0 {
		writeError(w, http.StatusBadRequest, "intervals must be positive")
		return
	}

	if body.TriderUpdateIntervalMs > 0 && s.Sims.Motion != nil {
		s.Sims.Motion.SetInterval(time.Duration(body.TriderUpdateIntervalMs) * time.Millisecond)
	}
	if body.RideRequestIntervalMs > 0 && s.Sims.Demand != nil {
		s.Sims.Demand.SetInterval(time.Duration(body.RideRequestIntervalMs) * time.Millisecond)
	}
	if body.AIInsightIntervalMs > 0 && s.Sims.Insight != nil {
		s.Sims.Insight.SetInterval(time.Duration(body.AIInsightIntervalMs) * time.Millisecond)
	}

	if s.Settings != nil {
		var app settings.AppSettings
		err := s.Settings.Get(r.Context(), settings.KeyAppSettings, &app)
		switch {
		case err != nil && !errors.Is(err, settings.ErrNotFound):
			// writing the zero-valued app here would clobber the stored
			// settings; skip persistence and keep the backend's prior value
			s.logger.Warn("settings read failed, skipping persist", "error", err)
		default:
			if body.TriderUpdateIntervalMs > 0 {
				app.TriderUpdateIntervalMs = body.TriderUpdateIntervalMs
			}
			if body.RideRequestIntervalMs > 0 {
				app.RideRequestIntervalMs = body.RideRequestIntervalMs
			}
			if body.AIInsightIntervalMs > 0 {
				app.AIInsightIntervalMs = body.AIInsightIntervalMs
			}
			if err := s.Settings.Put(settings.KeyAppSettings, app); err != nil {
				s.logger.Warn("settings persist failed", "error", err)
			}
		}
	}
	writeJSON(w, http.StatusOK, body)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		writeError(w, http.StatusBadRequest, "upgrade failed")
		return
	}
	id := uuid.NewString()
	s.Feed.Add(id, conn)

	// seed only the new session with the current world
	_ = s.Feed.SendTo(id, "zones", s.Zones.All())
	_ = s.Feed.SendTo(id, "triders", s.Triders.All())
	_ = s.Feed.SendTo(id, "requests", s.Rides.All())

	go func() {
		defer s.Feed.Remove(id)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
