package models

import "time"

// Coordinates is a WGS84 lat/lng pair.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// TodaZone is a circular TODA operating area. Zones are immutable reference
// data loaded at startup; they may overlap, membership ties resolve by
// registration order.
type TodaZone struct {
	ID              string      `json:"id"`
	Name            string      `json:"name"`
	Center          Coordinates `json:"center"`
	RadiusKm        float64     `json:"radius_km"`
	AreaOfOperation string      `json:"area_of_operation"`
}

type TriderStatus string

const (
	TriderAvailable TriderStatus = "available"
	TriderBusy      TriderStatus = "busy"
	TriderAssigned  TriderStatus = "assigned"
	TriderOffline   TriderStatus = "offline"
)

type Trider struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Location    Coordinates  `json:"location"`
	Status      TriderStatus `json:"status"`
	VehicleType string       `json:"vehicle_type"`
	TodaZoneID  string       `json:"toda_zone_id"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

type RideStatus string

const (
	RidePending    RideStatus = "pending"
	RideAssigned   RideStatus = "assigned"
	RideInProgress RideStatus = "in-progress"
	RideCompleted  RideStatus = "completed"
	RideCancelled  RideStatus = "cancelled"
	RideSearching  RideStatus = "searching"
)

// RideRequest is a pickup/dropoff pair awaiting dispatch. PickupTodaZoneID is
// empty when the pickup point resolves to no zone (unserviceable area) or has
// not been resolved yet. Fare 0 means not quoted.
type RideRequest struct {
	ID               string      `json:"id"`
	PassengerName    string      `json:"passenger_name"`
	PickupLocation   Coordinates `json:"pickup_location"`
	DropoffLocation  Coordinates `json:"dropoff_location"`
	PickupTodaZoneID string      `json:"pickup_toda_zone_id,omitempty"`
	Status           RideStatus  `json:"status"`
	AssignedTriderID string      `json:"assigned_trider_id,omitempty"`
	Fare             float64     `json:"fare,omitempty"`
	RequestedAt      time.Time   `json:"requested_at"`
}

// Route is the polyline returned by the directions provider.
type Route struct {
	Geometry    []Coordinates `json:"geometry"`
	DurationSec float64       `json:"duration_sec"`
	DistanceM   float64       `json:"distance_m"`
}

// Insight is a cosmetic advisory notice shown on the dispatcher dashboard.
type Insight struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Severity  string    `json:"severity"` // info, warning
	CreatedAt time.Time `json:"created_at"`
}
