package storage

import (
	"database/sql"
	"time"

	_ "github.com/lib/pq"

	"github.com/trigo/dispatch/internal/models"
)

type PostgresArchive struct {
	db *sql.DB
}

func NewPostgresArchive(dsn string) (*PostgresArchive, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresArchive{db: db}, nil
}

func (p *PostgresArchive) SaveRequest(r *models.RideRequest) error {
	_, err := p.db.Exec(`INSERT INTO ride_requests(
			id, passenger_name, pickup_lat, pickup_lon, dropoff_lat, dropoff_lon,
			pickup_toda_zone_id, status, assigned_trider_id, fare, requested_at, updated_at
		) VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (id) DO NOTHING`,
		r.ID, r.PassengerName,
		r.PickupLocation.Latitude, r.PickupLocation.Longitude,
		r.DropoffLocation.Latitude, r.DropoffLocation.Longitude,
		nullable(r.PickupTodaZoneID), string(r.Status), nullable(r.AssignedTriderID),
		r.Fare, r.RequestedAt, time.Now())
	return err
}

func (p *PostgresArchive) UpdateRequest(r *models.RideRequest) error {
	_, err := p.db.Exec(`UPDATE ride_requests
		SET status=$1, assigned_trider_id=$2, fare=$3, updated_at=$4
		WHERE id=$5`,
		string(r.Status), nullable(r.AssignedTriderID), r.Fare, time.Now(), r.ID)
	return err
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
