package models

import "time"

// Carrier is a network partner that issues maintenance notifications. Reference data.
type Carrier struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Service is an internally tracked circuit, optionally known by a carrier-side identifier.
type Service struct {
	ID            string    `json:"id" db:"id"`
	CarrierSideID *string   `json:"carrier_side_id,omitempty" db:"carrier_side_id"`
	CarrierID     *string   `json:"carrier_id,omitempty" db:"carrier_id"`
	Name          *string   `json:"name,omitempty" db:"name"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// DisplayID is the identifier shown to humans: the carrier-side id when present.
func (s Service) DisplayID() string {
	if s.CarrierSideID != nil && *s.CarrierSideID != "" {
		return *s.CarrierSideID
	}
	return s.ID
}
