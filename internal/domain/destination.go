// Package domain contains the core data types for the Travel Journal application.
// This package has no dependencies beyond uuid and is imported by every other
// internal package (tree, journal, store, repo, service, handler).
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Destination represents a single trip in the travel log.
// Its id is the key of the destination's journal; nothing else in the journal
// core looks at its fields.
type Destination struct {
	ID        uuid.UUID `json:"id"`
	Place     string    `json:"place"`
	Country   string    `json:"country,omitempty"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Mood      string    `json:"mood,omitempty"`
	Rating    *int      `json:"rating,omitempty"` // 1..5, nil when unrated
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Days returns the inclusive number of days spent at the destination, at least 1.
func (d Destination) Days() int {
	start := d.StartDate.Truncate(24 * time.Hour)
	end := d.EndDate.Truncate(24 * time.Hour)
	days := int(end.Sub(start).Hours()/24) + 1
	if days < 1 {
		return 1
	}
	return days
}
