package domain

import "time"

// Organization is a client tenant. Organizations own locations,
// registered hardware and the tickets raised against them.
type Organization struct {
	ID        string
	Name      string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Location is a physical site belonging to an organization.
type Location struct {
	ID             string
	OrganizationID string
	Name           string
	Address        string
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
