package domain

import "time"

// HardwareStatus enumerates asset lifecycle states.
type HardwareStatus string

const (
	HardwareStatusActive      HardwareStatus = "active"
	HardwareStatusInactive    HardwareStatus = "inactive"
	HardwareStatusMaintenance HardwareStatus = "maintenance"
	HardwareStatusRetired     HardwareStatus = "retired"
)

// HardwareStatuses lists the accepted status values.
var HardwareStatuses = []HardwareStatus{
	HardwareStatusActive,
	HardwareStatusInactive,
	HardwareStatusMaintenance,
	HardwareStatusRetired,
}

// ValidHardwareStatus reports whether s is an accepted status value.
func ValidHardwareStatus(s HardwareStatus) bool {
	for _, candidate := range HardwareStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// HardwareType is a lookup row (e.g. "printer", "router").
type HardwareType struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Hardware is a registered asset at an organization location.
type Hardware struct {
	ID             string
	OrganizationID string
	LocationID     string
	HardwareTypeID string
	Name           string
	Manufacturer   *string
	Model          *string
	SerialNumber   *string
	Status         HardwareStatus
	PurchaseDate   *time.Time
	WarrantyExpiry *time.Time
	Notes          *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
