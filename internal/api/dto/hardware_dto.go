package dto

import (
	"time"

	"github.com/carelog/carelog/internal/domain"
)

// CreateHardwareRequest is the payload for POST /staff/hardware.
type CreateHardwareRequest struct {
	OrganizationID string  `json:"organization_id"`
	LocationID     string  `json:"location_id"`
	HardwareTypeID string  `json:"hardware_type_id"`
	Name           string  `json:"name"`
	Manufacturer   *string `json:"manufacturer,omitempty"`
	Model          *string `json:"model,omitempty"`
	SerialNumber   *string `json:"serial_number,omitempty"`
	Status         string  `json:"status,omitempty"`
	PurchaseDate   *string `json:"purchase_date,omitempty"`
	WarrantyExpiry *string `json:"warranty_expiry,omitempty"`
	Notes          *string `json:"notes,omitempty"`
}

// HardwareResponse is the asset projection.
type HardwareResponse struct {
	ID             string                `json:"id"`
	OrganizationID string                `json:"organization_id"`
	LocationID     string                `json:"location_id"`
	HardwareTypeID string                `json:"hardware_type_id"`
	Name           string                `json:"name"`
	Manufacturer   *string               `json:"manufacturer,omitempty"`
	Model          *string               `json:"model,omitempty"`
	SerialNumber   *string               `json:"serial_number,omitempty"`
	Status         domain.HardwareStatus `json:"status"`
	PurchaseDate   *time.Time            `json:"purchase_date,omitempty"`
	WarrantyExpiry *time.Time            `json:"warranty_expiry,omitempty"`
	Notes          *string               `json:"notes,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
}

// NewHardwareResponse projects a domain asset.
func NewHardwareResponse(hw *domain.Hardware) HardwareResponse {
	return HardwareResponse{
		ID:             hw.ID,
		OrganizationID: hw.OrganizationID,
		LocationID:     hw.LocationID,
		HardwareTypeID: hw.HardwareTypeID,
		Name:           hw.Name,
		Manufacturer:   hw.Manufacturer,
		Model:          hw.Model,
		SerialNumber:   hw.SerialNumber,
		Status:         hw.Status,
		PurchaseDate:   hw.PurchaseDate,
		WarrantyExpiry: hw.WarrantyExpiry,
		Notes:          hw.Notes,
		CreatedAt:      hw.CreatedAt,
	}
}

// HardwareTypeResponse is the lookup projection.
type HardwareTypeResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// OrganizationResponse is the organization projection.
type OrganizationResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}

// LocationResponse is the location projection.
type LocationResponse struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organization_id"`
	Name           string `json:"name"`
	Address        string `json:"address"`
	IsActive       bool   `json:"is_active"`
}
