package handlers

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/carelog/carelog/internal/api/dto"
	"github.com/carelog/carelog/internal/domain"
	"github.com/carelog/carelog/internal/repository"
	"github.com/carelog/carelog/internal/service"
	apperrors "github.com/carelog/carelog/pkg/util"
)

// HardwareHandler manages asset registration, lookups, and the CSV
// bulk import.
type HardwareHandler struct {
	hardware  repository.HardwareRepository
	orgs      repository.OrganizationRepository
	locations repository.LocationRepository
	importer  *service.HardwareImportService
}

// NewHardwareHandler constructs handler.
func NewHardwareHandler(
	hardware repository.HardwareRepository,
	orgs repository.OrganizationRepository,
	locations repository.LocationRepository,
	importer *service.HardwareImportService,
) *HardwareHandler {
	return &HardwareHandler{hardware: hardware, orgs: orgs, locations: locations, importer: importer}
}

// Create POST /staff/hardware.
func (h *HardwareHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateHardwareRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.OrganizationID == "" || req.LocationID == "" || req.HardwareTypeID == "" || req.Name == "" {
		return apperrors.NewValidationError("organization_id, location_id, hardware_type_id, name required", nil)
	}

	status := domain.HardwareStatusActive
	if req.Status != "" {
		status = domain.HardwareStatus(req.Status)
		if !domain.ValidHardwareStatus(status) {
			return apperrors.NewValidationError("invalid status", map[string]any{
				"accepted": domain.HardwareStatuses,
			})
		}
	}
	purchaseDate, err := parseDateField(req.PurchaseDate, "purchase_date")
	if err != nil {
		return err
	}
	warrantyExpiry, err := parseDateField(req.WarrantyExpiry, "warranty_expiry")
	if err != nil {
		return err
	}

	hw := &domain.Hardware{
		OrganizationID: req.OrganizationID,
		LocationID:     req.LocationID,
		HardwareTypeID: req.HardwareTypeID,
		Name:           req.Name,
		Manufacturer:   req.Manufacturer,
		Model:          req.Model,
		SerialNumber:   req.SerialNumber,
		Status:         status,
		PurchaseDate:   purchaseDate,
		WarrantyExpiry: warrantyExpiry,
		Notes:          req.Notes,
	}
	if err := h.hardware.Create(c.Context(), hw); err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewHardwareResponse(hw)})
}

// ListByOrganization GET /staff/organizations/:id/hardware.
func (h *HardwareHandler) ListByOrganization(c *fiber.Ctx) error {
	assets, err := h.hardware.ListByOrganization(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.HardwareResponse, 0, len(assets))
	for i := range assets {
		items = append(items, dto.NewHardwareResponse(&assets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListTypes GET /hardware-types.
func (h *HardwareHandler) ListTypes(c *fiber.Ctx) error {
	types, err := h.hardware.ListTypes(c.Context())
	if err != nil {
		return err
	}
	items := make([]dto.HardwareTypeResponse, 0, len(types))
	for _, hwType := range types {
		items = append(items, dto.HardwareTypeResponse{ID: hwType.ID, Name: hwType.Name})
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListOrganizations GET /organizations.
func (h *HardwareHandler) ListOrganizations(c *fiber.Ctx) error {
	orgs, err := h.orgs.List(c.Context())
	if err != nil {
		return err
	}
	items := make([]dto.OrganizationResponse, 0, len(orgs))
	for _, org := range orgs {
		items = append(items, dto.OrganizationResponse{ID: org.ID, Name: org.Name, IsActive: org.IsActive})
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListLocations GET /organizations/:id/locations.
func (h *HardwareHandler) ListLocations(c *fiber.Ctx) error {
	locations, err := h.locations.ListByOrganization(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.LocationResponse, 0, len(locations))
	for _, location := range locations {
		items = append(items, dto.LocationResponse{
			ID:             location.ID,
			OrganizationID: location.OrganizationID,
			Name:           location.Name,
			Address:        location.Address,
			IsActive:       location.IsActive,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// Import POST /staff/hardware/import. Accepts a multipart form with a
// "file" part, or a raw text/csv body.
func (h *HardwareHandler) Import(c *fiber.Ctx) error {
	var report *service.ImportReport

	if file, err := c.FormFile("file"); err == nil {
		opened, err := file.Open()
		if err != nil {
			return apperrors.NewValidationError("unable to open upload", nil)
		}
		defer opened.Close()
		report, err = h.importer.Import(c.Context(), opened)
		if err != nil {
			return err
		}
	} else {
		body := c.Body()
		if len(body) == 0 {
			return apperrors.NewValidationError("csv file required", nil)
		}
		var importErr error
		report, importErr = h.importer.Import(c.Context(), bytes.NewReader(body))
		if importErr != nil {
			return importErr
		}
	}

	// Valid rows are inserted even when others failed, so a mixed
	// outcome is still a success response carrying the row errors.
	status := http.StatusCreated
	if len(report.Errors) > 0 {
		status = http.StatusOK
	}
	return c.Status(status).JSON(fiber.Map{"data": report})
}

func parseDateField(value *string, field string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	parsed, err := time.Parse("2006-01-02", *value)
	if err != nil {
		return nil, apperrors.NewValidationError(field+" must be YYYY-MM-DD", nil)
	}
	return &parsed, nil
}
