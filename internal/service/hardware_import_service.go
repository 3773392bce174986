package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/carelog/carelog/internal/config"
	"github.com/carelog/carelog/internal/domain"
	"github.com/carelog/carelog/internal/repository"
	apperrors "github.com/carelog/carelog/pkg/util"
)

// importColumns is the required CSV header, in order.
var importColumns = []string{
	"organization", "location", "hardware_type", "name",
	"manufacturer", "model", "serial_number", "status",
	"purchase_date", "warranty_expiry", "notes",
}

// importRequiredFields counts the leading columns that must be
// non-empty on every data row.
const importRequiredFields = 4

// RowError pins a validation failure to its 1-indexed data row.
type RowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column"`
	Message string `json:"message"`
}

// ImportReport is the outcome of a bulk import attempt: the valid rows
// that were inserted and the per-row errors for the rest.
type ImportReport struct {
	TotalRows int                 `json:"total_rows"`
	Inserted  int                 `json:"inserted"`
	Errors    []RowError          `json:"errors,omitempty"`
	Items     []ImportedAssetView `json:"items,omitempty"`
}

// ImportedAssetView echoes an inserted asset with the names the CSV
// referenced, already resolved.
type ImportedAssetView struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Organization string `json:"organization"`
	Location     string `json:"location"`
	HardwareType string `json:"hardware_type"`
}

// HardwareImportService performs CSV bulk registration of assets.
// Validation is exhaustive: every problem on every row is reported, and
// rows are partitioned so valid rows still land when others fail.
type HardwareImportService struct {
	hardware  repository.HardwareRepository
	orgs      repository.OrganizationRepository
	locations repository.LocationRepository
	cfg       config.ImportConfig
	logger    *zap.Logger
}

// NewHardwareImportService constructs the service.
func NewHardwareImportService(
	hardware repository.HardwareRepository,
	orgs repository.OrganizationRepository,
	locations repository.LocationRepository,
	cfg config.ImportConfig,
	logger *zap.Logger,
) *HardwareImportService {
	return &HardwareImportService{
		hardware:  hardware,
		orgs:      orgs,
		locations: locations,
		cfg:       cfg,
		logger:    logger,
	}
}

// Import parses and validates the CSV, then inserts the valid rows in
// one batch; invalid rows are reported per row and skipped. Lookups by
// organization, location, and hardware type name are case-insensitive;
// a referenced location must belong to the referenced organization.
func (s *HardwareImportService) Import(ctx context.Context, reader io.Reader) (*ImportReport, error) {
	limited := io.LimitReader(reader, s.cfg.MaxSizeBytes+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, apperrors.NewValidationError("unable to read upload", nil)
	}
	if int64(len(data)) > s.cfg.MaxSizeBytes {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("file exceeds %d byte limit", s.cfg.MaxSizeBytes), nil)
	}

	csvReader := csv.NewReader(strings.NewReader(string(data)))
	csvReader.TrimLeadingSpace = true

	header, err := csvReader.Read()
	if err != nil {
		return nil, apperrors.NewValidationError("missing CSV header", nil)
	}
	if err := validateHeader(header); err != nil {
		return nil, err
	}

	lookups, err := s.loadLookups(ctx)
	if err != nil {
		return nil, err
	}

	var (
		report   ImportReport
		pending  []domain.Hardware
		resolved []ImportedAssetView
	)
	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		report.TotalRows++
		row := report.TotalRows
		if report.TotalRows > s.cfg.MaxRows {
			return nil, apperrors.NewValidationError(
				fmt.Sprintf("file exceeds %d row limit", s.cfg.MaxRows), nil)
		}
		if err != nil {
			report.Errors = append(report.Errors, RowError{
				Row: row, Message: "malformed CSV row: " + err.Error(),
			})
			continue
		}

		asset, view, rowErrs := s.parseRow(row, record, lookups)
		if len(rowErrs) > 0 {
			report.Errors = append(report.Errors, rowErrs...)
			continue
		}
		pending = append(pending, asset)
		resolved = append(resolved, view)
	}

	if report.TotalRows == 0 {
		return nil, apperrors.NewValidationError("file contains no data rows", nil)
	}

	if len(pending) > 0 {
		inserted, err := s.hardware.CreateBatch(ctx, pending)
		if err != nil {
			return nil, err
		}
		for i := range inserted {
			resolved[i].ID = inserted[i].ID
		}
		report.Inserted = len(inserted)
		report.Items = resolved
	}

	s.logger.Info("hardware import completed",
		zap.Int("rows", report.TotalRows),
		zap.Int("inserted", report.Inserted),
		zap.Int("rejected", len(report.Errors)))
	return &report, nil
}

func validateHeader(header []string) error {
	if len(header) != len(importColumns) {
		return apperrors.NewValidationError(
			fmt.Sprintf("expected %d columns, got %d", len(importColumns), len(header)),
			map[string]any{"expected": importColumns})
	}
	for i, name := range header {
		if !strings.EqualFold(strings.TrimSpace(name), importColumns[i]) {
			return apperrors.NewValidationError(
				fmt.Sprintf("unexpected column %q at position %d, want %q", name, i+1, importColumns[i]),
				map[string]any{"expected": importColumns})
		}
	}
	return nil
}

// importLookups indexes reference data by lower-cased name.
type importLookups struct {
	orgs      map[string]domain.Organization
	locations map[string][]domain.Location
	types     map[string]domain.HardwareType
}

func (s *HardwareImportService) loadLookups(ctx context.Context) (*importLookups, error) {
	orgs, err := s.orgs.List(ctx)
	if err != nil {
		return nil, err
	}
	locations, err := s.locations.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	types, err := s.hardware.ListTypes(ctx)
	if err != nil {
		return nil, err
	}

	lookups := &importLookups{
		orgs:      make(map[string]domain.Organization, len(orgs)),
		locations: make(map[string][]domain.Location),
		types:     make(map[string]domain.HardwareType, len(types)),
	}
	for _, org := range orgs {
		lookups.orgs[strings.ToLower(org.Name)] = org
	}
	for _, location := range locations {
		key := strings.ToLower(location.Name)
		lookups.locations[key] = append(lookups.locations[key], location)
	}
	for _, hwType := range types {
		lookups.types[strings.ToLower(hwType.Name)] = hwType
	}
	return lookups, nil
}

// parseRow validates one data row and resolves its references. It
// returns every problem on the row, not just the first.
func (s *HardwareImportService) parseRow(row int, record []string, lookups *importLookups) (domain.Hardware, ImportedAssetView, []RowError) {
	var rowErrs []RowError
	fields := make([]string, len(importColumns))
	for i := range record {
		if i < len(fields) {
			fields[i] = strings.TrimSpace(record[i])
		}
	}

	for i := 0; i < importRequiredFields; i++ {
		if fields[i] == "" {
			rowErrs = append(rowErrs, RowError{
				Row: row, Column: importColumns[i], Message: "required",
			})
		}
	}

	var asset domain.Hardware
	var view ImportedAssetView

	org, orgFound := lookups.orgs[strings.ToLower(fields[0])]
	if fields[0] != "" && !orgFound {
		rowErrs = append(rowErrs, RowError{
			Row: row, Column: "organization",
			Message: fmt.Sprintf("unknown organization %q", fields[0]),
		})
	}

	if fields[1] != "" {
		location, found := matchLocation(lookups, fields[1], org.ID)
		switch {
		case !found && orgFound:
			rowErrs = append(rowErrs, RowError{
				Row: row, Column: "location",
				Message: fmt.Sprintf("no location %q in organization %q", fields[1], fields[0]),
			})
		case found:
			asset.LocationID = location.ID
			view.Location = location.Name
		}
	}

	hwType, typeFound := lookups.types[strings.ToLower(fields[2])]
	if fields[2] != "" && !typeFound {
		rowErrs = append(rowErrs, RowError{
			Row: row, Column: "hardware_type",
			Message: fmt.Sprintf("unknown hardware type %q", fields[2]),
		})
	}

	status := domain.HardwareStatusActive
	if fields[7] != "" {
		status = domain.HardwareStatus(strings.ToLower(fields[7]))
		if !domain.ValidHardwareStatus(status) {
			rowErrs = append(rowErrs, RowError{
				Row: row, Column: "status",
				Message: fmt.Sprintf("invalid status %q, must be one of %v", fields[7], domain.HardwareStatuses),
			})
		}
	}

	purchaseDate, err := parseOptionalDate(fields[8])
	if err != nil {
		rowErrs = append(rowErrs, RowError{
			Row: row, Column: "purchase_date",
			Message: fmt.Sprintf("invalid date %q, want YYYY-MM-DD", fields[8]),
		})
	}
	warrantyExpiry, err := parseOptionalDate(fields[9])
	if err != nil {
		rowErrs = append(rowErrs, RowError{
			Row: row, Column: "warranty_expiry",
			Message: fmt.Sprintf("invalid date %q, want YYYY-MM-DD", fields[9]),
		})
	}

	if len(rowErrs) > 0 {
		return domain.Hardware{}, ImportedAssetView{}, rowErrs
	}

	asset.OrganizationID = org.ID
	asset.HardwareTypeID = hwType.ID
	asset.Name = fields[3]
	asset.Manufacturer = optionalString(fields[4])
	asset.Model = optionalString(fields[5])
	asset.SerialNumber = optionalString(fields[6])
	asset.Status = status
	asset.PurchaseDate = purchaseDate
	asset.WarrantyExpiry = warrantyExpiry
	asset.Notes = optionalString(fields[10])

	view.Name = asset.Name
	view.Organization = org.Name
	view.HardwareType = hwType.Name
	return asset, view, nil
}

// matchLocation finds a location by name scoped to the organization.
func matchLocation(lookups *importLookups, name, orgID string) (domain.Location, bool) {
	for _, location := range lookups.locations[strings.ToLower(name)] {
		if location.OrganizationID == orgID {
			return location, true
		}
	}
	return domain.Location{}, false
}

func parseOptionalDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, errors.New("invalid date")
	}
	return &parsed, nil
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
