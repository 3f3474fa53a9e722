package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/campusclub/gear-rental-api/internal/models"
	appErrors "github.com/campusclub/gear-rental-api/pkg/errors"
	"github.com/campusclub/gear-rental-api/pkg/export"
)

// ExportFormat enumerates supported report encodings.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportResult is a rendered report returned inline.
type ExportResult struct {
	Filename    string
	ContentType string
	Payload     []byte
}

type exportRentalLister interface {
	ListAll(ctx context.Context, filter models.RentalFilter) ([]models.RentalDetail, error)
}

type exportEquipmentLister interface {
	ListAll(ctx context.Context, filter models.EquipmentFilter) ([]models.Equipment, error)
}

type exportAuditLister interface {
	History(ctx context.Context, filter models.AuditFilter) ([]models.AuditLogDetail, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportService renders rental, inventory and audit reports. Reports are
// generated synchronously and streamed back in the response body.
type ExportService struct {
	rentals   exportRentalLister
	equipment exportEquipmentLister
	audit     exportAuditLister
	csv       csvRenderer
	pdf       pdfRenderer
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(rentals exportRentalLister, equipment exportEquipmentLister, audit exportAuditLister, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		rentals:   rentals,
		equipment: equipment,
		audit:     audit,
		csv:       csv,
		pdf:       pdf,
		logger:    logger,
		now:       time.Now,
	}
}

// Rentals exports the rental ledger matching the filter.
func (s *ExportService) Rentals(ctx context.Context, filter models.RentalFilter, format ExportFormat) (*ExportResult, error) {
	rentals, err := s.rentals.ListAll(ctx, filter)
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{
		Headers: []string{"Student", "Equipment", "Quantity", "Start Date", "Due Date", "Returned", "Return Date", "Late Fee"},
	}
	for _, r := range rentals {
		row := map[string]string{
			"Student":    r.StudentName,
			"Equipment":  r.EquipmentName,
			"Quantity":   strconv.Itoa(r.Quantity),
			"Start Date": r.StartDate.Format("2006-01-02"),
			"Due Date":   r.DueDate.Format("2006-01-02"),
			"Returned":   strconv.FormatBool(r.IsReturned),
		}
		if r.ReturnDate != nil {
			row["Return Date"] = r.ReturnDate.Format("2006-01-02")
		}
		if r.LateFee != nil {
			row["Late Fee"] = strconv.FormatInt(*r.LateFee, 10)
		} else if r.IsOverdue {
			row["Late Fee"] = strconv.FormatInt(r.CalculatedLateFee, 10)
		}
		dataset.Rows = append(dataset.Rows, row)
	}

	return s.render(dataset, "Rental Ledger", "rentals", format)
}

// Inventory exports the equipment catalog matching the filter.
func (s *ExportService) Inventory(ctx context.Context, filter models.EquipmentFilter, format ExportFormat) (*ExportResult, error) {
	items, err := s.equipment.ListAll(ctx, filter)
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{
		Headers: []string{"Name", "Category", "Total", "Available", "Active"},
	}
	for _, item := range items {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Name":      item.Name,
			"Category":  item.Category,
			"Total":     strconv.Itoa(item.TotalQuantity),
			"Available": strconv.Itoa(item.AvailableQuantity),
			"Active":    strconv.FormatBool(item.IsActive),
		})
	}

	return s.render(dataset, "Equipment Inventory", "inventory", format)
}

// AuditLog exports recent audit entries matching the filter.
func (s *ExportService) AuditLog(ctx context.Context, filter models.AuditFilter, format ExportFormat) (*ExportResult, error) {
	entries, err := s.audit.History(ctx, filter)
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{
		Headers: []string{"Timestamp", "Actor", "Action", "Details"},
	}
	for _, entry := range entries {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Timestamp": entry.CreatedAt.Format(time.RFC3339),
			"Actor":     entry.ActorName,
			"Action":    entry.Action,
			"Details":   entry.Details,
		})
	}

	return s.render(dataset, "Audit History", "audit", format)
}

func (s *ExportService) render(dataset export.Dataset, title, prefix string, format ExportFormat) (*ExportResult, error) {
	stamp := s.now().UTC().Format("20060102-150405")

	switch format {
	case ExportFormatCSV:
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportResult{
			Filename:    fmt.Sprintf("%s-%s.csv", prefix, stamp),
			ContentType: "text/csv",
			Payload:     payload,
		}, nil
	case ExportFormatPDF:
		payload, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportResult{
			Filename:    fmt.Sprintf("%s-%s.pdf", prefix, stamp),
			ContentType: "application/pdf",
			Payload:     payload,
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}
