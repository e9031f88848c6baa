package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/tutorbill/tutorbill-api/internal/models"
	appErrors "github.com/tutorbill/tutorbill-api/pkg/errors"
	"github.com/tutorbill/tutorbill-api/pkg/export"
)

type summaryProvider interface {
	MonthlySummary(ctx context.Context, month string) (*models.MonthlySummary, error)
}

// ExportFormat identifies the statement output format.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportFile is a rendered statement ready for download.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders monthly billing statements as CSV or PDF.
type ExportService struct {
	billing        summaryProvider
	csv            *export.CSVExporter
	pdf            *export.PDFExporter
	currencySymbol string
	logger         *zap.Logger
}

// NewExportService instantiates ExportService.
func NewExportService(billing summaryProvider, currencySymbol string, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		billing:        billing,
		csv:            export.NewCSVExporter(),
		pdf:            export.NewPDFExporter(),
		currencySymbol: currencySymbol,
		logger:         logger,
	}
}

// MonthlyStatement renders the cross-student statement for one month.
func (s *ExportService) MonthlyStatement(ctx context.Context, month string, format ExportFormat) (*ExportFile, error) {
	summary, err := s.billing.MonthlySummary(ctx, month)
	if err != nil {
		return nil, err
	}

	dataset := s.buildDataset(summary)
	title := fmt.Sprintf("Billing Statement %s", summary.Month)

	switch format {
	case ExportFormatCSV:
		data, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv statement")
		}
		return &ExportFile{
			Filename:    fmt.Sprintf("statement-%s.csv", summary.Month),
			ContentType: "text/csv",
			Data:        data,
		}, nil
	case ExportFormatPDF:
		data, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf statement")
		}
		return &ExportFile{
			Filename:    fmt.Sprintf("statement-%s.pdf", summary.Month),
			ContentType: "application/pdf",
			Data:        data,
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrInvalidFormat, fmt.Sprintf("unsupported export format %q", format))
	}
}

func (s *ExportService) buildDataset(summary *models.MonthlySummary) export.Dataset {
	headers := []string{"Student", "Hours", "Earnings", "Outstanding", "Status"}
	rows := make([]map[string]string, 0, len(summary.Rows)+1)
	for _, row := range summary.Rows {
		rows = append(rows, map[string]string{
			"Student":     row.StudentName,
			"Hours":       fmt.Sprintf("%d", row.Hours),
			"Earnings":    s.money(row.Earnings),
			"Outstanding": s.money(row.Outstanding),
			"Status":      string(row.Status),
		})
	}
	rows = append(rows, map[string]string{
		"Student":     "TOTAL",
		"Hours":       fmt.Sprintf("%d", summary.TotalHours),
		"Earnings":    s.money(summary.TotalEarnings),
		"Outstanding": s.money(summary.TotalOutstanding),
		"Status":      "",
	})
	return export.Dataset{Headers: headers, Rows: rows}
}

func (s *ExportService) money(a models.Amount) string {
	if s.currencySymbol == "" {
		return a.String()
	}
	return s.currencySymbol + a.String()
}
