package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/muse-ops-api/internal/dto"
	"github.com/noah-isme/muse-ops-api/internal/models"
	"github.com/noah-isme/muse-ops-api/pkg/export"
	"github.com/noah-isme/muse-ops-api/pkg/storage"
)

type financeSummarySource interface {
	MonthSummary(ctx context.Context, month string) (*dto.FinanceMonthSummary, bool, error)
	BudgetComparison(ctx context.Context, month string) (*dto.BudgetComparisonResponse, error)
}

type ledgerSource interface {
	StudentLedger(ctx context.Context, studentID string) (*dto.StudentLedgerResponse, bool, error)
}

type payoutSource interface {
	TeacherPayout(ctx context.Context, teacherID, fromMonth, toMonth string) (*dto.TeacherPayoutResponse, error)
}

type exportStudentLister interface {
	ListActive(ctx context.Context) ([]models.Student, error)
}

type exportTeacherLister interface {
	ListActive(ctx context.Context) ([]models.Teacher, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

// ExportService builds report datasets and persists rendered files.
type ExportService struct {
	finance  financeSummarySource
	ledger   ledgerSource
	payouts  payoutSource
	students exportStudentLister
	teachers exportTeacherLister
	storage  fileStorage
	csv      csvRenderer
	pdf      pdfRenderer
	signer   *storage.SignedURLSigner
	logger   *zap.Logger
	cfg      ExportConfig
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// NewExportService constructs an ExportService.
func NewExportService(finance financeSummarySource, ledger ledgerSource, payouts payoutSource, students exportStudentLister, teachers exportTeacherLister, storage fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		finance:  finance,
		ledger:   ledger,
		payouts:  payouts,
		students: students,
		teachers: teachers,
		storage:  storage,
		csv:      csv,
		pdf:      pdf,
		signer:   signer,
		logger:   logger,
		cfg:      cfg,
	}
}

// Generate builds dataset according to job definition and stores the rendered export.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	dataset, title, err := s.buildDataset(ctx, job)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	filename := s.buildFilename(job)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	signedURL := strings.TrimRight(s.cfg.APIPrefix, "/")
	if signedURL == "" {
		signedURL = "/api/v1"
	}
	signedURL = fmt.Sprintf("%s/export/%s", signedURL, token)

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          signedURL,
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ReportJob) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	monthPart := sanitizeFilename(job.Params.Month)
	return fmt.Sprintf("%s_%s_%s.%s", strings.ToLower(string(job.Type)), monthPart, timestamp, job.Params.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ReportJob) (export.Dataset, string, error) {
	switch job.Type {
	case models.ReportTypeFinanceSummary:
		return s.buildFinanceSummaryDataset(ctx, job.Params)
	case models.ReportTypeCreditLedger:
		return s.buildCreditLedgerDataset(ctx, job.Params)
	case models.ReportTypeTeacherPayouts:
		return s.buildTeacherPayoutDataset(ctx, job.Params)
	default:
		return export.Dataset{}, "", fmt.Errorf("unsupported report type %s", job.Type)
	}
}

func (s *ExportService) buildFinanceSummaryDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, string, error) {
	summary, _, err := s.finance.MonthSummary(ctx, params.Month)
	if err != nil {
		return export.Dataset{}, "", err
	}
	comparison, err := s.finance.BudgetComparison(ctx, params.Month)
	if err != nil {
		return export.Dataset{}, "", err
	}

	rows := []map[string]string{
		{"Metric": "Realized Revenue", "Value": summary.RealizedRevenue.StringFixed(2), "Budgeted": comparison.Revenue.Budgeted.StringFixed(2), "Variance": comparison.Revenue.Variance.StringFixed(2)},
		{"Metric": "Projected Revenue", "Value": summary.ProjectedRevenue.StringFixed(2), "Budgeted": "", "Variance": ""},
		{"Metric": "Teacher Expense", "Value": summary.TeacherExpense.StringFixed(2), "Budgeted": "", "Variance": ""},
		{"Metric": "Fixed Costs", "Value": summary.FixedCosts.StringFixed(2), "Budgeted": "", "Variance": ""},
		{"Metric": "Total Expenses", "Value": summary.TotalExpenses.StringFixed(2), "Budgeted": "", "Variance": ""},
		{"Metric": "Projected Profit", "Value": summary.ProjectedProfit.StringFixed(2), "Budgeted": "", "Variance": ""},
		{"Metric": "Realized Profit", "Value": summary.RealizedProfit.StringFixed(2), "Budgeted": "", "Variance": ""},
	}
	for _, line := range comparison.Expenses {
		rows = append(rows, map[string]string{
			"Metric":   fmt.Sprintf("Expense: %s", line.Category),
			"Value":    line.Actual.StringFixed(2),
			"Budgeted": line.Budgeted.StringFixed(2),
			"Variance": line.Variance.StringFixed(2),
		})
	}

	dataset := export.Dataset{
		Headers: []string{"Metric", "Value", "Budgeted", "Variance"},
		Rows:    rows,
	}
	return dataset, fmt.Sprintf("Finance Summary %s", params.Month), nil
}

func (s *ExportService) buildCreditLedgerDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, string, error) {
	students, err := s.students.ListActive(ctx)
	if err != nil {
		return export.Dataset{}, "", err
	}

	rows := make([]map[string]string, 0, len(students))
	for _, student := range students {
		ledger, _, err := s.ledger.StudentLedger(ctx, student.ID)
		if err != nil {
			return export.Dataset{}, "", err
		}
		for _, summary := range ledger.Summaries {
			overdue := "no"
			if summary.IsOverdue {
				overdue = "yes"
			}
			rows = append(rows, map[string]string{
				"Student":        student.FullName,
				"Batch ID":       summary.BatchID,
				"Plan":           string(summary.Frequency),
				"Purchased":      fmt.Sprintf("%d", summary.CreditsPurchased),
				"Consumed":       fmt.Sprintf("%d", summary.CreditsConsumed),
				"Remaining":      fmt.Sprintf("%d", summary.ClassesRemaining),
				"Overdue":        overdue,
				"Last Payment":   derefString(summary.LastPaymentDate),
				"Expected Start": derefString(summary.ExpectedStartDate),
			})
		}
	}

	dataset := export.Dataset{
		Headers: []string{"Student", "Batch ID", "Plan", "Purchased", "Consumed", "Remaining", "Overdue", "Last Payment", "Expected Start"},
		Rows:    rows,
	}
	return dataset, fmt.Sprintf("Credit Ledger %s", params.Month), nil
}

func (s *ExportService) buildTeacherPayoutDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, string, error) {
	teachers, err := s.teachers.ListActive(ctx)
	if err != nil {
		return export.Dataset{}, "", err
	}

	rows := make([]map[string]string, 0, len(teachers))
	for _, teacher := range teachers {
		payout, err := s.payouts.TeacherPayout(ctx, teacher.ID, params.Month, params.Month)
		if err != nil {
			return export.Dataset{}, "", err
		}
		rows = append(rows, map[string]string{
			"Teacher": teacher.FullName,
			"Model":   string(payout.Projected.Model),
			"Basis":   payout.Projected.BasisLabel,
			"Amount":  payout.Projected.Amount.StringFixed(2),
		})
	}

	dataset := export.Dataset{
		Headers: []string{"Teacher", "Model", "Basis", "Amount"},
		Rows:    rows,
	}
	return dataset, fmt.Sprintf("Teacher Payouts %s", params.Month), nil
}

func derefString(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
