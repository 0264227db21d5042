package importer

import (
	"context"
	"fmt"
	"io"

	"github.com/gofiber/fiber/v2/log"

	"github.com/cellsync/cellsync/app/models"
	"github.com/cellsync/cellsync/app/repository"
	"github.com/cellsync/cellsync/internal/pkg/entitlements"
	"github.com/cellsync/cellsync/internal/pkg/metrics"
)

const BatchSize = 100

// RowError lists the problems of one spreadsheet line (header is line 1).
type RowError struct {
	Line   int      `json:"line"`
	Errors []string `json:"errors"`
}

type Preview struct {
	TotalRows   int          `json:"totalRows"`
	ValidRows   int          `json:"validRows"`
	InvalidRows int          `json:"invalidRows"`
	SuccessRate string       `json:"successRate"`
	Rows        []ProductRow `json:"rows"`
	Errors      []RowError   `json:"errors"`
}

type Result struct {
	Message    string     `json:"message"`
	TotalRows  int        `json:"totalRows"`
	Created    int        `json:"created"`
	Skipped    int        `json:"skipped"`
	ErrorCount int        `json:"errorCount"`
	Errors     []RowError `json:"errors"`
}

// StatsInvalidator drops cached dashboard counters for a tenant.
type StatsInvalidator interface {
	Invalidate(ctx context.Context, tenantID uint) error
}

type Service struct {
	products repository.ProductRepository
	tenants  repository.TenantRepository
	plans    repository.PlanRepository
	metrics  *metrics.Metrics
	stats    StatsInvalidator
}

func NewService(repos *repository.Repositories, m *metrics.Metrics) *Service {
	return &Service{
		products: repos.Product,
		tenants:  repos.Tenant,
		plans:    repos.Plan,
		metrics:  m,
	}
}

// WithStats makes successful imports refresh the tenant's dashboard.
func (s *Service) WithStats(stats StatsInvalidator) *Service {
	s.stats = stats
	return s
}

// ParseProducts validates every data row of the table.
func ParseProducts(t *Table) ([]ProductRow, []RowError) {
	var (
		valid []ProductRow
		errs  []RowError
	)
	for i := range t.Rows {
		row := rowFromRecord(t.Line(i), t.Record(i))
		if msgs := row.Validate(); len(msgs) > 0 {
			errs = append(errs, RowError{Line: row.Line, Errors: msgs})
			continue
		}
		valid = append(valid, row)
	}
	return valid, errs
}

// Preview validates without writing anything.
func (s *Service) Preview(r io.Reader, format Format) (*Preview, error) {
	t, err := ReadTable(r, format)
	if err != nil {
		return nil, err
	}
	rows, errs := ParseProducts(t)
	total := len(t.Rows)
	return &Preview{
		TotalRows:   total,
		ValidRows:   len(rows),
		InvalidRows: len(errs),
		SuccessRate: fmt.Sprintf("%.1f", float64(len(rows))/float64(total)*100),
		Rows:        rows,
		Errors:      errs,
	}, nil
}

// ImportProducts inserts the valid rows for tenantID. Rows whose SKU already
// exists, in the database or earlier in the file, are skipped and reported.
// The whole import is refused when the new rows would exceed the plan limit.
func (s *Service) ImportProducts(ctx context.Context, tenantID uint, r io.Reader, format Format) (*Result, error) {
	t, err := ReadTable(r, format)
	if err != nil {
		return nil, err
	}
	rows, rowErrs := ParseProducts(t)
	res := &Result{TotalRows: len(t.Rows), Errors: rowErrs}

	var skus []string
	for _, row := range rows {
		if row.SKU != "" {
			skus = append(skus, row.SKU)
		}
	}
	existing, err := s.products.ExistingSKUs(tenantID, skus)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing SKUs: %w", err)
	}

	seen := make(map[string]bool, len(skus))
	toCreate := make([]models.Product, 0, len(rows))
	for _, row := range rows {
		if row.SKU != "" {
			if existing[row.SKU] || seen[row.SKU] {
				res.Skipped++
				res.Errors = append(res.Errors, RowError{
					Line:   row.Line,
					Errors: []string{fmt.Sprintf("Produto com SKU %s já existe", row.SKU)},
				})
				continue
			}
			seen[row.SKU] = true
		}
		toCreate = append(toCreate, row.ToProduct(tenantID))
	}

	if len(toCreate) > 0 {
		if err := s.checkLimit(tenantID, len(toCreate)); err != nil {
			return nil, err
		}
		if err := s.products.CreateBatch(toCreate, BatchSize); err != nil {
			return nil, fmt.Errorf("failed to insert products: %w", err)
		}
	}

	res.Created = len(toCreate)
	res.ErrorCount = len(res.Errors)
	res.Message = fmt.Sprintf("%d produtos importados com sucesso", res.Created)
	s.metrics.AddImportedProducts(res.Created)
	if res.Created > 0 && s.stats != nil {
		if err := s.stats.Invalidate(ctx, tenantID); err != nil {
			log.Warnf("[Importer] dashboard invalidation for tenant %d failed: %v", tenantID, err)
		}
	}
	log.Infof("[Importer] tenant %d: %d created, %d skipped, %d errors", tenantID, res.Created, res.Skipped, res.ErrorCount)
	return res, nil
}

// CheckUpload refuses files larger than the tenant plan's storage quota.
func (s *Service) CheckUpload(tenantID uint, size int64) error {
	_, plan, err := s.tenantPlan(tenantID)
	if err != nil {
		return err
	}
	return entitlements.EnsureWithinStorage(plan, size)
}

func (s *Service) tenantPlan(tenantID uint) (*models.Tenant, *models.Plan, error) {
	tenant, err := s.tenants.GetByID(tenantID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load tenant %d: %w", tenantID, err)
	}
	plan, err := s.plans.GetByID(tenant.PlanID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load plan %d: %w", tenant.PlanID, err)
	}
	return tenant, plan, nil
}

func (s *Service) checkLimit(tenantID uint, n int) error {
	tenant, plan, err := s.tenantPlan(tenantID)
	if err != nil {
		return err
	}
	current, err := s.products.CountByTenant(tenantID)
	if err != nil {
		return fmt.Errorf("failed to count products: %w", err)
	}
	return entitlements.EnsureCanAddProducts(tenant, plan, current, n)
}
