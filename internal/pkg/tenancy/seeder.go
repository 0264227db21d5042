package tenancy

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/cellsync/cellsync/app/models"
)

// DemoTenant is one row of the demo fixture.
type DemoTenant struct {
	Name      string
	Subdomain string
	PlanSlug  string
	Status    string
}

var DemoTenants = []DemoTenant{
	{"Loja Centro - São Paulo", "loja-centro-sp", "basico", models.TenantStatusActive},
	{"Loja Shopping Iguatemi", "loja-iguatemi", "profissional", models.TenantStatusActive},
	{"Assistência Técnica Premium", "assistencia-premium", "empresarial", models.TenantStatusActive},
	{"Importadora Cell Tech", "importadora-celltech", "profissional", models.TenantStatusTrial},
	{"Loja Zona Norte - RJ", "loja-zona-norte-rj", "basico", models.TenantStatusSuspended},
}

const (
	MasterTenantName      = "CellSync Master"
	MasterTenantSubdomain = "master"
)

// SeedReport lists what a seed run created and what already existed.
type SeedReport struct {
	Created []string
	Skipped []string
}

// SeedMasterTenant creates tenant 1 when it does not exist.
func (s *Service) SeedMasterTenant(ctx context.Context) (bool, error) {
	_ = ctx
	_, err := s.repos.Tenant.GetByID(models.MasterTenantID)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	planID := uint(1)
	if plan, err := s.repos.Plan.GetBySlug("empresarial"); err == nil {
		planID = plan.ID
	}
	master := &models.Tenant{
		ID:        models.MasterTenantID,
		Name:      MasterTenantName,
		Subdomain: MasterTenantSubdomain,
		PlanID:    planID,
		Status:    models.TenantStatusActive,
	}
	if err := s.repos.Tenant.Create(master); err != nil {
		return false, fmt.Errorf("failed to create master tenant: %w", err)
	}
	log.Infof("[Tenancy] Master tenant created")
	return true, nil
}

// SeedDemoTenants inserts the demo fixture. Existing subdomains are skipped,
// never updated.
func (s *Service) SeedDemoTenants(ctx context.Context) (*SeedReport, error) {
	_ = ctx
	report := &SeedReport{}
	for _, demo := range DemoTenants {
		_, err := s.repos.Tenant.GetBySubdomain(demo.Subdomain)
		if err == nil {
			report.Skipped = append(report.Skipped, demo.Subdomain)
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return report, fmt.Errorf("failed to look up %s: %w", demo.Subdomain, err)
		}

		plan, err := s.repos.Plan.GetBySlug(demo.PlanSlug)
		if err != nil {
			return report, fmt.Errorf("plan %s missing, seed plans first: %w", demo.PlanSlug, err)
		}
		tenant := &models.Tenant{
			Name:      demo.Name,
			Subdomain: demo.Subdomain,
			PlanID:    plan.ID,
			Status:    demo.Status,
		}
		if demo.Status == models.TenantStatusTrial {
			ends := s.now().AddDate(0, 0, s.trialDays)
			tenant.TrialEndsAt = &ends
		}
		if err := s.repos.Tenant.Create(tenant); err != nil {
			return report, fmt.Errorf("failed to create %s: %w", demo.Subdomain, err)
		}
		report.Created = append(report.Created, demo.Subdomain)
	}
	log.Infof("[Tenancy] Demo tenants: %d created, %d skipped", len(report.Created), len(report.Skipped))
	return report, nil
}
