package plans

import (
	"fmt"

	"github.com/gofiber/fiber/v2/log"

	"github.com/cellsync/cellsync/app/models"
	"github.com/cellsync/cellsync/app/repository"
)

// Price is a monthly/yearly pair in cents.
type Price struct {
	Monthly int64
	Yearly  int64
}

// CorrectedPrices is the current price table. Older databases were seeded
// with a different table; FixPricing brings them in line.
var CorrectedPrices = map[string]Price{
	"basico":       {Monthly: 9700, Yearly: 97000},
	"profissional": {Monthly: 19700, Yearly: 197000},
	"empresarial":  {Monthly: 59900, Yearly: 599000},
}

// DefaultCatalog returns fresh copies of the three plans.
func DefaultCatalog() []models.Plan {
	return []models.Plan{
		{
			Name:         "Básico",
			Slug:         "basico",
			Description:  "Para lojas que estão começando",
			PriceMonthly: CorrectedPrices["basico"].Monthly,
			PriceYearly:  CorrectedPrices["basico"].Yearly,
			MaxUsers:     2,
			MaxProducts:  500,
			MaxStorageMB: 1024,
			Features:     []string{"pdv", "estoque", "clientes", "relatorios_basicos"},
			IsActive:     true,
		},
		{
			Name:         "Profissional",
			Slug:         "profissional",
			Description:  "Para lojas com assistência técnica",
			PriceMonthly: CorrectedPrices["profissional"].Monthly,
			PriceYearly:  CorrectedPrices["profissional"].Yearly,
			MaxUsers:     10,
			MaxProducts:  5000,
			MaxStorageMB: 10240,
			Features:     []string{"pdv", "estoque", "clientes", "ordens_servico", "nfe", "comissoes", "relatorios_avancados"},
			IsActive:     true,
		},
		{
			Name:         "Empresarial",
			Slug:         "empresarial",
			Description:  "Para redes e importadoras",
			PriceMonthly: CorrectedPrices["empresarial"].Monthly,
			PriceYearly:  CorrectedPrices["empresarial"].Yearly,
			MaxUsers:     models.Unlimited,
			MaxProducts:  models.Unlimited,
			MaxStorageMB: models.Unlimited,
			Features:     []string{"pdv", "estoque", "clientes", "ordens_servico", "nfe", "comissoes", "relatorios_avancados", "multi_lojas", "api", "suporte_prioritario"},
			IsActive:     true,
		},
	}
}

type Service struct {
	plans repository.PlanRepository
}

func NewService(plans repository.PlanRepository) *Service {
	return &Service{plans: plans}
}

// Seed upserts the default catalog and returns the slugs written.
func (s *Service) Seed() ([]string, error) {
	var slugs []string
	for _, p := range DefaultCatalog() {
		plan := p
		if err := plan.Validate(); err != nil {
			return slugs, fmt.Errorf("invalid plan %s: %w", plan.Slug, err)
		}
		if err := s.plans.UpsertBySlug(&plan); err != nil {
			return slugs, fmt.Errorf("failed to upsert plan %s: %w", plan.Slug, err)
		}
		slugs = append(slugs, plan.Slug)
	}
	log.Infof("[Plans] Seeded %d plans", len(slugs))
	return slugs, nil
}

// FixResult describes one plan touched by FixPricing.
type FixResult struct {
	Slug    string
	Monthly int64
	Yearly  int64
	Updated bool
}

// FixPricing applies CorrectedPrices. Slugs missing from the database are
// reported with Updated=false.
func (s *Service) FixPricing() ([]FixResult, error) {
	var results []FixResult
	for _, p := range DefaultCatalog() {
		price := CorrectedPrices[p.Slug]
		n, err := s.plans.UpdatePricing(p.Slug, price.Monthly, price.Yearly)
		if err != nil {
			return results, fmt.Errorf("failed to update pricing for %s: %w", p.Slug, err)
		}
		results = append(results, FixResult{Slug: p.Slug, Monthly: price.Monthly, Yearly: price.Yearly, Updated: n > 0})
	}
	return results, nil
}

// ListPublic returns the active plans ordered by monthly price.
func (s *Service) ListPublic() ([]models.Plan, error) {
	return s.plans.ListActive()
}

// FormatBRL renders cents as "R$ 97,00".
func FormatBRL(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%sR$ %d,%02d", sign, cents/100, cents%100)
}
