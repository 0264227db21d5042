package controllers

import (
	"errors"

	"github.com/cellsync/cellsync/internal/pkg/tenancy"
	"github.com/cellsync/cellsync/internal/pkg/trpc"
)

type switchTenantInput struct {
	TenantID uint `json:"tenantId" validate:"required,gt=0"`
}

func (p *Procedures) registerTenant(c *trpc.Call) (any, error) {
	var in tenancy.RegisterInput
	if err := c.Bind(&in); err != nil {
		return nil, err
	}
	tenant, admin, err := p.Tenancy.Register(c.Context(), in)
	switch {
	case errors.Is(err, tenancy.ErrDuplicateSubdomain):
		return nil, trpc.NewError(trpc.CodeConflict, "Este subdomínio já está em uso")
	case errors.Is(err, tenancy.ErrDuplicateEmail):
		return nil, trpc.NewError(trpc.CodeConflict, "Este email já está cadastrado")
	case err != nil:
		return nil, err
	}
	return map[string]any{
		"tenantId":    tenant.ID,
		"subdomain":   tenant.Subdomain,
		"status":      tenant.Status,
		"trialEndsAt": tenant.TrialEndsAt,
		"userId":      admin.ID,
	}, nil
}

func (p *Procedures) switchTenant(c *trpc.Call) (any, error) {
	var in switchTenantInput
	if err := c.Bind(&in); err != nil {
		return nil, err
	}
	tenant, err := p.Tenancy.Switch(c.User.Role, in.TenantID)
	switch {
	case errors.Is(err, tenancy.ErrTenantNotFound):
		return nil, trpc.NotFound("Tenant não encontrado")
	case errors.Is(err, tenancy.ErrNotMasterAdmin):
		return nil, trpc.Forbidden("Acesso negado")
	case err != nil:
		return nil, err
	}
	if c.Fiber != nil {
		tenancy.SetSwitchCookie(c.Fiber, tenant.ID)
	}
	return tenant, nil
}

func (p *Procedures) clearSwitch(c *trpc.Call) (any, error) {
	if c.Fiber != nil {
		tenancy.ClearSwitchCookie(c.Fiber)
	}
	return map[string]any{"success": true}, nil
}

func (p *Procedures) listTenants(c *trpc.Call) (any, error) {
	return p.Tenancy.List()
}

func (p *Procedures) listPlans(c *trpc.Call) (any, error) {
	list, err := p.Plans.ListPublic()
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(list))
	for _, plan := range list {
		out = append(out, map[string]any{
			"id":           plan.ID,
			"name":         plan.Name,
			"slug":         plan.Slug,
			"description":  plan.Description,
			"priceMonthly": plan.PriceMonthly,
			"priceYearly":  plan.PriceYearly,
			"maxUsers":     plan.MaxUsers,
			"maxProducts":  plan.MaxProducts,
			"maxStorage":   plan.MaxStorageMB,
			"features":     plan.Features,
		})
	}
	return out, nil
}
