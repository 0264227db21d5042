package controllers

import (
	"errors"

	"github.com/cellsync/cellsync/internal/pkg/entitlements"
	"github.com/cellsync/cellsync/internal/pkg/tenancy"
	"github.com/cellsync/cellsync/internal/pkg/trpc"
)

func (p *Procedures) createUser(c *trpc.Call) (any, error) {
	var in tenancy.AddUserInput
	if err := c.Bind(&in); err != nil {
		return nil, err
	}
	u, err := p.Tenancy.AddUser(c.Context(), c.TenantID, in)
	switch {
	case errors.Is(err, tenancy.ErrUserLimit):
		return nil, trpc.Wrap(trpc.CodeForbidden, "Limite de usuários do plano atingido", err)
	case errors.Is(err, entitlements.ErrTenantInactive):
		return nil, trpc.Wrap(trpc.CodeForbidden, "Assinatura inativa", err)
	case errors.Is(err, tenancy.ErrDuplicateEmail):
		return nil, trpc.NewError(trpc.CodeConflict, "Este email já está cadastrado")
	case errors.Is(err, tenancy.ErrTenantNotFound):
		return nil, trpc.NotFound("Tenant não encontrado")
	case err != nil:
		return nil, err
	}
	return map[string]any{
		"id":       u.ID,
		"name":     u.Name,
		"email":    u.Email,
		"role":     u.Role,
		"tenantId": u.TenantID,
	}, nil
}
