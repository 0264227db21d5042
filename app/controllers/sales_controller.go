package controllers

import (
	"errors"

	"github.com/cellsync/cellsync/internal/pkg/sales"
	"github.com/cellsync/cellsync/internal/pkg/trpc"
)

type commissionsInput struct {
	Limit int `json:"limit" validate:"gte=0,lte=100"`
}

func (p *Procedures) createSale(c *trpc.Call) (any, error) {
	if p.Sales == nil {
		return nil, notConfigured("Vendas")
	}
	var in sales.CreateInput
	if err := c.Bind(&in); err != nil {
		return nil, err
	}
	sale, commission, err := p.Sales.Create(c.Context(), c.TenantID, c.User.UserID, in)
	switch {
	case errors.Is(err, sales.ErrProductNotFound):
		return nil, trpc.Wrap(trpc.CodeNotFound, "Produto não encontrado", err)
	case errors.Is(err, sales.ErrCustomerNotFound):
		return nil, trpc.Wrap(trpc.CodeNotFound, "Cliente não encontrado", err)
	case err != nil:
		return nil, err
	}
	return map[string]any{"sale": sale, "commission": commission}, nil
}

func (p *Procedures) myCommissions(c *trpc.Call) (any, error) {
	if p.Sales == nil {
		return nil, notConfigured("Vendas")
	}
	in := commissionsInput{Limit: 50}
	if err := c.BindOptional(&in); err != nil {
		return nil, err
	}
	if in.Limit == 0 {
		in.Limit = 50
	}
	return p.Sales.Commissions(c.TenantID, c.User.UserID, in.Limit)
}
