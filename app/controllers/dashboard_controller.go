package controllers

import (
	"github.com/cellsync/cellsync/internal/pkg/trpc"
)

type salesByDayInput struct {
	Days int `json:"days" validate:"gte=0,lte=90"`
}

func (p *Procedures) dashboardStats(c *trpc.Call) (any, error) {
	if p.Dashboard == nil {
		return nil, notConfigured("Estatísticas")
	}
	return p.Dashboard.Get(c.Context(), c.TenantID)
}

func (p *Procedures) dashboardSalesByDay(c *trpc.Call) (any, error) {
	if p.Dashboard == nil {
		return nil, notConfigured("Estatísticas")
	}
	var in salesByDayInput
	if err := c.BindOptional(&in); err != nil {
		return nil, err
	}
	return p.Dashboard.SalesByDay(c.Context(), c.TenantID, in.Days)
}
