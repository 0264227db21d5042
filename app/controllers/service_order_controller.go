package controllers

import (
	"errors"

	"github.com/cellsync/cellsync/internal/pkg/serviceorders"
	"github.com/cellsync/cellsync/internal/pkg/trpc"
)

type updateServiceOrderStatusInput struct {
	ID     uint   `json:"id" validate:"required,gt=0"`
	Status string `json:"status" validate:"required,oneof=aberta em_diagnostico aguardando_aprovacao em_reparo concluida cancelada aguardando_retirada"`
}

func (p *Procedures) createServiceOrder(c *trpc.Call) (any, error) {
	if p.ServiceOrders == nil {
		return nil, notConfigured("Ordens de serviço")
	}
	var in serviceorders.CreateInput
	if err := c.Bind(&in); err != nil {
		return nil, err
	}
	order, err := p.ServiceOrders.Create(c.TenantID, in)
	if errors.Is(err, serviceorders.ErrCustomerNotFound) {
		return nil, trpc.Wrap(trpc.CodeNotFound, "Cliente não encontrado", err)
	}
	return order, err
}

func (p *Procedures) updateServiceOrderStatus(c *trpc.Call) (any, error) {
	if p.ServiceOrders == nil {
		return nil, notConfigured("Ordens de serviço")
	}
	var in updateServiceOrderStatusInput
	if err := c.Bind(&in); err != nil {
		return nil, err
	}
	order, err := p.ServiceOrders.UpdateStatus(c.TenantID, in.ID, in.Status)
	switch {
	case errors.Is(err, serviceorders.ErrNotFound):
		return nil, trpc.NotFound("Ordem de serviço não encontrada")
	case errors.Is(err, serviceorders.ErrInvalidTransition):
		return nil, trpc.Wrap(trpc.CodeBadRequest, "Transição de status inválida", err)
	case err != nil:
		return nil, err
	}
	return order, nil
}
