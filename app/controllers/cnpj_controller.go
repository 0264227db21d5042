package controllers

import (
	"errors"

	"github.com/cellsync/cellsync/internal/pkg/cnpj"
	"github.com/cellsync/cellsync/internal/pkg/trpc"
)

type cnpjInput struct {
	CNPJ string `json:"cnpj" validate:"required"`
}

func (p *Procedures) validateCNPJ(c *trpc.Call) (any, error) {
	var in cnpjInput
	if err := c.Bind(&in); err != nil {
		return nil, err
	}
	valid := cnpj.Validate(in.CNPJ)
	out := map[string]any{"valid": valid, "cleaned": cnpj.Clean(in.CNPJ)}
	if valid {
		out["formatted"] = cnpj.Format(in.CNPJ)
	}
	return out, nil
}

func (p *Procedures) lookupCNPJ(c *trpc.Call) (any, error) {
	if p.CNPJ == nil {
		return nil, notConfigured("Consulta de CNPJ")
	}
	var in cnpjInput
	if err := c.Bind(&in); err != nil {
		return nil, err
	}
	data, err := p.CNPJ.Lookup(c.Context(), in.CNPJ)
	if errors.Is(err, cnpj.ErrInvalidCNPJ) {
		return nil, trpc.BadRequest("CNPJ inválido")
	}
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, trpc.NotFound("CNPJ não encontrado")
	}
	return map[string]any{
		"data":  data,
		"basic": cnpj.ExtractBasicData(data),
	}, nil
}
