package controllers

import (
	"bytes"
	"encoding/base64"
	"errors"

	"github.com/cellsync/cellsync/internal/pkg/entitlements"
	"github.com/cellsync/cellsync/internal/pkg/importer"
	"github.com/cellsync/cellsync/internal/pkg/jobqueue"
	"github.com/cellsync/cellsync/internal/pkg/trpc"
)

type importProductsInput struct {
	FileName string `json:"fileName" validate:"required,max=255"`
	Content  string `json:"content" validate:"required"`
	// Encoding is "base64" (default) or "text".
	Encoding string `json:"encoding" validate:"omitempty,oneof=base64 text"`
	Preview  bool   `json:"preview"`
	Async    bool   `json:"async"`
}

func (in importProductsInput) bytes() ([]byte, error) {
	if in.Encoding == "text" {
		return []byte(in.Content), nil
	}
	return base64.StdEncoding.DecodeString(in.Content)
}

func (p *Procedures) importProducts(c *trpc.Call) (any, error) {
	if p.Importer == nil {
		return nil, notConfigured("Importação")
	}
	var in importProductsInput
	if err := c.Bind(&in); err != nil {
		return nil, err
	}
	content, err := in.bytes()
	if err != nil {
		return nil, trpc.BadRequest("Conteúdo do arquivo inválido")
	}
	head := content
	if len(head) > 512 {
		head = head[:512]
	}
	format := importer.DetectFormat(in.FileName, head)

	if in.Preview {
		preview, err := p.Importer.Preview(bytes.NewReader(content), format)
		return preview, importError(err)
	}

	if err := p.Importer.CheckUpload(c.TenantID, int64(len(content))); err != nil {
		return nil, importError(err)
	}

	if in.Async && p.Jobs != nil {
		job, err := p.Jobs.EnqueueProductImport(jobqueue.ProductImportJobPayload{
			TenantID:    c.TenantID,
			UserID:      c.User.UserID,
			FileName:    in.FileName,
			Content:     base64.StdEncoding.EncodeToString(content),
			RequestedIP: requestMeta(c.Fiber).IPAddress,
		})
		if err != nil {
			return nil, err
		}
		return map[string]any{"queued": true, "jobId": job.ID}, nil
	}

	res, err := p.Importer.ImportProducts(c.Context(), c.TenantID, bytes.NewReader(content), format)
	if err != nil {
		return nil, importError(err)
	}
	return res, nil
}

func importError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, importer.ErrEmptyFile):
		return trpc.BadRequest("Arquivo está vazio")
	case errors.Is(err, entitlements.ErrPlanLimitReached):
		return trpc.Wrap(trpc.CodeForbidden, "Limite de produtos do plano atingido", err)
	case errors.Is(err, entitlements.ErrStorageQuota):
		return trpc.Wrap(trpc.CodeForbidden, "Arquivo excede o armazenamento do plano", err)
	case errors.Is(err, entitlements.ErrTenantInactive):
		return trpc.Wrap(trpc.CodeForbidden, "Assinatura inativa", err)
	}
	return err
}
