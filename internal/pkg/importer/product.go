package importer

import (
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/cellsync/cellsync/app/models"
)

var (
	priceRe = regexp.MustCompile(`^\d+([.,]\d{1,2})?$`)
	yesNoRe = regexp.MustCompile(`(?i)^(sim|não|nao|s|n|true|false|1|0|yes|no|y)$`)

	validate = newValidator()
)

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("price", func(fl validator.FieldLevel) bool {
		return priceRe.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("yesno", func(fl validator.FieldLevel) bool {
		return yesNoRe.MatchString(fl.Field().String())
	})
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("col")
	})
	return v
}

// ProductRow is one spreadsheet line before conversion.
type ProductRow struct {
	Line         int    `json:"line"`
	Nome         string `col:"nome" json:"nome" validate:"required,max=255"`
	SKU          string `col:"sku" json:"sku,omitempty" validate:"max=100"`
	CodigoBarras string `col:"codigo_barras" json:"codigo_barras,omitempty" validate:"max=100"`
	Categoria    string `col:"categoria" json:"categoria,omitempty" validate:"max=100"`
	Marca        string `col:"marca" json:"marca,omitempty" validate:"max=100"`
	Modelo       string `col:"modelo" json:"modelo,omitempty" validate:"max=100"`
	PrecoCusto   string `col:"preco_custo" json:"preco_custo" validate:"price"`
	PrecoVenda   string `col:"preco_venda" json:"preco_venda" validate:"price"`
	EstoqueMin   string `col:"estoque_minimo" json:"estoque_minimo,omitempty" validate:"omitempty,number"`
	EstoqueAtual string `col:"estoque_atual" json:"estoque_atual,omitempty" validate:"omitempty,number"`
	RequerIMEI   string `col:"requer_imei" json:"requer_imei,omitempty" validate:"omitempty,yesno"`
}

var columnMessages = map[string]string{
	"nome":           "Nome é obrigatório",
	"preco_custo":    "Preço de custo inválido",
	"preco_venda":    "Preço de venda inválido",
	"estoque_minimo": "Estoque mínimo deve ser número inteiro",
	"estoque_atual":  "Estoque atual deve ser número inteiro",
	"requer_imei":    "Requer IMEI deve ser sim/não",
}

func rowFromRecord(line int, rec map[string]string) ProductRow {
	return ProductRow{
		Line:         line,
		Nome:         rec["nome"],
		SKU:          rec["sku"],
		CodigoBarras: rec["codigo_barras"],
		Categoria:    rec["categoria"],
		Marca:        rec["marca"],
		Modelo:       rec["modelo"],
		PrecoCusto:   rec["preco_custo"],
		PrecoVenda:   rec["preco_venda"],
		EstoqueMin:   rec["estoque_minimo"],
		EstoqueAtual: rec["estoque_atual"],
		RequerIMEI:   rec["requer_imei"],
	}
}

// Validate returns one message per invalid column, prefixed with the column name.
func (r *ProductRow) Validate() []string {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{err.Error()}
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg, ok := columnMessages[fe.Field()]
		if !ok {
			msg = fmt.Sprintf("valor inválido (%s)", fe.Tag())
		}
		msgs = append(msgs, fe.Field()+": "+msg)
	}
	return msgs
}

// ToProduct converts a validated row. Missing estoque_minimo defaults to 10.
func (r *ProductRow) ToProduct(tenantID uint) models.Product {
	p := models.Product{
		TenantID:     tenantID,
		Name:         r.Nome,
		Barcode:      r.CodigoBarras,
		Category:     r.Categoria,
		Brand:        r.Marca,
		Model:        r.Modelo,
		CostPrice:    ParsePriceToCents(r.PrecoCusto),
		SalePrice:    ParsePriceToCents(r.PrecoVenda),
		MinStock:     models.DefaultMinStock,
		RequiresIMEI: ParseBool(r.RequerIMEI),
		Active:       true,
	}
	if r.SKU != "" {
		sku := r.SKU
		p.SKU = &sku
	}
	if n, err := strconv.Atoi(r.EstoqueMin); err == nil {
		p.MinStock = n
	}
	if n, err := strconv.Atoi(r.EstoqueAtual); err == nil {
		p.CurrentStock = n
	}
	return p
}

// ParsePriceToCents turns "12,50" or "12.5" into 1250. Unparseable input is 0.
func ParsePriceToCents(s string) int64 {
	v, err := strconv.ParseFloat(strings.Replace(strings.TrimSpace(s), ",", ".", 1), 64)
	if err != nil {
		return 0
	}
	return int64(math.Round(v * 100))
}

func ParseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sim", "s", "true", "1", "yes", "y":
		return true
	}
	return false
}
