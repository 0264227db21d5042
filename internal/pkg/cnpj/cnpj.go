package cnpj

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidCNPJ = errors.New("CNPJ inválido")

// Partner is one entry of the company's partner list (QSA).
type Partner struct {
	Nome         string `json:"nome"`
	Qual         string `json:"qual"`
	PaisOrigem   string `json:"pais_origem,omitempty"`
	NomeRepLegal string `json:"nome_rep_legal,omitempty"`
	QualRepLegal string `json:"qual_rep_legal,omitempty"`
}

// Data is the normalized registry record returned by Lookup.
type Data struct {
	CNPJ                    string    `json:"cnpj"`
	RazaoSocial             string    `json:"razao_social"`
	NomeFantasia            string    `json:"nome_fantasia"`
	CNAEFiscal              int64     `json:"cnae_fiscal"`
	CNAEFiscalDescricao     string    `json:"cnae_fiscal_descricao"`
	DataInicioAtividade     string    `json:"data_inicio_atividade"`
	Logradouro              string    `json:"logradouro"`
	Numero                  string    `json:"numero"`
	Complemento             string    `json:"complemento"`
	Bairro                  string    `json:"bairro"`
	Municipio               string    `json:"municipio"`
	UF                      string    `json:"uf"`
	CEP                     string    `json:"cep"`
	DDDTelefone1            string    `json:"ddd_telefone_1"`
	DDDTelefone2            string    `json:"ddd_telefone_2,omitempty"`
	Email                   string    `json:"email,omitempty"`
	SituacaoCadastral       string    `json:"situacao_cadastral"`
	DataSituacaoCadastral   string    `json:"data_situacao_cadastral"`
	MotivoSituacaoCadastral string    `json:"motivo_situacao_cadastral,omitempty"`
	Porte                   string    `json:"porte"`
	CapitalSocial           float64   `json:"capital_social"`
	NaturezaJuridica        string    `json:"natureza_juridica"`
	QSA                     []Partner `json:"qsa,omitempty"`
}

// Clean strips everything but digits.
func Clean(cnpj string) string {
	var b strings.Builder
	for _, r := range cnpj {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Format renders 00.000.000/0000-00; anything that is not 14 digits is
// returned unchanged.
func Format(cnpj string) string {
	c := Clean(cnpj)
	if len(c) != 14 {
		return cnpj
	}
	return fmt.Sprintf("%s.%s.%s/%s-%s", c[0:2], c[2:5], c[5:8], c[8:12], c[12:14])
}

// Validate checks length, repeated digits and both check digits.
func Validate(cnpj string) bool {
	c := Clean(cnpj)
	if len(c) != 14 {
		return false
	}
	if strings.Count(c, c[:1]) == 14 {
		return false
	}
	return checkDigit(c[:12], 5) == int(c[12]-'0') && checkDigit(c[:13], 6) == int(c[13]-'0')
}

func checkDigit(digits string, weight int) int {
	sum := 0
	for i := 0; i < len(digits); i++ {
		sum += int(digits[i]-'0') * weight
		if weight == 2 {
			weight = 9
		} else {
			weight--
		}
	}
	if sum%11 < 2 {
		return 0
	}
	return 11 - sum%11
}

// BasicData is the condensed company view used by registration forms.
type BasicData struct {
	CNPJ             string  `json:"cnpj"`
	CNPJFormatted    string  `json:"cnpjFormatted"`
	RazaoSocial      string  `json:"razaoSocial"`
	NomeFantasia     string  `json:"nomeFantasia"`
	Endereco         string  `json:"endereco"`
	EnderecoCompleto string  `json:"enderecoCompleto"`
	Cidade           string  `json:"cidade"`
	Estado           string  `json:"estado"`
	CEP              string  `json:"cep"`
	Telefone         string  `json:"telefone"`
	Email            *string `json:"email"`
	Situacao         string  `json:"situacao"`
	Porte            string  `json:"porte"`
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

// ExtractBasicData condenses a registry record.
func ExtractBasicData(d *Data) BasicData {
	endereco := joinNonEmpty(", ", d.Logradouro, d.Numero, d.Complemento)
	completo := joinNonEmpty(" - ",
		endereco,
		d.Bairro,
		d.Municipio+"/"+d.UF,
		"CEP: "+d.CEP,
	)

	nomeFantasia := d.NomeFantasia
	if nomeFantasia == "" {
		nomeFantasia = d.RazaoSocial
	}
	var email *string
	if d.Email != "" {
		e := d.Email
		email = &e
	}

	return BasicData{
		CNPJ:             d.CNPJ,
		CNPJFormatted:    Format(d.CNPJ),
		RazaoSocial:      d.RazaoSocial,
		NomeFantasia:     nomeFantasia,
		Endereco:         endereco,
		EnderecoCompleto: completo,
		Cidade:           d.Municipio,
		Estado:           d.UF,
		CEP:              d.CEP,
		Telefone:         d.DDDTelefone1,
		Email:            email,
		Situacao:         d.SituacaoCadastral,
		Porte:            d.Porte,
	}
}
