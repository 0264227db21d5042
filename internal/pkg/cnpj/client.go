package cnpj

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"

	"github.com/cellsync/cellsync/internal/pkg/metrics"
)

const (
	DefaultReceitaWSURL = "https://receitaws.com.br/v1"
	DefaultBrasilAPIURL = "https://brasilapi.com.br/api/cnpj/v1"

	lruSize   = 1024
	lruTTL    = time.Hour
	redisTTL  = 24 * time.Hour
	keyPrefix = "cnpj:"
)

type Config struct {
	ReceitaWSURL string
	BrasilAPIURL string
	Timeout      time.Duration
}

// Client looks CNPJs up in ReceitaWS with a BrasilAPI fallback. Found records
// are cached in process and in Redis.
type Client struct {
	receita *resty.Client
	brasil  *resty.Client
	lru     *expirable.LRU[string, *Data]
	rdb     *redis.Client
	metrics *metrics.Metrics
}

func NewClient(cfg Config, rdb *redis.Client, m *metrics.Metrics) *Client {
	if cfg.ReceitaWSURL == "" {
		cfg.ReceitaWSURL = DefaultReceitaWSURL
	}
	if cfg.BrasilAPIURL == "" {
		cfg.BrasilAPIURL = DefaultBrasilAPIURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	newHTTP := func(base string) *resty.Client {
		return resty.New().
			SetBaseURL(base).
			SetTimeout(cfg.Timeout).
			SetRetryCount(1).
			SetRetryWaitTime(500*time.Millisecond).
			SetHeader("Accept", "application/json")
	}
	return &Client{
		receita: newHTTP(cfg.ReceitaWSURL),
		brasil:  newHTTP(cfg.BrasilAPIURL),
		lru:     expirable.NewLRU[string, *Data](lruSize, nil, lruTTL),
		rdb:     rdb,
		metrics: m,
	}
}

func (c *Client) observe(source string) {
	if c.metrics != nil {
		c.metrics.ObserveCNPJLookup(source)
	}
}

// Lookup returns the registry record, or nil when no provider knows the CNPJ.
// Provider failures are logged and treated as not found.
func (c *Client) Lookup(ctx context.Context, raw string) (*Data, error) {
	cleaned := Clean(raw)
	if !Validate(cleaned) {
		return nil, ErrInvalidCNPJ
	}

	if d, ok := c.lru.Get(cleaned); ok {
		c.observe("lru")
		return d, nil
	}
	if d := c.fromRedis(ctx, cleaned); d != nil {
		c.lru.Add(cleaned, d)
		c.observe("redis")
		return d, nil
	}

	d, err := c.lookupReceitaWS(ctx, cleaned)
	if err != nil {
		log.Warnf("[CNPJ] ReceitaWS failed: %v", err)
	}
	source := "receitaws"
	if d == nil {
		d, err = c.lookupBrasilAPI(ctx, cleaned)
		if err != nil {
			log.Warnf("[CNPJ] BrasilAPI failed: %v", err)
		}
		source = "brasilapi"
	}
	if d == nil {
		c.observe("miss")
		return nil, nil
	}

	c.observe(source)
	c.lru.Add(cleaned, d)
	c.toRedis(ctx, cleaned, d)
	return d, nil
}

func (c *Client) fromRedis(ctx context.Context, cleaned string) *Data {
	if c.rdb == nil {
		return nil
	}
	raw, err := c.rdb.Get(ctx, keyPrefix+cleaned).Bytes()
	if err != nil {
		return nil
	}
	var d Data
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil
	}
	return &d
}

func (c *Client) toRedis(ctx context.Context, cleaned string, d *Data) {
	if c.rdb == nil {
		return
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, keyPrefix+cleaned, raw, redisTTL).Err(); err != nil {
		log.Warnf("[CNPJ] cache write failed: %v", err)
	}
}

type receitaActivity struct {
	Code string `json:"code"`
	Text string `json:"text"`
}

type receitaResponse struct {
	Status           string            `json:"status"`
	Message          string            `json:"message"`
	CNPJ             string            `json:"cnpj"`
	Nome             string            `json:"nome"`
	Fantasia         string            `json:"fantasia"`
	Abertura         string            `json:"abertura"`
	Atividade        []receitaActivity `json:"atividade_principal"`
	Logradouro       string            `json:"logradouro"`
	Numero           string            `json:"numero"`
	Complemento      string            `json:"complemento"`
	Bairro           string            `json:"bairro"`
	Municipio        string            `json:"municipio"`
	UF               string            `json:"uf"`
	CEP              string            `json:"cep"`
	Telefone         string            `json:"telefone"`
	Email            string            `json:"email"`
	Situacao         string            `json:"situacao"`
	DataSituacao     string            `json:"data_situacao"`
	MotivoSituacao   string            `json:"motivo_situacao"`
	Porte            string            `json:"porte"`
	CapitalSocial    string            `json:"capital_social"`
	NaturezaJuridica string            `json:"natureza_juridica"`
	QSA              []Partner         `json:"qsa"`
}

func (r *receitaResponse) toData() *Data {
	d := &Data{
		CNPJ:                    Clean(r.CNPJ),
		RazaoSocial:             r.Nome,
		NomeFantasia:            r.Fantasia,
		DataInicioAtividade:     r.Abertura,
		Logradouro:              r.Logradouro,
		Numero:                  r.Numero,
		Complemento:             r.Complemento,
		Bairro:                  r.Bairro,
		Municipio:               r.Municipio,
		UF:                      r.UF,
		CEP:                     r.CEP,
		DDDTelefone1:            r.Telefone,
		Email:                   r.Email,
		SituacaoCadastral:       r.Situacao,
		DataSituacaoCadastral:   r.DataSituacao,
		MotivoSituacaoCadastral: r.MotivoSituacao,
		Porte:                   r.Porte,
		NaturezaJuridica:        r.NaturezaJuridica,
		QSA:                     r.QSA,
	}
	if d.NomeFantasia == "" {
		d.NomeFantasia = r.Nome
	}
	if len(r.Atividade) > 0 {
		d.CNAEFiscal, _ = strconv.ParseInt(Clean(r.Atividade[0].Code), 10, 64)
		d.CNAEFiscalDescricao = r.Atividade[0].Text
	}
	if r.CapitalSocial != "" {
		d.CapitalSocial, _ = strconv.ParseFloat(r.CapitalSocial, 64)
	}
	return d
}

func (c *Client) lookupReceitaWS(ctx context.Context, cleaned string) (*Data, error) {
	var body receitaResponse
	resp, err := c.receita.R().
		SetContext(ctx).
		SetResult(&body).
		Get("/cnpj/" + cleaned)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, nil
	}
	if resp.IsError() {
		return nil, fmt.Errorf("ReceitaWS: %d", resp.StatusCode())
	}
	if body.Status == "ERROR" {
		return nil, nil
	}
	return body.toData(), nil
}

type brasilPartner struct {
	NomeSocio                      string `json:"nome_socio"`
	QualificacaoSocio              string `json:"qualificacao_socio"`
	Pais                           string `json:"pais"`
	NomeRepresentanteLegal         string `json:"nome_representante_legal"`
	QualificacaoRepresentanteLegal string `json:"qualificacao_representante_legal"`
}

// brasilAPIResponse mirrors BrasilAPI, where situation and reason are numeric
// codes with separate description fields.
type brasilAPIResponse struct {
	CNPJ                             string          `json:"cnpj"`
	RazaoSocial                      string          `json:"razao_social"`
	NomeFantasia                     string          `json:"nome_fantasia"`
	CNAEFiscal                       int64           `json:"cnae_fiscal"`
	CNAEFiscalDescricao              string          `json:"cnae_fiscal_descricao"`
	DataInicioAtividade              string          `json:"data_inicio_atividade"`
	Logradouro                       string          `json:"logradouro"`
	Numero                           string          `json:"numero"`
	Complemento                      string          `json:"complemento"`
	Bairro                           string          `json:"bairro"`
	Municipio                        string          `json:"municipio"`
	UF                               string          `json:"uf"`
	CEP                              string          `json:"cep"`
	DDDTelefone1                     string          `json:"ddd_telefone_1"`
	DDDTelefone2                     string          `json:"ddd_telefone_2"`
	Email                            *string         `json:"email"`
	SituacaoCadastral                int             `json:"situacao_cadastral"`
	DescricaoSituacaoCadastral       string          `json:"descricao_situacao_cadastral"`
	DataSituacaoCadastral            string          `json:"data_situacao_cadastral"`
	MotivoSituacaoCadastral          int             `json:"motivo_situacao_cadastral"`
	DescricaoMotivoSituacaoCadastral string          `json:"descricao_motivo_situacao_cadastral"`
	Porte                            string          `json:"porte"`
	DescricaoPorte                   string          `json:"descricao_porte"`
	CapitalSocial                    float64         `json:"capital_social"`
	NaturezaJuridica                 string          `json:"natureza_juridica"`
	QSA                              []brasilPartner `json:"qsa"`
}

func (r *brasilAPIResponse) toData() *Data {
	d := &Data{
		CNPJ:                    Clean(r.CNPJ),
		RazaoSocial:             r.RazaoSocial,
		NomeFantasia:            r.NomeFantasia,
		CNAEFiscal:              r.CNAEFiscal,
		CNAEFiscalDescricao:     r.CNAEFiscalDescricao,
		DataInicioAtividade:     r.DataInicioAtividade,
		Logradouro:              r.Logradouro,
		Numero:                  r.Numero,
		Complemento:             r.Complemento,
		Bairro:                  r.Bairro,
		Municipio:               r.Municipio,
		UF:                      r.UF,
		CEP:                     r.CEP,
		DDDTelefone1:            r.DDDTelefone1,
		DDDTelefone2:            r.DDDTelefone2,
		SituacaoCadastral:       r.DescricaoSituacaoCadastral,
		DataSituacaoCadastral:   r.DataSituacaoCadastral,
		MotivoSituacaoCadastral: r.DescricaoMotivoSituacaoCadastral,
		Porte:                   r.Porte,
		CapitalSocial:           r.CapitalSocial,
		NaturezaJuridica:        r.NaturezaJuridica,
	}
	if r.Email != nil {
		d.Email = *r.Email
	}
	if d.SituacaoCadastral == "" && r.SituacaoCadastral != 0 {
		d.SituacaoCadastral = strconv.Itoa(r.SituacaoCadastral)
	}
	if d.Porte == "" {
		d.Porte = r.DescricaoPorte
	}
	for _, p := range r.QSA {
		d.QSA = append(d.QSA, Partner{
			Nome:         p.NomeSocio,
			Qual:         p.QualificacaoSocio,
			PaisOrigem:   p.Pais,
			NomeRepLegal: p.NomeRepresentanteLegal,
			QualRepLegal: p.QualificacaoRepresentanteLegal,
		})
	}
	return d
}

func (c *Client) lookupBrasilAPI(ctx context.Context, cleaned string) (*Data, error) {
	var body brasilAPIResponse
	resp, err := c.brasil.R().
		SetContext(ctx).
		SetResult(&body).
		Get("/" + cleaned)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, nil
	}
	if resp.IsError() {
		return nil, fmt.Errorf("BrasilAPI: %d", resp.StatusCode())
	}
	return body.toData(), nil
}
