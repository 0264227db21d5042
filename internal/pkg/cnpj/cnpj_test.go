package cnpj

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validCNPJ = "11222333000181"

func TestValidate(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"11.222.333/0001-81", true},
		{"11222333000181", true},
		{"00.000.000/0001-91", true},
		{"11.222.333/0001-82", false},
		{"11.111.111/1111-11", false},
		{"1122233300018", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Validate(tt.in))
		})
	}
}

func TestCleanAndFormat(t *testing.T) {
	assert.Equal(t, validCNPJ, Clean("11.222.333/0001-81"))
	assert.Equal(t, "11.222.333/0001-81", Format(validCNPJ))
	assert.Equal(t, "123", Format("123"))
}

func TestExtractBasicData(t *testing.T) {
	d := &Data{
		CNPJ:              validCNPJ,
		RazaoSocial:       "CELL CENTER LTDA",
		Logradouro:        "RUA AUGUSTA",
		Numero:            "100",
		Bairro:            "CONSOLACAO",
		Municipio:         "SAO PAULO",
		UF:                "SP",
		CEP:               "01304000",
		SituacaoCadastral: "ATIVA",
	}
	basic := ExtractBasicData(d)

	assert.Equal(t, "11.222.333/0001-81", basic.CNPJFormatted)
	assert.Equal(t, "CELL CENTER LTDA", basic.NomeFantasia)
	assert.Equal(t, "RUA AUGUSTA, 100", basic.Endereco)
	assert.Equal(t, "RUA AUGUSTA, 100 - CONSOLACAO - SAO PAULO/SP - CEP: 01304000", basic.EnderecoCompleto)
	assert.Nil(t, basic.Email)
}

func newTestClient(t *testing.T, receita, brasil http.HandlerFunc) (*Client, *miniredis.Miniredis) {
	t.Helper()
	rs := httptest.NewServer(receita)
	t.Cleanup(rs.Close)
	bs := httptest.NewServer(brasil)
	t.Cleanup(bs.Close)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	c := NewClient(Config{ReceitaWSURL: rs.URL, BrasilAPIURL: bs.URL}, rdb, nil)
	return c, mr
}

func TestLookupReceitaWS(t *testing.T) {
	var calls int32
	c, mr := newTestClient(t,
		func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			assert.Equal(t, "/cnpj/"+validCNPJ, r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"status": "OK",
				"cnpj": "11.222.333/0001-81",
				"nome": "CELL CENTER LTDA",
				"fantasia": "",
				"atividade_principal": [{"code": "47.52-1-00", "text": "Comercio varejista"}],
				"municipio": "SAO PAULO",
				"uf": "SP",
				"situacao": "ATIVA",
				"capital_social": "50000.00"
			}`))
		},
		func(w http.ResponseWriter, r *http.Request) {
			t.Error("fallback must not be called")
		},
	)

	d, err := c.Lookup(context.Background(), "11.222.333/0001-81")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, validCNPJ, d.CNPJ)
	assert.Equal(t, "CELL CENTER LTDA", d.NomeFantasia)
	assert.Equal(t, int64(4752100), d.CNAEFiscal)
	assert.Equal(t, 50000.0, d.CapitalSocial)
	assert.True(t, mr.Exists(keyPrefix+validCNPJ))

	_, err = c.Lookup(context.Background(), validCNPJ)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestLookupFallsBackToBrasilAPI(t *testing.T) {
	c, _ := newTestClient(t,
		func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status": "ERROR", "message": "CNPJ rejeitado"}`))
		},
		func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/"+validCNPJ, r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"cnpj": "11222333000181", "razao_social": "CELL CENTER LTDA", "cnae_fiscal": 4752100, "capital_social": 1000}`))
		},
	)

	d, err := c.Lookup(context.Background(), validCNPJ)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "CELL CENTER LTDA", d.RazaoSocial)
	assert.Equal(t, 1000.0, d.CapitalSocial)
}

func TestLookupBrasilAPIPayload(t *testing.T) {
	c, mr := newTestClient(t,
		func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTooManyRequests) },
		func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"cnpj": "11222333000181",
				"razao_social": "CELL CENTER LTDA",
				"nome_fantasia": "CELL CENTER",
				"cnae_fiscal": 4752100,
				"cnae_fiscal_descricao": "Comercio varejista especializado de equipamentos de telefonia",
				"logradouro": "RUA AUGUSTA",
				"numero": "100",
				"bairro": "CONSOLACAO",
				"municipio": "SAO PAULO",
				"uf": "SP",
				"cep": "01304000",
				"ddd_telefone_1": "1133334444",
				"email": null,
				"situacao_cadastral": 2,
				"descricao_situacao_cadastral": "ATIVA",
				"motivo_situacao_cadastral": 0,
				"descricao_motivo_situacao_cadastral": "SEM MOTIVO",
				"codigo_natureza_juridica": 2062,
				"natureza_juridica": "Sociedade Empresaria Limitada",
				"porte": "MICRO EMPRESA",
				"capital_social": 50000,
				"qsa": [{"identificador_de_socio": 2, "nome_socio": "JOAO DA SILVA", "codigo_qualificacao_socio": 49, "qualificacao_socio": "Socio-Administrador", "pais": null}]
			}`))
		},
	)

	d, err := c.Lookup(context.Background(), validCNPJ)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "ATIVA", d.SituacaoCadastral)
	assert.Equal(t, "SEM MOTIVO", d.MotivoSituacaoCadastral)
	assert.Equal(t, int64(4752100), d.CNAEFiscal)
	assert.Empty(t, d.Email)
	require.Len(t, d.QSA, 1)
	assert.Equal(t, "JOAO DA SILVA", d.QSA[0].Nome)
	assert.Equal(t, "Socio-Administrador", d.QSA[0].Qual)
	assert.True(t, mr.Exists(keyPrefix+validCNPJ))

	basic := ExtractBasicData(d)
	assert.Equal(t, "ATIVA", basic.Situacao)
	assert.Equal(t, "11.222.333/0001-81", basic.CNPJFormatted)
}

func TestLookupNotFound(t *testing.T) {
	notFound := func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) }
	c, mr := newTestClient(t, notFound, notFound)

	d, err := c.Lookup(context.Background(), validCNPJ)
	require.NoError(t, err)
	assert.Nil(t, d)
	assert.False(t, mr.Exists(keyPrefix+validCNPJ))
}

func TestLookupProviderErrorsFallThrough(t *testing.T) {
	broken := func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadRequest) }
	c, _ := newTestClient(t, broken, broken)

	d, err := c.Lookup(context.Background(), validCNPJ)
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestLookupRejectsInvalid(t *testing.T) {
	c := NewClient(Config{}, nil, nil)
	_, err := c.Lookup(context.Background(), "11.111.111/1111-11")
	assert.ErrorIs(t, err, ErrInvalidCNPJ)
}
