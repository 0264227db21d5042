package importer

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/cellsync/cellsync/app/models"
	"github.com/cellsync/cellsync/app/repository/memory"
	"github.com/cellsync/cellsync/internal/pkg/entitlements"
)

func newTestService(t *testing.T, maxProducts int) (*Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	repos := store.Repositories()
	require.NoError(t, repos.Plan.UpsertBySlug(&models.Plan{Name: "Básico", Slug: "basico", MaxUsers: 2, MaxProducts: maxProducts, IsActive: true}))
	require.NoError(t, repos.Tenant.Create(&models.Tenant{ID: 2, Name: "Loja Centro", Subdomain: "loja-centro", PlanID: 1, Status: models.TenantStatusActive}))
	return NewService(repos, nil), store
}

func TestParsePriceToCents(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"12,50", 1250},
		{"12.5", 1250},
		{"1999", 199900},
		{"0,99", 99},
		{"abc", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParsePriceToCents(tt.in))
		})
	}
}

func TestParseBool(t *testing.T) {
	for _, v := range []string{"sim", "S", "true", "1", "yes", "Y"} {
		assert.True(t, ParseBool(v), v)
	}
	for _, v := range []string{"não", "n", "0", "", "talvez"} {
		assert.False(t, ParseBool(v), v)
	}
}

func TestReadTableDetectsSemicolon(t *testing.T) {
	in := "Nome;SKU;Preco_Custo;Preco_Venda\nCapa iPhone;CAP-01;10,00;29,90\n\n"
	tbl, err := ReadTable(strings.NewReader(in), FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, []string{"nome", "sku", "preco_custo", "preco_venda"}, tbl.Header)
	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, "29,90", tbl.Record(0)["preco_venda"])
}

func TestReadTableEmpty(t *testing.T) {
	_, err := ReadTable(strings.NewReader("nome,sku\n"), FormatCSV)
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, FormatXLSX, DetectFormat("produtos.XLSX", nil))
	assert.Equal(t, FormatCSV, DetectFormat("produtos.csv", []byte("PK\x03\x04")))
	assert.Equal(t, FormatXLSX, DetectFormat("upload", []byte("PK\x03\x04rest")))
	assert.Equal(t, FormatCSV, DetectFormat("upload", []byte("nome,sku")))
}

func TestParseProductsCollectsRowErrors(t *testing.T) {
	in := "nome,sku,preco_custo,preco_venda,estoque_minimo,requer_imei\n" +
		"Galaxy A54,SAM-A54,1500,1999,5,sim\n" +
		",X-1,10,20,,\n" +
		"Cabo USB-C,CAB-01,1.999,9,abc,talvez\n"
	tbl, err := ReadTable(strings.NewReader(in), FormatCSV)
	require.NoError(t, err)

	rows, errs := ParseProducts(tbl)
	require.Len(t, rows, 1)
	assert.Equal(t, 2, rows[0].Line)

	require.Len(t, errs, 2)
	assert.Equal(t, 3, errs[0].Line)
	assert.Contains(t, errs[0].Errors, "nome: Nome é obrigatório")
	assert.Equal(t, 4, errs[1].Line)
	assert.Len(t, errs[1].Errors, 3)

	p := rows[0].ToProduct(2)
	assert.Equal(t, int64(150000), p.CostPrice)
	assert.Equal(t, 5, p.MinStock)
	assert.True(t, p.RequiresIMEI)
}

func TestImportProductsSkipsExistingSKUs(t *testing.T) {
	svc, store := newTestService(t, 500)
	repos := store.Repositories()
	sku := "IPH-13"
	require.NoError(t, repos.Product.Create(&models.Product{TenantID: 2, Name: "iPhone 13", SKU: &sku}))

	in := "nome,sku,preco_custo,preco_venda\n" +
		"iPhone 13,IPH-13,3000,4500\n" +
		"Película,PEL-01,2,15\n" +
		"Película dupla,PEL-01,2,15\n" +
		"Carregador,,20,59,90\n"
	res, err := svc.ImportProducts(context.Background(), 2, strings.NewReader(in), FormatCSV)
	require.NoError(t, err)

	assert.Equal(t, 4, res.TotalRows)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, 2, res.ErrorCount)

	n, _ := repos.Product.CountByTenant(2)
	assert.Equal(t, int64(3), n)
	p, err := repos.Product.GetBySKU(2, "PEL-01")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultMinStock, p.MinStock)
	assert.Equal(t, int64(1500), p.SalePrice)
}

func TestImportProductsRespectsPlanLimit(t *testing.T) {
	svc, store := newTestService(t, 2)

	in := "nome,preco_custo,preco_venda\nA,1,2\nB,1,2\nC,1,2\n"
	_, err := svc.ImportProducts(context.Background(), 2, strings.NewReader(in), FormatCSV)
	assert.ErrorIs(t, err, entitlements.ErrPlanLimitReached)

	n, _ := store.Repositories().Product.CountByTenant(2)
	assert.Zero(t, n)
}

func TestImportProductsFromXLSX(t *testing.T) {
	svc, store := newTestService(t, 500)

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"nome", "sku", "preco_custo", "preco_venda", "estoque_atual"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"Moto G84", "MOT-G84", "1100,00", "1499,90", "7"}))
	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	res, err := svc.ImportProducts(context.Background(), 2, &buf, FormatXLSX)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)

	p, err := store.Repositories().Product.GetBySKU(2, "MOT-G84")
	require.NoError(t, err)
	assert.Equal(t, int64(149990), p.SalePrice)
	assert.Equal(t, 7, p.CurrentStock)
}

func TestPreview(t *testing.T) {
	svc, _ := newTestService(t, 500)
	in := "nome,preco_custo,preco_venda\nA,1,2\n,1,2\n"
	p, err := svc.Preview(strings.NewReader(in), FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, 2, p.TotalRows)
	assert.Equal(t, 1, p.ValidRows)
	assert.Equal(t, "50.0", p.SuccessRate)
}

func TestParseProductsKeepsSourceLinesAcrossBlankRows(t *testing.T) {
	in := "nome,preco_custo,preco_venda\n" +
		"A,1,2\n" +
		"\n" +
		",,\n" +
		",1,2\n"
	tbl, err := ReadTable(strings.NewReader(in), FormatCSV)
	require.NoError(t, err)
	require.Len(t, tbl.Rows, 2)

	rows, errs := ParseProducts(tbl)
	require.Len(t, rows, 1)
	assert.Equal(t, 2, rows[0].Line)
	require.Len(t, errs, 1)
	assert.Equal(t, 5, errs[0].Line)
}

func TestParseProductsKeepsSourceLinesInXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"nome", "preco_custo", "preco_venda"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"Fone", "10", "30"}))
	require.NoError(t, f.SetSheetRow(sheet, "A5", &[]any{"", "10", "30"}))
	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	tbl, err := ReadTable(&buf, FormatXLSX)
	require.NoError(t, err)
	_, errs := ParseProducts(tbl)
	require.Len(t, errs, 1)
	assert.Equal(t, 5, errs[0].Line)
}

type recordingStats struct{ tenants []uint }

func (r *recordingStats) Invalidate(_ context.Context, tenantID uint) error {
	r.tenants = append(r.tenants, tenantID)
	return nil
}

func TestImportProductsInvalidatesDashboard(t *testing.T) {
	svc, _ := newTestService(t, 500)
	stats := &recordingStats{}
	svc.WithStats(stats)

	_, err := svc.ImportProducts(context.Background(), 2, strings.NewReader("nome,preco_custo,preco_venda\nA,1,2\n"), FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, []uint{2}, stats.tenants)

	_, err = svc.ImportProducts(context.Background(), 2, strings.NewReader("nome,preco_custo,preco_venda\n,1,2\n"), FormatCSV)
	require.NoError(t, err)
	assert.Len(t, stats.tenants, 1)
}

func TestCheckUploadAgainstStorageQuota(t *testing.T) {
	store := memory.NewStore()
	repos := store.Repositories()
	require.NoError(t, repos.Plan.UpsertBySlug(&models.Plan{Name: "Básico", Slug: "basico", MaxUsers: 2, MaxProducts: 500, MaxStorageMB: 1, IsActive: true}))
	require.NoError(t, repos.Tenant.Create(&models.Tenant{ID: 2, Name: "Loja Centro", Subdomain: "loja-centro", PlanID: 1, Status: models.TenantStatusActive}))
	svc := NewService(repos, nil)

	assert.NoError(t, svc.CheckUpload(2, 512*1024))
	assert.ErrorIs(t, svc.CheckUpload(2, 2*1024*1024), entitlements.ErrStorageQuota)
	assert.Error(t, svc.CheckUpload(99, 10))
}
