package sales

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cellsync/cellsync/app/models"
	"github.com/cellsync/cellsync/app/repository/memory"
)

type countingInvalidator struct{ tenants []uint }

func (c *countingInvalidator) Invalidate(_ context.Context, tenantID uint) error {
	c.tenants = append(c.tenants, tenantID)
	return nil
}

func newTestService(t *testing.T) (*Service, *memory.Store, *countingInvalidator) {
	t.Helper()
	store := memory.NewStore()
	stats := &countingInvalidator{}
	svc := NewService(store.Repositories(), store.Tx, stats)
	svc.now = func() time.Time { return time.Date(2025, 6, 2, 15, 0, 0, 0, time.UTC) }
	return svc, store, stats
}

func seedProduct(t *testing.T, store *memory.Store, tenantID uint, price int64) *models.Product {
	t.Helper()
	p := &models.Product{TenantID: tenantID, Name: "Capa Galaxy A54", SalePrice: price, CostPrice: price / 2}
	require.NoError(t, store.Repositories().Product.Create(p))
	return p
}

func TestCreateSaleRecordsCommission(t *testing.T) {
	svc, store, stats := newTestService(t)
	capa := seedProduct(t, store, 4, 5000)
	pelicula := seedProduct(t, store, 4, 2500)
	custom := int64(2000)

	sale, commission, err := svc.Create(context.Background(), 4, 12, CreateInput{
		Items: []ItemInput{
			{ProductID: capa.ID, Quantity: 2},
			{ProductID: pelicula.ID, Quantity: 1, UnitPrice: &custom},
		},
		DiscountAmount: 1000,
		PaymentMethod:  "pix",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(12000), sale.TotalAmount)
	assert.Equal(t, int64(11000), sale.FinalAmount)
	assert.Equal(t, models.SaleTypeRetail, sale.SaleType)
	assert.Equal(t, models.SaleStatusConcluida, sale.Status)
	require.NotNil(t, commission)
	assert.Equal(t, int64(220), commission.Amount)
	assert.Equal(t, sale.ID, commission.SaleID)
	assert.Equal(t, uint(12), commission.UserID)
	assert.Equal(t, int64(220), sale.CommissionAmount)

	stored, err := store.Repositories().Sale.GetByID(4, sale.ID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 2)
	assert.Equal(t, int64(10000), stored.Items[0].TotalPrice)

	mine, err := svc.Commissions(4, 12, 10)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, []uint{4}, stats.tenants)
}

func TestCreateSaleWithZeroCommissionRate(t *testing.T) {
	svc, store, _ := newTestService(t)
	require.NoError(t, store.Repositories().Setting.SetValue(models.SettingDefaultCommissionBps, "0"))
	p := seedProduct(t, store, 4, 1000)

	_, commission, err := svc.Create(context.Background(), 4, 12, CreateInput{
		Items: []ItemInput{{ProductID: p.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Nil(t, commission)

	mine, err := svc.Commissions(4, 12, 10)
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestCreateSaleRejectsOtherTenantsProduct(t *testing.T) {
	svc, store, stats := newTestService(t)
	foreign := seedProduct(t, store, 7, 1000)

	_, _, err := svc.Create(context.Background(), 4, 12, CreateInput{
		Items: []ItemInput{{ProductID: foreign.ID, Quantity: 1}},
	})
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.Empty(t, stats.tenants)
}

func TestCreateSaleRejectsUnknownCustomer(t *testing.T) {
	svc, store, _ := newTestService(t)
	p := seedProduct(t, store, 4, 1000)
	missing := uint(999)

	_, _, err := svc.Create(context.Background(), 4, 12, CreateInput{
		CustomerID: &missing,
		Items:      []ItemInput{{ProductID: p.ID, Quantity: 1}},
	})
	assert.ErrorIs(t, err, ErrCustomerNotFound)
}

func TestCreateSaleValidatesInput(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, _, err := svc.Create(context.Background(), 4, 12, CreateInput{})
	assert.Error(t, err)

	_, _, err = svc.Create(context.Background(), 4, 12, CreateInput{
		Items: []ItemInput{{ProductID: 1, Quantity: 0}},
	})
	assert.Error(t, err)
}
