package repository

import (
	"github.com/cellsync/cellsync/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type planRepository struct {
	db *gorm.DB
}

// NewPlanRepository creates a new plan repository instance
func NewPlanRepository(db *gorm.DB) PlanRepository {
	return &planRepository{db: db}
}

// UpsertBySlug inserts the plan or refreshes limits, prices and features of
// the existing row with the same slug. Stripe ids are never overwritten here.
func (r *planRepository) UpsertBySlug(plan *models.Plan) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "slug"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name",
			"description",
			"price_monthly",
			"price_yearly",
			"max_users",
			"max_products",
			"max_storage",
			"features",
			"is_active",
			"updated_at",
		}),
	}).Create(plan).Error
}

func (r *planRepository) GetBySlug(slug string) (*models.Plan, error) {
	var plan models.Plan
	if err := r.db.Where("slug = ?", slug).First(&plan).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *planRepository) GetByID(id uint) (*models.Plan, error) {
	var plan models.Plan
	if err := r.db.First(&plan, id).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

// ListActive returns active plans, cheapest first.
func (r *planRepository) ListActive() ([]models.Plan, error) {
	var plans []models.Plan
	err := r.db.Where("is_active = ?", true).Order("price_monthly ASC").Find(&plans).Error
	return plans, err
}

func (r *planRepository) List() ([]models.Plan, error) {
	var plans []models.Plan
	err := r.db.Order("id ASC").Find(&plans).Error
	return plans, err
}

func (r *planRepository) UpdatePricing(slug string, monthly, yearly int64) (int64, error) {
	res := r.db.Model(&models.Plan{}).Where("slug = ?", slug).Updates(map[string]interface{}{
		"price_monthly": monthly,
		"price_yearly":  yearly,
	})
	return res.RowsAffected, res.Error
}

func (r *planRepository) UpdateStripePrices(slug, productID, monthlyPriceID, yearlyPriceID string) error {
	fields := map[string]interface{}{"stripe_product_id": productID}
	if monthlyPriceID != "" {
		fields["stripe_price_id_monthly"] = monthlyPriceID
	}
	if yearlyPriceID != "" {
		fields["stripe_price_id_yearly"] = yearlyPriceID
	}
	res := r.db.Model(&models.Plan{}).Where("slug = ?", slug).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
