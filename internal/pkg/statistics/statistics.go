package statistics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/cellsync/cellsync/app/models"
)

const (
	CacheKeyDashboard = "statistics:tenant:%d:dashboard"
	CacheExpiration   = 5 * time.Minute
)

// Dashboard holds the per-tenant counters shown on the home screen.
type Dashboard struct {
	TenantID          uint      `json:"tenantId"`
	Products          int64     `json:"products"`
	LowStock          int64     `json:"lowStock"`
	Customers         int64     `json:"customers"`
	SalesToday        int64     `json:"salesToday"`
	RevenueToday      int64     `json:"revenueToday"`
	OpenServiceOrders int64     `json:"openServiceOrders"`
	GeneratedAt       time.Time `json:"generatedAt"`
}

type Service struct {
	db  *gorm.DB
	rdb *redis.Client
	now func() time.Time
}

func NewService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{db: db, rdb: rdb, now: time.Now}
}

func dashboardKey(tenantID uint) string {
	return fmt.Sprintf(CacheKeyDashboard, tenantID)
}

// Get returns the cached dashboard or computes and caches a fresh one.
func (s *Service) Get(ctx context.Context, tenantID uint) (*Dashboard, error) {
	if s.rdb != nil {
		raw, err := s.rdb.Get(ctx, dashboardKey(tenantID)).Bytes()
		if err == nil {
			var d Dashboard
			if err := json.Unmarshal(raw, &d); err == nil {
				return &d, nil
			}
		} else if err != redis.Nil {
			log.Warnf("[Statistics] cache read failed: %v", err)
		}
	}
	return s.Refresh(ctx, tenantID)
}

// Refresh recomputes the dashboard from the database and overwrites the cache.
func (s *Service) Refresh(ctx context.Context, tenantID uint) (*Dashboard, error) {
	d, err := s.compute(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if s.rdb != nil {
		raw, _ := json.Marshal(d)
		if err := s.rdb.Set(ctx, dashboardKey(tenantID), raw, CacheExpiration).Err(); err != nil {
			log.Warnf("[Statistics] cache write failed: %v", err)
		}
	}
	return d, nil
}

// Invalidate drops the cached dashboard after writes that change the counters.
func (s *Service) Invalidate(ctx context.Context, tenantID uint) error {
	if s.rdb == nil {
		return nil
	}
	return s.rdb.Del(ctx, dashboardKey(tenantID)).Err()
}

func (s *Service) compute(ctx context.Context, tenantID uint) (*Dashboard, error) {
	db := s.db.WithContext(ctx)
	d := &Dashboard{TenantID: tenantID, GeneratedAt: s.now()}

	if err := db.Model(&models.Product{}).Where("tenant_id = ?", tenantID).Count(&d.Products).Error; err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}
	if err := db.Model(&models.Product{}).
		Where("tenant_id = ? AND current_stock <= min_stock", tenantID).
		Count(&d.LowStock).Error; err != nil {
		return nil, fmt.Errorf("failed to count low stock: %w", err)
	}
	if err := db.Model(&models.Customer{}).Where("tenant_id = ?", tenantID).Count(&d.Customers).Error; err != nil {
		return nil, fmt.Errorf("failed to count customers: %w", err)
	}

	start := startOfDay(d.GeneratedAt)
	var today struct {
		Count int64
		Total int64
	}
	if err := db.Model(&models.Sale{}).
		Select("COUNT(*) AS count, COALESCE(SUM(final_amount), 0) AS total").
		Where("tenant_id = ? AND status = ? AND sale_date >= ? AND sale_date < ?",
			tenantID, models.SaleStatusConcluida, start, start.AddDate(0, 0, 1)).
		Scan(&today).Error; err != nil {
		return nil, fmt.Errorf("failed to sum sales: %w", err)
	}
	d.SalesToday, d.RevenueToday = today.Count, today.Total

	if err := db.Model(&models.ServiceOrder{}).
		Where("tenant_id = ? AND status NOT IN ?", tenantID,
			[]string{models.ServiceOrderConcluida, models.ServiceOrderCancelada}).
		Count(&d.OpenServiceOrders).Error; err != nil {
		return nil, fmt.Errorf("failed to count service orders: %w", err)
	}
	return d, nil
}

// SalesByDay returns one entry per day for the last n days, oldest first,
// with empty days filled in.
func (s *Service) SalesByDay(ctx context.Context, tenantID uint, days int) ([]models.DailyStats, error) {
	if days <= 0 {
		days = 7
	}
	end := startOfDay(s.now()).AddDate(0, 0, 1)
	start := end.AddDate(0, 0, -days)

	var rows []models.DailyStats
	err := s.db.WithContext(ctx).Model(&models.Sale{}).
		Select("DATE_FORMAT(sale_date, '%Y-%m-%d') AS date, COUNT(*) AS count, COALESCE(SUM(final_amount), 0) AS total").
		Where("tenant_id = ? AND status = ? AND sale_date >= ? AND sale_date < ?",
			tenantID, models.SaleStatusConcluida, start, end).
		Group("date").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load daily sales: %w", err)
	}

	byDate := make(map[string]models.DailyStats, len(rows))
	for _, r := range rows {
		byDate[r.Date] = r
	}
	out := make([]models.DailyStats, 0, days)
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		key := d.Format("2006-01-02")
		if r, ok := byDate[key]; ok {
			out = append(out, r)
		} else {
			out = append(out, models.DailyStats{Date: key})
		}
	}
	return out, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
