// Package memory holds map-backed repositories for tests and local tooling.
package memory

import (
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/cellsync/cellsync/app/models"
	"github.com/cellsync/cellsync/app/repository"
)

// Store is shared by all repositories of one Repositories set.
type Store struct {
	mu        sync.Mutex
	Tenants   map[uint]*models.Tenant
	Users     map[uint]*models.User
	Plans     map[uint]*models.Plan
	Products  map[uint]*models.Product
	Customers map[uint]*models.Customer
	Settings  map[string]string
	Audit     []models.AuditLog
	Backups   map[uint]*models.BackupRecord

	Sales         map[uint]*models.Sale
	Commissions   []models.Commission
	ServiceOrders map[uint]*models.ServiceOrder
	Notifications []models.Notification
	nextID        uint
}

func NewStore() *Store {
	return &Store{
		Tenants:   map[uint]*models.Tenant{},
		Users:     map[uint]*models.User{},
		Plans:     map[uint]*models.Plan{},
		Products:  map[uint]*models.Product{},
		Customers: map[uint]*models.Customer{},
		Settings:  map[string]string{},
		Backups:   map[uint]*models.BackupRecord{},

		Sales:         map[uint]*models.Sale{},
		ServiceOrders: map[uint]*models.ServiceOrder{},
		nextID:        100,
	}
}

func (s *Store) id(given uint) uint {
	if given != 0 {
		return given
	}
	s.nextID++
	return s.nextID
}

// Repositories wires every repository to the same store.
func (s *Store) Repositories() *repository.Repositories {
	return &repository.Repositories{
		Tenant:   &Tenants{s},
		User:     &Users{s},
		Plan:     &Plans{s},
		Product:  &Products{s},
		Customer: &Customers{s},
		Setting:  &Settings{s},
		AuditLog: &AuditLogs{s},
		Backup:   &Backups{s},

		Sale:         &Sales{s},
		Commission:   &Commissions{s},
		ServiceOrder: &ServiceOrders{s},
		Notification: &Notifications{s},
	}
}

// Tx runs fn against the same store; there is no rollback.
func (s *Store) Tx(fn func(r *repository.Repositories) error) error {
	return fn(s.Repositories())
}

type Tenants struct{ s *Store }

func (r *Tenants) Create(t *models.Tenant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t.ID = r.s.id(t.ID)
	cp := *t
	r.s.Tenants[t.ID] = &cp
	return nil
}

func (r *Tenants) GetByID(id uint) (*models.Tenant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if t, ok := r.s.Tenants[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *Tenants) GetBySubdomain(subdomain string) (*models.Tenant, error) {
	list, _ := r.ListBySubdomain(subdomain)
	if len(list) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &list[0], nil
}

func (r *Tenants) ListBySubdomain(subdomain string) ([]models.Tenant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	want := models.NormalizeSubdomain(subdomain)
	var out []models.Tenant
	for _, t := range r.s.Tenants {
		if t.Subdomain == want {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *Tenants) FindByStripeSubscriptionID(id string) (*models.Tenant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if id == "" {
		return nil, gorm.ErrRecordNotFound
	}
	for _, t := range r.s.Tenants {
		if t.StripeSubscriptionID == id {
			cp := *t
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *Tenants) List() ([]models.Tenant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]models.Tenant, 0, len(r.s.Tenants))
	for _, t := range r.s.Tenants {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *Tenants) UpdateStatus(id uint, status string) error {
	return r.UpdateBilling(id, repository.TenantBillingUpdate{Status: &status})
}

func (r *Tenants) UpdateBilling(id uint, u repository.TenantBillingUpdate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.Tenants[id]
	if !ok {
		return nil
	}
	if u.Status != nil {
		t.Status = *u.Status
	}
	if u.PlanID != nil {
		t.PlanID = *u.PlanID
	}
	if u.StripeCustomerID != nil {
		t.StripeCustomerID = *u.StripeCustomerID
	}
	if u.StripeSubscriptionID != nil {
		t.StripeSubscriptionID = *u.StripeSubscriptionID
	}
	return nil
}

type Users struct{ s *Store }

func (r *Users) Create(u *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u.ID = r.s.id(u.ID)
	cp := *u
	r.s.Users[u.ID] = &cp
	return nil
}

func (r *Users) GetByID(id uint) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u, ok := r.s.Users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *Users) GetByEmail(email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	want := models.NormalizeEmail(email)
	for _, u := range r.s.Users {
		if u.Email == want {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *Users) Update(u *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *u
	r.s.Users[u.ID] = &cp
	return nil
}

func (r *Users) UpdatePassword(email, hash string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	want := models.NormalizeEmail(email)
	var n int64
	for _, u := range r.s.Users {
		if u.Email == want {
			u.Password = hash
			n++
		}
	}
	return n, nil
}

func (r *Users) TouchLastSignedIn(id uint, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u, ok := r.s.Users[id]; ok {
		u.LastSignedIn = &at
	}
	return nil
}

func (r *Users) ListByRole(role string) ([]models.User, error) {
	all, _ := r.List(0, 0)
	var out []models.User
	for _, u := range all {
		if u.Role == role {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *Users) List(offset, limit int) ([]models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]models.User, 0, len(r.s.Users))
	for _, u := range r.s.Users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if offset > len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *Users) CountByTenant(tenantID uint) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, u := range r.s.Users {
		if u.TenantID == tenantID {
			n++
		}
	}
	return n, nil
}

type Plans struct{ s *Store }

func (r *Plans) UpsertBySlug(p *models.Plan) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.Plans {
		if existing.Slug == p.Slug {
			p.ID = existing.ID
			p.StripeProductID = existing.StripeProductID
			p.StripePriceIDMonthly = existing.StripePriceIDMonthly
			p.StripePriceIDYearly = existing.StripePriceIDYearly
			cp := *p
			r.s.Plans[p.ID] = &cp
			return nil
		}
	}
	p.ID = uint(len(r.s.Plans) + 1)
	cp := *p
	r.s.Plans[p.ID] = &cp
	return nil
}

func (r *Plans) GetBySlug(slug string) (*models.Plan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.Plans {
		if p.Slug == slug {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *Plans) GetByID(id uint) (*models.Plan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p, ok := r.s.Plans[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *Plans) ListActive() ([]models.Plan, error) {
	all, _ := r.List()
	var out []models.Plan
	for _, p := range all {
		if p.IsActive {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PriceMonthly < out[j].PriceMonthly })
	return out, nil
}

func (r *Plans) List() ([]models.Plan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]models.Plan, 0, len(r.s.Plans))
	for _, p := range r.s.Plans {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *Plans) UpdatePricing(slug string, monthly, yearly int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.Plans {
		if p.Slug == slug {
			p.PriceMonthly, p.PriceYearly = monthly, yearly
			return 1, nil
		}
	}
	return 0, nil
}

func (r *Plans) UpdateStripePrices(slug, productID, monthly, yearly string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.Plans {
		if p.Slug == slug {
			p.StripeProductID = productID
			if monthly != "" {
				p.StripePriceIDMonthly = monthly
			}
			if yearly != "" {
				p.StripePriceIDYearly = yearly
			}
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

type Products struct{ s *Store }

func (r *Products) Create(p *models.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p.ID = r.s.id(p.ID)
	cp := *p
	r.s.Products[p.ID] = &cp
	return nil
}

func (r *Products) CreateBatch(products []models.Product, batchSize int) error {
	for i := range products {
		if err := r.Create(&products[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *Products) GetBySKU(tenantID uint, sku string) (*models.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.Products {
		if p.TenantID == tenantID && p.SKU != nil && *p.SKU == sku {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *Products) GetByID(tenantID, id uint) (*models.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p, ok := r.s.Products[id]; ok && p.TenantID == tenantID {
		cp := *p
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *Products) ExistingSKUs(tenantID uint, skus []string) (map[string]bool, error) {
	found := map[string]bool{}
	for _, sku := range skus {
		if _, err := r.GetBySKU(tenantID, sku); err == nil {
			found[sku] = true
		}
	}
	return found, nil
}

func (r *Products) CountByTenant(tenantID uint) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, p := range r.s.Products {
		if p.TenantID == tenantID {
			n++
		}
	}
	return n, nil
}

func (r *Products) ListLowStock(tenantID uint, limit int) ([]models.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Product
	for _, p := range r.s.Products {
		if p.TenantID == tenantID && p.Active && p.IsLowStock() {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CurrentStock < out[j].CurrentStock })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type Customers struct{ s *Store }

func (r *Customers) Create(c *models.Customer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c.ID = r.s.id(c.ID)
	cp := *c
	r.s.Customers[c.ID] = &cp
	return nil
}

func (r *Customers) GetByID(tenantID, id uint) (*models.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c, ok := r.s.Customers[id]; ok && c.TenantID == tenantID {
		cp := *c
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *Customers) CountByTenant(tenantID uint) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, c := range r.s.Customers {
		if c.TenantID == tenantID {
			n++
		}
	}
	return n, nil
}

type Settings struct{ s *Store }

func (r *Settings) Get() (*models.AppSettings, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := models.DefaultAppSettings()
	for k, v := range r.s.Settings {
		out.Apply(k, v)
	}
	return out, nil
}

func (r *Settings) Save(settings *models.AppSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for k, v := range settings.Values() {
		r.s.Settings[k] = v
	}
	return nil
}

func (r *Settings) GetValue(key string) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.Settings[key], nil
}

func (r *Settings) SetValue(key, value string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.Settings[key] = value
	return nil
}

type AuditLogs struct{ s *Store }

func (r *AuditLogs) Record(entry *models.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	entry.ID = uint(len(r.s.Audit) + 1)
	r.s.Audit = append(r.s.Audit, *entry)
	return nil
}

func (r *AuditLogs) ListByTenant(tenantID uint, limit int) ([]models.AuditLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.AuditLog
	for i := len(r.s.Audit) - 1; i >= 0; i-- {
		if r.s.Audit[i].TenantID == tenantID {
			out = append(out, r.s.Audit[i])
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

type Backups struct{ s *Store }

func (r *Backups) Create(rec *models.BackupRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec.ID = r.s.id(rec.ID)
	cp := *rec
	r.s.Backups[rec.ID] = &cp
	return nil
}

func (r *Backups) Update(rec *models.BackupRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *rec
	r.s.Backups[rec.ID] = &cp
	return nil
}

func (r *Backups) ListRecent(limit int) ([]models.BackupRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]models.BackupRecord, 0, len(r.s.Backups))
	for _, b := range r.s.Backups {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type Sales struct{ s *Store }

func (r *Sales) Create(sale *models.Sale) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sale.ID = r.s.id(sale.ID)
	for i := range sale.Items {
		sale.Items[i].ID = r.s.id(sale.Items[i].ID)
		sale.Items[i].SaleID = sale.ID
	}
	cp := *sale
	cp.Items = append([]models.SaleItem(nil), sale.Items...)
	r.s.Sales[sale.ID] = &cp
	return nil
}

func (r *Sales) GetByID(tenantID, id uint) (*models.Sale, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if sale, ok := r.s.Sales[id]; ok && sale.TenantID == tenantID {
		cp := *sale
		cp.Items = append([]models.SaleItem(nil), sale.Items...)
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type Commissions struct{ s *Store }

func (r *Commissions) Create(c *models.Commission) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c.ID = r.s.id(c.ID)
	r.s.Commissions = append(r.s.Commissions, *c)
	return nil
}

func (r *Commissions) ListByUser(tenantID, userID uint, limit int) ([]models.Commission, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Commission
	for i := len(r.s.Commissions) - 1; i >= 0; i-- {
		c := r.s.Commissions[i]
		if c.TenantID == tenantID && c.UserID == userID {
			out = append(out, c)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

type ServiceOrders struct{ s *Store }

func (r *ServiceOrders) Create(o *models.ServiceOrder) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o.ID = r.s.id(o.ID)
	cp := *o
	r.s.ServiceOrders[o.ID] = &cp
	return nil
}

func (r *ServiceOrders) GetByID(tenantID, id uint) (*models.ServiceOrder, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if o, ok := r.s.ServiceOrders[id]; ok && o.TenantID == tenantID {
		cp := *o
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *ServiceOrders) UpdateStatus(o *models.ServiceOrder) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.ServiceOrders[o.ID]
	if !ok || stored.TenantID != o.TenantID {
		return gorm.ErrRecordNotFound
	}
	stored.Status = o.Status
	stored.CompletedAt = o.CompletedAt
	return nil
}

type Notifications struct{ s *Store }

func (r *Notifications) Create(tenantID uint, userID *uint, notificationType, title, message string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.Notifications = append(r.s.Notifications, models.Notification{
		ID:        r.s.id(0),
		TenantID:  tenantID,
		UserID:    userID,
		Type:      notificationType,
		Title:     title,
		Message:   message,
		CreatedAt: time.Now(),
	})
	return nil
}

func visibleTo(n models.Notification, tenantID, userID uint) bool {
	return n.TenantID == tenantID && (n.UserID == nil || *n.UserID == userID)
}

func (r *Notifications) ListForUser(tenantID, userID uint, unreadOnly bool, limit int) ([]models.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Notification
	for i := len(r.s.Notifications) - 1; i >= 0; i-- {
		n := r.s.Notifications[i]
		if !visibleTo(n, tenantID, userID) || (unreadOnly && n.IsRead) {
			continue
		}
		out = append(out, n)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *Notifications) MarkRead(tenantID, userID, id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.Notifications {
		n := &r.s.Notifications[i]
		if n.ID == id && visibleTo(*n, tenantID, userID) {
			n.IsRead = true
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

var (
	_ repository.TenantRepository       = (*Tenants)(nil)
	_ repository.UserRepository         = (*Users)(nil)
	_ repository.PlanRepository         = (*Plans)(nil)
	_ repository.ProductRepository      = (*Products)(nil)
	_ repository.CustomerRepository     = (*Customers)(nil)
	_ repository.SettingRepository      = (*Settings)(nil)
	_ repository.AuditLogRepository     = (*AuditLogs)(nil)
	_ repository.BackupRecordRepository = (*Backups)(nil)
	_ repository.SaleRepository         = (*Sales)(nil)
	_ repository.CommissionRepository   = (*Commissions)(nil)
	_ repository.ServiceOrderRepository = (*ServiceOrders)(nil)
	_ repository.NotificationRepository = (*Notifications)(nil)
)
