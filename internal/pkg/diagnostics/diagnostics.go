package diagnostics

import (
	"context"
	"fmt"
	"sort"

	"gorm.io/gorm"

	"github.com/cellsync/cellsync/app/models"
	"github.com/cellsync/cellsync/app/repository"
)

// IsolationTables are counted per tenant by AuditIsolation.
var IsolationTables = []string{"products", "customers", "sales", "invoices"}

type Inspector struct {
	db    *gorm.DB
	repos *repository.Repositories
}

func New(db *gorm.DB, repos *repository.Repositories) *Inspector {
	return &Inspector{db: db, repos: repos}
}

func (i *Inspector) ListTables(ctx context.Context) ([]string, error) {
	rows, err := i.db.WithContext(ctx).Raw("SHOW TABLES").Rows()
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	sort.Strings(tables)
	return tables, rows.Err()
}

type Column struct {
	Name     string `gorm:"column:COLUMN_NAME" json:"name"`
	Type     string `gorm:"column:COLUMN_TYPE" json:"type"`
	Nullable string `gorm:"column:IS_NULLABLE" json:"nullable"`
}

func (i *Inspector) Columns(ctx context.Context, table string) ([]Column, error) {
	var cols []Column
	err := i.db.WithContext(ctx).Raw(
		"SELECT COLUMN_NAME, COLUMN_TYPE, IS_NULLABLE FROM INFORMATION_SCHEMA.COLUMNS "+
			"WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ? ORDER BY ORDINAL_POSITION", table).
		Scan(&cols).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}
	return cols, nil
}

// ExpectedSchema derives table -> columns from the GORM models.
func ExpectedSchema(db *gorm.DB, values ...interface{}) (map[string][]string, error) {
	out := make(map[string][]string, len(values))
	for _, v := range values {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(v); err != nil {
			return nil, fmt.Errorf("failed to parse model %T: %w", v, err)
		}
		out[stmt.Schema.Table] = append([]string(nil), stmt.Schema.DBNames...)
	}
	return out, nil
}

type SchemaReport struct {
	MissingTables  []string            `json:"missingTables"`
	MissingColumns map[string][]string `json:"missingColumns"`
}

func (r *SchemaReport) OK() bool {
	return len(r.MissingTables) == 0 && len(r.MissingColumns) == 0
}

// CheckSchema compares the live database against expected.
func (i *Inspector) CheckSchema(ctx context.Context, expected map[string][]string) (*SchemaReport, error) {
	tables, err := i.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	present := make(map[string]bool, len(tables))
	for _, t := range tables {
		present[t] = true
	}

	names := make([]string, 0, len(expected))
	for t := range expected {
		names = append(names, t)
	}
	sort.Strings(names)

	report := &SchemaReport{MissingColumns: map[string][]string{}}
	for _, table := range names {
		if !present[table] {
			report.MissingTables = append(report.MissingTables, table)
			continue
		}
		cols, err := i.Columns(ctx, table)
		if err != nil {
			return nil, err
		}
		have := make(map[string]bool, len(cols))
		for _, c := range cols {
			have[c.Name] = true
		}
		for _, want := range expected[table] {
			if !have[want] {
				report.MissingColumns[table] = append(report.MissingColumns[table], want)
			}
		}
	}
	return report, nil
}

type TenantCounts struct {
	TenantID uint             `json:"tenantId"`
	Name     string           `json:"name"`
	CNPJ     string           `json:"cnpj"`
	Status   string           `json:"status"`
	Counts   map[string]int64 `json:"counts"`
}

type UserStats struct {
	Total         int64 `json:"total"`
	Tenants       int64 `json:"tenants"`
	WithoutTenant int64 `json:"withoutTenant"`
}

type IsolationReport struct {
	Tenants      []TenantCounts   `json:"tenants"`
	NullTenantID map[string]int64 `json:"nullTenantId"`
	Users        UserStats        `json:"users"`
	Errors       []string         `json:"errors,omitempty"`
}

// OK is true when no row lacks a tenant.
func (r *IsolationReport) OK() bool {
	for _, n := range r.NullTenantID {
		if n > 0 {
			return false
		}
	}
	return r.Users.WithoutTenant == 0
}

// AuditIsolation counts rows per tenant (first tenantLimit tenants) and looks
// for rows that escaped tenant scoping. Missing tables are reported as errors
// and do not stop the audit.
func (i *Inspector) AuditIsolation(ctx context.Context, tenantLimit int) (*IsolationReport, error) {
	db := i.db.WithContext(ctx)
	if tenantLimit <= 0 {
		tenantLimit = 10
	}

	var tenants []models.Tenant
	if err := db.Select("id", "name", "cnpj", "status").Order("id").Limit(tenantLimit).Find(&tenants).Error; err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}

	report := &IsolationReport{NullTenantID: map[string]int64{}}
	for _, t := range tenants {
		tc := TenantCounts{TenantID: t.ID, Name: t.Name, CNPJ: t.CNPJ, Status: t.Status, Counts: map[string]int64{}}
		for _, table := range IsolationTables {
			var n int64
			if err := db.Table(table).Where("tenant_id = ?", t.ID).Count(&n).Error; err != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("%s (tenant %d): %v", table, t.ID, err))
				n = -1
			}
			tc.Counts[table] = n
		}
		report.Tenants = append(report.Tenants, tc)
	}

	for _, table := range IsolationTables {
		var n int64
		if err := db.Table(table).Where("tenant_id IS NULL").Count(&n).Error; err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", table, err))
			continue
		}
		report.NullTenantID[table] = n
	}

	err := db.Raw("SELECT COUNT(*) AS total, COUNT(DISTINCT tenant_id) AS tenants, " +
		"COALESCE(SUM(CASE WHEN tenant_id IS NULL OR tenant_id = 0 THEN 1 ELSE 0 END), 0) AS without_tenant FROM users").
		Scan(&report.Users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read user stats: %w", err)
	}
	return report, nil
}

func (i *Inspector) ListUsers(limit int) ([]models.User, error) {
	return i.repos.User.List(0, limit)
}

// ListAdmins returns master admins first, then tenant admins.
func (i *Inspector) ListAdmins() ([]models.User, error) {
	var out []models.User
	for _, role := range []string{models.ROLE_MASTER_ADMIN, models.ROLE_ADMIN} {
		users, err := i.repos.User.ListByRole(role)
		if err != nil {
			return nil, err
		}
		out = append(out, users...)
	}
	return out, nil
}

func (i *Inspector) ListPlans() ([]models.Plan, error) {
	return i.repos.Plan.List()
}
