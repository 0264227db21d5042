package models

// AllModels lists every table managed by AutoMigrate, parents first.
func AllModels() []interface{} {
	return []interface{}{
		&Plan{},
		&Tenant{},
		&User{},
		&Customer{},
		&Product{},
		&StockItem{},
		&StockMovement{},
		&Sale{},
		&SaleItem{},
		&ServiceOrder{},
		&ServiceOrderPart{},
		&Invoice{},
		&Commission{},
		&AuditLog{},
		&SystemSetting{},
		&WebhookEvent{},
		&BackupRecord{},
		&Notification{},
	}
}

// TenantScopedTables are the business tables that must carry tenant_id.
var TenantScopedTables = []string{
	"customers",
	"products",
	"stock_items",
	"stock_movements",
	"sales",
	"sale_items",
	"service_orders",
	"service_order_parts",
	"invoices",
	"commissions",
	"audit_logs",
	"notifications",
}
