package migrator

import (
	"context"
	"fmt"
	"regexp"

	"github.com/gofiber/fiber/v2/log"
)

var tableNameRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

type TenancyReport struct {
	Added   []string          `json:"added"`
	Present []string          `json:"present"`
	Failed  map[string]string `json:"failed,omitempty"`
}

// FixTenancy adds tenant_id to every listed table that lacks it. A failing
// table is reported and the loop moves on.
func (m *Migrator) FixTenancy(ctx context.Context, tables []string) *TenancyReport {
	db := m.db.WithContext(ctx)
	report := &TenancyReport{Failed: map[string]string{}}

	for _, table := range tables {
		if !tableNameRe.MatchString(table) {
			report.Failed[table] = "invalid table name"
			continue
		}

		rows, err := db.Raw(fmt.Sprintf("SHOW COLUMNS FROM `%s` LIKE 'tenant_id'", table)).Rows()
		if err != nil {
			log.Warnf("[Migrator] %s: %v", table, err)
			report.Failed[table] = err.Error()
			continue
		}
		exists := rows.Next()
		_ = rows.Close()

		if exists {
			report.Present = append(report.Present, table)
			continue
		}

		if err := db.Exec(fmt.Sprintf("ALTER TABLE `%s` ADD COLUMN tenant_id INT UNSIGNED NOT NULL DEFAULT 1", table)).Error; err != nil {
			log.Warnf("[Migrator] %s: %v", table, err)
			report.Failed[table] = err.Error()
			continue
		}
		log.Infof("[Migrator] added tenant_id to %s", table)
		report.Added = append(report.Added, table)
	}
	return report
}
