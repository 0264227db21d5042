package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cellsync/cellsync/app/models"
	"github.com/cellsync/cellsync/internal/pkg/diagnostics"
	"github.com/cellsync/cellsync/internal/pkg/migrator"
)

var isolationTenantLimit int

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Schema inspection and maintenance",
}

var dbTablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List the tables of the current database",
	Args:  cobra.NoArgs,
	RunE:  runDBTables,
}

var dbCheckSchemaCmd = &cobra.Command{
	Use:   "check-schema",
	Short: "Compare the live schema against the models",
	Args:  cobra.NoArgs,
	RunE:  runDBCheckSchema,
}

var dbAuditIsolationCmd = &cobra.Command{
	Use:   "audit-isolation",
	Short: "Count rows per tenant and look for rows without tenant",
	Args:  cobra.NoArgs,
	RunE:  runDBAuditIsolation,
}

var dbApplyJournalCmd = &cobra.Command{
	Use:   "apply-journal [dir]",
	Short: "Apply SQL migrations listed in dir/meta/_journal.json",
	Long: `Runs each journal entry's <tag>.sql, split on statement breakpoints.
"already exists" errors (1050, 1060, 1061) are tolerated, anything else
aborts. Applied tags are recorded in __drizzle_migrations and skipped on the
next run. Without a journal every .sql file in dir runs in name order.`,
	Args: cobra.ExactArgs(1),
	RunE: runDBApplyJournal,
}

var dbFixTenancyCmd = &cobra.Command{
	Use:   "fix-tenancy",
	Short: "Add tenant_id to business tables that lack it",
	Args:  cobra.NoArgs,
	RunE:  runDBFixTenancy,
}

func init() {
	dbAuditIsolationCmd.Flags().IntVar(&isolationTenantLimit, "tenants", 10, "Number of tenants to count rows for")
	dbCmd.AddCommand(dbTablesCmd, dbCheckSchemaCmd, dbAuditIsolationCmd, dbApplyJournalCmd, dbFixTenancyCmd)
}

func inspector(cmd *cobra.Command) (*diagnostics.Inspector, error) {
	rt, err := getRuntime(cmd)
	if err != nil {
		return nil, err
	}
	db, err := rt.sql()
	if err != nil {
		return nil, err
	}
	return diagnostics.New(db, rt.repos), nil
}

func runDBTables(cmd *cobra.Command, args []string) error {
	ins, err := inspector(cmd)
	if err != nil {
		return err
	}
	tables, err := ins.ListTables(cmd.Context())
	if err != nil {
		return err
	}
	for _, t := range tables {
		fmt.Fprintln(cmd.OutOrStdout(), t)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Total: %d tabelas\n", len(tables))
	return nil
}

func runDBCheckSchema(cmd *cobra.Command, args []string) error {
	rt, err := getRuntime(cmd)
	if err != nil {
		return err
	}
	db, err := rt.sql()
	if err != nil {
		return err
	}
	expected, err := diagnostics.ExpectedSchema(db, models.AllModels()...)
	if err != nil {
		return err
	}
	report, err := diagnostics.New(db, rt.repos).CheckSchema(cmd.Context(), expected)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, t := range report.MissingTables {
		fmt.Fprintf(out, "tabela ausente: %s\n", t)
	}
	tables := make([]string, 0, len(report.MissingColumns))
	for t := range report.MissingColumns {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	for _, t := range tables {
		fmt.Fprintf(out, "colunas ausentes em %s: %s\n", t, strings.Join(report.MissingColumns[t], ", "))
	}
	if !report.OK() {
		return fmt.Errorf("schema differs from models: %d tables and %d tables with columns missing", len(report.MissingTables), len(tables))
	}
	fmt.Fprintln(out, "Schema OK")
	return nil
}

func runDBAuditIsolation(cmd *cobra.Command, args []string) error {
	ins, err := inspector(cmd)
	if err != nil {
		return err
	}
	report, err := ins.AuditIsolation(cmd.Context(), isolationTenantLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	rows := make([][]string, 0, len(report.Tenants))
	for _, t := range report.Tenants {
		rows = append(rows, []string{
			fmt.Sprint(t.TenantID), t.Name, t.Status,
			fmt.Sprint(t.Counts["products"]), fmt.Sprint(t.Counts["customers"]),
			fmt.Sprint(t.Counts["sales"]), fmt.Sprint(t.Counts["invoices"]),
		})
	}
	renderTable(out, []string{"TENANT", "NOME", "STATUS", "PRODUTOS", "CLIENTES", "VENDAS", "NOTAS"}, rows)

	tables := make([]string, 0, len(report.NullTenantID))
	for t := range report.NullTenantID {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	for _, t := range tables {
		if n := report.NullTenantID[t]; n > 0 {
			fmt.Fprintf(out, "%s: %d registros sem tenant_id\n", t, n)
		}
	}
	fmt.Fprintf(out, "Usuários: %d total, %d tenants distintos, %d sem tenant\n",
		report.Users.Total, report.Users.Tenants, report.Users.WithoutTenant)
	for _, e := range report.Errors {
		logger.Warn("isolation audit", zap.String("error", e))
	}
	if !report.OK() {
		return fmt.Errorf("tenant isolation audit failed")
	}
	fmt.Fprintln(out, "Isolamento OK")
	return nil
}

func runDBApplyJournal(cmd *cobra.Command, args []string) error {
	rt, err := getRuntime(cmd)
	if err != nil {
		return err
	}
	db, err := rt.sql()
	if err != nil {
		return err
	}
	report, err := migrator.New(db, rt.metrics).Apply(cmd.Context(), args[0])
	if report != nil {
		for _, tag := range report.Applied {
			fmt.Fprintf(cmd.OutOrStdout(), "aplicada: %s\n", tag)
		}
		for _, tag := range report.Skipped {
			fmt.Fprintf(cmd.OutOrStdout(), "já aplicada: %s\n", tag)
		}
		logger.Info("journal applied",
			zap.Int("applied", len(report.Applied)),
			zap.Int("skipped", len(report.Skipped)),
			zap.Int("statements", report.Statements),
			zap.Int("tolerated", report.Tolerated))
	}
	return err
}

func runDBFixTenancy(cmd *cobra.Command, args []string) error {
	rt, err := getRuntime(cmd)
	if err != nil {
		return err
	}
	db, err := rt.sql()
	if err != nil {
		return err
	}
	report := migrator.New(db, rt.metrics).FixTenancy(cmd.Context(), models.TenantScopedTables)
	out := cmd.OutOrStdout()
	for _, t := range report.Added {
		fmt.Fprintf(out, "tenant_id adicionado: %s\n", t)
	}
	for _, t := range report.Present {
		fmt.Fprintf(out, "já possui tenant_id: %s\n", t)
	}
	failed := make([]string, 0, len(report.Failed))
	for t := range report.Failed {
		failed = append(failed, t)
	}
	sort.Strings(failed)
	for _, t := range failed {
		fmt.Fprintf(out, "falhou: %s: %s\n", t, report.Failed[t])
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d tables could not be fixed", len(failed))
	}
	return nil
}
