package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cellsync/cellsync/app/models"
	"github.com/cellsync/cellsync/internal/pkg/tenancy"
)

var tenantsCmd = &cobra.Command{
	Use:   "tenants",
	Short: "Inspect and seed tenants",
}

var tenantsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all tenants",
	Args:  cobra.NoArgs,
	RunE:  runTenantsList,
}

var tenantsSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the master tenant and the demo tenants that do not exist yet",
	Args:  cobra.NoArgs,
	RunE:  runTenantsSeed,
}

var tenantsCheckDuplicateCmd = &cobra.Command{
	Use:   "check-duplicate [subdomain]",
	Short: "Show every tenant registered under a subdomain",
	Args:  cobra.ExactArgs(1),
	RunE:  runTenantsCheckDuplicate,
}

var tenantsCreateMasterCmd = &cobra.Command{
	Use:   "create-master",
	Short: "Create tenant 1 (CellSync Master) when missing",
	Args:  cobra.NoArgs,
	RunE:  runTenantsCreateMaster,
}

func init() {
	tenantsCmd.AddCommand(tenantsListCmd, tenantsSeedCmd, tenantsCheckDuplicateCmd, tenantsCreateMasterCmd)
}

func tenancyService(rt *runtime) *tenancy.Service {
	svc := tenancy.NewService(rt.repos, rt.tx)
	if settings, err := rt.repos.Setting.Get(); err == nil {
		svc.WithTrialDays(settings.GetTrialDays())
	}
	return svc
}

func tenantRows(tenants []models.Tenant) [][]string {
	rows := make([][]string, 0, len(tenants))
	for _, t := range tenants {
		rows = append(rows, []string{
			strconv.FormatUint(uint64(t.ID), 10),
			t.Name,
			t.Subdomain,
			t.CNPJ,
			strconv.FormatUint(uint64(t.PlanID), 10),
			t.Status,
			t.CreatedAt.Format("2006-01-02"),
		})
	}
	return rows
}

var tenantHeaders = []string{"ID", "NOME", "SUBDOMÍNIO", "CNPJ", "PLANO", "STATUS", "CRIADO EM"}

func runTenantsList(cmd *cobra.Command, args []string) error {
	rt, err := getRuntime(cmd)
	if err != nil {
		return err
	}
	tenants, err := tenancyService(rt).List()
	if err != nil {
		return fmt.Errorf("failed to list tenants: %w", err)
	}
	renderTable(cmd.OutOrStdout(), tenantHeaders, tenantRows(tenants))
	fmt.Fprintf(cmd.OutOrStdout(), "Total: %d tenants\n", len(tenants))
	return nil
}

func runTenantsSeed(cmd *cobra.Command, args []string) error {
	rt, err := getRuntime(cmd)
	if err != nil {
		return err
	}
	svc := tenancyService(rt)
	if created, err := svc.SeedMasterTenant(cmd.Context()); err != nil {
		return err
	} else if created {
		logger.Info("master tenant created")
	}

	report, err := svc.SeedDemoTenants(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, s := range report.Created {
		fmt.Fprintf(out, "criado: %s\n", s)
	}
	for _, s := range report.Skipped {
		fmt.Fprintf(out, "já existe: %s\n", s)
	}
	fmt.Fprintf(out, "Tenants criados: %d, ignorados: %d\n", len(report.Created), len(report.Skipped))
	logger.Info("demo tenants seeded", zap.Int("created", len(report.Created)), zap.Int("skipped", len(report.Skipped)))
	return nil
}

func runTenantsCheckDuplicate(cmd *cobra.Command, args []string) error {
	rt, err := getRuntime(cmd)
	if err != nil {
		return err
	}
	tenants, err := tenancyService(rt).CheckDuplicate(args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	switch len(tenants) {
	case 0:
		fmt.Fprintf(out, "Nenhum tenant com o subdomínio %q\n", args[0])
	case 1:
		fmt.Fprintf(out, "Subdomínio %q em uso por um tenant\n", args[0])
		renderTable(out, tenantHeaders, tenantRows(tenants))
	default:
		fmt.Fprintf(out, "DUPLICADO: %d tenants usam o subdomínio %q\n", len(tenants), args[0])
		renderTable(out, tenantHeaders, tenantRows(tenants))
	}
	return nil
}

func runTenantsCreateMaster(cmd *cobra.Command, args []string) error {
	rt, err := getRuntime(cmd)
	if err != nil {
		return err
	}
	created, err := tenancyService(rt).SeedMasterTenant(cmd.Context())
	if err != nil {
		return err
	}
	if created {
		fmt.Fprintf(cmd.OutOrStdout(), "Tenant master criado (id %d)\n", models.MasterTenantID)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Tenant master já existe (id %d)\n", models.MasterTenantID)
	}
	return nil
}
