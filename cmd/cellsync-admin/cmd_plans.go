package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cellsync/cellsync/internal/pkg/billing"
	"github.com/cellsync/cellsync/internal/pkg/diagnostics"
	"github.com/cellsync/cellsync/internal/pkg/plans"
)

var (
	stripeSlug  string
	stripeForce bool
)

var plansCmd = &cobra.Command{
	Use:   "plans",
	Short: "Inspect and seed subscription plans",
}

var plansListCmd = &cobra.Command{
	Use:   "list",
	Short: "List plans with prices, limits and Stripe price ids",
	Args:  cobra.NoArgs,
	RunE:  runPlansList,
}

var plansSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Upsert the default plan catalog",
	Args:  cobra.NoArgs,
	RunE:  runPlansSeed,
}

var plansFixPricesCmd = &cobra.Command{
	Use:   "fix-prices",
	Short: "Apply the current price table to existing plans",
	Args:  cobra.NoArgs,
	RunE:  runPlansFixPrices,
}

var stripeCmd = &cobra.Command{
	Use:   "stripe",
	Short: "Stripe billing setup",
}

var stripeSetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create Stripe products and prices for the active plans",
	Long: `Creates one Stripe product per plan with a monthly and a yearly price
(BRL) and stores the price ids on the plan. Plans that already have both
price ids are skipped unless --force is given.

Requires STRIPE_SECRET_KEY.`,
	Args: cobra.NoArgs,
	RunE: runStripeSetup,
}

func init() {
	stripeSetupCmd.Flags().StringVar(&stripeSlug, "slug", "", "Provision only this plan")
	stripeSetupCmd.Flags().BoolVar(&stripeForce, "force", false, "Recreate prices for plans that already have them")

	plansCmd.AddCommand(plansListCmd, plansSeedCmd, plansFixPricesCmd)
	stripeCmd.AddCommand(stripeSetupCmd)
}

var newStripeAPI = func() (billing.StripeAPI, error) {
	return billing.NewStripeClient(billing.LoadConfig())
}

func runPlansList(cmd *cobra.Command, args []string) error {
	rt, err := getRuntime(cmd)
	if err != nil {
		return err
	}
	list, err := diagnostics.New(rt.db, rt.repos).ListPlans()
	if err != nil {
		return fmt.Errorf("failed to list plans: %w", err)
	}
	rows := make([][]string, 0, len(list))
	for _, p := range list {
		rows = append(rows, []string{
			strconv.FormatUint(uint64(p.ID), 10),
			p.Slug,
			p.Name,
			plans.FormatBRL(p.PriceMonthly),
			plans.FormatBRL(p.PriceYearly),
			strconv.Itoa(p.MaxUsers),
			strconv.Itoa(p.MaxProducts),
			strconv.FormatBool(p.IsActive),
			orDash(p.StripePriceIDMonthly),
			orDash(p.StripePriceIDYearly),
		})
	}
	renderTable(cmd.OutOrStdout(),
		[]string{"ID", "SLUG", "NOME", "MENSAL", "ANUAL", "USUÁRIOS", "PRODUTOS", "ATIVO", "PRICE MENSAL", "PRICE ANUAL"},
		rows)
	return nil
}

func runPlansSeed(cmd *cobra.Command, args []string) error {
	rt, err := getRuntime(cmd)
	if err != nil {
		return err
	}
	slugs, err := plans.NewService(rt.repos.Plan).Seed()
	if err != nil {
		return err
	}
	for _, s := range slugs {
		fmt.Fprintf(cmd.OutOrStdout(), "plano %s gravado\n", s)
	}
	logger.Info("plans seeded", zap.Strings("slugs", slugs))
	return nil
}

func runPlansFixPrices(cmd *cobra.Command, args []string) error {
	rt, err := getRuntime(cmd)
	if err != nil {
		return err
	}
	results, err := plans.NewService(rt.repos.Plan).FixPricing()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, r := range results {
		state := "não encontrado"
		if r.Updated {
			state = "atualizado"
		}
		fmt.Fprintf(out, "%s: %s / %s (%s)\n", r.Slug, plans.FormatBRL(r.Monthly), plans.FormatBRL(r.Yearly), state)
	}
	return nil
}

func runStripeSetup(cmd *cobra.Command, args []string) error {
	rt, err := getRuntime(cmd)
	if err != nil {
		return err
	}
	api, err := newStripeAPI()
	if err != nil {
		return err
	}
	p := billing.NewProvisioner(api, rt.repos.Plan)

	var results []billing.ProvisionResult
	if stripeSlug != "" {
		res, err := p.Provision(cmd.Context(), stripeSlug, stripeForce)
		if err != nil {
			return err
		}
		results = append(results, *res)
	} else {
		results, err = p.ProvisionAll(cmd.Context(), stripeForce)
		if err != nil {
			return err
		}
	}

	rows := make([][]string, 0, len(results))
	for _, r := range results {
		state := "criado"
		if r.Skipped {
			state = "já configurado"
		}
		rows = append(rows, []string{r.Slug, r.ProductID, r.MonthlyPriceID, r.YearlyPriceID, state})
		logger.Info("plan provisioned", zap.String("slug", r.Slug), zap.Bool("skipped", r.Skipped))
	}
	renderTable(cmd.OutOrStdout(), []string{"PLANO", "PRODUTO", "PRICE MENSAL", "PRICE ANUAL", "RESULTADO"}, rows)
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
