package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cellsync/cellsync/internal/pkg/importer"
)

var (
	importTenant  uint
	importPreview bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Bulk data imports",
}

var importProductsCmd = &cobra.Command{
	Use:   "products [file]",
	Short: "Import products from a CSV or XLSX file into a tenant",
	Long: `Reads a spreadsheet with the columns nome, sku, codigo_barras,
categoria, marca, modelo, preco_custo, preco_venda, estoque_minimo,
estoque_atual and requer_imei. Rows with errors are reported with their line
number; existing SKUs are skipped; the plan's product limit is enforced.`,
	Args: cobra.ExactArgs(1),
	RunE: runImportProducts,
}

func init() {
	importProductsCmd.Flags().UintVar(&importTenant, "tenant", 0, "Target tenant id")
	importProductsCmd.Flags().BoolVar(&importPreview, "preview", false, "Validate only, do not insert")
	_ = importProductsCmd.MarkFlagRequired("tenant")
	importCmd.AddCommand(importProductsCmd)
}

func runImportProducts(cmd *cobra.Command, args []string) error {
	path := args[0]
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	format := importer.DetectFormat(filepath.Base(path), content)

	rt, err := getRuntime(cmd)
	if err != nil {
		return err
	}
	svc := importer.NewService(rt.repos, rt.metrics)
	out := cmd.OutOrStdout()

	if importPreview {
		p, err := svc.Preview(bytes.NewReader(content), format)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Linhas: %d, válidas: %d, inválidas: %d (%s)\n", p.TotalRows, p.ValidRows, p.InvalidRows, p.SuccessRate)
		printRowErrors(cmd, p.Errors)
		return nil
	}

	res, err := svc.ImportProducts(cmd.Context(), importTenant, bytes.NewReader(content), format)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, res.Message)
	fmt.Fprintf(out, "Linhas: %d, criados: %d, ignorados: %d, com erro: %d\n", res.TotalRows, res.Created, res.Skipped, res.ErrorCount)
	printRowErrors(cmd, res.Errors)
	logger.Info("products imported",
		zap.Uint("tenant", importTenant),
		zap.String("file", path),
		zap.Int("created", res.Created),
		zap.Int("skipped", res.Skipped),
		zap.Int("errors", res.ErrorCount))
	return nil
}

func printRowErrors(cmd *cobra.Command, errs []importer.RowError) {
	for _, e := range errs {
		fmt.Fprintf(cmd.OutOrStdout(), "  linha %d: %s\n", e.Line, strings.Join(e.Errors, "; "))
	}
}
