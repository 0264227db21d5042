package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	"github.com/cellsync/cellsync/app/repository"
	"github.com/cellsync/cellsync/internal/pkg/database"
	"github.com/cellsync/cellsync/internal/pkg/env"
	"github.com/cellsync/cellsync/internal/pkg/metrics"
	"github.com/cellsync/cellsync/internal/pkg/tenancy"
)

var (
	verbose bool

	logger *zap.Logger
)

// runtime is what the commands operate on. db is nil when the repositories
// are not SQL backed.
type runtime struct {
	db      *gorm.DB
	repos   *repository.Repositories
	tx      tenancy.TxFunc
	metrics *metrics.Metrics
}

var errNeedsSQL = errors.New("this command needs a MySQL connection")

func (r *runtime) sql() (*gorm.DB, error) {
	if r.db == nil {
		return nil, errNeedsSQL
	}
	return r.db, nil
}

var openRuntime = func(ctx context.Context) (*runtime, error) {
	env.SetupEnvFile()
	dsn, err := database.DSNFromEnv()
	if err != nil {
		return nil, err
	}
	db, err := database.Open(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &runtime{
		db:      db,
		repos:   repository.NewRepositories(db),
		tx:      tenancy.GormTx(db),
		metrics: metrics.Default(),
	}, nil
}

var current *runtime

func getRuntime(cmd *cobra.Command) (*runtime, error) {
	if current != nil {
		return current, nil
	}
	rt, err := openRuntime(cmd.Context())
	if err != nil {
		return nil, err
	}
	current = rt
	return rt, nil
}

var rootCmd = &cobra.Command{
	Use:   "cellsync-admin",
	Short: "CellSync operations tool",
	Long: `Administrative tasks for a CellSync installation: tenants, users,
plans, Stripe provisioning, schema checks, imports, backups and settings.

Database settings come from DATABASE_URL or DB_* (a .env file is honoured).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(
		tenantsCmd,
		usersCmd,
		adminsCmd,
		plansCmd,
		stripeCmd,
		dbCmd,
		importCmd,
		backupCmd,
		settingsCmd,
		versionCmd,
	)
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

func renderTable(w io.Writer, headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "(nenhum registro)")
		return
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	fmt.Fprintln(w, t)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
