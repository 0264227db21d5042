package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cellsync/cellsync/app/models"
	"github.com/cellsync/cellsync/internal/pkg/auth"
	"github.com/cellsync/cellsync/internal/pkg/diagnostics"
	"github.com/cellsync/cellsync/internal/pkg/env"
)

var (
	usersLimit     int
	masterEmail    string
	masterName     string
	masterPassword string
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Inspect users and manage credentials",
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List users",
	Args:  cobra.NoArgs,
	RunE:  runUsersList,
}

var usersResetPasswordCmd = &cobra.Command{
	Use:   "reset-password [email] [password]",
	Short: "Overwrite the password of a user",
	Args:  cobra.ExactArgs(2),
	RunE:  runUsersResetPassword,
}

var usersCreateMasterCmd = &cobra.Command{
	Use:   "create-master",
	Short: "Create or promote the master admin account",
	Long: `Creates the master_admin user on tenant 1, or promotes and reactivates
an existing account with the same email.

Flags default to MASTER_ADMIN_EMAIL, MASTER_ADMIN_NAME and MASTER_ADMIN_PASSWORD.`,
	Args: cobra.NoArgs,
	RunE: runUsersCreateMaster,
}

var adminsCmd = &cobra.Command{
	Use:   "admins",
	Short: "Inspect administrator accounts",
}

var adminsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List master admins and tenant admins",
	Args:  cobra.NoArgs,
	RunE:  runAdminsList,
}

func init() {
	usersListCmd.Flags().IntVar(&usersLimit, "limit", 100, "Maximum number of users")
	usersCreateMasterCmd.Flags().StringVar(&masterEmail, "email", "", "Master admin email")
	usersCreateMasterCmd.Flags().StringVar(&masterName, "name", "", "Master admin name")
	usersCreateMasterCmd.Flags().StringVar(&masterPassword, "password", "", "Master admin password")

	usersCmd.AddCommand(usersListCmd, usersResetPasswordCmd, usersCreateMasterCmd)
	adminsCmd.AddCommand(adminsListCmd)
}

var userHeaders = []string{"ID", "NOME", "EMAIL", "PAPEL", "TENANT", "ATIVO", "ÚLTIMO LOGIN"}

func userRows(users []models.User) [][]string {
	rows := make([][]string, 0, len(users))
	for _, u := range users {
		last := "-"
		if u.LastSignedIn != nil {
			last = u.LastSignedIn.Format("2006-01-02 15:04")
		}
		rows = append(rows, []string{
			strconv.FormatUint(uint64(u.ID), 10),
			u.Name,
			u.Email,
			u.Role,
			strconv.FormatUint(uint64(u.TenantID), 10),
			strconv.FormatBool(u.Active),
			last,
		})
	}
	return rows
}

func authService(rt *runtime) *auth.Service {
	return auth.NewService(rt.repos.User, rt.repos.AuditLog, nil, rt.metrics)
}

func runUsersList(cmd *cobra.Command, args []string) error {
	rt, err := getRuntime(cmd)
	if err != nil {
		return err
	}
	users, err := diagnostics.New(rt.db, rt.repos).ListUsers(usersLimit)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}
	renderTable(cmd.OutOrStdout(), userHeaders, userRows(users))
	fmt.Fprintf(cmd.OutOrStdout(), "Total: %d usuários\n", len(users))
	return nil
}

func runUsersResetPassword(cmd *cobra.Command, args []string) error {
	rt, err := getRuntime(cmd)
	if err != nil {
		return err
	}
	email := models.NormalizeEmail(args[0])
	if err := authService(rt).ResetPassword(cmd.Context(), email, args[1]); err != nil {
		return err
	}
	logger.Info("password reset", zap.String("email", email))
	fmt.Fprintf(cmd.OutOrStdout(), "Senha atualizada para %s\n", email)
	return nil
}

func runUsersCreateMaster(cmd *cobra.Command, args []string) error {
	email := firstNonEmpty(masterEmail, env.GetEnv("MASTER_ADMIN_EMAIL", ""))
	name := firstNonEmpty(masterName, env.GetEnv("MASTER_ADMIN_NAME", "Master Admin"))
	password := firstNonEmpty(masterPassword, env.GetEnv("MASTER_ADMIN_PASSWORD", ""))
	if email == "" || password == "" {
		return fmt.Errorf("--email and --password (or MASTER_ADMIN_EMAIL/MASTER_ADMIN_PASSWORD) are required")
	}

	rt, err := getRuntime(cmd)
	if err != nil {
		return err
	}
	if _, err := tenancyService(rt).SeedMasterTenant(cmd.Context()); err != nil {
		return err
	}
	created, err := authService(rt).EnsureMasterAdmin(cmd.Context(), models.NormalizeEmail(email), name, password)
	if err != nil {
		return err
	}
	if created {
		fmt.Fprintf(cmd.OutOrStdout(), "Master admin %s criado\n", email)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Master admin %s atualizado\n", email)
	}
	return nil
}

func runAdminsList(cmd *cobra.Command, args []string) error {
	rt, err := getRuntime(cmd)
	if err != nil {
		return err
	}
	admins, err := diagnostics.New(rt.db, rt.repos).ListAdmins()
	if err != nil {
		return fmt.Errorf("failed to list admins: %w", err)
	}
	renderTable(cmd.OutOrStdout(), userHeaders, userRows(admins))
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
