package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cellsync/cellsync/app/models"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Inspect and change system settings",
	Long: `System settings are read at startup: trial_days for new tenants,
backup_enabled and backup_retention_days for the backup job,
job_queue_worker_count for the workers and default_commission_bps for sales.`,
}

var settingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every setting with its effective value",
	Args:  cobra.NoArgs,
	RunE:  runSettingsList,
}

var settingsGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print one setting",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsGet,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Change one setting",
	Args:  cobra.ExactArgs(2),
	RunE:  runSettingsSet,
}

func init() {
	settingsCmd.AddCommand(settingsListCmd, settingsGetCmd, settingsSetCmd)
}

func runSettingsList(cmd *cobra.Command, args []string) error {
	rt, err := getRuntime(cmd)
	if err != nil {
		return err
	}
	settings, err := rt.repos.Setting.Get()
	if err != nil {
		return err
	}
	values := settings.Values()
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{k, values[k], models.SettingType(k)})
	}
	renderTable(cmd.OutOrStdout(), []string{"CHAVE", "VALOR", "TIPO"}, rows)
	return nil
}

func runSettingsGet(cmd *cobra.Command, args []string) error {
	key := args[0]
	if !models.IsKnownSetting(key) {
		return fmt.Errorf("unknown setting %q", key)
	}
	rt, err := getRuntime(cmd)
	if err != nil {
		return err
	}
	value, err := rt.repos.Setting.GetValue(key)
	if err != nil {
		return err
	}
	if value == "" {
		settings, err := rt.repos.Setting.Get()
		if err != nil {
			return err
		}
		value = settings.Values()[key]
	}
	fmt.Fprintln(cmd.OutOrStdout(), value)
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]
	if err := models.ValidateSetting(key, value); err != nil {
		return err
	}
	rt, err := getRuntime(cmd)
	if err != nil {
		return err
	}
	if err := rt.repos.Setting.SetValue(key, value); err != nil {
		return err
	}
	logger.Info("setting changed", zap.String("key", key), zap.String("value", value))
	fmt.Fprintf(cmd.OutOrStdout(), "%s = %s (vale a partir do próximo início do servidor)\n", key, value)
	return nil
}
