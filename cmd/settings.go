package cmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/smart-presence/internal/config"
	"github.com/kozaktomas/smart-presence/internal/settings"
	"github.com/kozaktomas/smart-presence/internal/store"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Inspect and change engine settings",
}

var settingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all settings (stored values merged over defaults)",
	RunE:  runSettingsList,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Persist a setting",
	Long: `Persist a setting. A running engine picks the change up through
its settings API; this command writes the store directly and is meant for
provisioning.`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsListCmd)
	settingsCmd.AddCommand(settingsSetCmd)
}

func openSettingsStore(ctx context.Context) (*store.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return store.Open(ctx, cfg.Database.Path)
}

func runSettingsList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	st, err := openSettingsStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	stored, err := st.AllSettings(ctx)
	if err != nil {
		return err
	}

	merged := make(map[string]string, len(settings.Defaults))
	for k, v := range settings.Defaults {
		merged[k] = v
	}
	for k, v := range stored {
		merged[k] = v
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		marker := " "
		if _, ok := stored[k]; ok {
			marker = "*"
		}
		fmt.Printf("%s %-22s %s\n", marker, k, merged[k])
	}
	fmt.Println("\n* stored value (others are compiled defaults)")
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]
	if _, known := settings.Defaults[key]; !known {
		return fmt.Errorf("unknown setting %q", key)
	}

	ctx := context.Background()

	st, err := openSettingsStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.SetSetting(ctx, key, value); err != nil {
		return err
	}
	fmt.Printf("%s = %s\n", key, value)
	return nil
}
