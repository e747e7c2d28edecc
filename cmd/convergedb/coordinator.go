package main

import (
	"github.com/spf13/cobra"

	"github.com/orneryd/convergedb/pkg/dbconfig"
	"github.com/orneryd/convergedb/pkg/store"
	"github.com/orneryd/convergedb/pkg/tiered"
)

// addCommonFlags registers the flags every data-touching subcommand shares:
// which (type, tier) instance to operate against and where its data lives.
func addCommonFlags(cmd *cobra.Command) {
	cmd.Flags().String("data-dir", "", "Data directory (default: $CONVERGEDB_DATA_DIR, else ./data)")
	cmd.Flags().String("config", "", "YAML config overlay file")
	cmd.Flags().String("db-type", string(tiered.Conversations), "Database type (conversations, knowledge)")
	cmd.Flags().String("tier", string(tiered.Active), "Temperature tier (active, recent, archive)")
}

func openCoordinator(cmd *cobra.Command) (*tiered.Coordinator, error) {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	cfgPath, _ := cmd.Flags().GetString("config")

	cfg := dbconfig.LoadFromEnv()
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if cfgPath != "" {
		if err := cfg.LoadOverlay(cfgPath); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	coord := tiered.NewCoordinator(cfg.DataDir, store.Options{Timeout: cfg.StoreTimeout}, cfg.ManagerConfig)
	return coord, nil
}

func dbTypeAndTier(cmd *cobra.Command) (tiered.DatabaseType, tiered.TemperatureTier) {
	typ, _ := cmd.Flags().GetString("db-type")
	tier, _ := cmd.Flags().GetString("tier")
	return tiered.DatabaseType(typ), tiered.TemperatureTier(tier)
}
