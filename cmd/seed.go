package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/chargeplan/config"
	"github.com/kilianp07/chargeplan/infra/logger"
	"github.com/kilianp07/chargeplan/infra/store/sqlite"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Initialise the station database with demo data",
	RunE:  runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	log := logger.New("seed")

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	store, err := sqlite.Open(cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	seeded, err := store.Seeded(cmd.Context())
	if err != nil {
		return err
	}
	if seeded {
		log.Infof("store already seeded, nothing to do")
		return nil
	}
	stations := sqlite.DemoStations()
	if err := store.Seed(cmd.Context(), stations); err != nil {
		return err
	}
	log.Infof("seeded %d stations", len(stations))
	return nil
}
