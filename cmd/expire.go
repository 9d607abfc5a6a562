package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/chargeplan/config"
	"github.com/kilianp07/chargeplan/infra/logger"
	"github.com/kilianp07/chargeplan/infra/store/sqlite"
)

// expireCmd is meant to run from cron: it releases connectors whose
// reservation passed its expiry and exits.
var expireCmd = &cobra.Command{
	Use:   "expire",
	Short: "Release connectors held by expired reservations",
	RunE:  runExpire,
}

func init() {
	rootCmd.AddCommand(expireCmd)
}

func runExpire(cmd *cobra.Command, args []string) error {
	log := logger.New("expire")

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	store, err := sqlite.Open(cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	n, err := store.ExpireDue(cmd.Context(), time.Now())
	if err != nil {
		return err
	}
	log.Infof("expired %d reservations", n)
	return nil
}
