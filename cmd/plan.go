package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kilianp07/chargeplan/app"
	"github.com/kilianp07/chargeplan/config"
	"github.com/kilianp07/chargeplan/core/model"
)

var planFlags struct {
	originLat float64
	originLon float64
	destLat   float64
	destLon   float64
	soc       float64
	userID    string
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Run a single planning request and print the plan as JSON",
	RunE:  runPlan,
}

func init() {
	planCmd.Flags().Float64Var(&planFlags.originLat, "origin-lat", 0, "origin latitude")
	planCmd.Flags().Float64Var(&planFlags.originLon, "origin-lon", 0, "origin longitude")
	planCmd.Flags().Float64Var(&planFlags.destLat, "dest-lat", 0, "destination latitude")
	planCmd.Flags().Float64Var(&planFlags.destLon, "dest-lon", 0, "destination longitude")
	planCmd.Flags().Float64Var(&planFlags.soc, "soc", 50, "state of charge in percent")
	planCmd.Flags().StringVar(&planFlags.userID, "user", "cli", "requesting user id")
	for _, name := range []string{"origin-lat", "origin-lon", "dest-lat", "dest-lon"} {
		if err := planCmd.MarkFlagRequired(name); err != nil {
			panic(err)
		}
	}
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	p, err := svc.Pipeline.Run(cmd.Context(), model.PlanRequest{
		Origin:      model.Coordinate{Lat: planFlags.originLat, Lon: planFlags.originLon},
		Destination: model.Coordinate{Lat: planFlags.destLat, Lon: planFlags.destLon},
		SoC:         planFlags.soc,
		UserID:      planFlags.userID,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}
