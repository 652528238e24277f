package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"uncertaintymap/internal/metrics"
	"uncertaintymap/pkg/analysis"
	"uncertaintymap/pkg/config"
)

var planeCmd = &cobra.Command{
	Use:   "plane",
	Short: "Fit scan planes through the uncertainty volume",
	Long: `Loads the uncertainty volume and runs the random plane search and the SVD fit
over its highest-uncertainty voxels, printing the resulting planes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := applyPlaneFlags(cmd, cfg); err != nil {
			return err
		}

		log, err := newLogger(cfg)
		if err != nil {
			return err
		}
		m := metrics.New()
		defer writeMetrics(cmd, m, log)

		analyzer, err := analysis.NewAnalyzer(cfg, log, m)
		if err != nil {
			return err
		}
		if err := analyzer.LoadVolume(); err != nil {
			return err
		}
		results, err := analyzer.FitPlanes()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, res := range results {
			if res.Error != "" {
				fmt.Fprintf(out, "%-6s no plane: %s\n", res.Fitter, res.Error)
				continue
			}
			fmt.Fprintf(out, "%-6s %s goodness=%.4f\n", res.Fitter, res.Plane, res.Goodness)
		}
		return nil
	},
}

// applyPlaneFlags overrides configuration values with explicitly set flags
func applyPlaneFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	if flags.Changed("source") {
		cfg.Volume.Source, _ = flags.GetString("source")
	}
	if flags.Changed("input") {
		cfg.Volume.InputDir, _ = flags.GetString("input")
		if !flags.Changed("source") {
			cfg.Volume.Source = config.SourceImages
		}
	}
	if flags.Changed("seed") {
		cfg.Processing.Seed, _ = flags.GetInt64("seed")
	}
	if flags.Changed("iterations") {
		cfg.Plane.MaxIterations, _ = flags.GetInt("iterations")
	}
	if flags.Changed("threshold") {
		cfg.Plane.GoodnessThreshold, _ = flags.GetFloat64("threshold")
	}
	if flags.Changed("thickness") {
		cfg.Plane.Thickness, _ = flags.GetFloat64("thickness")
	}
	if flags.Changed("worst-fraction") {
		cfg.Plane.WorstFraction, _ = flags.GetFloat64("worst-fraction")
	}
	return cfg.Validate()
}

func init() {
	rootCmd.AddCommand(planeCmd)

	addVolumeFlags(planeCmd)
	planeCmd.Flags().Int("iterations", 10, "Maximum candidate planes of the random search")
	planeCmd.Flags().Float64("threshold", 0.5, "Goodness at which the random search stops early")
	planeCmd.Flags().Float64("thickness", 1.0, "Slab half-thickness around a candidate plane")
	planeCmd.Flags().Float64("worst-fraction", 0.05, "Share of highest-uncertainty voxels fed to the SVD fit")
}
