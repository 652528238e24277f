package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"uncertaintymap/internal/metrics"
	"uncertaintymap/pkg/analysis"
	"uncertaintymap/pkg/config"
	"uncertaintymap/pkg/mapping"
	"uncertaintymap/pkg/raymarch"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full uncertainty analysis",
	Long: `Loads the uncertainty volume, fits scan planes, maps the volume onto a probe
sphere, builds the spherical texture and writes images plus report.yaml to the
output directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := applyRunFlags(cmd, cfg); err != nil {
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

		startTime := time.Now()
		report, err := analyzer.Process()
		if err != nil {
			log.Error("analysis", err, nil)
			return err
		}

		log.Info("analysis", "Analysis completed", map[string]interface{}{
			"seconds": time.Since(startTime).Seconds(),
			"outputs": len(report.Outputs),
		})
		for _, pl := range report.Planes {
			if pl.Error != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "%-6s plane: %s\n", pl.Fitter, pl.Error)
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%-6s plane: %s goodness=%.4f\n", pl.Fitter, pl.Plane, pl.Goodness)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Results written to %s\n", cfg.Output.Dir)
		return nil
	},
}

// applyRunFlags overrides configuration values with explicitly set flags
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	if flags.Changed("output") {
		cfg.Output.Dir, _ = flags.GetString("output")
	}
	if flags.Changed("source") {
		cfg.Volume.Source, _ = flags.GetString("source")
	}
	if flags.Changed("input") {
		cfg.Volume.InputDir, _ = flags.GetString("input")
		if !flags.Changed("source") {
			cfg.Volume.Source = config.SourceImages
		}
	}
	if flags.Changed("cores") {
		cfg.Processing.NumCores, _ = flags.GetInt("cores")
	}
	if flags.Changed("seed") {
		cfg.Processing.Seed, _ = flags.GetInt64("seed")
	}
	if flags.Changed("fraction") {
		cfg.Mapping.SamplingFraction, _ = flags.GetFloat64("fraction")
	}
	if flags.Changed("save-intermediary") {
		cfg.Output.SaveIntermediaryResults, _ = flags.GetBool("save-intermediary")
	}
	if flags.Changed("no-texture") {
		noTexture, _ := flags.GetBool("no-texture")
		cfg.Texture.Enabled = !noTexture
	}
	if flags.Changed("debug-registration") {
		cfg.Mapping.DebugRegistration, _ = flags.GetBool("debug-registration")
	}

	if flags.Changed("registration") {
		name, _ := flags.GetString("registration")
		reg, err := mapping.ParseRegistration(name)
		if err != nil {
			return err
		}
		cfg.Mapping.Registration = reg
	}
	if flags.Changed("accumulation") {
		name, _ := flags.GetString("accumulation")
		policy, err := raymarch.ParsePolicy(name)
		if err != nil {
			return err
		}
		cfg.Mapping.Accumulation = policy
	}
	if flags.Changed("scaling") {
		name, _ := flags.GetString("scaling")
		scaling, err := mapping.ParseScaling(name)
		if err != nil {
			return err
		}
		cfg.Mapping.Scaling = scaling
	}
	if flags.Changed("palette") {
		name, _ := flags.GetString("palette")
		palette, err := mapping.ParsePalette(name)
		if err != nil {
			return err
		}
		cfg.Mapping.Palette = palette
		cfg.Texture.Palette = palette
	}
	return nil
}

func init() {
	rootCmd.AddCommand(runCmd)

	addVolumeFlags(runCmd)
	runCmd.Flags().StringP("output", "o", "output", "Directory receiving images and report.yaml")
	runCmd.Flags().Int("cores", 0, "Number of goroutines marching rays (default: all CPUs)")
	runCmd.Flags().Float64("fraction", 100, "Sampling fraction of each ray in percent, (0, 100]")
	runCmd.Flags().String("registration", "spherical", "Registration: identity, bbox, world or spherical")
	runCmd.Flags().String("accumulation", "average", "Accumulation: average, minimum or maximum")
	runCmd.Flags().String("scaling", "linear", "Scaling: none, linear or equalize")
	runCmd.Flags().String("palette", "grayscale", "Palette: grayscale or redblack")
	runCmd.Flags().Bool("save-intermediary", false, "Save the middle volume slice along every axis")
	runCmd.Flags().Bool("no-texture", false, "Skip the spherical texture")
	runCmd.Flags().Bool("debug-registration", false, "Mark registered vertex positions in the saved slices")
}

// addVolumeFlags registers the flags selecting the uncertainty volume
func addVolumeFlags(cmd *cobra.Command) {
	cmd.Flags().String("source", config.SourceCube, "Volume source: cube, sphere or images")
	cmd.Flags().StringP("input", "i", "", "Directory of numbered PNG/JPEG slices (implies --source images)")
	cmd.Flags().Int64("seed", 1, "Seed of the random plane search (0: time based)")
}
