package main

import (
	"fmt"
	"os"

	"github.com/danieleschmidt/quantum-mesh-planner/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show effective configuration",
	Long: `Display the effective qmesh configuration.

Configuration is stored at ~/.config/qmesh/config.yaml
Project-specific overrides can be placed in .qmesh.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		displayConfig(cfg)
	},
}

func displayConfig(cfg *config.Config) {
	fmt.Printf("evolution.interval: %s\n", cfg.Evolution.Interval)
	fmt.Printf("evolution.seed: %d\n", cfg.Evolution.Seed)
	fmt.Printf("planner.annealing_enabled: %t\n", cfg.Planner.AnnealingEnabled)
	fmt.Printf("planner.interference_enabled: %t\n", cfg.Planner.InterferenceEnabled)
	fmt.Printf("annealing.initial_temperature: %.2f\n", cfg.Annealing.InitialTemperature)
	fmt.Printf("annealing.final_temperature: %.2f\n", cfg.Annealing.FinalTemperature)
	fmt.Printf("annealing.cooling_schedule: %s\n", cfg.Annealing.CoolingSchedule)
	fmt.Printf("annealing.max_iterations: %d\n", cfg.Annealing.MaxIterations)
	fmt.Printf("annealing.parallel_chains: %d\n", cfg.Annealing.ParallelChains)
	fmt.Printf("annealing.tunneling_bonus: %.2f\n", cfg.Annealing.TunnelingBonus)
	fmt.Printf("perf.pool_size: %d\n", cfg.Perf.PoolSize)
	fmt.Printf("perf.cache_size: %d\n", cfg.Perf.CacheSize)
	fmt.Printf("perf.memory_threshold: %.2f\n", cfg.Perf.MemoryThreshold)
	fmt.Printf("events.buffer_size: %d\n", cfg.Events.BufferSize)
	fmt.Printf("\nUser config: %s\n", config.GetUserConfigPath())
}
