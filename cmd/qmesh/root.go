package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "qmesh",
	Short: "Quantum-inspired task planner for agent meshes",
	Long: `qmesh plans task execution across an agent mesh using
quantum-inspired heuristics.

Tasks carry a superposition over their lifecycle states; wave
interference between related tasks adjusts priorities; and a simulated
annealing optimizer with tunneling search produces agent assignments.

Core capabilities:
- Superposition tracking with entanglement and measurement collapse
- Wave interference between spatially related tasks
- Parallel-chain simulated annealing with quantum-inspired moves
- A single evolution loop driving decoherence and execution`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
