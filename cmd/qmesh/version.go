package main

import (
	"fmt"

	"github.com/danieleschmidt/quantum-mesh-planner/internal/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("qmesh version %s\n", version.Get())
	},
}
