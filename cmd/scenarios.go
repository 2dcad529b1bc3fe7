package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/robocharge/qa/scenarios"
)

var scenariosCmd = &cobra.Command{
	Use:   "scenarios",
	Short: "List the preset scenarios",
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range scenarios.Names() {
			sc, err := scenarios.Get(name)
			if err != nil {
				continue
			}
			fmt.Printf("%-22s %s\n", name, sc.Description)
		}
	},
}

func init() {
	rootCmd.AddCommand(scenariosCmd)
}
