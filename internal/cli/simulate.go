package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

var simulateCapital float64

var simulateCmd = &cobra.Command{
	Use:   "simulate-cycle",
	Short: "Run one pipeline cycle against a built-in universe",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateCapital <= 0 {
			return errors.New("--capital must be greater than 0")
		}
		return getApp().SimulateCycle(cmd.Context(), simulateCapital)
	},
}

func init() {
	simulateCmd.Flags().Float64Var(&simulateCapital, "capital", 250000, "Account equity to size against")
}
