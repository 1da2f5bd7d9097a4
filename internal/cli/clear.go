package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Discard all completed, failed, and stopped jobs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := ctl.Clear()
		if err != nil {
			return err
		}
		fmt.Printf("Cleared %d finished jobs\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(clearCmd)
}
