package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var logsN int

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show the tail of the audit log",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		lines, err := ctl.Audit().Tail(logsN)
		if err != nil {
			return err
		}
		for _, line := range lines {
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	logsCmd.Flags().IntVarP(&logsN, "lines", "n", 20, "Number of lines to show")
	rootCmd.AddCommand(logsCmd)
}
