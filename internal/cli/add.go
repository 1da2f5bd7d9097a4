package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var addName string

var addCmd = &cobra.Command{
	Use:   "add [flags] -- <command...>",
	Short: "Enqueue a shell command as a new job",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		job, err := ctl.Add(strings.Join(args, " "), addName)
		if err != nil {
			return err
		}
		fmt.Printf("Added job %s: %s\n", job.ID, job.Name)
		return nil
	},
}

func init() {
	addCmd.Flags().StringVar(&addName, "name", "", "Human-readable job name (default \"Job <id>\")")
	rootCmd.AddCommand(addCmd)
}
