package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/luohongchen1993/job-queue/internal/queue"
)

var stopCmd = &cobra.Command{
	Use:   "stop <job-id>",
	Short: "Terminate a running job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := ctl.Stop(args[0]); err != nil {
			if errors.Is(err, queue.ErrNotFound) || errors.Is(err, queue.ErrInvalidState) {
				return fmt.Errorf("could not stop job %s: %v", args[0], err)
			}
			return err
		}
		fmt.Printf("Stopped job %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(stopCmd)
}
