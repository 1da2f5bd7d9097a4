package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/luohongchen1993/job-queue/internal/queue"
)

var removeCmd = &cobra.Command{
	Use:   "remove <job-id>",
	Short: "Remove a pending job from the queue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := ctl.Remove(args[0]); err != nil {
			if errors.Is(err, queue.ErrNotFound) || errors.Is(err, queue.ErrInvalidState) {
				return fmt.Errorf("could not remove job %s: %v", args[0], err)
			}
			return err
		}
		fmt.Printf("Removed job %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(removeCmd)
}
