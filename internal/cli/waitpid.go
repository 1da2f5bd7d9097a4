package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/luohongchen1993/job-queue/internal/pidwait"
)

var waitpidLogDir string

var waitpidCmd = &cobra.Command{
	Use:   "waitpid <pid> -- <command...>",
	Short: "Block until an external process exits, then run a follow-up command",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		pid, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid pid %q: %w", args[0], err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		logPath, err := pidwait.Run(ctx, pidwait.Options{
			PID:     pid,
			Command: strings.Join(args[1:], " "),
			LogDir:  waitpidLogDir,
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		fmt.Printf("Done. Log: %s\n", logPath)
		return nil
	},
}

func init() {
	waitpidCmd.Flags().StringVar(&waitpidLogDir, "log-dir", ".", "Directory for the waiter's log file")
	rootCmd.AddCommand(waitpidCmd)
}
