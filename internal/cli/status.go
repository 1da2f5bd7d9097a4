package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/luohongchen1993/job-queue/internal/jobs"
)

var statusCmd = &cobra.Command{
	Use:   "status [job-id]",
	Short: "Show one job, or the whole queue oldest first",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			job, err := ctl.Get(args[0])
			if err != nil {
				return err
			}
			printJob(job)
			return nil
		}

		list, err := ctl.List()
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Println("Queue is empty.")
			return nil
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tEXIT\tCREATED\tCOMMAND")
		for _, j := range list {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				j.ID, j.Name, j.Status, exitCol(j),
				j.CreatedAt.Local().Format("2006-01-02 15:04:05"), j.Command)
		}
		return tw.Flush()
	},
}

func printJob(j jobs.Job) {
	fmt.Printf("ID:        %s\n", j.ID)
	fmt.Printf("Name:      %s\n", j.Name)
	fmt.Printf("Command:   %s\n", j.Command)
	fmt.Printf("Status:    %s\n", j.Status)
	fmt.Printf("Created:   %s\n", stamp(&j.CreatedAt))
	fmt.Printf("Started:   %s\n", stamp(j.StartedAt))
	fmt.Printf("Completed: %s\n", stamp(j.CompletedAt))
	fmt.Printf("Exit code: %s\n", exitCol(j))
	if j.PID > 0 {
		fmt.Printf("PID:       %d\n", j.PID)
	}
}

func stamp(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func exitCol(j jobs.Job) string {
	if j.ExitCode == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *j.ExitCode)
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
