package cli

import (
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/luohongchen1993/job-queue/internal/worker"
)

var (
	workerInterval    time.Duration
	workerMetricsAddr string
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the worker loop, executing pending jobs one at a time until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		setupLogger("json", slog.LevelInfo)
		if workerInterval > 0 {
			cfg.PollInterval = workerInterval
		}

		if workerMetricsAddr != "" {
			mux := http.NewServeMux()
			mux.Handle("GET /metrics", promhttp.Handler())
			go func() {
				slog.Info("metrics listening", "addr", workerMetricsAddr)
				if err := http.ListenAndServe(workerMetricsAddr, mux); err != nil {
					slog.Error("metrics server error", "error", err)
				}
			}()
		}

		fmt.Println("Worker started. Ctrl+C to stop.")
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return worker.New(cfg, ctl).Run(ctx)
	},
}

func init() {
	workerCmd.Flags().DurationVar(&workerInterval, "interval", 0, "Poll interval when the queue is idle (default 1s)")
	workerCmd.Flags().StringVar(&workerMetricsAddr, "metrics-addr", "", "Optional address to serve Prometheus metrics on")
	rootCmd.AddCommand(workerCmd)
}
