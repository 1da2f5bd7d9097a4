package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/luohongchen1993/job-queue/internal/config"
	"github.com/luohongchen1993/job-queue/internal/queue"
)

var (
	dataDir string
	cfg     config.Config
	ctl     *queue.Controller
)

var rootCmd = &cobra.Command{
	Use:           "jobq",
	Short:         "A persistent sequential job runner: enqueue shell commands, run them one at a time.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		var err error
		cfg, err = config.Load(dataDir)
		if err != nil {
			return err
		}
		ctl, err = queue.NewController(cfg)
		return err
	},
}

func Execute() {
	setupLogger("text", slog.LevelWarn)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// setupLogger configures slog; the daemon commands switch to json at info.
func setupLogger(format string, level slog.Level) {
	if v := os.Getenv("JOBQ_LOG_LEVEL"); v != "" {
		_ = level.UnmarshalText([]byte(v))
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Data directory (default $HOME/.jobq, or JOBQ_DATA_DIR)")
}
