package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lotto-server/common/logger"
	"lotto-server/internal/bootstrap"
	"lotto-server/internal/config"
	"lotto-server/internal/service"

	"github.com/spf13/cobra"
)

// 退出码
const (
	exitOK   = 0
	exitFail = 1
	exitBusy = 3
)

// exitError 携带退出码
type exitError struct{ code int }

func (e exitError) Error() string { return fmt.Sprintf("exit %d", e.code) }

func main() {
	logger.InitLogger("drawctl")
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.ExecuteContext(ctx)
	var ee exitError
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &ee):
		return ee.code
	default:
		fmt.Fprintln(stderr, "error:", err)
		return exitFail
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "drawctl",
		Short:         "Run lottery draws and maintenance outside the scheduler",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(out), newCleanupCmd(out))
	return root
}

// loadApp 读取配置（与服务端相同的加载链）并构造组件
func loadApp(ctx context.Context) (*bootstrap.App, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}
	config.SetCurrent(cfg)
	if cfg.Server.LogLevel != "" {
		logger.SetLevel(cfg.Server.LogLevel)
	}
	return bootstrap.New(ctx, cfg)
}

func newRunCmd(out io.Writer) *cobra.Command {
	var window string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Settle one draw window (default: the current window)",
		Long: "Settle one draw window. Exit code 0 when settled or already settled, " +
			"3 when another process holds the window, 1 on failure.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			key, err := app.Engine.ParseTriggerWindow(window)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			r := service.Trigger(ctx, app.Engine, key, service.SourceCLI)
			if err := writeJSON(out, r); err != nil {
				return err
			}
			return exitFor(r)
		},
	}
	cmd.Flags().StringVar(&window, "window", "", "window key YYYY-MM-DD-HH-mm (UTC)")
	return cmd
}

// exitFor 将开奖结果映射为退出码
func exitFor(r service.TriggerResult) error {
	switch {
	case r.Success:
		return nil
	case r.InProgress:
		return exitError{code: exitBusy}
	default:
		return exitError{code: exitFail}
	}
}

func newCleanupCmd(out io.Writer) *cobra.Command {
	var (
		retentionHours int
		batch          int
		all            bool
	)
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete tickets older than the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			retention := app.Config.Draw.Retention()
			if retentionHours > 0 {
				retention = time.Duration(retentionHours) * time.Hour
			}
			if batch <= 0 {
				batch = app.Config.Draw.Cleanup.Batch
			}

			total := service.CleanupResult{}
			for {
				r, err := service.CleanupOldTickets(cmd.Context(), app.Store, time.Now(), retention, batch)
				if err != nil {
					return err
				}
				total.Deleted += r.Deleted
				total.Remaining, total.Cutoff = r.Remaining, r.Cutoff
				if !all || r.Deleted == 0 || r.Remaining == 0 {
					break
				}
			}
			return writeJSON(out, total)
		},
	}
	cmd.Flags().IntVar(&retentionHours, "retention-hours", 0, "keep tickets newer than this many hours (default from config)")
	cmd.Flags().IntVar(&batch, "batch", 0, "tickets deleted per batch, at most 500 (default from config)")
	cmd.Flags().BoolVar(&all, "all", false, "repeat batches until no old tickets remain")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
