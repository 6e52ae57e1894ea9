// Command rark runs the Robot Agent Runtime Kernel: a durable,
// preemptive, single-active-task scheduler exposed over HTTP. Skills
// are registered by an embedding application before Start; this binary
// boots the kernel with whatever skills a build links in.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cidxb/rark/internal/config"
	"github.com/cidxb/rark/internal/kernel"
	"github.com/cidxb/rark/internal/metrics"
	"github.com/cidxb/rark/internal/notify/telegram"
	"github.com/cidxb/rark/internal/runner"
	"github.com/cidxb/rark/internal/store"
	"github.com/cidxb/rark/server"
)

var rootCmd = &cobra.Command{
	Use:   "rark",
	Short: "Robot Agent Runtime Kernel — durable, preemptive, single-active-task scheduler.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromViper(viper.GetViper())
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		driver, err := store.NewDriver(cfg.Driver, cfg.DSN)
		if err != nil {
			return fmt.Errorf("failed to construct store driver: %w", err)
		}

		reg := prometheus.NewRegistry()
		m := metrics.New(reg)

		k := kernel.New(cfg, driver, m)
		r := runner.New(k)

		if cfg.TelegramToken != "" {
			notifier, err := telegram.New(cfg.TelegramToken, cfg.TelegramChatID)
			if err != nil {
				slog.Error("telegram notifier disabled", "error", err)
			} else {
				k.SetFailObserver(notifier.NotifyFailure)
			}
		}

		srv := server.New(cfg, r, reg)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		if err := srv.Start(ctx); err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		printGreeting(cfg)

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, terminationSignals...)
		<-sig

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("driver", "sqlite", "persistence backend: sqlite or postgres")
	flags.String("dsn", "rark.db", "backend connection string (path for sqlite, libpq DSN for postgres)")
	flags.String("crash-policy", "resume", `ACTIVE-task recovery policy: "resume" or "fail"`)
	flags.Duration("tick-interval", 100*time.Millisecond, "idle poll interval before ticking the scheduler")
	flags.String("addr", "", "HTTP listen address, overrides --port when set")
	flags.Int("port", 8080, "HTTP listen port")
	flags.String("telegram-token", "", "Telegram bot token for TASK_FAIL alerts (optional)")
	flags.Int64("telegram-chat-id", 0, "Telegram chat ID to notify (required with --telegram-token)")

	for _, name := range []string{"driver", "dsn", "crash-policy", "tick-interval", "addr", "port", "telegram-token", "telegram-chat-id"} {
		if err := viper.BindPFlag(envKey(name), flags.Lookup(name)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("rark")
	viper.AutomaticEnv()
}

// envKey maps a flag name ("crash-policy") to the viper/env key
// ("crash_policy") cfg.FromViper reads.
func envKey(flagName string) string {
	out := make([]byte, 0, len(flagName))
	for _, r := range flagName {
		if r == '-' {
			out = append(out, '_')
			continue
		}
		out = append(out, byte(r))
	}
	return string(out)
}

func printGreeting(cfg config.Config) {
	fmt.Println("RARK started")
	fmt.Printf("driver: %s\n", cfg.Driver)
	fmt.Printf("crash policy: %s\n", cfg.CrashPolicy)
	addr := cfg.Addr
	if addr == "" {
		addr = fmt.Sprintf(":%d", cfg.Port)
	}
	fmt.Printf("listening on %s\n", addr)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("rark exited with error", "error", err)
		os.Exit(1)
	}
}
