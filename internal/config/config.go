// Package config is the kernel's runtime configuration, grounded on
// the teacher's internal/profile package: a plain struct populated
// from the environment, with a Validate step run once at startup.
package config

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// CrashPolicy controls how an ACTIVE task found at recovery time is
// treated (spec §4.5.3).
type CrashPolicy string

const (
	// CrashPolicyResume re-queues a recovered ACTIVE task as PAUSED so
	// its skill resumes from its last checkpoint. The default: suited
	// to idempotent skills or skills that implement checkpointing.
	CrashPolicyResume CrashPolicy = "resume"
	// CrashPolicyFail marks a recovered ACTIVE task FAILED outright, no
	// automatic retry. Suited to skills with physical side effects that
	// cannot be safely re-run without operator verification.
	CrashPolicyFail CrashPolicy = "fail"
)

// Config is the kernel's full runtime configuration.
type Config struct {
	// Driver selects the persistence backend: "sqlite" (default) or
	// "postgres".
	Driver string
	// DSN is the backend-specific connection string: a filesystem path
	// or ":memory:" for sqlite, a libpq connection string for postgres.
	DSN string
	// CrashPolicy governs ACTIVE-task recovery on restart.
	CrashPolicy CrashPolicy
	// TickInterval is how long RunLoop waits for an event before
	// falling back to tick() (spec §4.5.1 default: 100ms).
	TickInterval time.Duration
	// Addr is the HTTP listen address, e.g. ":8080".
	Addr string
	// Port is bound alongside Addr for operators who configure the two
	// separately (matching the teacher's Addr/Port pair); it is used only
	// when Addr is empty.
	Port int
	// TelegramToken, if set, enables internal/notify/telegram operator
	// alerts on TASK_FAIL. Empty disables the notifier.
	TelegramToken string
	// TelegramChatID is the chat the notifier posts to. Required when
	// TelegramToken is set.
	TelegramChatID int64
}

// Default returns the baseline configuration before environment
// overrides are applied (mirrors the teacher's zero-value-plus-FromEnv
// pattern: callers start from a value with sane defaults already set).
func Default() Config {
	return Config{
		Driver:       "sqlite",
		DSN:          "rark.db",
		CrashPolicy:  CrashPolicyResume,
		TickInterval: 100 * time.Millisecond,
		Addr:         "",
		Port:         8080,
	}
}

// Validate checks invariants FromViper/flag binding cannot enforce on
// their own, mirroring Profile.Validate's role in the teacher.
func (c *Config) Validate() error {
	switch c.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unknown driver %q", c.Driver)
	}
	switch c.CrashPolicy {
	case CrashPolicyResume, CrashPolicyFail:
	default:
		return fmt.Errorf("config: unknown crash_policy %q", c.CrashPolicy)
	}
	if c.Driver == "postgres" && c.DSN == "" {
		return errors.New("config: postgres driver requires a dsn")
	}
	if c.TickInterval <= 0 {
		return errors.New("config: tick_interval must be positive")
	}
	if c.TelegramToken != "" && c.TelegramChatID == 0 {
		return errors.New("config: telegram_token requires telegram_chat_id")
	}
	return nil
}
