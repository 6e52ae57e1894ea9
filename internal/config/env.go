package config

import (
	"time"

	"github.com/spf13/viper"
)

// FromViper builds a Config from a *viper.Viper already populated by
// cmd/rark (flags bound over an RARK_-prefixed environment, per the
// teacher's cmd/divinesense wiring). Unset keys fall back to Default().
func FromViper(v *viper.Viper) Config {
	c := Default()
	if v.IsSet("driver") {
		c.Driver = v.GetString("driver")
	}
	if v.IsSet("dsn") {
		c.DSN = v.GetString("dsn")
	}
	if v.IsSet("crash_policy") {
		c.CrashPolicy = CrashPolicy(v.GetString("crash_policy"))
	}
	if v.IsSet("tick_interval") {
		c.TickInterval = tickIntervalOrDefault(v.GetDuration("tick_interval"))
	}
	if v.IsSet("addr") {
		c.Addr = v.GetString("addr")
	}
	if v.IsSet("port") {
		c.Port = v.GetInt("port")
	}
	if v.IsSet("telegram_token") {
		c.TelegramToken = v.GetString("telegram_token")
	}
	if v.IsSet("telegram_chat_id") {
		c.TelegramChatID = v.GetInt64("telegram_chat_id")
	}
	return c
}

// tickIntervalOrDefault is a small helper exercised by cmd/rark's flag
// default wiring, so the flag's zero value never produces a disabled
// tick loop.
func tickIntervalOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return Default().TickInterval
	}
	return d
}
