// Package config layers indexer configuration: CLI flags override
// environment variables, which override an optional config file, which
// overrides built-in defaults.
package config

import (
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
	"github.com/urfave/cli/v2"
)

// Config is every tunable the indexer reads at startup. Fields mirror the
// urfave/cli flags cmd/tonindexer defines.
type Config struct {
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string

	MaxBatch            int
	SubmitRatePerSec    int
	UpsertMaxConcurrent int64
	UpsertRatePerSec    int

	LogLevel string
	LogFile  string
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"db.host":               "127.0.0.1",
		"db.port":               5432,
		"db.user":               "",
		"db.password":           "",
		"db.name":               "ton_index",
		"batch.max_size":        4096,
		"batch.submit_rate":     2000,
		"upsert.max_concurrent": 16,
		"upsert.rate":           500,
		"log.level":             "info",
		"log.file":              "",
	}
}

// Load builds a Config from c's flags, falling back to environment variables
// (prefixed TONINDEXER_, nested keys joined by underscore) and an optional
// --config file, in that order: the precedence viper.BindPFlag gives a
// cobra command, reimplemented against urfave/cli flags.
func Load(c *cli.Context) (*Config, error) {
	v := viper.New()
	for key, val := range defaults() {
		v.SetDefault(key, val)
	}
	v.SetEnvPrefix("TONINDEXER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := c.String("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	bindStringFlag(v, c, "db.host", "db-host")
	bindIntFlag(v, c, "db.port", "db-port")
	bindStringFlag(v, c, "db.user", "db-user")
	bindStringFlag(v, c, "db.password", "db-password")
	bindStringFlag(v, c, "db.name", "db-name")
	bindIntFlag(v, c, "batch.max_size", "max-batch")
	bindIntFlag(v, c, "batch.submit_rate", "submit-rate")
	bindIntFlag(v, c, "upsert.max_concurrent", "upsert-concurrency")
	bindIntFlag(v, c, "upsert.rate", "upsert-rate")
	bindStringFlag(v, c, "log.level", "log-level")
	bindStringFlag(v, c, "log.file", "log-file")

	return &Config{
		DBHost:              v.GetString("db.host"),
		DBPort:              v.GetInt("db.port"),
		DBUser:              v.GetString("db.user"),
		DBPassword:          v.GetString("db.password"),
		DBName:              v.GetString("db.name"),
		MaxBatch:            v.GetInt("batch.max_size"),
		SubmitRatePerSec:    v.GetInt("batch.submit_rate"),
		UpsertMaxConcurrent: cast.ToInt64(v.Get("upsert.max_concurrent")),
		UpsertRatePerSec:    v.GetInt("upsert.rate"),
		LogLevel:            v.GetString("log.level"),
		LogFile:             v.GetString("log.file"),
	}, nil
}

// bindStringFlag/bindIntFlag override key in v when flagName was explicitly
// set on c, giving flags precedence over env/file/defaults without requiring
// viper's pflag-specific bind helpers (urfave/cli flags aren't pflag.Flag).
func bindStringFlag(v *viper.Viper, c *cli.Context, key, flagName string) {
	if c.IsSet(flagName) {
		v.Set(key, c.String(flagName))
	}
}

func bindIntFlag(v *viper.Viper, c *cli.Context, key, flagName string) {
	if c.IsSet(flagName) {
		v.Set(key, c.Int(flagName))
	}
}

// WatchBatchTunables re-reads max-batch/submit-rate from the config file
// whenever it changes on disk and invokes onChange with the updated values.
// A no-op when no config file is in use.
func WatchBatchTunables(c *cli.Context, onChange func(maxBatch, submitRate int)) error {
	path := c.String("config")
	if path == "" {
		return nil
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return err
	}
	v.OnConfigChange(func(fsnotify.Event) {
		onChange(v.GetInt("batch.max_size"), v.GetInt("batch.submit_rate"))
	})
	v.WatchConfig()
	return nil
}
