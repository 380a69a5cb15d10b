package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/exp/slog"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/tonindexer/scanner/internal/config"
	"github.com/tonindexer/scanner/internal/indexer"
	"github.com/tonindexer/scanner/internal/persist"
)

var (
	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "Path to a YAML/JSON/TOML config file",
	}
	dbHostFlag = &cli.StringFlag{
		Name:  "db-host",
		Usage: "Postgres host address",
	}
	dbPortFlag = &cli.IntFlag{
		Name:  "db-port",
		Usage: "Postgres port",
	}
	dbUserFlag = &cli.StringFlag{
		Name:  "db-user",
		Usage: "Postgres user",
	}
	dbPasswordFlag = &cli.StringFlag{
		Name:  "db-password",
		Usage: "Postgres password",
	}
	dbNameFlag = &cli.StringFlag{
		Name:  "db-name",
		Usage: "Postgres database name",
	}
	maxBatchFlag = &cli.IntFlag{
		Name:  "max-batch",
		Usage: "Maximum number of bundles committed per batch",
	}
	submitRateFlag = &cli.IntFlag{
		Name:  "submit-rate",
		Usage: "Maximum bundles per second accepted for parsing",
	}
	upsertConcurrencyFlag = &cli.IntFlag{
		Name:  "upsert-concurrency",
		Usage: "Maximum concurrent domain snapshot upserts",
	}
	upsertRateFlag = &cli.IntFlag{
		Name:  "upsert-rate",
		Usage: "Maximum domain snapshot upserts per second",
	}
	logLevelFlag = &cli.StringFlag{
		Name:  "log-level",
		Usage: "Log level: trace, debug, info, warn, error, crit",
	}
	logFileFlag = &cli.StringFlag{
		Name:  "log-file",
		Usage: "Write logs to this file instead of stderr",
	}
)

var app = cli.NewApp()

func init() {
	app.Name = "tonindexer"
	app.Usage = "Indexes TON blocks into Postgres"
	app.Flags = []cli.Flag{
		configFlag, dbHostFlag, dbPortFlag, dbUserFlag, dbPasswordFlag, dbNameFlag,
		maxBatchFlag, submitRateFlag, upsertConcurrencyFlag, upsertRateFlag,
		logLevelFlag, logFileFlag,
	}
	app.Action = run
	app.Commands = []*cli.Command{
		{
			Name:   "stats",
			Usage:  "Print host CPU and memory usage and exit",
			Action: statsCmd,
		},
	}
}

func levelFromString(s string) slog.Level {
	switch s {
	case "trace":
		return log.LevelTrace
	case "debug":
		return log.LevelDebug
	case "warn":
		return log.LevelWarn
	case "error":
		return log.LevelError
	case "crit":
		return log.LevelCrit
	default:
		return log.LevelInfo
	}
}

func setupLogging(cfg *config.Config) {
	level := levelFromString(cfg.LogLevel)
	if cfg.LogFile != "" {
		rotated := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    100, // MB
			MaxBackups: 10,
			Compress:   true,
		}
		log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(rotated, level, false)))
		return
	}
	useColor := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	output := io.Writer(os.Stderr)
	if useColor {
		output = colorable.NewColorableStderr()
	}
	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(output, level, useColor)))
}

func run(c *cli.Context) error {
	cfg, err := config.Load(c)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	setupLogging(cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pool, err := persist.Open(ctx, persist.ConnParams{
		HostAddr: cfg.DBHost, Port: cfg.DBPort, User: cfg.DBUser, Password: cfg.DBPassword, DBName: cfg.DBName,
	})
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer pool.Close()

	mgr := indexer.NewManager(pool, cfg.MaxBatch, cfg.UpsertMaxConcurrent, cfg.UpsertRatePerSec,
		indexer.WithSubmitRate(cfg.SubmitRatePerSec))
	prometheus.MustRegister(mgr.Statistics().Collectors()...)

	if err := config.WatchBatchTunables(c, func(maxBatch, submitRate int) {
		log.Info("config changed, restart required to apply new batch tunables", "max_batch", maxBatch, "submit_rate", submitRate)
	}); err != nil {
		log.Warn("config hot-reload disabled", "err", err)
	}

	log.Info("tonindexer starting", "max_batch", cfg.MaxBatch, "submit_rate", cfg.SubmitRatePerSec)
	mgr.Run(ctx)
	mgr.Stop()
	log.Info("tonindexer stopped")
	return nil
}

func statsCmd(c *cli.Context) error {
	host, err := indexer.SampleHost()
	if err != nil {
		return err
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"metric", "value"})
	table.Append([]string{"cpu_percent", fmt.Sprintf("%.2f", host.CPUPercent)})
	table.Append([]string{"mem_used_percent", fmt.Sprintf("%.2f", host.MemUsedPct)})
	table.Render()
	return nil
}

func main() {
	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, log.LevelInfo, true)))

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
