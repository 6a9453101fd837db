package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/vladislavdragonenkov/helpdesk/internal/app"
)

// setupLogger настраивает формат и уровень логирования. Логи идут в stderr,
// чтобы не смешиваться с выводом команд.
func setupLogger(level string, out io.Writer) error {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetOutput(out)
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("parse log level %q: %w", level, err)
	}
	log.SetLevel(lvl)
	return nil
}

// options: глобальные флаги перед именем команды.
type options struct {
	envFile      string
	logLevel     string
	storage      string
	postgresDSN  string
	metricsAddr  string
	traceStdout  bool
	guardedClose bool
}

// parseArgs разбирает глобальные флаги. Всё, начиная с имени команды,
// возвращается без изменений.
func parseArgs(args []string) (options, []string, error) {
	var opts options
	fs := pflag.NewFlagSet("helpdesk", pflag.ContinueOnError)
	fs.SetInterspersed(false)
	fs.SetOutput(io.Discard)
	fs.StringVar(&opts.envFile, "env-file", ".env", "файл с переменными окружения HELPDESK_*")
	fs.StringVar(&opts.logLevel, "log-level", "", "уровень логирования (по умолчанию HELPDESK_LOG_LEVEL)")
	fs.StringVar(&opts.storage, "storage", "", "драйвер хранилища: memory или postgres")
	fs.StringVar(&opts.postgresDSN, "postgres-dsn", "", "DSN PostgreSQL")
	fs.StringVar(&opts.metricsAddr, "metrics-addr", "", "адрес HTTP-сервера метрик")
	fs.BoolVar(&opts.traceStdout, "trace", false, "печатать спаны в stderr")
	fs.BoolVar(&opts.guardedClose, "guarded-close", false, "закрывать заявку только если она ещё открыта")
	if err := fs.Parse(args); err != nil {
		return options{}, nil, err
	}
	return opts, fs.Args(), nil
}

func (o options) apply(cfg app.Config) app.Config {
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if o.storage != "" {
		cfg.StorageDriver = o.storage
	}
	if o.postgresDSN != "" {
		cfg.PostgresDSN = o.postgresDSN
	}
	if o.metricsAddr != "" {
		cfg.MetricsAddr = o.metricsAddr
	}
	if o.traceStdout {
		cfg.TraceStdout = true
	}
	if o.guardedClose {
		cfg.GuardedClose = true
	}
	return cfg
}

func loadConfig(args []string) (app.Config, []string, error) {
	opts, rest, err := parseArgs(args)
	if err != nil {
		return app.Config{}, nil, err
	}
	if opts.envFile != "" {
		// Отсутствующий файл не ошибка: переменные могут прийти из окружения.
		if err := godotenv.Load(opts.envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return app.Config{}, nil, fmt.Errorf("load %s: %w", opts.envFile, err)
		}
	}
	cfg, err := app.ConfigFromEnv()
	if err != nil {
		return app.Config{}, nil, err
	}
	return opts.apply(cfg), rest, nil
}

func main() {
	cfg, args, err := loadConfig(os.Args[1:])
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := setupLogger(cfg.LogLevel, os.Stderr); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = app.Run(ctx, cfg, args, app.IO{In: os.Stdin, Out: os.Stdout, ErrOut: os.Stderr})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Debug("command failed")
		stop()
		if errors.Is(err, app.ErrUsage) {
			_, _ = fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		os.Exit(1)
	}
}
