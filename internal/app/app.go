// Package app собирает зависимости клиента и выполняет команды CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/helpdesk/internal/version"
)

// ErrUsage: неверные аргументы командной строки.
var ErrUsage = errors.New("usage")

const usage = `helpdesk <command> [flags]

commands:
  watch   [--status open|closed] [--once]   живой список заявок
  show    <id>                              заявка целиком
  close   <id> --solution <text>            закрыть заявку
  new     --patrimony <n> --description <t> зарегистрировать заявку
  logout                                    завершить сессию
  events  [--group <id>]                    читать события заявок из Kafka
  health                                    проверить зависимости
  version                                   версия сборки
`

// IO: потоки ввода-вывода команд.
type IO struct {
	In     io.Reader
	Out    io.Writer
	ErrOut io.Writer
}

// Run выполняет команду args[0] с конфигурацией cfg.
func Run(ctx context.Context, cfg Config, args []string, streams IO) error {
	if streams.Out == nil {
		streams.Out = io.Discard
	}
	if streams.ErrOut == nil {
		streams.ErrOut = io.Discard
	}
	if len(args) == 0 {
		_, _ = io.WriteString(streams.ErrOut, usage)
		return fmt.Errorf("%w: command is required", ErrUsage)
	}

	name, rest := args[0], args[1:]
	switch name {
	case "help", "-h", "--help":
		_, _ = io.WriteString(streams.Out, usage)
		return nil
	case "version", "--version":
		_, _ = fmt.Fprintln(streams.Out, version.String())
		return nil
	}

	cli := map[string]func(*CLI, context.Context, []string) error{
		"watch":  (*CLI).Watch,
		"show":   (*CLI).Show,
		"close":  (*CLI).Close,
		"new":    (*CLI).New,
		"logout": (*CLI).Logout,
		"events": (*CLI).Events,
		"health": (*CLI).Health,
	}
	command, ok := cli[name]
	if !ok {
		_, _ = io.WriteString(streams.ErrOut, usage)
		return fmt.Errorf("%w: unknown command %q", ErrUsage, name)
	}

	logger := log.WithFields(log.Fields{"component": "app", "command": name}).WithFields(version.Fields())
	deps, err := NewDependencies(ctx, cfg, logger, streams.ErrOut)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := deps.Close(context.Background()); closeErr != nil {
			logger.WithError(closeErr).Warn("failed to release dependencies")
		}
	}()

	if cfg.MetricsAddr != "" {
		metricsCtx, stopMetrics := context.WithCancel(ctx)
		defer stopMetrics()
		startMetricsServer(metricsCtx, cfg.MetricsAddr, logger, deps.Health)
	}

	return command(NewCLI(deps, cfg, streams.In, streams.Out, streams.ErrOut), ctx, rest)
}
