package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/vladislavdragonenkov/helpdesk/internal/domain"
	"github.com/vladislavdragonenkov/helpdesk/internal/health"
	"github.com/vladislavdragonenkov/helpdesk/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/helpdesk/internal/service/orderdetail"
	"github.com/vladislavdragonenkov/helpdesk/internal/service/orderlist"
	"github.com/vladislavdragonenkov/helpdesk/internal/service/session"
)

// CLI выполняет команды клиента над собранными зависимостями.
type CLI struct {
	deps      *Dependencies
	cfg       Config
	in        io.Reader
	errOut    io.Writer
	presenter *Presenter
	logger    *log.Entry
}

// NewCLI создаёт исполнитель команд. in может быть nil: тогда watch не
// читает команды переключения фильтра.
func NewCLI(deps *Dependencies, cfg Config, in io.Reader, out, errOut io.Writer) *CLI {
	logger := deps.Logger
	if logger == nil {
		logger = log.WithField("component", "cli")
	}
	return &CLI{
		deps:      deps,
		cfg:       cfg,
		in:        in,
		errOut:    errOut,
		presenter: NewPresenter(out),
		logger:    logger,
	}
}

func (c *CLI) flagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(c.errOut)
	return fs
}

// Watch показывает живой список. Во время просмотра строки ввода
// "open", "closed", "retry" и "quit" переключают фильтр, повторяют
// подписку и завершают просмотр.
func (c *CLI) Watch(ctx context.Context, args []string) error {
	fs := c.flagSet("watch")
	rawStatus := fs.StringP("status", "s", string(domain.OrderStatusOpen), "фильтр: open или closed")
	once := fs.Bool("once", false, "вывести первый загруженный список и выйти")
	if err := fs.Parse(args); err != nil {
		return err
	}
	status, err := domain.ParseOrderStatus(*rawStatus)
	if err != nil {
		return err
	}

	ctrl := orderlist.New(c.deps.Orders, orderlist.WithLogger(c.logger.WithField("layer", "order-list")))
	defer ctrl.Dispose()

	if err := ctrl.SelectFilter(ctx, status); err != nil {
		return err
	}

	done := make(chan struct{})
	defer close(done)
	var input <-chan string
	if c.in != nil && !*once {
		input = readLines(c.in, done)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-ctrl.Changed():
			if !ok {
				return nil
			}
			st := ctrl.State()
			c.presenter.List(st)
			if *once && st.Err != nil {
				return st.Err
			}
			if *once && !st.Loading {
				return nil
			}
		case line, ok := <-input:
			if !ok {
				input = nil
				continue
			}
			quit, err := c.handleWatchInput(ctx, ctrl, line)
			if err != nil {
				c.presenter.Message("! %s", domain.UserMessage(err))
			}
			if quit {
				return nil
			}
		}
	}
}

func (c *CLI) handleWatchInput(ctx context.Context, ctrl *orderlist.Controller, line string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "":
		return false, nil
	case "q", "quit", "exit":
		return true, nil
	case "r", "retry":
		return false, ctrl.Retry(ctx)
	case "o", "open":
		return false, ctrl.SelectFilter(ctx, domain.OrderStatusOpen)
	case "c", "closed":
		return false, ctrl.SelectFilter(ctx, domain.OrderStatusClosed)
	default:
		return false, fmt.Errorf("%w: unknown command %q", domain.ErrValidation, line)
	}
}

func readLines(r io.Reader, done <-chan struct{}) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
	}()
	return lines
}

// Show печатает одну заявку.
func (c *CLI) Show(ctx context.Context, args []string) error {
	fs := c.flagSet("show")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: show <id>", ErrUsage)
	}

	ctrl := orderdetail.New(c.deps.Orders, orderdetail.WithLogger(c.logger.WithField("layer", "order-detail")))
	defer ctrl.Dispose()

	err := ctrl.Load(ctx, fs.Arg(0))
	c.presenter.Detail(ctrl.State())
	return err
}

// Close закрывает заявку с решением из --solution или оставшихся аргументов.
func (c *CLI) Close(ctx context.Context, args []string) error {
	fs := c.flagSet("close")
	solution := fs.StringP("solution", "m", "", "описание решения")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("%w: close <id> --solution <text>", ErrUsage)
	}
	text := *solution
	if text == "" && fs.NArg() > 1 {
		text = strings.Join(fs.Args()[1:], " ")
	}

	ctrl := orderdetail.New(c.deps.Orders,
		orderdetail.WithLogger(c.logger.WithField("layer", "order-detail")),
		orderdetail.WithOnClosed(func(id string) {
			c.presenter.Message("Solicitação %s encerrada", id)
		}),
	)
	defer ctrl.Dispose()

	if err := ctrl.Load(ctx, fs.Arg(0)); err != nil {
		c.presenter.Detail(ctrl.State())
		return err
	}
	if err := ctrl.SubmitClose(ctx, text); err != nil {
		c.presenter.Message("! %s", domain.UserMessage(err))
		return err
	}
	return nil
}

// New регистрирует заявку.
func (c *CLI) New(ctx context.Context, args []string) error {
	fs := c.flagSet("new")
	patrimony := fs.StringP("patrimony", "p", "", "número do patrimônio")
	description := fs.StringP("description", "d", "", "descrição do problema")
	if err := fs.Parse(args); err != nil {
		return err
	}

	id, err := c.deps.Orders.Create(ctx, domain.NewOrder{Patrimony: *patrimony, Description: *description})
	if err != nil {
		msg := domain.UserMessage(err)
		if errors.Is(err, domain.ErrRemoteWrite) {
			msg = "Não foi possível registrar a solicitação"
		}
		c.presenter.Message("! %s", msg)
		return err
	}
	c.presenter.Message("Solicitação registrada: %s", id)
	return nil
}

// Logout завершает сессию через внешний сервис.
func (c *CLI) Logout(ctx context.Context, _ []string) error {
	ctrl := session.New(c.deps.Sessions, c.logger.WithField("layer", "session"))
	msg, err := ctrl.SignOut(ctx)
	if err != nil {
		c.presenter.Message("! %s", msg)
		return err
	}
	c.presenter.Message("Sessão encerrada")
	return nil
}

// Events читает топик событий заявок до отмены ctx. Сообщения, которые не
// удалось обработать, уходят в DLQ, если producer настроен.
func (c *CLI) Events(ctx context.Context, args []string) error {
	fs := c.flagSet("events")
	groupID := fs.String("group", c.cfg.KafkaGroupID, "consumer group")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if len(c.cfg.KafkaBrokers) == 0 {
		return fmt.Errorf("%w: events requires HELPDESK_KAFKA_BROKERS", ErrUsage)
	}

	consumer, err := kafka.NewConsumer(c.cfg.KafkaBrokers, *groupID, c.printEvent,
		kafka.WithDeadLetterProducer(c.deps.Producer),
		kafka.WithConsumerLogger(c.logger.WithField("layer", "kafka-consumer")),
	)
	if err != nil {
		return err
	}
	if err := consumer.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return consumer.Stop()
}

func (c *CLI) printEvent(_ context.Context, event kafka.OrderEvent) error {
	if event.OrderID == "" {
		return fmt.Errorf("%w: event without order id", domain.ErrMalformedRecord)
	}
	c.presenter.Message("%s  %-12s  %s  %s",
		event.Timestamp.UTC().Format(time.RFC3339), event.EventType, event.OrderID, event.Status)
	return nil
}

// Health печатает результат проверок зависимостей.
func (c *CLI) Health(ctx context.Context, _ []string) error {
	report := c.deps.Health.Evaluate(ctx)
	for _, name := range c.deps.Health.Names() {
		check := report.Checks[name]
		line := fmt.Sprintf("%-10s %s", name, check.Status)
		if check.Message != "" {
			line += "  " + check.Message
		}
		c.presenter.Message("%s", line)
	}
	c.presenter.Message("status: %s", report.Status)
	if report.Status == health.StatusUnhealthy {
		return fmt.Errorf("dependencies are %s", report.Status)
	}
	return nil
}
