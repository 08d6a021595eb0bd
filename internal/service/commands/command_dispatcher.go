package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/guardops/internal/domain/models"
)

// ErrInvalidArguments indicates the command payload could not be parsed.
var ErrInvalidArguments = errors.New("invalid command arguments")

// ErrUnsupportedCommand indicates we do not yet support the requested command.
var ErrUnsupportedCommand = errors.New("unsupported command")

const helpText = `Comandos disponíveis:
/escala [aaaa-mm-dd|amanha] - turnos do dia
/caixa - entradas, saídas e saldo do mês
/folha - folha de pagamento do mês
/ajuda - esta mensagem`

// ReportingAdapter defines the reporting functions required by the dispatcher.
type ReportingAdapter interface {
	DailySchedule(day time.Time) string
	CashSummary() string
	PayrollSummary() string
}

// Dispatcher executes parsed commands and returns the reply text.
type Dispatcher interface {
	HandleCommand(ctx context.Context, cmd models.Command, sender string) (string, error)
}

// Service implements the Dispatcher interface.
type Service struct {
	reporting ReportingAdapter
	location  *time.Location
	logger    *zap.Logger
	now       func() time.Time
}

// NewService constructs a command dispatcher. Relative dates resolve in loc.
func NewService(reporting ReportingAdapter, loc *time.Location, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		reporting: reporting,
		location:  loc,
		logger:    logger,
		now:       time.Now,
	}
}

// HandleCommand runs cmd and returns the text to send back.
func (s *Service) HandleCommand(_ context.Context, cmd models.Command, sender string) (string, error) {
	s.logger.Debug("dispatching command", zap.String("command", string(cmd.Type)), zap.String("sender", sender), zap.Any("args", cmd.Args))

	switch cmd.Type {
	case models.CommandSchedule:
		day, err := s.resolveDay(cmd.Args)
		if err != nil {
			return "", err
		}
		return s.reporting.DailySchedule(day), nil
	case models.CommandCash:
		return s.reporting.CashSummary(), nil
	case models.CommandPayroll:
		return s.reporting.PayrollSummary(), nil
	case models.CommandHelp:
		return helpText, nil
	default:
		return "", ErrUnsupportedCommand
	}
}

// HelpText is the reply sent for unknown commands.
func HelpText() string { return helpText }

func (s *Service) resolveDay(args []string) (time.Time, error) {
	today := models.LocalDay(s.now(), s.location)
	if len(args) == 0 {
		return today, nil
	}

	switch args[0] {
	case "hoje":
		return today, nil
	case "amanha", "amanhã":
		return today.AddDate(0, 0, 1), nil
	case "ontem":
		return today.AddDate(0, 0, -1), nil
	}

	day, err := models.ParseDate(args[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: expected yyyy-mm-dd, got %q", ErrInvalidArguments, args[0])
	}
	return day, nil
}
