package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/guardops/internal/config"
	"github.com/mamadbah2/guardops/internal/domain/models"
	"github.com/mamadbah2/guardops/internal/service/commands"
	client "github.com/mamadbah2/guardops/pkg/clients/whatsapp"
)

// MessagingService describes the operations the HTTP layer can perform.
type MessagingService interface {
	VerifyWebhookToken(mode, verifyToken, challenge string) (string, error)
	HandleWebhook(ctx context.Context, payload models.WebhookPayload) error
	SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error
}

const sendTimeout = 10 * time.Second

var (
	unknownReply = models.AutomationReply{
		Title:   "Comando não reconhecido",
		Message: commands.HelpText(),
	}
	deniedReply = models.AutomationReply{
		Title:   "Acesso negado",
		Message: "Este número não está autorizado a consultar a escala ou o caixa.",
	}
)

// MetaWhatsAppService is the production implementation backed by WhatsApp Cloud API.
type MetaWhatsAppService struct {
	cfg         config.WhatsAppConfig
	client      client.Client
	dispatcher  commands.Dispatcher
	supervisors map[string]bool
	logger      *zap.Logger
}

// NewMetaWhatsAppService wires a new service instance.
func NewMetaWhatsAppService(cfg config.WhatsAppConfig, api client.Client, dispatcher commands.Dispatcher, logger *zap.Logger) *MetaWhatsAppService {
	svc := &MetaWhatsAppService{
		cfg:         cfg,
		client:      api,
		dispatcher:  dispatcher,
		supervisors: make(map[string]bool, len(cfg.Supervisors)),
		logger:      logger,
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	for _, number := range cfg.Supervisors {
		svc.supervisors[client.Recipient(number)] = true
	}
	return svc
}

// SetDispatcher attaches the command dispatcher used for supervisor queries.
func (s *MetaWhatsAppService) SetDispatcher(dispatcher commands.Dispatcher) {
	s.dispatcher = dispatcher
}

// VerifyWebhookToken validates the callback verification token.
func (s *MetaWhatsAppService) VerifyWebhookToken(mode, verifyToken, challenge string) (string, error) {
	if mode == "" || verifyToken == "" {
		return "", errors.New("missing mode or verify token")
	}

	if !strings.EqualFold(mode, "subscribe") {
		return "", fmt.Errorf("unsupported hub.mode %s", mode)
	}

	if verifyToken != s.cfg.VerifyToken {
		return "", errors.New("invalid verify token")
	}

	return challenge, nil
}

// HandleWebhook processes inbound webhook payloads.
func (s *MetaWhatsAppService) HandleWebhook(ctx context.Context, payload models.WebhookPayload) error {
	var firstErr error

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				if err := s.handleInboundMessage(ctx, msg); err != nil {
					s.logger.Error("failed to handle inbound message", zap.Error(err), zap.String("message_id", msg.ID))
					if firstErr == nil {
						firstErr = err
					}
				}
			}
		}
	}

	return firstErr
}

func (s *MetaWhatsAppService) handleInboundMessage(ctx context.Context, msg models.InboundMessage) error {
	text := msg.Body()
	if text == "" {
		s.logger.Debug("ignoring message without text", zap.String("type", msg.Type))
		return nil
	}

	cmd := models.ParseCommand(text)
	s.logger.Info("parsed inbound command",
		zap.String("from", msg.From),
		zap.String("command", string(cmd.Type)),
		zap.Any("args", cmd.Args))

	return s.send(ctx, msg.From, s.reply(ctx, msg.From, cmd))
}

func (s *MetaWhatsAppService) reply(ctx context.Context, from string, cmd models.Command) string {
	if cmd.Type == models.CommandUnknown || s.dispatcher == nil {
		return format(unknownReply)
	}
	if len(s.supervisors) > 0 && !s.supervisors[client.Recipient(from)] {
		return format(deniedReply)
	}

	answer, err := s.dispatcher.HandleCommand(ctx, cmd, from)
	switch {
	case errors.Is(err, commands.ErrInvalidArguments):
		return err.Error()
	case errors.Is(err, commands.ErrUnsupportedCommand):
		return format(unknownReply)
	case err != nil:
		s.logger.Error("command failed", zap.String("command", string(cmd.Type)), zap.Error(err))
		return "Não foi possível processar o comando agora. Tente novamente mais tarde."
	}
	return answer
}

// SendOutbound lets internal operators push quick notifications via HTTP.
func (s *MetaWhatsAppService) SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	_, err := s.client.SendTextMessage(ctxWithTimeout, client.SendTextMessageRequest{
		To:         req.To,
		Body:       req.Message,
		PreviewURL: req.PreviewURL,
	})
	return err
}

// NotifyShifts tells a staff member about the shifts booked for them.
func (s *MetaWhatsAppService) NotifyShifts(ctx context.Context, staff models.Staff, shifts []models.Shift) error {
	if staff.Phone == "" || len(shifts) == 0 {
		return nil
	}
	return s.send(ctx, staff.Phone, ShiftMessage(staff, shifts))
}

func (s *MetaWhatsAppService) send(ctx context.Context, to, body string) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	_, err := s.client.SendTextMessage(ctxWithTimeout, client.SendTextMessageRequest{
		To:   to,
		Body: body,
	})
	return err
}

// maxListedShifts caps how many dates a notification spells out.
const maxListedShifts = 5

// ShiftMessage renders the notification sent to staff for new shifts.
func ShiftMessage(staff models.Staff, shifts []models.Shift) string {
	first := shifts[0]

	var b strings.Builder
	fmt.Fprintf(&b, "Olá %s, você foi escalado(a) para %d turno(s) %s-%s",
		firstName(staff.Name), len(shifts), first.StartTime, first.EndTime)
	if first.Station != "" {
		fmt.Fprintf(&b, " no posto %s", first.Station)
	}
	b.WriteString(":")

	for i, shift := range shifts {
		if i == maxListedShifts {
			fmt.Fprintf(&b, "\n... e mais %d", len(shifts)-maxListedShifts)
			break
		}
		fmt.Fprintf(&b, "\n- %s", shift.Date.Format("02/01/2006"))
	}
	return b.String()
}

func format(reply models.AutomationReply) string {
	return fmt.Sprintf("%s\n%s", reply.Title, reply.Message)
}

func firstName(name string) string {
	if fields := strings.Fields(name); len(fields) > 0 {
		return fields[0]
	}
	return name
}
