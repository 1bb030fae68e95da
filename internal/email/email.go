package email

import (
	"context"
	"fmt"
	"strings"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/Domenick1991/tourbooking/config"
	"github.com/Domenick1991/tourbooking/internal/domain"
)

// Mailer is satisfied by *mail.Client.
type Mailer interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// Sender turns booking events into customer emails. Without a mailer it
// only logs what it would have sent.
type Sender struct {
	mailer   Mailer
	from     string
	fromName string
	logger   *zap.Logger
}

func NewSender(cfg config.EmailConfig, logger *zap.Logger) (*Sender, error) {
	s := &Sender{from: cfg.From, fromName: cfg.FromName, logger: logger}
	if cfg.SMTPHost == "" {
		return s, nil
	}
	client, err := mail.NewClient(cfg.SMTPHost,
		mail.WithPort(cfg.SMTPPort),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
	)
	if err != nil {
		return nil, fmt.Errorf("could not initialize smtp client: %w", err)
	}
	s.mailer = client
	return s, nil
}

func NewSenderWithMailer(mailer Mailer, from, fromName string, logger *zap.Logger) *Sender {
	return &Sender{mailer: mailer, from: from, fromName: fromName, logger: logger}
}

func (s *Sender) Send(ctx context.Context, event domain.BookingEvent) error {
	subject, body, ok := compose(event)
	if !ok {
		s.logger.Debug("no notification for event", zap.String("type", event.Type), zap.Int64("booking_id", event.BookingID))
		return nil
	}
	if event.CustomerEmail == "" {
		s.logger.Warn("booking event without customer email", zap.Int64("booking_id", event.BookingID))
		return nil
	}

	if s.mailer == nil {
		s.logger.Info("email not sent, smtp disabled",
			zap.String("to", event.CustomerEmail),
			zap.String("subject", subject))
		return nil
	}

	msg := mail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.from); err != nil {
		return fmt.Errorf("set from address: %w", err)
	}
	if err := msg.To(event.CustomerEmail); err != nil {
		s.logger.Warn("invalid recipient", zap.String("to", event.CustomerEmail), zap.Error(err))
		return nil
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	if err := s.mailer.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send %s email for booking %s: %w", event.Type, event.BookingNumber, err)
	}
	s.logger.Info("email sent", zap.String("type", event.Type), zap.String("booking_number", event.BookingNumber))
	return nil
}

func compose(event domain.BookingEvent) (subject, body string, ok bool) {
	var b strings.Builder
	switch event.Type {
	case domain.EventBookingCreated:
		subject = fmt.Sprintf("Booking %s received", event.BookingNumber)
		fmt.Fprintf(&b, "Thank you for your booking.\n\n")
	case domain.StatusEventType(domain.BookingStatusConfirmed):
		subject = fmt.Sprintf("Booking %s confirmed", event.BookingNumber)
		fmt.Fprintf(&b, "Your tour is confirmed.\n\n")
	case domain.EventBookingCancelled:
		subject = fmt.Sprintf("Booking %s cancelled", event.BookingNumber)
		fmt.Fprintf(&b, "Your booking has been cancelled.\n")
		if event.Reason != "" {
			fmt.Fprintf(&b, "Reason: %s\n", event.Reason)
		}
		b.WriteString("\n")
	default:
		return "", "", false
	}
	fmt.Fprintf(&b, "Booking number: %s\nDate: %s\nTime: %s-%s\nGuests: %d\n",
		event.BookingNumber, event.TourDate, event.StartTime, event.EndTime, event.PartySize)
	return subject, b.String(), true
}
