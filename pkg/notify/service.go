package notify

import (
	"github.com/stellarcompass/compass/pkg/config"
	"github.com/stellarcompass/compass/pkg/logger"
	"github.com/stellarcompass/compass/pkg/metrics"
	"github.com/stellarcompass/compass/pkg/models"
	"github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// EmailSender delivers one rendered email.
type EmailSender interface {
	Send(to, subject, text, html string) error
}

// SMSSender delivers one short-form message.
type SMSSender interface {
	Send(to, body string) error
}

// Service routes alerts to the configured delivery channels. Unconfigured
// channels are skipped with a log line, never an error: delivery is
// best-effort end to end.
type Service struct {
	cfg   config.Notify
	email EmailSender
	sms   SMSSender
}

func NewService(cfg config.Notify) *Service {
	s := &Service{cfg: cfg}
	if cfg.EmailEnabled() {
		s.email = &gomailSender{
			dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.EmailAddress, cfg.EmailPassword),
			from:   cfg.EmailAddress,
		}
	}
	if cfg.SMSEnabled() {
		s.sms = &twilioSender{
			client: twilio.NewRestClientWithParams(twilio.ClientParams{
				Username: cfg.TwilioAccountSID,
				Password: cfg.TwilioAuthToken,
			}),
			from: cfg.TwilioFromNumber,
		}
	}
	return s
}

// NewServiceWithSenders injects senders directly. Test seam.
func NewServiceWithSenders(cfg config.Notify, email EmailSender, sms SMSSender) *Service {
	return &Service{cfg: cfg, email: email, sms: sms}
}

// Deliver fans an alert out to email and, for high/critical priorities, SMS.
// Settings toggles override the channel defaults.
func (s *Service) Deliver(a models.Alert, settings models.Settings) {
	a.Sanitize()

	if s.emailWanted(settings) {
		s.deliverEmail(a)
	} else {
		logger.Log.Debug("email channel skipped", zap.String("alert", a.ID))
	}

	if s.smsWanted(a.Priority, settings) {
		s.deliverSMS(a, settings)
	} else {
		logger.Log.Debug("sms channel skipped",
			zap.String("alert", a.ID), zap.String("priority", a.Priority))
	}
}

func (s *Service) emailWanted(settings models.Settings) bool {
	if s.email == nil {
		return false
	}
	if settings.EmailNotifications != nil {
		return *settings.EmailNotifications
	}
	return true
}

// SMS is reserved for high and critical priorities: texts interrupt, toasts
// and email do not.
func (s *Service) smsWanted(priority string, settings models.Settings) bool {
	if s.sms == nil {
		return false
	}
	if priority != models.PriorityHigh && priority != models.PriorityCritical {
		return false
	}
	if settings.SMSNotifications != nil {
		return *settings.SMSNotifications
	}
	return true
}

func (s *Service) deliverEmail(a models.Alert) {
	subject, text, html, err := renderEmail(a)
	if err != nil {
		logger.Log.Error("email render failed", zap.String("alert", a.ID), zap.Error(err))
		metrics.NotificationErrors.WithLabelValues("email").Inc()
		return
	}
	if err := s.email.Send(s.cfg.UserEmail, subject, text, html); err != nil {
		logger.Log.Error("email delivery failed", zap.String("alert", a.ID), zap.Error(err))
		metrics.NotificationErrors.WithLabelValues("email").Inc()
		return
	}
	metrics.NotificationsSent.WithLabelValues("email").Inc()
	logger.Log.Info("email delivered", zap.String("alert", a.ID), zap.String("type", a.Type))
}

func (s *Service) deliverSMS(a models.Alert, settings models.Settings) {
	to := s.cfg.UserPhone
	if settings.PhoneNumber != "" {
		to = settings.PhoneNumber
	}
	if err := s.sms.Send(to, renderSMS(a)); err != nil {
		logger.Log.Error("sms delivery failed", zap.String("alert", a.ID), zap.Error(err))
		metrics.NotificationErrors.WithLabelValues("sms").Inc()
		return
	}
	metrics.NotificationsSent.WithLabelValues("sms").Inc()
	logger.Log.Info("sms delivered", zap.String("alert", a.ID), zap.String("type", a.Type))
}

type gomailSender struct {
	dialer *gomail.Dialer
	from   string
}

func (g *gomailSender) Send(to, subject, text, html string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", g.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", text)
	m.AddAlternative("text/html", html)
	return g.dialer.DialAndSend(m)
}

type twilioSender struct {
	client *twilio.RestClient
	from   string
}

func (t *twilioSender) Send(to, body string) error {
	params := &twilioapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(t.from)
	params.SetBody(body)
	_, err := t.client.Api.CreateMessage(params)
	return err
}
