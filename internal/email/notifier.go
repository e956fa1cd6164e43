// Package email delivers best-effort admin notifications over SMTP.
// Delivery runs on a single background worker; failures are logged and
// never reach the caller.
package email

import (
	"sync"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"
	"gitlab.com/wheresmygrants/grantvotes/internal/models"
)

const queueSize = 64

type message struct {
	subject string
	body    string
}

type Notifier struct {
	logger   zerolog.Logger
	dialer   *gomail.Dialer
	from     string
	to       string
	queue    chan message
	stopOnce sync.Once
	done     chan struct{}
}

func NewNotifier(config *models.EnvConfig, logger zerolog.Logger) *Notifier {
	n := &Notifier{
		logger: logger,
		from:   config.SMTPUser,
		to:     config.AdminEmail,
		queue:  make(chan message, queueSize),
		done:   make(chan struct{}),
	}
	if config.SMTPUser != "" && config.SMTPPassword != "" {
		n.dialer = gomail.NewDialer(config.SMTPHost, config.SMTPPort, config.SMTPUser, config.SMTPPassword)
	}
	go n.run()
	return n
}

// Send queues a notification without blocking. When the queue is full
// the message is dropped with a warning.
func (n *Notifier) Send(subject, body string) {
	select {
	case n.queue <- message{subject: subject, body: body}:
	default:
		n.logger.Warn().Str("subject", subject).Msg("Notification queue full, dropping message")
	}
}

// Stop drains the queue and stops the worker.
func (n *Notifier) Stop() {
	n.stopOnce.Do(func() {
		close(n.queue)
	})
	<-n.done
}

func (n *Notifier) run() {
	defer close(n.done)
	for msg := range n.queue {
		n.deliver(msg)
	}
}

func (n *Notifier) deliver(msg message) {
	if n.dialer == nil {
		n.logger.Info().Str("subject", msg.subject).Msg("Email credentials not configured, skipping notification")
		return
	}
	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", n.to)
	m.SetHeader("Subject", msg.subject)
	m.SetBody("text/plain", msg.body)
	if err := n.dialer.DialAndSend(m); err != nil {
		n.logger.Error().Err(err).Str("subject", msg.subject).Msg("Failed to send email")
	}
}
