package notification

import (
	"context"
	"fmt"
	"html"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/citesignal-backend/internal/domain/entity"
	"github.com/ignatzorin/citesignal-backend/internal/goroutine"
	"github.com/ignatzorin/citesignal-backend/internal/logger"
	"github.com/ignatzorin/citesignal-backend/internal/metrics"
	"github.com/ignatzorin/citesignal-backend/internal/usecase/incident"
)

const (
	kindStatus     = "status"
	kindAssignment = "assignment"
)

// SendFunc отправляет готовое письмо.
type SendFunc func(message *mail.SGMailV3) error

// SendgridMailer письма гражданам и агентам. Отправка идёт в фоне, ошибки только логируются.
type SendgridMailer struct {
	from   *mail.Email
	send   SendFunc
	runner *goroutine.RecoveryHandler
}

// NewSendgridMailer без API ключа возвращает mailer, который ничего не отправляет.
func NewSendgridMailer(apiKey, fromEmail, fromName string) *SendgridMailer {
	m := &SendgridMailer{
		from:   mail.NewEmail(fromName, fromEmail),
		runner: goroutine.DefaultRecoveryHandler,
	}
	if apiKey == "" {
		logger.L().Warn("notification: SENDGRID_API_KEY не задан, письма отключены")
		return m
	}

	client := sendgrid.NewSendClient(apiKey)
	m.send = func(message *mail.SGMailV3) error {
		resp, err := client.Send(message)
		if err != nil {
			return err
		}
		if resp.StatusCode >= 300 {
			return fmt.Errorf("sendgrid: статус %d: %s", resp.StatusCode, resp.Body)
		}
		return nil
	}
	return m
}

// NewMailerWithSender для тестов и альтернативных транспортов.
func NewMailerWithSender(fromEmail, fromName string, send SendFunc, runner *goroutine.RecoveryHandler) *SendgridMailer {
	return &SendgridMailer{from: mail.NewEmail(fromName, fromEmail), send: send, runner: runner}
}

// SendStatusEmail письмо гражданину о смене статуса его обращения.
func (m *SendgridMailer) SendStatusEmail(ctx context.Context, citizen *entity.User, inc *entity.Incident, message string) {
	subject := fmt.Sprintf("CiteSignal: your report \"%s\" is now %s", inc.Title, inc.Status)
	plain := fmt.Sprintf("Hello %s,\n\n%s\n\nReport: %s\nAddress: %s\n", citizen.FullName(), message, inc.Title, inc.Address)
	htmlBody := fmt.Sprintf("<p>Hello %s,</p><p>%s</p><p><strong>%s</strong><br>%s</p>",
		html.EscapeString(citizen.FullName()), html.EscapeString(message), html.EscapeString(inc.Title), html.EscapeString(inc.Address))
	m.dispatch(ctx, kindStatus, citizen, subject, plain, htmlBody)
}

// SendAssignmentEmail письмо агенту о назначении обращения.
func (m *SendgridMailer) SendAssignmentEmail(ctx context.Context, agent *entity.User, inc *entity.Incident) {
	subject := fmt.Sprintf("CiteSignal: new incident assigned \"%s\"", inc.Title)
	plain := fmt.Sprintf("Hello %s,\n\nThe report \"%s\" (%s, priority %s) at %s has been assigned to you.\n",
		agent.FullName(), inc.Title, inc.Category, inc.Priority, inc.Address)
	htmlBody := fmt.Sprintf("<p>Hello %s,</p><p>The report <strong>%s</strong> (%s, priority %s) at %s has been assigned to you.</p>",
		html.EscapeString(agent.FullName()), html.EscapeString(inc.Title), inc.Category, inc.Priority, html.EscapeString(inc.Address))
	m.dispatch(ctx, kindAssignment, agent, subject, plain, htmlBody)
}

func (m *SendgridMailer) dispatch(ctx context.Context, kind string, to *entity.User, subject, plain, htmlBody string) {
	if m.send == nil || to == nil || to.Email == "" {
		return
	}

	message := mail.NewV3Mail()
	message.SetFrom(m.from)
	message.Subject = subject
	p := mail.NewPersonalization()
	p.AddTos(mail.NewEmail(to.FullName(), to.Email))
	message.AddPersonalizations(p)
	message.AddContent(mail.NewContent("text/plain", plain))
	message.AddContent(mail.NewContent("text/html", htmlBody))

	m.runner.SafeGoWithContext(context.WithoutCancel(ctx), "email:"+kind, func(context.Context) {
		err := m.send(message)
		metrics.EmailsTotal.WithLabelValues(kind, metrics.Result(err)).Inc()
		if err != nil {
			logger.L().WithFields(logrus.Fields{
				"user_id": to.ID,
				"kind":    kind,
			}).WithError(err).Warn("notification: письмо не отправлено")
		}
	})
}

var _ incident.Mailer = (*SendgridMailer)(nil)
