package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"

	"permit_flow_app_go/config"
	"permit_flow_app_go/logging"
	"permit_flow_app_go/models"

	"github.com/resend/resend-go/v2"
	"github.com/sirupsen/logrus"
)

// EmailNotifier delivers notifications through Resend
type EmailNotifier struct {
	client      *resend.Client
	fromAddress string
	testMode    bool
}

// NewEmailNotifier builds the notifier from configuration. In test mode emails
// are logged instead of sent.
func NewEmailNotifier(cfg *config.Config) *EmailNotifier {
	n := &EmailNotifier{
		fromAddress: fmt.Sprintf("%s <%s>", cfg.EmailFromName, cfg.EmailFrom),
		testMode:    cfg.EmailTestMode,
	}
	if cfg.ResendAPIKey != "" {
		n.client = resend.NewClient(cfg.ResendAPIKey)
	}
	return n
}

// Notify sends a notification using Resend API
func (n *EmailNotifier) Notify(ctx context.Context, notification Notification) error {
	// In development mode, log the email instead of sending
	if n.testMode {
		logEmailToConsole(notification)
		return nil
	}

	if n.client == nil {
		return fmt.Errorf("RESEND_API_KEY not configured")
	}

	params := &resend.SendEmailRequest{
		From:    n.fromAddress,
		To:      []string{notification.To},
		Subject: notification.Subject,
		Html:    notification.HTMLBody,
		Text:    notification.TextBody,
	}

	// Validate we have at least one body
	if params.Html == "" && params.Text == "" {
		return fmt.Errorf("email must have either HTMLBody or TextBody")
	}

	if a := notification.Attachment; a != nil {
		params.Attachments = []*resend.Attachment{{
			Filename:    a.Filename,
			Content:     a.Content,
			ContentType: a.ContentType,
		}}
	}

	sent, err := n.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("failed to send email via Resend: %w", err)
	}

	logging.Log.WithFields(logrus.Fields{
		"id":   sent.Id,
		"kind": notification.Kind,
		"to":   notification.To,
	}).Info("Email sent successfully via Resend")
	return nil
}

// logEmailToConsole logs email details in development mode
func logEmailToConsole(n Notification) {
	fields := logrus.Fields{
		"kind":    n.Kind,
		"to":      n.To,
		"subject": n.Subject,
		"body":    truncate(n.TextBody, 500),
	}
	if n.Attachment != nil {
		fields["attachment"] = n.Attachment.Filename
		fields["attachment_size"] = len(n.Attachment.Content)
	}
	logging.Log.WithFields(fields).Info("Email logged (development mode - not actually sent)")
}

// truncate truncates a string to a maximum length
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}

var emailLayout = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #1f2937;">
<p>Estimado(a) {{.Name}},</p>
{{range .Paragraphs}}<p>{{.}}</p>
{{end}}<p style="color: #6b7280; font-size: 12px;">Expediente {{.CaseNumber}}</p>
</body>
</html>`))

type emailLayoutData struct {
	Name       string
	CaseNumber string
	Paragraphs []string
}

// buildCaseEmail renders the text and HTML bodies for a message about a case
func buildCaseEmail(kind string, c *models.Case, subject string, paragraphs ...string) Notification {
	name := c.Applicant.FullName()

	var text strings.Builder
	fmt.Fprintf(&text, "Estimado(a) %s,\n\n", name)
	for _, p := range paragraphs {
		text.WriteString(p)
		text.WriteString("\n\n")
	}
	fmt.Fprintf(&text, "Expediente %s\n", c.CaseNumber)

	var html bytes.Buffer
	if err := emailLayout.Execute(&html, emailLayoutData{Name: name, CaseNumber: c.CaseNumber, Paragraphs: paragraphs}); err != nil {
		logging.Log.WithError(err).Warn("Failed to render email HTML body, sending text only")
		html.Reset()
	}

	return Notification{
		Kind:     kind,
		To:       c.Applicant.Email,
		Subject:  subject,
		TextBody: text.String(),
		HTMLBody: html.String(),
	}
}

// BuildCaseRegisteredEmail confirms a new submission
func BuildCaseRegisteredEmail(c *models.Case) Notification {
	return buildCaseEmail(NotificationCaseRegistered, c,
		fmt.Sprintf("Expediente %s registrado", c.CaseNumber),
		fmt.Sprintf("Su solicitud de licencia de edificación para el proyecto \"%s\" fue registrada correctamente.", c.Project.Name),
		"Le notificaremos cada cambio en el estado de su expediente.",
	)
}

// BuildStateChangedEmail informs the applicant of a transition
func BuildStateChangedEmail(c *models.Case, previous models.CaseState, detail string) Notification {
	paragraphs := []string{
		fmt.Sprintf("El estado de su expediente cambió de %s a %s.", previous, c.State),
	}
	if detail != "" {
		paragraphs = append(paragraphs, "Detalle: "+detail)
	}
	return buildCaseEmail(NotificationStateChanged, c,
		fmt.Sprintf("Expediente %s: %s", c.CaseNumber, c.State), paragraphs...)
}

// BuildAmountAssignedEmail asks the applicant to pay the permit fee
func BuildAmountAssignedEmail(c *models.Case) Notification {
	return buildCaseEmail(NotificationAmountAssigned, c,
		fmt.Sprintf("Expediente %s: monto a pagar", c.CaseNumber),
		fmt.Sprintf("Se asignó un monto de S/ %.2f por derechos de trámite.", c.Payment.Amount),
		fmt.Sprintf("Realice el pago en %s y registre el voucher con el número y la fecha de operación.", c.Payment.Method),
	)
}

// BuildMessageEmail wraps a free-form message from the office
func BuildMessageEmail(c *models.Case, subject, body string) Notification {
	return buildCaseEmail(NotificationMessage, c, subject, body)
}

// BuildLicenceIssuedEmail delivers the licence with the PDF attached
func BuildLicenceIssuedEmail(c *models.Case, pdf []byte) Notification {
	n := buildCaseEmail(NotificationLicenceIssued, c,
		fmt.Sprintf("Expediente %s: licencia emitida", c.CaseNumber),
		"Su licencia de edificación fue emitida. La encontrará adjunta a este correo.",
	)
	n.Attachment = &Attachment{
		Filename:    fmt.Sprintf("licencia-%s.pdf", c.CaseNumber),
		ContentType: MimeTypePDF,
		Content:     pdf,
	}
	return n
}
