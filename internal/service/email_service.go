package service

import (
	"context"
	"fmt"
	"html"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"naturequest/internal/catalog"
	"naturequest/internal/models"
)

// EmailService sends student notices through Amazon SES
type EmailService struct {
	client     *sesv2.Client
	fromEmail  string
	fromName   string
	appBaseURL string
	enabled    bool
	debug      bool
}

// NewEmailService creates a new email service. An empty fromEmail yields a
// disabled service whose senders are no-ops.
func NewEmailService(ctx context.Context, awsRegion, fromEmail, fromName, appBaseURL string, debug bool) (*EmailService, error) {
	if fromEmail == "" {
		log.Println("Email service disabled: SES_FROM_EMAIL not configured")
		return &EmailService{enabled: false, debug: debug}, nil
	}

	if debug {
		log.Printf("[DEBUG] Initializing SES client: region=%s, from=%s", awsRegion, fromEmail)
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(awsRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	log.Printf("Email service enabled: from=%s, region=%s", fromEmail, awsRegion)
	return &EmailService{
		client:     sesv2.NewFromConfig(cfg),
		fromEmail:  fromEmail,
		fromName:   fromName,
		appBaseURL: appBaseURL,
		enabled:    true,
		debug:      debug,
	}, nil
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

// SendPunishmentNotice tells a student about a punishment they received
func (s *EmailService) SendPunishmentNotice(ctx context.Context, student models.Student, p models.Punishment) error {
	if !s.enabled {
		if s.debug {
			log.Printf("[DEBUG] Skipping punishment notice to %s (service disabled)", student.Email)
		}
		return nil
	}

	subject := "NatureQuest: você recebeu uma punição"
	detail := punishmentDetail(p)
	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Georgia, serif; color: #3b2a1a; background: #f5ecd7; padding: 24px;">
	<h2 style="color: #8b4513;">Olá, %s</h2>
	<p>Você recebeu uma punição na sua turma.</p>
	<p><strong>Motivo:</strong> %s</p>
	<p>%s</p>
	<p><a href="%s">Abrir o NatureQuest</a></p>
</body>
</html>
`, html.EscapeString(student.Name), html.EscapeString(p.Reason), html.EscapeString(detail), s.appBaseURL)

	textBody := fmt.Sprintf("Olá, %s\n\nVocê recebeu uma punição na sua turma.\nMotivo: %s\n%s\n\n%s\n",
		student.Name, p.Reason, detail, s.appBaseURL)

	return s.sendEmail(ctx, student.Email, subject, htmlBody, textBody)
}

// SendPasswordNotice delivers a freshly reset password to the student
func (s *EmailService) SendPasswordNotice(ctx context.Context, student models.Student, password string) error {
	if !s.enabled {
		if s.debug {
			log.Printf("[DEBUG] Skipping password notice to %s (service disabled)", student.Email)
		}
		return nil
	}

	subject := "NatureQuest: sua nova senha"
	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Georgia, serif; color: #3b2a1a; background: #f5ecd7; padding: 24px;">
	<h2 style="color: #8b4513;">Olá, %s</h2>
	<p>Seu professor redefiniu a sua senha.</p>
	<p style="font-size: 20px; letter-spacing: 2px;"><strong>%s</strong></p>
	<p><a href="%s">Entrar no NatureQuest</a></p>
</body>
</html>
`, html.EscapeString(student.Name), html.EscapeString(password), s.appBaseURL)

	textBody := fmt.Sprintf("Olá, %s\n\nSeu professor redefiniu a sua senha.\nNova senha: %s\n\n%s\n",
		student.Name, password, s.appBaseURL)

	return s.sendEmail(ctx, student.Email, subject, htmlBody, textBody)
}

func punishmentDetail(p models.Punishment) string {
	switch p.Type {
	case models.PunishmentXPLoss:
		return fmt.Sprintf("Você perdeu %d XP.", p.XPLoss)
	case models.PunishmentItemLoss:
		return fmt.Sprintf("Você perdeu %d item(ns) do inventário.", len(p.ItemLoss))
	case models.PunishmentTemporaryBan:
		return fmt.Sprintf("Você não poderá completar missões por %d minutos.", p.Duration)
	default:
		return catalog.PunishmentNames[p.Type]
	}
}

func (s *EmailService) sendEmail(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(htmlBody), Charset: aws.String("UTF-8")},
					Text: &types.Content{Data: aws.String(textBody), Charset: aws.String("UTF-8")},
				},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	if s.debug && result.MessageId != nil {
		log.Printf("[DEBUG] SES message id: %s", *result.MessageId)
	}
	log.Printf("Email sent successfully: to=%s, subject=%s", toEmail, subject)
	return nil
}
