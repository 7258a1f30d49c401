package utils

import (
	"fmt"
	"log"

	"astrolab/config"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendEmail sends an HTML email through SendGrid. A missing API key only
// logs a warning so local setups work without one.
func SendEmail(to, subject, htmlBody string) error {
	if config.AppConfig.SendGridKey == "" {
		log.Printf("SENDGRID_API_KEY not set, skipping email to %s", to)
		return nil
	}

	from := mail.NewEmail("AstroLab", config.AppConfig.EmailSender)
	recipient := mail.NewEmail("", to)
	message := mail.NewSingleEmail(from, subject, recipient, "", htmlBody)

	client := sendgrid.NewSendClient(config.AppConfig.SendGridKey)
	response, err := client.Send(message)
	if err != nil {
		log.Printf("Error sending email to %s: %v", to, err)
		return err
	}
	if response.StatusCode >= 400 {
		log.Printf("Failed to send email to %s, response code: %d", to, response.StatusCode)
		return fmt.Errorf("failed to send email, code: %d", response.StatusCode)
	}

	return nil
}

// SendSubmissionReceiptEmail notifies every group member that a submission
// round was recorded.
func SendSubmissionReceiptEmail(recipients []string, groupID uint, round int64) {
	subject := fmt.Sprintf("AstroLab: submission %d received", round)
	body := getEmailTemplate("Submission Received", fmt.Sprintf(
		`<p>Your group (#%d) submitted round <b>%d</b> of its lab answers.</p>
		<p>Earlier rounds stay on record; your instructor grades the latest one.</p>`,
		groupID, round))

	for _, to := range recipients {
		if err := SendEmail(to, subject, body); err != nil {
			log.Printf("Submission receipt email to %s failed: %v", to, err)
		}
	}
}

// getEmailTemplate wraps body content in the shared HTML layout
func getEmailTemplate(title, bodyContent string) string {
	return fmt.Sprintf(`
	<!DOCTYPE html>
	<html>
	<head>
		<style>
			body { font-family: 'Helvetica Neue', Helvetica, Arial, sans-serif; background-color: #F6F6F6; margin: 0; padding: 0; }
			.container { max-width: 600px; margin: 40px auto; background: #FFFFFF; border-radius: 8px; overflow: hidden; }
			.header { background-color: #00004D; padding: 30px; text-align: center; }
			.header h1 { color: #FFFFFF; margin: 0; font-size: 24px; letter-spacing: 1px; }
			.content { padding: 40px 30px; color: #00004D; line-height: 1.6; }
		</style>
	</head>
	<body>
		<div class="container">
			<div class="header"><h1>%s</h1></div>
			<div class="content">%s</div>
		</div>
	</body>
	</html>`, title, bodyContent)
}
