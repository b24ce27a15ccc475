package emailService

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

const (
	subjectRegistrationConfirmation  = "Confirm your registration"
	templateRegistrationConfirmation = "registration_confirmation.html"
	subjectResetPassword             = "Reset your password"
	templateResetPassword            = "reset_password.html"
	subjectTwoFactorCode             = "Your 2FA code"
	templateTwoFactorCode            = "two_factor_code.html"
	subjectRenewalReminder           = "Upcoming subscription renewal"
	templateRenewalReminder          = "renewal_reminder.html"
	subjectBudgetAlert               = "Budget limit reached"
	templateBudgetAlert              = "budget_alert.html"
)

type EmailData interface {
	TemplateFileName() string
	Subject() string
}

type EmailSender interface {
	QueueEmail(to string, data EmailData)
}

type RegistrationConfirmationData struct {
	UserName string
	Code     string
}

func (r RegistrationConfirmationData) TemplateFileName() string {
	return templateRegistrationConfirmation
}

func (r RegistrationConfirmationData) Subject() string {
	return subjectRegistrationConfirmation
}

type ResetPasswordData struct {
	UserName string
	Code     string
}

func (r ResetPasswordData) TemplateFileName() string {
	return templateResetPassword
}

func (r ResetPasswordData) Subject() string {
	return subjectResetPassword
}

type TwoFactorCodeData struct {
	UserName string
	Code     string
}

func (r TwoFactorCodeData) TemplateFileName() string {
	return templateTwoFactorCode
}

func (r TwoFactorCodeData) Subject() string {
	return subjectTwoFactorCode
}

// RenewalReminderData backs both the renewal-reminder and overdue emails sent
// by the notification engine.
type RenewalReminderData struct {
	UserName         string
	SubscriptionName string
	Amount           string
	RenewalDate      string
	Overdue          bool
}

func (r RenewalReminderData) TemplateFileName() string {
	return templateRenewalReminder
}

func (r RenewalReminderData) Subject() string {
	return subjectRenewalReminder
}

type BudgetAlertData struct {
	UserName     string
	CategoryName string
	Limit        string
	Spend        string
}

func (r BudgetAlertData) TemplateFileName() string {
	return templateBudgetAlert
}

func (r BudgetAlertData) Subject() string {
	return subjectBudgetAlert
}

type EmailService struct {
	from         string
	password     string
	templatesDir string
	smtpHost     string
	smtpPort     string
	taskQueue    chan EmailTask
	logger       *logrus.Logger
}

type EmailTask struct {
	to           string
	templateFile string
	data         EmailData
	subject      string
}

// NewEmailService builds a sender backed by a single background worker.
// Construct once per process and share by reference.
func NewEmailService(from, password, smtpHost, smtpPort, templatesDir string, logger *logrus.Logger) *EmailService {
	s := &EmailService{
		from:         from,
		password:     password,
		templatesDir: templatesDir,
		smtpHost:     smtpHost,
		smtpPort:     smtpPort,
		taskQueue:    make(chan EmailTask, 100),
		logger:       logger,
	}

	go s.worker()
	return s
}

func (s *EmailService) worker() {
	for task := range s.taskQueue {
		err := s.sendTemplatedEmail(task.to, task.templateFile, task.data, task.subject)
		if err != nil {
			s.logger.Errorf("Error sending email to %s: %v", task.to, err)
		}
	}
}

func (s *EmailService) QueueEmail(to string, data EmailData) {
	s.taskQueue <- EmailTask{to, data.TemplateFileName(), data, data.Subject()}
}

func (s *EmailService) sendTemplatedEmail(to, templateFileName string, data EmailData, subject string) error {
	templatePath := filepath.Join(s.templatesDir, templateFileName)
	if _, err := os.Stat(templatePath); os.IsNotExist(err) {
		return fmt.Errorf("template file does not exist: %v", err)
	}

	tmpl, err := template.ParseFiles(templatePath)
	if err != nil {
		return fmt.Errorf("error parsing template: %v", err)
	}

	var body bytes.Buffer
	err = tmpl.Execute(&body, data)
	if err != nil {
		return fmt.Errorf("error executing template: %v", err)
	}

	message := []byte("Subject: " + subject + "\r\n" +
		"MIME-version: 1.0;\r\n" +
		"Content-Type: text/html; charset=\"UTF-8\";\r\n\r\n" +
		body.String())

	auth := smtp.PlainAuth("", s.from, s.password, s.smtpHost)
	err = smtp.SendMail(s.smtpHost+":"+s.smtpPort, auth, s.from, []string{to}, message)
	if err != nil {
		return fmt.Errorf("error sending email: %v", err)
	}
	return nil
}
