// Package services отправляет письма пользователям об изменении тарифа.
package services

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/patriot-desa/internal/lib/sl"
	"github.com/magabrotheeeer/patriot-desa/internal/lib/smtp"
	"github.com/magabrotheeeer/patriot-desa/internal/models"
)

// Transport подключение к SMTP серверу.
type Transport interface {
	Connect() (smtp.Client, error)
	GetSMTPUser() string
}

// SenderService отправляет письма по событиям подписки.
type SenderService struct {
	transport Transport
	loc       *time.Location
	log       *slog.Logger
}

// NewSenderService создает новый экземпляр SenderService.
func NewSenderService(transport Transport, loc *time.Location, log *slog.Logger) *SenderService {
	return &SenderService{
		transport: transport,
		loc:       loc,
		log:       log,
	}
}

// SendActivated сообщает о включении премиума.
func (s *SenderService) SendActivated(body []byte) error {
	event, err := s.decode(body)
	if err != nil {
		return err
	}

	until := "-"
	if event.Expiry != nil {
		until = event.Expiry.In(s.loc).Format("02 January 2006 15:04 MST")
	}
	subject := "Langganan Premium Patriot Desa aktif"
	bodyText := fmt.Sprintf("Halo, %s!\n\nLangganan Premium Patriot Desa Anda sudah aktif hingga %s.\n"+
		"Sekarang Anda dapat bertanya tanpa batas harian.\n\nTerima kasih.",
		displayName(event), until)

	return s.sendEmail([]string{event.Email}, subject, bodyText)
}

// SendExpired сообщает об окончании премиума.
func (s *SenderService) SendExpired(body []byte) error {
	event, err := s.decode(body)
	if err != nil {
		return err
	}

	subject := "Langganan Premium Patriot Desa berakhir"
	bodyText := fmt.Sprintf("Halo, %s!\n\nMasa langganan Premium Anda telah berakhir dan akun kembali ke paket gratis.\n"+
		"Perpanjang langganan untuk kembali bertanya tanpa batas.",
		displayName(event))

	return s.sendEmail([]string{event.Email}, subject, bodyText)
}

func (s *SenderService) decode(body []byte) (*models.SubscriptionEvent, error) {
	var event models.SubscriptionEvent
	if err := json.Unmarshal(body, &event); err != nil {
		s.log.Error("failed to unmarshal message body", sl.Err(err))
		return nil, fmt.Errorf("error unmarshalling message: %w", err)
	}
	if event.Email == "" {
		return nil, fmt.Errorf("error unmarshalling message: empty email")
	}
	return &event, nil
}

func displayName(e *models.SubscriptionEvent) string {
	if e.Name != "" {
		return e.Name
	}
	return e.Email
}

func (s *SenderService) sendEmail(to []string, subject, bodyText string) error {
	from := s.transport.GetSMTPUser()
	msg := strings.Join([]string{
		"From: " + from,
		"To: " + strings.Join(to, ";"),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		s.log.Error("failed to connect to SMTP server", sl.Err(err))
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Mail(from); err != nil {
		s.log.Error("failed to set MAIL FROM", slog.String("from", from), sl.Err(err))
		return err
	}
	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("failed to set RCPT TO", slog.String("recipient", addr), sl.Err(err))
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("failed to get Data writer", sl.Err(err))
		return err
	}
	if _, err = wc.Write([]byte(msg)); err != nil {
		s.log.Error("failed to write email body", sl.Err(err))
		return err
	}
	if err = wc.Close(); err != nil {
		s.log.Error("failed to close Data writer", sl.Err(err))
		return err
	}
	if err = client.Quit(); err != nil {
		s.log.Error("failed to quit SMTP client", sl.Err(err))
		return err
	}

	s.log.Info("email sent successfully", slog.Any("to", to))
	return nil
}
