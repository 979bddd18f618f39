package notification

import (
	"context"
	"fmt"
	"time"

	"gramaalert-be/config"

	"github.com/go-resty/resty/v2"
)

// emailRequest is the body of POST /api/v1.0/email/send.
type emailRequest struct {
	ServiceID      string            `json:"service_id"`
	TemplateID     string            `json:"template_id"`
	UserID         string            `json:"user_id"`
	AccessToken    string            `json:"accessToken,omitempty"`
	TemplateParams map[string]string `json:"template_params"`
}

// EmailJSSender delivers template emails through the EmailJS REST API.
type EmailJSSender struct {
	httpClient *resty.Client
	serviceID  string
	publicKey  string
	privateKey string
}

func NewEmailJSSender(cfg config.EmailConfig) *EmailJSSender {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")

	return &EmailJSSender{
		httpClient: client,
		serviceID:  cfg.ServiceID,
		publicKey:  cfg.PublicKey,
		privateKey: cfg.PrivateKey,
	}
}

func (s *EmailJSSender) Send(ctx context.Context, templateID string, params map[string]string) error {
	resp, err := s.httpClient.R().
		SetContext(ctx).
		SetBody(emailRequest{
			ServiceID:      s.serviceID,
			TemplateID:     templateID,
			UserID:         s.publicKey,
			AccessToken:    s.privateKey,
			TemplateParams: params,
		}).
		Post("/api/v1.0/email/send")
	if err != nil {
		return fmt.Errorf("emailjs send: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("emailjs send: status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}
