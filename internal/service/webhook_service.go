package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/folio/internal/metrics"
	"go.uber.org/zap"
)

const maxContactMessageLength = 5000

var (
	// ErrWebhookNotConfigured 表示对应的 webhook 地址未配置。
	ErrWebhookNotConfigured = errors.New("webhook not configured")
	// ErrWebhookFailed 表示请求失败或对端返回非 2xx，不做重试。
	ErrWebhookFailed = errors.New("webhook call failed")
)

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// WebhookConfig 汇总三个出站集成的目标地址。
type WebhookConfig struct {
	ContactURL   string
	SubscribeURL string
	SocialURL    string
	SiteBaseURL  string
	Timeout      time.Duration
}

// WebhookService forwards validated payloads to the configured webhook URLs.
type WebhookService struct {
	cfg     WebhookConfig
	http    httpDoer
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// ContactInput 是联系表单提交的内容。
type ContactInput struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

type contactPayload struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

type subscribePayload struct {
	Email     string `json:"email"`
	Timestamp string `json:"timestamp"`
}

type socialPayload struct {
	Title     string   `json:"title"`
	URL       string   `json:"url"`
	ShortDesc string   `json:"shortDesc"`
	Image     string   `json:"image"`
	Category  string   `json:"category"`
	Tags      []string `json:"tags"`
}

func NewWebhookService(cfg WebhookConfig, m *metrics.Metrics, logger *zap.Logger) *WebhookService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.SiteBaseURL = strings.TrimRight(strings.TrimSpace(cfg.SiteBaseURL), "/")
	return &WebhookService{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// SetHTTPClient overrides the HTTP client used for outbound calls.
func (s *WebhookService) SetHTTPClient(client httpDoer) {
	if client == nil {
		client = &http.Client{Timeout: s.cfg.Timeout}
	}
	s.http = client
}

// Contact validates a contact form submission and forwards it.
func (s *WebhookService) Contact(ctx context.Context, input ContactInput) error {
	name := strings.TrimSpace(input.Name)
	message := strings.TrimSpace(input.Message)
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return err
	}
	if name == "" {
		return validationError("name is required")
	}
	if message == "" {
		return validationError("message is required")
	}
	if utf8.RuneCountInString(message) > maxContactMessageLength {
		return validationError("message exceeds %d characters", maxContactMessageLength)
	}

	return s.post(ctx, "contact", s.cfg.ContactURL, contactPayload{
		Name:      name,
		Email:     email,
		Message:   message,
		Timestamp: FormatISO(s.now()),
	})
}

// Subscribe forwards a newsletter signup.
func (s *WebhookService) Subscribe(ctx context.Context, rawEmail string) error {
	email, err := normalizeEmail(rawEmail)
	if err != nil {
		return err
	}
	return s.post(ctx, "subscribe", s.cfg.SubscribeURL, subscribePayload{
		Email:     email,
		Timestamp: FormatISO(s.now()),
	})
}

// ShareToSocial announces a published post to the social automation hook.
func (s *WebhookService) ShareToSocial(ctx context.Context, card PostCard) error {
	return s.post(ctx, "social", s.cfg.SocialURL, socialPayload{
		Title:     card.Title,
		URL:       s.cfg.SiteBaseURL + "/blog/" + card.Slug,
		ShortDesc: card.ShortDesc,
		Image:     card.MainImage,
		Category:  card.Category,
		Tags:      card.Tags,
	})
}

func (s *WebhookService) post(ctx context.Context, kind, endpoint string, payload any) (err error) {
	defer func() { s.metrics.WebhookCalled(kind, err) }()

	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return ErrWebhookNotConfigured
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: encode %s payload: %v", ErrWebhookFailed, kind, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: build %s request: %v", ErrWebhookFailed, kind, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "folio-webhook/1.0")

	resp, err := s.http.Do(req)
	if err != nil {
		s.logger.Warn("webhook request failed", zap.String("kind", kind), zap.Error(err))
		return fmt.Errorf("%w: %s: %v", ErrWebhookFailed, kind, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.Warn("webhook returned non-2xx", zap.String("kind", kind), zap.Int("status", resp.StatusCode))
		return fmt.Errorf("%w: %s returned %s", ErrWebhookFailed, kind, resp.Status)
	}
	return nil
}

func normalizeEmail(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", validationError("email is required")
	}
	addr, err := mail.ParseAddress(raw)
	if err != nil || addr.Address != raw {
		return "", validationError("invalid email %q", raw)
	}
	return strings.ToLower(addr.Address), nil
}
