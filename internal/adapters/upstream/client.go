package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"feedback-portal/internal/domain"
	"feedback-portal/internal/infra/metrics"
)

const (
	feedbackListPath   = "/getfeedback2"
	feedbackSubmitPath = "/submit-feedback"
	registerPath       = "/register"
	loginPath          = "/login"
)

// Client обращается к внешнему API отзывов и авторизации.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

var (
	_ domain.FeedbackSource = (*Client)(nil)
	_ domain.AccountGateway = (*Client)(nil)
)

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

type apiError struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

type feedbackListResponse struct {
	Feedbacks []domain.FeedbackRecord `json:"feedbacks"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     domain.Role `json:"role"`
}

type loginResponse struct {
	User  domain.Account `json:"user"`
	Token string         `json:"token"`
}

func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("baseURL is required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Scheme == "" {
		parsed.Scheme = "https"
	}
	client := &Client{
		baseURL:    parsed,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// ListFeedback возвращает полный список отзывов.
func (c *Client) ListFeedback(ctx context.Context) ([]domain.FeedbackRecord, error) {
	var resp feedbackListResponse
	if err := c.call(ctx, http.MethodGet, feedbackListPath, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Feedbacks == nil {
		return []domain.FeedbackRecord{}, nil
	}
	return resp.Feedbacks, nil
}

// SubmitFeedback отправляет отзыв.
func (c *Client) SubmitFeedback(ctx context.Context, submission domain.FeedbackSubmission) error {
	return c.call(ctx, http.MethodPost, feedbackSubmitPath, submission, nil)
}

// Register создаёт аккаунт. Подтверждение пароля во внешний сервис не передаётся.
func (c *Client) Register(ctx context.Context, reg domain.Registration) error {
	payload := registerRequest{
		Name:     reg.Name,
		Email:    reg.Email,
		Password: reg.Password,
		Role:     reg.Role,
	}
	return c.call(ctx, http.MethodPost, registerPath, payload, nil)
}

// Login проверяет учётные данные и возвращает аккаунт.
func (c *Client) Login(ctx context.Context, creds domain.Credentials) (domain.LoginResult, error) {
	var resp loginResponse
	payload := loginRequest{Email: creds.Email, Password: creds.Password, Role: creds.Role}
	if err := c.call(ctx, http.MethodPost, loginPath, payload, &resp); err != nil {
		return domain.LoginResult{}, err
	}
	return domain.LoginResult{Account: resp.User, Token: resp.Token}, nil
}

func (c *Client) call(ctx context.Context, method, endpoint string, body, out any) error {
	req, err := c.newRequest(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	start := time.Now()
	err = c.do(req, out)
	metrics.ObserveNetworkRequest("upstream", strings.TrimPrefix(endpoint, "/"), c.baseURL.Host, start, err)
	return err
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body any) (*http.Request, error) {
	resolved := *c.baseURL
	basePath := strings.TrimSuffix(c.baseURL.Path, "/")
	resolved.Path = path.Clean(basePath + endpoint)
	var buf io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		buf = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, resolved.String(), buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upstream request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		data, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if readErr == nil && len(data) > 0 {
			_ = json.Unmarshal(data, &apiErr)
		}
		msg := apiErr.Message
		if msg == "" {
			msg = apiErr.Error
		}
		return &domain.UpstreamError{Status: resp.StatusCode, Message: msg}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
