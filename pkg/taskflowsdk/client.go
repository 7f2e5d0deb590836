package taskflowsdk

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SDKClient calls the unauthenticated endpoints and opens Sessions.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// NewSession wraps a token obtained elsewhere.
func (c *SDKClient) NewSession(token string) *Session {
	return &Session{client: c, token: token}
}

func (c *SDKClient) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	var res AuthResponse
	if err := c.call(ctx, http.MethodPost, "/api/auth/register", "", req, &res, http.StatusCreated); err != nil {
		return nil, err
	}
	return newSession(c, res), nil
}

func (c *SDKClient) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	var res AuthResponse
	if err := c.call(ctx, http.MethodPost, "/api/auth/login", "", req, &res, http.StatusOK); err != nil {
		return nil, err
	}
	return newSession(c, res), nil
}

// Bootstrap creates the first administrator and returns their session.
func (c *SDKClient) Bootstrap(ctx context.Context, req BootstrapRequest) (*Session, error) {
	var res AuthResponse
	if err := c.call(ctx, http.MethodPost, "/api/bootstrap", "", req, &res, http.StatusCreated); err != nil {
		return nil, err
	}
	return newSession(c, res), nil
}

func (c *SDKClient) ForgotPassword(ctx context.Context, email string) (*ForgotPasswordResponse, error) {
	var res ForgotPasswordResponse
	err := c.call(ctx, http.MethodPost, "/api/auth/forgot-password", "", ForgotPasswordRequest{Email: email}, &res, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *SDKClient) VerifyResetToken(ctx context.Context, token string) error {
	return c.call(ctx, http.MethodGet, "/api/auth/reset-password/"+url.PathEscape(token), "", nil, nil, http.StatusOK)
}

func (c *SDKClient) CompleteReset(ctx context.Context, token, password string) error {
	return c.call(ctx, http.MethodPost, "/api/auth/reset-password/"+url.PathEscape(token), "", PasswordRequest{Password: password}, nil, http.StatusOK)
}

func (c *SDKClient) GetLiveness(ctx context.Context) (*HealthResponse, error) {
	var health HealthResponse
	if err := c.call(ctx, http.MethodGet, "/livez", "", nil, &health, http.StatusOK); err != nil {
		return nil, err
	}
	return &health, nil
}

func (c *SDKClient) GetReadiness(ctx context.Context) (*HealthResponse, error) {
	var health HealthResponse
	if err := c.call(ctx, http.MethodGet, "/readyz", "", nil, &health, http.StatusOK); err != nil {
		return nil, err
	}
	return &health, nil
}
