package taskdsdk

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"
)

// Client is a client for the taskd service.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a client with its own cookie jar.
func NewClient(baseURL string) *Client {
	jar, _ := cookiejar.New(nil) // only errors on a bad PublicSuffixList
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
			Jar:     jar,
		},
	}
}

// SignUp creates an account and returns its session.
func (c *Client) SignUp(ctx context.Context, req SignUpRequest) (*Session, error) {
	var out AuthResponse
	if err := c.postJSON(ctx, "/auth/sign-up", "", req, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return newSession(c, out), nil
}

// SignIn authenticates with email and password.
func (c *Client) SignIn(ctx context.Context, req SignInRequest) (*Session, error) {
	var out AuthResponse
	if err := c.postJSON(ctx, "/auth/sign-in", "", req, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return newSession(c, out), nil
}

// Resume rebuilds a session from the refresh cookie already in the jar.
func (c *Client) Resume(ctx context.Context) (*Session, error) {
	s := &Session{client: c}
	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (c *Client) Livez(ctx context.Context) (*HealthResponse, error) {
	return c.health(ctx, "/livez")
}

// Readyz returns the readiness report. A degraded server answers 503,
// which is returned as an *APIError.
func (c *Client) Readyz(ctx context.Context) (*HealthResponse, error) {
	return c.health(ctx, "/readyz")
}

func (c *Client) health(ctx context.Context, path string) (*HealthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return nil, err
	}
	var out HealthResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}
