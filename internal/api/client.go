package api

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/rickgao/exchange-trader/internal/auth"
	"github.com/rickgao/exchange-trader/internal/model"
)

// Endpoints are the base URLs the client talks to.
type Endpoints struct {
	Login     string
	CertLogin string
	KeepAlive string
	Betting   string
	Account   string
}

// DefaultEndpoints returns the production endpoints.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Login:     "https://identitysso.betfair.com/api/login",
		CertLogin: "https://identitysso-cert.betfair.com/api/certlogin",
		KeepAlive: "https://identitysso.betfair.com/api/keepAlive",
		Betting:   "https://api.betfair.com/exchange/betting/rest/v1.0",
		Account:   "https://api.betfair.com/exchange/account/rest/v1.0",
	}
}

// sessionRefreshMargin is subtracted from the session timeout so the
// keep-alive fires before the exchange drops the session.
const sessionRefreshMargin = time.Hour

// Client provides access to the exchange REST API and tracks the session.
type Client struct {
	endpoints  Endpoints
	creds      *auth.Credentials
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger

	maxRetries     int
	retryBackoff   time.Duration
	sessionTimeout time.Duration
	now            func() time.Time

	mu             sync.RWMutex
	sessionToken   string
	sessionStarted time.Time
	sessionInvalid bool
	funds          model.AccountFunds
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a new REST API client. When the credentials carry a
// client certificate it is presented on every TLS handshake.
func NewClient(creds *auth.Credentials, opts ...ClientOption) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if tlsCfg := creds.TLSConfig(); tlsCfg != nil {
		transport.TLSClientConfig = tlsCfg
	}

	c := &Client{
		endpoints: DefaultEndpoints(),
		creds:     creds,
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		limiter:        rate.NewLimiter(rate.Limit(5), 10),
		logger:         slog.Default(),
		maxRetries:     3,
		retryBackoff:   time.Second,
		sessionTimeout: 12 * time.Hour,
		now:            time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithEndpoints overrides the base URLs.
func WithEndpoints(e Endpoints) ClientOption {
	return func(c *Client) {
		c.endpoints = e
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRetries sets the retry configuration.
func WithRetries(max int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = max
		c.retryBackoff = backoff
	}
}

// WithRateLimit caps outgoing requests per second. A non-positive rps
// disables limiting.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithSessionTimeout sets how long the exchange keeps an idle session.
func WithSessionTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.sessionTimeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}
