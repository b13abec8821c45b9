package daraja

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
)

const (
	SandboxBaseURL    = "https://sandbox.safaricom.co.ke"
	ProductionBaseURL = "https://api.safaricom.co.ke"

	tokenPath    = "/oauth/v1/generate?grant_type=client_credentials"
	stkPushPath  = "/mpesa/stkpush/v1/processrequest"
	stkQueryPath = "/mpesa/stkpushquery/v1/query"

	// returned by the query endpoint while the customer has not answered the prompt
	stillProcessingCode = "500.001.1001"

	defaultTimeout = 30 * time.Second
)

var (
	ErrTokenAcquisition  = errors.New("daraja: token acquisition failed")
	ErrInitiation        = errors.New("daraja: stk push initiation failed")
	ErrQuery             = errors.New("daraja: stk push query failed")
	ErrStillProcessing   = errors.New("daraja: transaction is still being processed")
	ErrInvalidPhone      = errors.New("daraja: invalid phone number")
	ErrMalformedCallback = errors.New("daraja: malformed callback")
)

var tracer = otel.Tracer("github.com/frahmantamala/linkup-hub/internal/daraja")

type Config struct {
	Environment     string
	BaseURL         string
	ConsumerKey     string
	ConsumerSecret  string
	ShortCode       string
	Passkey         string
	TransactionType string
	CallbackURL     string
	Timeout         time.Duration
	Location        *time.Location
	CountryCode     string
}

// ResolveBaseURL picks the provider host. An explicit BaseURL wins over the environment.
func (c Config) ResolveBaseURL() string {
	if c.BaseURL != "" {
		return strings.TrimRight(c.BaseURL, "/")
	}
	if c.Environment == "production" {
		return ProductionBaseURL
	}
	return SandboxBaseURL
}

type Client struct {
	cfg     Config
	baseURL string
	hc      *http.Client
	tokens  *tokenCache
	logger  *slog.Logger
	now     func() time.Time
}

func NewClient(cfg Config, hc *http.Client, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Location == nil {
		cfg.Location = time.FixedZone("EAT", 3*60*60)
	}
	if cfg.CountryCode == "" {
		cfg.CountryCode = "254"
	}
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		cfg:     cfg,
		baseURL: cfg.ResolveBaseURL(),
		hc:      hc,
		logger:  logger,
		now:     time.Now,
	}
	c.tokens = newTokenCache(c.fetchToken, c.now)
	return c
}

func (c *Client) CountryCode() string {
	return c.cfg.CountryCode
}
