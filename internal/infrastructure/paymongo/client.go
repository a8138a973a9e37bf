package paymongo

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	ErrLinkNotFound  = errors.New("paymongo: link not found")
	ErrNotConfigured = errors.New("paymongo: secret key not configured")
)

// PaymentGateway is the subset of the gateway API the webhook flow needs.
type PaymentGateway interface {
	GetLink(ctx context.Context, id string) (*Link, error)
}

type Link struct {
	ID       string
	Metadata map[string]any
}

// OrderID returns metadata.order_id when it is a non-empty string.
func (l *Link) OrderID() string {
	if l == nil {
		return ""
	}
	s, _ := l.Metadata["order_id"].(string)
	return strings.TrimSpace(s)
}

type Config struct {
	BaseURL   string
	SecretKey string
	Timeout   time.Duration
}

type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

// NewClient builds a client. A nil httpClient gets one with cfg.Timeout.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		secretKey:  cfg.SecretKey,
		httpClient: httpClient,
	}
}

type linkResponse struct {
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			Metadata map[string]any `json:"metadata"`
		} `json:"attributes"`
	} `json:"data"`
}

type errorResponse struct {
	Errors []struct {
		Code   string `json:"code"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

func (c *Client) GetLink(ctx context.Context, id string) (*Link, error) {
	if c.secretKey == "" {
		return nil, ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/links/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, fmt.Errorf("paymongo: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", c.authorization())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("paymongo: get link %s: %w", id, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("paymongo: read link %s: %w", id, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrLinkNotFound, id)
	case resp.StatusCode >= 300:
		return nil, fmt.Errorf("paymongo: get link %s: status %d: %s", id, resp.StatusCode, errorDetail(body))
	}

	var lr linkResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		return nil, fmt.Errorf("paymongo: decode link %s: %w", id, err)
	}
	return &Link{ID: lr.Data.ID, Metadata: lr.Data.Attributes.Metadata}, nil
}

// authorization is HTTP Basic with the secret key as user and an empty password.
func (c *Client) authorization() string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(c.secretKey+":"))
}

func errorDetail(body []byte) string {
	var er errorResponse
	if err := json.Unmarshal(body, &er); err == nil && len(er.Errors) > 0 {
		return er.Errors[0].Code + ": " + er.Errors[0].Detail
	}
	if len(body) > 200 {
		body = body[:200]
	}
	return string(body)
}
