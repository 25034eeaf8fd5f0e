package proxmox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/proxmoxmcp/proxmox-mcp/internal/payload"
	"github.com/proxmoxmcp/proxmox-mcp/pkg/tlsutil"
)

// Client is an HTTP client for the Proxmox VE API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	config     ClientConfig

	// mu guards the ticket fields of auth; the identity fields are
	// immutable after NewClient.
	mu   sync.Mutex
	auth auth
}

// ClientConfig holds connection settings for a Proxmox VE host.
type ClientConfig struct {
	Host        string
	User        string
	Password    string
	TokenName   string
	TokenValue  string
	Fingerprint string
	VerifySSL   bool
	Timeout     time.Duration
}

type auth struct {
	user       string
	realm      string
	ticket     string
	csrfToken  string
	tokenName  string
	tokenValue string
	expiresAt  time.Time
}

// NewClient creates a Proxmox VE API client. Token credentials are
// attached per-request; password credentials authenticate immediately
// so a misconfiguration fails at startup.
func NewClient(cfg ClientConfig) (*Client, error) {
	if !strings.HasPrefix(cfg.Host, "http://") && !strings.HasPrefix(cfg.Host, "https://") {
		cfg.Host = "https://" + cfg.Host
		log.Debug().Str("host", cfg.Host).Msg("No protocol specified in Proxmox host, defaulting to HTTPS")
	}

	var user, realm string

	if cfg.TokenName != "" && cfg.TokenValue != "" {
		// Token name may carry the full user@realm!tokenname format
		if strings.Contains(cfg.TokenName, "!") {
			parts := strings.Split(cfg.TokenName, "!")
			if len(parts) == 2 && strings.Contains(parts[0], "@") {
				userParts := strings.Split(parts[0], "@")
				if len(userParts) == 2 {
					user = userParts[0]
					realm = userParts[1]
					cfg.TokenName = parts[1]
				}
			}
		} else if cfg.User != "" {
			parts := strings.Split(cfg.User, "@")
			if len(parts) == 2 {
				user = parts[0]
				realm = parts[1]
			} else {
				user = cfg.User
				realm = "pam"
			}
		} else {
			return nil, fmt.Errorf("token authentication requires user information either in token name (user@realm!tokenname) or user field")
		}

		if user == "" {
			return nil, fmt.Errorf("could not parse user information from token name")
		}
	} else {
		parts := strings.Split(cfg.User, "@")
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid user format, expected user@realm")
		}
		user = parts[0]
		realm = parts[1]
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	client := &Client{
		baseURL:    strings.TrimSuffix(cfg.Host, "/") + "/api2/json",
		httpClient: tlsutil.CreateHTTPClient(cfg.VerifySSL, cfg.Fingerprint, timeout),
		config:     cfg,
		auth: auth{
			user:       user,
			realm:      realm,
			tokenName:  cfg.TokenName,
			tokenValue: cfg.TokenValue,
		},
	}

	if cfg.Password != "" && cfg.TokenName == "" {
		if _, _, err := client.ensureTicket(context.Background()); err != nil {
			return nil, fmt.Errorf("authentication failed: %w", err)
		}
	}

	return client, nil
}

// ensureTicket re-authenticates when the current ticket has expired
// and returns a consistent ticket/CSRF pair. The lock is held across
// the refresh so concurrent callers share one ticket request.
func (c *Client) ensureTicket(ctx context.Context) (string, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if time.Now().After(c.auth.expiresAt) {
		if err := c.authenticate(ctx); err != nil {
			return "", "", err
		}
	}
	return c.auth.ticket, c.auth.csrfToken, nil
}

// authenticate performs password-based ticket authentication.
// Callers must hold c.mu.
func (c *Client) authenticate(ctx context.Context) error {
	data := url.Values{
		"username": {c.auth.user + "@" + c.auth.realm},
		"password": {c.config.Password},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/access/ticket", strings.NewReader(data.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("ticket request failed (status %d): %s", resp.StatusCode, string(body))
	}

	var result struct {
		Data struct {
			Ticket              string `json:"ticket"`
			CSRFPreventionToken string `json:"CSRFPreventionToken"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return err
	}

	c.auth.ticket = result.Data.Ticket
	c.auth.csrfToken = result.Data.CSRFPreventionToken
	c.auth.expiresAt = time.Now().Add(2 * time.Hour) // PVE tickets expire after 2 hours

	return nil
}

// request performs an API request and returns the unwrapped "data"
// value from the response envelope.
func (c *Client) request(ctx context.Context, method, path string, data url.Values) (payload.Payload, error) {
	var ticket, csrfToken string
	if c.config.Password != "" && c.auth.tokenName == "" {
		var err error
		ticket, csrfToken, err = c.ensureTicket(ctx)
		if err != nil {
			return payload.Payload{}, fmt.Errorf("re-authentication failed: %w", err)
		}
	}

	var body io.Reader
	if data != nil {
		body = strings.NewReader(data.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return payload.Payload{}, err
	}
	if data != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	if c.auth.tokenName != "" && c.auth.tokenValue != "" {
		authHeader := fmt.Sprintf("PVEAPIToken=%s@%s!%s=%s",
			c.auth.user, c.auth.realm, c.auth.tokenName, c.auth.tokenValue)
		req.Header.Set("Authorization", authHeader)
		log.Debug().
			Str("user", c.auth.user).
			Str("realm", c.auth.realm).
			Str("tokenName", c.auth.tokenName).
			Str("method", method).
			Str("url", req.URL.String()).
			Msg("Proxmox API request with token authentication")
	} else if ticket != "" {
		req.Header.Set("Cookie", "PVEAuthCookie="+ticket)
		if method != http.MethodGet && csrfToken != "" {
			req.Header.Set("CSRFPreventionToken", csrfToken)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return payload.Payload{}, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return payload.Payload{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		err := fmt.Errorf("API error %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
		if resp.StatusCode == 401 || resp.StatusCode == 403 {
			return payload.Payload{}, fmt.Errorf("authentication error: %w", err)
		}
		return payload.Payload{}, err
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return payload.Payload{}, fmt.Errorf("decode response for %s %s: %w", method, path, err)
	}

	return payload.Parse(envelope.Data)
}

// ListNodes returns the cluster node summaries.
func (c *Client) ListNodes(ctx context.Context) ([]payload.Payload, error) {
	return c.GetList(ctx, "/nodes", nil)
}

// Get fetches an object resource.
func (c *Client) Get(ctx context.Context, path string, params url.Values) (payload.Payload, error) {
	return c.request(ctx, http.MethodGet, withQuery(path, params), nil)
}

// GetList fetches a list resource.
func (c *Client) GetList(ctx context.Context, path string, params url.Values) ([]payload.Payload, error) {
	p, err := c.request(ctx, http.MethodGet, withQuery(path, params), nil)
	if err != nil {
		return nil, err
	}
	return p.Items(), nil
}

// Post submits a mutation.
func (c *Client) Post(ctx context.Context, path string, data url.Values) (payload.Payload, error) {
	return c.request(ctx, http.MethodPost, path, data)
}

// Put updates a resource configuration.
func (c *Client) Put(ctx context.Context, path string, data url.Values) (payload.Payload, error) {
	return c.request(ctx, http.MethodPut, path, data)
}

// Delete removes a resource.
func (c *Client) Delete(ctx context.Context, path string) (payload.Payload, error) {
	return c.request(ctx, http.MethodDelete, path, nil)
}

func withQuery(path string, params url.Values) string {
	if len(params) == 0 {
		return path
	}
	return path + "?" + params.Encode()
}
