package connectors

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
)

// OAuthConfig holds client-credentials settings for a server that protects
// its MCP endpoint with OAuth 2.0. It is embedded in server configuration
// files, so the fields carry JSON tags.
type OAuthConfig struct {
	TokenURL     string   `json:"token_url"`
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	Scopes       []string `json:"scopes,omitempty"`
}

// Validate reports whether the config names everything the grant needs.
func (c OAuthConfig) Validate() error {
	if c.TokenURL == "" {
		return fmt.Errorf("connectors: oauth config: token_url is required")
	}
	if c.ClientID == "" || c.ClientSecret == "" {
		return fmt.Errorf("connectors: oauth config: client_id and client_secret are required")
	}
	return nil
}

// tokens are refreshed this long before their expiry.
const oauthRefreshSkew = 15 * time.Second

// oauthToken is one issued access token.
type oauthToken struct {
	value     string
	typ       string
	expiresAt time.Time
}

func (t oauthToken) header() string {
	typ := t.typ
	if typ == "" {
		typ = "Bearer"
	}
	return strings.TrimSpace(typ) + " " + t.value
}

func (t oauthToken) usable(now time.Time) bool {
	return t.value != "" && now.Add(oauthRefreshSkew).Before(t.expiresAt)
}

// OAuthClientCredentials is an AuthProvider that obtains tokens through the
// OAuth 2.0 client credentials grant and refreshes them shortly before they
// expire. A zero credential set fails at first use, not at construction, so
// configs are validated separately via OAuthConfig.Validate.
type OAuthClientCredentials struct {
	cfg    OAuthConfig
	client *http.Client
	now    func() time.Time

	mu  sync.Mutex
	tok oauthToken
}

// NewOAuthClientCredentials builds a provider for cfg. client may be nil, in
// which case a default client with a 30 second timeout is used for the token
// endpoint.
func NewOAuthClientCredentials(cfg OAuthConfig, client *http.Client) *OAuthClientCredentials {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &OAuthClientCredentials{cfg: cfg, client: client, now: time.Now}
}

// AuthorizationHeader returns a "Bearer <token>" value, minting a new token
// when none is cached or the cached one is about to expire. The lock is held
// across the refresh so concurrent callers do not stampede the token endpoint.
func (p *OAuthClientCredentials) AuthorizationHeader(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.tok.usable(p.now()) {
		return p.tok.header(), nil
	}
	tok, err := p.refresh(ctx)
	if err != nil {
		return "", err
	}
	p.tok = tok
	return tok.header(), nil
}

func (p *OAuthClientCredentials) refresh(ctx context.Context) (oauthToken, error) {
	if err := p.cfg.Validate(); err != nil {
		return oauthToken{}, err
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {p.cfg.ClientID},
		"client_secret": {p.cfg.ClientSecret},
	}
	if len(p.cfg.Scopes) > 0 {
		form.Set("scope", strings.Join(p.cfg.Scopes, " "))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return oauthToken{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return oauthToken{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return oauthToken{}, err
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return oauthToken{}, &HTTPStatusError{
			Method:     http.MethodPost,
			URL:        p.cfg.TokenURL,
			StatusCode: resp.StatusCode,
			Body:       body,
		}
	}

	var grant struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &grant); err != nil {
		return oauthToken{}, fmt.Errorf("connectors: oauth token response: %w", err)
	}
	if grant.AccessToken == "" {
		return oauthToken{}, fmt.Errorf("connectors: oauth token response has no access_token")
	}

	ttl := time.Hour
	if grant.ExpiresIn > 0 {
		ttl = time.Duration(grant.ExpiresIn) * time.Second
	}
	return oauthToken{
		value:     grant.AccessToken,
		typ:       grant.TokenType,
		expiresAt: p.now().Add(ttl),
	}, nil
}
