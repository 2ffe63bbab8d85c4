// Package keycloak implements idp.Provider against the Keycloak admin REST API.
package keycloak

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"

	"github.com/fedya-eremin/ms-ws/internal/config"
	"github.com/fedya-eremin/ms-ws/internal/idp"
)

// maxUserBody caps the user representation read from the admin API.
const maxUserBody = 1 << 20

var _ idp.Provider = (*Client)(nil)

// Client logs in as a realm service account and reads user records.
// It holds no session state and is safe for concurrent use.
type Client struct {
	cfg        config.KeycloakConfig
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for discovery, token and admin calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a Keycloak provider for the configured realm.
func NewClient(cfg config.KeycloakConfig, opts ...Option) *Client {
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Authenticate performs a password grant with the service client and
// administrative account against the realm token endpoint under BaseURL.
// Endpoints advertised by the realm are ignored: behind a public hostname
// Keycloak advertises URLs the proxy may not be able to reach. Every call
// yields a new session.
func (c *Client) Authenticate(ctx context.Context) (idp.Session, error) {
	oauthCfg := &oauth2.Config{
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  c.cfg.TokenURL(),
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	token, err := oauthCfg.PasswordCredentialsToken(ctx, c.cfg.AdminUsername, c.cfg.AdminPassword)
	if err != nil {
		return nil, fmt.Errorf("%w: password grant: %w", idp.ErrAuthentication, err)
	}

	return &Session{
		baseURL: strings.TrimRight(c.cfg.BaseURL, "/"),
		realm:   c.cfg.Realm,
		http:    oauthCfg.Client(ctx, token),
	}, nil
}

// Session is an authenticated admin API handle.
type Session struct {
	baseURL string
	realm   string
	http    *http.Client
}

// FindUser fetches a user representation by id. A 404 maps to idp.ErrUserNotFound.
func (s *Session) FindUser(ctx context.Context, id string) (*idp.User, error) {
	endpoint := fmt.Sprintf("%s/admin/realms/%s/users/%s", s.baseURL, url.PathEscape(s.realm), url.PathEscape(id))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build user request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch user %s: %w", id, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", idp.ErrUserNotFound, id)
	default:
		return nil, fmt.Errorf("fetch user %s: unexpected status %s", id, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUserBody))
	if err != nil {
		return nil, fmt.Errorf("read user %s: %w", id, err)
	}

	return parseUser(id, body)
}

// parseUser maps a Keycloak UserRepresentation onto idp.User. Keycloak omits
// unset attributes, so absent names become "" and absent enabled is false.
func parseUser(id string, body []byte) (*idp.User, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("decode user %s: invalid JSON", id)
	}
	rep := gjson.ParseBytes(body)

	username := rep.Get("username")
	if !username.Exists() {
		return nil, fmt.Errorf("decode user %s: representation has no username", id)
	}

	return &idp.User{
		ID:        id,
		Username:  username.String(),
		FirstName: rep.Get("firstName").String(),
		LastName:  rep.Get("lastName").String(),
		Enabled:   rep.Get("enabled").Bool(),
	}, nil
}
