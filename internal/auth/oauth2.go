package auth

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// OAuth2Config selects a grant for servers fronted by an OAuth2 identity provider.
type OAuth2Config struct {
	GrantType   string                 `mapstructure:"grant_type"`
	GrantConfig map[string]interface{} `mapstructure:"grant_config"`
}

// ClientCredentialsConfig holds configuration for the Client Credentials grant.
type ClientCredentialsConfig struct {
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	TokenURL     string   `mapstructure:"token_url"`
	Scopes       []string `mapstructure:"scopes"`
}

// PasswordConfig holds configuration for the Resource Owner Password Credentials grant.
type PasswordConfig struct {
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	TokenURL     string   `mapstructure:"token_url"`
	Username     string   `mapstructure:"username"`
	Password     string   `mapstructure:"password"`
	Scopes       []string `mapstructure:"scopes"`
}

type tlsKey struct{}

// WithTLSConfig makes token requests issued under the returned context honor
// cfg, so they use the same TLS settings as API calls.
func WithTLSConfig(ctx context.Context, cfg *tls.Config) context.Context {
	if cfg == nil {
		return ctx
	}
	return context.WithValue(ctx, tlsKey{}, cfg)
}

func (c OAuth2Config) method() (Method, error) {
	gt := strings.ToLower(strings.TrimSpace(c.GrantType))
	if gt == "" {
		return nil, errors.New("auth: oauth2 grant_type is required")
	}
	if c.GrantConfig == nil {
		return nil, errors.New("auth: oauth2 grant_config is required")
	}
	switch gt {
	case "client_credentials", "client-credentials":
		var cc ClientCredentialsConfig
		if err := decode(c.GrantConfig, &cc); err != nil {
			return nil, err
		}
		return cc, nil
	case "password":
		var pc PasswordConfig
		if err := decode(c.GrantConfig, &pc); err != nil {
			return nil, err
		}
		return pc, nil
	default:
		return nil, errors.New("auth: unsupported oauth2 grant_type: " + gt)
	}
}

func withTLS(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, _ := ctx.Value(tlsKey{}).(*tls.Config)
	if cfg == nil {
		return ctx
	}
	hc := &http.Client{Transport: &http.Transport{TLSClientConfig: cfg}}
	return context.WithValue(ctx, oauth2.HTTPClient, hc)
}

// Acquire performs the client credentials exchange.
func (c ClientCredentialsConfig) Acquire(ctx context.Context) (string, error) {
	tokenURL := strings.TrimSpace(c.TokenURL)
	if tokenURL == "" {
		return "", errors.New("oauth2: token_url is required for client_credentials grant")
	}
	if strings.TrimSpace(c.ClientID) == "" || strings.TrimSpace(c.ClientSecret) == "" {
		return "", errors.New("oauth2: client_id and client_secret are required for client_credentials grant")
	}
	cc := &clientcredentials.Config{
		ClientID:     strings.TrimSpace(c.ClientID),
		ClientSecret: strings.TrimSpace(c.ClientSecret),
		TokenURL:     tokenURL,
		Scopes:       c.Scopes,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	tok, err := cc.Token(withTLS(ctx))
	if err != nil {
		return "", err
	}
	return bearer(tok)
}

// Acquire performs the password grant exchange.
func (c PasswordConfig) Acquire(ctx context.Context) (string, error) {
	tokenURL := strings.TrimSpace(c.TokenURL)
	if tokenURL == "" {
		return "", errors.New("oauth2: token_url is required for password grant")
	}
	if strings.TrimSpace(c.ClientID) == "" || strings.TrimSpace(c.Username) == "" || c.Password == "" {
		return "", errors.New("oauth2: client_id, username and password are required for password grant")
	}
	cfg := &oauth2.Config{
		ClientID:     strings.TrimSpace(c.ClientID),
		ClientSecret: strings.TrimSpace(c.ClientSecret),
		Endpoint:     oauth2.Endpoint{TokenURL: tokenURL, AuthStyle: oauth2.AuthStyleInParams},
		Scopes:       c.Scopes,
	}
	tok, err := cfg.PasswordCredentialsToken(withTLS(ctx), strings.TrimSpace(c.Username), c.Password)
	if err != nil {
		return "", err
	}
	return bearer(tok)
}

func bearer(tok *oauth2.Token) (string, error) {
	if tok == nil || !tok.Valid() || strings.TrimSpace(tok.AccessToken) == "" {
		return "", errors.New("oauth2: received invalid token")
	}
	typ := strings.TrimSpace(tok.TokenType)
	if typ == "" || strings.EqualFold(typ, "bearer") {
		typ = "Bearer"
	}
	return typ + " " + tok.AccessToken, nil
}
